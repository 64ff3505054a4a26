package accesscontrol

import (
	"context"
	"fmt"
	"strings"

	"github.com/analytiqhub/docrouter/pkg/apperr"
	"github.com/analytiqhub/docrouter/pkg/models"
	"github.com/analytiqhub/docrouter/pkg/tagorg"
)

// Context is the API context a request is authenticated against, inferred
// from the URL path prefix (spec.md §4.N: "Context is inferred from the
// URL path prefix").
type Context int

const (
	ContextAccount Context = iota
	ContextOrganization
)

// InferContext classifies an API path as account- or organization-scoped,
// returning the organization id for the latter (spec.md §6 path shapes
// "/v0/account/..." vs "/v0/orgs/{org_id}/...").
func InferContext(path string) (Context, string) {
	path = strings.TrimPrefix(path, "/")
	parts := strings.Split(path, "/")
	// parts[0] == "v0"
	if len(parts) >= 2 && parts[1] == "account" {
		return ContextAccount, ""
	}
	if len(parts) >= 3 && parts[1] == "orgs" {
		return ContextOrganization, parts[2]
	}
	return ContextAccount, ""
}

// Principal is the authenticated caller resolved from a bearer token
// (spec.md §4.N). TokenOrgID is empty for a session token or an
// account-level access token; IsSession distinguishes a JWT principal
// (accepted in both contexts, subject to membership) from an access-token
// principal (typed to exactly one context, spec.md Glossary).
type Principal struct {
	UserID        string
	IsSystemAdmin bool
	IsSession     bool
	TokenOrgID    string // non-empty only for an org-scoped access token
}

// Resolver implements the §4.N bearer resolution order: try session JWT
// first, then fall back to an encrypted access token lookup.
type Resolver struct {
	sessions *SessionIssuer
	tokens   *Tokens
	users    *Users
	orgs     *tagorg.Organizations
}

// NewResolver builds a Resolver.
func NewResolver(sessions *SessionIssuer, tokens *Tokens, users *Users, orgs *tagorg.Organizations) *Resolver {
	return &Resolver{sessions: sessions, tokens: tokens, users: users, orgs: orgs}
}

// Resolve parses a bearer token value (without the "Bearer " prefix) into a
// Principal (spec.md §4.N: "parse bearer; try JWT decode ...; on failure,
// look up an encrypted access token").
func (r *Resolver) Resolve(ctx context.Context, bearer string) (*Principal, error) {
	if bearer == "" {
		return nil, apperr.ErrUnauthorized
	}

	if claims, err := r.sessions.Parse(bearer); err == nil {
		return &Principal{UserID: claims.UserID, IsSystemAdmin: claims.IsSystemAdmin, IsSession: true}, nil
	}

	token, err := r.tokens.Lookup(ctx, bearer)
	if err != nil {
		return nil, apperr.ErrUnauthorized
	}

	isAdmin := false
	if user, err := r.users.Get(ctx, token.UserID); err == nil {
		isAdmin = user.IsAdmin
	}

	return &Principal{UserID: token.UserID, IsSystemAdmin: isAdmin, TokenOrgID: token.OrganizationID}, nil
}

// Authorize checks p against the context a request targets (spec.md §4.N):
//   - Account context accepts a session token or an account-level access
//     token (TokenOrgID == "").
//   - Organization context accepts a session token held by an org member,
//     or an access token whose TokenOrgID matches the path's org.
func (r *Resolver) Authorize(ctx context.Context, p *Principal, reqCtx Context, pathOrgID string) error {
	switch reqCtx {
	case ContextAccount:
		if p.IsSession {
			return nil
		}
		if p.TokenOrgID == "" {
			return nil
		}
		return fmt.Errorf("%w: organization-scoped token used in account context", apperr.ErrUnauthorized)
	case ContextOrganization:
		if p.IsSession {
			org, err := r.orgs.Get(ctx, pathOrgID)
			if err != nil {
				return err
			}
			if !org.HasMember(p.UserID) {
				return fmt.Errorf("%w: user is not a member of organization %s", apperr.ErrForbidden, pathOrgID)
			}
			return nil
		}
		if p.TokenOrgID != "" && p.TokenOrgID == pathOrgID {
			return nil
		}
		return fmt.Errorf("%w: token does not grant access to organization %s", apperr.ErrUnauthorized, pathOrgID)
	}
	return apperr.ErrUnauthorized
}

// RequireOrgAdmin checks that p is an admin of org (either a system admin,
// or an org-member session holding the admin role; spec.md §4.N "org-admin
// is a role on the org's member list").
func RequireOrgAdmin(p *Principal, org *models.Organization) error {
	if p.IsSystemAdmin {
		return nil
	}
	if org.IsAdmin(p.UserID) {
		return nil
	}
	return fmt.Errorf("%w: requires organization admin", apperr.ErrForbidden)
}

// RequireSystemAdmin checks p is a system administrator (spec.md §3
// Organization: "enterprise creation/upgrade is restricted to system
// administrators").
func RequireSystemAdmin(p *Principal) error {
	if p.IsSystemAdmin {
		return nil
	}
	return fmt.Errorf("%w: requires system admin", apperr.ErrForbidden)
}
