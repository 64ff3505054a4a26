package models

import "time"

// OrganizationType distinguishes billing/feature tiers (spec.md §3
// Organization, §4.O upgrade lattice).
type OrganizationType string

const (
	OrgIndividual OrganizationType = "individual"
	OrgTeam       OrganizationType = "team"
	OrgEnterprise OrganizationType = "enterprise"
)

// orgUpgradeLattice enumerates the legal upgrade edges (spec.md §4.O: an
// organization may only move up the tier lattice, never sideways or down).
var orgUpgradeLattice = map[OrganizationType][]OrganizationType{
	OrgIndividual: {OrgTeam, OrgEnterprise},
	OrgTeam:       {OrgEnterprise},
	OrgEnterprise: {},
}

// CanUpgradeTo reports whether moving from t to next is a legal upgrade.
func (t OrganizationType) CanUpgradeTo(next OrganizationType) bool {
	for _, allowed := range orgUpgradeLattice[t] {
		if allowed == next {
			return true
		}
	}
	return false
}

// MemberRole is a user's role within an organization.
type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

// Member binds a user to an organization with a role.
type Member struct {
	UserID string     `bson:"user_id" json:"user_id"`
	Role   MemberRole `bson:"role" json:"role"`
}

// Organization is a tenant boundary: every Document, Tag, PromptRevision,
// and LLMProvider token belongs to exactly one organization (spec.md §3
// Organization).
type Organization struct {
	ID        string           `bson:"_id" json:"id"`
	Name      string           `bson:"name" json:"name"`
	Type      OrganizationType `bson:"type" json:"type"`
	Members   []Member         `bson:"members" json:"members"`
	CreatedAt time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time        `bson:"updated_at" json:"updated_at"`
}

// HasMember reports whether userID belongs to the organization.
func (o *Organization) HasMember(userID string) bool {
	for _, m := range o.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether userID is an admin member.
func (o *Organization) IsAdmin(userID string) bool {
	for _, m := range o.Members {
		if m.UserID == userID && m.Role == RoleAdmin {
			return true
		}
	}
	return false
}

// User is a registered account (spec.md §3 User / §4.N).
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash,omitempty" json:"-"`
	IsAdmin      bool      `bson:"is_admin" json:"is_admin"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}
