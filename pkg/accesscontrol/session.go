// Package accesscontrol implements Access Control (component N, spec.md
// §4.N): bearer resolution (session JWT first, then encrypted access
// token), organization-membership/admin checks, and the account-vs-
// organization context separation inferred from the request's URL path
// prefix.
package accesscontrol

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/analytiqhub/docrouter/pkg/apperr"
)

// SessionClaims is the payload of a session token (spec.md §4.N: "session
// tokens (JWT, HS256, signed with the process secret)").
type SessionClaims struct {
	UserID         string `json:"user_id"`
	IsSystemAdmin  bool   `json:"is_system_admin"`
	jwt.RegisteredClaims
}

// SessionIssuer signs and verifies session tokens with the process-wide
// NEXTAUTH_SECRET (spec.md §6).
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionIssuer builds a SessionIssuer. ttl bounds how long issued
// tokens remain valid.
func NewSessionIssuer(secret string, ttl time.Duration) *SessionIssuer {
	return &SessionIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a new session token for userID.
func (s *SessionIssuer) Issue(userID string, isSystemAdmin bool) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		UserID:        userID,
		IsSystemAdmin: isSystemAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse verifies and decodes a session token. Any failure (bad signature,
// wrong algorithm, expiry) surfaces as apperr.ErrUnauthorized so the caller
// can fall back to access-token resolution (spec.md §4.N resolution order).
func (s *SessionIssuer) Parse(tokenString string) (*SessionClaims, error) {
	var claims SessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUnauthorized, err)
	}
	return &claims, nil
}
