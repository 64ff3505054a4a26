package models

import "time"

// AccessToken is a long-lived, encrypted credential a caller can present in
// place of a session JWT (spec.md §3 Access Token, §4.N). The EncryptedToken
// field holds the ciphertext produced by pkg/crypto; the plaintext token
// value is only ever shown to the caller at creation time.
type AccessToken struct {
	ID             string     `bson:"_id" json:"id"`
	UserID         string     `bson:"user_id" json:"user_id"`
	OrganizationID string     `bson:"organization_id,omitempty" json:"organization_id,omitempty"`
	Name           string     `bson:"name" json:"name"`
	EncryptedToken string     `bson:"encrypted_token" json:"-"`
	CreatedAt      time.Time  `bson:"created_at" json:"created_at"`
	LastUsedAt     *time.Time `bson:"last_used_at,omitempty" json:"last_used_at,omitempty"`
	Lifetime       *time.Duration `bson:"lifetime,omitempty" json:"lifetime,omitempty"`
}

// Expired reports whether the token has outlived its lifetime, if any.
func (t *AccessToken) Expired(now time.Time) bool {
	if t.Lifetime == nil {
		return false
	}
	return now.After(t.CreatedAt.Add(*t.Lifetime))
}
