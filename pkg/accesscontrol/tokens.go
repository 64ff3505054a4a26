package accesscontrol

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/analytiqhub/docrouter/pkg/apperr"
	"github.com/analytiqhub/docrouter/pkg/crypto"
	"github.com/analytiqhub/docrouter/pkg/models"
)

// Token prefixes distinguishing account-level from organization-scoped
// access tokens by inspection of the plaintext value alone (spec.md §3
// Access Token, §6 "Access-token prefixes").
const (
	PrefixOrg     = "org_"
	PrefixAccount = "acc_"
)

// Tokens binds the access_tokens collection (spec.md §3 Access Token).
type Tokens struct {
	coll   *mongo.Collection
	cipher *crypto.Cipher
}

// NewTokens builds a Tokens store over coll, sealing plaintext tokens with
// cipher before they are ever persisted.
func NewTokens(coll *mongo.Collection, cipher *crypto.Cipher) *Tokens {
	return &Tokens{coll: coll, cipher: cipher}
}

// Create mints a new access token for userID. When organizationID is empty
// the token is account-scoped (plaintext prefix "acc_"); otherwise it is
// organization-scoped (prefix "org_"). The plaintext value is returned only
// here — it is never recoverable from storage afterward.
func (t *Tokens) Create(ctx context.Context, userID, organizationID, name string, lifetime *time.Duration) (plaintext string, token *models.AccessToken, err error) {
	prefix := PrefixAccount
	if organizationID != "" {
		prefix = PrefixOrg
	}
	secretPart, err := randomSecret()
	if err != nil {
		return "", nil, fmt.Errorf("generating access token secret: %w", err)
	}
	plaintext = prefix + secretPart

	encrypted, err := t.cipher.Encrypt(plaintext)
	if err != nil {
		return "", nil, fmt.Errorf("encrypting access token: %w", err)
	}

	token = &models.AccessToken{
		ID:             uuid.NewString(),
		UserID:         userID,
		OrganizationID: organizationID,
		Name:           name,
		EncryptedToken: encrypted,
		CreatedAt:      time.Now().UTC(),
		Lifetime:       lifetime,
	}
	if _, err := t.coll.InsertOne(ctx, token); err != nil {
		return "", nil, err
	}
	return plaintext, token, nil
}

// Lookup resolves a presented plaintext token back to its stored record.
// Encryption here is deterministic (spec.md §4.M: fixed key/IV), so the
// ciphertext of the presented value is a stable lookup key — no need to
// decrypt every stored token to find a match.
func (t *Tokens) Lookup(ctx context.Context, plaintext string) (*models.AccessToken, error) {
	encrypted, err := t.cipher.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrDecryptionFailed, err)
	}

	var token models.AccessToken
	err = t.coll.FindOne(ctx, bson.M{"encrypted_token": encrypted}).Decode(&token)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if token.Expired(time.Now().UTC()) {
		return nil, apperr.ErrUnauthorized
	}

	now := time.Now().UTC()
	_, _ = t.coll.UpdateOne(ctx, bson.M{"_id": token.ID}, bson.M{"$set": bson.M{"last_used_at": now}})
	token.LastUsedAt = &now
	return &token, nil
}

// List returns every token belonging to userID, optionally scoped to an
// organization (empty organizationID lists account-level tokens only).
func (t *Tokens) List(ctx context.Context, userID, organizationID string) ([]*models.AccessToken, error) {
	query := bson.M{"user_id": userID}
	if organizationID != "" {
		query["organization_id"] = organizationID
	} else {
		query["organization_id"] = bson.M{"$in": []any{"", nil}}
	}
	cursor, err := t.coll.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*models.AccessToken
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a token owned by userID.
func (t *Tokens) Delete(ctx context.Context, userID, id string) error {
	res, err := t.coll.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func randomSecret() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
