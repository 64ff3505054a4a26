// Package results implements the Result Store (component L): append-only
// extraction result revisions, newest-per-(document, prompt_revision)
// lookup, and edit/verify flags (spec.md §4.L). Grounded on the same
// append-only, sort-by-created_at idiom pkg/prompt uses for two-tier
// versioning, adapted here to one-revision-per-document-per-prompt rather
// than a global version counter.
package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/analytiqhub/docrouter/pkg/apperr"
	"github.com/analytiqhub/docrouter/pkg/models"
)

// Store binds the llm_runs collection (spec.md §6 persisted state).
type Store struct {
	coll *mongo.Collection
}

// New builds a Store over coll.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

// Create inserts a new result revision (spec.md §4.G step 11).
func (s *Store) Create(ctx context.Context, r *models.LLMResult) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	_, err := s.coll.InsertOne(ctx, r)
	return err
}

// Latest returns the newest result revision for (documentID, promptRevID)
// (spec.md §4.L: "reads return the newest revision").
func (s *Store) Latest(ctx context.Context, organizationID, documentID, promptRevID string) (*models.LLMResult, error) {
	var r models.LLMResult
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	err := s.coll.FindOne(ctx, bson.M{
		"organization_id": organizationID,
		"document_id":     documentID,
		"prompt_rev_id":   promptRevID,
	}, opts).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// AllForDocument returns the newest revision per prompt_rev_id for
// documentID (spec.md §6 GET .../llm/results/{id}/download).
func (s *Store) AllForDocument(ctx context.Context, organizationID, documentID string) ([]*models.LLMResult, error) {
	cursor, err := s.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"organization_id": organizationID, "document_id": documentID}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":  "$prompt_rev_id",
			"root": bson.M{"$first": "$$ROOT"},
		}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$root"}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*models.LLMResult
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteForPromptRev removes any existing result revisions for (documentID,
// promptRevID) (spec.md §4.G step 1: "delete any prior result for that
// pair" when force-running).
func (s *Store) DeleteForPromptRev(ctx context.Context, organizationID, documentID, promptRevID string) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{
		"organization_id": organizationID,
		"document_id":     documentID,
		"prompt_rev_id":   promptRevID,
	})
	return err
}

// DeleteAllForDocument removes every result revision for documentID (spec.md
// §4.L "delete-all-for-document is invoked on document deletion").
func (s *Store) DeleteAllForDocument(ctx context.Context, organizationID, documentID string) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"organization_id": organizationID, "document_id": documentID})
	return err
}

// Update rewrites the newest revision's updated_llm_result, enforcing the
// key-set-preserving invariant (spec.md §4.L, §8: "reject writes whose
// top-level key set differs from the original").
func (s *Store) Update(ctx context.Context, organizationID, documentID, promptRevID string, updated *models.OrderedMap, verified *bool) (*models.LLMResult, error) {
	latest, err := s.Latest(ctx, organizationID, documentID, promptRevID)
	if err != nil {
		return nil, err
	}
	if !latest.ApplyEdit(updated) {
		return nil, fmt.Errorf("%w: updated_llm_result key set must match llm_result", apperr.ErrValidationFailed)
	}
	if verified != nil {
		latest.IsVerified = *verified
	}
	latest.UpdatedAt = time.Now().UTC()

	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": latest.ID}, latest)
	if err != nil {
		return nil, err
	}
	return latest, nil
}
