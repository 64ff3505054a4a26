// Package prompt implements the Prompt & Schema Store (component F):
// two-tier versioning (a logical id plus immutable, numbered revisions) for
// both prompts and JSON Schemas, tag-filtered lookup of the latest matching
// revision, and structural schema validation at write time via
// santhosh-tekuri/jsonschema/v6.
package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/analytiqhub/docrouter/pkg/apperr"
	"github.com/analytiqhub/docrouter/pkg/models"
)

// Store binds the prompt_revisions and schema_revisions collections.
type Store struct {
	prompts *mongo.Collection
	schemas *mongo.Collection
}

// New builds a Store over the given collections.
func New(prompts, schemas *mongo.Collection) *Store {
	return &Store{prompts: prompts, schemas: schemas}
}

// CreateSchemaRevision validates schema structurally and inserts the next
// revision for schemaID (spec.md §4.F, §3 Schema two-tier versioning).
func (s *Store) CreateSchemaRevision(ctx context.Context, organizationID, schemaID, name string, schema map[string]any, propertyOrder []string, strict bool, createdBy string) (*models.SchemaRevision, error) {
	if err := ValidateSchema(schema); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidationFailed, err)
	}

	version, err := s.nextVersion(ctx, s.schemas, "schema_id", schemaID)
	if err != nil {
		return nil, err
	}

	rev := &models.SchemaRevision{
		SchemaID:       schemaID,
		SchemaRevID:    uuid.NewString(),
		SchemaVersion:  version,
		Name:           name,
		OrganizationID: organizationID,
		Schema:         schema,
		PropertyOrder:  propertyOrder,
		Strict:         strict,
		CreatedAt:      time.Now().UTC(),
		CreatedBy:      createdBy,
	}
	if _, err := s.schemas.InsertOne(ctx, rev); err != nil {
		return nil, err
	}
	return rev, nil
}

// LatestSchemaRevision returns the highest-versioned revision for schemaID.
func (s *Store) LatestSchemaRevision(ctx context.Context, organizationID, schemaID string) (*models.SchemaRevision, error) {
	var rev models.SchemaRevision
	opts := options.FindOne().SetSort(bson.D{{Key: "schema_version", Value: -1}})
	err := s.schemas.FindOne(ctx, bson.M{"organization_id": organizationID, "schema_id": schemaID}, opts).Decode(&rev)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// CreatePromptRevision inserts the next revision for promptID (spec.md §4.F,
// §3 Prompt two-tier versioning). If schemaRevID is non-empty, it must
// reference an existing schema revision.
func (s *Store) CreatePromptRevision(ctx context.Context, organizationID, promptID, name, content, model string, tagIDs []string, schemaRevID string, createdBy string) (*models.PromptRevision, error) {
	var schemaID string
	var schemaVersion int
	if schemaRevID != "" {
		var schemaRev models.SchemaRevision
		err := s.schemas.FindOne(ctx, bson.M{"_id": schemaRevID, "organization_id": organizationID}).Decode(&schemaRev)
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: schema revision %s not found", apperr.ErrValidationFailed, schemaRevID)
		}
		if err != nil {
			return nil, err
		}
		schemaID = schemaRev.SchemaID
		schemaVersion = schemaRev.SchemaVersion
	}

	version, err := s.nextVersion(ctx, s.prompts, "prompt_id", promptID)
	if err != nil {
		return nil, err
	}

	rev := &models.PromptRevision{
		PromptID:       promptID,
		PromptRevID:    uuid.NewString(),
		PromptVersion:  version,
		Name:           name,
		OrganizationID: organizationID,
		Content:        content,
		Model:          model,
		TagIDs:         tagIDs,
		SchemaID:       schemaID,
		SchemaVersion:  schemaVersion,
		SchemaRevID:    schemaRevID,
		CreatedAt:      time.Now().UTC(),
		CreatedBy:      createdBy,
	}
	if _, err := s.prompts.InsertOne(ctx, rev); err != nil {
		return nil, err
	}
	return rev, nil
}

// LatestPromptRevision returns the newest prompt revision matching filter's
// tag set (spec.md §4.F: latest revision matching a tag set — an empty tag
// set on the filter matches any revision).
func (s *Store) LatestPromptRevision(ctx context.Context, filter models.PromptFilter) (*models.PromptRevision, error) {
	query := bson.M{"organization_id": filter.OrganizationID}
	if filter.PromptID != "" {
		query["prompt_id"] = filter.PromptID
	}
	if len(filter.TagIDs) > 0 {
		query["tag_ids"] = bson.M{"$all": filter.TagIDs}
	}

	var rev models.PromptRevision
	opts := options.FindOne().SetSort(bson.D{{Key: "prompt_version", Value: -1}})
	err := s.prompts.FindOne(ctx, query, opts).Decode(&rev)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// ListMatchingLatest returns the latest revision of every prompt whose tag
// set intersects documentTagIDs — one entry per stable prompt_id (spec.md
// §4.G step 2: "every prompt whose tags intersect the document's tags,
// latest version of each"). An empty documentTagIDs matches untagged
// prompts only (an empty $in array matches nothing, by design: a document
// with no tags runs no tag-bound prompts).
func (s *Store) ListMatchingLatest(ctx context.Context, organizationID string, documentTagIDs []string) ([]*models.PromptRevision, error) {
	if len(documentTagIDs) == 0 {
		return nil, nil
	}

	cursor, err := s.prompts.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"organization_id": organizationID,
			"tag_ids":         bson.M{"$in": documentTagIDs},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "prompt_version", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":  "$prompt_id",
			"root": bson.M{"$first": "$$ROOT"},
		}}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$root"}}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*models.PromptRevision
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPromptRevision fetches one revision by ID.
func (s *Store) GetPromptRevision(ctx context.Context, organizationID, promptRevID string) (*models.PromptRevision, error) {
	var rev models.PromptRevision
	err := s.prompts.FindOne(ctx, bson.M{"_id": promptRevID, "organization_id": organizationID}).Decode(&rev)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// GetSchemaRevision fetches one schema revision by ID.
func (s *Store) GetSchemaRevision(ctx context.Context, organizationID, schemaRevID string) (*models.SchemaRevision, error) {
	var rev models.SchemaRevision
	err := s.schemas.FindOne(ctx, bson.M{"_id": schemaRevID, "organization_id": organizationID}).Decode(&rev)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

func (s *Store) nextVersion(ctx context.Context, coll *mongo.Collection, idField, idValue string) (int, error) {
	var latest struct {
		Version int `bson:"schema_version"`
	}
	field := "schema_version"
	if idField == "prompt_id" {
		field = "prompt_version"
	}
	opts := options.FindOne().SetSort(bson.D{{Key: field, Value: -1}})
	err := coll.FindOne(ctx, bson.M{idField: idValue}, opts).Decode(&latest)
	if err == mongo.ErrNoDocuments {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return latest.Version + 1, nil
}

// ValidateSchema checks schema is a structurally valid JSON Schema
// (compiles cleanly under Draft 2020-12 via jsonschema/v6) whose root
// follows spec.md §3's Schema shape: an object type declaring properties,
// required, and additionalProperties.
func ValidateSchema(schema map[string]any) error {
	if t, _ := schema["type"].(string); t != "object" {
		return fmt.Errorf("schema root must be of type \"object\"")
	}
	if _, ok := schema["properties"]; !ok {
		return fmt.Errorf("schema must contain \"properties\"")
	}
	if _, ok := schema["required"]; !ok {
		return fmt.Errorf("schema must contain \"required\"")
	}
	if _, ok := schema["additionalProperties"]; !ok {
		return fmt.Errorf("schema must specify \"additionalProperties\"")
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	const resourceName = "inline.json"
	resource, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decoding schema: %w", err)
	}
	if err := compiler.AddResource(resourceName, resource); err != nil {
		return fmt.Errorf("adding schema resource: %w", err)
	}
	if _, err := compiler.Compile(resourceName); err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}
	return nil
}
