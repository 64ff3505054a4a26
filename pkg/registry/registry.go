// Package registry implements the Document Registry (spec.md §4.B): CRUD
// against a per-organization view of documents, with cascading delete across
// the blob store, OCR artifacts, and result revisions. Query shape is
// grounded on the upstream alertsession query patterns (pkg/queue/worker.go
// claimNextSession filtering/ordering), adapted from ent predicates to bson
// filters.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/analytiqhub/docrouter/pkg/apperr"
	"github.com/analytiqhub/docrouter/pkg/blob"
	"github.com/analytiqhub/docrouter/pkg/models"
	"github.com/analytiqhub/docrouter/pkg/ocr"
)

// maxLimit bounds the list page size (spec.md §4.B: limit in [1,100]).
const maxLimit = 100

// Registry is the Document Registry.
type Registry struct {
	docs  *mongo.Collection
	blobs *blob.Registry
	ocr   *blob.Registry
	// results is consulted only for cascading delete; kept as a raw
	// collection handle to avoid an import cycle with pkg/results.
	results *mongo.Collection
}

// New builds a Registry over docs, with blobStore/ocrStore for cascading
// delete of original/PDF/OCR artifacts, and results for cascading delete of
// result revisions.
func New(docs *mongo.Collection, blobStore, ocrStore *blob.Registry, results *mongo.Collection) *Registry {
	return &Registry{docs: docs, blobs: blobStore, ocr: ocrStore, results: results}
}

// Create inserts a new document row.
func (r *Registry) Create(ctx context.Context, doc *models.Document) error {
	_, err := r.docs.InsertOne(ctx, doc)
	return err
}

// Get fetches a single document scoped to organizationID.
func (r *Registry) Get(ctx context.Context, organizationID, id string) (*models.Document, error) {
	var doc models.Document
	err := r.docs.FindOne(ctx, bson.M{"_id": id, "organization_id": organizationID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns documents matching filter, newest upload first (spec.md
// §4.B).
func (r *Registry) List(ctx context.Context, filter models.DocumentFilter) ([]*models.Document, int64, error) {
	query := bson.M{"organization_id": filter.OrganizationID}

	if filter.NameContains != "" {
		query["user_file_name"] = bson.M{"$regex": regexp.QuoteMeta(filter.NameContains), "$options": "i"}
	}
	if len(filter.TagIDs) > 0 {
		query["tag_ids"] = bson.M{"$all": filter.TagIDs}
	}
	for k, v := range filter.MetadataEquals {
		query["metadata."+k] = bson.M{"$regex": regexp.QuoteMeta(v)}
	}

	limit := filter.Limit
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}
	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}

	total, err := r.docs.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "upload_date", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := r.docs.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var docs []*models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// ParseMetadataSearch decodes the "metadata_search" query parameter: a
// comma-separated, URL-decoded list of "key=value" pairs; match is equality
// on key and substring on value (spec.md §4.B).
func ParseMetadataSearch(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		decoded, err := url.QueryUnescape(pair)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid metadata_search segment %q", apperr.ErrValidationFailed, pair)
		}
		kv := strings.SplitN(decoded, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			return nil, fmt.Errorf("%w: malformed metadata_search segment %q", apperr.ErrValidationFailed, pair)
		}
		out[kv[0]] = kv[1]
	}
	return out, nil
}

// UpdateState transitions a document to next, recording the timestamp and an
// optional error message (spec.md §8 state machine).
func (r *Registry) UpdateState(ctx context.Context, organizationID, id string, next models.DocumentState, errMsg string) error {
	doc, err := r.Get(ctx, organizationID, id)
	if err != nil {
		return err
	}
	if !doc.State.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", apperr.ErrStateInvalidTransition, doc.State, next)
	}

	update := bson.M{
		"$set": bson.M{
			"state":            next,
			"state_updated_at": time.Now().UTC(),
			"error_message":    errMsg,
		},
	}
	_, err = r.docs.UpdateOne(ctx, bson.M{"_id": id, "organization_id": organizationID}, update)
	return err
}

// UpdateMetadata rewrites a document's user-facing name, tags, and metadata
// (spec.md §6 "PUT .../documents/{id}: Update name/tags/metadata"). Fields
// left at their zero value are unchanged.
func (r *Registry) UpdateMetadata(ctx context.Context, organizationID, id, userFileName string, tagIDs []string, metadata map[string]string) (*models.Document, error) {
	set := bson.M{}
	if userFileName != "" {
		set["user_file_name"] = userFileName
	}
	if tagIDs != nil {
		set["tag_ids"] = tagIDs
	}
	if metadata != nil {
		set["metadata"] = metadata
	}
	if len(set) == 0 {
		return r.Get(ctx, organizationID, id)
	}
	_, err := r.docs.UpdateOne(ctx, bson.M{"_id": id, "organization_id": organizationID}, bson.M{"$set": set})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, organizationID, id)
}

// Delete removes the document row and cascades to its original blob, PDF
// blob (if distinct), all OCR artifacts, and all result revisions (spec.md
// §4.B, §8 invariant).
func (r *Registry) Delete(ctx context.Context, organizationID, id string) error {
	doc, err := r.Get(ctx, organizationID, id)
	if err != nil {
		return err
	}

	filesBucket, err := r.blobs.Bucket(blob.BucketFiles)
	if err != nil {
		return err
	}
	if err := filesBucket.Delete(ctx, doc.MongoFileName); err != nil {
		return err
	}
	if doc.PDFFileName != "" && doc.PDFFileName != doc.MongoFileName {
		if err := filesBucket.Delete(ctx, doc.PDFFileName); err != nil {
			return err
		}
	}

	ocrBucket, err := r.ocr.Bucket(blob.BucketOCR)
	if err != nil {
		return err
	}
	artifacts := ocr.NewStore(ocrBucket)
	_, nPages, err := artifacts.GetText(ctx, id)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if err := artifacts.DeleteAll(ctx, id, nPages); err != nil {
		return err
	}

	if r.results != nil {
		if _, err := r.results.DeleteMany(ctx, bson.M{"document_id": id, "organization_id": organizationID}); err != nil {
			return err
		}
	}

	_, err = r.docs.DeleteOne(ctx, bson.M{"_id": id, "organization_id": organizationID})
	return err
}
