package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/analytiqhub/docrouter/pkg/apperr"
	"github.com/analytiqhub/docrouter/pkg/blob"
	"github.com/analytiqhub/docrouter/pkg/models"
	"github.com/analytiqhub/docrouter/pkg/mongostore"
	"github.com/analytiqhub/docrouter/pkg/ocr"
	"github.com/analytiqhub/docrouter/pkg/registry"
	"github.com/analytiqhub/docrouter/test/mongotest"
)

func newTestRegistry(t *testing.T) (*registry.Registry, *mongostore.Client) {
	t.Helper()
	client := mongotest.NewTestClient(t)
	blobs := blob.NewRegistry(client.DB())
	results := client.Collection(mongostore.CollLLMRuns)
	reg := registry.New(client.Collection(mongostore.CollDocs), blobs, blobs, results)
	return reg, client
}

func newDoc(orgID string) *models.Document {
	id := uuid.NewString()
	return &models.Document{
		ID:             id,
		OrganizationID: orgID,
		UserFileName:   "invoice.pdf",
		MongoFileName:  id + ".pdf",
		ContentType:    "application/pdf",
		TagIDs:         []string{},
		State:          models.StateUploaded,
		UploadDate:     time.Now().UTC(),
		UploadedBy:     "user-1",
		StateUpdatedAt: time.Now().UTC(),
	}
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	org := uuid.NewString()

	doc := newDoc(org)
	require.NoError(t, reg.Create(ctx, doc))

	got, err := reg.Get(ctx, org, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.UserFileName, got.UserFileName)
	assert.Equal(t, models.StateUploaded, got.State)
}

func TestGetMissingOrWrongOrgReturnsNotFound(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	org := uuid.NewString()

	doc := newDoc(org)
	require.NoError(t, reg.Create(ctx, doc))

	_, err := reg.Get(ctx, org, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = reg.Get(ctx, uuid.NewString(), doc.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "a document is scoped to its own organization")
}

func TestListOrdersNewestFirstAndScopesToOrganization(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	org := uuid.NewString()
	otherOrg := uuid.NewString()

	older := newDoc(org)
	older.UploadDate = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, reg.Create(ctx, older))

	newer := newDoc(org)
	newer.UploadDate = time.Now().UTC()
	require.NoError(t, reg.Create(ctx, newer))

	require.NoError(t, reg.Create(ctx, newDoc(otherOrg)))

	docs, total, err := reg.List(ctx, models.DocumentFilter{OrganizationID: org})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, docs, 2)
	assert.Equal(t, newer.ID, docs[0].ID, "newest upload must sort first")
	assert.Equal(t, older.ID, docs[1].ID)
}

func TestListClampsLimitAndSkip(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	org := uuid.NewString()

	for i := 0; i < 3; i++ {
		require.NoError(t, reg.Create(ctx, newDoc(org)))
	}

	docs, total, err := reg.List(ctx, models.DocumentFilter{OrganizationID: org, Limit: 999, Skip: -5})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, docs, 3, "an out-of-range limit must clamp to the max page size, not reject the request")
}

func TestListFiltersByNameCaseInsensitiveAndTags(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	org := uuid.NewString()

	tagged := newDoc(org)
	tagged.UserFileName = "Q3-Invoice.pdf"
	tagged.TagIDs = []string{"tag-a", "tag-b"}
	require.NoError(t, reg.Create(ctx, tagged))

	untagged := newDoc(org)
	untagged.UserFileName = "receipt.pdf"
	require.NoError(t, reg.Create(ctx, untagged))

	docs, _, err := reg.List(ctx, models.DocumentFilter{OrganizationID: org, NameContains: "invoice"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, tagged.ID, docs[0].ID)

	docs, _, err = reg.List(ctx, models.DocumentFilter{OrganizationID: org, TagIDs: []string{"tag-a", "tag-b"}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, tagged.ID, docs[0].ID)

	docs, _, err = reg.List(ctx, models.DocumentFilter{OrganizationID: org, TagIDs: []string{"tag-a", "tag-c"}})
	require.NoError(t, err)
	assert.Empty(t, docs, "AND semantics: a tag the document doesn't carry excludes it")
}

func TestParseMetadataSearchDecodesKeyValuePairs(t *testing.T) {
	parsed, err := registry.ParseMetadataSearch("vendor=Acme,invoice_type=receipt")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"vendor": "Acme", "invoice_type": "receipt"}, parsed)

	parsed, err = registry.ParseMetadataSearch("")
	require.NoError(t, err)
	assert.Nil(t, parsed)

	_, err = registry.ParseMetadataSearch("novalue")
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
}

func TestListMetadataEqualsMatchesKeyAndSubstringOfValue(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	org := uuid.NewString()

	doc := newDoc(org)
	doc.Metadata = map[string]string{"vendor": "Acme Corporation"}
	require.NoError(t, reg.Create(ctx, doc))

	docs, _, err := reg.List(ctx, models.DocumentFilter{OrganizationID: org, MetadataEquals: map[string]string{"vendor": "Acme"}})
	require.NoError(t, err)
	require.Len(t, docs, 1, "substring match on value")

	docs, _, err = reg.List(ctx, models.DocumentFilter{OrganizationID: org, MetadataEquals: map[string]string{"vendor": "Globex"}})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestUpdateStateEnforcesValidTransitions(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	org := uuid.NewString()

	doc := newDoc(org)
	require.NoError(t, reg.Create(ctx, doc))

	require.NoError(t, reg.UpdateState(ctx, org, doc.ID, models.StateOCRProcessing, ""))

	got, err := reg.Get(ctx, org, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateOCRProcessing, got.State)

	err = reg.UpdateState(ctx, org, doc.ID, models.StateLLMCompleted, "")
	assert.ErrorIs(t, err, apperr.ErrStateInvalidTransition, "uploaded->ocr_processing->llm_completed skips stages")

	require.NoError(t, reg.UpdateState(ctx, org, doc.ID, models.StateOCRFailed, "boom"))
	got, err = reg.Get(ctx, org, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "boom", got.ErrorMessage)
}

func TestUpdateMetadataOnlyChangesProvidedFields(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	org := uuid.NewString()

	doc := newDoc(org)
	doc.Metadata = map[string]string{"vendor": "Acme"}
	require.NoError(t, reg.Create(ctx, doc))

	updated, err := reg.UpdateMetadata(ctx, org, doc.ID, "renamed.pdf", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "renamed.pdf", updated.UserFileName)
	assert.Equal(t, map[string]string{"vendor": "Acme"}, updated.Metadata, "nil metadata/tags leave existing values untouched")

	updated, err = reg.UpdateMetadata(ctx, org, doc.ID, "", []string{"tag-z"}, map[string]string{"vendor": "Globex"})
	require.NoError(t, err)
	assert.Equal(t, "renamed.pdf", updated.UserFileName, "empty name is left unchanged")
	assert.Equal(t, []string{"tag-z"}, updated.TagIDs)
	assert.Equal(t, map[string]string{"vendor": "Globex"}, updated.Metadata)
}

func TestDeleteCascadesBlobsOCRArtifactsAndResults(t *testing.T) {
	reg, client := newTestRegistry(t)
	ctx := context.Background()
	org := uuid.NewString()

	doc := newDoc(org)
	doc.PDFFileName = doc.MongoFileName + ".converted.pdf"
	require.NoError(t, reg.Create(ctx, doc))

	blobs := blob.NewRegistry(client.DB())
	filesBucket, err := blobs.Bucket(blob.BucketFiles)
	require.NoError(t, err)
	require.NoError(t, filesBucket.Save(ctx, doc.MongoFileName, []byte("original bytes"), nil))
	require.NoError(t, filesBucket.Save(ctx, doc.PDFFileName, []byte("pdf bytes"), nil))

	ocrBucket, err := blobs.Bucket(blob.BucketOCR)
	require.NoError(t, err)
	artifacts := ocr.NewStore(ocrBucket)
	require.NoError(t, artifacts.SaveText(ctx, doc.ID, []string{"page one", "page two"}))

	results := client.Collection(mongostore.CollLLMRuns)
	_, err = results.InsertOne(ctx, map[string]any{"document_id": doc.ID, "organization_id": org, "prompt_revid": "rev-1"})
	require.NoError(t, err)

	require.NoError(t, reg.Delete(ctx, org, doc.ID))

	_, err = reg.Get(ctx, org, doc.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = filesBucket.Get(ctx, doc.MongoFileName)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "original blob must be removed")
	_, err = filesBucket.Get(ctx, doc.PDFFileName)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "distinct PDF blob must be removed")

	_, _, err = artifacts.GetText(ctx, doc.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "OCR text artifact must be removed")

	count, err := results.CountDocuments(ctx, map[string]any{"document_id": doc.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "result revisions must be removed")
}

func TestDeleteIsANoOpOnBlobsWhenDocumentNeverReachedOCR(t *testing.T) {
	reg, client := newTestRegistry(t)
	ctx := context.Background()
	org := uuid.NewString()

	doc := newDoc(org)
	require.NoError(t, reg.Create(ctx, doc))

	blobs := blob.NewRegistry(client.DB())
	filesBucket, err := blobs.Bucket(blob.BucketFiles)
	require.NoError(t, err)
	require.NoError(t, filesBucket.Save(ctx, doc.MongoFileName, []byte("original bytes"), nil))

	require.NoError(t, reg.Delete(ctx, org, doc.ID), "no OCR artifacts ever existed; delete must not fail")
}
