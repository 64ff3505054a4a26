package results_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/analytiqhub/docrouter/pkg/models"
	"github.com/analytiqhub/docrouter/pkg/results"
	"github.com/analytiqhub/docrouter/test/mongotest"
)

func newStore(t *testing.T) *results.Store {
	t.Helper()
	client := mongotest.NewTestClient(t)
	coll := client.DB().Collection("llm_runs_" + t.Name())
	t.Cleanup(func() { _ = coll.Drop(context.Background()) })
	return results.New(coll)
}

func sampleResult(orgID, docID, promptRevID string) *models.LLMResult {
	body := models.NewOrderedMap()
	body.Set("invoice_number", "INV-1")
	body.Set("total", 42.0)
	return &models.LLMResult{
		OrganizationID: orgID,
		DocumentID:     docID,
		PromptRevID:    promptRevID,
		Model:          "gpt-4o-mini",
		LLMResult:      body,
		CreatedBy:      "user-1",
	}
}

func TestLatestReturnsNewestRevision(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	first := sampleResult("org-1", "doc-1", "rev-1")
	require.NoError(t, store.Create(ctx, first))

	second := sampleResult("org-1", "doc-1", "rev-1")
	second.Model = "gpt-4o"
	require.NoError(t, store.Create(ctx, second))

	latest, err := store.Latest(ctx, "org-1", "doc-1", "rev-1")
	require.NoError(t, err)
	require.Equal(t, "gpt-4o", latest.Model)
}

func TestLatestNotFound(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.Latest(ctx, "org-1", "missing-doc", "rev-1")
	require.Error(t, err)
}

func TestAllForDocumentReturnsNewestPerPromptRev(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.Create(ctx, sampleResult("org-1", "doc-1", "rev-a")))
	require.NoError(t, store.Create(ctx, sampleResult("org-1", "doc-1", "rev-b")))
	stale := sampleResult("org-1", "doc-1", "rev-a")
	stale.Model = "stale"
	require.NoError(t, store.Create(ctx, stale))
	fresh := sampleResult("org-1", "doc-1", "rev-a")
	fresh.Model = "fresh"
	require.NoError(t, store.Create(ctx, fresh))

	all, err := store.AllForDocument(ctx, "org-1", "doc-1")
	require.NoError(t, err)
	require.Len(t, all, 2)

	byRev := map[string]*models.LLMResult{}
	for _, r := range all {
		byRev[r.PromptRevID] = r
	}
	require.Equal(t, "fresh", byRev["rev-a"].Model)
}

func TestUpdateRejectsKeySetMismatch(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	r := sampleResult("org-1", "doc-1", "rev-1")
	require.NoError(t, store.Create(ctx, r))

	badEdit := models.NewOrderedMap()
	badEdit.Set("invoice_number", "INV-2")

	_, err := store.Update(ctx, "org-1", "doc-1", "rev-1", badEdit, nil)
	require.Error(t, err)
}

func TestUpdateAppliesEditAndVerifiedFlag(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	r := sampleResult("org-1", "doc-1", "rev-1")
	require.NoError(t, store.Create(ctx, r))

	edit := models.NewOrderedMap()
	edit.Set("invoice_number", "INV-CORRECTED")
	edit.Set("total", 99.0)
	verified := true

	updated, err := store.Update(ctx, "org-1", "doc-1", "rev-1", edit, &verified)
	require.NoError(t, err)
	require.True(t, updated.IsEdited)
	require.True(t, updated.IsVerified)

	v, _ := updated.Current().Get("invoice_number")
	require.Equal(t, "INV-CORRECTED", v)
}

func TestDeleteForPromptRevRemovesOnlyThatPair(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.Create(ctx, sampleResult("org-1", "doc-1", "rev-1")))
	require.NoError(t, store.Create(ctx, sampleResult("org-1", "doc-1", "rev-2")))

	require.NoError(t, store.DeleteForPromptRev(ctx, "org-1", "doc-1", "rev-1"))

	_, err := store.Latest(ctx, "org-1", "doc-1", "rev-1")
	require.Error(t, err)

	_, err = store.Latest(ctx, "org-1", "doc-1", "rev-2")
	require.NoError(t, err)
}

func TestDeleteAllForDocumentRemovesEverything(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.Create(ctx, sampleResult("org-1", "doc-1", "rev-1")))
	require.NoError(t, store.Create(ctx, sampleResult("org-1", "doc-1", "rev-2")))

	require.NoError(t, store.DeleteAllForDocument(ctx, "org-1", "doc-1"))

	all, err := store.AllForDocument(ctx, "org-1", "doc-1")
	require.NoError(t, err)
	require.Empty(t, all)
}
