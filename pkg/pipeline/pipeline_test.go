package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/analytiqhub/docrouter/pkg/blob"
	"github.com/analytiqhub/docrouter/pkg/credit"
	"github.com/analytiqhub/docrouter/pkg/crypto"
	"github.com/analytiqhub/docrouter/pkg/llmprovider"
	"github.com/analytiqhub/docrouter/pkg/models"
	"github.com/analytiqhub/docrouter/pkg/ocr"
	"github.com/analytiqhub/docrouter/pkg/orchestrator"
	"github.com/analytiqhub/docrouter/pkg/pipeline"
	"github.com/analytiqhub/docrouter/pkg/prompt"
	"github.com/analytiqhub/docrouter/pkg/registry"
	"github.com/analytiqhub/docrouter/pkg/results"
	"github.com/analytiqhub/docrouter/pkg/workqueue"
	"github.com/analytiqhub/docrouter/test/mongotest"
)

func TestIsOCRCapable(t *testing.T) {
	require.True(t, pipeline.IsOCRCapable("application/pdf"))
	require.True(t, pipeline.IsOCRCapable("image/PNG"))
	require.False(t, pipeline.IsOCRCapable("text/csv"))
	require.False(t, pipeline.IsOCRCapable(""))
}

type fakeAnalyzer struct {
	result *ocr.Result
	err    error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, documentID string, pdfBytes []byte, features ocr.Features) (*ocr.Result, error) {
	return f.result, f.err
}

type fakeCaller struct{ text string }

func (f *fakeCaller) Call(ctx context.Context, req orchestrator.CallRequest) (orchestrator.CallResult, error) {
	return orchestrator.CallResult{Text: f.text}, nil
}

func setup(t *testing.T) (*registry.Registry, *blob.Store, *ocr.Store, *orchestrator.Orchestrator, *workqueue.Registry) {
	t.Helper()
	client := mongotest.NewTestClient(t)
	ctx := context.Background()

	blobs := blob.NewRegistry(client.DB())
	filesBucket, err := blobs.Bucket(blob.BucketFiles)
	require.NoError(t, err)
	ocrBucket, err := blobs.Bucket(blob.BucketOCR)
	require.NoError(t, err)
	ocrStore := ocr.NewStore(ocrBucket)

	docs := registry.New(client.Collection("docs"), blobs, blobs, client.Collection("llm_runs"))
	promptStore := prompt.New(client.Collection("prompt_revisions"), client.Collection("schema_revisions"))
	resultStore := results.New(client.Collection("llm_runs"))

	cipher := crypto.New("test-secret")
	providers := llmprovider.New(client.Collection("llm_providers"), cipher)
	require.NoError(t, providers.Seed(ctx, []llmprovider.Canonical{
		{
			Name: "openai", DisplayName: "OpenAI", LiteLLMProvider: "openai",
			DefaultModel: "gpt-4o-mini", ModelAllowList: []string{"gpt-4o-mini"},
			SupportsStructuredOutput: true,
		},
	}, map[string][]string{"openai": {"gpt-4o-mini"}}, func(string) (string, bool) { return "", false }))
	caps := llmprovider.NewCapabilities(
		[]llmprovider.Canonical{{Name: "openai", SupportsStructuredOutput: true}},
		map[string]map[string]llmprovider.ModelCost{
			"openai": {"gpt-4o-mini": {InputTokenLimit: 1, OutputTokenLimit: 1, InputCostPerToken: 1, OutputCostPerToken: 1}},
		},
	)

	orch := orchestrator.New(docs, promptStore, resultStore, providers, caps, ocrStore, credit.New(nil, nil), &fakeCaller{text: `{"a":1}`}, map[string]int{"gpt-4o-mini": 1})

	queues := workqueue.NewRegistry(client)
	return docs, filesBucket, ocrStore, orch, queues
}

func TestOCRHandlerSkipsNonOCRCapableDocuments(t *testing.T) {
	docs, filesBucket, ocrStore, _, queues := setup(t)
	ctx := context.Background()

	require.NoError(t, docs.Create(ctx, &models.Document{
		ID: "doc1", OrganizationID: "org1", ContentType: "text/csv",
		MongoFileName: "doc1.csv", State: models.StateUploaded,
	}))
	require.NoError(t, filesBucket.Save(ctx, "doc1.csv", []byte("a,b\n1,2\n"), nil))

	handler := &pipeline.OCRHandler{
		Docs: docs, Files: filesBucket, Artifact: ocrStore,
		Analyzer: &fakeAnalyzer{}, Queues: queues,
	}

	err := handler.Handle(ctx, &models.QueueMessage{Payload: map[string]any{
		"document_id": "doc1", "organization_id": "org1",
	}})
	require.NoError(t, err)

	doc, err := docs.Get(ctx, "org1", "doc1")
	require.NoError(t, err)
	require.Equal(t, models.StateOCRCompleted, doc.State)

	depth, err := queues.Queue("llm").Depth(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, depth)

	text, _, err := ocrStore.GetText(ctx, "doc1")
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,2\n", text)
}

func TestOCRHandlerRunsAnalyzerForPDF(t *testing.T) {
	docs, filesBucket, ocrStore, _, queues := setup(t)
	ctx := context.Background()

	require.NoError(t, docs.Create(ctx, &models.Document{
		ID: "doc2", OrganizationID: "org1", ContentType: "application/pdf",
		PDFFileName: "doc2.pdf", State: models.StateUploaded,
	}))
	require.NoError(t, filesBucket.Save(ctx, "doc2.pdf", []byte("%PDF-1.4"), nil))

	handler := &pipeline.OCRHandler{
		Docs: docs, Files: filesBucket, Artifact: ocrStore,
		Analyzer: &fakeAnalyzer{result: &ocr.Result{Blocks: []ocr.Block{
			{ID: "1", BlockType: ocr.BlockLine, Text: "hello", Page: 1},
		}}},
		Queues: queues,
	}

	err := handler.Handle(ctx, &models.QueueMessage{Payload: map[string]any{
		"document_id": "doc2", "organization_id": "org1",
	}})
	require.NoError(t, err)

	doc, err := docs.Get(ctx, "org1", "doc2")
	require.NoError(t, err)
	require.Equal(t, models.StateOCRCompleted, doc.State)

	text, _, err := ocrStore.GetText(ctx, "doc2")
	require.NoError(t, err)
	require.Contains(t, text, "hello")
}

func TestOCRHandlerRoutesAnalyzerFailureToErrQueue(t *testing.T) {
	docs, filesBucket, ocrStore, _, queues := setup(t)
	ctx := context.Background()

	require.NoError(t, docs.Create(ctx, &models.Document{
		ID: "doc3", OrganizationID: "org1", ContentType: "application/pdf",
		PDFFileName: "doc3.pdf", State: models.StateUploaded,
	}))
	require.NoError(t, filesBucket.Save(ctx, "doc3.pdf", []byte("%PDF-1.4"), nil))

	handler := &pipeline.OCRHandler{
		Docs: docs, Files: filesBucket, Artifact: ocrStore,
		Analyzer: &fakeAnalyzer{err: errors.New("textract exploded")},
		Queues:   queues,
	}

	err := handler.Handle(ctx, &models.QueueMessage{Payload: map[string]any{
		"document_id": "doc3", "organization_id": "org1",
	}})
	require.Error(t, err)

	doc, err := docs.Get(ctx, "org1", "doc3")
	require.NoError(t, err)
	require.Equal(t, models.StateOCRFailed, doc.State)
}

func TestLLMHandlerCompletesDocument(t *testing.T) {
	docs, _, _, orch, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, docs.Create(ctx, &models.Document{
		ID: "doc4", OrganizationID: "org1", State: models.StateOCRCompleted,
	}))

	handler := &pipeline.LLMHandler{Docs: docs, Orchestrator: orch}
	err := handler.Handle(ctx, &models.QueueMessage{Payload: map[string]any{
		"document_id": "doc4", "organization_id": "org1",
	}})
	require.NoError(t, err)

	doc, err := docs.Get(ctx, "org1", "doc4")
	require.NoError(t, err)
	require.Equal(t, models.StateLLMCompleted, doc.State)
}
