// Package orchestrator implements the LLM Orchestrator (component G):
// spec.md §4.G's run_llm algorithm and its errgroup-fanned-out batch entry
// point. Provider dispatch, circuit breaking, and retry/backoff are
// grounded on jordigilh-kubernaut's dependency stack (tmc/langchaingo,
// sony/gobreaker, cenkalti/backoff/v4) — present in the pack's manifest but
// not exercised in its retrieved source, so the wiring below follows each
// library's own public API rather than a pack usage example.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/analytiqhub/docrouter/pkg/apperr"
	"github.com/analytiqhub/docrouter/pkg/credit"
	"github.com/analytiqhub/docrouter/pkg/llmprovider"
	"github.com/analytiqhub/docrouter/pkg/models"
	"github.com/analytiqhub/docrouter/pkg/ocr"
	"github.com/analytiqhub/docrouter/pkg/prompt"
	"github.com/analytiqhub/docrouter/pkg/registry"
	"github.com/analytiqhub/docrouter/pkg/results"
)

// DefaultModel is used whenever no explicit or prompt-bound model resolves
// to a usable chat model (spec.md §4.G step 3).
const DefaultModel = "gpt-4o-mini"

// DefaultPromptID is the logical id of the prompt run against every
// document regardless of tags (spec.md §4.J LLM handler).
const DefaultPromptID = "default"

const systemPrompt = "You are a document extraction assistant. Respond with a single JSON object and nothing else."

const defaultPromptContent = "Extract all relevant structured information from this document as a JSON object."

const ocrSeparator = "\n\n---\n\nDocument text:\n\n"

// maxCallAttempts bounds the exponential backoff retry loop (spec.md §5).
const maxCallAttempts = 5

// Orchestrator wires the stores and provider dispatch the run_llm algorithm
// needs.
type Orchestrator struct {
	docs       *registry.Registry
	prompts    *prompt.Store
	results    *results.Store
	providers  *llmprovider.Registry
	caps       *llmprovider.Capabilities
	ocrStore   *ocr.Store
	creditGate *credit.Gate
	caller     Caller
	spuCosts   map[string]int

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// New builds an Orchestrator.
func New(
	docs *registry.Registry,
	prompts *prompt.Store,
	resultsStore *results.Store,
	providers *llmprovider.Registry,
	caps *llmprovider.Capabilities,
	ocrStore *ocr.Store,
	creditGate *credit.Gate,
	caller Caller,
	spuCosts map[string]int,
) *Orchestrator {
	return &Orchestrator{
		docs:       docs,
		prompts:    prompts,
		results:    resultsStore,
		providers:  providers,
		caps:       caps,
		ocrStore:   ocrStore,
		creditGate: creditGate,
		caller:     caller,
		spuCosts:   spuCosts,
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
	}
}

// RunLLM executes the run_llm algorithm for one (document, prompt revision)
// pair (spec.md §4.G, numbered steps below match the spec).
func (o *Orchestrator) RunLLM(ctx context.Context, organizationID, documentID, promptRevID, explicitModel string, force bool, userID string) (*models.LLMResult, error) {
	// 1. Reuse or clear any prior result for this pair.
	if !force {
		existing, err := o.results.Latest(ctx, organizationID, documentID, promptRevID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}
	if err := o.results.DeleteForPromptRev(ctx, organizationID, documentID, promptRevID); err != nil {
		return nil, err
	}

	// 2. Resolve document and organization.
	doc, err := o.docs.Get(ctx, organizationID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OrganizationID == "" {
		return nil, fmt.Errorf("%w: document %s has no organization", apperr.ErrValidationFailed, documentID)
	}

	var promptRev *models.PromptRevision
	if promptRevID != DefaultPromptID {
		promptRev, err = o.prompts.GetPromptRevision(ctx, organizationID, promptRevID)
		if err != nil {
			return nil, err
		}
	}

	// 3. Choose model.
	model := chooseModel(explicitModel, promptRev)
	provider, err := o.providers.ForModel(model)
	if err != nil || !o.caps.IsChatModel(provider, model) || !o.caps.IsSupportedModel(provider, model) {
		model = DefaultModel
		provider, err = o.providers.ForModel(model)
		if err != nil {
			return nil, fmt.Errorf("%w: no provider available for default model %s", apperr.ErrProviderFatal, model)
		}
	}

	ocrText, nPages, err := o.ocrStore.GetText(ctx, documentID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	// 4. SPU cost + credit check.
	spus := credit.SPUCost(o.spuCosts, model, nPages)
	allowed, err := o.creditGate.Check(ctx, organizationID, spus)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.ErrInsufficientCredits
	}

	// 5. Provider token (Bedrock-family uses ambient AWS credentials instead).
	var token string
	if provider.LiteLLMProvider != "bedrock" {
		token, err = o.providers.Token(provider)
		if err != nil {
			return nil, err
		}
	}

	// 6. Assemble the prompt.
	content := defaultPromptContent
	if promptRev != nil {
		content = promptRev.Content
	}
	userPrompt := content + ocrSeparator + ocrText

	// 7. Response format.
	var schemaFormat *models.JSONSchemaResponseFormat
	var schemaRev *models.SchemaRevision
	if promptRevID != DefaultPromptID && promptRev != nil && promptRev.HasSchema() && o.caps.SupportsStructuredOutput(provider) {
		schemaRev, err = o.prompts.GetSchemaRevision(ctx, organizationID, promptRev.SchemaRevID)
		if err != nil {
			return nil, err
		}
		format := schemaRev.ResponseFormat()
		schemaFormat = &format
	}

	// 8. Call the provider with retries and parse JSON.
	callResult, err := o.call(ctx, provider, model, token, userPrompt, schemaFormat)
	if err != nil {
		return nil, err
	}

	parsed := models.NewOrderedMap()
	if err := json.Unmarshal([]byte(callResult.Text), parsed); err != nil {
		return nil, fmt.Errorf("%w: provider response is not valid JSON: %v", apperr.ErrProviderFatal, err)
	}

	// 9. Schema-bound key reordering.
	body := parsed
	if schemaRev != nil {
		body = parsed.Reordered(schemaRev.TopLevelPropertyOrder())
	}

	// 10. Record usage.
	usage := credit.Usage{
		Provider:         provider.Name,
		Model:            model,
		PromptTokens:     callResult.PromptTokens,
		CompletionTokens: callResult.CompletionTokens,
		TotalTokens:      callResult.TotalTokens,
	}
	if err := o.creditGate.RecordLLM(ctx, organizationID, spus, usage); err != nil {
		return nil, err
	}

	// 11. Persist as a new result revision.
	result := &models.LLMResult{
		DocumentID:       documentID,
		OrganizationID:   organizationID,
		PromptID:         promptIDOrDefault(promptRev),
		PromptRevID:      promptRevID,
		PromptVersion:    promptVersionOrZero(promptRev),
		Model:            model,
		LLMResult:        body,
		UpdatedLLMResult: body.Clone(),
		IsEdited:         false,
		IsVerified:       false,
		PromptTokens:     callResult.PromptTokens,
		CompletionTokens: callResult.CompletionTokens,
		TotalTokens:      callResult.TotalTokens,
		CreatedBy:        userID,
	}
	if err := o.results.Create(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// PromptRevIDsForDocument resolves the full prompt set a document's LLM
// stage runs: the literal "default" entry, plus the latest revision of
// every prompt whose tags intersect the document's tags (spec.md §4.J LLM
// handler: "the default prompt plus all prompts whose tag set intersects
// the document's tag set, latest version only").
func (o *Orchestrator) PromptRevIDsForDocument(ctx context.Context, organizationID string, doc *models.Document) ([]string, error) {
	ids := []string{DefaultPromptID}
	matches, err := o.prompts.ListMatchingLatest(ctx, organizationID, doc.TagIDs)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		ids = append(ids, m.PromptRevID)
	}
	return ids, nil
}

// RunForPromptRevIDs runs RunLLM once per prompt revision concurrently,
// isolating failures per revision (spec.md §4.G batch entry
// run_llm_for_prompt_rev_ids).
func (o *Orchestrator) RunForPromptRevIDs(ctx context.Context, organizationID, documentID string, promptRevIDs []string, force bool, userID string) ([]*models.LLMResult, error) {
	resultsOut := make([]*models.LLMResult, len(promptRevIDs))
	errsOut := make([]error, len(promptRevIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, revID := range promptRevIDs {
		i, revID := i, revID
		g.Go(func() error {
			r, err := o.RunLLM(gctx, organizationID, documentID, revID, "", force, userID)
			resultsOut[i] = r
			errsOut[i] = err
			return nil
		})
	}
	_ = g.Wait()

	return resultsOut, errors.Join(errsOut...)
}

func (o *Orchestrator) call(ctx context.Context, provider *models.LLMProvider, model, token, userPrompt string, schemaFormat *models.JSONSchemaResponseFormat) (CallResult, error) {
	req := CallRequest{
		Provider:     provider,
		Model:        model,
		Token:        token,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		SchemaFormat: schemaFormat,
	}
	cb := o.breakerFor(provider.Name, model)

	var result CallResult
	operation := func() error {
		v, err := cb.Execute(func() (interface{}, error) {
			return o.caller.Call(ctx, req)
		})
		if err != nil {
			if errors.Is(err, apperr.ErrProviderFatal) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = v.(CallResult)
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxCallAttempts)
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return CallResult{}, err
	}
	return result, nil
}

// breakerFor returns the circuit breaker for a provider+model pair,
// creating it on first use (spec.md §4.G: "each provider+model pair is
// wrapped in a circuit breaker").
func (o *Orchestrator) breakerFor(providerName, model string) *gobreaker.CircuitBreaker {
	key := providerName + ":" + model
	o.mu.Lock()
	defer o.mu.Unlock()
	if cb, ok := o.breakers[key]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: key,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	o.breakers[key] = cb
	return cb
}

func chooseModel(explicit string, rev *models.PromptRevision) string {
	if explicit != "" {
		return explicit
	}
	if rev != nil && rev.Model != "" {
		return rev.Model
	}
	return DefaultModel
}

func promptIDOrDefault(rev *models.PromptRevision) string {
	if rev == nil {
		return DefaultPromptID
	}
	return rev.PromptID
}

func promptVersionOrZero(rev *models.PromptRevision) int {
	if rev == nil {
		return 0
	}
	return rev.PromptVersion
}
