package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/analytiqhub/docrouter/pkg/apperr"
	"github.com/analytiqhub/docrouter/pkg/models"
)

// CallRequest carries everything a Caller needs for one provider round trip.
type CallRequest struct {
	Provider     *models.LLMProvider
	Model        string
	Token        string
	SystemPrompt string
	UserPrompt   string
	SchemaFormat *models.JSONSchemaResponseFormat
}

// CallResult is one provider response, with token usage when the provider
// reports it (spec.md §4.G step 10 record hook, §4.E cost capability).
type CallResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Caller dispatches one LLM call for a resolved provider+model pair.
type Caller interface {
	Call(ctx context.Context, req CallRequest) (CallResult, error)
}

// LangchainCaller dispatches through tmc/langchaingo's llms.Model interface,
// which already abstracts OpenAI/Anthropic/Vertex/Ollama-shaped vendors
// (spec.md §4.G: "provider calls go through langchaingo's llms.Model
// interface").
type LangchainCaller struct{}

func (LangchainCaller) Call(ctx context.Context, req CallRequest) (CallResult, error) {
	model, err := buildLangchainModel(req)
	if err != nil {
		return CallResult{}, err
	}

	msgs := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, req.UserPrompt),
	}

	opts := []llms.CallOption{llms.WithModel(req.Model)}
	if req.SchemaFormat != nil {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := model.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		return CallResult{}, classifyProviderError(err)
	}
	if len(resp.Choices) == 0 {
		return CallResult{}, fmt.Errorf("%w: empty provider response", apperr.ErrProviderFatal)
	}

	choice := resp.Choices[0]
	result := CallResult{Text: choice.Content}
	if info := choice.GenerationInfo; info != nil {
		result.PromptTokens, _ = info["PromptTokens"].(int)
		result.CompletionTokens, _ = info["CompletionTokens"].(int)
		result.TotalTokens, _ = info["TotalTokens"].(int)
		if result.TotalTokens == 0 {
			result.TotalTokens = result.PromptTokens + result.CompletionTokens
		}
	}
	return result, nil
}

func buildLangchainModel(req CallRequest) (llms.Model, error) {
	switch req.Provider.LiteLLMProvider {
	case "openai":
		return openai.New(openai.WithToken(req.Token), openai.WithModel(req.Model))
	case "anthropic":
		return anthropic.New(anthropic.WithToken(req.Token), anthropic.WithModel(req.Model))
	default:
		return nil, fmt.Errorf("%w: unsupported provider family %q", apperr.ErrProviderFatal, req.Provider.LiteLLMProvider)
	}
}

// retryableMarkers is the curated class of retryable errors (spec.md §5:
// "HTTP 503, rate-limit, timeout, overloaded, transient signature-expired").
var retryableMarkers = []string{
	"503", "429", "rate limit", "rate_limit", "too many requests",
	"timeout", "overloaded", "signature expired", "throttl",
}

// classifyProviderError maps a raw provider error onto apperr's retryable
// vs. fatal sentinels so the caller's backoff loop knows whether to retry.
func classifyProviderError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", apperr.ErrProviderRetryable, err)
		}
	}
	return fmt.Errorf("%w: %v", apperr.ErrProviderFatal, err)
}
