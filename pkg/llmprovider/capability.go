package llmprovider

import "github.com/analytiqhub/docrouter/pkg/models"

// DefaultCanonical is the seed list both docrouter binaries boot the LLM
// Provider Registry and Capabilities from (spec.md §4.E "seed from a known
// provider list").
var DefaultCanonical = []Canonical{
	{Name: "openai", DisplayName: "OpenAI", LiteLLMProvider: "openai", DefaultModel: "gpt-4o-mini", EnvTokenVar: "OPENAI_API_KEY", SupportsStructuredOutput: true},
	{Name: "anthropic", DisplayName: "Anthropic", LiteLLMProvider: "anthropic", DefaultModel: "claude-3-5-sonnet-latest", EnvTokenVar: "ANTHROPIC_API_KEY", SupportsStructuredOutput: false},
	{Name: "gemini", DisplayName: "Google Gemini", LiteLLMProvider: "gemini", DefaultModel: "gemini-1.5-pro", EnvTokenVar: "GEMINI_API_KEY", SupportsStructuredOutput: true},
	{Name: "bedrock", DisplayName: "AWS Bedrock", LiteLLMProvider: "bedrock", DefaultModel: "anthropic.claude-3-sonnet", EnvTokenVar: "BEDROCK_API_KEY", SupportsStructuredOutput: false},
	{Name: "groq", DisplayName: "Groq", LiteLLMProvider: "groq", DefaultModel: "llama-3.1-70b-versatile", EnvTokenVar: "GROQ_API_KEY", SupportsStructuredOutput: true},
}

// CostTable gives the known per-provider per-model cost/limit data a
// provider needs for HasCostInformation to return true (spec.md §4.E:
// "non-zero input/output token limits and per-token costs").
type ModelCost struct {
	InputTokenLimit  int
	OutputTokenLimit int
	InputCostPerToken  float64
	OutputCostPerToken float64
}

func (c ModelCost) nonZero() bool {
	return c.InputTokenLimit > 0 && c.OutputTokenLimit > 0 &&
		c.InputCostPerToken > 0 && c.OutputCostPerToken > 0
}

// Capabilities answers the three capability checks spec.md §4.E requires
// before a model can be used, given the canonical config (for the chat
// deny-list) and a cost table (for cost/limit data).
type Capabilities struct {
	canonical map[string]Canonical
	costs     map[string]map[string]ModelCost // provider -> model -> cost
}

// NewCapabilities builds a Capabilities checker from the canonical provider
// list and a provider/model cost table.
func NewCapabilities(canonical []Canonical, costs map[string]map[string]ModelCost) *Capabilities {
	byName := make(map[string]Canonical, len(canonical))
	for _, c := range canonical {
		byName[c.Name] = c
	}
	return &Capabilities{canonical: byName, costs: costs}
}

// IsChatModel reports whether model is a chat-mode model for provider,
// honoring the provider's known-false-positive deny-list.
func (c *Capabilities) IsChatModel(provider *models.LLMProvider, model string) bool {
	if !provider.IsSupportedModel(model) {
		return false
	}
	canon, ok := c.canonical[provider.Name]
	if !ok {
		return true
	}
	for _, denied := range canon.ChatModelDenyList {
		if denied == model {
			return false
		}
	}
	return true
}

// SupportsStructuredOutput reports whether provider's family accepts a
// JSON-schema response_format (spec.md §4.E, §4.G step 7).
func (c *Capabilities) SupportsStructuredOutput(provider *models.LLMProvider) bool {
	canon, ok := c.canonical[provider.Name]
	return ok && canon.SupportsStructuredOutput
}

// HasCostInformation reports whether cost/limit data is available for
// provider+model. Bedrock-family providers price per-request, never via a
// static table (spec.md §4.G Bedrock special case).
func (c *Capabilities) HasCostInformation(provider *models.LLMProvider, model string) bool {
	if provider.LiteLLMProvider == "bedrock" {
		return false
	}
	byModel, ok := c.costs[provider.Name]
	if !ok {
		return false
	}
	cost, ok := byModel[model]
	return ok && cost.nonZero()
}

// IsSupportedModel reports whether model is enabled for provider AND has
// cost information (spec.md §4.E: "on the maintained supported list AND has
// cost information").
func (c *Capabilities) IsSupportedModel(provider *models.LLMProvider, model string) bool {
	return provider.IsSupportedModel(model) && c.HasCostInformation(provider, model)
}
