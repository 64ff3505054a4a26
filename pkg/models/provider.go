package models

import "time"

// LLMProvider is one entry in the provider registry (spec.md §3 LLM
// Provider, §4.E). LiteLLMProvider names the adapter family (e.g. "openai",
// "bedrock", "anthropic") the orchestrator dispatches on.
type LLMProvider struct {
	Name            string    `bson:"_id" json:"name"`
	DisplayName     string    `bson:"display_name" json:"display_name"`
	LiteLLMProvider string    `bson:"litellm_provider" json:"litellm_provider"`
	ModelsAvailable []string  `bson:"models_available" json:"models_available"`
	ModelsEnabled   []string  `bson:"models_enabled" json:"models_enabled"`
	Enabled         bool      `bson:"enabled" json:"enabled"`
	EncryptedToken  string    `bson:"encrypted_token,omitempty" json:"-"`
	HasToken        bool      `bson:"has_token" json:"has_token"`
	TokenCreatedAt  *time.Time `bson:"token_created_at,omitempty" json:"token_created_at,omitempty"`
}

// IsSupportedModel reports whether model is enabled for this provider.
func (p *LLMProvider) IsSupportedModel(model string) bool {
	return p.isSupportedModel(model)
}

func (p *LLMProvider) isSupportedModel(model string) bool {
	if !p.Enabled {
		return false
	}
	for _, m := range p.ModelsEnabled {
		if m == model {
			return true
		}
	}
	return false
}
