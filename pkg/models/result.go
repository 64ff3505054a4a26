package models

import "time"

// LLMResult is one append-only revision of extraction output for a document
// against a specific prompt revision (spec.md §3 LLM Result, §4.L: results
// are never overwritten, only appended — the "newest" revision is the
// current answer).
type LLMResult struct {
	ID             string      `bson:"_id" json:"id"`
	DocumentID     string      `bson:"document_id" json:"document_id"`
	OrganizationID string      `bson:"organization_id" json:"organization_id"`
	PromptID       string      `bson:"prompt_id" json:"prompt_id"`
	PromptRevID    string      `bson:"prompt_rev_id" json:"prompt_rev_id"`
	PromptVersion  int         `bson:"prompt_version" json:"prompt_version"`
	Model          string      `bson:"model" json:"model"`

	LLMResult        *OrderedMap `bson:"llm_result" json:"llm_result"`
	UpdatedLLMResult *OrderedMap `bson:"updated_llm_result,omitempty" json:"updated_llm_result,omitempty"`

	IsEdited   bool `bson:"is_edited" json:"is_edited"`
	IsVerified bool `bson:"is_verified" json:"is_verified"`

	PromptTokens     int `bson:"prompt_tokens,omitempty" json:"prompt_tokens,omitempty"`
	CompletionTokens int `bson:"completion_tokens,omitempty" json:"completion_tokens,omitempty"`
	TotalTokens      int `bson:"total_tokens,omitempty" json:"total_tokens,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	CreatedBy string    `bson:"created_by" json:"created_by"`
}

// Current returns the effective result: the edited copy if present,
// otherwise the original LLM output (spec.md §4.L).
func (r *LLMResult) Current() *OrderedMap {
	if r.UpdatedLLMResult != nil {
		return r.UpdatedLLMResult
	}
	return r.LLMResult
}

// ApplyEdit sets the updated result, enforcing the key-set-preserving
// invariant (spec.md §8: updated_llm_result.keys() == llm_result.keys()).
func (r *LLMResult) ApplyEdit(updated *OrderedMap) bool {
	if !r.LLMResult.SameKeySet(updated) {
		return false
	}
	r.UpdatedLLMResult = updated
	r.IsEdited = true
	return true
}
