package models

import "time"

// PromptRevision is one immutable, versioned prompt document (spec.md §3
// Prompt, §4.F two-tier versioning, mirroring SchemaRevision). A revision
// optionally binds to a schema revision, pinning the structured-output shape
// the orchestrator must request (spec.md §4.G step 6).
type PromptRevision struct {
	PromptID       string   `bson:"prompt_id" json:"prompt_id"`
	PromptRevID    string   `bson:"_id" json:"prompt_rev_id"`
	PromptVersion  int      `bson:"prompt_version" json:"prompt_version"`
	Name           string   `bson:"name" json:"name"`
	OrganizationID string   `bson:"organization_id" json:"organization_id"`
	Content        string   `bson:"content" json:"content"`
	Model          string   `bson:"model" json:"model"`
	TagIDs         []string `bson:"tag_ids,omitempty" json:"tag_ids,omitempty"`

	SchemaID      string `bson:"schema_id,omitempty" json:"schema_id,omitempty"`
	SchemaVersion int    `bson:"schema_version,omitempty" json:"schema_version,omitempty"`
	SchemaRevID   string `bson:"schema_rev_id,omitempty" json:"schema_rev_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	CreatedBy string    `bson:"created_by" json:"created_by"`
}

// HasSchema reports whether the revision pins a structured-output schema.
func (p *PromptRevision) HasSchema() bool {
	return p.SchemaRevID != ""
}

// PromptFilter narrows a prompt-revision lookup (spec.md §4.F: latest
// revision matching a tag set).
type PromptFilter struct {
	OrganizationID string
	PromptID       string
	TagIDs         []string
	LatestOnly     bool
}
