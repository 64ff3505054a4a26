package models

import "time"

// JSONSchemaResponseFormat mirrors the OpenAI-style structured-output
// envelope a schema revision compiles down to for the LLM call (spec.md
// §4.F, §4.G step 6).
type JSONSchemaResponseFormat struct {
	Type       string         `bson:"type" json:"type"`
	JSONSchema JSONSchemaSpec `bson:"json_schema" json:"json_schema"`
}

// JSONSchemaSpec is the named schema body within a response format.
type JSONSchemaSpec struct {
	Name   string         `bson:"name" json:"name"`
	Schema map[string]any `bson:"schema" json:"schema"`
	Strict bool           `bson:"strict" json:"strict"`
}

// SchemaRevision is one immutable, versioned JSON Schema document (spec.md
// §3 Schema, §4.F two-tier versioning: schema_id identifies the logical
// schema, schema_version+schema_rev_id identify one immutable revision of it).
type SchemaRevision struct {
	SchemaID       string         `bson:"schema_id" json:"schema_id"`
	SchemaRevID    string         `bson:"_id" json:"schema_rev_id"`
	SchemaVersion  int            `bson:"schema_version" json:"schema_version"`
	Name           string         `bson:"name" json:"name"`
	OrganizationID string         `bson:"organization_id" json:"organization_id"`
	Schema         map[string]any `bson:"schema" json:"schema"`
	// PropertyOrder captures the order the top-level "properties" object was
	// declared in the submitted JSON — map[string]any alone loses it. Populated
	// at creation time by the prompt/schema store from the raw request body.
	PropertyOrder []string  `bson:"property_order,omitempty" json:"-"`
	Strict        bool      `bson:"strict" json:"strict"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	CreatedBy     string    `bson:"created_by" json:"created_by"`
}

// ResponseFormat builds the JSONSchemaResponseFormat sent to the provider.
func (s *SchemaRevision) ResponseFormat() JSONSchemaResponseFormat {
	return JSONSchemaResponseFormat{
		Type: "json_schema",
		JSONSchema: JSONSchemaSpec{
			Name:   s.Name,
			Schema: s.Schema,
			Strict: s.Strict,
		},
	}
}

// TopLevelPropertyOrder returns the property names of the schema's top-level
// "properties" object, in the order the schema declares them — the
// reordering target for orchestrator output (spec.md §4.G step 9). Falls
// back to unordered map iteration if PropertyOrder was never populated.
func (s *SchemaRevision) TopLevelPropertyOrder() []string {
	if len(s.PropertyOrder) > 0 {
		return s.PropertyOrder
	}
	props, ok := s.Schema["properties"].(map[string]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	return names
}
