// Package masking redacts secrets from text before it reaches a log line
// or an HTTP error response, grounded on the upstream masking service's
// compiled-regex-pattern shape (pkg/masking/pattern.go's CompiledPattern),
// trimmed from a configurable MCP-server pattern-group registry down to a
// fixed built-in set: this system has no per-tool masking configuration
// surface, but it does have exactly the kind of secret that must never
// echo back to a caller — provider API tokens (spec.md §4.E) and access
// tokens (spec.md §4.N), both of which can appear inside a wrapped
// provider SDK error string.
package masking

import "regexp"

// CompiledPattern holds a pre-compiled regex and its replacement text.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// builtinPatterns is the fixed redaction set. Order matters: more specific
// patterns (bearer headers) run before the generic catch-alls so a bearer
// token isn't also matched (and double-redacted) by the generic one.
var builtinPatterns = []CompiledPattern{
	{
		Name:        "bearer_token",
		Regex:       regexp.MustCompile(`(?i)bearer\s+[a-z0-9._~+/=-]{8,}`),
		Replacement: "Bearer [REDACTED]",
	},
	{
		Name:        "access_token",
		Regex:       regexp.MustCompile(`\b(org|acc)_[a-zA-Z0-9]{16,}\b`),
		Replacement: "$1_[REDACTED]",
	},
	{
		Name:        "aws_access_key_id",
		Regex:       regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
		Replacement: "[REDACTED_AWS_KEY]",
	},
	{
		Name:        "openai_api_key",
		Regex:       regexp.MustCompile(`\bsk-[a-zA-Z0-9]{20,}\b`),
		Replacement: "[REDACTED_API_KEY]",
	},
	{
		Name:        "generic_api_key_param",
		Regex:       regexp.MustCompile(`(?i)(api[_-]?key"?\s*[:=]\s*"?)[a-zA-Z0-9._-]{8,}`),
		Replacement: "${1}[REDACTED]",
	},
}
