// Package credit implements the Credit Gate (spec.md §4.H): two pluggable
// hook functions checked/invoked around billable LLM work, grounded on the
// teacher's module-level hook-assignment pattern (spec.md §9 "module-level
// hook assignment for credit check/record" — generalized here to a small
// interface set on a struct rather than package globals, so the gate can be
// constructed once at boot and threaded through, same as spec.md §9's
// "explicit context value" re-architecting note for the client singleton).
package credit

import "context"

// CheckFunc reports whether organizationID has at least spus of credit
// available (spec.md §4.H check hook).
type CheckFunc func(ctx context.Context, organizationID string, spus int) (bool, error)

// Usage carries the optional detail recorded alongside a completed billable
// call (spec.md §4.H record hook).
type Usage struct {
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Cost             float64
}

// RecordFunc records spus of usage against organizationID after a successful
// call (spec.md §4.H record hook).
type RecordFunc func(ctx context.Context, organizationID string, spus int, usage Usage) error

// llmMultiplier is applied at the record site for LLM operations (spec.md
// §4.H: "LLM operations apply a 10x multiplier at the record site").
const llmMultiplier = 10

// Gate is the pluggable SPU credit gate. Both hooks may be left nil: the
// zero-value Gate allows every check and records nothing (spec.md §4.H
// "default allows all and records nothing").
type Gate struct {
	check  CheckFunc
	record RecordFunc
}

// New builds a Gate with the given hooks. Either may be nil.
func New(check CheckFunc, record RecordFunc) *Gate {
	return &Gate{check: check, record: record}
}

// Check invokes the check hook, defaulting to true when unset.
func (g *Gate) Check(ctx context.Context, organizationID string, spus int) (bool, error) {
	if g.check == nil {
		return true, nil
	}
	return g.check(ctx, organizationID, spus)
}

// RecordLLM records spus of LLM usage, applying the 10x record-site
// multiplier (spec.md §4.H). A nil record hook is a no-op.
func (g *Gate) RecordLLM(ctx context.Context, organizationID string, spus int, usage Usage) error {
	if g.record == nil {
		return nil
	}
	return g.record(ctx, organizationID, spus*llmMultiplier, usage)
}

// RecordMonitoring records spus of monitoring usage at 1x (spec.md §4.H).
func (g *Gate) RecordMonitoring(ctx context.Context, organizationID string, spus int, usage Usage) error {
	if g.record == nil {
		return nil
	}
	return g.record(ctx, organizationID, spus, usage)
}

// SPUCost computes spec.md §4.G step 4's "spu_cost(model) x pages".
func SPUCost(perModel map[string]int, model string, pages int) int {
	cost, ok := perModel[model]
	if !ok {
		cost = 1
	}
	if pages < 1 {
		pages = 1
	}
	return cost * pages
}
