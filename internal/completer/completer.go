// Package completer implements the JsonCompleter abstraction (spec §6
// "Consumed") and its concrete backends. The core treats JsonCompleter as
// an external collaborator; this package provides the production
// implementations the Orchestrator wires in by config.Completer.Provider.
package completer

import (
	"context"
	"time"
)

// Prompt is the two-part prompt the extractor renders for every call
// (spec §4.4 "Render a system prompt" / "Render a user prompt").
type Prompt struct {
	System string
	User   string
}

// Params tunes one completion call.
type Params struct {
	Temperature float64
	MaxTokens   int
	Deadline    time.Duration
}

// JsonSchema is the IR envelope schema passed to structured-output-aware
// backends (spec §4.4 "json_schema is the IR envelope, not the template
// schema"). It is a plain JSON Schema document.
type JsonSchema map[string]any

// Result is the raw JSON text returned by a completion call, plus the
// token usage the rate limiter needs to account for.
type Result struct {
	JSON         string
	PromptTokens int
	OutputTokens int
}

// JsonCompleter is the external text-completion collaborator the core
// depends on (spec §6). Implementations must be safe for concurrent use:
// the Orchestrator dispatches independent batches to up to
// config.BatchWorkers goroutines (spec §5).
type JsonCompleter interface {
	Complete(ctx context.Context, prompt Prompt, schema JsonSchema, params Params) (Result, error)
	ContextLimit() int
}
