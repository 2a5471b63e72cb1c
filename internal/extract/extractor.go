// Package extract implements the Delta Batch Extractor (spec §4.4, C4):
// for each batch, build a prompt, call a JsonCompleter, and parse its
// response into a raw BatchIR.
package extract

import (
	"context"
	"encoding/json"
	"time"

	"github.com/docling-graph/core/internal/catalog"
	"github.com/docling-graph/core/internal/chunking"
	"github.com/docling-graph/core/internal/completer"
	"github.com/docling-graph/core/internal/ir"
	"github.com/docling-graph/core/internal/logging"
	"github.com/docling-graph/core/internal/xerrors"
)

// retryTemperatures implements the temperature escalation schedule for
// parse-failure retries (spec §4.4 "Retries": "0.0 → 0.2 → 0.4").
var retryTemperatures = []float64{0.0, 0.2, 0.4}

// Extractor renders prompts and drives JsonCompleter calls for one batch
// at a time.
type Extractor struct {
	Completer             completer.JsonCompleter
	Catalog               *catalog.PathCatalog
	MaxRetries            int
	StructuredOutput      bool
	StructuredSparseCheck bool
	Deadline              time.Duration
}

// New constructs an Extractor. maxRetries corresponds to
// config.StagedPassRetries (spec §4.4 "Retries: up to staged_pass_retries").
func New(comp completer.JsonCompleter, cat *catalog.PathCatalog, maxRetries int, structuredOutput, sparseCheck bool, deadline time.Duration) *Extractor {
	return &Extractor{
		Completer:             comp,
		Catalog:               cat,
		MaxRetries:            maxRetries,
		StructuredOutput:      structuredOutput,
		StructuredSparseCheck: sparseCheck,
		Deadline:              deadline,
	}
}

// Extract runs one batch through the completer, retrying on parse
// failure with escalating temperature (spec §4.4).
func (e *Extractor) Extract(ctx context.Context, batch chunking.Batch) (ir.BatchIR, error) {
	log := logging.With("stage", "extract", "batch_id", batch.BatchID)

	system := renderSystemPrompt(e.Catalog)
	user := renderUserPrompt(batch.CombinedText)
	schema := Envelope()

	var lastErr error
	attempts := e.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		temp := retryTemperatures[min(attempt, len(retryTemperatures)-1)]

		result, err := e.Completer.Complete(ctx, completer.Prompt{System: system, User: user}, schema, completer.Params{
			Temperature: temp,
			MaxTokens:   4096,
			Deadline:    e.Deadline,
		})
		if err != nil {
			lastErr = err
			log.Warn("completer call failed, retrying", "attempt", attempt, "error", err)
			continue
		}

		if e.StructuredSparseCheck && isAllNullEnvelope(result.JSON) {
			lastErr = xerrors.SchemaEnforcementFailure("completer returned an all-null envelope")
			log.Warn("sparse envelope rejected, retrying", "attempt", attempt)
			continue
		}

		batchIR, parseErr := parseBatchIR(result.JSON)
		if parseErr != nil {
			lastErr = xerrors.ParseFailure(parseErr)
			log.Warn("parse failure, retrying", "attempt", attempt, "error", parseErr)
			continue
		}

		batchIR.BatchID = batch.BatchID
		return batchIR, nil
	}

	return ir.BatchIR{}, xerrors.ExtractionFailure(lastErr)
}

// ExtractGleaning re-invokes the completer with a targeted sub-prompt
// (spec §4.9 "re-enter Extracting with a targeted sub-prompt enumerating
// under-filled paths and already-known identity values").
func (e *Extractor) ExtractGleaning(ctx context.Context, batch chunking.Batch, underfilledPaths []string, known map[string][]string) (ir.BatchIR, error) {
	system := renderSystemPrompt(e.Catalog)
	user := gleaningPrompt(batch.CombinedText, underfilledPaths, known)
	schema := Envelope()

	result, err := e.Completer.Complete(ctx, completer.Prompt{System: system, User: user}, schema, completer.Params{
		Temperature: 0.2,
		MaxTokens:   4096,
		Deadline:    e.Deadline,
	})
	if err != nil {
		return ir.BatchIR{}, xerrors.ExtractionFailure(err)
	}

	batchIR, parseErr := parseBatchIR(result.JSON)
	if parseErr != nil {
		return ir.BatchIR{}, xerrors.ParseFailure(parseErr)
	}
	batchIR.BatchID = batch.BatchID
	return batchIR, nil
}

func parseBatchIR(rawJSON string) (ir.BatchIR, error) {
	var out ir.BatchIR
	if err := json.Unmarshal([]byte(rawJSON), &out); err != nil {
		return ir.BatchIR{}, err
	}
	return out, nil
}

// isAllNullEnvelope rejects a degenerate completion that structurally
// matches the envelope but carries no actual content (spec §6
// "structured_sparse_check: reject all-null JSON envelopes").
func isAllNullEnvelope(rawJSON string) bool {
	var generic map[string]any
	if err := json.Unmarshal([]byte(rawJSON), &generic); err != nil {
		return false // let the parse-failure path handle invalid JSON
	}
	nodes, ok := generic["nodes"]
	if !ok {
		return true
	}
	list, ok := nodes.([]any)
	return ok && len(list) == 0
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
