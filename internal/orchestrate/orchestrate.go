// Package orchestrate implements the Orchestrator (spec §4.9, C9): the
// state machine driving chunking, batching, extraction, normalization,
// merging, projection, and gating, including the gleaning loop and the
// delta->direct fallback.
package orchestrate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/docling-graph/core/internal/catalog"
	"github.com/docling-graph/core/internal/chunking"
	"github.com/docling-graph/core/internal/completer"
	"github.com/docling-graph/core/internal/config"
	"github.com/docling-graph/core/internal/extract"
	"github.com/docling-graph/core/internal/graph"
	"github.com/docling-graph/core/internal/ir"
	"github.com/docling-graph/core/internal/merge"
	"github.com/docling-graph/core/internal/normalize"
	"github.com/docling-graph/core/internal/project"
	"github.com/docling-graph/core/internal/quality"
	"github.com/docling-graph/core/internal/registry"
	"github.com/docling-graph/core/internal/trace"
)

// Stage names the states of the C9 state machine (spec §4.9).
type Stage string

const (
	StageInit        Stage = "init"
	StageChunking    Stage = "chunking"
	StageBatching    Stage = "batching"
	StageExtracting  Stage = "extracting"
	StageNormalizing Stage = "normalizing"
	StageMerging     Stage = "merging"
	StageProjecting  Stage = "projecting"
	StageGating      Stage = "gating"
	StageGleaning    Stage = "gleaning"
	StageFallback    Stage = "fallback"
	StageDone        Stage = "done"
)

// Result is the best-effort outcome of one Run: the Orchestrator never
// raises out of its public call (spec §4.9 "never raise out of the
// orchestrator's public call").
type Result struct {
	Graph            *graph.MergedGraph
	Tree             map[string]any
	Quality          quality.Report
	GleaningPasses   int
	FellBackToDirect bool
	Stage            Stage
	Err              error
}

// Orchestrator wires C1-C8 together over a shared registry and graph for
// the lifetime of one extraction.
type Orchestrator struct {
	Config    *config.Config
	Catalog   *catalog.PathCatalog
	Completer completer.JsonCompleter
	Trace     *trace.Ring

	registry *registry.Registry
	graph    *graph.MergedGraph
	norm     *normalize.Normalizer
	merger   *merge.Merger

	// accumulated across the whole run, for the final quality gate.
	normStats              ir.NormalizerStats
	totalNodesSeen         int
	totalParentResolutions int
	lastProjectionMiss     int
}

// New constructs an Orchestrator. Each call to New starts a fresh
// registry and graph; reuse the same Orchestrator only across batches of
// one extraction (spec §3 "Lifecycle").
func New(cfg *config.Config, cat *catalog.PathCatalog, comp completer.JsonCompleter, tr *trace.Ring) *Orchestrator {
	reg := registry.New()
	g := graph.NewMergedGraph()
	mode := normalize.ModeOff
	switch cfg.DeltaResolversMode {
	case config.ResolversExact:
		mode = normalize.ModeExact
	case config.ResolversFuzzy:
		mode = normalize.ModeFuzzy
	}
	return &Orchestrator{
		Config:    cfg,
		Catalog:   cat,
		Completer: comp,
		Trace:     tr,
		registry:  reg,
		graph:     g,
		norm: normalize.New(cat, reg, normalize.Options{
			StrictUnknownPaths: cfg.DeltaNormalizerValidatePaths,
			ResolversMode:      mode,
		}),
		merger: merge.New(g),
	}
}

// Registry exposes the run's Node ID Registry so a caller can seed it
// from durable storage before Run/RunStaged and persist its bindings
// afterward (spec §9 "Global state").
func (o *Orchestrator) Registry() *registry.Registry {
	return o.registry
}

// Run drives the full delta-contract pipeline over chunks, falling back
// to a single direct-contract call over fullMarkdown when the delta
// contract cannot produce a passing quality gate.
func (o *Orchestrator) Run(ctx context.Context, chunks []chunking.Chunk, fullMarkdown string) Result {
	res := Result{Graph: o.graph, Stage: StageChunking}
	o.emit(StageChunking, "start", nil)

	batches, warnings := chunking.Pack(chunks, o.Config.ChunkMaxTokens, o.Config.MergeThreshold)
	for _, w := range warnings {
		o.emit(StageBatching, "warning", map[string]any{"error": w.Error()})
	}
	o.emit(StageBatching, "done", map[string]any{"batch_count": len(batches)})

	e := extract.New(o.Completer, o.Catalog, o.Config.StagedPassRetries, o.Config.StructuredOutput, o.Config.StructuredSparseCheck, o.Config.Completer.Deadline)

	batchIRs, err := o.extractAll(ctx, e, batches)
	if err != nil {
		res.Stage = StageExtracting
		res.Err = err
		res.Quality = o.gate()
		res.Tree = o.project()
		return res
	}

	o.normalizeAndMerge(batchIRs)
	report := o.gateAndProject(&res)

	passes := 0
	for !report.OK && o.Config.GleaningEnabled && passes < o.Config.GleaningMaxPasses {
		passes++
		o.emit(StageGleaning, "start", map[string]any{"pass": passes, "reasons": report.Reasons})
		o.gleanOnce(ctx, e, batches, report)
		report = o.gateAndProject(&res)
	}
	res.GleaningPasses = passes

	if !report.OK {
		o.emit(StageFallback, "delta_failed_then_direct_fallback", map[string]any{"reasons": report.Reasons})
		o.runDirectFallback(ctx, e, fullMarkdown)
		res.FellBackToDirect = true
		report = o.gateAndProject(&res)
	}

	res.Stage = StageDone
	res.Quality = report
	return res
}

// normalizeAndMerge runs C5+C6 over every batch in order, accumulating
// stats for the eventual quality gate.
func (o *Orchestrator) normalizeAndMerge(batchIRs []ir.BatchIR) {
	o.emit(StageNormalizing, "start", map[string]any{"batch_count": len(batchIRs)})
	for _, b := range batchIRs {
		o.totalNodesSeen += len(b.Nodes)
		normalized, stats, nerr := o.norm.Normalize(b)
		o.normStats.Add(stats)
		o.totalParentResolutions += stats.ParentResolved + stats.ParentInferred + stats.ParentSynthesized
		if nerr != nil {
			o.emit(StageNormalizing, "batch_failed", map[string]any{"batch_id": b.BatchID, "error": nerr.Error()})
			continue
		}
		o.emit(StageMerging, "batch", map[string]any{"batch_id": b.BatchID})
		o.merger.Merge(normalized)
	}
}

// gateAndProject projects the current graph and evaluates the quality
// gate against it, storing the tree on res.
func (o *Orchestrator) gateAndProject(res *Result) quality.Report {
	res.Tree = o.project()
	report := o.gate()
	res.Quality = report
	return report
}

func (o *Orchestrator) project() map[string]any {
	o.emit(StageProjecting, "start", nil)
	proj := project.New(o.graph, o.Catalog)
	tree, stats := proj.Project()
	o.lastProjectionMiss = stats.ParentLookupMiss
	o.totalParentResolutions += stats.ParentLookupMiss
	return tree
}

func (o *Orchestrator) gate() quality.Report {
	o.emit(StageGating, "start", nil)
	report := quality.Evaluate(quality.Input{
		Graph:                  o.graph,
		Catalog:                o.Catalog,
		NormalizerStats:        o.normStats,
		ParentLookupMiss:       o.lastProjectionMiss,
		MinInstances:           o.Config.DeltaQualityMinInstances,
		TotalNodesSeen:         o.totalNodesSeen,
		TotalParentResolutions: o.totalParentResolutions,
	})
	o.emit(StageGating, "done", map[string]any{"ok": report.OK, "reasons": report.Reasons})
	return report
}

// gleanOnce re-extracts every original batch with a targeted sub-prompt
// naming under-filled paths and already-known identities, merging the
// results into the existing graph. C6 is idempotent by construction, so
// re-merging known nodes is harmless (spec §4.9).
func (o *Orchestrator) gleanOnce(ctx context.Context, e *extract.Extractor, batches []chunking.Batch, report quality.Report) {
	var underfilled []string
	for _, path := range o.Catalog.Paths {
		if report.PerPathCount[path] < o.Config.DeltaQualityMinInstances {
			underfilled = append(underfilled, path)
		}
	}
	known := map[string][]string{}
	for _, b := range o.registry.All() {
		for _, kv := range b.FP.IDs {
			known[b.FP.Path] = append(known[b.FP.Path], kv.Key+"="+kv.Value)
		}
	}

	for _, b := range batches {
		batchIR, err := e.ExtractGleaning(ctx, b, underfilled, known)
		if err != nil {
			o.emit(StageGleaning, "batch_failed", map[string]any{"batch_id": b.BatchID, "error": err.Error()})
			continue
		}
		o.totalNodesSeen += len(batchIR.Nodes)
		normalized, stats, nerr := o.norm.Normalize(batchIR)
		o.normStats.Add(stats)
		o.totalParentResolutions += stats.ParentResolved + stats.ParentInferred + stats.ParentSynthesized
		if nerr != nil {
			continue
		}
		o.merger.Merge(normalized)
	}
}

// runDirectFallback switches to the direct contract for a single call
// over the whole document (spec §4.9, §8 scenario 6), merging its result
// into the same graph.
func (o *Orchestrator) runDirectFallback(ctx context.Context, e *extract.Extractor, fullMarkdown string) {
	batch := chunking.Batch{BatchID: "direct-fallback", CombinedText: fullMarkdown}
	batchIR, err := e.Extract(ctx, batch)
	if err != nil {
		o.emit(StageFallback, "failed", map[string]any{"error": err.Error()})
		return
	}
	o.totalNodesSeen += len(batchIR.Nodes)
	normalized, stats, nerr := o.norm.Normalize(batchIR)
	o.normStats.Add(stats)
	o.totalParentResolutions += stats.ParentResolved + stats.ParentInferred + stats.ParentSynthesized
	if nerr != nil {
		o.emit(StageFallback, "normalize_failed", map[string]any{"error": nerr.Error()})
		return
	}
	o.merger.Merge(normalized)
}

func (o *Orchestrator) extractAll(ctx context.Context, e *extract.Extractor, batches []chunking.Batch) ([]ir.BatchIR, error) {
	o.emit(StageExtracting, "start", map[string]any{"batch_count": len(batches)})
	out := make([]ir.BatchIR, len(batches))

	workers := o.Config.BatchWorkers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, b := range batches {
		i, b := i, b
		g.Go(func() error {
			result, err := e.Extract(gctx, b)
			if err != nil {
				return err
			}
			out[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Orchestrator) emit(stage Stage, event string, payload map[string]any) {
	if o.Trace == nil {
		return
	}
	o.Trace.Emit(string(stage), event, payload)
}
