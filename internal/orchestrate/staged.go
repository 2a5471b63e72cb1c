package orchestrate

import (
	"context"

	"github.com/docling-graph/core/internal/chunking"
	"github.com/docling-graph/core/internal/extract"
	"github.com/docling-graph/core/internal/ir"
)

// RunStaged implements the Staged Orchestrator (spec §4.10, C10): a
// discovery pass and an identifier-fill pass seed the registry with a
// skeleton of known paths and identities, then pass 3 drives the same
// C5/C6/C7 pipeline as the delta contract via Run.
func (o *Orchestrator) RunStaged(ctx context.Context, chunks []chunking.Chunk, fullMarkdown string) Result {
	o.emit("staged", "discovery_start", nil)

	discovered, err := extract.Discover(ctx, o.Completer, o.Catalog, fullMarkdown)
	if err != nil {
		o.emit("staged", "discovery_failed", map[string]any{"error": err.Error()})
		discovered = map[string]int{}
	}

	var orderedPaths []string
	for _, p := range o.Catalog.Paths {
		if _, ok := discovered[p]; ok {
			orderedPaths = append(orderedPaths, p)
		}
	}
	o.emit("staged", "discovery_done", map[string]any{"paths": orderedPaths})

	instances, err := extract.FillIdentifiers(ctx, o.Completer, o.Catalog, fullMarkdown, orderedPaths, o.Config.StagedNodesFillCap)
	if err != nil {
		o.emit("staged", "identifier_fill_failed", map[string]any{"error": err.Error()})
		instances = map[string][]map[string]string{}
	}

	var rawNodes []ir.RawNode
	for _, path := range orderedPaths {
		for _, ids := range instances[path] {
			rawNodes = append(rawNodes, ir.RawNode{Path: path, IDs: ids, Properties: map[string]any{}})
		}
	}
	if len(rawNodes) > 0 {
		normalized, stats, nerr := o.norm.Normalize(ir.BatchIR{BatchID: "staged-discovery", Nodes: rawNodes})
		o.normStats.Add(stats)
		o.totalParentResolutions += stats.ParentResolved + stats.ParentInferred + stats.ParentSynthesized
		if nerr == nil {
			o.merger.Merge(normalized)
		}
	}
	o.emit("staged", "identifier_fill_done", map[string]any{"instances": len(rawNodes)})

	return o.Run(ctx, chunks, fullMarkdown)
}
