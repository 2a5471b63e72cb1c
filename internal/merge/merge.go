// Package merge implements the Graph Merger (spec §4.6, C6): folding a
// stream of NormalizedBatchIR into one MergedGraph under a deterministic
// property-conflict policy, grounded on the original extractor's
// deep_merge_dicts/merge_lists/merge_dict_lists.
package merge

import (
	"reflect"

	"github.com/docling-graph/core/internal/graph"
	"github.com/docling-graph/core/internal/ir"
)

// Stats accumulates merge-pass outcomes for the Quality Gate and trace log.
type Stats struct {
	MergedNodes       int
	NodesCreated      int
	PropertyConflicts int
	EdgesDeduplicated int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.MergedNodes += o.MergedNodes
	s.NodesCreated += o.NodesCreated
	s.PropertyConflicts += o.PropertyConflicts
	s.EdgesDeduplicated += o.EdgesDeduplicated
}

// Merger folds NormalizedBatchIR values into a shared MergedGraph.
type Merger struct {
	Graph *graph.MergedGraph
	// VolatileOverride lets a later batch's scalar overwrite an earlier
	// non-empty scalar instead of first-non-empty-wins (spec §4.6).
	VolatileOverride bool
}

// New constructs a Merger over g.
func New(g *graph.MergedGraph) *Merger {
	return &Merger{Graph: g}
}

// Merge applies one normalized batch to the graph, returning per-batch
// stats. Call sequentially per batch in batch-id order; the merger itself
// is not goroutine-safe (the orchestrator serializes calls through C6).
func (m *Merger) Merge(batch ir.NormalizedBatchIR) Stats {
	var stats Stats

	for _, n := range batch.Nodes {
		incoming := graph.Node{
			ID: n.NodeID, Path: n.Path, ClassName: n.ClassName,
			IDs: n.IDs, Properties: n.Properties, ParentID: n.ParentID,
		}

		existing, found := m.Graph.Upsert(incoming)
		if !found {
			stats.NodesCreated++
			continue
		}

		merged, conflicts := mergeProperties(existing.Properties, incoming.Properties, m.VolatileOverride)
		existing.Properties = merged
		if existing.ParentID == "" && incoming.ParentID != "" {
			existing.ParentID = incoming.ParentID
		}
		m.Graph.Replace(existing)
		stats.MergedNodes++
		stats.PropertyConflicts += conflicts
	}

	for _, rel := range batch.Relationships {
		added := m.Graph.AddEdge(graph.Edge{Source: rel.Source, Target: rel.Target, Label: rel.Label})
		if !added {
			stats.EdgesDeduplicated++
		}
	}

	return stats
}

// mergeProperties recursively merges source into a copy of target.
// Scalars: first-non-empty-wins, unless volatileOverride lets source win
// when both are non-empty. Lists: order-preserving set union. Nested
// maps: recursive merge. A conflict is counted whenever two non-empty
// scalars or incompatible types collide at the same key.
func mergeProperties(target, source map[string]any, volatileOverride bool) (map[string]any, int) {
	out := make(map[string]any, len(target))
	for k, v := range target {
		out[k] = v
	}

	conflicts := 0
	for key, sv := range source {
		if isEmpty(sv) {
			continue
		}

		tv, exists := out[key]
		if !exists || isEmpty(tv) {
			out[key] = sv
			continue
		}

		switch tvt := tv.(type) {
		case []any:
			if svl, ok := sv.([]any); ok {
				out[key] = mergeLists(tvt, svl)
				continue
			}
			conflicts++
		case map[string]any:
			if svm, ok := sv.(map[string]any); ok {
				nested, nc := mergeProperties(tvt, svm, volatileOverride)
				out[key] = nested
				conflicts += nc
				continue
			}
			conflicts++
		default:
			if !reflect.DeepEqual(tv, sv) {
				conflicts++
				if volatileOverride {
					out[key] = sv
				}
			}
		}
	}
	return out, conflicts
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// mergeLists unions a and b preserving a's order, then appending novel
// items from b, deep-equality deduped (spec §4.6 "list properties: union
// with order preservation + dedup").
func mergeLists(a, b []any) []any {
	out := make([]any, len(a))
	copy(out, a)
	for _, item := range b {
		if !containsDeep(out, item) {
			out = append(out, item)
		}
	}
	return out
}

func containsDeep(list []any, item any) bool {
	for _, existing := range list {
		if reflect.DeepEqual(existing, item) {
			return true
		}
	}
	return false
}
