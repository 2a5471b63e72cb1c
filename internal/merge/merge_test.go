package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docling-graph/core/internal/graph"
	"github.com/docling-graph/core/internal/ir"
)

func TestMerge_NewNodeInserted(t *testing.T) {
	g := graph.NewMergedGraph()
	m := New(g)

	stats := m.Merge(ir.NormalizedBatchIR{Nodes: []ir.NormalizedNode{
		{NodeID: "n1", ClassName: "Invoice", Path: "", Properties: map[string]any{"total": "100"}},
	}})

	assert.Equal(t, 1, stats.NodesCreated)
	assert.Equal(t, 0, stats.MergedNodes)
	got, ok := g.Get("n1")
	require.True(t, ok)
	assert.Equal(t, "100", got.Properties["total"])
}

func TestMerge_FirstNonEmptyScalarWins(t *testing.T) {
	g := graph.NewMergedGraph()
	m := New(g)

	m.Merge(ir.NormalizedBatchIR{Nodes: []ir.NormalizedNode{
		{NodeID: "n1", ClassName: "Invoice", Properties: map[string]any{"status": "paid"}},
	}})
	stats := m.Merge(ir.NormalizedBatchIR{Nodes: []ir.NormalizedNode{
		{NodeID: "n1", ClassName: "Invoice", Properties: map[string]any{"status": "pending"}},
	}})

	got, _ := g.Get("n1")
	assert.Equal(t, "paid", got.Properties["status"], "first non-empty scalar should win")
	assert.Equal(t, 1, stats.PropertyConflicts)
}

func TestMerge_VolatileOverrideLetsLaterWin(t *testing.T) {
	g := graph.NewMergedGraph()
	m := New(g)
	m.VolatileOverride = true

	m.Merge(ir.NormalizedBatchIR{Nodes: []ir.NormalizedNode{
		{NodeID: "n1", ClassName: "Invoice", Properties: map[string]any{"status": "paid"}},
	}})
	m.Merge(ir.NormalizedBatchIR{Nodes: []ir.NormalizedNode{
		{NodeID: "n1", ClassName: "Invoice", Properties: map[string]any{"status": "pending"}},
	}})

	got, _ := g.Get("n1")
	assert.Equal(t, "pending", got.Properties["status"])
}

func TestMerge_ListsUnionPreservingOrderAndDedup(t *testing.T) {
	g := graph.NewMergedGraph()
	m := New(g)

	m.Merge(ir.NormalizedBatchIR{Nodes: []ir.NormalizedNode{
		{NodeID: "n1", ClassName: "Invoice", Properties: map[string]any{"tags": []any{"a", "b"}}},
	}})
	m.Merge(ir.NormalizedBatchIR{Nodes: []ir.NormalizedNode{
		{NodeID: "n1", ClassName: "Invoice", Properties: map[string]any{"tags": []any{"b", "c"}}},
	}})

	got, _ := g.Get("n1")
	assert.Equal(t, []any{"a", "b", "c"}, got.Properties["tags"])
}

func TestMerge_EmptyValuesNeverOverwrite(t *testing.T) {
	g := graph.NewMergedGraph()
	m := New(g)

	m.Merge(ir.NormalizedBatchIR{Nodes: []ir.NormalizedNode{
		{NodeID: "n1", ClassName: "Invoice", Properties: map[string]any{"total": "100"}},
	}})
	m.Merge(ir.NormalizedBatchIR{Nodes: []ir.NormalizedNode{
		{NodeID: "n1", ClassName: "Invoice", Properties: map[string]any{"total": ""}},
	}})

	got, _ := g.Get("n1")
	assert.Equal(t, "100", got.Properties["total"])
}

func TestMerge_NestedMapsMergeRecursively(t *testing.T) {
	g := graph.NewMergedGraph()
	m := New(g)

	m.Merge(ir.NormalizedBatchIR{Nodes: []ir.NormalizedNode{
		{NodeID: "n1", ClassName: "Invoice", Properties: map[string]any{
			"address": map[string]any{"city": "Berlin"},
		}},
	}})
	m.Merge(ir.NormalizedBatchIR{Nodes: []ir.NormalizedNode{
		{NodeID: "n1", ClassName: "Invoice", Properties: map[string]any{
			"address": map[string]any{"zip": "10115"},
		}},
	}})

	got, _ := g.Get("n1")
	addr := got.Properties["address"].(map[string]any)
	assert.Equal(t, "Berlin", addr["city"])
	assert.Equal(t, "10115", addr["zip"])
}

func TestMerge_EdgesDeduplicatedByTriple(t *testing.T) {
	g := graph.NewMergedGraph()
	m := New(g)

	m.Merge(ir.NormalizedBatchIR{Relationships: []ir.NormalizedRelationship{
		{Source: "a", Target: "b", Label: "owns"},
	}})
	stats := m.Merge(ir.NormalizedBatchIR{Relationships: []ir.NormalizedRelationship{
		{Source: "a", Target: "b", Label: "owns"},
		{Source: "a", Target: "b", Label: "references"},
	}})

	assert.Equal(t, 1, stats.EdgesDeduplicated)
	assert.Len(t, g.Edges(), 2)
}

func TestMerge_ParentIDFilledInIfMissing(t *testing.T) {
	g := graph.NewMergedGraph()
	m := New(g)

	m.Merge(ir.NormalizedBatchIR{Nodes: []ir.NormalizedNode{
		{NodeID: "n1", ClassName: "LineItem", Properties: map[string]any{}},
	}})
	m.Merge(ir.NormalizedBatchIR{Nodes: []ir.NormalizedNode{
		{NodeID: "n1", ClassName: "LineItem", ParentID: "invoice-1", Properties: map[string]any{}},
	}})

	got, _ := g.Get("n1")
	assert.Equal(t, "invoice-1", got.ParentID)
}
