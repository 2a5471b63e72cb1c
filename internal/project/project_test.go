package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docling-graph/core/internal/catalog"
	"github.com/docling-graph/core/internal/graph"
)

func invoiceCatalog(t *testing.T) *catalog.PathCatalog {
	t.Helper()
	s := &catalog.Schema{
		RootClass: "Invoice",
		Classes: map[string]catalog.ClassDef{
			"Invoice": {
				Name:     "Invoice",
				Required: []string{"document_number"},
				Edges:    []catalog.EdgeField{{Label: "line_items", TargetClass: "LineItem", Cardinality: catalog.CardinalityMany}},
			},
			"LineItem": {
				Name:  "LineItem",
				Edges: []catalog.EdgeField{{Label: "item", TargetClass: "Item", Cardinality: catalog.CardinalityOne}},
			},
			"Item": {Name: "Item"},
		},
	}
	cat, err := catalog.Compile(s)
	require.NoError(t, err)
	return cat
}

func TestProject_BasicTreeShape(t *testing.T) {
	cat := invoiceCatalog(t)
	g := graph.NewMergedGraph()
	g.Upsert(graph.Node{ID: "inv1", Path: catalog.RootPath, Properties: map[string]any{"document_number": "INV-1"}})
	g.Upsert(graph.Node{ID: "li1", Path: "line_items[]", ParentID: "inv1", Properties: map[string]any{"line_number": "1"}})

	p := New(g, cat)
	tree, stats := p.Project()

	assert.Equal(t, "INV-1", tree["document_number"])
	items, ok := tree["line_items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, 0, stats.ParentLookupMiss)
}

func TestProject_ExtraRootInstanceBecomesOrphan(t *testing.T) {
	cat := invoiceCatalog(t)
	g := graph.NewMergedGraph()
	g.Upsert(graph.Node{ID: "inv1", Path: catalog.RootPath, Properties: map[string]any{"document_number": "INV-1"}})
	g.Upsert(graph.Node{ID: "inv2", Path: catalog.RootPath, Properties: map[string]any{"document_number": "INV-2"}})
	g.Upsert(graph.Node{ID: "li1", Path: "line_items[]", ParentID: "inv1", Properties: map[string]any{}})
	g.Upsert(graph.Node{ID: "li2", Path: "line_items[]", ParentID: "inv2", Properties: map[string]any{}})

	p := New(g, cat)
	tree, _ := p.Project()

	// second root instance is not a sibling in the same tree; it surfaces
	// as an orphan rather than being merged into the first root.
	orphans, ok := tree[orphansKey].([]any)
	require.True(t, ok)
	require.Len(t, orphans, 1)
}

func TestProject_SharedChildDuplicatedUnderBothParents(t *testing.T) {
	cat := invoiceCatalog(t)
	g := graph.NewMergedGraph()
	g.Upsert(graph.Node{ID: "inv1", Path: catalog.RootPath, Properties: map[string]any{"document_number": "INV-1"}})
	g.Upsert(graph.Node{ID: "li1", Path: "line_items[]", ParentID: "inv1", Properties: map[string]any{"line_number": "1"}})
	g.Upsert(graph.Node{ID: "li2", Path: "line_items[]", ParentID: "inv1", Properties: map[string]any{"line_number": "2"}})
	// the same content-addressed Item (one NodeID) is referenced by both
	// line items, as would happen across two batches that each re-emit it
	// under a different parent.
	g.Upsert(graph.Node{ID: "item-shared", Path: "line_items[].item", ParentID: "li1", Properties: map[string]any{"sku": "X"}})
	g.Upsert(graph.Node{ID: "item-shared", Path: "line_items[].item", ParentID: "li2", Properties: map[string]any{"sku": "X"}})

	p := New(g, cat)
	tree, stats := p.Project()

	items := tree["line_items"].([]any)
	require.Len(t, items, 2)

	li1 := items[0].(map[string]any)
	li2 := items[1].(map[string]any)
	item1, ok := li1["item"].(map[string]any)
	require.True(t, ok, "line item 1 should receive the shared item")
	item2, ok := li2["item"].(map[string]any)
	require.True(t, ok, "line item 2 should receive the shared item")

	assert.Equal(t, "X", item1["sku"])
	assert.Equal(t, "X", item2["sku"])

	// duplicated, not shared: mutating one copy must not affect the other.
	item1["sku"] = "MUTATED"
	assert.Equal(t, "X", item2["sku"])

	assert.Equal(t, 0, stats.ParentLookupMiss)
}

func TestProject_PositionalRefusalGoesToOrphans(t *testing.T) {
	cat := invoiceCatalog(t)
	g := graph.NewMergedGraph()
	g.Upsert(graph.Node{ID: "inv1", Path: catalog.RootPath, Properties: map[string]any{}})
	g.Upsert(graph.Node{ID: "li1", Path: "line_items[]", ParentID: "inv1", Properties: map[string]any{}})
	g.Upsert(graph.Node{ID: "li2", Path: "line_items[]", ParentID: "inv1", Properties: map[string]any{}})
	// item with no resolvable parent id and two line-item candidates.
	g.Upsert(graph.Node{ID: "item1", Path: "line_items[].item", ParentID: "", Properties: map[string]any{}})

	p := New(g, cat)
	tree, stats := p.Project()

	assert.GreaterOrEqual(t, stats.ParentLookupMiss, 1)
	orphans, ok := tree[orphansKey].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, orphans)
}

func TestProject_SalvagesIntoSingleCandidateParent(t *testing.T) {
	cat := invoiceCatalog(t)
	g := graph.NewMergedGraph()
	g.Upsert(graph.Node{ID: "inv1", Path: catalog.RootPath, Properties: map[string]any{}})
	g.Upsert(graph.Node{ID: "li1", Path: "line_items[]", ParentID: "inv1", Properties: map[string]any{}})
	g.Upsert(graph.Node{ID: "item1", Path: "line_items[].item", ParentID: "missing-id", Properties: map[string]any{"sku": "X"}})

	p := New(g, cat)
	tree, stats := p.Project()

	items := tree["line_items"].([]any)
	require.Len(t, items, 1)
	li := items[0].(map[string]any)
	item, ok := li["item"].(map[string]any)
	require.True(t, ok, "single line-item candidate should receive the salvaged item")
	assert.Equal(t, "X", item["sku"])
	assert.Equal(t, 0, stats.ParentLookupMiss)
}

func TestProject_MissingRequiredFieldEmittedAsNull(t *testing.T) {
	cat := invoiceCatalog(t)
	g := graph.NewMergedGraph()
	g.Upsert(graph.Node{ID: "inv1", Path: catalog.RootPath, Properties: map[string]any{}})

	p := New(g, cat)
	tree, stats := p.Project()

	val, ok := tree["document_number"]
	require.True(t, ok)
	assert.Nil(t, val)
	assert.Equal(t, 1, stats.MissingRequiredFields)
}
