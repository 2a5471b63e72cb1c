package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docling-graph/core/internal/catalog"
	"github.com/docling-graph/core/internal/graph"
	"github.com/docling-graph/core/internal/ir"
)

func testCatalog(t *testing.T) *catalog.PathCatalog {
	t.Helper()
	s := &catalog.Schema{
		RootClass: "Invoice",
		Classes: map[string]catalog.ClassDef{
			"Invoice": {Name: "Invoice", Edges: []catalog.EdgeField{
				{Label: "line_items", TargetClass: "LineItem", Cardinality: catalog.CardinalityMany},
			}},
			"LineItem": {Name: "LineItem"},
		},
	}
	cat, err := catalog.Compile(s)
	require.NoError(t, err)
	return cat
}

func TestEvaluate_PassesWithRootAndEnoughInstances(t *testing.T) {
	cat := testCatalog(t)
	g := graph.NewMergedGraph()
	g.Upsert(graph.Node{ID: "inv1", Path: catalog.RootPath})
	g.Upsert(graph.Node{ID: "li1", Path: "line_items[]", ParentID: "inv1"})

	report := Evaluate(Input{Graph: g, Catalog: cat, MinInstances: 1})

	assert.True(t, report.OK)
	assert.True(t, report.HasRootInstance)
	assert.True(t, report.MinInstancesOK)
}

func TestEvaluate_FailsWithoutRootInstance(t *testing.T) {
	cat := testCatalog(t)
	g := graph.NewMergedGraph()

	report := Evaluate(Input{Graph: g, Catalog: cat, MinInstances: 0})

	assert.False(t, report.OK)
	assert.False(t, report.HasRootInstance)
	assert.NotEmpty(t, report.Reasons)
}

func TestEvaluate_FailsBelowMinInstances(t *testing.T) {
	cat := testCatalog(t)
	g := graph.NewMergedGraph()
	g.Upsert(graph.Node{ID: "inv1", Path: catalog.RootPath})

	report := Evaluate(Input{Graph: g, Catalog: cat, MinInstances: 1})

	assert.False(t, report.OK)
	assert.False(t, report.MinInstancesOK)
}

func TestEvaluate_RatiosComputedFromDenominators(t *testing.T) {
	cat := testCatalog(t)
	g := graph.NewMergedGraph()
	g.Upsert(graph.Node{ID: "inv1", Path: catalog.RootPath})

	report := Evaluate(Input{
		Graph:                   g,
		Catalog:                 cat,
		MinInstances:            0,
		NormalizerStats:         ir.NormalizerStats{UnknownPathDropped: 2},
		TotalNodesSeen:          10,
		ParentLookupMiss:        1,
		TotalParentResolutions:  4,
	})

	assert.InDelta(t, 0.2, report.UnknownPathDroppedRatio, 1e-9)
	assert.InDelta(t, 0.25, report.ParentLookupMissRatio, 1e-9)
}
