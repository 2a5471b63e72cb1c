package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docling-graph/core/internal/xerrors"
)

func invoiceSchema() *Schema {
	return &Schema{
		RootClass: "Invoice",
		Classes: map[string]ClassDef{
			"Invoice": {
				Name:           "Invoice",
				IdentityFields: []string{"document_number"},
				Edges: []EdgeField{
					{Label: "line_items", TargetClass: "LineItem", Cardinality: CardinalityMany},
				},
			},
			"LineItem": {
				Name:           "LineItem",
				IdentityFields: []string{"line_number"},
				Edges: []EdgeField{
					{Label: "item", TargetClass: "Item", Cardinality: CardinalityOne},
				},
			},
			"Item": {
				Name:           "Item",
				IdentityFields: []string{"item_code"},
			},
		},
	}
}

func TestCompile_InvoiceSchema(t *testing.T) {
	c, err := Compile(invoiceSchema())
	require.NoError(t, err)

	assert.Equal(t, []string{RootPath, "line_items[]", "line_items[].item"}, c.Paths)
	assert.Equal(t, []string{"document_number"}, c.IDFieldsByPath(RootPath))
	assert.Equal(t, []string{"line_number"}, c.IDFieldsByPath("line_items[]"))
	assert.Equal(t, RootPath, c.ParentOf("line_items[]"))
	assert.Equal(t, "line_items[]", c.ParentOf("line_items[].item"))
	assert.Equal(t, RootPath, c.ParentOf(RootPath))
	assert.True(t, c.IsListEntity("line_items[]"))
	assert.False(t, c.IsListEntity("line_items[].item"))
	assert.Equal(t, "line_items", c.EdgeLabelByPath("line_items[]"))
}

func TestCompile_DeterministicAcrossFieldOrdering(t *testing.T) {
	s1 := invoiceSchema()
	s2 := invoiceSchema()
	// Reorder edges to prove field ordering doesn't affect the catalog.
	notes := EdgeField{Label: "notes", TargetClass: "Item", Cardinality: CardinalityMany}
	inv1 := s1.Classes["Invoice"]
	inv1.Edges = []EdgeField{inv1.Edges[0], notes}
	s1.Classes["Invoice"] = inv1
	inv := s2.Classes["Invoice"]
	inv.Edges = []EdgeField{notes, inv.Edges[0]}
	s2.Classes["Invoice"] = inv

	c1, err := Compile(s1)
	require.NoError(t, err)
	c2, err := Compile(s2)
	require.NoError(t, err)

	assert.Equal(t, c1.Paths, c2.Paths)
}

func TestCompile_RejectsCycle(t *testing.T) {
	s := &Schema{
		RootClass: "A",
		Classes: map[string]ClassDef{
			"A": {Name: "A", Edges: []EdgeField{{Label: "b", TargetClass: "B", Cardinality: CardinalityOne}}},
			"B": {Name: "B", Edges: []EdgeField{{Label: "a", TargetClass: "A", Cardinality: CardinalityOne}}},
		},
	}

	_, err := Compile(s)
	require.Error(t, err)
	xerr, ok := err.(*xerrors.Error)
	require.True(t, ok)
	assert.Equal(t, xerrors.KindSchemaCycle, xerr.Kind)
}

func TestCompile_UndeclaredClass(t *testing.T) {
	s := &Schema{
		RootClass: "Invoice",
		Classes: map[string]ClassDef{
			"Invoice": {Name: "Invoice", Edges: []EdgeField{{Label: "x", TargetClass: "Missing", Cardinality: CardinalityOne}}},
		},
	}

	_, err := Compile(s)
	require.Error(t, err)
	xerr, ok := err.(*xerrors.Error)
	require.True(t, ok)
	assert.Equal(t, xerrors.KindConfiguration, xerr.Kind)
}
