package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docling-graph/core/internal/catalog"
	"github.com/docling-graph/core/internal/ir"
	"github.com/docling-graph/core/internal/registry"
)

func invoiceCatalog(t *testing.T) *catalog.PathCatalog {
	t.Helper()
	s := &catalog.Schema{
		RootClass: "Invoice",
		Classes: map[string]catalog.ClassDef{
			"Invoice": {
				Name:           "Invoice",
				IdentityFields: []string{"document_number"},
				Edges:          []catalog.EdgeField{{Label: "line_items", TargetClass: "LineItem", Cardinality: catalog.CardinalityMany}},
			},
			"LineItem": {
				Name:           "LineItem",
				IdentityFields: []string{"line_number"},
				Edges:          []catalog.EdgeField{{Label: "item", TargetClass: "Item", Cardinality: catalog.CardinalityOne}},
			},
			"Item": {
				Name:           "Item",
				IdentityFields: []string{"item_code"},
			},
		},
	}
	cat, err := catalog.Compile(s)
	require.NoError(t, err)
	return cat
}

// Scenario 1 (spec §8): parent salvage across batches.
func TestNormalize_ParentSalvageAcrossBatches(t *testing.T) {
	cat := invoiceCatalog(t)
	reg := registry.New()
	n := New(cat, reg, Options{ResolversMode: ModeOff})

	batchA := ir.BatchIR{Nodes: []ir.RawNode{
		{Path: catalog.RootPath, IDs: map[string]string{"document_number": "INV-42"}, Properties: map[string]any{}},
		{Path: "line_items[]", IDs: map[string]string{"line_number": "1"}, Parent: &ir.Ref{Path: catalog.RootPath, IDs: map[string]string{"document_number": "INV-42"}}, Properties: map[string]any{}},
	}}
	_, _, err := n.Normalize(batchA)
	require.NoError(t, err)

	batchB := ir.BatchIR{Nodes: []ir.RawNode{
		{Path: "line_items[].item", IDs: map[string]string{"item_code": "SKU-1"}, Parent: &ir.Ref{Path: "line_items[]", IDs: map[string]string{}}, Properties: map[string]any{}},
	}}
	normB, statsB, err := n.Normalize(batchB)
	require.NoError(t, err)

	require.Len(t, normB.Nodes, 1)
	assert.Equal(t, "SKU-1", normB.Nodes[0].IDs["item_code"])
	assert.Equal(t, 1, statsB.ParentInferred, "single candidate repair should fire")
}

// Scenario 3 (spec §8): off-by-one id repair.
func TestNormalize_OffByOneRepair_FuzzyMode(t *testing.T) {
	cat := invoiceCatalog(t)
	reg := registry.New()
	n := New(cat, reg, Options{ResolversMode: ModeFuzzy})

	setup := ir.BatchIR{Nodes: []ir.RawNode{
		{Path: catalog.RootPath, IDs: map[string]string{"document_number": "INV-42"}, Properties: map[string]any{}},
		{Path: "line_items[]", IDs: map[string]string{"line_number": "1"}, Parent: &ir.Ref{Path: catalog.RootPath, IDs: map[string]string{"document_number": "INV-42"}}, Properties: map[string]any{}},
	}}
	_, _, err := n.Normalize(setup)
	require.NoError(t, err)

	child := ir.BatchIR{Nodes: []ir.RawNode{
		{Path: "line_items[].item", IDs: map[string]string{"item_code": "SKU-1"}, Parent: &ir.Ref{Path: "line_items[]", IDs: map[string]string{"line_number": "0"}}, Properties: map[string]any{}},
	}}
	_, stats, err := n.Normalize(child)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.ParentSynthesized, "fuzzy mode should repair, not synthesize")
}

func TestNormalize_OffByOneRepair_OffMode_SingleCandidateRepair(t *testing.T) {
	cat := invoiceCatalog(t)
	reg := registry.New()
	n := New(cat, reg, Options{ResolversMode: ModeOff})

	setup := ir.BatchIR{Nodes: []ir.RawNode{
		{Path: catalog.RootPath, IDs: map[string]string{"document_number": "INV-42"}, Properties: map[string]any{}},
		{Path: "line_items[]", IDs: map[string]string{"line_number": "1"}, Parent: &ir.Ref{Path: catalog.RootPath, IDs: map[string]string{"document_number": "INV-42"}}, Properties: map[string]any{}},
	}}
	_, _, err := n.Normalize(setup)
	require.NoError(t, err)

	child := ir.BatchIR{Nodes: []ir.RawNode{
		{Path: "line_items[].item", IDs: map[string]string{"item_code": "SKU-1"}, Parent: &ir.Ref{Path: "line_items[]", IDs: map[string]string{"line_number": "0"}}, Properties: map[string]any{}},
	}}
	normalized, stats, err := n.Normalize(child)
	require.NoError(t, err)

	// single-candidate repair still wins over synthesis when exactly one
	// sibling parent exists and resolvers are off (spec §4.5 step 4.3).
	assert.Equal(t, 1, stats.ParentInferred)
	assert.Equal(t, 0, stats.ParentSynthesized)
	require.Len(t, normalized.Nodes, 1)
}

// Scenario 4 (spec §8): inject identity when properties empty.
func TestNormalize_InjectsIdentityIntoEmptyProperties(t *testing.T) {
	cat := invoiceCatalog(t)
	reg := registry.New()
	n := New(cat, reg, Options{})

	batch := ir.BatchIR{Nodes: []ir.RawNode{
		{Path: catalog.RootPath, IDs: map[string]string{"document_number": "INV-1"}, Properties: map[string]any{}},
		{Path: "line_items[]", IDs: map[string]string{"line_number": "1"}, Parent: &ir.Ref{Path: catalog.RootPath, IDs: map[string]string{"document_number": "INV-1"}}, Properties: map[string]any{}},
	}}
	normalized, stats, err := n.Normalize(batch)
	require.NoError(t, err)

	var lineItem *ir.NormalizedNode
	for i := range normalized.Nodes {
		if normalized.Nodes[i].Path == "line_items[]" {
			lineItem = &normalized.Nodes[i]
		}
	}
	require.NotNil(t, lineItem)
	assert.Equal(t, "1", lineItem.Properties["line_number"])
	assert.Equal(t, 2, stats.IDsInjected) // document_number on the root, line_number on the line item
}

func TestNormalize_UnknownPathDropped(t *testing.T) {
	cat := invoiceCatalog(t)
	reg := registry.New()
	n := New(cat, reg, Options{})

	batch := ir.BatchIR{Nodes: []ir.RawNode{
		{Path: "not_a_real_path", IDs: map[string]string{}, Properties: map[string]any{}},
	}}
	normalized, stats, err := n.Normalize(batch)
	require.NoError(t, err)
	assert.Empty(t, normalized.Nodes)
	assert.Equal(t, 1, stats.UnknownPathDropped)
}

func TestNormalize_StrictModeFailsBatch(t *testing.T) {
	cat := invoiceCatalog(t)
	reg := registry.New()
	n := New(cat, reg, Options{StrictUnknownPaths: true})

	batch := ir.BatchIR{Nodes: []ir.RawNode{
		{Path: "not_a_real_path", IDs: map[string]string{}, Properties: map[string]any{}},
	}}
	_, _, err := n.Normalize(batch)
	assert.Error(t, err)
}

func TestNormalize_Idempotent(t *testing.T) {
	cat := invoiceCatalog(t)
	reg := registry.New()
	n := New(cat, reg, Options{})

	batch := ir.BatchIR{Nodes: []ir.RawNode{
		{Path: catalog.RootPath, IDs: map[string]string{"document_number": "INV-1"}, Properties: map[string]any{}},
	}}
	first, _, err := n.Normalize(batch)
	require.NoError(t, err)
	second, _, err := n.Normalize(batch)
	require.NoError(t, err)

	assert.Equal(t, first.Nodes[0].NodeID, second.Nodes[0].NodeID)
}
