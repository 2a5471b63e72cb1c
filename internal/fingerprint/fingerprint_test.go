package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeID_DeterministicAcrossCalls(t *testing.T) {
	fp := New("line_items[]", []string{"line_number"}, map[string]string{"line_number": "1"})

	id1 := NodeID("LineItem", fp)
	id2 := NodeID("LineItem", fp)

	assert.Equal(t, id1, id2)
	assert.True(t, len(id1) > len("LineItem_"))
}

func TestNodeID_DifferentPathsDifferentIDs(t *testing.T) {
	fpA := New("line_items[]", []string{"line_number"}, map[string]string{"line_number": "1"})
	fpB := New("line_items[].item", []string{"line_number"}, map[string]string{"line_number": "1"})

	assert.NotEqual(t, NodeID("LineItem", fpA), NodeID("LineItem", fpB))
}

func TestCanonicalize_TrimPreservesCase(t *testing.T) {
	assert.Equal(t, "INV-42", Canonicalize("  INV-42  "))
}

func TestFingerprint_Empty(t *testing.T) {
	fp := New("line_items[]", []string{"line_number"}, map[string]string{})
	assert.True(t, fp.Empty())

	fp2 := New("line_items[]", []string{"line_number"}, map[string]string{"line_number": "1"})
	assert.False(t, fp2.Empty())
}

func TestNodeID_OrderIndependentFieldMap(t *testing.T) {
	ids := map[string]string{"a": "1", "b": "2"}
	fp1 := New("p", []string{"a", "b"}, ids)
	fp2 := New("p", []string{"a", "b"}, ids)
	assert.Equal(t, NodeID("C", fp1), NodeID("C", fp2))
}
