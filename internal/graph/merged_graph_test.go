package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergedGraph_UpsertAttachesUnderParentID(t *testing.T) {
	g := NewMergedGraph()
	g.Upsert(Node{ID: "p1"})
	g.Upsert(Node{ID: "c1", ParentID: "p1"})

	children := g.ChildrenOf("p1")
	require.Len(t, children, 1)
	assert.Equal(t, "c1", children[0].ID)
}

func TestMergedGraph_ReUpsertUnderDifferentParentAttachesBoth(t *testing.T) {
	g := NewMergedGraph()
	g.Upsert(Node{ID: "p1"})
	g.Upsert(Node{ID: "p2"})
	g.Upsert(Node{ID: "shared", ParentID: "p1", Properties: map[string]any{"sku": "X"}})
	g.Upsert(Node{ID: "shared", ParentID: "p2", Properties: map[string]any{"sku": "X"}})

	assert.ElementsMatch(t, []string{"shared"}, idsOf(g.ChildrenOf("p1")))
	assert.ElementsMatch(t, []string{"shared"}, idsOf(g.ChildrenOf("p2")))
	// the arena holds one copy of the shared node (three nodes in all):
	// attaching a second parent does not duplicate the node itself, only
	// its placement.
	assert.Len(t, g.Nodes(), 3)
}

func TestMergedGraph_AttachIsIdempotent(t *testing.T) {
	g := NewMergedGraph()
	g.Upsert(Node{ID: "p1"})
	g.Upsert(Node{ID: "c1"})

	assert.True(t, g.Attach("p1", "c1"))
	assert.False(t, g.Attach("p1", "c1"))
	assert.Len(t, g.ChildrenOf("p1"), 1)
}

func idsOf(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}
