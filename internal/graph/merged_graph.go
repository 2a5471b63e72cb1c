// Package graph defines the MergedGraph arena (spec §3 "MergedGraph", §9
// "Pointer graphs & shared children → arena + index"). Optional durable
// persistence (internal/graphstore) reads Nodes/Edges off a MergedGraph
// directly rather than through an abstract backend interface.
package graph

import "github.com/docling-graph/core/internal/ir"

// Node is one entity instance in the merged graph, addressed by its
// content-derived NodeID (spec §3 "Node").
type Node struct {
	ID         string
	Path       string
	ClassName  string
	IDs        map[string]string
	Properties map[string]any
	ParentID   string // "" for the root
}

// Edge connects two nodes by NodeID and a label (spec §3 "Edge").
type Edge struct {
	Source string
	Target string
	Label  string
}

// MergedGraph stores nodes in a contiguous arena indexed by NodeID; edges
// store endpoint NodeIDs rather than pointers, so merging stays
// allocation-cheap and there is no shared mutable node ownership (spec §9).
type MergedGraph struct {
	// arena holds every node; Index maps NodeID to its position in arena,
	// giving O(1) lookup without exposing pointers to callers.
	arena []Node
	index map[string]int
	edges []Edge
	// edgeSeen dedups edges by (source,target,label) (spec §4.6).
	edgeSeen map[string]bool

	// childrenOf indexes every parent->child attachment, keyed by the
	// parent's NodeID. A single child NodeID can appear under more than
	// one parent (spec §4.7 "a node appearing under two parents ...
	// duplicated, not shared"): Node.ParentID only ever records the first
	// parent seen, this index records all of them.
	childrenOf map[string][]string
	// attachSeen dedups (parentID, childID) pairs so re-merging the same
	// occurrence doesn't grow the list.
	attachSeen map[string]bool
}

// NewMergedGraph returns an empty graph.
func NewMergedGraph() *MergedGraph {
	return &MergedGraph{
		index:      map[string]int{},
		edgeSeen:   map[string]bool{},
		childrenOf: map[string][]string{},
		attachSeen: map[string]bool{},
	}
}

// Get returns the node for id, if present.
func (g *MergedGraph) Get(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.arena[i], true
}

// Has reports whether id is present in the graph.
func (g *MergedGraph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Upsert inserts node if new, or returns its existing arena slot for the
// merger to apply the dedup policy against (spec §4.6). Every call
// attaches node under node.ParentID, even when the node already exists —
// the same content-addressed node recurring under a different parent in
// a later batch must be attached under that parent too, not just its
// first one.
func (g *MergedGraph) Upsert(node Node) (existing Node, found bool) {
	if node.ParentID != "" {
		g.Attach(node.ParentID, node.ID)
	}

	i, ok := g.index[node.ID]
	if !ok {
		g.index[node.ID] = len(g.arena)
		g.arena = append(g.arena, node)
		return Node{}, false
	}
	return g.arena[i], true
}

// Attach records that childID is placed under parentID, in addition to
// (or instead of) whatever Node.ParentID that child carries. Safe to
// call more than once for the same pair; duplicates are dropped.
func (g *MergedGraph) Attach(parentID, childID string) bool {
	key := parentID + "\x00" + childID
	if g.attachSeen[key] {
		return false
	}
	g.attachSeen[key] = true
	g.childrenOf[parentID] = append(g.childrenOf[parentID], childID)
	return true
}

// Replace overwrites the node at id's arena slot — used by the merger
// after computing a merged property map.
func (g *MergedGraph) Replace(node Node) {
	i, ok := g.index[node.ID]
	if !ok {
		g.Upsert(node)
		return
	}
	g.arena[i] = node
}

// AddEdge appends edge if it is not a duplicate of an existing
// (source,target,label) triple (spec §4.6 "Edges: deduplicated").
func (g *MergedGraph) AddEdge(edge Edge) (added bool) {
	key := edge.Source + "\x00" + edge.Target + "\x00" + edge.Label
	if g.edgeSeen[key] {
		return false
	}
	g.edgeSeen[key] = true
	g.edges = append(g.edges, edge)
	return true
}

// Nodes returns every node in insertion order.
func (g *MergedGraph) Nodes() []Node {
	out := make([]Node, len(g.arena))
	copy(out, g.arena)
	return out
}

// Edges returns every deduplicated edge.
func (g *MergedGraph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// ChildrenOf returns every node attached under parentID — every parent it
// was ever attached to, not just the one recorded in its own ParentID
// field (spec §4.7).
func (g *MergedGraph) ChildrenOf(parentID string) []Node {
	ids := g.childrenOf[parentID]
	out := make([]Node, 0, len(ids))
	for _, childID := range ids {
		if n, ok := g.Get(childID); ok {
			out = append(out, n)
		}
	}
	return out
}

// nodeFromNormalized projects a normalized IR node into the graph's Node
// shape, the one conversion point between C5's output and C6's storage.
func nodeFromNormalized(n ir.NormalizedNode) Node {
	return Node{
		ID:         n.NodeID,
		Path:       n.Path,
		ClassName:  n.ClassName,
		IDs:        n.IDs,
		Properties: n.Properties,
		ParentID:   n.ParentID,
	}
}
