// Package project implements the Template Projector (spec §4.7, C7):
// folding a flat MergedGraph into a nested TemplateTree that mirrors the
// schema, with same-path duplication across parents, parent salvage, and
// positional refusal to `__orphans__`.
package project

import (
	"github.com/docling-graph/core/internal/catalog"
	"github.com/docling-graph/core/internal/graph"
)

const orphansKey = "__orphans__"

// Stats accumulates projection outcomes for the Quality Gate (spec §4.8).
type Stats struct {
	ParentLookupMiss      int
	MissingRequiredFields int
}

// Projector folds a MergedGraph into a TemplateTree against cat.
type Projector struct {
	Graph   *graph.MergedGraph
	Catalog *catalog.PathCatalog
}

// New constructs a Projector.
func New(g *graph.MergedGraph, cat *catalog.PathCatalog) *Projector {
	return &Projector{Graph: g, Catalog: cat}
}

// containerRef lets an orphan be salvaged into a slot that was already
// built for a uniquely-resolved parent, after the fact. isList
// distinguishes an append from a single-slot fill.
type containerRef struct {
	parent map[string]any
	key    string
	isList bool
}

// attach places node into ref, appending for list slots and filling a
// singular slot only if it is still unset (a real match found during the
// main traversal always wins over a salvaged one).
func (ref containerRef) attach(node map[string]any) {
	if ref.isList {
		ref.parent[ref.key] = append(ref.parent[ref.key].([]any), node)
		return
	}
	if ref.parent[ref.key] == nil {
		ref.parent[ref.key] = node
	}
}

type state struct {
	nodesByPath  map[string][]graph.Node
	visited      map[string]bool
	containerFor map[string]containerRef // keyed by parent NodeID + "|" + child path
	stats        Stats
}

// Project walks the schema from the root class, attaching children by
// parent id, and returns the resulting tree plus projection stats.
func (p *Projector) Project() (map[string]any, Stats) {
	st := &state{
		nodesByPath:  map[string][]graph.Node{},
		visited:      map[string]bool{},
		containerFor: map[string]containerRef{},
	}
	for _, n := range p.Graph.Nodes() {
		st.nodesByPath[n.Path] = append(st.nodesByPath[n.Path], n)
	}

	roots := st.nodesByPath[catalog.RootPath]
	var tree map[string]any
	if len(roots) > 0 {
		tree = p.buildNode(roots[0], st)
		// Extra root instances beyond the first are themselves orphans: a
		// TemplateTree has one root by construction (spec §4.7).
		for _, extra := range roots[1:] {
			st.stats.ParentLookupMiss++
			appendOrphan(tree, p.buildNode(extra, st))
		}
	} else {
		tree = map[string]any{}
	}

	p.salvageUnvisited(st, tree)
	return tree, st.stats
}

// buildNode renders node and its schema-declared children into a nested
// map, registering node as visited and recording containers so later
// orphan salvage can attach into the right list.
func (p *Projector) buildNode(node graph.Node, st *state) map[string]any {
	st.visited[node.ID] = true

	out := make(map[string]any, len(node.Properties))
	for k, v := range node.Properties {
		out[k] = v
	}
	for field := range p.Catalog.RequiredFields(node.Path) {
		if _, ok := out[field]; !ok {
			out[field] = nil
			st.stats.MissingRequiredFields++
		}
	}

	for _, childPath := range p.Catalog.Paths {
		if p.Catalog.ParentOf(childPath) != node.Path {
			continue
		}
		label := p.Catalog.EdgeLabelByPath(childPath)
		candidates := childrenAtPath(p.Graph.ChildrenOf(node.ID), childPath)

		if p.Catalog.IsListEntity(childPath) {
			list := make([]any, 0, len(candidates))
			out[label] = list
			st.containerFor[node.ID+"|"+childPath] = containerRef{parent: out, key: label, isList: true}
			for _, child := range candidates {
				list = append(list, p.buildNode(child, st))
			}
			out[label] = list
			continue
		}

		st.containerFor[node.ID+"|"+childPath] = containerRef{parent: out, key: label, isList: false}
		if len(candidates) > 0 {
			out[label] = p.buildNode(candidates[0], st)
		}
	}

	return out
}

// childrenAtPath filters an already-attached child set down to the ones
// declared at path — a parent can have children at more than one schema
// path, so ChildrenOf alone is not enough to tell them apart.
func childrenAtPath(nodes []graph.Node, path string) []graph.Node {
	var out []graph.Node
	for _, n := range nodes {
		if n.Path == path {
			out = append(out, n)
		}
	}
	return out
}

// salvageUnvisited handles every graph node the main traversal never
// reached: nodes whose declared parent could not be resolved to exactly
// one candidate are orphans (spec §4.7 "positional refusal"); nodes whose
// parent path carries exactly one instance are salvaged into that
// instance's already-built child list.
func (p *Projector) salvageUnvisited(st *state, tree map[string]any) {
	for _, nodes := range st.nodesByPath {
		for _, n := range nodes {
			if st.visited[n.ID] || n.Path == catalog.RootPath {
				continue
			}

			parentPath := p.Catalog.ParentOf(n.Path)
			candidates := st.nodesByPath[parentPath]

			if n.ParentID != "" {
				if ref, ok := st.containerFor[n.ParentID+"|"+n.Path]; ok {
					ref.attach(p.buildNode(n, st))
					continue
				}
			}

			if len(candidates) == 1 {
				parent := candidates[0]
				if ref, ok := st.containerFor[parent.ID+"|"+n.Path]; ok {
					ref.attach(p.buildNode(n, st))
					continue
				}
			}

			st.stats.ParentLookupMiss++
			appendOrphan(tree, p.buildNode(n, st))
		}
	}
}

func appendOrphan(tree map[string]any, node map[string]any) {
	existing, _ := tree[orphansKey].([]any)
	tree[orphansKey] = append(existing, node)
}
