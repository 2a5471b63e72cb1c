package catalog

import (
	"sort"
	"strings"

	"github.com/docling-graph/core/internal/xerrors"
)

// PathCatalog is the compiled, immutable-after-construction output of C1:
// every reachable entity position in the schema, named by a canonical
// dotted path (spec §3 "PathCatalog").
type PathCatalog struct {
	// Paths is the ordered set of canonical dotted paths, lexicographically
	// sorted within each level (spec §4.1 "Guarantees").
	Paths []string

	idFieldsByPath    map[string][]string
	parentOf          map[string]string
	classOf           map[string]string
	edgeLabelByPath   map[string]string
	requiredByPath    map[string]map[string]bool
	cardinalityByPath map[string]Cardinality
}

// IDFieldsByPath returns the ordered identity-field names declared for path.
func (c *PathCatalog) IDFieldsByPath(path string) []string {
	return c.idFieldsByPath[path]
}

// ParentOf returns path's parent path. The root path maps to itself.
func (c *PathCatalog) ParentOf(path string) string {
	return c.parentOf[path]
}

// ClassOf returns the schema class name backing path.
func (c *PathCatalog) ClassOf(path string) string {
	return c.classOf[path]
}

// EdgeLabelByPath returns the edge label inherited from the parent's edge
// field that produced path.
func (c *PathCatalog) EdgeLabelByPath(path string) string {
	return c.edgeLabelByPath[path]
}

// IsListEntity reports whether path names a list-cardinality position.
func (c *PathCatalog) IsListEntity(path string) bool {
	return strings.HasSuffix(path, "[]")
}

// HasPath reports whether path is a member of the catalog.
func (c *PathCatalog) HasPath(path string) bool {
	_, ok := c.idFieldsByPath[path]
	return ok
}

// RequiredFields returns the fields declared non-optional at path (used by
// the Template Projector; the Quality Gate does not read it).
func (c *PathCatalog) RequiredFields(path string) map[string]bool {
	return c.requiredByPath[path]
}

// RootPath is the canonical path of the schema's root class: "".
const RootPath = ""

type frame struct {
	class string
	path  string
}

// Compile traverses the schema depth-first from the root class, emitting a
// canonical path for every reachable entity position (spec §4.1).
func Compile(s *Schema) (*PathCatalog, error) {
	c := &PathCatalog{
		idFieldsByPath:    map[string][]string{},
		parentOf:          map[string]string{},
		classOf:           map[string]string{},
		edgeLabelByPath:   map[string]string{},
		requiredByPath:    map[string]map[string]bool{},
		cardinalityByPath: map[string]Cardinality{},
	}

	if err := walk(s, s.RootClass, RootPath, RootPath, "", nil, map[string]bool{}, c); err != nil {
		return nil, err
	}

	// Stable, level-aware lexicographic order: sort by (depth, path) so
	// siblings sort together while shallower paths still precede deeper ones.
	sort.SliceStable(c.Paths, func(i, j int) bool {
		di, dj := depth(c.Paths[i]), depth(c.Paths[j])
		if di != dj {
			return di < dj
		}
		return c.Paths[i] < c.Paths[j]
	})

	return c, nil
}

func depth(path string) int {
	if path == RootPath {
		return 0
	}
	return strings.Count(path, ".") + 1
}

// walk performs the DFS. onStack tracks the class positions currently on
// the traversal stack to detect schema cycles (spec §4.1 "Cycles").
func walk(s *Schema, className, path, parentPath, edgeLabel string, required []string, onStack map[string]bool, c *PathCatalog) error {
	if onStack[className] {
		return xerrors.SchemaCycle(className + " at " + path)
	}
	onStack[className] = true
	defer delete(onStack, className)

	def, ok := s.classDef(className)
	if !ok {
		return xerrors.ConfigurationError("schema references undeclared class %q", className)
	}

	c.Paths = append(c.Paths, path)
	c.idFieldsByPath[path] = def.IdentityFields
	c.parentOf[path] = parentPath
	c.classOf[path] = className
	c.edgeLabelByPath[path] = edgeLabel
	if len(def.Required) > 0 {
		req := make(map[string]bool, len(def.Required))
		for _, f := range def.Required {
			req[f] = true
		}
		c.requiredByPath[path] = req
	}

	edges := append([]EdgeField(nil), def.Edges...)
	sort.Slice(edges, func(i, j int) bool { return edges[i].Label < edges[j].Label })

	for _, edge := range edges {
		childPath := joinPath(path, edge.Label, edge.Cardinality == CardinalityMany)
		c.cardinalityByPath[childPath] = edge.Cardinality
		if err := walk(s, edge.TargetClass, childPath, path, edge.Label, nil, onStack, c); err != nil {
			return err
		}
	}
	return nil
}

func joinPath(parent, segment string, isList bool) string {
	seg := segment
	if isList {
		seg += "[]"
	}
	if parent == RootPath {
		return seg
	}
	return parent + "." + seg
}
