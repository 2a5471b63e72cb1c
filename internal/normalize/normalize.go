// Package normalize implements the IR Normalizer (spec §4.5, C5): path
// canonicalization, identity coercion/injection, parent resolution and
// salvage, and fingerprint assignment.
package normalize

import (
	"regexp"
	"strings"

	"github.com/docling-graph/core/internal/catalog"
	"github.com/docling-graph/core/internal/fingerprint"
	"github.com/docling-graph/core/internal/ir"
	"github.com/docling-graph/core/internal/registry"
)

// Mode controls how aggressively parent references are repaired (spec
// §6 "delta_resolvers_mode").
type Mode string

const (
	ModeOff   Mode = "off"
	ModeExact Mode = "exact"
	ModeFuzzy Mode = "fuzzy"
)

// Options configures one normalization pass.
type Options struct {
	StrictUnknownPaths bool // delta_normalizer_validate_paths: fail the batch instead of dropping
	ResolversMode      Mode
}

// Normalizer turns a raw BatchIR into a NormalizedBatchIR against a
// shared PathCatalog and NodeIDRegistry.
type Normalizer struct {
	Catalog  *catalog.PathCatalog
	Registry *registry.Registry
	Options  Options
}

// New constructs a Normalizer.
func New(cat *catalog.PathCatalog, reg *registry.Registry, opts Options) *Normalizer {
	return &Normalizer{Catalog: cat, Registry: reg, Options: opts}
}

var numericSegment = regexp.MustCompile(`\.\d+(\.|$)`)

// canonicalizePath matches an incoming path against the catalog using
// exact match, dotted-vs-bracketed variant equivalence, then
// case-insensitive match (spec §4.5 step 1).
func (n *Normalizer) canonicalizePath(path string) (string, bool) {
	if n.Catalog.HasPath(path) {
		return path, true
	}

	// line_items.1 ≡ line_items[] : strip numeric segments and retry as
	// bracketed form.
	stripped := numericSegment.ReplaceAllString(path, "$1")
	bracketed := toBracketed(stripped)
	if n.Catalog.HasPath(bracketed) {
		return bracketed, true
	}
	if n.Catalog.HasPath(stripped) {
		return stripped, true
	}

	lower := strings.ToLower(path)
	for _, p := range n.Catalog.Paths {
		if strings.ToLower(p) == lower {
			return p, true
		}
	}
	return "", false
}

// toBracketed appends "[]" to a path's final segment unless it already
// ends in "[]". It does not consult the catalog; the caller checks catalog
// membership of the result.
func toBracketed(path string) string {
	if strings.HasSuffix(path, "[]") {
		return path
	}
	segments := strings.Split(path, ".")
	last := segments[len(segments)-1]
	if !strings.HasSuffix(last, "[]") {
		segments[len(segments)-1] = last + "[]"
	}
	return strings.Join(segments, ".")
}

// Normalize runs the full C5 algorithm over one raw BatchIR.
func (n *Normalizer) Normalize(raw ir.BatchIR) (ir.NormalizedBatchIR, ir.NormalizerStats, error) {
	var stats ir.NormalizerStats
	out := ir.NormalizedBatchIR{BatchID: raw.BatchID}

	// localByPathIDs records each emitted node's ID by path and
	// fingerprint. Parent resolution does not read it: a parent emitted
	// earlier in the same batch is already in the shared registry, since
	// Assign registers it immediately.
	localByPathIDs := map[string]string{}

	for _, rawNode := range raw.Nodes {
		path, ok := n.canonicalizePath(rawNode.Path)
		if !ok {
			if n.Options.StrictUnknownPaths {
				return ir.NormalizedBatchIR{}, stats, unknownPathErr(rawNode.Path)
			}
			stats.UnknownPathDropped++
			continue
		}

		className := n.Catalog.ClassOf(path)
		idFields := n.Catalog.IDFieldsByPath(path)

		ids := coerceIDs(rawNode.IDs, idFields)

		properties := rawNode.Properties
		if properties == nil {
			properties = map[string]any{}
		}
		injected := injectIdentity(properties, ids, &stats)

		fp := fingerprint.New(path, idFields, ids)
		nodeID := n.Registry.Assign(className, fp)

		node := ir.NormalizedNode{
			NodeID:     nodeID,
			ClassName:  className,
			Path:       path,
			IDs:        ids,
			Properties: injected,
		}

		if path != catalog.RootPath {
			var synthesizedNodes []ir.NormalizedNode
			node.ParentID = n.resolveParent(path, rawNode.Parent, &stats, &synthesizedNodes)
			out.Nodes = append(out.Nodes, synthesizedNodes...)
		}

		out.Nodes = append(out.Nodes, node)
		localByPathIDs[path+"|"+fp.String()] = nodeID
	}

	for _, rel := range raw.Relationships {
		normalized, ok := n.normalizeRelationship(rel)
		if !ok {
			stats.RelationshipsDropped++
			continue
		}
		out.Relationships = append(out.Relationships, normalized)
	}

	return out, stats, nil
}

func unknownPathErr(path string) error {
	return unknownPathFailure{path: path}
}

type unknownPathFailure struct{ path string }

func (e unknownPathFailure) Error() string { return "unknown path (strict mode): " + e.path }

// coerceIDs string-coerces every identity value, trims, and
// canonicalizes; missing identity fields are left absent, never invented
// (spec §4.5 step 2).
func coerceIDs(raw map[string]string, idFields []string) map[string]string {
	out := map[string]string{}
	for _, field := range idFields {
		v, ok := raw[field]
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		out[field] = fingerprint.Canonicalize(v)
	}
	return out
}

// injectIdentity copies identity field values into properties when the
// entity's properties lack them (spec §4.5 step 3).
func injectIdentity(properties map[string]any, ids map[string]string, stats *ir.NormalizerStats) map[string]any {
	out := make(map[string]any, len(properties)+len(ids))
	for k, v := range properties {
		out[k] = v
	}
	for field, value := range ids {
		if _, ok := out[field]; !ok {
			out[field] = value
			stats.IDsInjected++
		}
	}
	return out
}
