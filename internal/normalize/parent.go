package normalize

import (
	"github.com/docling-graph/core/internal/fingerprint"
	"github.com/docling-graph/core/internal/ir"
	"github.com/docling-graph/core/internal/registry"
)

// resolveParent implements the parent-resolution cascade (spec §4.5 step
// 4): exact match, off-by-one repair, single-candidate repair, then
// synthesis. Returns the resolved parent NodeID. Any placeholder parents
// synthesized along the way (including recursively synthesized
// grandparents) are appended to synthesized, in root-to-leaf order.
func (n *Normalizer) resolveParent(path string, parentRef *ir.Ref, stats *ir.NormalizerStats, synthesized *[]ir.NormalizedNode) string {
	parentPath := n.Catalog.ParentOf(path)
	parentClass := n.Catalog.ClassOf(parentPath)
	parentIDFields := n.Catalog.IDFieldsByPath(parentPath)

	var parentIDs map[string]string
	if parentRef != nil {
		parentIDs = coerceIDs(parentRef.IDs, parentIDFields)
	}

	// Step 1: exact match against a known fingerprint in the registry.
	if len(parentIDs) > 0 {
		if id, ok := n.Registry.LookupByPathIDs(parentPath, parentIDs); ok {
			stats.ParentResolved++
			return id
		}
	}

	candidates := n.Registry.CandidatesAtPath(parentPath)

	// Step 2: off-by-one repair — only when the parent path holds exactly
	// one candidate and its ids fuzzy-match, and only when the resolvers
	// mode permits it.
	if n.Options.ResolversMode == ModeFuzzy && len(parentIDs) > 0 {
		if match, ok := registry.FuzzyMatch(candidates, parentIDs); ok {
			stats.ParentInferred++
			return n.Registry.Assign(parentClass, match)
		}
	}

	// Step 3: single-candidate repair — exactly one parent at the parent
	// path regardless of ids.
	if len(candidates) == 1 {
		stats.ParentInferred++
		return n.Registry.Assign(parentClass, candidates[0])
	}

	// Step 4: synthesize a placeholder parent using the declared ids, even
	// if the parent was never explicitly emitted. Positional attachment is
	// never performed: when parentIDs is empty and multiple candidates
	// exist, synthesis still proceeds (creating a distinct empty-id
	// parent) rather than guessing which existing candidate to use.
	fp := fingerprint.New(parentPath, parentIDFields, parentIDs)
	id := n.Registry.Assign(parentClass, fp)
	stats.ParentSynthesized++

	if parentPath == "" {
		return id
	}

	grandParentID := n.resolveParent(parentPath, nil, stats, synthesized)
	*synthesized = append(*synthesized, ir.NormalizedNode{
		NodeID:      id,
		ClassName:   parentClass,
		Path:        parentPath,
		IDs:         parentIDs,
		ParentID:    grandParentID,
		Properties:  identityOnlyProperties(parentIDs),
		Synthesized: true,
	})

	return id
}

func identityOnlyProperties(ids map[string]string) map[string]any {
	out := make(map[string]any, len(ids))
	for k, v := range ids {
		out[k] = v
	}
	return out
}

// normalizeRelationship resolves an explicit relationship's endpoints
// against the registry, dropping it if either side or the label cannot be
// resolved (spec §4.5 step 6).
func (n *Normalizer) normalizeRelationship(rel ir.RawRelationship) (ir.NormalizedRelationship, bool) {
	if rel.Label == "" {
		return ir.NormalizedRelationship{}, false
	}

	sourcePath, ok := n.canonicalizePath(rel.Source.Path)
	if !ok {
		return ir.NormalizedRelationship{}, false
	}
	targetPath, ok := n.canonicalizePath(rel.Target.Path)
	if !ok {
		return ir.NormalizedRelationship{}, false
	}

	sourceIDs := coerceIDs(rel.Source.IDs, n.Catalog.IDFieldsByPath(sourcePath))
	targetIDs := coerceIDs(rel.Target.IDs, n.Catalog.IDFieldsByPath(targetPath))

	sourceID, ok := n.Registry.LookupByPathIDs(sourcePath, sourceIDs)
	if !ok {
		return ir.NormalizedRelationship{}, false
	}
	targetID, ok := n.Registry.LookupByPathIDs(targetPath, targetIDs)
	if !ok {
		return ir.NormalizedRelationship{}, false
	}

	return ir.NormalizedRelationship{Source: sourceID, Target: targetID, Label: rel.Label}, true
}
