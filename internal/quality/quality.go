// Package quality implements the Quality Gate (spec §4.8, C8): a
// pass/fail verdict plus diagnostic ratios the Orchestrator uses to decide
// between gleaning, direct-contract fallback, or accepting the graph.
package quality

import (
	"fmt"

	"github.com/docling-graph/core/internal/catalog"
	"github.com/docling-graph/core/internal/graph"
	"github.com/docling-graph/core/internal/ir"
)

// Input collects everything the gate needs from one extraction run.
type Input struct {
	Graph           *graph.MergedGraph
	Catalog         *catalog.PathCatalog
	NormalizerStats ir.NormalizerStats
	ParentLookupMiss int // from the Template Projector (spec §4.7)
	MinInstances    int // delta_quality_min_instances
	// TotalNodesSeen is every raw node the extractor emitted, including
	// ones later dropped for an unknown path; used as the denominator for
	// unknown_path_dropped_ratio.
	TotalNodesSeen int
	// TotalParentResolutions is every non-root node that required a
	// parent lookup, across both the normalizer and the projector; used
	// as the denominator for parent_lookup_miss_ratio.
	TotalParentResolutions int
}

// Report is the gate's verdict, surfaced verbatim to the Orchestrator
// (spec §4.8 "Reasons are surfaced verbatim").
type Report struct {
	OK                      bool
	Reasons                 []string
	HasRootInstance         bool
	PerPathCount            map[string]int
	MinInstancesOK          bool
	ParentLookupMissRatio   float64
	UnknownPathDroppedRatio float64
}

// Evaluate computes the gate's metrics and verdict.
func Evaluate(in Input) Report {
	perPathCount := map[string]int{}
	for _, n := range in.Graph.Nodes() {
		perPathCount[n.Path]++
	}

	report := Report{
		PerPathCount:    perPathCount,
		HasRootInstance: perPathCount[catalog.RootPath] > 0,
	}

	report.MinInstancesOK = true
	for _, path := range in.Catalog.Paths {
		if perPathCount[path] < in.MinInstances {
			report.MinInstancesOK = false
			report.Reasons = append(report.Reasons, fmt.Sprintf(
				"path %q has %d instance(s), below delta_quality_min_instances=%d",
				displayPath(path), perPathCount[path], in.MinInstances))
		}
	}

	if in.TotalParentResolutions > 0 {
		report.ParentLookupMissRatio = float64(in.ParentLookupMiss) / float64(in.TotalParentResolutions)
	}
	if in.TotalNodesSeen > 0 {
		report.UnknownPathDroppedRatio = float64(in.NormalizerStats.UnknownPathDropped) / float64(in.TotalNodesSeen)
	}

	if !report.HasRootInstance {
		report.Reasons = append(report.Reasons, "no instance found at the root path")
	}

	report.OK = report.HasRootInstance && report.MinInstancesOK
	return report
}

func displayPath(path string) string {
	if path == catalog.RootPath {
		return "<root>"
	}
	return path
}
