// Package mcptool exposes the extraction pipeline as an MCP tool, grounded
// on the teacher's tools/get_risk_summary.go pattern (a thin typed
// request/response wrapper over one domain operation, registered on an
// *mcp.Server via mcp.AddTool).
package mcptool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docling-graph/core/internal/catalog"
	"github.com/docling-graph/core/internal/completer"
	"github.com/docling-graph/core/internal/config"
	"github.com/docling-graph/core/internal/docsource"
	"github.com/docling-graph/core/internal/orchestrate"
	"github.com/docling-graph/core/internal/trace"
)

// ExtractGraphInput is the extract_graph tool's request shape.
type ExtractGraphInput struct {
	Markdown string `json:"markdown" jsonschema:"the full document, already converted to markdown"`
	Staged   bool   `json:"staged,omitempty" jsonschema:"use the three-pass staged contract (C10) instead of the delta contract"`
}

// ExtractGraphOutput is the extract_graph tool's response shape.
type ExtractGraphOutput struct {
	Tree             map[string]any `json:"tree"`
	QualityOK        bool           `json:"quality_ok"`
	QualityReasons   []string       `json:"quality_reasons,omitempty"`
	GleaningPasses   int            `json:"gleaning_passes"`
	FellBackToDirect bool           `json:"fell_back_to_direct"`
}

// Register adds the extract_graph tool to server, running one Orchestrator
// per call against a fresh registry and graph (spec §3 "Lifecycle").
func Register(server *mcp.Server, cfg *config.Config, cat *catalog.PathCatalog, comp completer.JsonCompleter) {
	tool := &mcp.Tool{
		Name:        "extract_graph",
		Description: "Extract a catalog-shaped document graph from markdown text using the configured schema.",
	}
	mcp.AddTool(server, tool, func(ctx context.Context, req *mcp.CallToolRequest, in ExtractGraphInput) (*mcp.CallToolResult, ExtractGraphOutput, error) {
		src := docsource.NewStatic(in.Markdown)
		full, err := src.FullMarkdown()
		if err != nil {
			return nil, ExtractGraphOutput{}, fmt.Errorf("mcptool: read markdown: %w", err)
		}
		chunks, err := src.Chunks()
		if err != nil {
			return nil, ExtractGraphOutput{}, fmt.Errorf("mcptool: chunk markdown: %w", err)
		}

		o := orchestrate.New(cfg, cat, comp, trace.NewRing(500))
		var res orchestrate.Result
		if in.Staged {
			res = o.RunStaged(ctx, chunks, full)
		} else {
			res = o.Run(ctx, chunks, full)
		}
		if res.Err != nil {
			return nil, ExtractGraphOutput{}, fmt.Errorf("mcptool: extraction failed: %w", res.Err)
		}

		out := ExtractGraphOutput{
			Tree:             res.Tree,
			QualityOK:        res.Quality.OK,
			QualityReasons:   res.Quality.Reasons,
			GleaningPasses:   res.GleaningPasses,
			FellBackToDirect: res.FellBackToDirect,
		}
		return &mcp.CallToolResult{}, out, nil
	})
}
