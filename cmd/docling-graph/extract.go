package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/docling-graph/core/internal/catalog"
	"github.com/docling-graph/core/internal/docsource"
	"github.com/docling-graph/core/internal/orchestrate"
	"github.com/docling-graph/core/internal/trace"
)

var (
	schemaPath string
	staged     bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <markdown-file>",
	Short: "Extract a graph from a markdown document",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&schemaPath, "schema", "", "path to the catalog schema YAML file (required)")
	extractCmd.Flags().BoolVar(&staged, "staged", false, "use the three-pass staged contract (C10) instead of the delta contract")
	extractCmd.MarkFlagRequired("schema")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	schemaBytes, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	schema, err := catalog.ParseSchema(schemaBytes)
	if err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}
	cat, err := catalog.Compile(schema)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	markdown, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	src := docsource.NewStatic(string(markdown))
	full, err := src.FullMarkdown()
	if err != nil {
		return fmt.Errorf("read markdown: %w", err)
	}
	chunks, err := src.Chunks()
	if err != nil {
		return fmt.Errorf("chunk markdown: %w", err)
	}

	comp, err := buildCompleter(ctx, cfg.Completer)
	if err != nil {
		return fmt.Errorf("build completer: %w", err)
	}

	regStore, err := openRegistryStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open registry store: %w", err)
	}
	if regStore != nil {
		defer regStore.Close()
	}

	tr := trace.NewRing(500)
	o := orchestrate.New(cfg, cat, comp, tr)

	if regStore != nil {
		n, err := regStore.LoadInto(ctx, o.Registry())
		if err != nil {
			return fmt.Errorf("seed registry from storage: %w", err)
		}
		logger.WithField("bindings", n).Info("seeded node id registry from storage")
	}

	var res orchestrate.Result
	if staged {
		res = o.RunStaged(ctx, chunks, full)
	} else {
		res = o.Run(ctx, chunks, full)
	}
	if res.Err != nil {
		return fmt.Errorf("extraction failed at stage %s: %w", res.Stage, res.Err)
	}

	if regStore != nil {
		if err := regStore.SaveBindings(ctx, o.Registry().All()); err != nil {
			return fmt.Errorf("save registry bindings: %w", err)
		}
	}

	graphStore, err := openGraphStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open graph store: %w", err)
	}
	if graphStore != nil {
		defer graphStore.Close(ctx)
		gstats, err := graphStore.UpsertGraph(ctx, res.Graph)
		if err != nil {
			return fmt.Errorf("persist graph: %w", err)
		}
		logger.WithField("nodes", gstats.NodesWritten).WithField("edges", gstats.EdgesWritten).Info("persisted graph to neo4j")
	}

	if cfg.Debug {
		traceStore, err := openTraceStore(cfg.Storage)
		if err != nil {
			return fmt.Errorf("open trace store: %w", err)
		}
		if traceStore != nil {
			defer traceStore.Close()
			runID := uuid.NewString()
			if err := traceStore.SaveRun(runID, tr); err != nil {
				return fmt.Errorf("save trace: %w", err)
			}
			logger.WithField("run_id", runID).Info("saved trace snapshot")
		}
	}

	if !res.Quality.OK {
		logger.WithField("reasons", res.Quality.Reasons).Warn("quality gate did not pass")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Tree)
}
