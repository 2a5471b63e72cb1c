package main

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/docling-graph/core/internal/catalog"
	"github.com/docling-graph/core/internal/mcptool"
)

var serveSchemaPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the extract_graph tool as an MCP server over stdio",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveSchemaPath, "schema", "", "path to the catalog schema YAML file (required)")
	serveCmd.MarkFlagRequired("schema")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	schemaBytes, err := os.ReadFile(serveSchemaPath)
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

	comp, err := buildCompleter(ctx, cfg.Completer)
	if err != nil {
		return fmt.Errorf("build completer: %w", err)
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "docling-graph", Version: Version}, nil)
	mcptool.Register(server, cfg, cat, comp)

	logger.Info("MCP server starting on stdio")
	return server.Run(ctx, &mcp.StdioTransport{})
}
