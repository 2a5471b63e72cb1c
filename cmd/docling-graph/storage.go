package main

import (
	"context"
	"fmt"

	"github.com/docling-graph/core/internal/config"
	"github.com/docling-graph/core/internal/graphstore"
	"github.com/docling-graph/core/internal/registrystore"
	"github.com/docling-graph/core/internal/tracestore"
)

// openRegistryStore opens the configured Node ID Registry backend, or
// returns a nil Store when storage is disabled (cfg.Storage.Type == "").
func openRegistryStore(ctx context.Context, sc config.StorageConfig) (registrystore.Store, error) {
	switch sc.Type {
	case "":
		return nil, nil
	case "sqlite":
		return registrystore.OpenSQLite(sc.SQLitePath)
	case "postgres":
		return registrystore.OpenPostgres(ctx, sc.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage type %q", sc.Type)
	}
}

// openGraphStore opens a durable Neo4j backend for the merged graph, or
// returns nil when no Neo4j URI is configured.
func openGraphStore(ctx context.Context, sc config.StorageConfig) (*graphstore.Store, error) {
	if sc.Neo4jURI == "" {
		return nil, nil
	}
	return graphstore.NewStore(ctx, graphstore.Config{
		URI:      sc.Neo4jURI,
		Username: sc.Neo4jUser,
		Password: sc.Neo4jPassword,
		Database: sc.Neo4jDatabase,
		Batch:    graphstore.DefaultBatchConfig(),
	})
}

// openTraceStore opens the bbolt trace history file, or returns nil when
// no path is configured.
func openTraceStore(sc config.StorageConfig) (*tracestore.Store, error) {
	if sc.BoltPath == "" {
		return nil, nil
	}
	return tracestore.Open(sc.BoltPath)
}
