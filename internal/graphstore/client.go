// Package graphstore persists a MergedGraph (spec §3, §9) to Neo4j as an
// optional durable backend alongside the in-memory arena in internal/graph.
// Adapted from the teacher's internal/graph Neo4j wiring, generalized from
// per-label (File/Commit/Developer/...) schemas to a single generic node
// shape keyed by the content-addressed NodeID (internal/fingerprint).
package graphstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Store wraps a Neo4j driver for writing a MergedGraph.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
	batch    BatchConfig
}

// Config holds connection parameters for NewStore.
type Config struct {
	URI      string
	Username string
	Password string
	Database string // defaults to "neo4j" when empty
	Batch    BatchConfig
}

// NewStore creates a Store and verifies connectivity before returning.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("graphstore: uri, username and password are required")
	}
	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	batch := cfg.Batch
	if batch.NodeBatchSize == 0 {
		batch = DefaultBatchConfig()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = 50
			c.ConnectionAcquisitionTimeout = 60 * time.Second
			c.MaxConnectionLifetime = time.Hour
			c.SocketConnectTimeout = 5 * time.Second
			c.SocketKeepalive = true
		})
	if err != nil {
		return nil, fmt.Errorf("graphstore: create driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("graphstore: connect to %s: %w", cfg.URI, err)
	}

	logger := slog.Default().With("component", "graphstore")
	logger.Info("neo4j store connected", "uri", cfg.URI, "database", database)

	return &Store{driver: driver, database: database, logger: logger, batch: batch}, nil
}

// Close closes the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	if err := s.driver.Close(ctx); err != nil {
		return fmt.Errorf("graphstore: close: %w", err)
	}
	return nil
}

// HealthCheck verifies the connection is still live.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("graphstore: health check: %w", err)
	}
	return nil
}
