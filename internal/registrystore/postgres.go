package registrystore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docling-graph/core/internal/registry"
)

// PostgresStore backs Store with a pgx connection pool, for shared
// multi-process deployments where several extractions dedup against one
// registry (spec §9 "Global state").
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("registrystore: connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("registrystore: migrate postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveBindings upserts every binding, keyed by node_id.
func (s *PostgresStore) SaveBindings(ctx context.Context, bindings []registry.Binding) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("registrystore: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, b := range bindings {
		encoded, err := encodeFingerprint(b.FP)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO node_registry (node_id, class_name, path, fingerprint_json) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (node_id) DO UPDATE SET class_name=excluded.class_name, path=excluded.path, fingerprint_json=excluded.fingerprint_json`,
			b.ID, b.ClassName, b.FP.Path, encoded)
		if err != nil {
			return fmt.Errorf("registrystore: save binding %s: %w", b.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// LoadInto hydrates reg with every persisted binding, returning the count
// restored.
func (s *PostgresStore) LoadInto(ctx context.Context, reg *registry.Registry) (int, error) {
	rows, err := s.pool.Query(ctx, `SELECT node_id, class_name, path, fingerprint_json FROM node_registry`)
	if err != nil {
		return 0, fmt.Errorf("registrystore: load bindings: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var nodeID, className, path, encoded string
		if err := rows.Scan(&nodeID, &className, &path, &encoded); err != nil {
			return count, fmt.Errorf("registrystore: scan binding: %w", err)
		}
		fp, err := decodeFingerprint(path, encoded)
		if err != nil {
			return count, err
		}
		reg.Seed(className, fp)
		count++
	}
	return count, rows.Err()
}
