package registrystore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/docling-graph/core/internal/registry"
)

// SQLiteStore backs Store with a local sqlite file, for single-process
// local development and testing.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite opens (creating if absent) the sqlite file at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("registrystore: open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("registrystore: migrate sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// SaveBindings upserts every binding, keyed by node_id (deterministic per
// spec §3, so re-saving the same binding is a no-op).
func (s *SQLiteStore) SaveBindings(ctx context.Context, bindings []registry.Binding) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("registrystore: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, b := range bindings {
		encoded, err := encodeFingerprint(b.FP)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO node_registry (node_id, class_name, path, fingerprint_json) VALUES (?, ?, ?, ?)
			 ON CONFLICT(node_id) DO UPDATE SET class_name=excluded.class_name, path=excluded.path, fingerprint_json=excluded.fingerprint_json`,
			b.ID, b.ClassName, b.FP.Path, encoded)
		if err != nil {
			return fmt.Errorf("registrystore: save binding %s: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

// LoadInto hydrates reg with every persisted binding, returning the count
// restored.
func (s *SQLiteStore) LoadInto(ctx context.Context, reg *registry.Registry) (int, error) {
	var rows []bindingRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT node_id, class_name, path, fingerprint_json FROM node_registry`); err != nil {
		return 0, fmt.Errorf("registrystore: load bindings: %w", err)
	}
	for _, row := range rows {
		fp, err := decodeFingerprint(row.Path, row.Fingerprint)
		if err != nil {
			return 0, err
		}
		reg.Seed(row.ClassName, fp)
	}
	return len(rows), nil
}
