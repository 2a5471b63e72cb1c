// Package registrystore durably persists Node ID Registry bindings across
// extraction runs (spec §9 "Global state": "callers that want cross-
// extraction dedup reuse the same registry"). Two backends are supported,
// selected by config.StorageConfig.Type: sqlite for single-process local
// use, postgres for shared multi-process deployments.
package registrystore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docling-graph/core/internal/fingerprint"
	"github.com/docling-graph/core/internal/registry"
)

// Store persists and restores registry.Binding rows.
type Store interface {
	SaveBindings(ctx context.Context, bindings []registry.Binding) error
	LoadInto(ctx context.Context, reg *registry.Registry) (int, error)
	Close() error
}

type bindingRow struct {
	NodeID      string `db:"node_id"`
	ClassName   string `db:"class_name"`
	Path        string `db:"path"`
	Fingerprint string `db:"fingerprint_json"`
}

func encodeFingerprint(fp fingerprint.Fingerprint) (string, error) {
	raw, err := json.Marshal(fp.IDs)
	if err != nil {
		return "", fmt.Errorf("registrystore: encode fingerprint: %w", err)
	}
	return string(raw), nil
}

func decodeFingerprint(path, raw string) (fingerprint.Fingerprint, error) {
	var ids []fingerprint.KV
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("registrystore: decode fingerprint: %w", err)
	}
	return fingerprint.Fingerprint{Path: path, IDs: ids}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS node_registry (
	node_id          TEXT PRIMARY KEY,
	class_name       TEXT NOT NULL,
	path             TEXT NOT NULL,
	fingerprint_json TEXT NOT NULL
)`
