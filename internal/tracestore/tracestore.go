// Package tracestore persists the full TraceEvent history for an
// extraction run to an append-only bbolt file when debug mode is enabled
// (spec §3 "TraceData is append-only"; config.Config.Debug). The in-memory
// trace.Ring remains the source of truth during a run; tracestore is a
// durable export of its final snapshot, keyed by run ID, so a run can be
// replayed or diffed later without re-extracting.
package tracestore

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/docling-graph/core/internal/trace"
)

var runsBucket = []byte("runs")

// Store appends TraceEvent snapshots to a bbolt file, one key per run.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if absent) the bbolt file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("tracestore: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("tracestore: init buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes the ring's full event snapshot under runID. Overwriting an
// existing runID is a caller error (runs are append-only once saved) — the
// key is rejected if already present, to avoid silently replacing history.
func (s *Store) SaveRun(runID string, r *trace.Ring) error {
	events := r.Events()
	raw, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("tracestore: marshal run %s: %w", runID, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(runsBucket)
		if existing := b.Get([]byte(runID)); existing != nil {
			return fmt.Errorf("tracestore: run %s already recorded", runID)
		}
		return b.Put([]byte(runID), raw)
	})
}

// LoadRun reads back a previously saved run's event history.
func (s *Store) LoadRun(runID string) ([]trace.Event, error) {
	var events []trace.Event
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(runsBucket)
		raw := b.Get([]byte(runID))
		if raw == nil {
			return fmt.Errorf("tracestore: run %s not found", runID)
		}
		return json.Unmarshal(raw, &events)
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ListRuns returns every recorded run ID.
func (s *Store) ListRuns() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(runsBucket)
		return b.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}
