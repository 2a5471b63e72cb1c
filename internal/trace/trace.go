// Package trace implements the pipeline's two tracing facilities (spec §3
// "TraceEvent"; SPEC_FULL §4 supplementing original_source/pipeline/trace.py):
// a coarse in-memory TraceEvent ring always available, and a richer Data
// snapshot type. Nothing in this module records into or exports a Data;
// the debug-mode export (internal/tracestore) stores the Ring's events.
package trace

import "sync"

// Event is one entry in the ring buffer (spec §3 "TraceEvent").
type Event struct {
	Stage   string
	Event   string
	Payload map[string]any
}

// Ring is an append-only, bounded in-memory trace buffer. Every Emit
// appends under one mutex, so concurrent batch workers can share a Ring.
type Ring struct {
	mu      sync.Mutex
	events  []Event
	maxSize int
}

// NewRing creates a ring capped at maxSize events; 0 means unbounded.
func NewRing(maxSize int) *Ring {
	return &Ring{maxSize: maxSize}
}

// Emit appends an event, evicting the oldest entry if the ring is full.
func (r *Ring) Emit(stage, event string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Stage: stage, Event: event, Payload: payload})
	if r.maxSize > 0 && len(r.events) > r.maxSize {
		r.events = r.events[len(r.events)-r.maxSize:]
	}
}

// Events returns a snapshot copy of the recorded events.
func (r *Ring) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Contains reports whether an event of the given stage/event pair was
// ever recorded, used by tests asserting on fallback transitions (spec §8
// scenario 6: "Trace contains delta_failed_then_direct_fallback").
func (r *Ring) Contains(stage, event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Stage == stage && e.Event == event {
			return true
		}
	}
	return false
}
