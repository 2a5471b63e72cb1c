// Package registry implements the Node ID Registry (spec §4.3): a stable
// fingerprint-to-NodeID mapping shared by every batch within one extraction.
package registry

import (
	"strings"
	"sync"

	"github.com/docling-graph/core/internal/fingerprint"
)

// Registry assigns stable IDs from (class_name, identity_field_values).
// Safe for concurrent use by the bounded worker pool that processes
// independent batches (spec §5 "Shared resources").
type Registry struct {
	mu       sync.RWMutex
	idToFP   map[string]fingerprint.Fingerprint
	fpToID   map[string]string
	classOf  map[string]string
	countsBy map[string]int
}

// New returns an empty registry. By default each extraction owns a fresh
// registry; callers that want cross-extraction dedup (spec §9 "Global
// state") carry bindings from one run to the next with All and Seed.
func New() *Registry {
	return &Registry{
		idToFP:   map[string]fingerprint.Fingerprint{},
		fpToID:   map[string]string{},
		classOf:  map[string]string{},
		countsBy: map[string]int{},
	}
}

// Assign returns the stable NodeID for (className, fp), computing and
// recording a new one on first sight. The check-then-insert is atomic
// under the registry's mutex so concurrent batches never observe a torn
// intermediate binding (spec §5).
func (r *Registry) Assign(className string, fp fingerprint.Fingerprint) string {
	key := registryKey(className, fp)

	r.mu.RLock()
	if id, ok := r.fpToID[key]; ok {
		r.mu.RUnlock()
		return id
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.fpToID[key]; ok {
		return id
	}

	id := fingerprint.NodeID(className, fp)
	r.fpToID[key] = id
	r.idToFP[id] = fp
	r.classOf[id] = className
	r.countsBy[className]++
	return id
}

// Lookup returns the NodeID already assigned to (className, fp), if any.
func (r *Registry) Lookup(className string, fp fingerprint.Fingerprint) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.fpToID[registryKey(className, fp)]
	return id, ok
}

// LookupByPathIDs resolves an ID by scanning for a fingerprint at path
// whose identity values all match, independent of class name. Used by the
// normalizer's parent-resolution step when only a path and ids are known
// (spec §4.5 step 4).
func (r *Registry) LookupByPathIDs(path string, ids map[string]string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, fp := range r.idToFP {
		if fp.Path != path {
			continue
		}
		if fingerprintMatches(fp, ids) {
			return id, true
		}
	}
	return "", false
}

// CandidatesAtPath returns every fingerprint currently registered at path,
// used by the off-by-one and single-candidate repair heuristics, which
// only fire "when the candidate set has exactly one member" (spec §4.5).
func (r *Registry) CandidatesAtPath(path string) []fingerprint.Fingerprint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []fingerprint.Fingerprint
	for _, fp := range r.idToFP {
		if fp.Path == path {
			out = append(out, fp)
		}
	}
	return out
}

// Stats returns the per-class node counts assigned so far.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(r.countsBy))
	for k, v := range r.countsBy {
		out[k] = v
	}
	return out
}

// Binding is one recorded (className, fingerprint) -> NodeID assignment.
type Binding struct {
	ID        string
	ClassName string
	FP        fingerprint.Fingerprint
}

// All returns every binding recorded so far, for durable export by
// registrystore (spec §9 "Global state").
func (r *Registry) All() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Binding, 0, len(r.idToFP))
	for id, fp := range r.idToFP {
		out = append(out, Binding{ID: id, ClassName: r.classOf[id], FP: fp})
	}
	return out
}

// Seed registers a previously-known binding by replaying Assign,
// restoring a fresh Registry's candidate-lookup structures from
// registrystore history before a new run begins. NodeID derivation is
// deterministic (spec §3 "ID stability"), so the recomputed ID matches
// the one originally assigned.
func (r *Registry) Seed(className string, fp fingerprint.Fingerprint) string {
	return r.Assign(className, fp)
}

func registryKey(className string, fp fingerprint.Fingerprint) string {
	return className + "\x00" + fp.String()
}

func fingerprintMatches(fp fingerprint.Fingerprint, ids map[string]string) bool {
	if len(ids) == 0 {
		return false
	}
	want := map[string]string{}
	for k, v := range ids {
		want[k] = fingerprint.Canonicalize(v)
	}
	have := map[string]string{}
	for _, kv := range fp.IDs {
		have[kv.Key] = kv.Value
	}
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

// fuzzyEqual reports near-miss identity equality for the off-by-one
// repair heuristic: case-folded or confusable-normalized equal.
func fuzzyEqual(a, b string) bool {
	return strings.EqualFold(a, b) || fingerprint.ConfusableFold(a) == fingerprint.ConfusableFold(b)
}

// FuzzyMatch reports whether the candidate set at path has exactly one
// member and that member's ids fuzzy-match the given ids (spec §4.5
// "off-by-one repair"); with zero or several candidates it refuses.
func FuzzyMatch(candidates []fingerprint.Fingerprint, ids map[string]string) (fingerprint.Fingerprint, bool) {
	if len(candidates) != 1 {
		return fingerprint.Fingerprint{}, false
	}
	var match fingerprint.Fingerprint
	count := 0
	for _, c := range candidates {
		if fuzzyFingerprintMatches(c, ids) {
			match = c
			count++
		}
	}
	if count == 1 {
		return match, true
	}
	return fingerprint.Fingerprint{}, false
}

func fuzzyFingerprintMatches(fp fingerprint.Fingerprint, ids map[string]string) bool {
	if len(ids) == 0 {
		return false
	}
	have := map[string]string{}
	for _, kv := range fp.IDs {
		have[kv.Key] = kv.Value
	}
	for k, v := range ids {
		hv, ok := have[k]
		if !ok || !fuzzyEqual(hv, fingerprint.Canonicalize(v)) {
			return false
		}
	}
	return true
}
