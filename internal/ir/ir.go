// Package ir defines the intermediate representation shapes that flow
// between the Delta Batch Extractor (C4), IR Normalizer (C5), and Graph
// Merger (C6): BatchIR, NormalizedBatchIR, and their node/edge references
// (spec §3 "BatchIR", "NormalizedBatchIR").
package ir

// Ref names an entity by its declared path and identity-field values, the
// shape prompts are instructed to use for parent pointers and
// relationship endpoints (spec §4.4 "list-entity parents must be
// referenced by {path, ids}").
type Ref struct {
	Path string            `json:"path"`
	IDs  map[string]string `json:"ids"`
}

// RawNode is one entity instance as emitted by the completer, before path
// canonicalization or identity coercion.
type RawNode struct {
	Path       string            `json:"path"`
	IDs        map[string]string `json:"ids"`
	Parent     *Ref              `json:"parent,omitempty"`
	Properties map[string]any    `json:"properties"`
}

// RawRelationship is an explicit edge emitted independently of the
// parent/child tree (spec §3 "relationships: optional list").
type RawRelationship struct {
	Source Ref    `json:"source"`
	Target Ref    `json:"target"`
	Label  string `json:"label"`
}

// BatchIR is the raw, unvalidated output of one JsonCompleter call for one
// batch (spec §3 "BatchIR").
type BatchIR struct {
	BatchID       string            `json:"batch_id"`
	Nodes         []RawNode         `json:"nodes"`
	Relationships []RawRelationship `json:"relationships,omitempty"`
}

// NormalizedNode is a RawNode after C5 has canonicalized its path,
// coerced its identity values to strings, injected identity fields into
// properties, and resolved (or synthesized) its parent.
type NormalizedNode struct {
	NodeID      string
	ClassName   string
	Path        string
	IDs         map[string]string
	ParentID    string // "" only for the root
	Properties  map[string]any
	Synthesized bool // true for placeholder parents created by salvage
}

// NormalizedRelationship is a RawRelationship whose endpoints have been
// resolved to NodeIDs; dropped (not constructed) when either endpoint or
// the label is unresolvable (spec §4.5 step 6).
type NormalizedRelationship struct {
	Source string
	Target string
	Label  string
}

// NormalizedBatchIR is the validated, identity-resolved output of C5 for
// one batch (spec §3 "NormalizedBatchIR").
type NormalizedBatchIR struct {
	BatchID       string
	Nodes         []NormalizedNode
	Relationships []NormalizedRelationship
}

// NormalizerStats counts what C5 did to a batch, surfaced to the Quality
// Gate and the trace (spec §4.5 "Output").
type NormalizerStats struct {
	UnknownPathDropped int
	IDsInjected        int
	ParentResolved     int
	ParentInferred     int
	ParentSynthesized  int
	RelationshipsDropped int
}

// Add accumulates another NormalizerStats into the receiver, used by the
// Orchestrator to sum stats across all batches of an extraction.
func (s *NormalizerStats) Add(o NormalizerStats) {
	s.UnknownPathDropped += o.UnknownPathDropped
	s.IDsInjected += o.IDsInjected
	s.ParentResolved += o.ParentResolved
	s.ParentInferred += o.ParentInferred
	s.ParentSynthesized += o.ParentSynthesized
	s.RelationshipsDropped += o.RelationshipsDropped
}
