package trace

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxTextLen truncates chunk/batch text captured in a Data snapshot so a
// large extraction doesn't bloat the export, mirroring
// trace_data_to_jsonable's max_text_len truncation.
const maxTextLen = 2000

// PageRecord captures one source page's contribution to a batch.
type PageRecord struct {
	PageNumber int
	TokenCount int
}

// ChunkRecord captures one chunk as it entered the batcher.
type ChunkRecord struct {
	Index      int
	TextPrefix string
	TokenCount int
	Pages      []PageRecord
}

// ExtractionRecord captures one C4 call: timing, batch identity, and
// error (if any), the per-batch granularity original_source uses.
type ExtractionRecord struct {
	BatchID  string
	Started  time.Time
	Finished time.Time
	Err      string
}

// GraphRecord is a per-batch intermediate graph summary — counts, not
// full graphs, to bound trace size (SPEC_FULL §4).
type GraphRecord struct {
	BatchID   string
	NodeCount int
	EdgeCount int
}

// ConsolidationRecord records the merge strategy applied and any
// conflicts observed while folding one batch into the MergedGraph.
type ConsolidationRecord struct {
	BatchID         string
	Strategy        string
	PropertyConflicts int
}

// Data is a full per-extraction trace snapshot (SPEC_FULL §4, grounded in
// original_source/docling_graph/pipeline/trace.py's TraceData). No code
// path in this module creates or exports one; the debug-mode export
// writes the Ring's events instead.
type Data struct {
	ExtractionID string

	mu             sync.Mutex
	Chunks         []ChunkRecord
	Extractions    []ExtractionRecord
	Graphs         []GraphRecord
	Consolidations []ConsolidationRecord
}

// NewData starts a fresh snapshot for one extract() call.
func NewData() *Data {
	return &Data{ExtractionID: uuid.NewString()}
}

func truncate(s string) string {
	if len(s) <= maxTextLen {
		return s
	}
	return s[:maxTextLen] + "…"
}

// RecordChunk appends a chunk's trace entry.
func (d *Data) RecordChunk(index int, text string, tokens int, pages []int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pageRecords := make([]PageRecord, len(pages))
	for i, p := range pages {
		pageRecords[i] = PageRecord{PageNumber: p}
	}
	d.Chunks = append(d.Chunks, ChunkRecord{Index: index, TextPrefix: truncate(text), TokenCount: tokens, Pages: pageRecords})
}

// RecordExtraction appends a completer-call trace entry.
func (d *Data) RecordExtraction(batchID string, started, finished time.Time, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec := ExtractionRecord{BatchID: batchID, Started: started, Finished: finished}
	if err != nil {
		rec.Err = err.Error()
	}
	d.Extractions = append(d.Extractions, rec)
}

// RecordGraph appends a per-batch graph-size summary.
func (d *Data) RecordGraph(batchID string, nodeCount, edgeCount int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Graphs = append(d.Graphs, GraphRecord{BatchID: batchID, NodeCount: nodeCount, EdgeCount: edgeCount})
}

// RecordConsolidation appends a merge-strategy/conflict summary.
func (d *Data) RecordConsolidation(batchID, strategy string, conflicts int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Consolidations = append(d.Consolidations, ConsolidationRecord{BatchID: batchID, Strategy: strategy, PropertyConflicts: conflicts})
}

// ToJSONable returns a plain map[string]any snapshot suitable for JSON
// encoding, mirroring trace_data_to_jsonable's shape.
func (d *Data) ToJSONable() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return map[string]any{
		"extraction_id":  d.ExtractionID,
		"chunks":         d.Chunks,
		"extractions":    d.Extractions,
		"graphs":         d.Graphs,
		"consolidations": d.Consolidations,
	}
}
