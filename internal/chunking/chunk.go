// Package chunking packs ordered text chunks into token-bounded batches
// (spec §4.2 "Chunk Batcher", C2).
package chunking

import (
	"fmt"
	"strings"

	"github.com/docling-graph/core/internal/xerrors"
)

// boundaryMarker is inserted between chunks in a combined batch; it must
// be stable across runs (spec §4.2 "a stable boundary marker").
const boundaryMarker = "---CHUNK BOUNDARY---"

// Chunk is one unit of source text with an estimated token count and the
// source page numbers it came from (spec §4.2 "Input").
type Chunk struct {
	Text        string
	TokenCount  int
	PageNumbers []int
}

// Batch is an ordered group of chunks dispatched to the completer as one
// call (spec §3 "Batch").
type Batch struct {
	BatchID      string
	ChunkIndices []int
	CombinedText string
	TotalTokens  int
}

// Pack implements the greedy first-fit batching algorithm with tail
// merging (spec §4.2 "Algorithm"). budget is the token budget per batch
// (context limit minus system/response reserve); mergeThreshold is the
// fraction of budget below which a trailing batch is folded into its
// predecessor.
//
// Pack is deterministic: the same chunks and budget always produce the
// same batches (spec §4.2 "Determinism").
func Pack(chunks []Chunk, budget int, mergeThreshold float64) ([]Batch, []*xerrors.Error) {
	var batches []Batch
	var warnings []*xerrors.Error

	var current []int
	var currentTokens int

	flush := func() {
		if len(current) == 0 {
			return
		}
		batches = append(batches, buildBatch(chunks, current, currentTokens, len(batches)))
		current = nil
		currentTokens = 0
	}

	for i, c := range chunks {
		if c.TokenCount > budget {
			warnings = append(warnings, xerrors.OversizedChunk(i, c.TokenCount, budget))
			flush()
			batches = append(batches, buildBatch(chunks, []int{i}, c.TokenCount, len(batches)))
			continue
		}
		if len(current) > 0 && currentTokens+c.TokenCount > budget {
			flush()
		}
		current = append(current, i)
		currentTokens += c.TokenCount
	}
	flush()

	return mergeTail(batches, budget, mergeThreshold), warnings
}

// mergeTail folds a trailing batch below mergeThreshold*budget into its
// predecessor when the combined size still fits the budget (spec §4.2
// "After the pass").
func mergeTail(batches []Batch, budget int, mergeThreshold float64) []Batch {
	if len(batches) < 2 {
		return batches
	}
	last := batches[len(batches)-1]
	prev := batches[len(batches)-2]

	threshold := int(mergeThreshold * float64(budget))
	if last.TotalTokens >= threshold {
		return batches
	}
	if prev.TotalTokens+last.TotalTokens > budget {
		return batches
	}

	merged := Batch{
		BatchID:      prev.BatchID,
		ChunkIndices: append(append([]int{}, prev.ChunkIndices...), last.ChunkIndices...),
		TotalTokens:  prev.TotalTokens + last.TotalTokens,
		CombinedText: prev.CombinedText + "\n" + boundaryMarker + "\n" + last.CombinedText,
	}
	out := append([]Batch{}, batches[:len(batches)-2]...)
	return append(out, merged)
}

// buildBatch renders indices into one combined text and assigns a
// sequential BatchID derived from seq, the batch's position in the
// output (spec §4.2 "Determinism": the same chunks and budget always
// produce the same batches, batch_id included).
func buildBatch(chunks []Chunk, indices []int, tokens int, seq int) Batch {
	var sb strings.Builder
	for i, idx := range indices {
		if i > 0 {
			sb.WriteString("\n")
			sb.WriteString(boundaryMarker)
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[Chunk %d/%d]\n", i+1, len(indices))
		sb.WriteString(chunks[idx].Text)
	}
	return Batch{
		BatchID:      fmt.Sprintf("batch-%04d", seq),
		ChunkIndices: indices,
		CombinedText: sb.String(),
		TotalTokens:  tokens,
	}
}
