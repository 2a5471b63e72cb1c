// Package docsource defines the consumed contract for a document already
// converted to markdown (spec §6), grounded in the original's
// document_processor.py (to_full_markdown/to_chunks). Document-to-Markdown
// conversion and OCR/VLM inference stay out of scope — this package only
// describes what the pipeline needs from that upstream stage.
package docsource

import (
	"strings"

	"github.com/docling-graph/core/internal/chunking"
)

// Source supplies the full document markdown and a pre-split chunk list to
// the Orchestrator. Implementations that wrap an external OCR/VLM
// collaborator live outside this module.
type Source interface {
	// FullMarkdown returns the entire document as one markdown string, used
	// by the direct contract and the delta->direct fallback (spec §4.9).
	FullMarkdown() (string, error)

	// Chunks returns the document pre-split into chunks for the delta
	// contract's batching stage (spec §4.2).
	Chunks() ([]chunking.Chunk, error)
}

// Static wraps a markdown string already split into chunks, for tests and
// for the CLI when fed a plain .md file directly.
type Static struct {
	Markdown string
	chunks   []chunking.Chunk
}

// NewStatic builds a Static source, splitting markdown into chunks by page
// break markers ("\f" or a literal "---page break---") when present, or
// returning it as a single chunk otherwise. Token counts are approximated
// by rune count / 4, the same rough heuristic chunking.Pack already
// tolerates via its merge-threshold slack.
func NewStatic(markdown string) *Static {
	pages := splitPages(markdown)
	chunks := make([]chunking.Chunk, len(pages))
	for i, p := range pages {
		chunks[i] = chunking.Chunk{
			Text:        p,
			TokenCount:  approxTokens(p),
			PageNumbers: []int{i + 1},
		}
	}
	return &Static{Markdown: markdown, chunks: chunks}
}

func (s *Static) FullMarkdown() (string, error) {
	return s.Markdown, nil
}

func (s *Static) Chunks() ([]chunking.Chunk, error) {
	out := make([]chunking.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out, nil
}

func splitPages(markdown string) []string {
	const pageBreak = "\f"
	markdown = strings.ReplaceAll(markdown, "---page break---", pageBreak)
	var pages []string
	start := 0
	for i := 0; i < len(markdown); i++ {
		if markdown[i] == pageBreak[0] {
			pages = append(pages, markdown[start:i])
			start = i + 1
		}
	}
	pages = append(pages, markdown[start:])
	if len(pages) == 0 {
		return []string{""}
	}
	return pages
}

func approxTokens(text string) int {
	n := len([]rune(text)) / 4
	if n == 0 && text != "" {
		return 1
	}
	return n
}
