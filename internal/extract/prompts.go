package extract

import (
	"fmt"
	"strings"

	"github.com/docling-graph/core/internal/catalog"
)

// systemPromptTemplate states the extraction contract (spec §4.4 step 1):
// catalog paths are closed, identity fields must be stable across
// batches, list-entity parents must be referenced by {path, ids}, and
// properties other than identity fields are optional.
const systemPromptTemplate = `You extract structured entities from a document chunk into a JSON graph delta.

Rules:
- Only emit entities at paths listed in the catalog below. The catalog is closed: any path not listed must not appear in your output.
- Every entity with identity fields must set them exactly as declared for its path, using the same values whenever the same real-world entity reappears, so that cross-batch deduplication succeeds.
- When an entity is a list-entity ("[]" path), reference its parent as {"path": <parent path>, "ids": {<parent identity fields>}}, never by position.
- Fields other than identity fields are optional; omit any you cannot find rather than guessing.
- Output must be a single JSON object matching the provided schema exactly. Do not include commentary.

Catalog (path -> identity fields):
%s`

// renderSystemPrompt renders the catalog block into the system prompt
// (spec §4.4 step 2 "the catalog block (path -> id-field tuple)").
func renderSystemPrompt(cat *catalog.PathCatalog) string {
	var sb strings.Builder
	for _, p := range cat.Paths {
		label := p
		if label == catalog.RootPath {
			label = "(root)"
		}
		fmt.Fprintf(&sb, "- %s: %v\n", label, cat.IDFieldsByPath(p))
	}
	return fmt.Sprintf(systemPromptTemplate, sb.String())
}

// renderUserPrompt renders the batch text as the user turn.
func renderUserPrompt(batchText string) string {
	return "Document chunk:\n\n" + batchText
}

// gleaningPrompt augments the base user prompt with the under-filled
// paths and already-known identity values the Orchestrator's gleaning
// loop wants filled in (spec §4.9 "a targeted sub-prompt enumerating
// under-filled paths and already-known identity values").
func gleaningPrompt(batchText string, underfilledPaths []string, known map[string][]string) string {
	var sb strings.Builder
	sb.WriteString(renderUserPrompt(batchText))
	sb.WriteString("\n\nThe following paths are under-filled from a previous pass; look for more instances of them:\n")
	for _, p := range underfilledPaths {
		fmt.Fprintf(&sb, "- %s\n", p)
	}
	if len(known) > 0 {
		sb.WriteString("\nAlready-known identity values (do not duplicate, do reuse the same values if you see the same entity again):\n")
		for p, ids := range known {
			fmt.Fprintf(&sb, "- %s: %v\n", p, ids)
		}
	}
	return sb.String()
}
