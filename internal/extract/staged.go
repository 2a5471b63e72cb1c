package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/docling-graph/core/internal/catalog"
	"github.com/docling-graph/core/internal/completer"
	"github.com/docling-graph/core/internal/xerrors"
)

// DiscoverySchema describes the skeleton-only output of the Staged
// Orchestrator's discovery pass: a count of instances per catalog path,
// nothing else (spec §4.10 pass 1).
func DiscoverySchema() completer.JsonSchema {
	schema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"paths": {Type: "object"},
		},
		Required: []string{"paths"},
	}
	return marshalSchema(schema)
}

// IdentifierFillSchema describes the per-path identity-value instances
// produced by the identifier-fill pass (spec §4.10 pass 2).
func IdentifierFillSchema() completer.JsonSchema {
	schema := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"instances": {Type: "object"},
		},
		Required: []string{"instances"},
	}
	return marshalSchema(schema)
}

func marshalSchema(s *jsonschema.Schema) completer.JsonSchema {
	raw, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	var out completer.JsonSchema
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return out
}

func renderDiscoveryPrompt(cat *catalog.PathCatalog, markdown string) completer.Prompt {
	var sb strings.Builder
	sb.WriteString("List every catalog path that appears anywhere in the document below and a coarse count of instances. Do not extract field values yet.\n\nCatalog paths:\n")
	for _, p := range cat.Paths {
		label := p
		if label == catalog.RootPath {
			label = "(root)"
		}
		fmt.Fprintf(&sb, "- %s\n", label)
	}
	return completer.Prompt{
		System: "You produce a coarse structural skeleton of a document against a fixed catalog of paths. Output only {\"paths\": {<path>: <count>}}.",
		User:   sb.String() + "\n\nDocument:\n\n" + markdown,
	}
}

func renderIdentifierFillPrompt(cat *catalog.PathCatalog, paths []string, fillCap int, markdown string) completer.Prompt {
	var sb strings.Builder
	fmt.Fprintf(&sb, "For each of the following paths, list up to %d instances' identity field values only. Do not extract other properties yet.\n\n", fillCap)
	for _, p := range paths {
		fmt.Fprintf(&sb, "- %s: identity fields %v\n", p, cat.IDFieldsByPath(p))
	}
	return completer.Prompt{
		System: "You fill in identity-field values per catalog path, bounded by the stated cap per path. Output only {\"instances\": {<path>: [{<id field>: <value>}, ...]}}.",
		User:   sb.String() + "\n\nDocument:\n\n" + markdown,
	}
}

// Discover runs the discovery pass: a coarse path -> count skeleton,
// validated against the catalog (unknown paths are dropped, not fatal).
func Discover(ctx context.Context, comp completer.JsonCompleter, cat *catalog.PathCatalog, markdown string) (map[string]int, error) {
	prompt := renderDiscoveryPrompt(cat, markdown)
	result, err := comp.Complete(ctx, prompt, DiscoverySchema(), completer.Params{Temperature: 0, MaxTokens: 2048})
	if err != nil {
		return nil, xerrors.ExtractionFailure(err)
	}

	var parsed struct {
		Paths map[string]int `json:"paths"`
	}
	if err := json.Unmarshal([]byte(result.JSON), &parsed); err != nil {
		return nil, xerrors.ParseFailure(err)
	}

	out := map[string]int{}
	for path, count := range parsed.Paths {
		if cat.HasPath(path) {
			out[path] = count
		}
	}
	return out, nil
}

// FillIdentifiers runs the identifier-fill pass: identity-field values
// per discovered path, capped at fillCap instances per path (spec §4.10
// "bounded by staged_nodes_fill_cap per path").
func FillIdentifiers(ctx context.Context, comp completer.JsonCompleter, cat *catalog.PathCatalog, markdown string, paths []string, fillCap int) (map[string][]map[string]string, error) {
	if len(paths) == 0 {
		return map[string][]map[string]string{}, nil
	}
	prompt := renderIdentifierFillPrompt(cat, paths, fillCap, markdown)
	result, err := comp.Complete(ctx, prompt, IdentifierFillSchema(), completer.Params{Temperature: 0, MaxTokens: 4096})
	if err != nil {
		return nil, xerrors.ExtractionFailure(err)
	}

	var parsed struct {
		Instances map[string][]map[string]string `json:"instances"`
	}
	if err := json.Unmarshal([]byte(result.JSON), &parsed); err != nil {
		return nil, xerrors.ParseFailure(err)
	}

	out := map[string][]map[string]string{}
	for path, instances := range parsed.Instances {
		if !cat.HasPath(path) {
			continue
		}
		if len(instances) > fillCap {
			instances = instances[:fillCap]
		}
		out[path] = instances
	}
	return out, nil
}
