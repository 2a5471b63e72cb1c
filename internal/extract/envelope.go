package extract

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/docling-graph/core/internal/completer"
)

// Envelope builds the IR envelope JSON schema (spec §4.4 "json_schema is
// the IR envelope, not the template schema") — it describes BatchIR's
// shape (nodes/relationships with {path, ids, parent, properties}), not
// the caller's domain schema.
func Envelope() completer.JsonSchema {
	ref := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"path": {Type: "string"},
			"ids":  {Type: "object"},
		},
		Required: []string{"path"},
	}

	node := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"path":       {Type: "string"},
			"ids":        {Type: "object"},
			"parent":     ref,
			"properties": {Type: "object"},
		},
		Required: []string{"path"},
	}

	relationship := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"source": ref,
			"target": ref,
			"label":  {Type: "string"},
		},
		Required: []string{"source", "target", "label"},
	}

	envelope := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"nodes":         {Type: "array", Items: node},
			"relationships": {Type: "array", Items: relationship},
		},
		Required: []string{"nodes"},
	}

	raw, err := json.Marshal(envelope)
	if err != nil {
		// envelope is a static literal; failure here is a programming
		// error in this file, not a runtime condition.
		panic(err)
	}

	var out completer.JsonSchema
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(err)
	}
	return out
}
