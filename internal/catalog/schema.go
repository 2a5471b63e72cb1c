// Package catalog compiles a declarative schema description into a
// PathCatalog: the canonical enumeration of allowed dotted paths, their
// identity fields, and their parent/child relations (spec §3/§4.1).
package catalog

import "gopkg.in/yaml.v3"

// Cardinality describes how many instances an edge field may target.
type Cardinality string

const (
	CardinalityOne  Cardinality = "one"
	CardinalityMany Cardinality = "many"
)

// EdgeField declares one outgoing relation from a class: a label, the
// target class it points to, and how many instances may exist.
type EdgeField struct {
	Label       string      `yaml:"label"`
	TargetClass string      `yaml:"target_class"`
	Cardinality Cardinality `yaml:"cardinality"`
}

// ClassDef declares one entity class in the schema: its identity fields
// (ordered, string-valued, forming the fingerprint), its scalar/list
// property fields, and its outgoing edges.
type ClassDef struct {
	Name           string      `yaml:"name"`
	IdentityFields []string    `yaml:"identity_fields"`
	Properties     []string    `yaml:"properties"`
	Edges          []EdgeField `yaml:"edges"`
	// Required marks property/identity fields that the Template Projector
	// emits as null when a node lacks them. The Quality Gate (C8) does not
	// read this list: its min_instances check covers every catalog path.
	Required []string `yaml:"required"`
}

// Schema is the root of the class graph: a root class name plus the full
// set of class definitions it (transitively) references.
type Schema struct {
	RootClass string              `yaml:"root_class"`
	Classes   map[string]ClassDef `yaml:"classes"`
}

// ParseSchema decodes a YAML schema description (spec §3 "Schema (input)").
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schema) classDef(name string) (ClassDef, bool) {
	c, ok := s.Classes[name]
	return c, ok
}
