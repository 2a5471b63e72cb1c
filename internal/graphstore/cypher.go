package graphstore

import "regexp"

// validIdentifier matches Neo4j's naming rules for labels and relationship
// types, which cannot be passed as query parameters and so must be
// validated before interpolation (prevents Cypher injection via a
// ClassName or edge Label derived from document content).
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidIdentifier(s string) bool {
	return s != "" && validIdentifier.MatchString(s)
}

// sanitizeLabel strips anything not alphanumeric/underscore, as a defense
// in depth alongside isValidIdentifier's reject-on-invalid check.
func sanitizeLabel(label string) string {
	out := make([]byte, 0, len(label))
	for i := 0; i < len(label); i++ {
		c := label[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			out = append(out, c)
		}
	}
	return string(out)
}
