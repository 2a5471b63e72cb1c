// Package fingerprint computes content-addressed node identity (spec §3
// "NodeFingerprint", "NodeID") via blake2b, generalizing the deterministic
// ID pattern the teacher's graph writer expects from upstream atomization.
package fingerprint

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"
)

// idLen is the number of hex characters kept from the blake2b digest
// (spec §3: "hex(blake2b(fingerprint_bytes))[:12]").
const idLen = 12

// Fingerprint is the tuple (path, canonical_ids) that identifies a node
// across batches. Two fingerprints are equal iff every component matches
// byte-wise after canonical string normalization.
type Fingerprint struct {
	Path string
	IDs  []KV
}

// KV is one canonicalized identity field (key, value) pair, ordered per
// the catalog's id_fields_by_path tuple.
type KV struct {
	Key   string
	Value string
}

// New builds a Fingerprint from a path and an ordered set of identity
// field names, pulling values from ids (already string-coerced by the
// normalizer) and canonicalizing each (trim and NFC; case is preserved).
func New(path string, orderedFields []string, ids map[string]string) Fingerprint {
	fp := Fingerprint{Path: path, IDs: make([]KV, 0, len(orderedFields))}
	for _, field := range orderedFields {
		v, ok := ids[field]
		if !ok {
			continue
		}
		fp.IDs = append(fp.IDs, KV{Key: field, Value: Canonicalize(v)})
	}
	return fp
}

// Canonicalize trims whitespace and NFC-normalizes a value, the way the
// normalizer's identity string-coercion step requires (spec §4.5 step 2:
// "coerced to string, trimmed, NFC-normalized"). Case is preserved here;
// case-insensitive comparison is a separate, narrower concern handled by
// ConfusableFold for the off-by-one repair heuristic.
func Canonicalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Empty reports whether the fingerprint carries no identity values at all
// — the degenerate case the parent-resolution "positional refusal" rule
// (spec §4.5 step 4, §4.7) must detect.
func (fp Fingerprint) Empty() bool {
	for _, kv := range fp.IDs {
		if kv.Value != "" {
			return false
		}
	}
	return true
}

// Bytes serializes the fingerprint deterministically: field order is
// already fixed by the catalog, so simple concatenation with separators
// that cannot occur in canonicalized values is sufficient and stable.
func (fp Fingerprint) Bytes() []byte {
	var sb strings.Builder
	sb.WriteString(fp.Path)
	sb.WriteByte('\x00')
	for _, kv := range fp.IDs {
		sb.WriteString(kv.Key)
		sb.WriteByte('=')
		sb.WriteString(kv.Value)
		sb.WriteByte('\x1f')
	}
	return []byte(sb.String())
}

// String renders a stable human-readable form, used for logging and as
// the map key inside the Node ID Registry.
func (fp Fingerprint) String() string {
	parts := make([]string, len(fp.IDs))
	for i, kv := range fp.IDs {
		parts[i] = fmt.Sprintf("%s=%s", kv.Key, kv.Value)
	}
	sort.Strings(parts) // key set is already ordered by catalog; sort only guards accidental reordering
	return fp.Path + "|" + strings.Join(parts, ",")
}

// NodeID computes the deterministic ID for className and fp: a pure
// function of (className, fp) across any number of independent registries
// or processes (spec §3 "NodeID", §8 "ID stability").
func NodeID(className string, fp Fingerprint) string {
	sum := blake2b.Sum256(fp.Bytes())
	return className + "_" + hex.EncodeToString(sum[:])[:idLen]
}

// ConfusableFold case-folds and strips combining marks for the off-by-one
// repair heuristic's near-miss comparison (spec §4.5 step 4
// "Unicode-confusable normalized equal") — a strictly fuzzier comparison
// than Canonicalize, never used for the primary fingerprint.
func ConfusableFold(s string) string {
	var sb strings.Builder
	for _, r := range norm.NFD.String(strings.ToLower(Canonicalize(s))) {
		if unicode.Is(unicode.Mn, r) {
			continue // drop combining marks after NFD decomposition
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
