package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docling-graph/core/internal/fingerprint"
)

func TestAssign_StableAcrossRepeatedCalls(t *testing.T) {
	r := New()
	fp := fingerprint.New("line_items[]", []string{"line_number"}, map[string]string{"line_number": "1"})

	id1 := r.Assign("LineItem", fp)
	id2 := r.Assign("LineItem", fp)

	assert.Equal(t, id1, id2)
}

func TestAssign_ConcurrentCallsConverge(t *testing.T) {
	r := New()
	fp := fingerprint.New("line_items[]", []string{"line_number"}, map[string]string{"line_number": "1"})

	var wg sync.WaitGroup
	ids := make([]string, 50)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = r.Assign("LineItem", fp)
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestLookup_MissReturnsFalse(t *testing.T) {
	r := New()
	fp := fingerprint.New("line_items[]", []string{"line_number"}, map[string]string{"line_number": "1"})
	_, ok := r.Lookup("LineItem", fp)
	assert.False(t, ok)
}

func TestCandidatesAtPath_SingleCandidate(t *testing.T) {
	r := New()
	fp := fingerprint.New("line_items[]", []string{"line_number"}, map[string]string{"line_number": "1"})
	r.Assign("LineItem", fp)

	candidates := r.CandidatesAtPath("line_items[]")
	assert.Len(t, candidates, 1)
}

func TestFuzzyMatch_OffByOneCaseFold(t *testing.T) {
	r := New()
	fp := fingerprint.New("line_items[]", []string{"line_number"}, map[string]string{"line_number": "INV-1"})
	r.Assign("LineItem", fp)

	candidates := r.CandidatesAtPath("line_items[]")
	match, ok := FuzzyMatch(candidates, map[string]string{"line_number": "inv-1"})
	assert.True(t, ok)
	assert.Equal(t, fp, match)
}

func TestFuzzyMatch_MultipleCandidatesRefused(t *testing.T) {
	r := New()
	r.Assign("LineItem", fingerprint.New("line_items[]", []string{"line_number"}, map[string]string{"line_number": "1"}))
	r.Assign("LineItem", fingerprint.New("line_items[]", []string{"line_number"}, map[string]string{"line_number": "01"}))

	candidates := r.CandidatesAtPath("line_items[]")
	_, ok := FuzzyMatch(candidates, map[string]string{"line_number": "1"})
	assert.False(t, ok)
}

func TestStats_CountsPerClass(t *testing.T) {
	r := New()
	r.Assign("LineItem", fingerprint.New("line_items[]", []string{"line_number"}, map[string]string{"line_number": "1"}))
	r.Assign("LineItem", fingerprint.New("line_items[]", []string{"line_number"}, map[string]string{"line_number": "2"}))

	assert.Equal(t, 2, r.Stats()["LineItem"])
}
