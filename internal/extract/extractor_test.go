package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docling-graph/core/internal/catalog"
	"github.com/docling-graph/core/internal/chunking"
	"github.com/docling-graph/core/internal/completer"
)

func testCatalog(t *testing.T) *catalog.PathCatalog {
	t.Helper()
	s := &catalog.Schema{
		RootClass: "Invoice",
		Classes: map[string]catalog.ClassDef{
			"Invoice": {Name: "Invoice", IdentityFields: []string{"document_number"}},
		},
	}
	cat, err := catalog.Compile(s)
	require.NoError(t, err)
	return cat
}

func TestExtract_ParsesValidBatchIR(t *testing.T) {
	fake := completer.NewFake(`{"nodes":[{"path":"","ids":{"document_number":"INV-1"},"properties":{}}]}`)
	e := New(fake, testCatalog(t), 2, true, true, 0)

	out, err := e.Extract(context.Background(), chunking.Batch{BatchID: "b1", CombinedText: "text"})

	require.NoError(t, err)
	require.Len(t, out.Nodes, 1)
	assert.Equal(t, "b1", out.BatchID)
}

func TestExtract_RetriesOnParseFailure(t *testing.T) {
	fake := &completer.Fake{Queue: []string{"not json", `{"nodes":[]}`}}
	e := New(fake, testCatalog(t), 2, true, false, 0)

	out, err := e.Extract(context.Background(), chunking.Batch{BatchID: "b1", CombinedText: "text"})

	require.NoError(t, err)
	assert.Empty(t, out.Nodes)
	assert.Equal(t, 2, fake.CallCount())
}

func TestExtract_SparseEnvelopeRetried(t *testing.T) {
	fake := &completer.Fake{Queue: []string{`{"nodes":[]}`, `{"nodes":[{"path":"","ids":{},"properties":{}}]}`}}
	e := New(fake, testCatalog(t), 2, true, true, 0)

	out, err := e.Extract(context.Background(), chunking.Batch{BatchID: "b1", CombinedText: "text"})

	require.NoError(t, err)
	require.Len(t, out.Nodes, 1)
}

func TestExtract_ExhaustsRetriesReturnsExtractionFailure(t *testing.T) {
	fake := &completer.Fake{Err: assertErr{}}
	e := New(fake, testCatalog(t), 1, true, true, 0)

	_, err := e.Extract(context.Background(), chunking.Batch{BatchID: "b1", CombinedText: "text"})

	require.Error(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
