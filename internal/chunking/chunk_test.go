package chunking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPack_SingleBatchWhenEverythingFits(t *testing.T) {
	chunks := []Chunk{{Text: "a", TokenCount: 10}, {Text: "b", TokenCount: 10}}

	batches, warnings := Pack(chunks, 100, 0.85)

	require.Empty(t, warnings)
	require.Len(t, batches, 1)
	assert.Equal(t, []int{0, 1}, batches[0].ChunkIndices)
	assert.Equal(t, 20, batches[0].TotalTokens)
	assert.Contains(t, batches[0].CombinedText, boundaryMarker)
}

func TestPack_SplitsWhenBudgetExceeded(t *testing.T) {
	chunks := []Chunk{{Text: "a", TokenCount: 60}, {Text: "b", TokenCount: 60}}

	batches, warnings := Pack(chunks, 100, 0.0) // threshold 0 disables tail merge

	require.Empty(t, warnings)
	require.Len(t, batches, 2)
	assert.Equal(t, []int{0}, batches[0].ChunkIndices)
	assert.Equal(t, []int{1}, batches[1].ChunkIndices)
}

func TestPack_MergesSmallTailIntoPredecessor(t *testing.T) {
	chunks := []Chunk{{Text: "a", TokenCount: 90}, {Text: "b", TokenCount: 5}}

	batches, _ := Pack(chunks, 100, 0.85)

	require.Len(t, batches, 1)
	assert.Equal(t, []int{0, 1}, batches[0].ChunkIndices)
}

func TestPack_OversizedChunkWarnsButIsNotFatal(t *testing.T) {
	chunks := []Chunk{{Text: "huge", TokenCount: 500}}

	batches, warnings := Pack(chunks, 100, 0.85)

	require.Len(t, warnings, 1)
	require.Len(t, batches, 1)
	assert.Equal(t, 500, batches[0].TotalTokens)
}

func TestPack_Deterministic(t *testing.T) {
	chunks := []Chunk{{Text: "a", TokenCount: 30}, {Text: "b", TokenCount: 30}, {Text: "c", TokenCount: 30}}

	b1, _ := Pack(chunks, 100, 0.85)
	b2, _ := Pack(chunks, 100, 0.85)

	require.Len(t, b1, len(b2))
	for i := range b1 {
		assert.Equal(t, b1[i].ChunkIndices, b2[i].ChunkIndices)
		assert.Equal(t, b1[i].TotalTokens, b2[i].TotalTokens)
		assert.Equal(t, b1[i].BatchID, b2[i].BatchID)
	}
}

func TestPack_BatchIDIsSequential(t *testing.T) {
	chunks := []Chunk{{Text: "a", TokenCount: 60}, {Text: "b", TokenCount: 60}, {Text: "c", TokenCount: 60}}

	batches, _ := Pack(chunks, 100, 0.85)

	require.Len(t, batches, 3)
	assert.Equal(t, "batch-0000", batches[0].BatchID)
	assert.Equal(t, "batch-0001", batches[1].BatchID)
	assert.Equal(t, "batch-0002", batches[2].BatchID)
}

func TestPack_EmptyChunkList(t *testing.T) {
	batches, warnings := Pack(nil, 100, 0.85)
	assert.Empty(t, batches)
	assert.Empty(t, warnings)
}
