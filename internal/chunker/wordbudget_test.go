package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int, word string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = word
	}
	return strings.Join(parts, " ")
}

func TestWordBudgetChunkerEmptyTextProducesNoChunks(t *testing.T) {
	c := WordBudgetChunker{TargetWords: 100, MinWords: 10, MaxWords: 150, OverlapWords: 10}
	assert.Nil(t, c.Chunk(""))
}

func TestWordBudgetChunkerShortTextIsOneEndOfDocumentChunk(t *testing.T) {
	c := WordBudgetChunker{TargetWords: 100, MinWords: 10, MaxWords: 150, OverlapWords: 10}
	chunks := c.Chunk(words(50, "word"))
	require.Len(t, chunks, 1)
	assert.Equal(t, BoundaryEndOfDocument, chunks[0].BoundaryType)
	assert.Equal(t, 50, chunks[0].WordCount)
}

func TestWordBudgetChunkerHardCutsAtMaxWordsWithoutSentenceBoundary(t *testing.T) {
	c := WordBudgetChunker{TargetWords: 20, MinWords: 5, MaxWords: 30, OverlapWords: 5}
	text := words(100, "token")
	chunks := c.Chunk(text)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks[:len(chunks)-1] {
		assert.Equal(t, BoundaryHardCut, ch.BoundaryType)
		assert.LessOrEqual(t, ch.WordCount, 30)
	}
	assert.Equal(t, BoundaryEndOfDocument, chunks[len(chunks)-1].BoundaryType)
}

func TestWordBudgetChunkerPrefersSentenceBoundaryNearTarget(t *testing.T) {
	c := WordBudgetChunker{TargetWords: 10, MinWords: 3, MaxWords: 20, OverlapWords: 2}
	text := words(9, "word") + ". " + words(40, "more")
	chunks := c.Chunk(text)
	require.NotEmpty(t, chunks)
	assert.Equal(t, BoundarySemantic, chunks[0].BoundaryType)
	assert.True(t, strings.HasSuffix(chunks[0].Text, "."))
	assert.Less(t, chunks[0].WordCount, c.MaxWords)
}

func TestWordBudgetChunkerOverlapsConsecutiveChunks(t *testing.T) {
	c := WordBudgetChunker{TargetWords: 10, MinWords: 3, MaxWords: 15, OverlapWords: 4}
	text := words(60, "x")
	chunks := c.Chunk(text)
	require.Greater(t, len(chunks), 1)
	assert.Less(t, chunks[1].StartPosition, chunks[0].EndPosition)
}

func TestWordBudgetChunkerNumbersChunksSequentially(t *testing.T) {
	c := WordBudgetChunker{TargetWords: 10, MinWords: 3, MaxWords: 15, OverlapWords: 2}
	chunks := c.Chunk(words(60, "x"))
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkNumber)
	}
}
