package rag_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitat-apps/docchat/internal/rag"
)

func TestChunkShortTextSingleChunk(t *testing.T) {
	chunks := rag.Chunk("  hello   world  ", 100, 10)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestChunkEmptyText(t *testing.T) {
	assert.Empty(t, rag.Chunk("", 100, 10))
	assert.Empty(t, rag.Chunk("   \n\t  ", 100, 10))
}

func TestChunkSentenceBoundary(t *testing.T) {
	text := "The tenant must pay rent. The landlord must maintain repairs."
	chunks := rag.Chunk(text, 40, 5)

	require.GreaterOrEqual(t, len(chunks), 2)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 40+1)
	}
	// first chunk snaps to the sentence boundary
	assert.Equal(t, "The tenant must pay rent.", chunks[0])
	// the overlap region of chunk 1 reappears at the head of chunk 2
	tail := chunks[0][len(chunks[0])-5:]
	assert.True(t, strings.HasPrefix(chunks[1], tail))
}

func TestChunkNewlinesNormalizedBeforeSplitting(t *testing.T) {
	text := "The tenant must pay rent.\nThe landlord must maintain repairs.\nNotice is thirty days."
	chunks := rag.Chunk(text, 40, 5)

	require.GreaterOrEqual(t, len(chunks), 2)
	for _, chunk := range chunks {
		assert.NotContains(t, chunk, "\n")
	}
	// boundaries come from sentence terminators, same as space-separated input
	assert.Equal(t, "The tenant must pay rent.", chunks[0])
}

func TestChunkCoversInput(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta. ", 50)
	size, overlap := 100, 20
	chunks := rag.Chunk(text, size, overlap)
	require.NotEmpty(t, chunks)

	// every chunk must reappear at or after the position where the previous
	// chunk left off minus the overlap, so discounting overlap there are no
	// coverage gaps
	normalized := strings.Join(strings.Fields(text), " ")
	cursor := 0
	for i, chunk := range chunks {
		pos := strings.Index(normalized[cursor:], chunk)
		require.GreaterOrEqualf(t, pos, 0, "chunk %d not found after cursor", i)
		next := cursor + pos + len(chunk) - overlap
		if next < cursor {
			next = cursor
		}
		cursor = next
	}
	assert.GreaterOrEqual(t, cursor+overlap, len(normalized))
}

func TestChunkNoOverlap(t *testing.T) {
	text := strings.Repeat("x", 250)
	chunks := rag.Chunk(text, 100, 0)
	require.Len(t, chunks, 3)
	assert.Equal(t, 250, len(chunks[0])+len(chunks[1])+len(chunks[2]))
}

func TestChunkDefaultsOnBadParams(t *testing.T) {
	text := strings.Repeat("word ", 300)
	// negative overlap and zero size fall back to sane values instead of
	// looping forever
	chunks := rag.Chunk(text, 0, -5)
	require.NotEmpty(t, chunks)
}
