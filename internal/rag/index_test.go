package rag_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitat-apps/docchat/internal/rag"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{0.3, -1.2, 4.5, 0.01}

	self, err := rag.CosineSimilarity(a, a)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, self, 1e-6)

	neg := make([]float32, len(a))
	for i, v := range a {
		neg[i] = -v
	}
	opposite, err := rag.CosineSimilarity(a, neg)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, opposite, 1e-6)
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := rag.CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrDimensionMismatch)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	score, err := rag.CosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, float32(0), score)
}

func TestSearchUnknownDocument(t *testing.T) {
	index := rag.NewVectorIndex()
	results, err := index.Search("missing", []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPutFullyReplaces(t *testing.T) {
	index := rag.NewVectorIndex()
	require.NoError(t, index.Put("doc", []string{"old-a", "old-b"}, [][]float32{{1, 0}, {0, 1}}))
	require.NoError(t, index.Put("doc", []string{"new-a"}, [][]float32{{1, 0}}))

	results, err := index.Search("doc", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new-a", results[0].Chunk)
}

func TestPutRejectsMismatchedInput(t *testing.T) {
	index := rag.NewVectorIndex()
	err := index.Put("doc", []string{"a", "b"}, [][]float32{{1, 0}})
	require.Error(t, err)
	// invalid put must not leave a partial entry behind
	assert.False(t, index.Has("doc"))

	err = index.Put("doc", []string{"a", "b"}, [][]float32{{1, 0}, {1, 0, 0}})
	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrDimensionMismatch)
	assert.False(t, index.Has("doc"))
}

func TestSearchRankingAndTopK(t *testing.T) {
	index := rag.NewVectorIndex()
	require.NoError(t, index.Put("doc",
		[]string{"far", "near", "exact"},
		[][]float32{{0, 1}, {1, 0.2}, {1, 0}},
	))

	results, err := index.Search("doc", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact", results[0].Chunk)
	assert.Equal(t, "near", results[1].Chunk)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchStableTieOrder(t *testing.T) {
	index := rag.NewVectorIndex()
	// identical vectors, identical score: original chunk order must win
	require.NoError(t, index.Put("doc",
		[]string{"first", "second", "third"},
		[][]float32{{1, 0}, {1, 0}, {1, 0}},
	))

	results, err := index.Search("doc", []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{results[0].Index, results[1].Index, results[2].Index})
}

func TestSearchDimensionMismatch(t *testing.T) {
	index := rag.NewVectorIndex()
	require.NoError(t, index.Put("doc", []string{"a"}, [][]float32{{1, 0, 0}}))
	_, err := index.Search("doc", []float32{1, 0}, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, rag.ErrDimensionMismatch)
}

func TestRemoveIdempotent(t *testing.T) {
	index := rag.NewVectorIndex()
	require.NoError(t, index.Put("doc", []string{"a"}, [][]float32{{1}}))
	index.Remove("doc")
	assert.False(t, index.Has("doc"))
	index.Remove("doc")
	index.Remove("never-existed")
}

func TestConcurrentPutSearchRemove(t *testing.T) {
	index := rag.NewVectorIndex()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = index.Put("doc", []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}})
				results, err := index.Search("doc", []float32{1, 0}, 2)
				assert.NoError(t, err)
				// never observe a half-replaced entry
				assert.True(t, len(results) == 0 || len(results) == 2)
				index.Remove("doc")
			}
		}()
	}
	wg.Wait()
}
