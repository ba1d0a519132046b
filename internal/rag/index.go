package rag

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// ErrDimensionMismatch means two vectors of different lengths met in a
// similarity computation. With a single embedding model in play this is an
// internal invariant violation, not a user-facing condition.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// SimilarityResult is one ranked chunk from a similarity search. Index is the
// chunk's original position within its document.
type SimilarityResult struct {
	Chunk string
	Score float32
	Index int
}

type indexEntry struct {
	chunks      []string
	vectors     [][]float32
	chunkCount  int
	processedAt time.Time
}

// VectorIndex is an in-memory, per-document store of (chunk, embedding)
// pairs. Entries are only ever replaced wholesale or removed; a Put either
// lands completely or not at all. All operations are safe for concurrent use;
// on concurrent overwrite of the same document the last successful Put wins.
type VectorIndex struct {
	mu      sync.RWMutex
	entries map[string]*indexEntry
}

func NewVectorIndex() *VectorIndex {
	return &VectorIndex{entries: make(map[string]*indexEntry)}
}

// Put replaces any existing entry for docID with the given chunk/vector set.
// Chunks and vectors must be parallel and all vectors must share one
// dimension; validation happens before any state changes.
func (x *VectorIndex) Put(docID string, chunks []string, vectors [][]float32) error {
	if docID == "" {
		return fmt.Errorf("document id is required")
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}
	for i := 1; i < len(vectors); i++ {
		if len(vectors[i]) != len(vectors[0]) {
			return fmt.Errorf("%w: vector %d has %d dims, expected %d", ErrDimensionMismatch, i, len(vectors[i]), len(vectors[0]))
		}
	}
	entry := &indexEntry{
		chunks:      make([]string, len(chunks)),
		vectors:     make([][]float32, len(vectors)),
		chunkCount:  len(chunks),
		processedAt: time.Now(),
	}
	copy(entry.chunks, chunks)
	for i, v := range vectors {
		vec := make([]float32, len(v))
		copy(vec, v)
		entry.vectors[i] = vec
	}
	x.mu.Lock()
	x.entries[docID] = entry
	x.mu.Unlock()
	return nil
}

// Search ranks the document's chunks by cosine similarity against query and
// returns the best topK, ties broken by original chunk order. An unknown
// docID yields an empty result, not an error: no evidence is a valid outcome.
func (x *VectorIndex) Search(docID string, query []float32, topK int) ([]SimilarityResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	entry, ok := x.entries[docID]
	if !ok {
		return []SimilarityResult{}, nil
	}
	results := make([]SimilarityResult, 0, len(entry.vectors))
	for i, vec := range entry.vectors {
		score, err := CosineSimilarity(query, vec)
		if err != nil {
			return nil, err
		}
		results = append(results, SimilarityResult{
			Chunk: entry.chunks[i],
			Score: score,
			Index: i,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Remove deletes the entry for docID; removing an absent document is a no-op.
func (x *VectorIndex) Remove(docID string) {
	x.mu.Lock()
	delete(x.entries, docID)
	x.mu.Unlock()
}

func (x *VectorIndex) Has(docID string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.entries[docID]
	return ok
}

// Keys lists the indexed document ids in no particular order.
func (x *VectorIndex) Keys() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	keys := make([]string, 0, len(x.entries))
	for id := range x.entries {
		keys = append(keys, id)
	}
	return keys
}

func (x *VectorIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Reset drops every entry. Intended for tests.
func (x *VectorIndex) Reset() {
	x.mu.Lock()
	x.entries = make(map[string]*indexEntry)
	x.mu.Unlock()
}

// CosineSimilarity computes dot(a,b) / (||a||*||b||). A zero vector carries
// no direction, so either norm being zero yields 0 rather than NaN.
func CosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}
