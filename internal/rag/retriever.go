package rag

import (
	"context"
	"fmt"

	"github.com/habitat-apps/docchat/internal/ai"
)

const DefaultTopK = 3

// Retriever embeds a query through the embedding gateway and ranks a
// document's indexed chunks against it.
type Retriever struct {
	embedder ai.IEmbedder
	index    *VectorIndex
	topK     int
}

func NewRetriever(embedder ai.IEmbedder, index *VectorIndex, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, index: index, topK: topK}
}

func (r *Retriever) Retrieve(ctx context.Context, docID, query string) ([]SimilarityResult, error) {
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vectors))
	}
	return r.index.Search(docID, vectors[0], r.topK)
}
