package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/habitat-apps/docchat/internal/model"
)

// ChunkRepo persists document chunks with their embedding vectors. The
// pgvector column has no fixed dimension so documents embedded by different
// models can coexist; per-document uniformity is enforced by the in-memory
// index on Put.
type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ReplaceAll atomically swaps the chunk set of a document. Re-uploads land
// here: old rows go away and the new chunk list takes their place in a
// single transaction.
func (r *ChunkRepo) ReplaceAll(ctx context.Context, docID string, chunks []model.DocumentChunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, docID); err != nil {
		return err
	}
	for _, chunk := range chunks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO document_chunks (document_id, position, content, embedding, ctime) VALUES ($1, $2, $3, $4, $5)`,
			chunk.DocumentID, chunk.Position, chunk.Content, pgvector.NewVector(chunk.Embedding), chunk.Ctime)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListByDoc returns a document's chunks ordered by position.
func (r *ChunkRepo) ListByDoc(ctx context.Context, docID string) ([]model.DocumentChunk, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT document_id, position, content, embedding, ctime FROM document_chunks WHERE document_id = $1 ORDER BY position ASC`,
		docID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var chunks []model.DocumentChunk
	for rows.Next() {
		var chunk model.DocumentChunk
		var vec pgvector.Vector
		if err := rows.Scan(&chunk.DocumentID, &chunk.Position, &chunk.Content, &vec, &chunk.Ctime); err != nil {
			return nil, err
		}
		chunk.Embedding = vec.Slice()
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepo) DeleteByDoc(ctx context.Context, docID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, docID)
	return err
}
