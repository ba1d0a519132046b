package model

// DocumentChunk is the persisted form of one indexed chunk. The embedding is
// kept in Postgres for audit and for rehydrating the in-memory index after a
// restart; ranking never reads it directly.
type DocumentChunk struct {
	DocumentID string    `json:"document_id"`
	Position   int       `json:"position"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding"`
	Ctime      int64     `json:"ctime"`
}
