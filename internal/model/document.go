package model

type Document struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	OriginalName string `json:"original_name"`
	FileKey      string `json:"file_key"`
	ContentHash  string `json:"content_hash"`
	Content      string `json:"-"`
	ChunkCount   int    `json:"chunk_count"`
	Ctime        int64  `json:"ctime"`
	Mtime        int64  `json:"mtime"`
}
