package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/habitat-apps/docchat/internal/ai"
	"github.com/habitat-apps/docchat/internal/extract"
	"github.com/habitat-apps/docchat/internal/filestore"
	"github.com/habitat-apps/docchat/internal/model"
	appErr "github.com/habitat-apps/docchat/internal/pkg/errors"
	"github.com/habitat-apps/docchat/internal/rag"
	"github.com/habitat-apps/docchat/internal/repo"
)

type DocumentService struct {
	docs         *repo.DocumentRepo
	chunks       *repo.ChunkRepo
	sessions     *repo.SessionRepo
	store        filestore.Store
	embedder     ai.IEmbedder
	index        *rag.VectorIndex
	chunkSize    int
	chunkOverlap int
}

func NewDocumentService(docs *repo.DocumentRepo, chunks *repo.ChunkRepo, sessions *repo.SessionRepo,
	store filestore.Store, embedder ai.IEmbedder, index *rag.VectorIndex, chunkSize, chunkOverlap int) *DocumentService {

	return &DocumentService{
		docs:         docs,
		chunks:       chunks,
		sessions:     sessions,
		store:        store,
		embedder:     embedder,
		index:        index,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

type byteFile struct {
	*bytes.Reader
}

func (byteFile) Close() error { return nil }

// Ingest extracts, chunks, embeds and indexes one uploaded file. Without
// overwrite, a name collision or a content collision with another document
// is reported as a ConflictError carrying the existing document's identity;
// overwrite bypasses both checks. On overwrite the document keeps its id, so
// existing chat sessions keep pointing at the fresh content.
func (s *DocumentService) Ingest(ctx context.Context, userID, filename string, data []byte, overwrite bool) (*model.Document, error) {
	extractor, err := extract.For(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrInvalid, err)
	}
	text, err := extractor.Extract(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrInvalid, err)
	}
	text = rag.Normalize(text)
	if text == "" {
		return nil, appErr.ErrEmptyDocument
	}
	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])

	var docID string
	var existing *model.Document
	byName, err := s.docs.GetByName(ctx, userID, filename)
	switch {
	case err == nil:
		if !overwrite {
			return nil, &appErr.ConflictError{
				Code:         appErr.ConflictNameExists,
				DocumentID:   byName.ID,
				OriginalName: byName.OriginalName,
			}
		}
		docID = byName.ID
		existing = byName
	case !appErr.IsNotFound(err):
		return nil, err
	}
	if !overwrite {
		byHash, err := s.docs.GetByHash(ctx, userID, contentHash)
		if err == nil {
			return nil, &appErr.ConflictError{
				Code:         appErr.ConflictDuplicateFile,
				DocumentID:   byHash.ID,
				OriginalName: byHash.OriginalName,
			}
		}
		if !appErr.IsNotFound(err) {
			return nil, err
		}
	}

	chunks := rag.Chunk(text, s.chunkSize, s.chunkOverlap)
	if len(chunks) == 0 {
		return nil, appErr.ErrEmptyDocument
	}
	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if docID == "" {
		docID = newID()
	}
	if err := s.index.Put(docID, chunks, vectors); err != nil {
		return nil, err
	}

	now := nowUnix()
	fileKey := docID + strings.ToLower(filepath.Ext(filename))
	if err := s.store.Save(ctx, fileKey, byteFile{bytes.NewReader(data)}, int64(len(data))); err != nil {
		logutil.GetLogger(ctx).Error("archive upload failed", zap.String("document_id", docID), zap.Error(err))
	}
	doc := &model.Document{
		ID:           docID,
		UserID:       userID,
		OriginalName: filename,
		FileKey:      fileKey,
		ContentHash:  contentHash,
		Content:      text,
		ChunkCount:   len(chunks),
		Ctime:        now,
		Mtime:        now,
	}
	if existing != nil {
		doc.Ctime = existing.Ctime
		if err := s.docs.Update(ctx, doc); err != nil {
			return nil, err
		}
	} else {
		if err := s.docs.Create(ctx, doc); err != nil {
			return nil, err
		}
	}
	rows := make([]model.DocumentChunk, 0, len(chunks))
	for i, content := range chunks {
		rows = append(rows, model.DocumentChunk{
			DocumentID: docID,
			Position:   i,
			Content:    content,
			Embedding:  vectors[i],
			Ctime:      now,
		})
	}
	if err := s.chunks.ReplaceAll(ctx, docID, rows); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("document ingested",
		zap.String("document_id", docID),
		zap.String("name", filename),
		zap.Int("chunks", len(chunks)),
		zap.Bool("overwrite", existing != nil))
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, userID, docID string) (*model.Document, error) {
	return s.docs.GetByID(ctx, userID, docID)
}

func (s *DocumentService) List(ctx context.Context, userID string) ([]model.Document, error) {
	return s.docs.List(ctx, userID)
}

// Remove deletes a document plus its chunks, sessions and archived file.
// Persisted rows go first so a crash cannot leave searchable chunks without
// a document; the in-memory index entry is dropped last.
func (s *DocumentService) Remove(ctx context.Context, userID, docID string) error {
	doc, err := s.docs.GetByID(ctx, userID, docID)
	if err != nil {
		return err
	}
	if err := s.sessions.DeleteByDocument(ctx, userID, docID); err != nil {
		return err
	}
	if err := s.chunks.DeleteByDoc(ctx, docID); err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, userID, docID); err != nil {
		return err
	}
	if doc.FileKey != "" {
		if err := s.store.Delete(ctx, doc.FileKey); err != nil {
			logutil.GetLogger(ctx).Error("delete archived file failed", zap.String("key", doc.FileKey), zap.Error(err))
		}
	}
	s.index.Remove(docID)
	logutil.GetLogger(ctx).Info("document removed", zap.String("document_id", docID))
	return nil
}
