package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/habitat-apps/docchat/internal/rag"
	"github.com/habitat-apps/docchat/internal/repo"
)

// IndexRehydrateJob reloads persisted chunk embeddings into the in-memory
// vector index. The index is authoritative only while the process lives, so
// after a restart (or a crash between indexing and persisting) this job
// brings the two back in line. Documents already present in the index are
// left untouched.
type IndexRehydrateJob struct {
	docRepo   *repo.DocumentRepo
	chunkRepo *repo.ChunkRepo
	index     *rag.VectorIndex
}

func NewIndexRehydrateJob(docRepo *repo.DocumentRepo, chunkRepo *repo.ChunkRepo, index *rag.VectorIndex) *IndexRehydrateJob {
	return &IndexRehydrateJob{docRepo: docRepo, chunkRepo: chunkRepo, index: index}
}

func (j *IndexRehydrateJob) Name() string {
	return "index_rehydrate"
}

func (j *IndexRehydrateJob) Run(ctx context.Context) error {
	logger := logutil.GetLogger(ctx)
	ids, err := j.docRepo.ListAllIDs(ctx)
	if err != nil {
		return err
	}
	var loaded, skipped int
	for _, id := range ids {
		if j.index.Has(id) {
			skipped++
			continue
		}
		chunks, err := j.chunkRepo.ListByDoc(ctx, id)
		if err != nil {
			logger.Error("load chunks failed", zap.String("document_id", id), zap.Error(err))
			continue
		}
		if len(chunks) == 0 {
			continue
		}
		contents := make([]string, 0, len(chunks))
		vectors := make([][]float32, 0, len(chunks))
		for _, chunk := range chunks {
			contents = append(contents, chunk.Content)
			vectors = append(vectors, chunk.Embedding)
		}
		if err := j.index.Put(id, contents, vectors); err != nil {
			logger.Error("rehydrate document failed", zap.String("document_id", id), zap.Error(err))
			continue
		}
		loaded++
	}
	if loaded > 0 {
		logger.Info("index rehydrated", zap.Int("loaded", loaded), zap.Int("skipped", skipped), zap.Int("total", len(ids)))
	}
	return nil
}
