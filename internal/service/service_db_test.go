package service_test

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/habitat-apps/docchat/internal/ai"
	"github.com/habitat-apps/docchat/internal/config"
	"github.com/habitat-apps/docchat/internal/db"
	"github.com/habitat-apps/docchat/internal/filestore"
	appErr "github.com/habitat-apps/docchat/internal/pkg/errors"
	"github.com/habitat-apps/docchat/internal/rag"
	"github.com/habitat-apps/docchat/internal/repo"
	"github.com/habitat-apps/docchat/internal/service"
)

func openTestDB(t *testing.T) *sql.DB {
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}
	port := 5432
	if v := os.Getenv("TEST_DB_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		require.NoError(t, err)
		port = p
	}
	cfg := config.DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     envOr("TEST_DB_USER", "postgres"),
		Password: envOr("TEST_DB_PASS", "postgres"),
		DBName:   envOr("TEST_DB_NAME", "docchat_test"),
	}
	conn, err := db.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations(conn))
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		sum := sha256.Sum256([]byte(text))
		vec := make([]float32, 8)
		for i := range vec {
			vec[i] = float32(sum[i]) / 255
		}
		out = append(out, vec)
	}
	return out, nil
}

func (stubEmbedder) ModelName() string { return "stub-embed" }

type stubChatter struct {
	reply string
}

func (s stubChatter) Chat(_ context.Context, _ []ai.Message, _ ai.ChatOptions) (string, error) {
	return s.reply, nil
}

func newTestUser(t *testing.T, conn *sql.DB) string {
	auth := service.NewAuthService(repo.NewUserRepo(conn), []byte("test-secret"), time.Hour)
	email := fmt.Sprintf("u%d@test.local", time.Now().UnixNano())
	user, _, err := auth.Register(context.Background(), email, "password123")
	require.NoError(t, err)
	return user.ID
}

func newTestStore(t *testing.T) filestore.Store {
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)
	return store
}

func TestDocumentLifecycle(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	userID := newTestUser(t, conn)

	docRepo := repo.NewDocumentRepo(conn)
	chunkRepo := repo.NewChunkRepo(conn)
	sessionRepo := repo.NewSessionRepo(conn)
	index := rag.NewVectorIndex()
	docs := service.NewDocumentService(docRepo, chunkRepo, sessionRepo, newTestStore(t), stubEmbedder{}, index, 100, 20)

	doc, err := docs.Ingest(ctx, userID, "lease.txt", []byte("The tenant must pay rent monthly. The landlord must keep the property in repair."), false)
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)
	require.Greater(t, doc.ChunkCount, 0)
	require.True(t, index.Has(doc.ID))

	stored, err := chunkRepo.ListByDoc(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, stored, doc.ChunkCount)

	// same name, no overwrite
	_, err = docs.Ingest(ctx, userID, "lease.txt", []byte("different content entirely."), false)
	var conflict *appErr.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, appErr.ConflictNameExists, conflict.Code)
	require.Equal(t, doc.ID, conflict.DocumentID)

	// same content under another name
	_, err = docs.Ingest(ctx, userID, "copy.txt", []byte("The tenant must pay rent monthly. The landlord must keep the property in repair."), false)
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, appErr.ConflictDuplicateFile, conflict.Code)

	// overwrite set: the duplicate-content check does not apply
	dup, err := docs.Ingest(ctx, userID, "copy.txt", []byte("The tenant must pay rent monthly. The landlord must keep the property in repair."), true)
	require.NoError(t, err)
	require.NotEqual(t, doc.ID, dup.ID)
	require.NoError(t, docs.Remove(ctx, userID, dup.ID))

	// overwrite keeps the document id
	updated, err := docs.Ingest(ctx, userID, "lease.txt", []byte("Entirely new lease terms. The deposit is two months of rent."), true)
	require.NoError(t, err)
	require.Equal(t, doc.ID, updated.ID)

	require.NoError(t, docs.Remove(ctx, userID, doc.ID))
	_, err = docs.Get(ctx, userID, doc.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.False(t, index.Has(doc.ID))
}

func TestIngestRejectsEmptyDocument(t *testing.T) {
	conn := openTestDB(t)
	userID := newTestUser(t, conn)

	docs := service.NewDocumentService(repo.NewDocumentRepo(conn), repo.NewChunkRepo(conn), repo.NewSessionRepo(conn),
		newTestStore(t), stubEmbedder{}, rag.NewVectorIndex(), 100, 20)
	_, err := docs.Ingest(context.Background(), userID, "blank.txt", []byte("   \n\t  "), false)
	require.ErrorIs(t, err, appErr.ErrEmptyDocument)
}

func TestAskFlow(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	userID := newTestUser(t, conn)

	docRepo := repo.NewDocumentRepo(conn)
	sessionRepo := repo.NewSessionRepo(conn)
	messageRepo := repo.NewMessageRepo(conn)
	index := rag.NewVectorIndex()
	docs := service.NewDocumentService(docRepo, repo.NewChunkRepo(conn), sessionRepo, newTestStore(t), stubEmbedder{}, index, 100, 20)

	doc, err := docs.Ingest(ctx, userID, "lease.txt", []byte("The tenant must pay rent monthly. The landlord must keep the property in repair."), false)
	require.NoError(t, err)

	retriever := rag.NewRetriever(stubEmbedder{}, index, 3)
	synthesizer := rag.NewSynthesizer(stubChatter{reply: "Rent is due monthly."}, retriever, rag.SynthesizerConfig{})
	chat := service.NewChatService(sessionRepo, messageRepo, docRepo, synthesizer)

	session, err := chat.CreateSession(ctx, userID, doc.ID, "")
	require.NoError(t, err)

	result, err := chat.Ask(ctx, userID, session.ID, "When is the rent due?")
	require.NoError(t, err)
	require.Equal(t, "Rent is due monthly.", result.AssistantMessage.Content)
	require.NotEmpty(t, result.Sources)

	msgs, err := chat.ListMessages(ctx, userID, session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "When is the rent due?", msgs[0].Content)

	// first question becomes the session title
	refreshed, err := chat.GetSession(ctx, userID, session.ID)
	require.NoError(t, err)
	require.Equal(t, "When is the rent due?", refreshed.Title)
}

func TestAskWithoutDocument(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	userID := newTestUser(t, conn)

	docRepo := repo.NewDocumentRepo(conn)
	sessionRepo := repo.NewSessionRepo(conn)
	messageRepo := repo.NewMessageRepo(conn)
	retriever := rag.NewRetriever(stubEmbedder{}, rag.NewVectorIndex(), 3)
	synthesizer := rag.NewSynthesizer(stubChatter{reply: "unused"}, retriever, rag.SynthesizerConfig{})
	chat := service.NewChatService(sessionRepo, messageRepo, docRepo, synthesizer)

	session, err := chat.CreateSession(ctx, userID, "", "")
	require.NoError(t, err)

	result, err := chat.Ask(ctx, userID, session.ID, "Anything there?")
	require.NoError(t, err)
	require.Equal(t, service.NoDocumentResponse, result.AssistantMessage.Content)
	require.Empty(t, result.Sources)
}
