package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/habitat-apps/docchat/internal/ai"
	"github.com/habitat-apps/docchat/internal/config"
	"github.com/habitat-apps/docchat/internal/db"
	"github.com/habitat-apps/docchat/internal/embedcache"
	"github.com/habitat-apps/docchat/internal/filestore"
	"github.com/habitat-apps/docchat/internal/handler"
	"github.com/habitat-apps/docchat/internal/job"
	"github.com/habitat-apps/docchat/internal/middleware"
	"github.com/habitat-apps/docchat/internal/rag"
	"github.com/habitat-apps/docchat/internal/repo"
	"github.com/habitat-apps/docchat/internal/schedule"
	"github.com/habitat-apps/docchat/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docchat",
		Short: "docchat backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docchat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	userRepo := repo.NewUserRepo(conn)
	docRepo := repo.NewDocumentRepo(conn)
	chunkRepo := repo.NewChunkRepo(conn)
	sessionRepo := repo.NewSessionRepo(conn)
	messageRepo := repo.NewMessageRepo(conn)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	providerArgs := cfg.AI.Data
	if providerArgs == nil {
		providerArgs = cfg.AI
	}
	aiProvider, err := ai.NewProvider(cfg.AI.Provider, providerArgs)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	aiProvider = ai.WrapTimeout(aiProvider, time.Duration(cfg.AI.TimeoutSeconds)*time.Second)
	chatter := ai.NewChatter(aiProvider, cfg.AI.ChatModel)
	embedder := ai.NewEmbedder(aiProvider, cfg.AI.EmbedModel)
	if cfg.AI.CacheSize > 0 {
		embedder = embedcache.WrapLRUCacheToEmbedder(embedder, cfg.AI.CacheSize,
			time.Duration(cfg.AI.CacheTTLMinutes)*time.Minute)
	}

	index := rag.NewVectorIndex()
	retriever := rag.NewRetriever(embedder, index, cfg.AI.TopK)
	synthesizer := rag.NewSynthesizer(chatter, retriever, rag.SynthesizerConfig{
		MaxTokens:    cfg.AI.MaxTokens,
		Temperature:  cfg.AI.Temperature,
		HistoryLimit: cfg.AI.HistoryLimit,
	})

	jwtTTL := time.Hour * time.Duration(cfg.JWTTTLHours)
	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), jwtTTL)
	documentService := service.NewDocumentService(docRepo, chunkRepo, sessionRepo, store, embedder, index,
		cfg.AI.ChunkSize, cfg.AI.ChunkOverlap)
	chatService := service.NewChatService(sessionRepo, messageRepo, docRepo, synthesizer)

	deps := handler.RouterDeps{
		Auth:            handler.NewAuthHandler(authService),
		Documents:       handler.NewDocumentHandler(documentService),
		Chat:            handler.NewChatHandler(chatService),
		JWTSecret:       []byte(cfg.JWTSecret),
		RateLimitWindow: time.Duration(cfg.RateLimitSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rehydrateJob := job.NewIndexRehydrateJob(docRepo, chunkRepo, index)
	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(rehydrateJob, cfg.RehydrateCron); err != nil {
		return fmt.Errorf("schedule rehydrate job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// warm the index before serving queries
	if err := rehydrateJob.Run(ctx); err != nil {
		logutil.GetLogger(ctx).Error("initial index rehydrate failed", zap.Error(err))
	}

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
