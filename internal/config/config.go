package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Database         DatabaseConfig   `json:"database"`
	Port             int              `json:"port"`
	JWTSecret        string           `json:"jwt_secret"`
	JWTTTLHours      int              `json:"jwt_ttl_hours"`
	LogConfig        logger.LogConfig `json:"log_config"`
	FileStore        FileStoreConfig  `json:"file_store"`
	AI               AIConfig         `json:"ai"`
	CORSAllowlist    []string         `json:"cors_allowlist"`
	RehydrateCron    string           `json:"rehydrate_cron"`
	RateLimitSeconds int              `json:"rate_limit_seconds"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Provider        string      `json:"provider"`
	Data            interface{} `json:"data"`
	ChatModel       string      `json:"chat_model"`
	EmbedModel      string      `json:"embed_model"`
	MaxTokens       int         `json:"max_tokens"`
	Temperature     float32     `json:"temperature"`
	TopK            int         `json:"top_k"`
	ChunkSize       int         `json:"chunk_size"`
	ChunkOverlap    int         `json:"chunk_overlap"`
	HistoryLimit    int         `json:"history_limit"`
	CacheSize       int         `json:"cache_size"`
	CacheTTLMinutes int         `json:"cache_ttl_minutes"`
	TimeoutSeconds  int         `json:"timeout_seconds"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.ChatModel == "" || cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.chat_model and ai.embed_model are required")
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 500
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.3
	}
	if cfg.AI.TopK == 0 {
		cfg.AI.TopK = 3
	}
	if cfg.AI.ChunkSize == 0 {
		cfg.AI.ChunkSize = 1000
	}
	if cfg.AI.ChunkOverlap == 0 {
		cfg.AI.ChunkOverlap = 200
	}
	if cfg.AI.ChunkOverlap >= cfg.AI.ChunkSize {
		return nil, fmt.Errorf("ai.chunk_overlap must be smaller than ai.chunk_size")
	}
	if cfg.AI.HistoryLimit == 0 {
		cfg.AI.HistoryLimit = 6
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 60
	}
	if cfg.RateLimitSeconds == 0 {
		cfg.RateLimitSeconds = 1
	}
	if cfg.RehydrateCron == "" {
		cfg.RehydrateCron = "*/5 * * * *"
	}
	return &cfg, nil
}
