package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	pkgRetry "github.com/apostol-ai/agent-backend/internal/pkg/retry"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR,notEmpty"`

	// Database configuration
	DatabaseURL         string        `env:"DATABASE_URL,notEmpty"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Auth configuration
	AuthCfg AuthConfig `envPrefix:"AUTH_"`

	// External service configurations
	QdrantCfg    QdrantConfig    `envPrefix:"QDRANT_"`
	EmbeddingCfg EmbeddingConfig `envPrefix:"EMBEDDING_"`
	LLMCfg       LLMConfig       `envPrefix:"LLM_"`

	// Document pipeline configuration
	IngestCfg IngestConfig `envPrefix:"INGEST_"`

	// Chat configuration
	ChatCfg ChatConfig `envPrefix:"CHAT_"`

	// File upload configuration
	FileUploadCfg FileUploadConfig `envPrefix:"FILE_UPLOAD_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL,notEmpty"`

	// Mock configuration (run without external vector/LLM services)
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Telegram bot configuration (only needed for the telegram-bot binary)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Environment (set from flag, not from env var)
	Environment string
}

// AuthConfig holds JWT signing configuration
type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET,notEmpty"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
}

// QdrantConfig holds vector database connection settings.
// Port is the gRPC port (6334), not the HTTP REST port.
type QdrantConfig struct {
	Host           string               `env:"HOST,notEmpty"`
	Port           int                  `env:"PORT" envDefault:"6334"`
	UseTLS         bool                 `env:"USE_TLS" envDefault:"false"`
	RequestTimeout time.Duration        `env:"TIMEOUT" envDefault:"15s"`
	Retry          pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

// EmbeddingConfig configures the embedding provider. The same model must be
// used for indexing and querying or retrieval similarity is meaningless.
type EmbeddingConfig struct {
	BaseURL        string               `env:"BASE_URL,notEmpty"`
	Model          string               `env:"MODEL,notEmpty"`
	APIKey         string               `env:"API_KEY"`
	Dimension      int                  `env:"DIMENSION,notEmpty"`
	RequestTimeout time.Duration        `env:"TIMEOUT" envDefault:"30s"`
	Retry          pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

// LLMConfig configures the text-generation provider.
type LLMConfig struct {
	BaseURL        string               `env:"BASE_URL,notEmpty"`
	Model          string               `env:"MODEL,notEmpty"`
	APIKey         string               `env:"API_KEY"`
	RequestTimeout time.Duration        `env:"TIMEOUT" envDefault:"60s"`
	Retry          pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

// IngestConfig bounds document chunking.
type IngestConfig struct {
	UploadDir    string `env:"UPLOAD_DIR" envDefault:"uploaded_files"`
	ChunkMaxLen  int    `env:"CHUNK_MAX_LEN" envDefault:"1000"`
	ChunkOverlap int    `env:"CHUNK_OVERLAP" envDefault:"200"`
}

// ChatConfig bounds a single chat turn.
type ChatConfig struct {
	TopK          int `env:"TOP_K" envDefault:"5"`
	HistoryBudget int `env:"HISTORY_TOKEN_BUDGET" envDefault:"1500"`
}

// FileUploadConfig holds file upload limits
type FileUploadConfig struct {
	MaxFileSize   int64 `env:"MAX_FILE_SIZE" envDefault:"5242880"`    // 5 MiB
	MaxTotalSize  int64 `env:"MAX_TOTAL_SIZE" envDefault:"26214400"`  // 25 MiB
	MaxFileCount  int   `env:"MAX_FILE_COUNT" envDefault:"16"`
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"33554432"` // 32 MiB
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken      string        `env:"BOT_TOKEN"`
	OwnerEmail    string        `env:"OWNER_EMAIL"`
	UpdateTimeout int           `env:"UPDATE_TIMEOUT" envDefault:"30"`
	BindingTTL    time.Duration `env:"BINDING_TTL" envDefault:"24h"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		return fmt.Errorf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns)
	}
	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.EmbeddingCfg.Dimension < 1 && !cfg.EnableMocks {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", cfg.EmbeddingCfg.Dimension)
	}
	if cfg.IngestCfg.ChunkMaxLen < 1 {
		return fmt.Errorf("INGEST_CHUNK_MAX_LEN must be positive, got %d", cfg.IngestCfg.ChunkMaxLen)
	}
	if cfg.IngestCfg.ChunkOverlap < 0 || cfg.IngestCfg.ChunkOverlap >= cfg.IngestCfg.ChunkMaxLen {
		return fmt.Errorf("INGEST_CHUNK_OVERLAP must be in [0, CHUNK_MAX_LEN), got %d", cfg.IngestCfg.ChunkOverlap)
	}
	if cfg.ChatCfg.TopK < 1 {
		return fmt.Errorf("CHAT_TOP_K must be positive, got %d", cfg.ChatCfg.TopK)
	}
	if cfg.ChatCfg.HistoryBudget < 1 {
		return fmt.Errorf("CHAT_HISTORY_TOKEN_BUDGET must be positive, got %d", cfg.ChatCfg.HistoryBudget)
	}
	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
