package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/apostol-ai/agent-backend/internal/api"
	agentapi "github.com/apostol-ai/agent-backend/internal/api/agent"
	chatapi "github.com/apostol-ai/agent-backend/internal/api/chat"
	userapi "github.com/apostol-ai/agent-backend/internal/api/user"
	"github.com/apostol-ai/agent-backend/internal/auth"
	"github.com/apostol-ai/agent-backend/internal/chunkstore"
	"github.com/apostol-ai/agent-backend/internal/config"
	"github.com/apostol-ai/agent-backend/internal/filestore"
	"github.com/apostol-ai/agent-backend/internal/ingest"
	"github.com/apostol-ai/agent-backend/internal/integration/embedding"
	"github.com/apostol-ai/agent-backend/internal/integration/llm"
	"github.com/apostol-ai/agent-backend/internal/pkg/formatter"
	"github.com/apostol-ai/agent-backend/internal/pkg/validator"
	"github.com/apostol-ai/agent-backend/internal/repository"
	"github.com/apostol-ai/agent-backend/internal/telegram"
	"github.com/apostol-ai/agent-backend/internal/usecase/agent"
	"github.com/apostol-ai/agent-backend/internal/usecase/chat"
	"github.com/apostol-ai/agent-backend/internal/usecase/indexer"
	"github.com/apostol-ai/agent-backend/internal/usecase/user"
	"go.uber.org/zap"
)

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	// Setup database connection
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}

	// Run database migrations
	logger.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize repositories
	userRepo := repository.NewUserPostgres(db)
	agentRepo := repository.NewAgentPostgres(db)
	docRepo := repository.NewDocumentPostgres(db)
	messageRepo := repository.NewMessagePostgres(db)
	logger.Info("Repositories initialized")

	// Initialize file storage
	files, err := filestore.NewLocalStore(cfg.IngestCfg.UploadDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("setup file store: %w", err)
	}

	// Initialize external service connectors (with mock support)
	store, embedder, generator, err := setupConnectors(cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Initialize validators
	fileValidator := validator.NewValidator(cfg.FileUploadCfg)
	logger.Info("Validators initialized")

	// Initialize auth
	authManager := auth.NewManager(cfg.AuthCfg)

	// Initialize use cases
	userUC := user.NewUsecase(userRepo, authManager, fileValidator, logger)

	indexerUC := indexer.NewUsecase(
		ingest.NewLoader(),
		ingest.NewChunker(cfg.IngestCfg.ChunkMaxLen, cfg.IngestCfg.ChunkOverlap),
		embedder,
		store,
		logger,
	)

	agentUC := agent.NewUsecase(
		agentRepo,
		docRepo,
		files,
		indexerUC,
		fileValidator,
		logger,
	)

	chatUC := chat.NewUsecase(
		agentRepo,
		messageRepo,
		embedder,
		store,
		generator,
		formatter.NewFactory(),
		cfg.ChatCfg,
		logger,
	)
	logger.Info("Use cases initialized")

	// Setup API handlers
	userHandler := userapi.NewHandler(userUC)
	agentHandler := agentapi.NewHandler(agentUC, cfg.FileUploadCfg)
	chatHandler := chatapi.NewHandler(chatUC)
	logger.Info("API handlers initialized")

	// Setup router
	router := api.SetupRouter(userHandler, agentHandler, chatHandler, authManager, logger)
	logger.Info("HTTP router configured")

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server: server,
		db:     db,
		logger: logger,
	}, nil
}

// BuildTelegramBot creates and initializes the Telegram bot
func BuildTelegramBot() (*telegram.Bot, *zap.Logger, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building Telegram bot",
		zap.String("environment", cfg.Environment),
	)

	// Setup database connection
	db, err := setupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("setup database: %w", err)
	}

	// Run database migrations
	logger.Info("Running database migrations")
	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize repositories
	userRepo := repository.NewUserPostgres(db)
	agentRepo := repository.NewAgentPostgres(db)
	docRepo := repository.NewDocumentPostgres(db)
	messageRepo := repository.NewMessagePostgres(db)
	logger.Info("Repositories initialized")

	files, err := filestore.NewLocalStore(cfg.IngestCfg.UploadDir)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("setup file store: %w", err)
	}

	store, embedder, generator, err := setupConnectors(cfg, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	fileValidator := validator.NewValidator(cfg.FileUploadCfg)

	indexerUC := indexer.NewUsecase(
		ingest.NewLoader(),
		ingest.NewChunker(cfg.IngestCfg.ChunkMaxLen, cfg.IngestCfg.ChunkOverlap),
		embedder,
		store,
		logger,
	)

	agentUC := agent.NewUsecase(
		agentRepo,
		docRepo,
		files,
		indexerUC,
		fileValidator,
		logger,
	)

	chatUC := chat.NewUsecase(
		agentRepo,
		messageRepo,
		embedder,
		store,
		generator,
		formatter.NewFactory(),
		cfg.ChatCfg,
		logger,
	)
	logger.Info("Use cases initialized")

	// Initialize Telegram bot
	bot, err := telegram.NewBot(&cfg.TelegramCfg, userRepo, agentUC, chatUC, logger)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	logger.Info("Telegram bot built successfully",
		zap.String("environment", cfg.Environment),
	)

	return bot, logger, nil
}

// setupConnectors builds the vector store, embedder and generator, swapping
// in in-process mocks when ENABLE_MOCKS is set.
func setupConnectors(cfg *config.Config, logger *zap.Logger) (chunkstore.Store, embedding.Embedder, llm.Generator, error) {
	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		dim := cfg.EmbeddingCfg.Dimension
		if dim < 1 {
			dim = 256
		}
		return chunkstore.NewMemoryStore(dim), embedding.NewMockConnector(dim, logger), llm.NewMockConnector(logger), nil
	}

	logger.Info("Using real connectors for external services")
	store, err := chunkstore.NewQdrantStore(cfg.QdrantCfg, cfg.EmbeddingCfg.Dimension, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("setup vector store: %w", err)
	}
	embedder, err := embedding.NewConnector(cfg.EmbeddingCfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("setup embedding connector: %w", err)
	}
	generator, err := llm.NewConnector(cfg.LLMCfg, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("setup llm connector: %w", err)
	}
	return store, embedder, generator, nil
}
