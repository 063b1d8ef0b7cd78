package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/futig/chat-backend/internal/api"
	agentapi "github.com/futig/chat-backend/internal/api/agent"
	chatapi "github.com/futig/chat-backend/internal/api/chat"
	exportapi "github.com/futig/chat-backend/internal/api/export"
	"github.com/futig/chat-backend/internal/config"
	"github.com/futig/chat-backend/internal/entity"
	"github.com/futig/chat-backend/internal/integration/asr"
	"github.com/futig/chat-backend/internal/integration/search"
	"github.com/futig/chat-backend/internal/integration/storage"
	"github.com/futig/chat-backend/internal/integration/websearch"
	"github.com/futig/chat-backend/internal/pipeline"
	"github.com/futig/chat-backend/internal/pkg/formatter"
	"github.com/futig/chat-backend/internal/pkg/textextract"
	"github.com/futig/chat-backend/internal/provider"
	"github.com/futig/chat-backend/internal/repository"
	"github.com/futig/chat-backend/internal/summary"
	chatuc "github.com/futig/chat-backend/internal/usecase/chat"
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
	agentRepo := repository.NewAgentPostgres(db)
	agentResolver := repository.NewCachedAgentResolver(agentRepo, cfg.AgentCacheTTL)
	logger.Info("Repositories initialized")

	// Initialize external service connectors (with mock support)
	var searchConnector pipeline.SearchConnector
	var webSearchConnector pipeline.WebSearchConnector
	var asrConnector pipeline.Transcriber

	if cfg.EnableMocks {
		logger.Info("Using mock connectors for external services")
		searchConnector = search.NewMockConnector(logger)
		webSearchConnector = websearch.NewMockConnector(logger)
		asrConnector = asr.NewMockConnector(logger)
	} else {
		logger.Info("Using real connectors for external services")
		searchConnector = search.NewConnector(cfg.SearchConnectorCfg, logger)
		webSearchConnector = websearch.NewConnector(cfg.WebSearchConnectorCfg, logger)
		asrConnector = asr.NewConnector(cfg.ASRConnectorCfg, logger)
	}

	// Initialize provider handlers
	factory := provider.NewFactory()
	if cfg.EnableMocks {
		logger.Info("Using mock provider handlers")
		mock := provider.NewMockHandler(logger)
		factory.Register(entity.SDKOpenAI, mock)
		factory.Register(entity.SDKAnthropic, mock)
	} else {
		factory.Register(entity.SDKOpenAI, provider.NewOpenAIHandler(cfg.OpenAICfg, logger))
		factory.Register(entity.SDKAnthropic, provider.NewAnthropicHandler(cfg.AnthropicCfg, logger))
	}
	completer := provider.NewCompleterAdapter(factory)
	logger.Info("Provider handlers initialized")

	// Initialize document processing
	extractor := textextract.New()
	downloader := storage.NewDownloader(cfg.FileIngestCfg, logger)
	summarizer := summary.New(completer, extractor, logger)

	// Initialize the enrichment pipeline
	enricher := pipeline.New(logger,
		pipeline.NewFileIngestionStage(downloader, extractor, asrConnector, summarizer, cfg.FileIngestCfg, logger),
		pipeline.NewRetrievalEnrichmentStage(agentResolver, searchConnector, logger),
		pipeline.NewToolRoutingStage(completer, webSearchConnector, logger),
	)
	logger.Info("Enrichment pipeline initialized")

	// Initialize use cases
	registry := chatuc.NewModelRegistry(cfg.Models)
	chatUC := chatuc.NewUsecase(registry, enricher, factory, logger)
	logger.Info("Use cases initialized")

	// Setup API handlers
	chatHandler := chatapi.NewHandler(chatUC)
	exportHandler := exportapi.NewHandler(formatter.NewFactory())
	agentHandler := agentapi.NewHandler(agentRepo, agentResolver)
	logger.Info("API handlers initialized")

	// Setup router
	router := api.SetupRouter(chatHandler, exportHandler, agentHandler, logger)
	logger.Info("HTTP router configured")

	// Create HTTP server. Write timeout stays generous because chat
	// streaming holds the response open for the whole generation.
	server := &http.Server{
		Addr:        cfg.ServerAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
		zap.Int("models", len(cfg.Models)),
	)

	return &App{
		server: server,
		db:     db,
		logger: logger,
	}, nil
}
