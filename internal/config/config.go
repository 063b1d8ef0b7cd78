package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/futig/chat-backend/internal/entity"
	pkgRetry "github.com/futig/chat-backend/internal/pkg/retry"
	"github.com/joho/godotenv"
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

	// External service configurations
	SearchConnectorCfg    SearchConnectorConfig    `envPrefix:"SEARCH_"`
	WebSearchConnectorCfg WebSearchConnectorConfig `envPrefix:"WEBSEARCH_"`
	ASRConnectorCfg       ASRConnectorConfig       `envPrefix:"ASR_"`

	// Provider configurations
	OpenAICfg    OpenAIConfig    `envPrefix:"OPENAI_"`
	AnthropicCfg AnthropicConfig `envPrefix:"ANTHROPIC_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL,notEmpty"`

	// File ingestion configuration
	FileIngestCfg FileIngestConfig `envPrefix:"FILE_INGEST_"`

	// Agent cache
	AgentCacheTTL time.Duration `env:"AGENT_CACHE_TTL" envDefault:"5m"`

	// Model catalog (loaded from JSON file)
	ModelsFile string `env:"MODELS_FILE" envDefault:"internal/config/models.json"`
	Models     []entity.ModelConfig

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS,notEmpty"`

	// Environment (set from flag, not from env var)
	Environment string
}

type SearchConnectorConfig struct {
	HTTPClientConfig
	SearchEndpoint string               `env:"SEARCH_ENDPOINT,notEmpty"`
	Retry          pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type WebSearchConnectorConfig struct {
	HTTPClientConfig
	ExecuteEndpoint string               `env:"EXECUTE_ENDPOINT,notEmpty"`
	Retry           pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type ASRConnectorConfig struct {
	HTTPClientConfig
	TranscribeEndpoint string               `env:"TRANSCRIBE_ENDPOINT,notEmpty"`
	Retry              pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

// OpenAIConfig configures the chat-completions provider handler.
type OpenAIConfig struct {
	APIKey  string `env:"API_KEY"`
	BaseURL string `env:"BASE_URL"`
}

// AnthropicConfig configures the messages-API provider handler.
type AnthropicConfig struct {
	APIKey     string        `env:"API_KEY"`
	BaseURL    string        `env:"BASE_URL" envDefault:"https://api.anthropic.com"`
	APIVersion string        `env:"API_VERSION" envDefault:"2023-06-01"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"120s"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT,notEmpty"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT,notEmpty"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE,notEmpty"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT,notEmpty"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT,notEmpty"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL,notEmpty"`
}

// FileIngestConfig holds file ingestion limits
type FileIngestConfig struct {
	MaxFileSize     int64         `env:"MAX_FILE_SIZE" envDefault:"20971520"` // 20 MiB
	MaxFileCount    int           `env:"MAX_FILE_COUNT" envDefault:"16"`
	DownloadTimeout time.Duration `env:"DOWNLOAD_TIMEOUT" envDefault:"60s"`
	TempDir         string        `env:"TEMP_DIR"`
}

// modelCatalog represents the structure of models.json
type modelCatalog struct {
	Models []entity.ModelConfig `json:"models"`
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

	if err := loadModels(cfg); err != nil {
		return nil, fmt.Errorf("load model catalog: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	if cfg.FileIngestCfg.MaxFileCount < 1 || cfg.FileIngestCfg.MaxFileCount > 64 {
		errors = append(errors, fmt.Sprintf("FILE_INGEST_MAX_FILE_COUNT must be between 1 and 64, got %d", cfg.FileIngestCfg.MaxFileCount))
	}

	if cfg.FileIngestCfg.MaxFileSize < 1 {
		errors = append(errors, fmt.Sprintf("FILE_INGEST_MAX_FILE_SIZE must be positive, got %d", cfg.FileIngestCfg.MaxFileSize))
	}

	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		errors = append(errors, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		errors = append(errors, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
	}

	if !cfg.EnableMocks && cfg.OpenAICfg.APIKey == "" && cfg.AnthropicCfg.APIKey == "" {
		errors = append(errors, "at least one provider API key must be set when mocks are disabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", errors[0])
	}

	return nil
}

var defaultModels = []entity.ModelConfig{
	{
		ID:               "gpt-4o",
		Name:             "GPT-4o",
		SDK:              entity.SDKOpenAI,
		MaxContextTokens: 128_000,
		MaxOutputTokens:  16_384,
	},
	{
		ID:                      "o3-mini",
		Name:                    "o3-mini",
		SDK:                     entity.SDKOpenAI,
		MaxContextTokens:        200_000,
		MaxOutputTokens:         100_000,
		Reasoning:               true,
		SupportsReasoningEffort: true,
	},
	{
		ID:               "claude-sonnet-4-20250514",
		Name:             "Claude Sonnet 4",
		SDK:              entity.SDKAnthropic,
		MaxContextTokens: 200_000,
		MaxOutputTokens:  64_000,
		SupportsThinking: true,
	},
}

func loadModels(cfg *Config) error {
	if _, err := os.Stat(cfg.ModelsFile); os.IsNotExist(err) {
		fmt.Printf("Warning: model catalog not found at %s, using default models\n", cfg.ModelsFile)
		cfg.Models = defaultModels
		return nil
	}

	data, err := os.ReadFile(cfg.ModelsFile)
	if err != nil {
		return fmt.Errorf("read model catalog: %w", err)
	}

	var catalog modelCatalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("parse model catalog JSON: %w", err)
	}

	if len(catalog.Models) == 0 {
		return fmt.Errorf("model catalog contains no models: %s", cfg.ModelsFile)
	}

	cfg.Models = catalog.Models

	fmt.Printf("Loaded %d models from %s\n", len(cfg.Models), cfg.ModelsFile)
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
