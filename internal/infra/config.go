package infra

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Quota store backends.
const (
	QuotaStoreFile     = "file"
	QuotaStorePostgres = "postgres"
	QuotaStoreSQLite   = "sqlite"
	QuotaStoreMemory   = "memory"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	Port   string `env:"PORT" envDefault:"8080"`

	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL"`
	TextModel     string `env:"GEMINI_TEXT_MODEL" envDefault:"gemini-2.5-pro"`
	ImageModel    string `env:"GEMINI_IMAGE_MODEL" envDefault:"gemini-2.5-flash-image"`
	// ProviderTimeout bounds every single call to the model API.
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"120s"`

	QuotaCeiling  int    `env:"QUOTA_CEILING" envDefault:"5"`
	QuotaKey      string `env:"QUOTA_KEY" envDefault:"creationCount"`
	QuotaStore    string `env:"QUOTA_STORE" envDefault:"file"`
	DataDir       string `env:"DATA_DIR" envDefault:"./data"`
	DatabaseURL   string `env:"DATABASE_URL"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"./data/adprint.db"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	// RenderConcurrency caps parallel image renders per run; 0 means unlimited.
	RenderConcurrency int           `env:"RENDER_CONCURRENCY" envDefault:"0"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	SecureCookies     bool          `env:"SECURE_COOKIES" envDefault:"false"`

	HTTPReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.QuotaStore = strings.ToLower(strings.TrimSpace(cfg.QuotaStore))
	switch cfg.QuotaStore {
	case QuotaStoreFile, QuotaStoreSQLite, QuotaStoreMemory:
	case QuotaStorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when QUOTA_STORE=postgres")
		}
	default:
		return nil, fmt.Errorf("unsupported QUOTA_STORE %q", cfg.QuotaStore)
	}

	if cfg.QuotaCeiling < 1 {
		return nil, fmt.Errorf("QUOTA_CEILING must be positive")
	}
	if strings.TrimSpace(cfg.QuotaKey) == "" {
		return nil, fmt.Errorf("QUOTA_KEY is required")
	}
	if cfg.RenderConcurrency < 0 {
		cfg.RenderConcurrency = 0
	}

	return cfg, nil
}

// SyntheticGeneration reports whether the service should run without a model API key.
func (c *Config) SyntheticGeneration() bool {
	return strings.TrimSpace(c.GeminiAPIKey) == ""
}
