package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("QUOTA_STORE", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.QuotaStore != QuotaStoreFile {
		t.Fatalf("QuotaStore = %q, want file", cfg.QuotaStore)
	}
	if cfg.QuotaCeiling != 5 || cfg.QuotaKey != "creationCount" {
		t.Fatalf("quota defaults mismatch: %d %q", cfg.QuotaCeiling, cfg.QuotaKey)
	}
	if cfg.TextModel != "gemini-2.5-pro" || cfg.ImageModel != "gemini-2.5-flash-image" {
		t.Fatalf("model defaults mismatch: %q %q", cfg.TextModel, cfg.ImageModel)
	}
	if cfg.HTTPReadTimeout != 30*time.Second {
		t.Fatalf("HTTPReadTimeout = %s", cfg.HTTPReadTimeout)
	}
	if !cfg.SyntheticGeneration() {
		t.Fatal("expected synthetic generation without an API key")
	}
}

func TestLoadConfigPostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("QUOTA_STORE", "Postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/adprint")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.QuotaStore != QuotaStorePostgres {
		t.Fatalf("QuotaStore = %q", cfg.QuotaStore)
	}
}

func TestLoadConfigRejectsUnknownStore(t *testing.T) {
	t.Setenv("QUOTA_STORE", "redis")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unknown store")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("QUOTA_STORE", "memory")
	t.Setenv("QUOTA_CEILING", "7")
	t.Setenv("RENDER_CONCURRENCY", "-3")
	t.Setenv("PROVIDER_TIMEOUT", "45s")
	t.Setenv("GEMINI_API_KEY", "key")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.QuotaCeiling != 7 {
		t.Fatalf("QuotaCeiling = %d", cfg.QuotaCeiling)
	}
	if cfg.RenderConcurrency != 0 {
		t.Fatalf("negative concurrency should clamp to 0, got %d", cfg.RenderConcurrency)
	}
	if cfg.ProviderTimeout != 45*time.Second {
		t.Fatalf("ProviderTimeout = %s", cfg.ProviderTimeout)
	}
	if cfg.SyntheticGeneration() {
		t.Fatal("API key set, synthetic generation should be off")
	}
}
