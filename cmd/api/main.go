package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"adprint/internal/http/handlers"
	httpapi "adprint/internal/http/httpapi"
	"adprint/internal/infra"
	"adprint/internal/metrics"
	"adprint/internal/providers/genai"
	"adprint/internal/quota"
	"adprint/internal/studio"
)

func main() {
	// Load .env when present
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := quota.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.QuotaStore).Msg("failed to open quota store")
	}
	defer closeStore()
	tracker := quota.NewTracker(ctx, store, cfg.QuotaCeiling, logger)
	metrics.SetQuotaRemaining(tracker.Remaining())

	generator, generatorName := newGenerator(ctx, cfg, logger)

	st := studio.New(studio.Options{
		Generator:         generator,
		Quota:             tracker,
		Logger:            logger,
		RenderConcurrency: cfg.RenderConcurrency,
	})

	app, err := handlers.NewApp(st, generatorName, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build views")
	}
	router := httpapi.NewRouter(app, logger, cfg.SecureCookies)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("addr", server.Addr()).
			Str("generator", generatorName).
			Str("quota_store", cfg.QuotaStore).
			Int("quota_remaining", tracker.Remaining()).
			Bool("quota_persistent", tracker.Persistent()).
			Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	go pruneSessions(ctx, st, cfg.SessionTTL, logger)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	// Runs already started still count against the quota when they finish.
	st.Wait()
	logger.Info().Msg("server stopped")
}

func newGenerator(ctx context.Context, cfg *infra.Config, logger infra.Logger) (studio.Generator, string) {
	if cfg.SyntheticGeneration() {
		logger.Warn().Msg("GEMINI_API_KEY not set, using synthetic generator")
		return genai.NewSynthetic(logger), "synthetic"
	}
	client, err := genai.NewClient(ctx, genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		TextModel:  cfg.TextModel,
		ImageModel: cfg.ImageModel,
		HTTPClient: &http.Client{Timeout: cfg.ProviderTimeout},
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create gemini client")
	}
	return client, "gemini"
}

func pruneSessions(ctx context.Context, st *studio.Studio, ttl time.Duration, logger infra.Logger) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Prune(ttl); n > 0 {
				logger.Debug().Int("sessions", n).Msg("pruned idle sessions")
			}
		}
	}
}
