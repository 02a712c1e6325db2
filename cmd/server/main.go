package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/universal-data-connector/backend/internal/ai"
	"github.com/universal-data-connector/backend/internal/auth"
	"github.com/universal-data-connector/backend/internal/cache"
	"github.com/universal-data-connector/backend/internal/config"
	"github.com/universal-data-connector/backend/internal/connector"
	"github.com/universal-data-connector/backend/internal/export"
	httpapi "github.com/universal-data-connector/backend/internal/http"
	"github.com/universal-data-connector/backend/internal/query"
	"github.com/universal-data-connector/backend/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "data-connector").Logger()

	ctx := context.Background()

	var (
		customers connector.CustomerProvider
		tickets   connector.TicketProvider
		metrics   connector.MetricProvider
		store     *connector.PostgresStore
	)
	switch cfg.DataBackend {
	case "postgres":
		store, err = connector.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.MaxResults)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect db")
		}
		defer store.Close()
		customers, tickets, metrics = store, store, store
		logger.Info().Msg("using postgres backend")
	default:
		files := connector.NewFileStore(cfg.DataDir, cfg.MaxResults, logger)
		customers, tickets, metrics = files, files, files
		logger.Info().Str("dir", cfg.DataDir).Msg("using file backend")
	}

	var gateway ai.Gateway
	switch {
	case !cfg.EnableLLM:
		logger.Info().Msg("LLM path disabled")
	case cfg.LLMBaseURL == "":
		gateway = ai.NewCannedGateway()
		logger.Info().Msg("using canned LLM gateway")
	default:
		gateway = ai.NewOpenAICompatClient(cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMAPIKey, cfg.LLMMaxTokens, cfg.LLMTemperature, logger)
		logger.Info().Str("model", cfg.LLMModel).Msg("using LLM gateway")
	}

	var queryCache *cache.Cache
	if cfg.CacheEnabled {
		queryCache, err = cache.New(cfg.RedisURL, cfg.CacheTTL, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("cache unavailable, continuing without it")
			queryCache = nil
		} else {
			defer queryCache.Close()
		}
	}

	executor := &query.Executor{
		Customers: customers,
		Tickets:   tickets,
		Metrics:   metrics,
		Gateway:   gateway,
		Logger:    logger,
	}

	deps := httpapi.Deps{
		Executor:  executor,
		Customers: customers,
		Tickets:   tickets,
		Metrics:   metrics,
		Store:     store,
		Gateway:   gateway,
		Auth:      auth.NewService(cfg.AuthEnabled, cfg.APIKeysFile, logger),
		Cache:     queryCache,
		Export:    &export.Service{Enabled: cfg.ExportEnabled, MaxRecords: cfg.ExportMaxRecords},
		Webhooks:  webhook.NewService(cfg.WebhookEnabled, cfg.WebhooksFile, cfg.WebhookTimeout, cfg.WebhookRetries, logger),
		Logger:    logger,
	}

	router := httpapi.Router(cfg, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
