package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/nandhanalahari/preva/internal/ai"
	"github.com/nandhanalahari/preva/internal/api"
	"github.com/nandhanalahari/preva/internal/audit"
	"github.com/nandhanalahari/preva/internal/config"
	"github.com/nandhanalahari/preva/internal/database"
	"github.com/nandhanalahari/preva/internal/insights"
	"github.com/nandhanalahari/preva/internal/messaging"
	"github.com/nandhanalahari/preva/internal/scheduling"
	"github.com/nandhanalahari/preva/internal/speech"
	"github.com/nandhanalahari/preva/internal/visits"
)

func main() {
	cfg := loadConfig()
	logger := newLogger(cfg)
	logger.Info().Msg("starting preva")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}

	auditLogger, err := audit.NewLogger(cfg.Audit, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open audit store")
	}
	defer auditLogger.Close()

	aiClient := ai.NewClient(cfg.AI)
	speechClient := speech.NewClient(cfg.Speech)

	handlers := api.NewHandlers(
		cfg,
		db,
		visits.NewService(db, aiClient, logger),
		insights.NewService(db, aiClient, logger),
		scheduling.NewService(db, logger),
		messaging.NewService(db, aiClient, logger),
		speechClient,
		auditLogger,
		logger,
	)
	server := api.NewServer(cfg, db, handlers)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("api listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}

	logger.Info().Msg("stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.Server.Environment == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func loadConfig() *config.Config {
	configPath := os.Getenv("PREVA_CONFIG")
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err == nil {
			return cfg
		}
		fmt.Fprintf(os.Stderr, "failed to load config from %s: %v, falling back to env\n", configPath, err)
	}
	return config.LoadFromEnv()
}
