package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/appforge/appforge-backend/config"
	"github.com/appforge/appforge-backend/internal/bootstrap"
	"github.com/appforge/appforge-backend/internal/logger"
	"github.com/appforge/appforge-backend/internal/metrics"
)

const serviceName = "appforge-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Config{Service: serviceName})
		boot.Fatal().Err(err).Msg("failed to load config")
	}

	log := newLogger(cfg)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()
	store, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("failed to open project store")
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Config:      cfg,
		Store:       store,
		Metrics:     metrics.New(),
	})

	// no write timeout: generation streams stay open for minutes
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-quit
		log.Info().Msg("shutting down...")
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info().
		Str("port", cfg.Server.Port).
		Str("env", cfg.App.Environment).
		Str("llm_provider", cfg.LLM.Provider).
		Msg("server listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server error")
	}

	if err := store.Close(); err != nil {
		log.Warn().Err(err).Msg("store close")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logger.New(logger.Config{
		Level:   cfg.App.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: serviceName,
		Version: cfg.App.Version,
	})
}
