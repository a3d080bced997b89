package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/t-carroll/monocle3/pkg/server"
)

func main() {
	cfg := server.LoadConfig()

	level, err := zerolog.ParseLevel(cfg.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Str("service", "cluster-server").Logger()

	logger.Info().
		Str("address", cfg.Address()).
		Int("max_workers", cfg.MaxWorkers()).
		Msg("Starting clustering server")

	datasets := server.NewDatasetStore()
	jobs := server.NewJobStore(datasets, cfg.MaxWorkers(), cfg.JobTTL(), cfg.CleanupEvery(), logger)
	defer jobs.Close()

	handlers := server.NewHandlers(datasets, jobs, logger)

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      server.NewHandler(handlers, logger),
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}

	go func() {
		logger.Info().Str("address", cfg.Address()).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	logger.Info().Msg("Server shutdown complete")
}
