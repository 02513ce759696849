package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dayview_server/config"
	"dayview_server/internal/bootstrap"
	"dayview_server/pkg/logger"
	"dayview_server/pkg/snowflake"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	shutdownTimeout = 30 * time.Second // Maximum time to wait for graceful shutdown
)

func main() {
	// Process lifecycle logs go through zerolog's console writer; request
	// logs use the structured JSON logger initialized in bootstrap.
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		zlog.Debug().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load config")
	}

	if err := snowflake.Init(cfg.SnowflakeNodeID); err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize id generator")
	}

	app, cleanup, err := bootstrap.NewAPI(cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize API")
	}
	defer cleanup()

	// Graceful shutdown with timeout
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		zlog.Info().Dur("timeout", shutdownTimeout).Msg("Shutting down API server")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- app.Shutdown()
		}()

		select {
		case err := <-done:
			if err != nil {
				zlog.Error().Err(err).Msg("Error shutting down")
			} else {
				zlog.Info().Msg("API server shut down gracefully")
			}
		case <-ctx.Done():
			zlog.Warn().Msg("API shutdown timed out, forcing exit")
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("Starting API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		zlog.Fatal().Err(err).Msg("Failed to start server")
	}
}
