package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"astra/internal/api/v1/router"
	"astra/internal/app"
	"astra/internal/config"
	"astra/internal/logger"

	"github.com/joho/godotenv"
)

// @title ASTRA API
// @version 1.0
// @description Quota and companion API for the ASTRA dating and astrology app
// @host localhost:8080
// @BasePath /v1
// @Schemes http https

func main() {
	// ENV and LOG_LEVEL may come from the .env file, so load it before the logger.
	envErr := godotenv.Load()
	logger := logger.New("api")
	if envErr != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	svc, err := app.Build(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal().Msgf("Failed to build services: %v", err)
	}
	defer svc.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(svc, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Msgf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Msgf("Listen: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutdown signal received, exiting...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Msgf("Server forced to shutdown: %v", err)
	}
	logger.Info().Msg("Server shut down gracefully")
}
