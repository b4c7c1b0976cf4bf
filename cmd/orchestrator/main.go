package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"astra/internal/app"
	"astra/internal/config"
	"astra/internal/logger"
	"astra/internal/orchestrator/memoryref"

	"github.com/joho/godotenv"
)

func main() {
	mode := flag.String("mode", "memory_reference", "Orchestrator mode: memory_reference")
	flag.Parse()

	envErr := godotenv.Load()
	logger := logger.New("orchestrator")
	if envErr != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	buildCtx, buildCancel := context.WithTimeout(context.Background(), 30*time.Second)
	svc, err := app.Build(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		logger.Fatal().Msgf("Failed to build services: %v", err)
	}
	defer svc.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var runErr error
	switch *mode {
	case "memory_reference":
		runErr = memoryref.Run(ctx, logger, svc.PGMQ, svc.Memories, cfg)
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	if runErr != nil {
		logger.Fatal().Msgf("%s orchestrator failed: %v", *mode, runErr)
	}
	logger.Info().Msgf("%s orchestrator stopped gracefully", *mode)
}
