package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"astra/internal/cache"
	"astra/internal/config"
	"astra/internal/pgmq"
	"astra/internal/pubsub"
	"astra/internal/repository"
	"astra/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

// Services holds the connections, repositories and services shared by the API
// server, the orchestrator and astractl.
type Services struct {
	Config *config.Config
	Pool   *pgxpool.Pool
	DB     *sql.DB
	PGMQ   *pgmq.Client

	Memories  repository.MemoryRepository
	DLQRepo   repository.DLQRepository
	Quota     service.QuotaService
	Companion service.CompanionService
	DLQ       service.DLQService

	closers []func() error
	logger  zerolog.Logger
}

// Build opens the database and wires every service from cfg. Optional
// collaborators (Redis, Pub/Sub, Secret Manager, the model) are skipped with a
// warning when not configured.
func Build(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Services, error) {
	s := &Services{Config: cfg, logger: logger}

	pool, err := pgxpool.New(ctx, NormalizeDSN(cfg.DBConnectionString, cfg.Environment))
	if err != nil {
		return nil, fmt.Errorf("failed to open DB pool: %w", err)
	}
	s.Pool = pool
	s.closers = append(s.closers, func() error { pool.Close(); return nil })
	if err := pool.Ping(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	logger.Info().Msg("Database connection successful")

	// pgmq goes through database/sql on the same pool.
	s.DB = stdlib.OpenDBFromPool(pool)
	s.closers = append(s.closers, s.DB.Close)
	s.PGMQ = pgmq.New(s.DB)

	quotaRepo, err := s.quotaRepository()
	if err != nil {
		s.Close()
		return nil, err
	}

	var profiles repository.ProfileRepository = repository.NewProfileRepo(pool)
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "astra:",
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable; profile cache disabled")
		} else {
			s.closers = append(s.closers, rc.Close)
			profiles = repository.NewCachedProfileRepo(profiles, rc, cfg.ProfileCacheTTL(), logger)
		}
	}

	s.Memories = repository.NewMemoryRepo(pool)
	s.DLQRepo = repository.NewDLQRepository(pool)
	turns := repository.NewConversationRepo(pool)
	subs := repository.NewSubscriptionRepo(pool)

	s.Quota = service.NewQuotaService(quotaRepo, subs, logger)
	s.DLQ = service.NewDLQService(s.DLQRepo, logger)

	modelClient := s.modelClient(ctx)

	var exchanges service.ExchangePublisher
	if cfg.GCPProjectID != "" {
		pub, err := pubsub.NewPublisher(ctx, cfg.GCPProjectID)
		if err != nil {
			logger.Warn().Err(err).Msg("Pub/Sub unavailable; exchange events disabled")
		} else {
			s.closers = append(s.closers, pub.Close)
			exchanges = service.NewPubSubExchangePublisher(pub, cfg.PubSubExchangeTopic)
		}
	}

	s.Companion = service.NewCompanionService(
		s.Quota,
		profiles,
		s.Memories,
		turns,
		modelClient,
		service.NewPGMQReferenceQueue(s.PGMQ, cfg.MemoryRefQueueName),
		exchanges,
		service.CompanionConfig{
			MemoryLimit:      cfg.CompanionMemoryLimit,
			MemoryFetchLimit: cfg.CompanionMemoryFetchLimit,
			RecentTurns:      cfg.CompanionRecentTurns,
		},
		logger,
	)
	return s, nil
}

func (s *Services) quotaRepository() (repository.QuotaRepository, error) {
	switch s.Config.QuotaStore {
	case "", "postgres":
		return repository.NewQuotaRepo(s.Pool), nil
	case "sqlite":
		repo, err := repository.NewSQLiteQuotaRepo(s.Config.SQLitePath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, repo.Close)
		s.logger.Info().Str("path", s.Config.SQLitePath).Msg("Using SQLite quota ledger")
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown QUOTA_STORE %q", s.Config.QuotaStore)
	}
}

// modelClient returns nil when no API key can be found.
func (s *Services) modelClient(ctx context.Context) service.ModelClient {
	cfg := s.Config
	apiKey := cfg.OpenAIAPIKey
	if apiKey == "" && cfg.OpenAIAPIKeySecret != "" {
		sm, err := service.NewSecretManagerService(ctx, cfg.GCPProjectID)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Secret Manager unavailable")
		} else {
			defer sm.Close()
			apiKey, err = sm.GetSecret(ctx, cfg.OpenAIAPIKeySecret)
			if err != nil {
				s.logger.Warn().Err(err).Str("secret", cfg.OpenAIAPIKeySecret).Msg("Failed to read model API key")
			}
		}
	}
	if apiKey == "" {
		s.logger.Warn().Msg("No model API key configured; companion replies disabled")
		return nil
	}
	client, err := service.NewOpenAIClient(service.OpenAIConfig{
		APIKey:      apiKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Temperature: cfg.OpenAITemperature,
	}, s.logger)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to create model client")
		return nil
	}
	return client
}

// Close releases everything Build opened, most recent first.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// NormalizeDSN disables SSL for local development and forces the simple query
// protocol elsewhere, where a transaction pooler sits in front of Postgres.
func NormalizeDSN(dsn, environment string) string {
	isURL := strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
	appendParam := func(dsn, param string) string {
		if !isURL {
			return dsn + " " + param
		}
		if strings.Contains(dsn, "?") {
			return dsn + "&" + param
		}
		return dsn + "?" + param
	}

	if environment == "development" && !strings.Contains(dsn, "sslmode") {
		dsn = appendParam(dsn, "sslmode=disable")
	}
	if environment != "development" && !strings.Contains(dsn, "default_query_exec_mode") {
		dsn = appendParam(dsn, "default_query_exec_mode=simple_protocol")
	}
	return dsn
}
