package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"production"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`
	JWTSecret          string `envconfig:"SUPABASE_JWT_SECRET" required:"true"`

	// Quota ledger settings. "postgres" keeps windows next to the rest of the
	// data; "sqlite" is a single-node ledger in a local file.
	QuotaStore string `envconfig:"QUOTA_STORE" default:"postgres"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"./astra-quota.db"`

	// Model settings. OpenAIAPIKeySecret is a Secret Manager secret name used
	// when OpenAIAPIKey is empty.
	OpenAIAPIKey       string  `envconfig:"OPENAI_API_KEY"`
	OpenAIAPIKeySecret string  `envconfig:"OPENAI_API_KEY_SECRET"`
	OpenAIBaseURL      string  `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel        string  `envconfig:"OPENAI_MODEL" default:"gpt-4-turbo-preview"`
	OpenAIMaxTokens    int     `envconfig:"OPENAI_MAX_TOKENS" default:"500"`
	OpenAITemperature  float64 `envconfig:"OPENAI_TEMPERATURE" default:"0.7"`

	// GCP settings
	GCPProjectID        string `envconfig:"GCP_PROJECT_ID"`
	PubSubExchangeTopic string `envconfig:"PUBSUB_EXCHANGE_TOPIC" default:"companion-exchanges"`
	PubSubEmulatorHost  string `envconfig:"PUBSUB_EMULATOR_HOST"`

	// Dead-letter push endpoint settings
	DLQEndpointURL                string `envconfig:"DLQ_ENDPOINT_URL"`
	PubSubPushServiceAccountEmail string `envconfig:"PUBSUB_PUSH_SERVICE_ACCOUNT_EMAIL"`

	// Profile cache settings. The cache is disabled when RedisAddr is empty.
	RedisAddr          string `envconfig:"REDIS_ADDR"`
	RedisPassword      string `envconfig:"REDIS_PASSWORD"`
	RedisDB            int    `envconfig:"REDIS_DB" default:"0"`
	ProfileCacheTTLSec int    `envconfig:"PROFILE_CACHE_TTL_SEC" default:"300"`

	// Companion context settings
	CompanionMemoryLimit      int `envconfig:"COMPANION_MEMORY_LIMIT" default:"5"`
	CompanionMemoryFetchLimit int `envconfig:"COMPANION_MEMORY_FETCH_LIMIT" default:"50"`
	CompanionRecentTurns      int `envconfig:"COMPANION_RECENT_TURNS" default:"10"`

	// Memory reference orchestrator settings
	MemoryRefQueueName           string `envconfig:"MEMORY_REFERENCE_QUEUE_NAME" default:"memory_reference_queue"`
	MemoryRefPollTimeoutSec      int    `envconfig:"MEMORY_REFERENCE_POLL_TIMEOUT_SEC" default:"30"`
	MemoryRefPollMaxMsg          int    `envconfig:"MEMORY_REFERENCE_POLL_MAX_MSG" default:"10"`
	MemoryRefMaxRetries          int    `envconfig:"MEMORY_REFERENCE_MAX_RETRIES" default:"5"`
	MemoryRefBackoffInitialSec   int    `envconfig:"MEMORY_REFERENCE_BACKOFF_INITIAL_SEC" default:"1"`
	MemoryRefBackoffMaxSec       int    `envconfig:"MEMORY_REFERENCE_BACKOFF_MAX_SEC" default:"60"`
	MemoryRefDeadLetterQueueName string `envconfig:"MEMORY_REFERENCE_DEAD_LETTER_QUEUE_NAME" default:"memory_reference_queue_dlq"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ProfileCacheTTL returns the profile cache lifetime as a duration.
func (c *Config) ProfileCacheTTL() time.Duration {
	return time.Duration(c.ProfileCacheTTLSec) * time.Second
}

// IsDevelopment reports whether the service runs with local development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
