package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Ledger backend selectors
const (
	LedgerBackendCSV      = "csv"
	LedgerBackendPostgres = "postgres"
)

// Snapshot cache selectors
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	// MLB standings API
	MLBBaseURL string        `envconfig:"MLB_BASE_URL" default:"https://bdfed.stitch.mlbinfra.com/bdfed/transform-mlb-standings"`
	MLBSeason  string        `envconfig:"MLB_SEASON" default:"2025"`
	MLBTimeout time.Duration `envconfig:"MLB_TIMEOUT" default:"30s"`

	// Participants (empty = built-in reference pool)
	ParticipantsFile string `envconfig:"PARTICIPANTS_FILE" default:""`

	// Ledger
	LedgerBackend string `envconfig:"LEDGER_BACKEND" default:"csv"`
	LedgerPath    string `envconfig:"LEDGER_PATH" default:"pool_history.csv"`

	// Database (postgres ledger backend)
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"winspool"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"winspool_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" default:""`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Snapshot cache
	CacheBackend  string `envconfig:"CACHE_BACKEND" default:"memory"`
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Scheduler
	EnableScheduler  bool          `envconfig:"ENABLE_SCHEDULER" default:"true"`
	DailyLogCron     string        `envconfig:"DAILY_LOG_CRON" default:"0 23 * * *"`
	LogRetryInterval time.Duration `envconfig:"LOG_RETRY_INTERVAL" default:"1h"`

	// Startup backfill
	BackfillOnStart bool `envconfig:"BACKFILL_ON_START" default:"true"`
	BackfillDays    int  `envconfig:"BACKFILL_DAYS" default:"30"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case LedgerBackendCSV:
		if c.LedgerPath == "" {
			return fmt.Errorf("LEDGER_PATH is required for the csv ledger backend")
		}
	case LedgerBackendPostgres:
		if c.DatabasePassword == "" {
			return fmt.Errorf("DATABASE_PASSWORD is required for the postgres ledger backend")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q (want csv or postgres)", c.LedgerBackend)
	}

	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q (want memory or redis)", c.CacheBackend)
	}

	if c.BackfillDays < 0 {
		return fmt.Errorf("BACKFILL_DAYS must not be negative")
	}

	return nil
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
