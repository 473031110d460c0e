package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string        `env:"APP_NAME" envDefault:"VaultLedger"`
	AppEnv         string        `env:"APP_ENV" envDefault:"development"`
	Port           string        `env:"PORT" envDefault:"8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	RedisURL       string        `env:"REDIS_URL"`
	ShutdownPeriod time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	DBMaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns        int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	DBConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"5m"`

	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// LedgerMaxRetries bounds how often a unit of work is retried after a
	// serialization or lock conflict.
	LedgerMaxRetries int `env:"LEDGER_MAX_RETRIES" envDefault:"3"`

	ReconcileInterval       time.Duration `env:"RECONCILE_INTERVAL" envDefault:"24h"`
	AllocationSweepInterval time.Duration `env:"ALLOCATION_SWEEP_INTERVAL" envDefault:"1m"`
	RateLimitPerMin         int           `env:"RATE_LIMIT_PER_MIN" envDefault:"120"`
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	// Development may run on the in-memory ledger without Postgres or Redis.
	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("config.Load: DATABASE_URL is required when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("config.Load: REDIS_URL is required when APP_ENV=%s", cfg.AppEnv)
		}
	}
	if cfg.LedgerMaxRetries < 0 {
		return Config{}, fmt.Errorf("config.Load: LEDGER_MAX_RETRIES must not be negative")
	}
	if cfg.ReconcileInterval <= 0 || cfg.AllocationSweepInterval <= 0 {
		return Config{}, fmt.Errorf("config.Load: worker intervals must be positive")
	}
	if cfg.IdempotencyTTL <= 0 {
		return Config{}, fmt.Errorf("config.Load: IDEMPOTENCY_TTL must be positive")
	}
	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a local or test environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
