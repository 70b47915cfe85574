package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`
	InstanceID  string `env:"INSTANCE_ID"`

	AccumulatorBackend string        `env:"ACCUMULATOR_BACKEND" default:"redis"`
	CategoryCacheTTL   time.Duration `env:"CATEGORY_CACHE_TTL" default:"1m"`

	SnapshotSchedulerEnabled bool `env:"SNAPSHOT_SCHEDULER_ENABLED" default:"true"`

	// Per-client limit on the write endpoints.
	WriteRateLimit float64 `env:"WRITE_RATE_LIMIT" default:"20"`
	WriteRateBurst int     `env:"WRITE_RATE_BURST" default:"40"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = defaultInstanceID()
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	switch cfg.AccumulatorBackend {
	case BackendRedis:
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("ACCUMULATOR_BACKEND must be %q or %q, got %q", BackendRedis, BackendMemory, cfg.AccumulatorBackend)
	}

	if cfg.CategoryCacheTTL <= 0 {
		return errors.New("CATEGORY_CACHE_TTL must be positive")
	}

	if cfg.WriteRateLimit <= 0 || cfg.WriteRateBurst <= 0 {
		return errors.New("WRITE_RATE_LIMIT and WRITE_RATE_BURST must be positive")
	}

	if cfg.IsProduction() {
		if cfg.AccumulatorBackend == BackendMemory {
			return errors.New("ACCUMULATOR_BACKEND=memory is not allowed in production")
		}
		if mode := sslMode(cfg.DatabaseURL); mode == "disable" || mode == "allow" {
			return fmt.Errorf("DATABASE_URL sslmode=%s is not allowed in production", mode)
		}
	}

	return nil
}

func sslMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Query().Get("sslmode"))
}

func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
