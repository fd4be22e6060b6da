package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

const (
	defaultPollMs         = 1500
	defaultBatchSize      = 10
	defaultMaxAttempts    = 8
	defaultStaleSeconds   = 300
	defaultDefaultsTTLSec = 30
)

type Config struct {
	DatabaseDSN             string `env:"DATABASE_DSN,required=true"`
	RedisURL                string `env:"REDIS_URL"`
	PollMs                  int    `env:"POLL_MS,default=1500"`
	BatchSize               int    `env:"BATCH_SIZE,default=10"`
	MaxAttempts             int    `env:"MAX_ATTEMPTS,default=8"`
	StaleProcessingSeconds  int    `env:"STALE_PROCESSING_SECONDS,default=300"`
	PlatformDefaultsTTLSecs int    `env:"PLATFORM_DEFAULTS_TTL_SECONDS,default=30"`
	ProviderRateLimitPerSec int    `env:"PROVIDER_RATE_LIMIT_PER_SEC,default=50"`
	HTTPPort                int    `env:"HTTP_PORT,default=8081"`
	LogLevel                string `env:"LOG_LEVEL,default=info"`
}

// Load reads configuration from the environment, after applying a .env file
// from the working directory when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return nil, fmt.Errorf("failed to load config: DATABASE_DSN is empty")
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PollMs <= 0 {
		c.PollMs = defaultPollMs
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.StaleProcessingSeconds <= 0 {
		c.StaleProcessingSeconds = defaultStaleSeconds
	}
	if c.PlatformDefaultsTTLSecs <= 0 {
		c.PlatformDefaultsTTLSecs = defaultDefaultsTTLSec
	}
	if c.ProviderRateLimitPerSec < 0 {
		c.ProviderRateLimitPerSec = 0
	}
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollMs) * time.Millisecond
}

func (c *Config) StaleAfter() time.Duration {
	return time.Duration(c.StaleProcessingSeconds) * time.Second
}

func (c *Config) DefaultsTTL() time.Duration {
	return time.Duration(c.PlatformDefaultsTTLSecs) * time.Second
}
