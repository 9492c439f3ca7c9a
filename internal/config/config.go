package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/nDmitry/tgsnap/internal/scraper"
)

type Config struct {
	Port      string `env:"HTTP_SERVER_PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	RedisAddr string `env:"REDIS_ADDR"`
	SentryDSN string `env:"SENTRY_DSN"`

	RateLimitMax           int           `env:"RATE_LIMIT_MAX" envDefault:"30"`
	RateLimitWindow        time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`
	RateLimitSweepInterval time.Duration `env:"RATE_LIMIT_SWEEP_INTERVAL" envDefault:"5m"`

	PageFetchTimeout  time.Duration `env:"PAGE_FETCH_TIMEOUT" envDefault:"10s"`
	ImageFetchTimeout time.Duration `env:"IMAGE_FETCH_TIMEOUT" envDefault:"5s"`
	ImageMaxBytes     int64         `env:"IMAGE_MAX_BYTES" envDefault:"10485760"`
	InlineConcurrency int           `env:"INLINE_CONCURRENCY" envDefault:"8"`

	CacheFreshTTL time.Duration `env:"CACHE_FRESH_TTL" envDefault:"300s"`
	CacheStaleTTL time.Duration `env:"CACHE_STALE_TTL" envDefault:"3600s"`

	// TelegramRPS limits outbound page fetches, 0 disables the limit.
	TelegramRPS float64 `env:"TELEGRAM_RPS" envDefault:"5"`
	UserAgent   string  `env:"USER_AGENT"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = scraper.DefaultUserAgent
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.RateLimitMax <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must be positive")
	}

	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}

	if c.PageFetchTimeout <= 0 || c.ImageFetchTimeout <= 0 {
		return fmt.Errorf("fetch timeouts must be positive")
	}

	if c.CacheFreshTTL < 0 || c.CacheStaleTTL < 0 {
		return fmt.Errorf("cache TTLs must be non-negative")
	}

	if c.TelegramRPS < 0 {
		return fmt.Errorf("TELEGRAM_RPS must be non-negative")
	}

	return nil
}
