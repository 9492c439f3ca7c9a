package main

import (
	"context"
	"fmt"

	"github.com/nDmitry/tgsnap/internal/app"
	"github.com/nDmitry/tgsnap/internal/cache"
	"github.com/nDmitry/tgsnap/internal/config"
	"github.com/nDmitry/tgsnap/internal/extractor"
	"github.com/nDmitry/tgsnap/internal/inline"
	"github.com/nDmitry/tgsnap/internal/ratelimit"
	"github.com/nDmitry/tgsnap/internal/scraper"
)

// services holds what the commands need, built from the config.
type services struct {
	extractor *extractor.Service
	cache     cache.Cache
	// memory is nil when the rate table lives in Redis.
	memory *ratelimit.MemoryStore
}

// loadConfig reads the config and applies the process-wide settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()

	if err != nil {
		return nil, err
	}

	if err := app.SetLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	return cfg, nil
}

// build wires the pipeline. With useRedis and a configured address, the
// parse cache and the rate table are shared through Redis.
func build(ctx context.Context, cfg *config.Config, useRedis bool) (*services, error) {
	s := &services{cache: cache.NopCache{}}

	var store ratelimit.Store

	if useRedis && cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr)

		if err != nil {
			return nil, fmt.Errorf("could not set up redis: %w", err)
		}

		s.cache = rc
		store = ratelimit.NewRedisStore(rc.Client())
	} else {
		s.memory = ratelimit.NewMemoryStore()
		store = s.memory
	}

	fetcher := scraper.NewFetcher(
		scraper.WithUserAgent(cfg.UserAgent),
		scraper.WithRateLimit(cfg.TelegramRPS, max(int(cfg.TelegramRPS), 1)),
	)

	inliner := inline.New(
		inline.WithTimeout(cfg.ImageFetchTimeout),
		inline.WithMaxBytes(cfg.ImageMaxBytes),
		inline.WithConcurrency(cfg.InlineConcurrency),
	)

	s.extractor = extractor.New(
		fetcher,
		ratelimit.NewLimiter(store, cfg.RateLimitMax, cfg.RateLimitWindow),
		s.cache,
		inliner,
		extractor.WithPageTimeout(cfg.PageFetchTimeout),
		extractor.WithCacheTTL(cfg.CacheFreshTTL, cfg.CacheStaleTTL),
		extractor.WithBaseContext(ctx),
	)

	return s, nil
}
