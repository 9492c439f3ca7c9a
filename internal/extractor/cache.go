package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nDmitry/tgsnap/internal/cache"
	"github.com/nDmitry/tgsnap/internal/entity"
	"github.com/nDmitry/tgsnap/internal/link"
	"github.com/nDmitry/tgsnap/internal/observability"
)

const (
	DefaultFreshTTL = 5 * time.Minute
	DefaultStaleTTL = time.Hour

	cacheWriteTimeout = 5 * time.Second
)

// CacheStatus is reported to clients in the X-CACHE-STATUS header.
type CacheStatus string

const (
	CacheHit   CacheStatus = "HIT"
	CacheStale CacheStatus = "STALE"
	CacheMiss  CacheStatus = "MISS"
)

type cacheEntry struct {
	Post     *entity.Post `json:"post"`
	StoredAt time.Time    `json:"storedAt"`
}

func cacheKey(l link.Link) string {
	return "telegram:" + l.URL()
}

// cached serves a fresh entry as is and a stale one while refreshing it in
// the background.
func (s *Service) cached(ctx context.Context, l link.Link) (*Result, bool) {
	if s.freshTTL <= 0 {
		return nil, false
	}

	entry, ok := s.lookup(ctx, cacheKey(l))

	if ok {
		age := s.now().Sub(entry.StoredAt)

		switch {
		case age <= s.freshTTL:
			observability.CacheLookups.WithLabelValues(string(CacheHit)).Inc()
			return &Result{Post: entry.Post, CacheStatus: CacheHit}, true
		case age <= s.freshTTL+s.staleTTL:
			observability.CacheLookups.WithLabelValues(string(CacheStale)).Inc()
			s.refresh(l)

			return &Result{Post: entry.Post, CacheStatus: CacheStale}, true
		}
	}

	observability.CacheLookups.WithLabelValues(string(CacheMiss)).Inc()

	return nil, false
}

func (s *Service) lookup(ctx context.Context, key string) (*cacheEntry, bool) {
	data, err := s.cache.Get(ctx, key)

	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "Cache error", "key", key, "error", err)
		}

		return nil, false
	}

	var entry cacheEntry

	if err := json.Unmarshal(data, &entry); err != nil || entry.Post == nil {
		s.logger.WarnContext(ctx, "Discarding unreadable cache entry", "key", key, "error", err)
		return nil, false
	}

	return &entry, true
}

func (s *Service) store(ctx context.Context, key string, post *entity.Post) {
	if s.freshTTL <= 0 {
		return
	}

	data, err := json.Marshal(cacheEntry{Post: post, StoredAt: s.now()})

	if err != nil {
		s.logger.ErrorContext(ctx, "Could not encode cache entry", "key", key, "error", err)
		return
	}

	// Use a detached context for caching to avoid cancellation
	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()

	if err := s.cache.Set(cacheCtx, key, data, s.freshTTL+s.staleTTL); err != nil {
		s.logger.ErrorContext(ctx, "Failed to cache post", "key", key, "error", err)
	}
}

// refresh reloads a stale entry. Concurrent refreshes of one key share a
// single fetch.
func (s *Service) refresh(l link.Link) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		// Both page forms may be tried.
		ctx, cancel := context.WithTimeout(s.baseCtx, 2*s.pageTimeout)
		defer cancel()

		if _, err := s.load(ctx, l); err != nil {
			s.logger.WarnContext(ctx, "Background refresh failed", "post", l.PostID(), "error", err)
		}
	}()
}
