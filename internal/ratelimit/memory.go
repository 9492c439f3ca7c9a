package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/nDmitry/tgsnap/internal/app"
	"github.com/nDmitry/tgsnap/internal/observability"
)

const DefaultSweepInterval = 5 * time.Minute

type record struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps the rate table in process memory. It does not work
// across several instances, use RedisStore for that.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*record),
		now:     time.Now,
	}
}

// Hit implements Store. The whole read-check-increment runs under one lock,
// and a record at the limit is not incremented further.
func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration, limit int) (int, time.Time, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]

	if !ok || now.After(rec.resetAt) {
		rec = &record{count: 1, resetAt: now.Add(window)}
		s.records[key] = rec
		observability.RateLimitKeys.Set(float64(len(s.records)))

		return rec.count, rec.resetAt, nil
	}

	if rec.count >= limit {
		return rec.count + 1, rec.resetAt, nil
	}

	rec.count++

	return rec.count, rec.resetAt, nil
}

// Sweep deletes every record whose window has expired and returns how many
// were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0

	for key, rec := range s.records {
		if now.After(rec.resetAt) {
			delete(s.records, key)
			removed++
		}
	}

	observability.RateLimitKeys.Set(float64(len(s.records)))

	return removed
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

// Run sweeps the table every interval until ctx is canceled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	logger := app.Logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				logger.Debug("Swept expired rate limit records", "removed", removed)
			}
		}
	}
}
