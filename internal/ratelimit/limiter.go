// Package ratelimit implements fixed-window admission control per client.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/nDmitry/tgsnap/internal/entity"
	"github.com/nDmitry/tgsnap/internal/observability"
)

const (
	DefaultMax    = 30
	DefaultWindow = time.Minute
)

// Store counts hits per key. Hit must increment and return the count for the
// current window as a single atomic step, starting a new window when the
// previous one has expired. A store may refuse to count past limit.
type Store interface {
	Hit(ctx context.Context, key string, window time.Duration, limit int) (count int, resetAt time.Time, err error)
}

// Limiter admits at most Max requests per Window for each client id.
type Limiter struct {
	store  Store
	max    int
	window time.Duration
}

func NewLimiter(store Store, max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = DefaultMax
	}

	if window <= 0 {
		window = DefaultWindow
	}

	return &Limiter{store: store, max: max, window: window}
}

// RetryAfterError is returned when a client exceeded its budget.
type RetryAfterError struct {
	ResetAt time.Time
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("rate limit window resets at %s", e.ResetAt.UTC().Format(time.RFC3339))
}

// Admit records a request from clientID and reports whether it may proceed.
func (l *Limiter) Admit(ctx context.Context, clientID string) error {
	if clientID == "" {
		clientID = UnknownClient
	}

	count, resetAt, err := l.store.Hit(ctx, clientID, l.window, l.max)

	if err != nil {
		return fmt.Errorf("could not record a hit for %s: %w", clientID, err)
	}

	if count > l.max {
		observability.RateLimited.Inc()
		return entity.NewError(entity.KindRateLimitExceeded, &RetryAfterError{ResetAt: resetAt})
	}

	return nil
}
