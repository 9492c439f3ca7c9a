package app

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

var sentryEnabled bool

// InitSentry enables error reporting. An empty DSN leaves it disabled.
func InitSentry(dsn, release string) error {
	if dsn == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:     dsn,
		Release: release,
	})

	if err != nil {
		return fmt.Errorf("could not initialize sentry: %w", err)
	}

	sentryEnabled = true

	return nil
}

// ReportError sends err to Sentry when it is enabled.
func ReportError(ctx context.Context, err error) {
	if !sentryEnabled || err == nil {
		return
	}

	hub := sentry.CurrentHub().Clone()

	if id := RequestID(ctx); id != "" {
		hub.Scope().SetTag("request_id", id)
	}

	hub.CaptureException(err)
}

// FlushSentry waits for buffered events to be delivered.
func FlushSentry() {
	if sentryEnabled {
		sentry.Flush(2 * time.Second)
	}
}
