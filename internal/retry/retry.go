// Package retry provides a small fixed-delay retry helper for flaky
// camera and external-service calls.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/Harky911/ReolinkANPR/internal/logging"
)

// Do runs fn up to attempts times, sleeping delay between attempts. It stops
// early on success or context cancellation and returns the last error when
// every attempt fails.
func Do(ctx context.Context, logger *slog.Logger, label string, attempts int, delay time.Duration, fn func(context.Context) error) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt < attempts {
			logger.Warn("operation failed, retrying",
				logging.String("operation", label),
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", attempts),
				logging.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}

// BestEffort runs fn with Do and logs instead of returning the final error.
// Used for operations whose failure must never abort the pipeline, like
// camera setting adjustments.
func BestEffort(ctx context.Context, logger *slog.Logger, label string, attempts int, delay time.Duration, fn func(context.Context) error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := Do(ctx, logger, label, attempts, delay, fn); err != nil {
		logger.Warn("operation failed after retries, continuing",
			logging.String("operation", label),
			logging.Int("attempts", attempts),
			logging.Error(err))
	}
}
