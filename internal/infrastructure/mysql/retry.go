package mysql

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	apperrors "storefront/internal/errors"
)

const retryBackoffBase = 100 * time.Millisecond

// RetryOnDeadlock runs fn up to maxAttempts times while it fails with an
// InnoDB deadlock or lock wait timeout. fn must open and finish its own
// transaction so every attempt starts clean. Other errors return immediately.
func RetryOnDeadlock(ctx context.Context, maxAttempts int, logger *zap.Logger, fn func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if !IsDeadlock(err) {
			return err
		}

		if attempt == maxAttempts {
			break
		}

		// ±20% jitter around a linear backoff
		base := retryBackoffBase * time.Duration(attempt)
		wait := time.Duration(float64(base) * (0.8 + rand.Float64()*0.4))
		logger.Warn("deadlock detected, retrying",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", maxAttempts),
			zap.Duration("backoff", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return apperrors.NewDeadlockError("max retries exceeded")
}
