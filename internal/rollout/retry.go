package rollout

import (
	"context"
	"errors"
	"time"

	rerrors "github.com/systmms/rollops/internal/errors"
	"github.com/systmms/rollops/internal/logging"
)

// RetryConfig bounds the retry loop wrapped around every platform client
// call. Backoff is linear: the wait before attempt n is n * Backoff.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (default: 3).
	MaxAttempts int

	// Backoff is the base wait between attempts (default: 2s).
	Backoff time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Backoff:     2 * time.Second,
	}
}

// withRetry runs fn up to config.MaxAttempts times with linear backoff.
// Context cancellation and readiness timeouts are not retried: the first
// is the operator aborting, the second is a policy outcome of its own.
// When every attempt fails the last error is wrapped in RetryExhaustedError.
func withRetry(ctx context.Context, config RetryConfig, logger *logging.Logger, op string, fn func(context.Context) error) error {
	attempts := config.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		var timeoutErr rerrors.ReadinessTimeoutError
		if errors.As(err, &timeoutErr) {
			return err
		}

		lastErr = err
		if attempt == attempts {
			break
		}

		wait := time.Duration(attempt) * config.Backoff
		logger.Warn("%s failed (attempt %d/%d), retrying in %s: %v", op, attempt, attempts, wait, err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return rerrors.RetryExhaustedError{Attempts: attempts, Last: lastErr}
}
