package rollout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/systmms/rollops/internal/errors"
	"github.com/systmms/rollops/internal/logging"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, Backoff: time.Millisecond}
}

func TestWithRetrySucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	err := withRetry(context.Background(), fastRetry(3), logging.New(false, true), "op", func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRecoversAfterTransientFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	err := withRetry(context.Background(), fastRetry(3), logging.New(false, true), "op", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustionWrapsLastError(t *testing.T) {
	t.Parallel()

	lastErr := errors.New("still broken")
	calls := 0
	err := withRetry(context.Background(), fastRetry(3), logging.New(false, true), "op", func(context.Context) error {
		calls++
		return lastErr
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, rerrors.IsRetryExhausted(err))
	assert.ErrorIs(t, err, lastErr)
}

func TestWithRetryDoesNotRetryCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, fastRetry(3), logging.New(false, true), "op", func(context.Context) error {
		calls++
		cancel()
		return context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation is the operator speaking, not a transient fault")
}

func TestWithRetryDoesNotRetryReadinessTimeout(t *testing.T) {
	t.Parallel()

	timeoutErr := rerrors.ReadinessTimeoutError{Revision: "svc-v2", Timeout: time.Minute}
	calls := 0
	err := withRetry(context.Background(), fastRetry(3), logging.New(false, true), "op", func(context.Context) error {
		calls++
		return timeoutErr
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "a readiness timeout already contains its own retry budget")

	var asTimeout rerrors.ReadinessTimeoutError
	assert.True(t, errors.As(err, &asTimeout))
	assert.False(t, rerrors.IsRetryExhausted(err))
}

func TestWithRetryLinearBackoff(t *testing.T) {
	t.Parallel()

	// Three attempts with a 10ms base wait 10ms then 20ms between attempts.
	config := RetryConfig{MaxAttempts: 3, Backoff: 10 * time.Millisecond}
	start := time.Now()
	err := withRetry(context.Background(), config, logging.New(false, true), "op", func(context.Context) error {
		return errors.New("always fails")
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond, "waits 1x then 2x the base backoff")
}

func TestWithRetryZeroAttemptsRunsOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	err := withRetry(context.Background(), RetryConfig{}, logging.New(false, true), "op", func(context.Context) error {
		calls++
		return errors.New("nope")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
