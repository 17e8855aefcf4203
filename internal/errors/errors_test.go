package errors_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/rollops/internal/errors"
)

// TestUserErrorFormatting verifies UserError displays properly
func TestUserErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.UserError{
		Message:    "Rollout failed",
		Details:    "router unreachable",
		Suggestion: "Check the router endpoint in rollops.yaml",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "Rollout failed")
	assert.Contains(t, errMsg, "router unreachable")
	assert.Contains(t, errMsg, "Check the router endpoint")
}

// TestConfigErrorFormatting verifies ConfigError displays with context
func TestConfigErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.ConfigError{
		Field:      "platform.metrics.prometheus_url",
		Value:      "not-a-url",
		Message:    "invalid URL format",
		Suggestion: "Use format: http://hostname:port",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "platform.metrics.prometheus_url")
	assert.Contains(t, errMsg, "not-a-url")
	assert.Contains(t, errMsg, "invalid URL format")
}

func TestInvalidSpecError(t *testing.T) {
	t.Parallel()

	err := errors.InvalidSpecError{
		Field:   "max_weight",
		Value:   0,
		Message: "must be between 1 and 100",
	}

	assert.Contains(t, err.Error(), "max_weight")
	assert.Contains(t, err.Error(), "must be between 1 and 100")
	assert.True(t, errors.IsInvalidSpec(err))
	assert.True(t, errors.IsInvalidSpec(fmt.Errorf("starting rollout: %w", err)))
	assert.False(t, errors.IsInvalidSpec(fmt.Errorf("plain error")))
}

func TestClientErrorUnwrap(t *testing.T) {
	t.Parallel()

	inner := fmt.Errorf("connection refused")
	err := errors.ClientError{Client: "router", Operation: "setSplit", Err: inner}

	assert.Contains(t, err.Error(), "router")
	assert.Contains(t, err.Error(), "setSplit")
	assert.ErrorIs(t, err, inner)
}

func TestRetryExhausted(t *testing.T) {
	t.Parallel()

	last := fmt.Errorf("503 from router")
	err := errors.RetryExhaustedError{Attempts: 3, Last: last}

	assert.Contains(t, err.Error(), "3 attempts")
	assert.ErrorIs(t, err, last)
	assert.True(t, errors.IsRetryExhausted(err))
	assert.True(t, errors.IsRetryExhausted(fmt.Errorf("shifting traffic: %w", err)))
}

func TestRollbackFailureError(t *testing.T) {
	t.Parallel()

	inner := errors.RetryExhaustedError{Attempts: 2, Last: fmt.Errorf("router down")}
	err := errors.RollbackFailureError{Service: "scoring-api", Err: inner}

	assert.Contains(t, err.Error(), "ROLLBACK FAILED")
	assert.Contains(t, err.Error(), "scoring-api")
	assert.True(t, errors.IsRollbackFailure(err))
	assert.True(t, errors.IsRetryExhausted(err))
}

func TestReadinessTimeoutError(t *testing.T) {
	t.Parallel()

	err := errors.ReadinessTimeoutError{Revision: "scoring-api-v42", Timeout: 5 * time.Minute}

	assert.Contains(t, err.Error(), "scoring-api-v42")
	assert.Contains(t, err.Error(), "5m0s")
}
