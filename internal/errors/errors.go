// Package errors defines the rollout error taxonomy and the user-facing
// error types shown by the CLI.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// InvalidSpecError rejects a rollout spec before any side effect has happened.
type InvalidSpecError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e InvalidSpecError) Error() string {
	msg := "Invalid rollout spec"
	if e.Field != "" {
		msg += fmt.Sprintf(": field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// ClientError wraps a transient failure from one of the platform clients
// (router, revision lifecycle, metrics provider). Client errors are retried
// with backoff before they are surfaced.
type ClientError struct {
	Client    string // "router", "revisions", "metrics"
	Operation string
	Err       error
}

func (e ClientError) Error() string {
	return fmt.Sprintf("%s client error during %s: %v", e.Client, e.Operation, e.Err)
}

func (e ClientError) Unwrap() error {
	return e.Err
}

// RetryExhaustedError is returned when a client call failed on every attempt.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e RetryExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed, last error: %v", e.Attempts, e.Last)
}

func (e RetryExhaustedError) Unwrap() error {
	return e.Last
}

// ReadinessTimeoutError means the candidate revision never became ready
// within the configured window. No traffic was shifted.
type ReadinessTimeoutError struct {
	Revision string
	Timeout  time.Duration
}

func (e ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("revision %s did not become ready within %s", e.Revision, e.Timeout)
}

// RollbackFailureError is fatal: the rollback path itself exhausted its
// retries and traffic may be stuck at a partial split. It is surfaced
// immediately and paged at the highest severity.
type RollbackFailureError struct {
	Service string
	Err     error
}

func (e RollbackFailureError) Error() string {
	return fmt.Sprintf("ROLLBACK FAILED for service %s, traffic split may be in an unknown state: %v", e.Service, e.Err)
}

func (e RollbackFailureError) Unwrap() error {
	return e.Err
}

// IsInvalidSpec reports whether err is (or wraps) an InvalidSpecError.
func IsInvalidSpec(err error) bool {
	var target InvalidSpecError
	return errors.As(err, &target)
}

// IsRollbackFailure reports whether err is (or wraps) a RollbackFailureError.
func IsRollbackFailure(err error) bool {
	var target RollbackFailureError
	return errors.As(err, &target)
}

// IsRetryExhausted reports whether err is (or wraps) a RetryExhaustedError.
func IsRetryExhausted(err error) bool {
	var target RetryExhaustedError
	return errors.As(err, &target)
}
