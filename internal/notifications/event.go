package notifications

import (
	"time"
)

// EventType represents the type of rollout event.
type EventType string

const (
	// EventTypeStarted indicates a rollout has started.
	EventTypeStarted EventType = "started"

	// EventTypePromoted indicates the candidate was promoted to stable.
	EventTypePromoted EventType = "promoted"

	// EventTypeRolledBack indicates the rollout was rolled back.
	EventTypeRolledBack EventType = "rolled_back"

	// EventTypeRollbackFailed indicates the rollback path itself failed and
	// traffic may be stuck at a partial split. This is the most urgent event.
	EventTypeRollbackFailed EventType = "rollback_failed"
)

// RolloutEvent represents a rollout lifecycle event for notifications.
type RolloutEvent struct {
	// Type is the type of event.
	Type EventType

	// Service is the name of the service being rolled out.
	Service string

	// Candidate is the candidate revision name.
	Candidate string

	// Strategy is the traffic shift strategy (linear, exponential, manual).
	Strategy string

	// Reason is the human-readable outcome reason for terminal events.
	Reason string

	// Weight is the candidate traffic weight when the event occurred.
	Weight int

	// Error contains the error for rollback_failed events.
	Error error

	// Duration is how long the rollout had been running.
	Duration time.Duration

	// Metadata contains additional context about the rollout.
	Metadata map[string]string

	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// AllEventTypes returns all valid event types.
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeStarted,
		EventTypePromoted,
		EventTypeRolledBack,
		EventTypeRollbackFailed,
	}
}
