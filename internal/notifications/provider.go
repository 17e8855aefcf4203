// Package notifications delivers rollout lifecycle events to external
// channels. Delivery is fire-and-forget: failures are logged, never fatal
// to the rollout.
package notifications

import (
	"context"
)

// Provider defines the interface for sending rollout notifications.
type Provider interface {
	// Name returns the provider name (e.g., "slack", "pagerduty", "webhook").
	Name() string

	// Send sends a notification for the given rollout event.
	Send(ctx context.Context, event RolloutEvent) error

	// SupportsEvent returns true if this provider handles the given event type.
	SupportsEvent(eventType EventType) bool

	// Validate checks if the provider configuration is valid.
	Validate(ctx context.Context) error
}
