// Package storage persists rollout status, history, and operator control
// requests. The file store is the controller's working state and the channel
// through which the status/set-weight/abort commands talk to a running
// rollout from another process. An optional Postgres sink keeps a durable
// audit trail of weight transitions.
package storage

import (
	"time"
)

// Store defines the interface for rollout state storage.
type Store interface {
	// SaveStatus saves the current rollout status for a service.
	SaveStatus(status *RolloutStatus) error

	// GetStatus retrieves the current rollout status for a service.
	GetStatus(service string) (*RolloutStatus, error)

	// AppendHistory saves one weight-transition history entry.
	AppendHistory(entry *HistoryEntry) error

	// GetHistory retrieves history for a service, newest first.
	GetHistory(service string, limit int) ([]HistoryEntry, error)

	// SaveControl records an operator control request for a service.
	// A later request replaces an earlier unconsumed one, except that an
	// abort is never replaced by a weight request.
	SaveControl(service string, req *ControlRequest) error

	// TakeControl removes and returns the pending control request for a
	// service, or nil if there is none.
	TakeControl(service string) (*ControlRequest, error)

	// CleanupOldEntries removes history entries older than the given age.
	CleanupOldEntries(olderThan time.Duration) error
}

// HistorySink receives weight-transition entries for audit. Implemented by
// the Postgres sink; the file store satisfies it too.
type HistorySink interface {
	AppendHistory(entry *HistoryEntry) error
}

// RolloutStatus is the snapshot the controller persists after every
// transition. It is what `rollops status` shows.
type RolloutStatus struct {
	Service       string    `json:"service"`
	Candidate     string    `json:"candidate"`
	Strategy      string    `json:"strategy"`
	Phase         string    `json:"phase"`
	Idle          bool      `json:"idle,omitempty"`
	Step          int       `json:"step"`
	CurrentWeight int       `json:"current_weight"`
	MaxWeight     int       `json:"max_weight"`
	Reason        string    `json:"reason,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HistoryEntry records one weight transition or terminal outcome.
type HistoryEntry struct {
	ID         string    `json:"id,omitempty"`
	Service    string    `json:"service"`
	Step       int       `json:"step"`
	FromWeight int       `json:"from_weight"`
	ToWeight   int       `json:"to_weight"`
	Phase      string    `json:"phase"`
	Verdict    string    `json:"verdict,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Control request types.
const (
	ControlAbort     = "abort"
	ControlSetWeight = "set_weight"
)

// ControlRequest is an operator request consumed by a running controller at
// its next suspension point.
type ControlRequest struct {
	Type        string    `json:"type"`
	Weight      int       `json:"weight,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
	RequestedBy string    `json:"requested_by,omitempty"`
}
