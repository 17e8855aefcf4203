package rollout

import (
	"fmt"
	"sync"
	"time"
)

// Phase represents where a rollout is in its lifecycle.
type Phase string

const (
	// PhaseInitializing creates the candidate and waits for readiness.
	PhaseInitializing Phase = "initializing"

	// PhaseShiftingTraffic applies the next weight checkpoint.
	PhaseShiftingTraffic Phase = "shifting_traffic"

	// PhaseEvaluating holds at a checkpoint and runs the health gate.
	PhaseEvaluating Phase = "evaluating"

	// PhaseRollingBack reverts all traffic to stable and discards the candidate.
	PhaseRollingBack Phase = "rolling_back"

	// PhasePromoting swaps the candidate into the stable slot.
	PhasePromoting Phase = "promoting"

	// PhasePromoted is terminal: the candidate is the new stable.
	PhasePromoted Phase = "promoted"

	// PhaseRolledBack is terminal: stable serves 100% again.
	PhaseRolledBack Phase = "rolled_back"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// IsTerminal returns true for the two end states.
func (p Phase) IsTerminal() bool {
	return p == PhasePromoted || p == PhaseRolledBack
}

// ValidTransitions defines the allowed phase transitions. RollingBack is
// reachable from every non-terminal phase, including mid-checkpoint.
var ValidTransitions = map[Phase][]Phase{
	PhaseInitializing:    {PhaseShiftingTraffic, PhaseRollingBack},
	PhaseShiftingTraffic: {PhaseEvaluating, PhaseRollingBack},
	PhaseEvaluating:      {PhaseShiftingTraffic, PhasePromoting, PhaseRollingBack},
	PhasePromoting:       {PhasePromoted, PhaseRollingBack},
	PhaseRollingBack:     {PhaseRolledBack},
	PhasePromoted:        {},
	PhaseRolledBack:      {},
}

// CanTransitionTo checks whether moving from p to next is allowed.
func (p Phase) CanTransitionTo(next Phase) bool {
	for _, valid := range ValidTransitions[p] {
		if valid == next {
			return true
		}
	}
	return false
}

// WeightTransition is one entry in the rollout's append-only history.
type WeightTransition struct {
	Step       int       `json:"step"`
	FromWeight int       `json:"from_weight"`
	ToWeight   int       `json:"to_weight"`
	Phase      Phase     `json:"phase"`
	Verdict    string    `json:"verdict,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	At         time.Time `json:"at"`
}

// State is the mutable rollout state, owned exclusively by one controller
// for the lifetime of one rollout. Reads from other goroutines (status
// queries) go through the mutex.
type State struct {
	mu sync.RWMutex

	phase         Phase
	idle          bool
	step          int
	currentWeight int
	reason        string
	history       []WeightTransition
	startedAt     time.Time
	finishedAt    time.Time
}

// NewState creates rollout state in the Initializing phase.
func NewState() *State {
	return &State{
		phase:     PhaseInitializing,
		startedAt: time.Now(),
	}
}

// Phase returns the current phase.
func (s *State) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Idle reports whether a manual rollout is parked waiting for operator input.
func (s *State) Idle() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idle
}

// SetIdle marks or clears the manual idle sub-state.
func (s *State) SetIdle(idle bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idle = idle
}

// CurrentWeight returns the candidate's current traffic weight.
func (s *State) CurrentWeight() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentWeight
}

// Step returns the current step index.
func (s *State) Step() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.step
}

// Reason returns the terminal reason, if any.
func (s *State) Reason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// SetReason overrides the recorded reason without a phase change. Used when
// a rollback fails and the phase must stay where it is.
func (s *State) SetReason(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reason = reason
}

// StartedAt returns when the rollout began.
func (s *State) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// Duration returns how long the rollout has been running, or ran.
func (s *State) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.finishedAt.IsZero() {
		return s.finishedAt.Sub(s.startedAt)
	}
	return time.Since(s.startedAt)
}

// History returns a copy of the append-only transition history.
func (s *State) History() []WeightTransition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]WeightTransition, len(s.history))
	copy(out, s.history)
	return out
}

// TransitionTo moves the rollout to the next phase, rejecting transitions
// the state machine does not allow.
func (s *State) TransitionTo(next Phase, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.phase.CanTransitionTo(next) {
		return fmt.Errorf("invalid phase transition %s → %s", s.phase, next)
	}

	s.phase = next
	if reason != "" {
		s.reason = reason
	}
	if next.IsTerminal() {
		s.finishedAt = time.Now()
	}
	return nil
}

// RecordWeight advances the step index, sets the new weight, and appends a
// history entry. The candidate weight never decreases except on rollback.
func (s *State) RecordWeight(weight int, verdict, reason string) WeightTransition {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := WeightTransition{
		Step:       s.step + 1,
		FromWeight: s.currentWeight,
		ToWeight:   weight,
		Phase:      s.phase,
		Verdict:    verdict,
		Reason:     reason,
		At:         time.Now(),
	}
	s.step++
	s.currentWeight = weight
	s.history = append(s.history, entry)
	return entry
}

// RecordRollbackWeight appends the rollback transition that zeroes the
// candidate weight without advancing the step index.
func (s *State) RecordRollbackWeight(reason string) WeightTransition {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := WeightTransition{
		Step:       s.step,
		FromWeight: s.currentWeight,
		ToWeight:   0,
		Phase:      s.phase,
		Verdict:    string(VerdictRollback),
		Reason:     reason,
		At:         time.Now(),
	}
	s.currentWeight = 0
	s.history = append(s.history, entry)
	return entry
}
