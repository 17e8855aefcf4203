package rollout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from    Phase
		to      Phase
		allowed bool
	}{
		{PhaseInitializing, PhaseShiftingTraffic, true},
		{PhaseInitializing, PhaseRollingBack, true},
		{PhaseInitializing, PhasePromoting, false},
		{PhaseShiftingTraffic, PhaseEvaluating, true},
		{PhaseShiftingTraffic, PhasePromoted, false},
		{PhaseEvaluating, PhaseShiftingTraffic, true},
		{PhaseEvaluating, PhasePromoting, true},
		{PhaseEvaluating, PhaseRollingBack, true},
		{PhasePromoting, PhasePromoted, true},
		{PhasePromoting, PhaseRollingBack, true},
		{PhaseRollingBack, PhaseRolledBack, true},
		{PhaseRollingBack, PhaseShiftingTraffic, false},
		{PhasePromoted, PhaseRollingBack, false},
		{PhaseRolledBack, PhaseInitializing, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to), "%s → %s", tt.from, tt.to)
	}
}

func TestPhaseIsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, PhasePromoted.IsTerminal())
	assert.True(t, PhaseRolledBack.IsTerminal())
	assert.False(t, PhaseInitializing.IsTerminal())
	assert.False(t, PhaseRollingBack.IsTerminal())
}

func TestStateTransitionTo(t *testing.T) {
	t.Parallel()

	state := NewState()
	assert.Equal(t, PhaseInitializing, state.Phase())

	require.NoError(t, state.TransitionTo(PhaseShiftingTraffic, ""))
	require.NoError(t, state.TransitionTo(PhaseEvaluating, ""))

	err := state.TransitionTo(PhasePromoted, "")
	require.Error(t, err, "evaluating cannot jump straight to promoted")
	assert.Equal(t, PhaseEvaluating, state.Phase(), "failed transition leaves phase unchanged")

	require.NoError(t, state.TransitionTo(PhaseRollingBack, "latency_exceeded"))
	require.NoError(t, state.TransitionTo(PhaseRolledBack, "latency_exceeded"))
	assert.Equal(t, "latency_exceeded", state.Reason())
	assert.Greater(t, state.Duration().Nanoseconds(), int64(0))
}

func TestStateRecordWeight(t *testing.T) {
	t.Parallel()

	state := NewState()
	require.NoError(t, state.TransitionTo(PhaseShiftingTraffic, ""))

	first := state.RecordWeight(25, "", "")
	assert.Equal(t, 1, first.Step)
	assert.Equal(t, 0, first.FromWeight)
	assert.Equal(t, 25, first.ToWeight)

	second := state.RecordWeight(50, "", "")
	assert.Equal(t, 2, second.Step)
	assert.Equal(t, 25, second.FromWeight)
	assert.Equal(t, 50, second.ToWeight)

	assert.Equal(t, 50, state.CurrentWeight())
	assert.Equal(t, 2, state.Step())

	history := state.History()
	require.Len(t, history, 2)
	assert.Equal(t, first, history[0])
	assert.Equal(t, second, history[1])

	// History returns a copy; mutating it must not touch the state.
	history[0].ToWeight = 99
	assert.Equal(t, 25, state.History()[0].ToWeight)
}

func TestStateRecordRollbackWeight(t *testing.T) {
	t.Parallel()

	state := NewState()
	require.NoError(t, state.TransitionTo(PhaseShiftingTraffic, ""))
	state.RecordWeight(40, "", "")
	require.NoError(t, state.TransitionTo(PhaseEvaluating, ""))
	require.NoError(t, state.TransitionTo(PhaseRollingBack, ReasonErrorRate))

	entry := state.RecordRollbackWeight(ReasonErrorRate)
	assert.Equal(t, 1, entry.Step, "rollback does not advance the step index")
	assert.Equal(t, 40, entry.FromWeight)
	assert.Equal(t, 0, entry.ToWeight)
	assert.Equal(t, string(VerdictRollback), entry.Verdict)

	assert.Equal(t, 0, state.CurrentWeight())
	assert.Equal(t, 1, state.Step())
	assert.Len(t, state.History(), 2)
}

func TestStateIdleFlag(t *testing.T) {
	t.Parallel()

	state := NewState()
	assert.False(t, state.Idle())
	state.SetIdle(true)
	assert.True(t, state.Idle())
	state.SetIdle(false)
	assert.False(t, state.Idle())
}
