package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage_StatusRoundTrip(t *testing.T) {
	t.Parallel()

	fs := NewFileStorage(t.TempDir())

	status := &RolloutStatus{
		Service:       "scoring-api",
		Candidate:     "scoring-api-v42",
		Strategy:      "linear",
		Phase:         "evaluating",
		Step:          2,
		CurrentWeight: 50,
		MaxWeight:     100,
		StartedAt:     time.Now().Add(-10 * time.Minute),
	}
	require.NoError(t, fs.SaveStatus(status))

	got, err := fs.GetStatus("scoring-api")
	require.NoError(t, err)
	assert.Equal(t, "scoring-api", got.Service)
	assert.Equal(t, "evaluating", got.Phase)
	assert.Equal(t, 50, got.CurrentWeight)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestFileStorage_GetStatusMissing(t *testing.T) {
	t.Parallel()

	fs := NewFileStorage(t.TempDir())

	_, err := fs.GetStatus("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rollout status found")
}

func TestFileStorage_HistoryNewestFirst(t *testing.T) {
	t.Parallel()

	fs := NewFileStorage(t.TempDir())

	base := time.Now()
	for i, weight := range []int{25, 50, 75} {
		entry := &HistoryEntry{
			Service:    "scoring-api",
			Step:       i + 1,
			FromWeight: weight - 25,
			ToWeight:   weight,
			Phase:      "shifting_traffic",
			Timestamp:  base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, fs.AppendHistory(entry))
	}

	entries, err := fs.GetHistory("scoring-api", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, 75, entries[0].ToWeight)
	assert.Equal(t, 25, entries[2].ToWeight)

	limited, err := fs.GetHistory("scoring-api", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestFileStorage_HistoryEmptyService(t *testing.T) {
	t.Parallel()

	fs := NewFileStorage(t.TempDir())

	entries, err := fs.GetHistory("scoring-api", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStorage_ControlRoundTrip(t *testing.T) {
	t.Parallel()

	fs := NewFileStorage(t.TempDir())

	require.NoError(t, fs.SaveControl("scoring-api", &ControlRequest{
		Type:   ControlSetWeight,
		Weight: 40,
	}))

	req, err := fs.TakeControl("scoring-api")
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, ControlSetWeight, req.Type)
	assert.Equal(t, 40, req.Weight)
	assert.False(t, req.RequestedAt.IsZero())

	// Consumed: second take returns nothing.
	req, err = fs.TakeControl("scoring-api")
	require.NoError(t, err)
	assert.Nil(t, req)
}

func TestFileStorage_AbortNotOverwrittenByWeight(t *testing.T) {
	t.Parallel()

	fs := NewFileStorage(t.TempDir())

	require.NoError(t, fs.SaveControl("scoring-api", &ControlRequest{Type: ControlAbort}))

	err := fs.SaveControl("scoring-api", &ControlRequest{Type: ControlSetWeight, Weight: 60})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abort request is already pending")

	req, err := fs.TakeControl("scoring-api")
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, ControlAbort, req.Type)
}

func TestFileStorage_AbortReplacesWeight(t *testing.T) {
	t.Parallel()

	fs := NewFileStorage(t.TempDir())

	require.NoError(t, fs.SaveControl("scoring-api", &ControlRequest{Type: ControlSetWeight, Weight: 30}))
	require.NoError(t, fs.SaveControl("scoring-api", &ControlRequest{Type: ControlAbort}))

	req, err := fs.TakeControl("scoring-api")
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, ControlAbort, req.Type)
}

func TestFileStorage_CleanupOldEntries(t *testing.T) {
	t.Parallel()

	fs := NewFileStorage(t.TempDir())

	old := &HistoryEntry{
		Service:   "scoring-api",
		ToWeight:  25,
		Phase:     "shifting_traffic",
		Timestamp: time.Now().Add(-48 * time.Hour),
	}
	recent := &HistoryEntry{
		Service:   "scoring-api",
		ToWeight:  50,
		Phase:     "shifting_traffic",
		Timestamp: time.Now(),
	}
	require.NoError(t, fs.AppendHistory(old))
	require.NoError(t, fs.AppendHistory(recent))

	require.NoError(t, fs.CleanupOldEntries(24*time.Hour))

	entries, err := fs.GetHistory("scoring-api", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 50, entries[0].ToWeight)
}

func TestFileStorage_SanitizesServiceNames(t *testing.T) {
	t.Parallel()

	fs := NewFileStorage(t.TempDir())

	status := &RolloutStatus{Service: "team/scoring:api", Phase: "initializing"}
	require.NoError(t, fs.SaveStatus(status))

	got, err := fs.GetStatus("team/scoring:api")
	require.NoError(t, err)
	assert.Equal(t, "team/scoring:api", got.Service)
}
