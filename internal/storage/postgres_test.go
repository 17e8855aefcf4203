package storage

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresAudit_AppendHistory(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	audit := NewPostgresAuditFromDB(db)

	entry := &HistoryEntry{
		Service:    "scoring-api",
		Step:       2,
		FromWeight: 25,
		ToWeight:   50,
		Phase:      "shifting_traffic",
		Verdict:    "continue",
		Timestamp:  time.Now(),
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO rollout_history`)).
		WithArgs(entry.Service, entry.Step, entry.FromWeight, entry.ToWeight,
			entry.Phase, entry.Verdict, entry.Reason, entry.Timestamp).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, audit.AppendHistory(entry))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAudit_GetHistory(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	audit := NewPostgresAuditFromDB(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"service", "step", "from_weight", "to_weight", "phase", "verdict", "reason", "created_at",
	}).
		AddRow("scoring-api", 2, 25, 50, "rolling_back", "rollback", "error_rate_exceeded", now).
		AddRow("scoring-api", 1, 0, 25, "shifting_traffic", "continue", "", now.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT service, step, from_weight, to_weight, phase, verdict, reason, created_at`)).
		WithArgs("scoring-api", 10).
		WillReturnRows(rows)

	entries, err := audit.GetHistory("scoring-api", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "rollback", entries[0].Verdict)
	assert.Equal(t, "error_rate_exceeded", entries[0].Reason)
	assert.Equal(t, 25, entries[1].ToWeight)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAudit_CleanupOldEntries(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	audit := NewPostgresAuditFromDB(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM rollout_history WHERE created_at < $1`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, audit.CleanupOldEntries(24*time.Hour))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAudit_EnsureSchema(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	audit := NewPostgresAuditFromDB(db)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS rollout_history").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, audit.EnsureSchema())
	require.NoError(t, mock.ExpectationsWereMet())
}
