package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

// PostgresAudit appends weight-transition history to a Postgres table for a
// durable audit trail. It is an optional extra sink next to the file store,
// never the controller's working state.
type PostgresAudit struct {
	db *sql.DB
}

// NewPostgresAudit opens a Postgres-backed audit sink.
func NewPostgresAudit(dsn string) (*PostgresAudit, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	return &PostgresAudit{db: db}, nil
}

// NewPostgresAuditFromDB wraps an existing connection, used by tests.
func NewPostgresAuditFromDB(db *sql.DB) *PostgresAudit {
	return &PostgresAudit{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (p *PostgresAudit) EnsureSchema() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS rollout_history (
			id          BIGSERIAL PRIMARY KEY,
			service     TEXT        NOT NULL,
			step        INT         NOT NULL,
			from_weight INT         NOT NULL,
			to_weight   INT         NOT NULL,
			phase       TEXT        NOT NULL,
			verdict     TEXT        NOT NULL DEFAULT '',
			reason      TEXT        NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	return nil
}

// AppendHistory inserts one history entry.
func (p *PostgresAudit) AppendHistory(entry *HistoryEntry) error {
	_, err := p.db.Exec(
		`INSERT INTO rollout_history (service, step, from_weight, to_weight, phase, verdict, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.Service, entry.Step, entry.FromWeight, entry.ToWeight,
		entry.Phase, entry.Verdict, entry.Reason, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

// GetHistory retrieves history for a service, newest first.
func (p *PostgresAudit) GetHistory(service string, limit int) ([]HistoryEntry, error) {
	rows, err := p.db.Query(
		`SELECT service, step, from_weight, to_weight, phase, verdict, reason, created_at
		 FROM rollout_history WHERE service = $1 ORDER BY created_at DESC LIMIT $2`,
		service, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		if err := rows.Scan(&entry.Service, &entry.Step, &entry.FromWeight, &entry.ToWeight,
			&entry.Phase, &entry.Verdict, &entry.Reason, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CleanupOldEntries removes entries older than the given age.
func (p *PostgresAudit) CleanupOldEntries(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	_, err := p.db.Exec(`DELETE FROM rollout_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to clean up history: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (p *PostgresAudit) Close() error {
	return p.db.Close()
}
