package planning

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"
)

// SQLiteAuditStore persists audit events in SQLite.
type SQLiteAuditStore struct {
	db *sql.DB
}

var _ AuditStore = (*SQLiteAuditStore)(nil)

// OpenSQLiteAuditStore opens the database at dsn and ensures the schema.
func OpenSQLiteAuditStore(dsn string) (*SQLiteAuditStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s, err := NewSQLiteAuditStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteAuditStore creates a SQLite-backed audit store and ensures schema.
func NewSQLiteAuditStore(db *sql.DB) (*SQLiteAuditStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureAuditSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteAuditStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteAuditStore) Close() error { return s.db.Close() }

// Record stores a single audit event.
func (s *SQLiteAuditStore) Record(ctx context.Context, event AuditEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plan_audit_events (
			plan_id, step, function, status, output, error_text, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		event.PlanID,
		event.Step,
		event.Function,
		event.Status,
		event.Output,
		event.Error,
		normalizeAuditTime(event.StartedAt),
		normalizeAuditTime(event.FinishedAt),
	)
	return err
}

// List returns audit events matching the filter.
func (s *SQLiteAuditStore) List(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT plan_id, step, function, status, output, error_text, started_at, finished_at
		FROM plan_audit_events
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.PlanID != "" {
		addFilter("plan_id = ?", filter.PlanID)
	}
	if filter.Status != "" {
		addFilter("status = ?", filter.Status)
	}
	query += where + " ORDER BY id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var (
			event    AuditEvent
			started  sql.NullTime
			finished sql.NullTime
		)
		if err := rows.Scan(
			&event.PlanID,
			&event.Step,
			&event.Function,
			&event.Status,
			&event.Output,
			&event.Error,
			&started,
			&finished,
		); err != nil {
			return nil, err
		}
		if started.Valid {
			event.StartedAt = started.Time
		}
		if finished.Valid {
			event.FinishedAt = finished.Time
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func ensureAuditSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS plan_audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			plan_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			function TEXT NOT NULL,
			status TEXT NOT NULL,
			output TEXT,
			error_text TEXT,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_plan_audit_plan ON plan_audit_events(plan_id);
		CREATE INDEX IF NOT EXISTS idx_plan_audit_status ON plan_audit_events(status);
	`)
	return err
}
