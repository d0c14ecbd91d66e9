package audit

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists mission events in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the audit database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an existing database handle and ensures schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureMissionEventSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Record stores a single mission event.
func (s *SQLiteStore) Record(ctx context.Context, event Event) error {
	event = normalize(event)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mission_events (run_id, kind, subject, status, detail, at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		event.RunID,
		event.Kind,
		event.Subject,
		event.Status,
		event.Detail,
		event.At,
	)
	return err
}

// List returns mission events matching the filter.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Event, error) {
	query := `SELECT run_id, kind, subject, status, detail, at FROM mission_events`
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
	if filter.RunID != "" {
		addFilter("run_id = ?", filter.RunID)
	}
	if filter.Kind != "" {
		addFilter("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		addFilter("status = ?", filter.Status)
	}
	query += where + " ORDER BY at ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event Event
			at    sql.NullTime
		)
		if err := rows.Scan(
			&event.RunID,
			&event.Kind,
			&event.Subject,
			&event.Status,
			&event.Detail,
			&at,
		); err != nil {
			return nil, err
		}
		if at.Valid {
			event.At = at.Time
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func ensureMissionEventSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS mission_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			subject TEXT,
			status TEXT NOT NULL,
			detail TEXT,
			at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_mission_events_run ON mission_events(run_id);
		CREATE INDEX IF NOT EXISTS idx_mission_events_kind ON mission_events(kind);
	`)
	return err
}
