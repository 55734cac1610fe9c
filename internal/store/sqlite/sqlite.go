package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/chathub/internal/store"
)

// Schema is the session journal layout, applied on open.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id          TEXT    NOT NULL,
	session_id      INTEGER NOT NULL,
	name            TEXT    NOT NULL,
	connected_at    INTEGER NOT NULL,
	disconnected_at INTEGER,
	UNIQUE (run_id, session_id)
);

CREATE INDEX IF NOT EXISTS idx_sessions_connected ON sessions(connected_at DESC);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// New opens the database at dbPath and applies the journal schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// RecordConnect inserts a journal row for a new session.
func (s *SQLiteStore) RecordConnect(ctx context.Context, runID string, sessionID uint64, name string, at time.Time) error {
	query := `
		INSERT INTO sessions (run_id, session_id, name, connected_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, runID, int64(sessionID), name, at.UnixMilli()); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// RecordDisconnect stamps the disconnect time of a session.
func (s *SQLiteStore) RecordDisconnect(ctx context.Context, runID string, sessionID uint64, at time.Time) error {
	query := `
		UPDATE sessions SET disconnected_at = ?
		WHERE run_id = ? AND session_id = ? AND disconnected_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, at.UnixMilli(), runID, int64(sessionID))
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session %d of run %s: %w", sessionID, runID, sql.ErrNoRows)
	}
	return nil
}

// ListSessions returns up to limit sessions, most recent first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]*store.SessionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT run_id, session_id, name, connected_at, disconnected_at
		FROM sessions
		ORDER BY connected_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var records []*store.SessionRecord
	for rows.Next() {
		var (
			rec            store.SessionRecord
			sessionID      int64
			connectedAt    int64
			disconnectedAt sql.NullInt64
		)
		if err := rows.Scan(&rec.RunID, &sessionID, &rec.Name, &connectedAt, &disconnectedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.SessionID = uint64(sessionID)
		rec.ConnectedAt = time.UnixMilli(connectedAt)
		if disconnectedAt.Valid {
			t := time.UnixMilli(disconnectedAt.Int64)
			rec.DisconnectedAt = &t
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return records, nil
}
