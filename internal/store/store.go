package store

import (
	"context"
	"time"
)

// SessionRecord is one entry of the session journal: when a session
// connected and, once it has left, when it disconnected.
type SessionRecord struct {
	RunID          string
	SessionID      uint64
	Name           string
	ConnectedAt    time.Time
	DisconnectedAt *time.Time
}

// Online reports whether the session had not disconnected when the record was read.
func (r *SessionRecord) Online() bool {
	return r.DisconnectedAt == nil
}

// SessionStore defines operations on the session journal.
type SessionStore interface {
	// RecordConnect stores the start of a session. Session ids are only
	// unique within one server run, so records are keyed by (runID, sessionID).
	RecordConnect(ctx context.Context, runID string, sessionID uint64, name string, at time.Time) error

	// RecordDisconnect stamps the end of a session.
	RecordDisconnect(ctx context.Context, runID string, sessionID uint64, at time.Time) error

	// ListSessions returns the most recently connected sessions first.
	ListSessions(ctx context.Context, limit int) ([]*SessionRecord, error)
}

// Store combines all store interfaces.
type Store interface {
	SessionStore

	// Close closes the underlying database connection.
	Close() error
}
