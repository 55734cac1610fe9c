package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chathub/internal/core"
)

const journalWriteTimeout = 2 * time.Second

// Journal records session starts and ends in a SessionStore. It implements
// core.SessionObserver; write failures are logged and never fail a session.
type Journal struct {
	store SessionStore
	runID string
	log   *zerolog.Logger
}

var _ core.SessionObserver = (*Journal)(nil)

// NewJournal creates a journal for one server run with a fresh run id.
func NewJournal(st SessionStore, logger *zerolog.Logger) *Journal {
	return &Journal{
		store: st,
		runID: uuid.NewString(),
		log:   logger,
	}
}

// RunID identifies this server run in the journal.
func (j *Journal) RunID() string {
	return j.runID
}

// SessionOpened implements core.SessionObserver.
func (j *Journal) SessionOpened(ctx context.Context, sess core.Session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalWriteTimeout)
	defer cancel()

	if err := j.store.RecordConnect(ctx, j.runID, sess.ID, sess.Name, sess.ConnectedAt); err != nil {
		j.log.Warn().Err(err).Uint64("session_id", sess.ID).Msg("failed to journal session start")
	}
}

// SessionClosed implements core.SessionObserver.
func (j *Journal) SessionClosed(ctx context.Context, sess core.Session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalWriteTimeout)
	defer cancel()

	if err := j.store.RecordDisconnect(ctx, j.runID, sess.ID, time.Now()); err != nil {
		j.log.Warn().Err(err).Uint64("session_id", sess.ID).Msg("failed to journal session end")
	}
}
