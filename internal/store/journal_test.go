package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/chathub/internal/core"
	"github.com/vovakirdan/chathub/internal/log"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[uint64]*SessionRecord
	failAll bool
}

func (m *memoryStore) RecordConnect(_ context.Context, runID string, id uint64, name string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errors.New("disk full")
	}
	m.records[id] = &SessionRecord{RunID: runID, SessionID: id, Name: name, ConnectedAt: at}
	return nil
}

func (m *memoryStore) RecordDisconnect(_ context.Context, _ string, id uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return errors.New("disk full")
	}
	m.records[id].DisconnectedAt = &at
	return nil
}

func (m *memoryStore) ListSessions(context.Context, int) ([]*SessionRecord, error) {
	return nil, nil
}

func TestJournalRecordsHubSessions(t *testing.T) {
	mem := &memoryStore{records: make(map[uint64]*SessionRecord)}
	journal := NewJournal(mem, log.Nop())
	hub := core.NewHub(core.DefaultCapacity, journal, nil)
	defer hub.Close()

	err := hub.Serve(context.Background(), func(ctx context.Context, svc *core.Service) error {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		rec := mem.records[svc.ID()]
		require.NotNil(t, rec)
		assert.True(t, rec.Online())
		return nil
	})
	require.NoError(t, err)

	rec := mem.records[1]
	require.NotNil(t, rec)
	assert.Equal(t, "User 1", rec.Name)
	assert.Equal(t, journal.RunID(), rec.RunID)
	assert.False(t, rec.Online())
}

func TestJournalFailuresDoNotFailSessions(t *testing.T) {
	mem := &memoryStore{records: make(map[uint64]*SessionRecord), failAll: true}
	hub := core.NewHub(core.DefaultCapacity, NewJournal(mem, log.Nop()), nil)
	defer hub.Close()

	err := hub.Serve(context.Background(), func(context.Context, *core.Service) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 0, hub.Registry().Len())
}
