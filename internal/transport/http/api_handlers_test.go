package http

import (
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/chathub/internal/config"
	"github.com/vovakirdan/chathub/internal/proto"
	"github.com/vovakirdan/chathub/internal/store"
)

type fakeJournal struct {
	records   []*store.SessionRecord
	lastLimit atomic.Int64
}

func (f *fakeJournal) RecordConnect(context.Context, string, uint64, string, time.Time) error {
	return nil
}

func (f *fakeJournal) RecordDisconnect(context.Context, string, uint64, time.Time) error {
	return nil
}

func (f *fakeJournal) ListSessions(_ context.Context, limit int) ([]*store.SessionRecord, error) {
	f.lastLimit.Store(int64(limit))
	return f.records, nil
}

func getJSON(t *testing.T, s *testServer, path string, out any) int {
	t.Helper()

	resp, err := s.ts.Client().Get(s.ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == stdhttp.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	s := startTestServer(t, nil, nil)

	resp, err := s.ts.Client().Get(s.ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestListSessions(t *testing.T) {
	s := startTestServer(t, nil, nil)

	var sessions []SessionResponse
	require.Equal(t, stdhttp.StatusOK, getJSON(t, s, "/api/sessions", &sessions))
	assert.Empty(t, sessions)

	connA := dialWS(t, s)
	call(t, connA, "a", proto.InboundTypeUserName, nil)
	connB := dialWS(t, s)
	call(t, connB, "b", proto.InboundTypeUserName, nil)

	require.Equal(t, stdhttp.StatusOK, getJSON(t, s, "/api/sessions", &sessions))
	require.Len(t, sessions, 2)
	assert.Equal(t, uint64(1), sessions[0].ID)
	assert.Equal(t, "User 1", sessions[0].Name)
	assert.Equal(t, "User 2", sessions[1].Name)
	assert.False(t, sessions[0].ConnectedAt.IsZero())
}

func TestSessionHistoryDisabled(t *testing.T) {
	s := startTestServer(t, nil, nil)
	assert.Equal(t, stdhttp.StatusNotFound, getJSON(t, s, "/api/sessions/history", nil))
}

func TestSessionHistory(t *testing.T) {
	left := time.UnixMilli(2_000).UTC()
	journal := &fakeJournal{records: []*store.SessionRecord{
		{RunID: "run", SessionID: 2, Name: "User 2", ConnectedAt: time.UnixMilli(1_500).UTC()},
		{RunID: "run", SessionID: 1, Name: "User 1", ConnectedAt: time.UnixMilli(1_000).UTC(), DisconnectedAt: &left},
	}}
	s := startTestServer(t, journal, nil)

	var history []HistoryResponse
	require.Equal(t, stdhttp.StatusOK, getJSON(t, s, "/api/sessions/history?limit=5", &history))
	assert.Equal(t, int64(5), journal.lastLimit.Load())
	require.Len(t, history, 2)
	assert.Nil(t, history[0].DisconnectedAt)
	require.NotNil(t, history[1].DisconnectedAt)
	assert.True(t, history[1].DisconnectedAt.Equal(left))

	require.Equal(t, stdhttp.StatusOK, getJSON(t, s, "/api/sessions/history", &history))
	assert.Equal(t, int64(100), journal.lastLimit.Load())

	assert.Equal(t, stdhttp.StatusBadRequest, getJSON(t, s, "/api/sessions/history?limit=5000", nil))
	assert.Equal(t, stdhttp.StatusBadRequest, getJSON(t, s, "/api/sessions/history?limit=abc", nil))
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log('hi')"), 0o600))

	s := startTestServer(t, nil, func(cfg *config.Config) {
		cfg.StaticDir = dir
	})

	resp, err := s.ts.Client().Get(s.ts.URL + "/app.js")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, stdhttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "console.log('hi')", string(body))

	assert.Equal(t, stdhttp.StatusNotFound, getJSON(t, s, "/missing.js", nil))

	resp, err = s.ts.Client().Post(s.ts.URL+"/app.js", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, stdhttp.StatusNotFound, resp.StatusCode)
}

func TestStaticDisabled(t *testing.T) {
	s := startTestServer(t, nil, nil)
	assert.Equal(t, stdhttp.StatusNotFound, getJSON(t, s, "/index.html", nil))
}
