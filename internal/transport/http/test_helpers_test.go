package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/chathub/internal/compute"
	"github.com/vovakirdan/chathub/internal/config"
	"github.com/vovakirdan/chathub/internal/core"
	"github.com/vovakirdan/chathub/internal/log"
	"github.com/vovakirdan/chathub/internal/proto"
	"github.com/vovakirdan/chathub/internal/store"
)

type testServer struct {
	ts    *httptest.Server
	hub   *core.Hub
	wsURL string
}

func startTestServer(t *testing.T, journal store.SessionStore, tweak func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.StaticDir = ""
	if tweak != nil {
		tweak(&cfg)
	}

	logger := log.Nop()
	hub := core.NewHub(cfg.EventCapacity, nil, logger)
	server := NewServer(hub, compute.NewWorker(cfg.WorkerLimit), journal, &cfg, logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})

	return &testServer{
		ts:    ts,
		hub:   hub,
		wsURL: strings.Replace(ts.URL, "http", "ws", 1) + "/ws",
	}
}

func dialWS(t *testing.T, s *testServer) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, s.wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.SetReadLimit(1 << 20)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendRequest(t *testing.T, conn *websocket.Conn, id, typ string, data any) {
	t.Helper()

	in := proto.Inbound{ID: id, Type: typ}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal %s: %v", typ, err)
		}
		in.Data = raw
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, in); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

// expectFrame reads frames until one with the given id and type arrives.
// Frames for other ids are skipped.
func expectFrame(t *testing.T, conn *websocket.Conn, id, typ string) proto.Frame {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	for {
		var frame proto.Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("waiting for %s %q: %v", typ, id, err)
		}
		if frame.ID != id {
			continue
		}
		if frame.Type != typ {
			t.Fatalf("expected %s for %q, got %+v", typ, id, frame)
		}
		return frame
	}
}

// call sends a request and returns its result frame.
func call(t *testing.T, conn *websocket.Conn, id, typ string, data any) proto.Frame {
	t.Helper()
	sendRequest(t, conn, id, typ, data)
	return expectFrame(t, conn, id, proto.OutboundTypeResult)
}

func decodeData[T any](t *testing.T, frame proto.Frame) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(frame.Data, &v); err != nil {
		t.Fatalf("decode %s data: %v", frame.Type, err)
	}
	return v
}
