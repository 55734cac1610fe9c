package main

import (
	"bytes"
	"context"
	"io"
	"math/big"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/chathub/internal/client"
	"github.com/vovakirdan/chathub/internal/compute"
	"github.com/vovakirdan/chathub/internal/config"
	"github.com/vovakirdan/chathub/internal/core"
	"github.com/vovakirdan/chathub/internal/log"
	transporthttp "github.com/vovakirdan/chathub/internal/transport/http"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line      string
		isCompute bool
		wantErr   bool
		want      computeRequest
	}{
		{line: "fibonacci(123)", isCompute: true, want: computeRequest{op: compute.OpFibonacci, n: 123}},
		{line: "fibonacci(0)", isCompute: true, want: computeRequest{op: compute.OpFibonacci, n: 0}},
		{line: "0!", isCompute: true, want: computeRequest{op: compute.OpFactorial, n: 0}},
		{line: "42!", isCompute: true, want: computeRequest{op: compute.OpFactorial, n: 42}},
		{line: "99999999999999999999!", isCompute: true, wantErr: true},
		{line: "fibonacci(01)"},
		{line: "007!"},
		{line: "fibonacci(-1)"},
		{line: "hello there"},
		{line: "5! is a lot"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			req, isCompute, err := parseLine(tt.line)
			assert.Equal(t, tt.isCompute, isCompute)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req)
		})
	}
}

func TestFormatResult(t *testing.T) {
	assert.Equal(t, "5! = 120", formatResult(compute.OpFactorial, 5, big.NewInt(120)))
	assert.Equal(t, "fibonacci(10) = 55", formatResult(compute.OpFibonacci, 10, big.NewInt(55)))
	assert.Equal(t, "Calculating 5!...", formatPending(computeRequest{op: compute.OpFactorial, n: 5}))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startHub(t *testing.T) string {
	t.Helper()

	cfg := config.Default()
	cfg.StaticDir = ""
	logger := log.Nop()
	hub := core.NewHub(cfg.EventCapacity, nil, logger)
	server := transporthttp.NewServer(hub, compute.NewWorker(1), nil, &cfg, logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})
	return strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
}

func TestRunChat(t *testing.T) {
	url := startHub(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	other, err := client.Dial(ctx, url)
	require.NoError(t, err)
	defer other.Close()
	_, err = other.UserName(ctx)
	require.NoError(t, err)

	c, err := client.Dial(ctx, url)
	require.NoError(t, err)
	defer c.Close()

	in, feed := io.Pipe()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- runChat(ctx, c, compute.NewWorker(1), in, out) }()

	waitFor := func(text string) {
		t.Helper()
		require.Eventually(t, func() bool {
			return strings.Contains(out.String(), text)
		}, 3*time.Second, 10*time.Millisecond, "output so far:\n%s", out.String())
	}

	waitFor("Your name: <User 2>.")
	waitFor("Other connected users: <User 1>.")
	waitFor("Type 'n!' to calculate factorial on n.")

	_, err = io.WriteString(feed, "hello\n")
	require.NoError(t, err)
	waitFor("<User 2> hello")

	require.NoError(t, other.Message(ctx, "hi"))
	waitFor("<User 1> hi")

	_, err = io.WriteString(feed, "fibonacci(10)\n5!\n")
	require.NoError(t, err)
	waitFor("fibonacci(10) = 55")
	waitFor("5! = 120")

	require.NoError(t, other.Close())
	waitFor("User <User 1> left.")

	require.NoError(t, feed.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("chat did not exit after input closed")
	}
	assert.Contains(t, out.String(), "Exiting...")
}
