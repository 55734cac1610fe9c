package http

import (
	"testing"
	"time"
)

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	rl := newRateLimiter(2, time.Hour)
	if !rl.allow() || !rl.allow() {
		t.Fatalf("first two events should pass")
	}
	if rl.allow() {
		t.Fatalf("third event should be limited")
	}
}

func TestRateLimiterResets(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)

	rl := newRateLimiter(1, 20*time.Millisecond)
	rl.startReset(stop)

	if !rl.allow() {
		t.Fatalf("first event should pass")
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(30 * time.Millisecond)
		if rl.allow() {
			return
		}
	}
	t.Fatalf("limiter never reset")
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := newRateLimiter(0, time.Minute)
	for range 1000 {
		if !rl.allow() {
			t.Fatalf("disabled limiter rejected an event")
		}
	}
}
