package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func mustRecv[T any](t *testing.T, stream Stream[T]) T {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	v, err := stream.Recv(ctx)
	if err != nil {
		t.Fatalf("expected event, got error: %v", err)
	}
	return v
}

func mustNotRecv[T any](t *testing.T, stream Stream[T]) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	v, err := stream.Recv(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected no event, got %+v (err %v)", v, err)
	}
}

// testSession keeps a hub session open until stop is called.
type testSession struct {
	svc     *Service
	release chan struct{}
	done    chan error
}

func startSession(t *testing.T, hub *Hub) *testSession {
	t.Helper()

	ts := &testSession{
		release: make(chan struct{}),
		done:    make(chan error, 1),
	}
	ready := make(chan *Service, 1)
	go func() {
		ts.done <- hub.Serve(context.Background(), func(_ context.Context, svc *Service) error {
			ready <- svc
			<-ts.release
			return nil
		})
	}()

	select {
	case ts.svc = <-ready:
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not start")
	}
	return ts
}

func (ts *testSession) stop(t *testing.T) {
	t.Helper()

	close(ts.release)
	select {
	case <-ts.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not stop")
	}
}
