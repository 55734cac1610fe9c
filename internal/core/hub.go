package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// SessionObserver is notified when sessions start and end.
type SessionObserver interface {
	SessionOpened(ctx context.Context, sess Session)
	SessionClosed(ctx context.Context, sess Session)
}

// Hub owns the session registry and the broadcast channels shared by all sessions.
type Hub struct {
	registry *Registry
	events   *Events
	observer SessionObserver
	log      *zerolog.Logger

	active    sync.WaitGroup
	closeOnce sync.Once
}

// NewHub creates a hub. capacity bounds each subscriber's buffer; observer
// and logger may be nil.
func NewHub(capacity int, observer SessionObserver, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		registry: NewRegistry(NewAllocator()),
		events:   NewEvents(capacity),
		observer: observer,
		log:      logger,
	}
}

// Registry exposes the live session registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Events exposes the hub's broadcast channels.
func (h *Hub) Events() *Events {
	return h.events
}

// Serve runs one session: it registers a new user, announces it, and hands
// a Service bound to that user to fn. When fn returns, for any reason, the
// user is removed and its departure announced, exactly once.
func (h *Hub) Serve(ctx context.Context, fn func(ctx context.Context, svc *Service) error) error {
	h.active.Add(1)
	defer h.active.Done()

	sess := h.connect(ctx)
	defer h.disconnect(ctx, sess)

	return fn(ctx, newService(h, sess))
}

func (h *Hub) connect(ctx context.Context) Session {
	sess := h.registry.Add()
	if h.observer != nil {
		h.observer.SessionOpened(ctx, sess)
	}
	reached := h.events.Connected.Publish(sess.Name)

	h.log.Info().
		Uint64("session_id", sess.ID).
		Str("user", sess.Name).
		Int("online", h.registry.Len()).
		Int("notified", reached).
		Msg("session connected")
	return sess
}

func (h *Hub) disconnect(ctx context.Context, sess Session) {
	h.registry.Remove(sess.ID)
	reached := h.events.Disconnected.Publish(sess.Name)
	if h.observer != nil {
		h.observer.SessionClosed(context.WithoutCancel(ctx), sess)
	}

	h.log.Info().
		Uint64("session_id", sess.ID).
		Str("user", sess.Name).
		Int("online", h.registry.Len()).
		Int("notified", reached).
		Msg("session disconnected")
}

// Close shuts the broadcast channels down; open streams drain and then end.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.events.Close()
		h.log.Info().Msg("hub closed")
	})
}

// Wait blocks until every running Serve call has returned or ctx is done.
func (h *Hub) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
