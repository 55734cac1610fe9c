package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chathub/internal/compute"
	"github.com/vovakirdan/chathub/internal/config"
	"github.com/vovakirdan/chathub/internal/core"
	"github.com/vovakirdan/chathub/internal/store"
	"github.com/vovakirdan/chathub/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/chathub/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
	cancelSessions  context.CancelFunc
}

// New constructs the application with provided configuration. An empty
// JournalPath runs the hub without a session journal.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	var (
		st       store.Store
		observer core.SessionObserver
		journal  store.SessionStore
	)
	if cfg.JournalPath != "" {
		sq, err := sqlite.New(cfg.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		st = sq
		journal = sq

		j := store.NewJournal(sq, logger)
		observer = j
		logger.Info().Str("db_path", cfg.JournalPath).Str("run_id", j.RunID()).Msg("session journal initialized")
	}

	hub := core.NewHub(cfg.EventCapacity, observer, logger)
	worker := compute.NewWorker(cfg.WorkerLimit)
	server := transporthttp.NewServer(hub, worker, journal, cfg, logger)

	// Hijacked WebSocket connections outlive Server.Shutdown, so their
	// requests hang off a context the app cancels itself.
	sessionsCtx, cancelSessions := context.WithCancel(context.Background())
	server.BaseContext = func(net.Listener) context.Context { return sessionsCtx }

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
		cancelSessions:  cancelSessions,
	}, nil
}

// Handler exposes the HTTP handler, for tests and embedding.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("starting chathub server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cancelSessions()
		a.hub.Close()
		if err := a.hub.Wait(shutdownCtx); err != nil {
			a.log.Warn().Err(err).Msg("sessions still open at shutdown")
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup ends remaining sessions and closes the store.
func (a *App) cleanup() {
	a.cancelSessions()
	a.hub.Close()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
