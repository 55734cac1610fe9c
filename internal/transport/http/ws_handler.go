package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"unicode/utf8"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chathub/internal/compute"
	"github.com/vovakirdan/chathub/internal/config"
	"github.com/vovakirdan/chathub/internal/core"
)

// WSHandler upgrades HTTP connections and runs one hub session per socket.
type WSHandler struct {
	hub      *core.Hub
	worker   *compute.Worker
	opts     sessionOptions
	maxBytes int64
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, worker *compute.Worker, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:    hub,
		worker: worker,
		opts: sessionOptions{
			outboundBuffer:   cfg.OutboundBuffer,
			messageRateLimit: cfg.MessageRateLimit,
		},
		maxBytes: cfg.MaxMessageBytes,
		log:      logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.maxBytes > 0 {
		conn.SetReadLimit(h.maxBytes)
	}

	connLog := h.log.With().
		Str("conn_id", uuid.NewString()).
		Str("remote", r.RemoteAddr).
		Logger()

	err = h.hub.Serve(ctx, func(ctx context.Context, svc *core.Service) error {
		sessLog := connLog.With().Uint64("session_id", svc.ID()).Str("user", svc.UserName()).Logger()
		return newSessionConn(conn, svc, h.worker, h.opts, sessLog).run(ctx)
	})

	status, reason, err := closeStatus(err)
	if err != nil {
		connLog.Warn().Err(err).Msg("ws connection closed with error")
	}
	conn.Close(status, reason)
}

// closeStatus maps the error that ended a session to the close frame sent to
// the peer. Orderly closes and cancellations yield a nil error.
func closeStatus(err error) (websocket.StatusCode, string, error) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return websocket.StatusNormalClosure, "closing", nil
	}

	switch s := websocket.CloseStatus(err); s {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return s, "closing", nil
	case -1:
		return websocket.StatusInternalError, closeReason(err), err
	default:
		return s, closeReason(err), err
	}
}

// closeReason trims err to what fits in a close frame.
func closeReason(err error) string {
	const maxReason = 123
	reason := err.Error()
	if len(reason) <= maxReason {
		return reason
	}
	cut := maxReason
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}
