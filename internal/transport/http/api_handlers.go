package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chathub/internal/core"
	"github.com/vovakirdan/chathub/internal/store"
)

// APIHandlers provides HTTP handlers for the presence API.
type APIHandlers struct {
	registry *core.Registry
	journal  store.SessionStore
	log      *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance. journal may be nil
// when the session journal is disabled.
func NewAPIHandlers(registry *core.Registry, journal store.SessionStore, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		registry: registry,
		journal:  journal,
		log:      logger,
	}
}

// SessionResponse describes a live session.
type SessionResponse struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	ConnectedAt time.Time `json:"connected_at"`
}

// HistoryQuery holds the query parameters of the history endpoint.
type HistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// HistoryResponse describes one session journal entry.
type HistoryResponse struct {
	RunID          string     `json:"run_id"`
	SessionID      uint64     `json:"session_id"`
	Name           string     `json:"name"`
	ConnectedAt    time.Time  `json:"connected_at"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListSessions returns the users currently connected.
// GET /api/sessions
func (h *APIHandlers) ListSessions(c *gin.Context) {
	sessions := h.registry.Snapshot()

	response := make([]SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		response = append(response, SessionResponse{
			ID:          sess.ID,
			Name:        sess.Name,
			ConnectedAt: sess.ConnectedAt,
		})
	}

	c.JSON(http.StatusOK, response)
}

// SessionHistory returns recent entries of the session journal.
// GET /api/sessions/history?limit=N
func (h *APIHandlers) SessionHistory(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session journal disabled"})
		return
	}

	var query HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.log.Debug().Err(err).Msg("invalid history query")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query"})
		return
	}
	if query.Limit == 0 {
		query.Limit = 100
	}

	records, err := h.journal.ListSessions(c.Request.Context(), query.Limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list session history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]HistoryResponse, 0, len(records))
	for _, rec := range records {
		response = append(response, HistoryResponse{
			RunID:          rec.RunID,
			SessionID:      rec.SessionID,
			Name:           rec.Name,
			ConnectedAt:    rec.ConnectedAt,
			DisconnectedAt: rec.DisconnectedAt,
		})
	}

	c.JSON(http.StatusOK, response)
}
