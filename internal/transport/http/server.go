package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chathub/internal/compute"
	"github.com/vovakirdan/chathub/internal/config"
	"github.com/vovakirdan/chathub/internal/core"
	"github.com/vovakirdan/chathub/internal/store"
)

// NewServer builds the HTTP server: health check, WebSocket endpoint,
// presence API and static files. journal may be nil.
//
// /ws is mounted on the mux directly: gin's response writer refuses to be
// hijacked once the upgrade response is written.
func NewServer(hub *core.Hub, worker *compute.Worker, journal store.SessionStore, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	api := NewAPIHandlers(hub.Registry(), journal, logger)
	apiGroup := router.Group("/api")
	apiGroup.GET("/sessions", api.ListSessions)
	apiGroup.GET("/sessions/history", api.SessionHistory)

	router.NoRoute(staticHandler(cfg.StaticDir))

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, worker, cfg, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

// staticHandler serves files from dir for GET and HEAD requests.
func staticHandler(dir string) gin.HandlerFunc {
	files := stdhttp.FileServer(stdhttp.Dir(dir))
	return func(c *gin.Context) {
		if dir == "" || (c.Request.Method != stdhttp.MethodGet && c.Request.Method != stdhttp.MethodHead) {
			c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: "not found"})
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}
