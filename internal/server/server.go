// Package server exposes the upload-to-report workflow over HTTP: a small
// embedded frontend, a JSON API for uploads and sessions, and a WebSocket
// stream for per-session progress.
package server

import (
	"embed"
	"io/fs"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kilnhq/kiln/internal/session"
)

//go:embed all:web
var webFS embed.FS

// DefaultMaxUploadBytes caps upload size when no limit is configured.
const DefaultMaxUploadBytes = 100 << 20 // 100 MiB

// Config carries the server settings.
type Config struct {
	Port           string
	MaxUploadBytes int64
}

// Server holds the Gin engine and dependencies for the report service.
type Server struct {
	engine    *gin.Engine
	store     *session.Store
	log       *zap.Logger
	port      string
	maxUpload int64
	metrics   *metrics
}

// New creates the report server around a session store.
func New(store *session.Store, log *zap.Logger, cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}

	s := &Server{
		engine:    engine,
		store:     store,
		log:       log,
		port:      cfg.Port,
		maxUpload: maxUpload,
		metrics:   newMetrics(store),
	}

	engine.Use(s.requestLog())
	s.setupRoutes()
	return s
}

// requestLog writes one structured line per API request. Static assets
// and profiling endpoints stay quiet.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if len(path) < 4 || path[:4] != "/api" {
			return
		}
		s.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

// serveEmbedded reads a file from the embedded FS and writes it with the given content type.
func serveEmbedded(webContent fs.FS, name string, contentType string) gin.HandlerFunc {
	// Pre-read the file at startup so we don't read on every request.
	data, err := fs.ReadFile(webContent, name)
	return func(c *gin.Context) {
		if err != nil {
			c.String(http.StatusNotFound, "file not found: %s", name)
			return
		}
		c.Data(http.StatusOK, contentType, data)
	}
}

func (s *Server) setupRoutes() {
	// Extract the embedded web/ content.
	webContent, _ := fs.Sub(webFS, "web")

	// Frontend: serve embedded files directly with correct content types.
	s.engine.GET("/", serveEmbedded(webContent, "index.html", "text/html; charset=utf-8"))
	s.engine.GET("/style.css", serveEmbedded(webContent, "style.css", "text/css; charset=utf-8"))
	s.engine.GET("/app.js", serveEmbedded(webContent, "app.js", "application/javascript; charset=utf-8"))

	// Health check.
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"uptime":         s.metrics.uptime(),
			"sessions":       s.store.Count(),
			"dropped_events": s.store.Dropped(),
		})
	})

	// Metrics API.
	s.engine.GET("/api/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.metrics.snapshot())
	})

	// Upload and sessions.
	s.engine.POST("/api/upload", s.handleUpload)
	s.engine.GET("/api/sessions", s.handleSessions)
	s.engine.GET("/api/sessions/:id", s.handleSession)
	s.engine.DELETE("/api/sessions/:id", s.handleDelete)
	s.engine.GET("/api/sessions/:id/artifacts", s.handleArtifacts)
	s.engine.GET("/api/sessions/:id/artifacts/:name", s.handleArtifact)
	s.engine.GET("/api/sessions/:id/bundle", s.handleBundle)

	// WebSocket progress stream.
	s.engine.GET("/ws/:id", s.handleProgress)

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.engine.GET("/debug/pprof/allocs", gin.WrapH(pprof.Handler("allocs")))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

// Handler exposes the routed engine, useful for custom http.Server setups
// and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start runs the server. Blocks until the server is stopped.
func (s *Server) Start() error {
	s.log.Info("listening", zap.String("port", s.port))
	return s.engine.Run(":" + s.port)
}
