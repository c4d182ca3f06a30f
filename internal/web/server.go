// Package web exposes the pipeline over HTTP: REST endpoints for
// starting, inspecting and cancelling runs, an SSE feed of live
// events, and system diagnostics for the serve command.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/adsmith-io/adsmith/internal/core"
	"github.com/adsmith-io/adsmith/internal/diagnostics"
	"github.com/adsmith-io/adsmith/internal/events"
	"github.com/adsmith-io/adsmith/internal/logging"
	"github.com/adsmith-io/adsmith/internal/web/sse"
)

// RunService is the slice of the pipeline orchestrator the HTTP
// handlers need.
type RunService interface {
	StartRun(ctx context.Context, input string) (string, error)
	Snapshot(runID string) (core.RunSnapshot, error)
	LiveRuns() []core.RunSnapshot
	Cancel(runID string) error
}

// Server is the HTTP server for the adsmith API.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	config     Config
	log        *logging.Logger
	runs       RunService
	store      core.RunStore
	bus        *events.Bus
	collector  *diagnostics.Collector
	sseHandler *sse.Handler
	version    string
	startedAt  time.Time
}

// Config holds the server configuration.
type Config struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	EnableCORS      bool
	SSEHeartbeat    time.Duration
}

// DefaultConfig returns the default server configuration. The
// http.Server write timeout is left at zero: a deadline there would
// sever SSE streams mid-run.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            8640,
		ReadTimeout:     15 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CORSOrigins:     []string{"http://localhost:3000"},
		EnableCORS:      true,
		SSEHeartbeat:    15 * time.Second,
	}
}

// Option configures the server.
type Option func(*Server)

// WithVersion sets the version string reported by /api/system.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// WithCollector sets the system metrics collector behind /api/system.
func WithCollector(c *diagnostics.Collector) Option {
	return func(s *Server) {
		s.collector = c
	}
}

// New creates a Server. The store may be nil (listing then covers live
// runs only); the bus may be nil (the SSE endpoint is not registered).
func New(cfg Config, runs RunService, store core.RunStore, bus *events.Bus, log *logging.Logger, opts ...Option) *Server {
	if log == nil {
		log = logging.NewNop()
	}

	s := &Server{
		config:    cfg,
		log:       log.WithComponent("web"),
		runs:      runs,
		store:     store,
		bus:       bus,
		startedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     s.router,
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: cfg.IdleTimeout,
	}

	return s
}

// setupRouter configures the chi router with middleware and routes.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	if s.config.EnableCORS {
		corsMiddleware := cors.New(cors.Options{
			AllowedOrigins:   s.config.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		})
		r.Use(corsMiddleware.Handler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system", s.handleSystem)

		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.handleStartRun)
			r.Get("/", s.handleListRuns)

			r.Route("/{runID}", func(r chi.Router) {
				r.Get("/", s.handleGetRun)
				r.Post("/cancel", s.handleCancelRun)
			})
		})

		if s.bus != nil {
			s.sseHandler = sse.RegisterRoutes(r, s.bus)
			if s.config.SSEHeartbeat > 0 {
				s.sseHandler.SetHeartbeatFrequency(s.config.SSEHeartbeat)
			}
			s.log.Info("SSE endpoint registered at /api/events")
		}
	})

	return r
}

// loggingMiddleware logs HTTP requests using structured logging.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// securityHeaders sets baseline hardening headers on every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// Start starts the HTTP server in a non-blocking manner.
func (s *Server) Start() error {
	s.log.Info("starting http server", "addr", s.httpServer.Addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", "error", err.Error())
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server, disconnecting SSE clients
// first so their streams end cleanly.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if s.sseHandler != nil {
		_ = s.sseHandler.Shutdown(shutdownCtx)
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info("http server stopped")
	return nil
}

// Router returns the underlying chi router.
func (s *Server) Router() chi.Router {
	return s.router
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
