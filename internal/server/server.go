// Package server provides the HTTP server and routing for the worker.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/gatehouse/internal/jobs"
	"github.com/aristath/gatehouse/internal/sqsd"
	"github.com/aristath/gatehouse/internal/tasks"
)

// Config holds server configuration
type Config struct {
	Port     int
	Log      zerolog.Logger
	Boundary *sqsd.Middleware
	Tasks    *tasks.Registry
	Jobs     *jobs.Executor
}

// Server represents the HTTP server
type Server struct {
	router      *chi.Mux
	server      *http.Server
	log         zerolog.Logger
	tasks       *tasks.Registry
	jobs        *jobs.Executor
	startupTime time.Time
}

// New creates a new HTTP server with the trust boundary installed ahead of
// all routes.
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		tasks:       cfg.Tasks,
		jobs:        cfg.Jobs,
		startupTime: time.Now(),
	}

	s.setupMiddleware(cfg)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// Job execution blocks the response for as long as the job runs;
		// the delivery daemon enforces its own inactivity timeout.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(cfg Config) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS for the operational endpoints
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// The classifier runs ahead of every route. Nothing that rewrites the
	// remote address from forwarding headers may be installed before it:
	// the boundary trusts the raw connection address.
	if cfg.Boundary != nil {
		s.router.Use(cfg.Boundary.Handler)
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/status", s.handleStatus)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
