// Package web provides the HTTP server and handlers for gendb.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/gendb/internal/config"
	"github.com/JonMunkholm/gendb/internal/core"
	"github.com/JonMunkholm/gendb/internal/web/middleware"
)

// Server is the HTTP server for gendb.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
	limiter *middleware.RateLimiter
}

// NewServer wires the router. Nothing listens until Start.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}

	s.router.Use(securityHeaders)
	if s.cfg.Rate.Enabled {
		s.limiter = middleware.NewRateLimiter(s.cfg.Rate.RequestsPerMinute)
		s.router.Use(s.limiter.Handler)
	}
}

func (s *Server) setupRoutes() {
	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Get("/preview", s.handlePreviewPage)

	// Operations
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/config", s.handleDefaults)
		r.Get("/reference", s.handleReference)
		r.Get("/status", s.handleStatus)

		r.Post("/preview", s.handlePreview)
		r.Get("/name", s.handleSampleName)
		r.Get("/pid/{pid}", s.handleValidatePID)

		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)

		// Operations that consume identifiers or write destinations
		r.Group(func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(&s.cfg.Security))
			r.Post("/generate", s.handleGenerate)
			r.Get("/export/{format}", s.handleDownload)
			r.Post("/pid", s.handleIssuePID)
		})
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown stops the rate limiter and drains open connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the handler tree to tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders sets response headers common to every route. Pages
// carry inline styles only, so the CSP allows nothing else.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeError writes {"error": message} for failures with no error value.
func writeError(w http.ResponseWriter, status int, message string) {
	slog.Warn("http error", "status", status, "message", message)
	writeJSONStatus(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v after the header is sent, so encoding errors
// can only be logged.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
