// Package server implements the HTTP server that exposes the legalaide
// ingestion and retrieval API. The server is started by the `legalaide serve`
// CLI command.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/legalaide/legalaide-go/internal/logging"
)

// New constructs a Server from the provided dependencies and config.
// ingester and caseReader may be nil when the corresponding endpoints are
// not wanted; those routes then return 501.
func New(ret retriever, ing ingester, cases caseReader, cfg *Config) (*Server, error) {
	if ret == nil {
		return nil, fmt.Errorf("server: retriever must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Reindex of a large folder can hold the response open for a while.
		cfg.WriteTimeout = 10 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Server{
		retriever:  ret,
		ingester:   ing,
		caseReader: cases,
		cfg:        cfg,
		log:        cfg.Logger,
		pingers:    cfg.Pingers,
		metrics:    newServerMetrics(registry),
	}

	if cfg.APIKey == "" {
		s.log.Warn("server: LEGALAIDE_API_KEY not set — API authentication is disabled")
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, s.log)
	s.stopRL = stopRL

	mux := http.NewServeMux()
	mux.Handle("POST /api/ingest", s.protected(rl, "ingest", http.HandlerFunc(s.handleIngest)))
	mux.Handle("POST /api/reindex", s.protected(rl, "reindex", http.HandlerFunc(s.handleReindex)))
	mux.Handle("POST /api/search", s.protected(rl, "search", http.HandlerFunc(s.handleSearch)))
	mux.Handle("POST /api/ask", s.protected(rl, "ask", http.HandlerFunc(s.handleAsk)))
	mux.Handle("GET /api/case/{id}", s.protected(rl, "case", http.HandlerFunc(s.handleCase)))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(s.log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// protected wraps a handler in the auth, rate-limit, and metrics middleware
// shared by every /api endpoint.
func (s *Server) protected(rl *rateLimiter, name string, next http.Handler) http.Handler {
	return authMiddleware(s.cfg.APIKey, rl.middleware(s.metrics.instrument(name, next)))
}

// Handler exposes the full middleware-wrapped handler for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("legalaide server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}
