// Package server exposes the lyricsync service over HTTP.
//
// Routes:
//
//	POST /v1/align        align segments against inline lyrics
//	POST /v1/timeline     synthesize phrase groups for a text
//	POST /v1/process      full pipeline with optional lyrics lookup
//	GET  /v1/runs/{id}    fetch a persisted run
//	GET  /v1/karaoke      websocket feed of phrase groups in synthetic time
//	GET  /healthz, /readyz, /metrics
//	     /mcp             streamable HTTP MCP endpoint, when configured
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/lyricsync/internal/app"
	"github.com/MrWong99/lyricsync/internal/health"
	"github.com/MrWong99/lyricsync/internal/observe"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 16 << 20

// Server is the HTTP front-end of an [app.App].
type Server struct {
	app            *app.App
	metrics        *observe.Metrics
	metricsHandler http.Handler
	checkers       []health.Checker
	mcpHandler     http.Handler

	// speed scales karaoke playback; 2 plays twice as fast.
	speed float64

	handler http.Handler
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics sets the instruments used by the request middleware and the
// stream gauge. Default: observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithMetricsHandler replaces the /metrics handler. Default:
// promhttp.Handler() on the default Prometheus registry.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithChecker adds a readiness check.
func WithChecker(c health.Checker) Option {
	return func(s *Server) { s.checkers = append(s.checkers, c) }
}

// WithMCPHandler mounts h at /mcp, typically a streamable HTTP MCP endpoint.
func WithMCPHandler(h http.Handler) Option {
	return func(s *Server) { s.mcpHandler = h }
}

// WithPlaybackSpeed scales the karaoke feed clock. Values <= 0 are ignored.
func WithPlaybackSpeed(f float64) Option {
	return func(s *Server) {
		if f > 0 {
			s.speed = f
		}
	}
}

// New builds a Server for a.
func New(a *app.App, opts ...Option) *Server {
	s := &Server{app: a, speed: 1}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.metricsHandler == nil {
		s.metricsHandler = promhttp.Handler()
	}

	checkers := append([]health.Checker{health.PingCheck("store", a.Store())}, s.checkers...)
	mux := http.NewServeMux()
	health.New(checkers).Register(mux)
	mux.Handle("GET /metrics", s.metricsHandler)
	mux.HandleFunc("POST /v1/align", s.handleAlign)
	mux.HandleFunc("POST /v1/timeline", s.handleTimeline)
	mux.HandleFunc("POST /v1/process", s.handleProcess)
	mux.HandleFunc("GET /v1/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /v1/karaoke", s.handleKaraoke)
	if s.mcpHandler != nil {
		mux.Handle("/mcp", s.mcpHandler)
	}

	s.handler = observe.Middleware(s.metrics)(mux)
	return s
}

// Handler returns the root handler with telemetry middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
