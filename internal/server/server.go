// Package server exposes walks and link lookups over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sanonone/wikiwalk/pkg/engine"
)

// taskRetention is how long a finished async walk stays queryable.
const taskRetention = time.Hour

// Config holds the HTTP surface settings.
type Config struct {
	Addr string

	// AuthToken, when set, is required as a Bearer token on every route
	// except /healthz and /metrics.
	AuthToken string

	// MaxConcurrentWalks bounds walks in flight, sync and async together.
	// Requests beyond it get 429.
	MaxConcurrentWalks int

	Logger *slog.Logger
}

// Server holds the HTTP interface and the walk service behind it.
type Server struct {
	service *engine.Service
	logger  *slog.Logger

	httpServer  *http.Server
	taskManager *TaskManager
	authToken   string
	walkSlots   chan struct{}

	// baseCtx outlives requests so async walks survive the POST that
	// started them. Shutdown cancels it.
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// NewServer wires the routes and middleware around svc.
func NewServer(svc *engine.Service, cfg Config) (*Server, error) {
	if svc == nil {
		return nil, errors.New("walk service is required")
	}
	if cfg.MaxConcurrentWalks <= 0 {
		return nil, fmt.Errorf("max concurrent walks must be > 0, got %d", cfg.MaxConcurrentWalks)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		service:     svc,
		logger:      logger.With("component", "http"),
		taskManager: NewTaskManager(),
		authToken:   cfg.AuthToken,
		walkSlots:   make(chan struct{}, cfg.MaxConcurrentWalks),
		baseCtx:     baseCtx,
		cancelBase:  cancel,
	}

	mux := http.NewServeMux()
	s.registerHTTPHandlers(mux)

	// Recovery -> Logging -> Auth -> Mux
	var handler http.Handler = mux
	handler = s.authMiddleware(handler)
	handler = s.LoggingMiddleware(handler)
	handler = s.RecoveryMiddleware(handler)

	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET /healthz", s.handleHealthz)
	rootMux.Handle("GET /metrics", promhttp.Handler())
	rootMux.Handle("/", handler)

	go s.pruneTasks(taskRetention)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           rootMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server startup failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, cancels async walks and waits for
// in-flight requests until ctx ends. It does not close the link cache.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("starting graceful shutdown of HTTP server")
	s.cancelBase()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	return nil
}

// pruneTasks forgets finished async walks older than retention until Shutdown.
func (s *Server) pruneTasks(retention time.Duration) {
	ticker := time.NewTicker(retention / 4)
	defer ticker.Stop()
	for {
		select {
		case <-s.baseCtx.Done():
			return
		case now := <-ticker.C:
			if n := s.taskManager.Prune(now.Add(-retention)); n > 0 {
				s.logger.Debug("pruned finished tasks", "count", n)
			}
		}
	}
}

// tryAcquireWalk reserves a walk slot without blocking.
func (s *Server) tryAcquireWalk() bool {
	select {
	case s.walkSlots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Server) releaseWalk() {
	<-s.walkSlots
}
