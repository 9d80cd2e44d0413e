// Package proxy assembles the cache subsystems behind a single HTTP server,
// exposing the cache-aware reverse proxy on one port and the admin API on
// another.
package proxy

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fenden/cachebolt/internal/admin"
	"github.com/fenden/cachebolt/internal/admission"
	"github.com/fenden/cachebolt/internal/config"
	"github.com/fenden/cachebolt/internal/engine"
	"github.com/fenden/cachebolt/internal/hotcache"
	"github.com/fenden/cachebolt/internal/latency"
	"github.com/fenden/cachebolt/internal/logging"
	"github.com/fenden/cachebolt/internal/memmonitor"
	"github.com/fenden/cachebolt/internal/metrics"
	"github.com/fenden/cachebolt/internal/middleware"
	"github.com/fenden/cachebolt/internal/origin"
	"github.com/fenden/cachebolt/internal/persistence"
	"github.com/fenden/cachebolt/internal/refresh"
	"github.com/fenden/cachebolt/internal/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Server owns the proxy and admin HTTP listeners plus the background
// memory monitor loop.
type Server struct {
	cfg *config.Config

	proxyServer *http.Server
	adminServer *http.Server

	memmon *memmonitor.Monitor
	logger *logging.Logger
}

// New constructs every cache subsystem and wires them into the proxy and
// admin HTTP servers.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Server, error) {
	m := metrics.New()

	hot := hotcache.New()

	durable, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("proxy: init durable store: %w", err)
	}

	persist := persistence.New(ctx, durable, logger, m)
	circuit := latency.New(cfg.LatencyFailover)
	sampler := refresh.New(cfg.Cache.RefreshPercentage)
	admit := admission.New(cfg.MaxConcurrentRequests)
	forward := origin.New(cfg.DownstreamBaseURL, time.Duration(cfg.DownstreamTimeoutSecs)*time.Second)
	memmon := memmonitor.New(hot, cfg.Cache.MemoryThreshold, logger, m)

	eng := engine.New(cfg, hot, durable, persist, circuit, sampler, admit, forward, memmon, logger, m)

	proxyRouter := chi.NewRouter()
	var handler http.Handler = eng
	chain := []middleware.Middleware{
		middleware.NewRequestID(),
		middleware.NewMetrics(m),
	}
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i].Wrap(handler)
	}
	handler = logger.HTTPRequestLogger()(handler)
	proxyRouter.Mount("/", handler)

	durables := storage.NewAll(ctx, cfg, logger)
	adminHandler := admin.New(cfg, hot, durables, logger)
	adminRouter := chi.NewRouter()
	adminRouter.Mount("/", adminHandler)
	adminRouter.Handle("/metrics", m.Handler())

	return &Server{
		cfg: cfg,
		proxyServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.ProxyPort),
			Handler: proxyRouter,
		},
		adminServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.AdminPort),
			Handler: adminRouter,
		},
		memmon: memmon,
		logger: logger,
	}, nil
}

// Start launches the proxy server, admin server, and memory monitor,
// blocking until ctx is cancelled or a listener errors.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		if err := s.proxyServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("proxy server: %w", err)
		}
	}()
	go func() {
		if err := s.adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("admin server: %w", err)
		}
	}()
	go s.memmon.Run(ctx)

	s.logger.Info(ctx, "cachebolt listening",
		zap.Int("proxy_port", s.cfg.ProxyPort), zap.Int("admin_port", s.cfg.AdminPort))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully stops both HTTP servers.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.proxyServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("proxy server shutdown: %w", err)
	}
	if err := s.adminServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("admin server shutdown: %w", err)
	}
	return nil
}
