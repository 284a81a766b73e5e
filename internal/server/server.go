package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rickgao/ashare-data/internal/cache"
	"github.com/rickgao/ashare-data/internal/config"
	"github.com/rickgao/ashare-data/internal/model"
	"github.com/rickgao/ashare-data/internal/ratelimit"
)

// Store is the read side of storage the API serves from.
type Store interface {
	QueryDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.DailyBar, error)
	ListStocks(ctx context.Context) ([]model.Stock, error)
	LatestTradeDate(ctx context.Context) (time.Time, error)
}

// StatsSource provides limiter stats. *ratelimit.Registry satisfies it.
type StatsSource interface {
	AllStats() []ratelimit.DetectorStats
}

// Server is the query API server.
type Server struct {
	cfg    config.ServerConfig
	store  Store
	cache  *cache.Cache
	stats  StatsSource
	hub    *ProgressHub
	logger *slog.Logger

	httpServer *http.Server
	throttle   *throttle
}

// New creates a server. cache, stats, and hub may be nil; the matching
// endpoints then degrade (no caching, empty stats, no websocket).
func New(cfg config.ServerConfig, store Store, qcache *cache.Cache, stats StatsSource, hub *ProgressHub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		store:    store,
		cache:    qcache,
		stats:    stats,
		hub:      hub,
		logger:   logger,
		throttle: newThrottle(cfg.ThrottleRPS, cfg.ThrottleBurst),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/stocks", s.handleStocks)
	mux.HandleFunc("GET /api/daily/{symbol}", s.handleDaily)
	mux.HandleFunc("GET /api/ratelimit", s.handleRateLimitStats)
	if hub != nil {
		mux.HandleFunc("GET /ws/progress", hub.handleConnect)
	}

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		Handler:      s.throttle.middleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the full handler chain, for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins serving. It returns once the listener is accepting.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}

	if s.hub != nil {
		s.hub.Start(ctx)
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "error", err)
		}
	}()

	s.logger.Info("api server started", "addr", s.httpServer.Addr)
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Stop()
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("api server stopped")
	return nil
}
