package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rickgao/ashare-data/internal/cache"
	"github.com/rickgao/ashare-data/internal/config"
	"github.com/rickgao/ashare-data/internal/database"
	"github.com/rickgao/ashare-data/internal/ratelimit"
	"github.com/rickgao/ashare-data/internal/server"
	"github.com/rickgao/ashare-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/collector.local.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting apiserver",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	db, err := database.Connect(ctx, cfg.Database.Timescale)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	qcache := cache.New(cfg.Redis, cfg.Server.CacheTTL, logger)
	defer qcache.Close()

	// The collector process owns the limiters; this process renders the
	// boundaries it persisted.
	stats := &storedStats{store: ratelimit.NewFileStore(cfg.RateLimit.BoundaryFile)}

	srv := server.New(cfg.Server, server.NewPGStore(db), qcache, stats, nil, logger)
	if err := srv.Start(ctx); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("apiserver stopped")
}

// storedStats exposes persisted boundaries as detector stats.
type storedStats struct {
	store ratelimit.Store
}

func (s *storedStats) AllStats() []ratelimit.DetectorStats {
	boundaries, err := s.store.ListAll()
	if err != nil {
		slog.Warn("failed to read stored boundaries", "error", err)
		return nil
	}

	stats := make([]ratelimit.DetectorStats, 0, len(boundaries))
	for keyStr, b := range boundaries {
		key, err := ratelimit.ParseKey(keyStr)
		if err != nil {
			continue
		}
		boundary := b
		stats = append(stats, ratelimit.DetectorStats{
			Key:      key,
			State:    ratelimit.StateConfirmed.String(),
			Boundary: &boundary,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Key.String() < stats[j].Key.String()
	})
	return stats
}
