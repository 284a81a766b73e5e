package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/ashare-data/internal/api"
	"github.com/rickgao/ashare-data/internal/collector"
	"github.com/rickgao/ashare-data/internal/config"
	"github.com/rickgao/ashare-data/internal/database"
	"github.com/rickgao/ashare-data/internal/model"
	"github.com/rickgao/ashare-data/internal/ratelimit"
	"github.com/rickgao/ashare-data/internal/scheduler"
	"github.com/rickgao/ashare-data/internal/server"
	"github.com/rickgao/ashare-data/internal/storage"
	"github.com/rickgao/ashare-data/internal/universe"
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
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting collector",
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

	logger.Info("connecting to database",
		"host", cfg.Database.Timescale.Host,
		"database", cfg.Database.Timescale.Name,
	)
	db, err := database.Connect(ctx, cfg.Database.Timescale)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	boundaryStore := ratelimit.NewFileStore(cfg.RateLimit.BoundaryFile)
	limiters := ratelimit.NewRegistry(cfg.RateLimit, boundaryStore, logger)

	client := api.NewClient(
		cfg.Provider.BaseURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Provider.Timeout),
		api.WithUserAgent(cfg.Provider.UserAgent),
	)

	// Write path: collectors -> buffer -> batch writer -> daily_bars.
	buffer := storage.NewBarBuffer(cfg.Collector.BufferSize)
	writer := storage.NewBarWriter(storage.WriterConfig{
		BatchSize:     cfg.Collector.BatchSize,
		FlushInterval: cfg.Collector.FlushInterval,
	}, buffer, db, logger)
	if err := writer.Start(ctx); err != nil {
		logger.Error("failed to start writer", "error", err)
		os.Exit(1)
	}

	// Stock universe, seeded from storage so a provider outage at startup
	// does not block collection of known symbols.
	lister := collector.NewStockLister(client, limiters, cfg.Collector, logger)
	uni := universe.NewRegistry(universe.Config{
		ReconcileInterval: cfg.Scheduler.Reconcile,
	}, lister, func(ctx context.Context, stocks []model.Stock) error {
		return storage.UpsertStocks(ctx, db, stocks)
	}, logger)

	if seeded, err := storage.ListStocks(ctx, db); err == nil && len(seeded) > 0 {
		uni.Seed(seeded)
		logger.Info("seeded universe from storage", "stocks", len(seeded))
	}

	if err := uni.Start(ctx); err != nil {
		logger.Error("failed to start stock registry", "error", err)
		os.Exit(1)
	}

	daily := collector.NewDailyCollector(client, limiters, buffer, cfg.Collector, logger)

	hub := server.NewProgressHub(logger)
	hub.Start(ctx)

	runner := collector.NewBulkRunner(daily, cfg.Collector.Concurrency, cfg.Collector.ProgressFile,
		func(done, total int) {
			hub.Publish(server.ProgressEvent{RunID: "daily", Done: done, Total: total, At: time.Now().UTC()})
		}, logger)

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logger.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	sched, err := scheduler.New(scheduler.Config{
		RunAt:    cfg.Scheduler.RunAt,
		Location: loc,
	}, uni, func(ctx context.Context, symbols []string, date string) error {
		report, err := runner.Run(ctx, symbols, date, date)
		if err != nil {
			return err
		}
		if report.Failed > 0 {
			return fmt.Errorf("%d of %d symbols failed", report.Failed, report.Symbols)
		}
		return nil
	}, logger)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Collector.HealthPort),
		Handler: healthHandler(db, uni, writer, limiters, hub),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Collector.HealthPort)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("collector running",
		"instance_id", cfg.Instance.ID,
		"run_at", cfg.Scheduler.RunAt,
		"timezone", cfg.Scheduler.Timezone,
	)

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	sched.Stop(shutdownCtx)
	uni.Stop(shutdownCtx)
	buffer.Close()
	writer.Stop(shutdownCtx)
	hub.Stop()
	healthServer.Shutdown(shutdownCtx)

	logger.Info("collector stopped")
}

// healthHandler reports component status plus live limiter stats.
func healthHandler(db pinger, uni *universe.Registry, writer *storage.BarWriter, limiters *ratelimit.Registry, hub *server.ProgressHub) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if err := db.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["timescaledb"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["timescaledb"] = "connected"
		}

		stocks := uni.Count()
		health.Components["universe"] = map[string]any{"stocks": stocks}
		if stocks == 0 {
			health.Status = "degraded"
		}

		health.Components["writer"] = writer.Stats()
		health.Components["ratelimit"] = limiters.AllStats()

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("GET /ws/progress", hub.Handler())

	return mux
}

type pinger interface {
	Ping(ctx context.Context) error
}
