package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/ashare-data/internal/api"
	"github.com/rickgao/ashare-data/internal/collector"
	"github.com/rickgao/ashare-data/internal/config"
	"github.com/rickgao/ashare-data/internal/database"
	"github.com/rickgao/ashare-data/internal/model"
	"github.com/rickgao/ashare-data/internal/ratelimit"
	"github.com/rickgao/ashare-data/internal/storage"
	"github.com/rickgao/ashare-data/internal/tradingday"
	"github.com/rickgao/ashare-data/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/collector.local.yaml", "path to config file")
	startDate := flag.String("start", "", "start date YYYYMMDD (default: full history)")
	endDate := flag.String("end", "", "end date YYYYMMDD (default: today)")
	symbolsFlag := flag.String("symbols", "", "comma-separated symbols (default: all stored stocks)")
	showStats := flag.Bool("stats", false, "print limiter stats and stored boundaries, then exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	boundaryStore := ratelimit.NewFileStore(cfg.RateLimit.BoundaryFile)

	if *showStats {
		if err := printStats(boundaryStore); err != nil {
			logger.Error("failed to read boundaries", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal, progress will be saved", "signal", sig)
		cancel()
	}()

	db, err := database.Connect(ctx, cfg.Database.Timescale)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	limiters := ratelimit.NewRegistry(cfg.RateLimit, boundaryStore, logger)
	client := api.NewClient(
		cfg.Provider.BaseURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Provider.Timeout),
		api.WithUserAgent(cfg.Provider.UserAgent),
	)

	symbols, err := resolveSymbols(ctx, db, client, limiters, cfg, *symbolsFlag, logger)
	if err != nil {
		logger.Error("failed to resolve symbols", "error", err)
		os.Exit(1)
	}
	if len(symbols) == 0 {
		logger.Error("no symbols to backfill")
		os.Exit(1)
	}

	if *startDate != "" && *endDate != "" {
		symbols = filterCovered(ctx, db, symbols, *startDate, *endDate, logger)
		if len(symbols) == 0 {
			logger.Info("all symbols already stored for this range, nothing to do")
			return
		}
	}

	buffer := storage.NewBarBuffer(cfg.Collector.BufferSize)
	writer := storage.NewBarWriter(storage.WriterConfig{
		BatchSize:     cfg.Collector.BatchSize,
		FlushInterval: cfg.Collector.FlushInterval,
	}, buffer, db, logger)
	if err := writer.Start(ctx); err != nil {
		logger.Error("failed to start writer", "error", err)
		os.Exit(1)
	}

	daily := collector.NewDailyCollector(client, limiters, buffer, cfg.Collector, logger)
	runner := collector.NewBulkRunner(daily, cfg.Collector.Concurrency, cfg.Collector.ProgressFile,
		func(done, total int) {
			if done%100 == 0 || done == total {
				logger.Info("backfill progress", "done", done, "total", total)
			}
		}, logger)

	report, runErr := runner.Run(ctx, symbols, *startDate, *endDate)

	// Always drain what was collected, even on interrupt.
	buffer.Close()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	writer.Stop(stopCtx)
	stopCancel()

	printReport(report, writer.Stats())

	if runErr != nil {
		logger.Warn("backfill interrupted, re-run to resume", "error", runErr)
		os.Exit(1)
	}
	if report.Failed > 0 {
		os.Exit(1)
	}
}

// resolveSymbols uses the -symbols flag, or stored stocks, or a fresh
// provider fetch, in that order.
func resolveSymbols(
	ctx context.Context,
	db *pgxpool.Pool,
	client *api.Client,
	limiters *ratelimit.Registry,
	cfg *config.Config,
	flagValue string,
	logger *slog.Logger,
) ([]string, error) {
	if flagValue != "" {
		parts := strings.Split(flagValue, ",")
		symbols := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				symbols = append(symbols, s)
			}
		}
		return symbols, nil
	}

	stored, err := storage.ListStocks(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("list stored stocks: %w", err)
	}
	if len(stored) > 0 {
		logger.Info("using stored stock universe", "stocks", len(stored))
		return symbolsOf(stored), nil
	}

	logger.Info("no stored stocks, fetching universe from provider")
	lister := collector.NewStockLister(client, limiters, cfg.Collector, logger)
	fetched, err := lister.ListStocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch stock list: %w", err)
	}
	if err := storage.UpsertStocks(ctx, db, fetched); err != nil {
		logger.Warn("failed to persist stock universe", "error", err)
	}
	return symbolsOf(fetched), nil
}

// filterCovered drops symbols whose stored bars already include every trading
// day in [start, end], so a re-run of a loaded range costs no provider calls.
func filterCovered(ctx context.Context, db *pgxpool.Pool, symbols []string, start, end string, logger *slog.Logger) []string {
	from, err1 := time.Parse("20060102", start)
	to, err2 := time.Parse("20060102", end)
	if err1 != nil || err2 != nil {
		return symbols
	}

	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if tradingday.IsTradingDay(d) {
			days = append(days, time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC))
		}
	}
	if len(days) == 0 {
		return symbols
	}

	kept := make([]string, 0, len(symbols))
	skipped := 0
	for _, symbol := range symbols {
		existing, err := storage.ExistingDates(ctx, db, symbol, from, to)
		if err != nil {
			logger.Warn("coverage check failed, keeping symbol", "symbol", symbol, "error", err)
			kept = append(kept, symbol)
			continue
		}
		covered := true
		for _, day := range days {
			if !existing[day] {
				covered = false
				break
			}
		}
		if covered {
			skipped++
			continue
		}
		kept = append(kept, symbol)
	}
	if skipped > 0 {
		logger.Info("skipping fully stored symbols", "skipped", skipped, "remaining", len(kept))
	}
	return kept
}

func symbolsOf(stocks []model.Stock) []string {
	symbols := make([]string, len(stocks))
	for i, s := range stocks {
		symbols[i] = s.Symbol
	}
	return symbols
}

func printStats(store *ratelimit.FileStore) error {
	boundaries, err := store.ListAll()
	if err != nil {
		return err
	}
	if len(boundaries) == 0 {
		fmt.Println("no confirmed boundaries")
		return nil
	}

	keys := make([]string, 0, len(boundaries))
	for k := range boundaries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b := boundaries[k]
		policy := b.Policy(ratelimit.DefaultBatchMargin, ratelimit.DefaultPauseMargin)
		fmt.Printf("%s\n", k)
		fmt.Printf("  window:        %.1fs\n", b.WindowSeconds)
		fmt.Printf("  max requests:  %d\n", b.MaxRequests)
		fmt.Printf("  confirmed at:  %s\n", b.ConfirmedAt.Format(time.RFC3339))
		fmt.Printf("  safe policy:   %d requests then pause %s\n", policy.BatchSize, policy.PauseDuration)
	}
	return nil
}

func printReport(report *collector.BulkReport, writes storage.WriterMetrics) {
	out, _ := json.MarshalIndent(map[string]any{
		"run_id":    report.RunID,
		"symbols":   report.Symbols,
		"skipped":   report.Skipped,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"bars":      report.Bars,
		"duration":  report.Duration.String(),
		"writes":    writes,
	}, "", "  ")
	fmt.Println(string(out))

	if len(report.Errors) > 0 {
		fmt.Println("failures:")
		for symbol, msg := range report.Errors {
			fmt.Printf("  %s: %s\n", symbol, msg)
		}
	}
}
