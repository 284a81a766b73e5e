package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// BulkReport summarizes one bulk run.
type BulkReport struct {
	RunID     string
	Symbols   int
	Skipped   int
	Succeeded int
	Failed    int
	Bars      int64
	Duration  time.Duration
	Errors    map[string]string
}

// ProgressFunc receives completion counts as the run advances.
type ProgressFunc func(done, total int)

// BulkRunner collects daily bars for many symbols with bounded concurrency.
//
// Dispatch is serial even though fetches run in parallel: when the limiter
// holds a confirmed boundary, the runner pauses between batches of the safe
// policy size, keeping the aggregate request rate under the boundary
// regardless of worker count.
type BulkRunner struct {
	collector   *DailyCollector
	concurrency int64

	progressFile string
	onProgress   ProgressFunc
	logger       *slog.Logger
}

// NewBulkRunner creates a runner. progressFile may be empty to disable
// resume. onProgress may be nil.
func NewBulkRunner(
	collector *DailyCollector,
	concurrency int,
	progressFile string,
	onProgress ProgressFunc,
	logger *slog.Logger,
) *BulkRunner {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &BulkRunner{
		collector:    collector,
		concurrency:  int64(concurrency),
		progressFile: progressFile,
		onProgress:   onProgress,
		logger:       logger,
	}
}

// Run collects [startDate, endDate] bars for every symbol. An existing
// progress file for the same date range resumes; a finished run removes it.
func (r *BulkRunner) Run(ctx context.Context, symbols []string, startDate, endDate string) (*BulkReport, error) {
	start := time.Now()

	prog := r.loadOrStartProgress(startDate, endDate)
	report := &BulkReport{
		RunID:   prog.RunID,
		Symbols: len(symbols),
		Errors:  make(map[string]string),
	}

	r.logger.Info("bulk run starting",
		"run_id", prog.RunID,
		"symbols", len(symbols),
		"resumed", len(prog.Completed),
		"start", startDate,
		"end", endDate,
		"concurrency", r.concurrency,
	)

	// Workers mark completions on prog under mu while dispatch is still
	// iterating, so the dispatch loop checks a pre-run snapshot instead of
	// the live map. Each symbol is dispatched at most once, so only resumed
	// completions matter here.
	completed := make(map[string]bool, len(prog.Completed))
	for symbol := range prog.Completed {
		completed[symbol] = true
	}

	var mu sync.Mutex
	done := len(prog.Completed)
	sem := semaphore.NewWeighted(r.concurrency)
	var sinceBatchPause int

	for _, symbol := range symbols {
		if completed[symbol] {
			report.Skipped++
			continue
		}

		if err := r.pace(ctx, &sinceBatchPause); err != nil {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		go func(symbol string) {
			defer sem.Release(1)

			bars, err := r.collector.Collect(ctx, symbol, startDate, endDate)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				report.Errors[symbol] = err.Error()
				r.logger.Error("symbol failed", "symbol", symbol, "error", err)
			} else {
				report.Succeeded++
				report.Bars += int64(bars)
				prog.MarkDone(symbol, bars)
				r.saveProgressLocked(prog)
			}
			done++
			if r.onProgress != nil {
				r.onProgress(done, len(symbols))
			}
		}(symbol)
	}

	// Wait for in-flight workers regardless of how the loop ended.
	if err := sem.Acquire(context.Background(), r.concurrency); err == nil {
		sem.Release(r.concurrency)
	}

	report.Duration = time.Since(start)

	if ctx.Err() != nil {
		r.logger.Warn("bulk run interrupted",
			"run_id", report.RunID,
			"succeeded", report.Succeeded,
			"failed", report.Failed,
		)
		return report, ctx.Err()
	}

	if r.progressFile != "" && report.Failed == 0 {
		if err := RemoveProgress(r.progressFile); err != nil {
			r.logger.Warn("failed to remove progress file", "error", err)
		}
	}

	r.logger.Info("bulk run complete",
		"run_id", report.RunID,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"bars", report.Bars,
		"duration", report.Duration,
	)
	return report, nil
}

// pace inserts the confirmed safe-policy pause between dispatch batches.
func (r *BulkRunner) pace(ctx context.Context, sinceBatchPause *int) error {
	policy, ok := r.collector.Limiter().Policy()
	if !ok {
		return ctx.Err()
	}

	if *sinceBatchPause >= policy.BatchSize {
		*sinceBatchPause = 0
		r.logger.Debug("batch pause",
			"batch_size", policy.BatchSize,
			"pause", policy.PauseDuration,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.PauseDuration):
		}
	}
	*sinceBatchPause++
	return nil
}

func (r *BulkRunner) loadOrStartProgress(startDate, endDate string) *Progress {
	if r.progressFile != "" {
		prog, err := LoadProgress(r.progressFile)
		switch {
		case err != nil:
			r.logger.Warn("unreadable progress file, starting fresh", "error", err)
		case prog != nil && prog.Matches(startDate, endDate):
			r.logger.Info("resuming bulk run",
				"run_id", prog.RunID,
				"completed", len(prog.Completed),
			)
			return prog
		case prog != nil:
			r.logger.Info("progress file is for a different range, starting fresh",
				"old_start", prog.StartDate,
				"old_end", prog.EndDate,
			)
		}
	}
	return NewProgress(uuid.NewString(), startDate, endDate)
}

// saveProgressLocked persists progress. Caller holds the run mutex.
func (r *BulkRunner) saveProgressLocked(prog *Progress) {
	if r.progressFile == "" {
		return
	}
	if err := prog.Save(r.progressFile); err != nil {
		r.logger.Warn("failed to save progress", "error", err)
	}
}
