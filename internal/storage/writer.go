package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/ashare-data/internal/model"
)

// WriterConfig controls batching behavior.
type WriterConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// DefaultWriterConfig returns production defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: 2 * time.Second,
	}
}

// WriterMetrics contains writer counters.
type WriterMetrics struct {
	Writes  int64
	Flushes int64
	Errors  int64
}

// BarWriter consumes bars from a BarBuffer and upserts them into daily_bars.
type BarWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	input *BarBuffer
	db    *pgxpool.Pool

	batch       []model.DailyBar
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics WriterMetrics
}

// NewBarWriter creates a BarWriter.
func NewBarWriter(cfg WriterConfig, input *BarBuffer, db *pgxpool.Pool, logger *slog.Logger) *BarWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultWriterConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultWriterConfig().FlushInterval
	}
	return &BarWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]model.DailyBar, 0, cfg.BatchSize),
	}
}

// Start begins consuming bars and writing to the database.
func (w *BarWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("bar writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains the buffer, performs a final flush, and shuts down.
func (w *BarWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping bar writer")

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("bar writer stop timed out")
	}

	// Anything still buffered goes into the final flush.
	if w.input != nil {
		if remaining := w.input.Drain(0); len(remaining) > 0 {
			w.batchMu.Lock()
			w.batch = append(w.batch, remaining...)
			w.batchMu.Unlock()
		}
	}
	w.flush(context.Background())

	w.logger.Info("bar writer stopped")
	return nil
}

// Stats returns current metrics.
func (w *BarWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *BarWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			bar, ok := w.input.TryReceive()
			if !ok {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}
			w.handleBar(bar)
		}
	}
}

func (w *BarWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

func (w *BarWriter) handleBar(bar model.DailyBar) {
	w.batchMu.Lock()
	w.batch = append(w.batch, bar)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

func (w *BarWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}
	batch := w.batch
	w.batch = make([]model.DailyBar, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	if err := UpsertDailyBars(ctx, w.db, batch); err != nil {
		w.logger.Error("batch upsert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Writes += int64(len(batch))
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed bars",
		"count", len(batch),
		"duration", time.Since(start),
	)
}
