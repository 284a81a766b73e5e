package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/ashare-data/internal/model"
	"github.com/rickgao/ashare-data/internal/tradingday"
)

// SymbolSource provides the symbols to collect each day.
type SymbolSource interface {
	GetAll() []model.Stock
}

// CollectFunc runs one day's collection. The date is "YYYYMMDD".
type CollectFunc func(ctx context.Context, symbols []string, date string) error

// Config holds the schedule.
type Config struct {
	RunAt    string         // wall clock "HH:MM"
	Location *time.Location // exchange zone
}

// Scheduler fires CollectFunc once per trading day.
type Scheduler struct {
	cfg     Config
	runHour int
	runMin  int

	symbols SymbolSource
	collect CollectFunc
	logger  *slog.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler. RunAt must be "HH:MM".
func New(cfg Config, symbols SymbolSource, collect CollectFunc, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	var hour, min int
	if _, err := fmt.Sscanf(cfg.RunAt, "%d:%d", &hour, &min); err != nil {
		return nil, fmt.Errorf("parse run_at %q: %w", cfg.RunAt, err)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return nil, fmt.Errorf("run_at %q out of range", cfg.RunAt)
	}

	return &Scheduler{
		cfg:     cfg,
		runHour: hour,
		runMin:  min,
		symbols: symbols,
		collect: collect,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Start begins the schedule loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("scheduler started",
		"run_at", s.cfg.RunAt,
		"timezone", s.cfg.Location.String(),
		"next_run", s.nextRun(s.now()),
	)
	return nil
}

// Stop shuts down the schedule loop. A collection already in flight keeps
// the loop alive until it finishes or its context is cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	for {
		next := s.nextRun(s.now())
		wait := time.Until(next)
		s.logger.Debug("waiting for next run", "next", next, "wait", wait)

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(wait):
			s.runOnce(s.ctx, next)
		}
	}
}

// nextRun returns the first RunAt instant strictly after now.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	local := now.In(s.cfg.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.runHour, s.runMin, 0, 0, s.cfg.Location)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// sessionCloseHour is the A-share close (15:00 exchange time).
const sessionCloseHour = 15

// runOnce collects the most recent trading session closed by the fired
// instant: the fired day itself when the trigger is after the close, the
// previous trading day when it is before. Non-trading days skip entirely;
// their sessions were collected by the prior trading day's run or will be
// by the next one.
func (s *Scheduler) runOnce(ctx context.Context, fired time.Time) {
	fired = fired.In(s.cfg.Location)

	if !tradingday.IsTradingDay(fired) {
		s.logger.Info("market closed, skipping collection", "date", fired.Format("2006-01-02"))
		return
	}

	day := fired
	if day.Hour() < sessionCloseHour {
		day = tradingday.PreviousTradingDay(day)
	}

	stocks := s.symbols.GetAll()
	symbols := make([]string, len(stocks))
	for i, stock := range stocks {
		symbols[i] = stock.Symbol
	}

	date := day.Format("20060102")
	s.logger.Info("daily collection starting", "date", date, "symbols", len(symbols))

	if err := s.collect(ctx, symbols, date); err != nil {
		s.logger.Error("daily collection failed", "date", date, "error", err)
		return
	}
	s.logger.Info("daily collection complete", "date", date)
}
