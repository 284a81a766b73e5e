package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/rickgao/ashare-data/internal/model"
)

type fakeSymbols []model.Stock

func (f fakeSymbols) GetAll() []model.Stock { return f }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduler(t *testing.T, runAt string, collect CollectFunc) *Scheduler {
	t.Helper()
	s, err := New(Config{RunAt: runAt, Location: time.UTC}, fakeSymbols{
		{Symbol: "000001.SZ"},
		{Symbol: "600000.SH"},
	}, collect, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNew_RejectsBadRunAt(t *testing.T) {
	for _, runAt := range []string{"", "25:00", "18:75", "noon"} {
		if _, err := New(Config{RunAt: runAt, Location: time.UTC}, fakeSymbols{}, nil, testLogger()); err == nil {
			t.Errorf("New accepted run_at %q", runAt)
		}
	}
}

func TestNextRun(t *testing.T) {
	s := newTestScheduler(t, "18:30", nil)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			"before run time",
			time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC),
			time.Date(2025, 3, 12, 18, 30, 0, 0, time.UTC),
		},
		{
			"exactly at run time rolls to tomorrow",
			time.Date(2025, 3, 12, 18, 30, 0, 0, time.UTC),
			time.Date(2025, 3, 13, 18, 30, 0, 0, time.UTC),
		},
		{
			"after run time",
			time.Date(2025, 3, 12, 19, 0, 0, 0, time.UTC),
			time.Date(2025, 3, 13, 18, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.nextRun(tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("nextRun(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestRunOnce_TradingDay(t *testing.T) {
	var gotDate string
	var gotSymbols []string
	s := newTestScheduler(t, "18:30", func(ctx context.Context, symbols []string, date string) error {
		gotDate = date
		gotSymbols = symbols
		return nil
	})

	// Wednesday
	s.runOnce(context.Background(), time.Date(2025, 3, 12, 18, 30, 0, 0, time.UTC))

	if gotDate != "20250312" {
		t.Errorf("date = %q, want 20250312", gotDate)
	}
	if len(gotSymbols) != 2 || gotSymbols[0] != "000001.SZ" {
		t.Errorf("symbols = %v", gotSymbols)
	}
}

func TestRunOnce_BeforeCloseCollectsPreviousSession(t *testing.T) {
	var gotDate string
	s := newTestScheduler(t, "09:00", func(ctx context.Context, symbols []string, date string) error {
		gotDate = date
		return nil
	})

	// Monday morning, before the close: Friday's session is the newest
	// complete one.
	s.runOnce(context.Background(), time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	if gotDate != "20250307" {
		t.Errorf("date = %q, want 20250307", gotDate)
	}
}

func TestRunOnce_SkipsNonTradingDay(t *testing.T) {
	called := false
	s := newTestScheduler(t, "18:30", func(ctx context.Context, symbols []string, date string) error {
		called = true
		return nil
	})

	// Saturday
	s.runOnce(context.Background(), time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC))
	if called {
		t.Error("collection ran on a Saturday")
	}

	// Labor Day
	s.runOnce(context.Background(), time.Date(2025, 5, 1, 18, 30, 0, 0, time.UTC))
	if called {
		t.Error("collection ran on a holiday")
	}
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler(t, "18:30", func(ctx context.Context, symbols []string, date string) error {
		return nil
	})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
