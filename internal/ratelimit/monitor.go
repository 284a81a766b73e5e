package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MonitorConfig configures the consecutive-failure circuit.
type MonitorConfig struct {
	Threshold     int           // consecutive failures before pausing
	PauseDuration time.Duration // how long to pause once tripped
}

// DefaultMonitorConfig returns the failure-monitor defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Threshold:     10,
		PauseDuration: time.Minute,
	}
}

// FailureMonitor watches consecutive non-rate-limit failures and forces a
// cool-down pause when a streak crosses the threshold. It complements the
// detector: the detector reacts to the upstream limiter, the monitor reacts
// to everything else going wrong in a row (provider outage, broken network)
// before the job burns its whole symbol list.
type FailureMonitor struct {
	mu          sync.Mutex
	cfg         MonitorConfig
	consecutive int
	total       int64
	pauseCount  int
	pauseUntil  time.Time

	logger *slog.Logger
	now    func() time.Time
}

// NewFailureMonitor creates a monitor. Zero config fields are filled from
// DefaultMonitorConfig.
func NewFailureMonitor(cfg MonitorConfig, logger *slog.Logger) *FailureMonitor {
	def := DefaultMonitorConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.PauseDuration <= 0 {
		cfg.PauseDuration = def.PauseDuration
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FailureMonitor{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// OnSuccess resets the consecutive-failure streak.
func (m *FailureMonitor) OnSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.consecutive > 0 {
		m.logger.Debug("failure streak cleared", "streak", m.consecutive)
		m.consecutive = 0
	}
}

// OnFailure records a failure and trips the pause when the streak reaches
// the threshold.
func (m *FailureMonitor) OnFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.consecutive++
	m.total++

	if m.consecutive >= m.cfg.Threshold {
		m.pauseUntil = m.now().Add(m.cfg.PauseDuration)
		m.pauseCount++
		m.logger.Warn("consecutive failure threshold reached, pausing",
			"streak", m.consecutive,
			"threshold", m.cfg.Threshold,
			"pause", m.cfg.PauseDuration,
			"pause_count", m.pauseCount,
		)
	}
}

// ShouldPause reports whether the monitor is currently in a pause.
func (m *FailureMonitor) ShouldPause() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Before(m.pauseUntil)
}

// RemainingPause returns how much pause time is left, zero if none.
func (m *FailureMonitor) RemainingPause() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	remaining := m.pauseUntil.Sub(m.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// WaitIfPaused blocks until the pause (if any) expires or ctx is cancelled.
// The streak resets when the pause ends so collection gets a clean start.
func (m *FailureMonitor) WaitIfPaused(ctx context.Context) error {
	remaining := m.RemainingPause()
	if remaining == 0 {
		return nil
	}

	m.logger.Info("waiting out failure pause", "remaining", remaining)
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	m.mu.Lock()
	m.consecutive = 0
	m.mu.Unlock()
	return nil
}

// Reset clears the streak and any active pause, keeping lifetime totals.
func (m *FailureMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.consecutive = 0
	m.pauseUntil = time.Time{}
}

// MonitorStats is a snapshot of the monitor's counters.
type MonitorStats struct {
	ConsecutiveFailures int           `json:"consecutive_failures"`
	TotalFailures       int64         `json:"total_failures"`
	PauseCount          int           `json:"pause_count"`
	Paused              bool          `json:"paused"`
	RemainingPause      time.Duration `json:"remaining_pause"`
}

// Stats returns a snapshot of the monitor state.
func (m *FailureMonitor) Stats() MonitorStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	remaining := m.pauseUntil.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return MonitorStats{
		ConsecutiveFailures: m.consecutive,
		TotalFailures:       m.total,
		PauseCount:          m.pauseCount,
		Paused:              now.Before(m.pauseUntil),
		RemainingPause:      remaining,
	}
}
