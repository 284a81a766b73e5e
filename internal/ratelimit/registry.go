package ratelimit

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Config is the full rate-limit section of the application configuration,
// shared by every limiter the registry creates.
type Config struct {
	ProbeInterval    time.Duration `yaml:"probe_interval"`
	BaseDelay        time.Duration `yaml:"base_delay"`
	MinDelay         time.Duration `yaml:"min_delay"`
	MaxDelay         time.Duration `yaml:"max_delay"`
	BackoffFactor    float64       `yaml:"backoff_factor"`
	MaxBackoffFactor float64       `yaml:"max_backoff_factor"`
	RecoveryFactor   float64       `yaml:"recovery_factor"`
	BatchMargin      float64       `yaml:"batch_margin"`
	PauseMargin      float64       `yaml:"pause_margin"`
	HistoryRetention time.Duration `yaml:"history_retention"`
	FailureThreshold int           `yaml:"failure_threshold"`
	FailurePause     time.Duration `yaml:"failure_pause"`
	BoundaryFile     string        `yaml:"boundary_file"`
}

// DefaultConfig returns the rate-limit defaults.
func DefaultConfig() Config {
	delay := DefaultDelayConfig()
	mon := DefaultMonitorConfig()
	return Config{
		ProbeInterval:    DefaultProbeInterval,
		BaseDelay:        delay.Base,
		MinDelay:         delay.Min,
		MaxDelay:         delay.Max,
		BackoffFactor:    delay.BackoffFactor,
		MaxBackoffFactor: delay.MaxBackoffFactor,
		RecoveryFactor:   delay.RecoveryFactor,
		BatchMargin:      DefaultBatchMargin,
		PauseMargin:      DefaultPauseMargin,
		HistoryRetention: DefaultHistoryRetention,
		FailureThreshold: mon.Threshold,
		FailurePause:     mon.PauseDuration,
		BoundaryFile:     "boundaries.json",
	}
}

// Registry owns one Limiter per key for the whole process. It is constructed
// once at startup and passed to callers explicitly; there is no package
// global, so tests and independent jobs cannot contaminate each other.
type Registry struct {
	mu       sync.Mutex
	cfg      Config
	store    Store
	logger   *slog.Logger
	limiters map[string]*Limiter
}

// NewRegistry creates a registry. The store may be nil to run without
// persistence (boundaries are then rediscovered every run).
func NewRegistry(cfg Config, store Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		limiters: make(map[string]*Limiter),
	}
}

// Limiter returns the limiter for key, creating it on first use. A key with
// a stored boundary starts in StateConfirmed and skips discovery entirely.
func (r *Registry) Limiter(key Key) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[key.String()]; ok {
		return l
	}

	logger := r.logger.With("limiter_key", key.String())
	timer := NewRequestTimer(r.cfg.HistoryRetention)
	detector := NewDetector(key, DetectorConfig{
		ProbeInterval: r.cfg.ProbeInterval,
		BatchMargin:   r.cfg.BatchMargin,
		PauseMargin:   r.cfg.PauseMargin,
	}, timer, r.store, logger)

	if r.store != nil {
		b, ok, err := r.store.Load(key)
		switch {
		case err != nil:
			logger.Warn("failed to load stored boundary", "error", err)
		case ok:
			if err := detector.Restore(b); err != nil {
				logger.Warn("stored boundary is invalid, rediscovering", "error", err)
			}
		}
	}

	l := &Limiter{
		key: key,
		delay: NewAdaptiveDelay(DelayConfig{
			Base:             r.cfg.BaseDelay,
			Min:              r.cfg.MinDelay,
			Max:              r.cfg.MaxDelay,
			BackoffFactor:    r.cfg.BackoffFactor,
			MaxBackoffFactor: r.cfg.MaxBackoffFactor,
			RecoveryFactor:   r.cfg.RecoveryFactor,
		}, logger),
		timer:    timer,
		detector: detector,
		monitor: NewFailureMonitor(MonitorConfig{
			Threshold:     r.cfg.FailureThreshold,
			PauseDuration: r.cfg.FailurePause,
		}, logger),
	}
	r.limiters[key.String()] = l
	return l
}

// Stats returns the detector snapshot for key, if the limiter exists.
func (r *Registry) Stats(key Key) (DetectorStats, bool) {
	r.mu.Lock()
	l, ok := r.limiters[key.String()]
	r.mu.Unlock()

	if !ok {
		return DetectorStats{}, false
	}
	return l.detector.Stats(), true
}

// AllStats returns snapshots for every limiter, ordered by key.
func (r *Registry) AllStats() []DetectorStats {
	r.mu.Lock()
	limiters := make([]*Limiter, 0, len(r.limiters))
	for _, l := range r.limiters {
		limiters = append(limiters, l)
	}
	r.mu.Unlock()

	stats := make([]DetectorStats, 0, len(limiters))
	for _, l := range limiters {
		stats = append(stats, l.detector.Stats())
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Key.String() < stats[j].Key.String()
	})
	return stats
}

// StoredBoundaries returns every persisted boundary for introspection.
func (r *Registry) StoredBoundaries() (map[string]Boundary, error) {
	if r.store == nil {
		return map[string]Boundary{}, nil
	}
	return r.store.ListAll()
}

// Limiter bundles the pacing and discovery state for one key. Callers route
// every protected call through it:
//
//	if err := lim.Wait(ctx); err != nil { ... }
//	data, err := fetch(ctx)
//	lim.Report(classify(err))
type Limiter struct {
	key      Key
	delay    *AdaptiveDelay
	timer    *RequestTimer
	detector *Detector
	monitor  *FailureMonitor
}

// Key returns the limiter's key.
func (l *Limiter) Key() Key { return l.key }

// Wait applies the adaptive inter-request delay.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.delay.Wait(ctx)
}

// Report feeds one call outcome into the limiter's components: the timer
// always records it, the delay paces on it, and only rate-limit outcomes
// reach the detector's state machine. Other errors feed the failure monitor
// instead.
func (l *Limiter) Report(outcome Outcome) {
	l.timer.Record(outcome)

	switch outcome {
	case OutcomeSuccess:
		l.delay.OnSuccess()
		l.monitor.OnSuccess()
		l.detector.OnSuccess()
	case OutcomeRateLimited:
		l.delay.OnFailure()
		l.detector.OnRateLimitError()
	case OutcomeOtherError:
		l.delay.OnFailure()
		l.monitor.OnFailure()
	}
}

// Detector exposes the discovery state machine for probe gating.
func (l *Limiter) Detector() *Detector { return l.detector }

// Monitor exposes the consecutive-failure circuit.
func (l *Limiter) Monitor() *FailureMonitor { return l.monitor }

// Delay exposes the adaptive pacing state.
func (l *Limiter) Delay() *AdaptiveDelay { return l.delay }

// Policy returns the confirmed safe policy, if one is known.
func (l *Limiter) Policy() (SafePolicy, bool) {
	return l.detector.Policy()
}

// AwaitRecovery blocks until the detector permits the next probe, or returns
// immediately if discovery has already finished (another goroutine's probe
// confirmed the boundary). Callers invoke it after reporting a rate-limit
// outcome and then retry the failed request as the probe.
func (l *Limiter) AwaitRecovery(ctx context.Context) error {
	for {
		ok, err := l.detector.ShouldProbeNow()
		if err != nil {
			// Not probing anymore: confirmed concurrently, safe to resume.
			return nil
		}
		if ok {
			return nil
		}

		wait, err := l.detector.NextProbeIn()
		if err != nil {
			return nil
		}
		if wait <= 0 {
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Stop()
		}
	}
}
