package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DelayConfig bounds the adaptive inter-request delay.
type DelayConfig struct {
	Base time.Duration // starting delay, restored by Reset
	Min  time.Duration // floor after repeated successes
	Max  time.Duration // cap after repeated failures

	BackoffFactor    float64 // first-failure multiplier (default 1.5)
	MaxBackoffFactor float64 // multiplier cap on consecutive failures (default 2.5)
	RecoveryFactor   float64 // per-success shrink factor (default 0.9)
}

// DefaultDelayConfig returns the pacing defaults tuned for the quote hosts.
func DefaultDelayConfig() DelayConfig {
	return DelayConfig{
		Base:             500 * time.Millisecond,
		Min:              100 * time.Millisecond,
		Max:              5 * time.Second,
		BackoffFactor:    1.5,
		MaxBackoffFactor: 2.5,
		RecoveryFactor:   0.9,
	}
}

// AdaptiveDelay paces consecutive calls against one limiter key without
// knowing the limit in advance: multiplicative backoff on failure, gradual
// recovery on success. The current delay always stays within [Min, Max] and
// is mutated only by OnSuccess, OnFailure and Reset.
type AdaptiveDelay struct {
	mu                  sync.Mutex
	cfg                 DelayConfig
	current             time.Duration
	lastCall            time.Time
	consecutiveFailures int

	logger *slog.Logger
	now    func() time.Time
}

// NewAdaptiveDelay creates a delay with the given bounds. Zero config fields
// are filled from DefaultDelayConfig.
func NewAdaptiveDelay(cfg DelayConfig, logger *slog.Logger) *AdaptiveDelay {
	def := DefaultDelayConfig()
	if cfg.Base <= 0 {
		cfg.Base = def.Base
	}
	if cfg.Min <= 0 {
		cfg.Min = def.Min
	}
	if cfg.Max <= 0 {
		cfg.Max = def.Max
	}
	if cfg.BackoffFactor <= 1 {
		cfg.BackoffFactor = def.BackoffFactor
	}
	if cfg.MaxBackoffFactor < cfg.BackoffFactor {
		cfg.MaxBackoffFactor = def.MaxBackoffFactor
	}
	if cfg.RecoveryFactor <= 0 || cfg.RecoveryFactor >= 1 {
		cfg.RecoveryFactor = def.RecoveryFactor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AdaptiveDelay{
		cfg:     cfg,
		current: clampDelay(cfg.Base, cfg.Min, cfg.Max),
		logger:  logger,
		now:     time.Now,
	}
}

// Wait blocks until the current delay has elapsed since the last call for
// this key, then records the call time. It returns early with the context
// error if ctx is cancelled. The lock is never held while sleeping.
func (d *AdaptiveDelay) Wait(ctx context.Context) error {
	d.mu.Lock()
	wait := d.current - d.now().Sub(d.lastCall)
	d.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	d.mu.Lock()
	d.lastCall = d.now()
	d.mu.Unlock()
	return nil
}

// OnSuccess shrinks the delay by the recovery factor, floored at Min, and
// resets the consecutive-failure count.
func (d *AdaptiveDelay) OnSuccess() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.consecutiveFailures = 0
	next := time.Duration(float64(d.current) * d.cfg.RecoveryFactor)
	d.current = clampDelay(next, d.cfg.Min, d.cfg.Max)
}

// OnFailure grows the delay multiplicatively, capped at Max. The multiplier
// escalates with consecutive failures: BackoffFactor on the first, +0.5 per
// additional failure up to MaxBackoffFactor (1.5x, 2.0x, 2.5x with defaults).
func (d *AdaptiveDelay) OnFailure() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.consecutiveFailures++
	factor := d.cfg.BackoffFactor + 0.5*float64(d.consecutiveFailures-1)
	if factor > d.cfg.MaxBackoffFactor {
		factor = d.cfg.MaxBackoffFactor
	}

	old := d.current
	d.current = clampDelay(time.Duration(float64(d.current)*factor), d.cfg.Min, d.cfg.Max)

	d.logger.Debug("request delay increased",
		"consecutive_failures", d.consecutiveFailures,
		"old_delay", old,
		"new_delay", d.current,
	)
}

// Reset restores the delay to its configured base value.
func (d *AdaptiveDelay) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.consecutiveFailures = 0
	d.current = clampDelay(d.cfg.Base, d.cfg.Min, d.cfg.Max)
}

// Current returns the current inter-request delay.
func (d *AdaptiveDelay) Current() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

func clampDelay(v, min, max time.Duration) time.Duration {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
