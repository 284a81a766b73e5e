package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Default safety margins applied to a confirmed boundary.
const (
	DefaultBatchMargin = 0.8 // fraction of the learned budget used per batch
	DefaultPauseMargin = 1.2 // markup on the learned window between batches
)

// ErrInvalidBoundary is returned when a boundary fails validation. Saving an
// invalid boundary is a programming error, not a runtime condition.
var ErrInvalidBoundary = errors.New("invalid rate limit boundary")

// Boundary is a learned description of an external rate limiter: the window
// it measures over and how many requests it allows inside one window.
type Boundary struct {
	WindowSeconds float64   `json:"window_seconds"`
	MaxRequests   int       `json:"max_requests_in_window"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

// Window returns the window length as a duration.
func (b Boundary) Window() time.Duration {
	return time.Duration(b.WindowSeconds * float64(time.Second))
}

// Validate reports whether the boundary describes a usable limit.
func (b Boundary) Validate() error {
	if b.WindowSeconds <= 0 {
		return fmt.Errorf("%w: window_seconds %v must be > 0", ErrInvalidBoundary, b.WindowSeconds)
	}
	if b.MaxRequests <= 0 {
		return fmt.Errorf("%w: max_requests_in_window %d must be > 0", ErrInvalidBoundary, b.MaxRequests)
	}
	return nil
}

// SafePolicy is the derived operating policy for a confirmed boundary. The
// detector only advertises it; the caller applies it by batching work into
// groups of at most BatchSize requests separated by PauseDuration of idle
// time. The margins absorb the one-probe-interval measurement error and
// normal timing jitter.
type SafePolicy struct {
	BatchSize     int
	PauseDuration time.Duration
}

// Policy derives the safe operating policy from a boundary. Non-positive
// margins fall back to the defaults. BatchSize never drops below 1.
func (b Boundary) Policy(batchMargin, pauseMargin float64) SafePolicy {
	if batchMargin <= 0 || batchMargin > 1 {
		batchMargin = DefaultBatchMargin
	}
	if pauseMargin < 1 {
		pauseMargin = DefaultPauseMargin
	}

	batch := int(math.Floor(float64(b.MaxRequests) * batchMargin))
	if batch < 1 {
		batch = 1
	}
	return SafePolicy{
		BatchSize:     batch,
		PauseDuration: time.Duration(b.WindowSeconds * pauseMargin * float64(time.Second)),
	}
}
