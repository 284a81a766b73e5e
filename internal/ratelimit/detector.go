package ratelimit

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultProbeInterval is how often the detector lets one probe request
// through while discovering a limit. Correctness only needs the interval to
// be small relative to the true window; the measured window is then accurate
// to within one interval, which the safety margins absorb.
const DefaultProbeInterval = 5 * time.Minute

// ErrNotProbing is returned by ShouldProbeNow and NextProbeIn outside the
// Probing state. Probing is only meaningful during discovery; calling the
// probe gate at any other time is caller misuse.
var ErrNotProbing = errors.New("detector is not probing")

// State is the detector's discovery phase for one limiter key.
type State int

const (
	// StateNormal: no rate limit encountered yet, bulk work runs freely.
	StateNormal State = iota

	// StateProbing: a rate-limit error was seen. Bulk work is paused and
	// exactly one real request per probe interval is allowed through until
	// one succeeds. Pausing and probing are a single phase here: "paused"
	// means "making only probes", so there is no observable paused-without-
	// probing state.
	StateProbing

	// StateConfirmed: the boundary is known. The detector no longer blocks
	// calls; it advertises a SafePolicy for the caller to self-throttle.
	StateConfirmed
)

// String returns the state name for logs and stats.
func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateProbing:
		return "probing"
	case StateConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// DetectorConfig holds the discovery parameters for one key.
type DetectorConfig struct {
	ProbeInterval time.Duration
	BatchMargin   float64
	PauseMargin   float64
}

// Detector discovers the rate-limit boundary for one limiter key. All state
// transitions happen under a single mutex and are idempotent with respect to
// repeated identical outcomes, so concurrent callers sharing one key cannot
// double-pause or double-persist.
type Detector struct {
	mu    sync.Mutex
	key   Key
	cfg   DetectorConfig
	timer *RequestTimer
	store Store // nil disables persistence

	state          State
	pauseStartedAt time.Time
	lastProbeAt    time.Time
	probeCount     int
	boundary       *Boundary

	totalRequests        int64
	totalRateLimitErrors int64
	totalProbes          int64

	logger *slog.Logger
	now    func() time.Time
}

// NewDetector creates a detector in StateNormal. The timer must be the same
// one the caller records outcomes into; the store may be nil to run
// in-memory only.
func NewDetector(key Key, cfg DetectorConfig, timer *RequestTimer, store Store, logger *slog.Logger) *Detector {
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = DefaultProbeInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		key:    key,
		cfg:    cfg,
		timer:  timer,
		store:  store,
		state:  StateNormal,
		logger: logger,
		now:    time.Now,
	}
}

// Restore installs a previously confirmed boundary, moving the detector
// straight to StateConfirmed so discovery is skipped. The boundary must
// validate.
func (d *Detector) Restore(b Boundary) error {
	if err := b.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.boundary = &b
	d.state = StateConfirmed
	d.logger.Info("restored rate limit boundary",
		"key", d.key.String(),
		"window_seconds", b.WindowSeconds,
		"max_requests", b.MaxRequests,
		"confirmed_at", b.ConfirmedAt,
	)
	return nil
}

// OnSuccess reports a successful call. In StateProbing this is the probe
// that ends discovery: the elapsed pause becomes the window, the request
// history preceding the original failure gives the budget, and the confirmed
// boundary is persisted. In any other state it is a no-op beyond counting.
func (d *Detector) OnSuccess() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.totalRequests++
	if d.state != StateProbing {
		return
	}
	d.confirmLocked(d.now())
}

// OnRateLimitError reports a call rejected by the upstream limiter.
//
//   - StateNormal: discovery starts, bulk work must stop.
//   - StateProbing: the probe failed; discovery simply continues.
//   - StateConfirmed: the learned boundary was wrong or the upstream policy
//     changed. The stale boundary is discarded and discovery re-runs,
//     overwriting the stored boundary on reconfirmation.
func (d *Detector) OnRateLimitError() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.totalRateLimitErrors++
	now := d.now()

	switch d.state {
	case StateNormal:
		d.enterProbingLocked(now)
		d.logger.Warn("rate limit hit, starting discovery",
			"key", d.key.String(),
			"probe_interval", d.cfg.ProbeInterval,
		)

	case StateProbing:
		d.logger.Debug("probe still rate limited",
			"key", d.key.String(),
			"probe_count", d.probeCount,
			"paused_for", now.Sub(d.pauseStartedAt),
		)

	case StateConfirmed:
		d.boundary = nil
		d.enterProbingLocked(now)
		d.logger.Warn("rate limit hit with confirmed boundary, rediscovering",
			"key", d.key.String(),
		)
	}
}

// ShouldProbeNow reports whether the caller may issue a probe request right
// now. It atomically advances the probe schedule, so it returns true at most
// once per probe interval no matter how often it is polled. Calling it
// outside StateProbing returns ErrNotProbing.
func (d *Detector) ShouldProbeNow() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateProbing {
		return false, ErrNotProbing
	}

	now := d.now()
	if now.Sub(d.lastProbeAt) < d.cfg.ProbeInterval {
		return false, nil
	}

	d.lastProbeAt = now
	d.probeCount++
	d.totalProbes++
	d.logger.Info("issuing rate limit probe",
		"key", d.key.String(),
		"probe_count", d.probeCount,
		"paused_for", now.Sub(d.pauseStartedAt),
	)
	return true, nil
}

// NextProbeIn returns how long until the next probe is due, or zero if one
// is due now. Outside StateProbing it returns ErrNotProbing.
func (d *Detector) NextProbeIn() (time.Duration, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateProbing {
		return 0, ErrNotProbing
	}

	remaining := d.cfg.ProbeInterval - d.now().Sub(d.lastProbeAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// State returns the current discovery phase.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Boundary returns the confirmed boundary, if any.
func (d *Detector) Boundary() (Boundary, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.boundary == nil {
		return Boundary{}, false
	}
	return *d.boundary, true
}

// Policy returns the derived safe operating policy once a boundary is
// confirmed. The detector does not enforce it; the caller is responsible for
// batching work accordingly.
func (d *Detector) Policy() (SafePolicy, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.boundary == nil {
		return SafePolicy{}, false
	}
	return d.boundary.Policy(d.cfg.BatchMargin, d.cfg.PauseMargin), true
}

// DetectorStats is a point-in-time snapshot for operational reporting.
type DetectorStats struct {
	Key                  Key       `json:"key"`
	State                string    `json:"state"`
	ProbeCount           int       `json:"probe_count"`
	Boundary             *Boundary `json:"boundary,omitempty"`
	TotalRequests        int64     `json:"total_requests"`
	TotalRateLimitErrors int64     `json:"total_rate_limit_errors"`
	TotalProbes          int64     `json:"total_probes"`
}

// Stats returns a snapshot of the detector's state and counters.
func (d *Detector) Stats() DetectorStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := DetectorStats{
		Key:                  d.key,
		State:                d.state.String(),
		ProbeCount:           d.probeCount,
		TotalRequests:        d.totalRequests,
		TotalRateLimitErrors: d.totalRateLimitErrors,
		TotalProbes:          d.totalProbes,
	}
	if d.boundary != nil {
		b := *d.boundary
		s.Boundary = &b
	}
	return s
}

// enterProbingLocked starts a discovery round. The probe clock starts at the
// failure time, so the first probe becomes due one interval later. Caller
// must hold d.mu.
func (d *Detector) enterProbingLocked(now time.Time) {
	d.state = StateProbing
	d.pauseStartedAt = now
	d.lastProbeAt = now
	d.probeCount = 0
}

// confirmLocked ends discovery after a successful probe. Caller must hold
// d.mu.
func (d *Detector) confirmLocked(now time.Time) {
	window := now.Sub(d.pauseStartedAt)

	// Budget = successful requests in the window immediately preceding the
	// original failure. History can be empty after a restart mid-discovery;
	// a floor of 1 keeps the boundary valid and the 80% batch margin makes
	// an underestimate safe.
	maxRequests := d.timer.SuccessesIn(d.pauseStartedAt.Add(-window), d.pauseStartedAt)
	if maxRequests < 1 {
		maxRequests = 1
	}

	b := Boundary{
		WindowSeconds: window.Seconds(),
		MaxRequests:   maxRequests,
		ConfirmedAt:   now,
	}
	d.boundary = &b
	d.state = StateConfirmed
	probes := d.probeCount
	d.probeCount = 0

	if d.store != nil {
		if err := d.store.Save(d.key, b); err != nil {
			// Persistence failure only costs the skip-discovery benefit on
			// the next run; the in-memory boundary keeps this run correct.
			d.logger.Warn("failed to persist rate limit boundary",
				"key", d.key.String(),
				"error", err,
			)
		}
	}

	policy := b.Policy(d.cfg.BatchMargin, d.cfg.PauseMargin)
	d.logger.Info("rate limit boundary confirmed",
		"key", d.key.String(),
		"window_seconds", b.WindowSeconds,
		"max_requests", b.MaxRequests,
		"probes", probes,
		"safe_batch_size", policy.BatchSize,
		"safe_pause", policy.PauseDuration,
	)
}
