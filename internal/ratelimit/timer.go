package ratelimit

import (
	"sync"
	"time"
)

// DefaultHistoryRetention bounds how much call history a RequestTimer keeps.
// It must exceed any plausible limiter window so the per-window budget can be
// derived from history when a boundary is confirmed.
const DefaultHistoryRetention = 30 * time.Minute

// CallRecord is one outbound call: when it happened and how it ended.
type CallRecord struct {
	At      time.Time
	Outcome Outcome
}

// RequestTimer keeps a bounded, time-ordered history of outbound calls for
// one limiter key. The detector reads it to derive how many requests went
// through in the window preceding a rate-limit failure.
type RequestTimer struct {
	mu        sync.Mutex
	records   []CallRecord
	retention time.Duration

	now func() time.Time
}

// NewRequestTimer creates a timer keeping records for the given retention.
// A non-positive retention falls back to DefaultHistoryRetention.
func NewRequestTimer(retention time.Duration) *RequestTimer {
	if retention <= 0 {
		retention = DefaultHistoryRetention
	}
	return &RequestTimer{
		retention: retention,
		now:       time.Now,
	}
}

// Record appends an outcome at the current time and prunes expired records.
func (t *RequestTimer) Record(outcome Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.records = append(t.records, CallRecord{At: now, Outcome: outcome})
	t.pruneLocked(now)
}

// SuccessesIn counts successful calls with from <= timestamp < to.
func (t *RequestTimer) SuccessesIn(from, to time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, r := range t.records {
		if r.Outcome != OutcomeSuccess {
			continue
		}
		if !r.At.Before(from) && r.At.Before(to) {
			n++
		}
	}
	return n
}

// Len returns the number of retained records.
func (t *RequestTimer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// pruneLocked drops records older than the retention horizon.
// Caller must hold t.mu.
func (t *RequestTimer) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.retention)
	i := 0
	for i < len(t.records) && t.records[i].At.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.records = append(t.records[:0], t.records[i:]...)
	}
}
