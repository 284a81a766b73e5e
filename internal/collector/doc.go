// Package collector fetches market data through the rate-limit registry.
//
// Every provider call runs through guard: wait out any failure pause, pace
// with the adaptive delay, classify the result, and report it back to the
// limiter. When the limiter confirms a rate limit, the caller blocks until
// it wins a probe slot; the retried fetch then doubles as the probe. There
// is no retry anywhere below this layer.
//
// BulkRunner fans collection out across symbols with bounded concurrency
// and a resumable progress file, pacing dispatch with the confirmed safe
// policy when one exists.
package collector
