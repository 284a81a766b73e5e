// Package ratelimit implements adaptive discovery of undocumented upstream
// rate limits and the pacing machinery that keeps bulk collection under them.
//
// The quote hosts this project pulls from publish no rate-limit policy; they
// silently start rejecting (or resetting) connections once a client exceeds
// some requests-per-window budget. This package learns that budget at runtime
// and remembers it across restarts:
//
//   - AdaptiveDelay paces consecutive calls, shrinking the gap on success and
//     growing it on failure.
//   - Detector is the discovery state machine. On the first rate-limit error
//     it stops bulk work and issues a single probe request at a fixed
//     interval until one succeeds. The elapsed pause is the limiter's window;
//     the request history preceding the failure gives the per-window budget.
//   - FileStore persists confirmed boundaries so the next run skips
//     discovery entirely.
//   - Registry owns one independent limiter per (source, interface, data
//     type) key and is the only way callers obtain them.
//
// The package never performs requests itself. Callers route real calls
// through Limiter.Wait, report each outcome back, and self-throttle using
// the advertised SafePolicy once a boundary is confirmed.
package ratelimit
