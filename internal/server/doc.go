// Package server exposes the HTTP query API.
//
// Endpoints:
//   - GET /health              liveness and component status
//   - GET /api/stocks          the stored stock universe
//   - GET /api/daily/{symbol}  daily bars for a date range, cached in Redis
//   - GET /api/ratelimit       limiter stats for every provider endpoint
//   - GET /ws/progress         live bulk-run progress over WebSocket
//
// All endpoints sit behind a per-client token-bucket throttle. This is the
// outward-facing counterpart of the provider-side limiter: the provider
// teaches us its budget, we enforce ours explicitly.
package server
