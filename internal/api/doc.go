// Package api provides the HTTP client for the public A-share quote
// endpoints (the push2his interfaces the akshare library wraps): daily
// kline history and the listed-stock universe.
//
// The endpoints are undocumented and rate limited by an opaque policy; the
// client deliberately performs NO automatic retries. Retries here would mask
// rate-limit signals from the adaptive detector in internal/ratelimit, which
// is the sole retry authority on the protected call path. Callers classify
// errors and decide what to do with them.
package api
