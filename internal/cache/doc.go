// Package cache provides a Redis-backed JSON cache for query results.
//
// The cache is best-effort: Redis being down degrades to a miss on every
// lookup and a no-op on every store, never an error on the request path.
package cache
