// Package universe maintains the in-memory registry of listed A-share stocks.
//
// The registry performs a blocking initial sync on Start, then reconciles
// against the provider on a fixed interval, persisting the result through a
// Sink so restarts can serve queries before the first sync completes.
package universe
