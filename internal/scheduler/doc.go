// Package scheduler triggers the daily collection run.
//
// The scheduler fires once per day at a configured wall-clock time in the
// exchange's zone and collects the most recent closed session: the same
// trading day when the trigger falls after market close, the previous one
// when it falls before. Non-trading days are skipped without calling the
// provider.
package scheduler
