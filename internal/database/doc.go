// Package database provides connection pool management for TimescaleDB.
//
// All market data lives in a single TimescaleDB instance:
//   - daily_bars is a hypertable partitioned on trade_date
//   - stocks holds the listed-stock universe (relational data)
package database
