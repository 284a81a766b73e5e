// Package storage implements persistence for daily bars and the stock universe.
//
// The write path is buffered: collectors push bars into a BarBuffer and a
// single BarWriter drains it, batching inserts with an upsert on
// (symbol, trade_date). Re-collecting a date is therefore always safe.
//
// Prices are stored as integer hundredths of a yuan, percentages as basis
// points. daily_bars is a TimescaleDB hypertable partitioned on trade_date.
package storage
