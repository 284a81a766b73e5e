package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/ashare-data/internal/model"
)

// QueryDailyBars returns bars for symbol in [from, to], oldest first.
func QueryDailyBars(ctx context.Context, db *pgxpool.Pool, symbol string, from, to time.Time) ([]model.DailyBar, error) {
	rows, err := db.Query(ctx, `
		SELECT symbol, trade_date, open, high, low, close, pre_close,
		       change, pct_change, turnover, volume, amount
		FROM daily_bars
		WHERE symbol = $1 AND trade_date >= $2 AND trade_date <= $3
		ORDER BY trade_date
	`, symbol, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []model.DailyBar
	for rows.Next() {
		var bar model.DailyBar
		if err := rows.Scan(
			&bar.Symbol, &bar.TradeDate, &bar.Open, &bar.High, &bar.Low,
			&bar.Close, &bar.PreClose, &bar.Change, &bar.PctChange,
			&bar.Turnover, &bar.Volume, &bar.Amount,
		); err != nil {
			return nil, err
		}
		bar.TradeDate = bar.TradeDate.UTC()
		bars = append(bars, bar)
	}
	return bars, rows.Err()
}

// ListStocks returns the stored universe ordered by symbol.
func ListStocks(ctx context.Context, db *pgxpool.Pool) ([]model.Stock, error) {
	rows, err := db.Query(ctx, `
		SELECT symbol, code, exchange, name FROM stocks ORDER BY symbol
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stocks []model.Stock
	for rows.Next() {
		var s model.Stock
		if err := rows.Scan(&s.Symbol, &s.Code, &s.Exchange, &s.Name); err != nil {
			return nil, err
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

// LatestTradeDate returns the most recent trade date stored across all
// symbols, or the zero time when no bars exist yet.
func LatestTradeDate(ctx context.Context, db *pgxpool.Pool) (time.Time, error) {
	var d *time.Time
	err := db.QueryRow(ctx, `
		SELECT max(trade_date) FROM daily_bars
	`).Scan(&d)
	if err != nil {
		return time.Time{}, err
	}
	if d == nil {
		return time.Time{}, nil
	}
	return d.UTC(), nil
}
