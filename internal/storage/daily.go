package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/ashare-data/internal/model"
)

const upsertDailyBarSQL = `
	INSERT INTO daily_bars (
		symbol, trade_date, open, high, low, close, pre_close,
		change, pct_change, turnover, volume, amount
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (symbol, trade_date) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		pre_close = EXCLUDED.pre_close,
		change = EXCLUDED.change,
		pct_change = EXCLUDED.pct_change,
		turnover = EXCLUDED.turnover,
		volume = EXCLUDED.volume,
		amount = EXCLUDED.amount
`

// UpsertDailyBars writes bars in a single pgx batch, updating rows that
// already exist for the same (symbol, trade_date).
func UpsertDailyBars(ctx context.Context, db *pgxpool.Pool, bars []model.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, bar := range bars {
		batch.Queue(upsertDailyBarSQL,
			bar.Symbol, bar.TradeDate, bar.Open, bar.High, bar.Low, bar.Close,
			bar.PreClose, bar.Change, bar.PctChange, bar.Turnover,
			bar.Volume, bar.Amount,
		)
	}

	results := db.SendBatch(ctx, batch)
	defer results.Close()

	for range bars {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ExistingDates returns the set of trade dates already stored for symbol in
// [from, to]. Backfill uses it to skip work on resume.
func ExistingDates(ctx context.Context, db *pgxpool.Pool, symbol string, from, to time.Time) (map[time.Time]bool, error) {
	rows, err := db.Query(ctx, `
		SELECT trade_date FROM daily_bars
		WHERE symbol = $1 AND trade_date >= $2 AND trade_date <= $3
	`, symbol, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := make(map[time.Time]bool)
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates[d.UTC()] = true
	}
	return dates, rows.Err()
}
