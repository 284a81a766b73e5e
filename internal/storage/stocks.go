package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/ashare-data/internal/model"
)

// UpsertStocks writes the stock universe, updating names for symbols that
// already exist.
func UpsertStocks(ctx context.Context, db *pgxpool.Pool, stocks []model.Stock) error {
	if len(stocks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range stocks {
		batch.Queue(`
			INSERT INTO stocks (symbol, code, exchange, name)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (symbol) DO UPDATE SET name = EXCLUDED.name
		`, s.Symbol, s.Code, s.Exchange, s.Name)
	}

	results := db.SendBatch(ctx, batch)
	defer results.Close()

	for range stocks {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
