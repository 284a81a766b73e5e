package server

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/ashare-data/internal/model"
	"github.com/rickgao/ashare-data/internal/storage"
)

// PGStore adapts the TimescaleDB pool to the Store interface.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore creates a PGStore.
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) QueryDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]model.DailyBar, error) {
	return storage.QueryDailyBars(ctx, s.db, symbol, from, to)
}

func (s *PGStore) ListStocks(ctx context.Context) ([]model.Stock, error) {
	return storage.ListStocks(ctx, s.db)
}

func (s *PGStore) LatestTradeDate(ctx context.Context) (time.Time, error) {
	return storage.LatestTradeDate(ctx, s.db)
}
