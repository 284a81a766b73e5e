package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/rickgao/ashare-data/internal/api"
	"github.com/rickgao/ashare-data/internal/config"
	"github.com/rickgao/ashare-data/internal/model"
	"github.com/rickgao/ashare-data/internal/ratelimit"
)

// StockLister fetches the full stock list under its own limiter key.
// It implements universe.Lister.
type StockLister struct {
	client  *api.Client
	limiter *ratelimit.Limiter

	retryTimes   int
	retryBackoff time.Duration
	logger       *slog.Logger
}

// NewStockLister creates a lister sharing the registry's clist limiter.
func NewStockLister(
	client *api.Client,
	reg *ratelimit.Registry,
	cfg config.CollectorConfig,
	logger *slog.Logger,
) *StockLister {
	if logger == nil {
		logger = slog.Default()
	}
	return &StockLister{
		client:       client,
		limiter:      reg.Limiter(KeyStockList),
		retryTimes:   cfg.RetryTimes,
		retryBackoff: cfg.RetryBackoff,
		logger:       logger,
	}
}

// ListStocks fetches the current A-share universe.
func (s *StockLister) ListStocks(ctx context.Context) ([]model.Stock, error) {
	var stocks []model.Stock
	err := guard(ctx, s.limiter, s.retryTimes, s.retryBackoff, s.logger, func(ctx context.Context) error {
		var err error
		stocks, err = s.client.GetStockList(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return stocks, nil
}
