package universe

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rickgao/ashare-data/internal/model"
)

// Lister fetches the current stock universe from the provider.
type Lister interface {
	ListStocks(ctx context.Context) ([]model.Stock, error)
}

// Sink persists a synced universe. A nil Sink skips persistence.
type Sink func(ctx context.Context, stocks []model.Stock) error

// Config holds registry configuration.
type Config struct {
	ReconcileInterval  time.Duration
	InitialLoadTimeout time.Duration
}

// DefaultConfig returns sensible defaults. The universe changes at most a
// few times a day (listings, delistings), so reconciliation is slow.
func DefaultConfig() Config {
	return Config{
		ReconcileInterval:  6 * time.Hour,
		InitialLoadTimeout: 5 * time.Minute,
	}
}

// Registry tracks the listed-stock universe.
type Registry struct {
	cfg    Config
	lister Lister
	sink   Sink
	logger *slog.Logger

	mu         sync.RWMutex
	stocks     map[string]model.Stock
	lastSyncAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates a stock registry.
func NewRegistry(cfg Config, lister Lister, sink Sink, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = DefaultConfig().ReconcileInterval
	}
	if cfg.InitialLoadTimeout <= 0 {
		cfg.InitialLoadTimeout = DefaultConfig().InitialLoadTimeout
	}
	return &Registry{
		cfg:    cfg,
		lister: lister,
		sink:   sink,
		logger: logger,
		stocks: make(map[string]model.Stock),
	}
}

// Seed loads previously persisted stocks, typically on restart before the
// first provider sync.
func (r *Registry) Seed(stocks []model.Stock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range stocks {
		r.stocks[s.Symbol] = s
	}
}

// Start performs a blocking initial sync, then begins background
// reconciliation. A failed initial sync is fatal only when the registry
// holds no seeded stocks.
func (r *Registry) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	syncCtx, cancel := context.WithTimeout(r.ctx, r.cfg.InitialLoadTimeout)
	err := r.sync(syncCtx)
	cancel()
	if err != nil {
		if r.Count() == 0 {
			r.cancel()
			return err
		}
		r.logger.Warn("initial universe sync failed, serving seeded stocks", "error", err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.reconcileLoop(r.ctx)
	}()

	r.logger.Info("stock registry started", "stocks", r.Count())
	return nil
}

// Stop shuts down background reconciliation.
func (r *Registry) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("stock registry stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetAll returns all stocks ordered by symbol.
func (r *Registry) GetAll() []model.Stock {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Stock, 0, len(r.stocks))
	for _, s := range r.stocks {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Get returns a stock by symbol.
func (r *Registry) Get(symbol string) (model.Stock, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stocks[symbol]
	return s, ok
}

// Count returns the number of known stocks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stocks)
}

// LastSyncAt returns the time of the last successful provider sync.
func (r *Registry) LastSyncAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSyncAt
}

func (r *Registry) reconcileLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.sync(ctx); err != nil {
				r.logger.Error("universe reconciliation failed", "error", err)
			}
		}
	}
}

// sync fetches the universe, diffs it against current state, and persists.
func (r *Registry) sync(ctx context.Context) error {
	start := time.Now()

	stocks, err := r.lister.ListStocks(ctx)
	if err != nil {
		return err
	}

	var added, renamed int
	r.mu.Lock()
	for _, s := range stocks {
		existing, ok := r.stocks[s.Symbol]
		if !ok {
			added++
		} else if existing.Name != s.Name {
			renamed++
		}
		r.stocks[s.Symbol] = s
	}
	r.lastSyncAt = time.Now()
	total := len(r.stocks)
	r.mu.Unlock()

	if r.sink != nil {
		if err := r.sink(ctx, stocks); err != nil {
			r.logger.Warn("failed to persist universe", "error", err)
		}
	}

	if added > 0 || renamed > 0 {
		r.logger.Info("universe sync found changes",
			"added", added,
			"renamed", renamed,
			"total", total,
			"duration", time.Since(start),
		)
	} else {
		r.logger.Debug("universe sync complete",
			"total", total,
			"duration", time.Since(start),
		)
	}
	return nil
}
