package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/ashare-data/internal/api"
	"github.com/rickgao/ashare-data/internal/config"
	"github.com/rickgao/ashare-data/internal/ratelimit"
	"github.com/rickgao/ashare-data/internal/storage"
)

// Limiter keys for the two provider endpoints this package calls.
var (
	KeyDailyKline = ratelimit.Key{Source: "eastmoney", Interface: "kline", DataType: "daily"}
	KeyStockList  = ratelimit.Key{Source: "eastmoney", Interface: "clist", DataType: "spot"}
)

// guard runs one provider call under a limiter. The sequence is fixed:
// wait out any failure pause, pace, call, classify, report. Rate-limit
// outcomes block until this caller wins a probe slot and then retry, the
// retry being the probe itself. Other errors retry up to retryTimes with
// jittered backoff.
func guard(
	ctx context.Context,
	lim *ratelimit.Limiter,
	retryTimes int,
	retryBackoff time.Duration,
	logger *slog.Logger,
	fn func(context.Context) error,
) error {
	otherRetries := 0
	for {
		if err := lim.Monitor().WaitIfPaused(ctx); err != nil {
			return err
		}
		if err := lim.Wait(ctx); err != nil {
			return err
		}

		err := fn(ctx)
		outcome := Classify(err)
		lim.Report(outcome)

		switch outcome {
		case ratelimit.OutcomeSuccess:
			return nil

		case ratelimit.OutcomeRateLimited:
			logger.Warn("rate limited, waiting for probe slot",
				"limiter_key", lim.Key().String(),
				"error", err,
			)
			if werr := lim.AwaitRecovery(ctx); werr != nil {
				return werr
			}

		case ratelimit.OutcomeOtherError:
			otherRetries++
			if otherRetries > retryTimes {
				return err
			}
			wait := backoffDelay(otherRetries, retryBackoff)
			logger.Debug("provider error, retrying",
				"attempt", otherRetries,
				"wait", wait,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
}

// DailyCollector fetches daily bars for single symbols into the write buffer.
type DailyCollector struct {
	client  *api.Client
	limiter *ratelimit.Limiter
	buffer  *storage.BarBuffer

	retryTimes   int
	retryBackoff time.Duration
	logger       *slog.Logger
}

// NewDailyCollector creates a collector. All callers share the kline
// limiter obtained from the registry, so pacing is global per endpoint.
func NewDailyCollector(
	client *api.Client,
	reg *ratelimit.Registry,
	buffer *storage.BarBuffer,
	cfg config.CollectorConfig,
	logger *slog.Logger,
) *DailyCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &DailyCollector{
		client:       client,
		limiter:      reg.Limiter(KeyDailyKline),
		buffer:       buffer,
		retryTimes:   cfg.RetryTimes,
		retryBackoff: cfg.RetryBackoff,
		logger:       logger,
	}
}

// Limiter exposes the kline limiter for pacing and stats.
func (c *DailyCollector) Limiter() *ratelimit.Limiter { return c.limiter }

// Collect fetches bars for one symbol in [startDate, endDate] ("YYYYMMDD")
// and sends them to the write buffer. Returns the number of bars buffered.
func (c *DailyCollector) Collect(ctx context.Context, symbol, startDate, endDate string) (int, error) {
	var count int
	err := guard(ctx, c.limiter, c.retryTimes, c.retryBackoff, c.logger, func(ctx context.Context) error {
		bars, err := c.client.GetDailyBars(ctx, symbol, startDate, endDate)
		if err != nil {
			return err
		}
		for _, bar := range bars {
			if !c.buffer.Send(bar) {
				return fmt.Errorf("write buffer closed")
			}
		}
		count = len(bars)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("collect %s: %w", symbol, err)
	}
	return count, nil
}
