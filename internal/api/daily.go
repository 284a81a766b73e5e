package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rickgao/ashare-data/internal/model"
)

// Kline period and adjustment parameters understood by the quote host.
const (
	klinePeriodDaily = "101"
	klineNoAdjust    = "0"

	// Field selectors; the host returns nothing useful without them.
	klineFields1 = "f1,f2,f3,f4,f5,f6"
	klineFields2 = "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61"
)

// GetDailyBars fetches unadjusted daily bars for one symbol. Dates are
// "YYYYMMDD"; empty start and end default to the full listing history.
func (c *Client) GetDailyBars(ctx context.Context, symbol, startDate, endDate string) ([]model.DailyBar, error) {
	code, exchange, err := model.ParseSymbol(symbol)
	if err != nil {
		return nil, err
	}

	if startDate == "" {
		startDate = "19900101"
	}
	if endDate == "" {
		endDate = "20500101"
	}

	query := url.Values{}
	query.Set("secid", secID(code, exchange))
	query.Set("klt", klinePeriodDaily)
	query.Set("fqt", klineNoAdjust)
	query.Set("beg", startDate)
	query.Set("end", endDate)
	query.Set("fields1", klineFields1)
	query.Set("fields2", klineFields2)

	var resp klineResponse
	if err := c.get(ctx, "/api/qt/stock/kline/get", query, &resp); err != nil {
		return nil, fmt.Errorf("get daily bars %s: %w", symbol, err)
	}

	if resp.Data == nil || len(resp.Data.Klines) == 0 {
		// Suspended or delisted stocks legitimately return nothing.
		c.logger.Debug("no kline data", "symbol", symbol, "start", startDate, "end", endDate)
		return nil, nil
	}

	fullSymbol := model.FormatSymbol(code, exchange)
	bars := make([]model.DailyBar, 0, len(resp.Data.Klines))
	for _, line := range resp.Data.Klines {
		bar, err := parseKline(fullSymbol, line)
		if err != nil {
			return nil, fmt.Errorf("parse kline for %s: %w", symbol, err)
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

// secID builds the host's market-prefixed security ID ("0.000001" for
// Shenzhen, "1.600000" for Shanghai).
func secID(code, exchange string) string {
	prefix := "0"
	if exchange == model.ExchangeShanghai {
		prefix = "1"
	}
	return prefix + "." + code
}
