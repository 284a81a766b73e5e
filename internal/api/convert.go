package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/ashare-data/internal/model"
)

// kline record layout: date,open,close,high,low,volume,amount,amplitude,
// pct_change,change,turnover
const klineFieldCount = 11

// parseKline converts one comma-separated kline record into a DailyBar.
func parseKline(symbol, line string) (model.DailyBar, error) {
	fields := strings.Split(line, ",")
	if len(fields) < klineFieldCount {
		return model.DailyBar{}, fmt.Errorf("kline has %d fields, want %d: %q", len(fields), klineFieldCount, line)
	}

	tradeDate, err := time.Parse("2006-01-02", fields[0])
	if err != nil {
		return model.DailyBar{}, fmt.Errorf("parse trade date: %w", err)
	}

	open := model.PriceToInternal(fields[1])
	closePrice := model.PriceToInternal(fields[2])
	change := model.PriceToInternal(fields[9])

	bar := model.DailyBar{
		Symbol:    symbol,
		TradeDate: model.DateOnly(tradeDate),
		Open:      open,
		Close:     closePrice,
		High:      model.PriceToInternal(fields[3]),
		Low:       model.PriceToInternal(fields[4]),
		Change:    change,
		PreClose:  closePrice - change,
		PctChange: model.PercentToBps(fields[8]),
		Turnover:  model.PercentToBps(fields[10]),
		Volume:    parseInt64(fields[5]),
		Amount:    parseAmount(fields[6]),
	}
	return bar, nil
}

// parseInt64 parses an integer field, tolerating empty values.
func parseInt64(s string) int64 {
	if s == "" || s == "-" {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseAmount parses the traded-value field, which the host reports as a
// decimal ("1318000000.00"), into whole yuan.
func parseAmount(s string) int64 {
	if s == "" || s == "-" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f + 0.5)
}
