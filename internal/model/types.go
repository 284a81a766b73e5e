package model

import "time"

// Exchange identifiers used in symbol suffixes.
const (
	ExchangeShenzhen = "SZ"
	ExchangeShanghai = "SH"
)

// Stock is one listed A-share security.
type Stock struct {
	Symbol   string // full symbol with suffix, e.g. "000001.SZ"
	Code     string // bare exchange code, e.g. "000001"
	Exchange string // "SZ" or "SH"
	Name     string // display name, e.g. "平安银行"
}

// DailyBar is one day of OHLCV data for a single stock.
type DailyBar struct {
	Symbol    string
	TradeDate time.Time // midnight UTC

	// Prices in hundredths of a yuan.
	Open     int
	High     int
	Low      int
	Close    int
	PreClose int // 0 when the provider omits it
	Change   int // Close - PreClose, signed

	PctChange int // basis points, signed
	Turnover  int // turnover rate in basis points

	Volume int64 // traded lots (hands)
	Amount int64 // traded value in yuan
}

// DateOnly truncates t to midnight UTC, the canonical trade-date form.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
