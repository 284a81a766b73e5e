package model

import (
	"fmt"
	"strings"
)

// ParseSymbol splits a full symbol ("000001.SZ") into code and exchange.
// A bare six-digit code is accepted and the exchange inferred from its
// leading digit (6/9 = Shanghai, everything else Shenzhen), matching the
// convention the quote hosts use.
func ParseSymbol(symbol string) (code, exchange string, err error) {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))
	if symbol == "" {
		return "", "", fmt.Errorf("empty symbol")
	}

	if i := strings.IndexByte(symbol, '.'); i >= 0 {
		code, exchange = symbol[:i], symbol[i+1:]
		if exchange != ExchangeShenzhen && exchange != ExchangeShanghai {
			return "", "", fmt.Errorf("unknown exchange suffix %q in %q", exchange, symbol)
		}
	} else {
		code = symbol
		exchange = inferExchange(code)
	}

	if len(code) != 6 {
		return "", "", fmt.Errorf("invalid stock code %q: want 6 digits", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", "", fmt.Errorf("invalid stock code %q: want 6 digits", code)
		}
	}
	return code, exchange, nil
}

// FormatSymbol joins a code and exchange into the canonical "code.EX" form.
func FormatSymbol(code, exchange string) string {
	return code + "." + exchange
}

func inferExchange(code string) string {
	if strings.HasPrefix(code, "6") || strings.HasPrefix(code, "9") {
		return ExchangeShanghai
	}
	return ExchangeShenzhen
}
