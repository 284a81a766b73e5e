package model

import (
	"math"
	"strconv"
)

// PriceToInternal converts a decimal price string ("10.52") to hundredths
// of a yuan (1052). Returns 0 for empty or invalid input.
func PriceToInternal(s string) int {
	if s == "" || s == "-" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	// Round to avoid floating point error (10.52 * 100 = 1051.999...).
	return int(math.Round(f * 100))
}

// InternalToPrice converts hundredths of a yuan back to a float for
// presentation (query API responses).
func InternalToPrice(v int) float64 {
	return float64(v) / 100
}

// PercentToBps converts a percentage string ("1.42") to basis points (142).
// Returns 0 for empty or invalid input.
func PercentToBps(s string) int {
	if s == "" || s == "-" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(math.Round(f * 100))
}

// BpsToPercent converts basis points back to a percentage float.
func BpsToPercent(v int) float64 {
	return float64(v) / 100
}
