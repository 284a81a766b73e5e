// Package model defines shared data types used across the A-Share Data Hub.
//
// Conventions:
//   - Prices: integer hundredths of a yuan (1052 = ¥10.52)
//   - Percentages: integer basis points (142 = 1.42%)
//   - Trade dates: time.Time truncated to midnight UTC
//   - Symbols: code plus exchange suffix ("000001.SZ", "600000.SH")
package model
