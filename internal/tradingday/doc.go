// Package tradingday answers whether mainland Chinese exchanges are open
// on a given date.
//
// Weekends are always closed. Public holidays come from a static table
// that must be extended each year when the exchange calendar is published.
// Make-up trading on adjacent weekends does not exist for A-shares, so
// weekend days are never trading days.
package tradingday
