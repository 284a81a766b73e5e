package tradingday

import "time"

// holidays lists exchange closures beyond weekends, keyed by date in the
// exchange's local calendar.
//
// TODO: add the 2027 calendar once the exchange publishes it.
var holidays = map[string]bool{
	// 2025
	"2025-01-01": true, // New Year's Day
	"2025-01-28": true, // Spring Festival
	"2025-01-29": true,
	"2025-01-30": true,
	"2025-01-31": true,
	"2025-02-03": true,
	"2025-02-04": true,
	"2025-04-04": true, // Qingming
	"2025-05-01": true, // Labor Day
	"2025-05-02": true,
	"2025-05-05": true,
	"2025-06-02": true, // Dragon Boat
	"2025-10-01": true, // National Day / Mid-Autumn
	"2025-10-02": true,
	"2025-10-03": true,
	"2025-10-06": true,
	"2025-10-07": true,
	"2025-10-08": true,
	// 2026
	"2026-01-01": true, // New Year's Day
	"2026-01-02": true,
	"2026-02-16": true, // Spring Festival
	"2026-02-17": true,
	"2026-02-18": true,
	"2026-02-19": true,
	"2026-02-20": true,
	"2026-02-23": true,
	"2026-04-06": true, // Qingming (observed)
	"2026-05-01": true, // Labor Day
	"2026-05-04": true,
	"2026-05-05": true,
	"2026-06-19": true, // Dragon Boat
	"2026-09-25": true, // Mid-Autumn
	"2026-10-01": true, // National Day
	"2026-10-02": true,
	"2026-10-05": true,
	"2026-10-06": true,
	"2026-10-07": true,
}

// IsTradingDay reports whether the exchange is open on the calendar date of t.
func IsTradingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !holidays[t.Format("2006-01-02")]
}

// PreviousTradingDay returns the most recent trading day strictly before t.
func PreviousTradingDay(t time.Time) time.Time {
	d := t.AddDate(0, 0, -1)
	for !IsTradingDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// NextTradingDay returns the first trading day strictly after t.
func NextTradingDay(t time.Time) time.Time {
	d := t.AddDate(0, 0, 1)
	for !IsTradingDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
