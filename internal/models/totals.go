package models

import "time"

// DateFormat is the ISO-8601 calendar date layout used everywhere a date
// crosses a boundary: provider query params, ledger keys, log fields.
const DateFormat = "2006-01-02"

// DailyTotals is one ledger record: every participant's win total for one
// calendar date. At most one DailyTotals exists per date in a ledger.
type DailyTotals struct {
	Date   time.Time      `json:"date"`
	Totals map[string]int `json:"totals"`
}

// Day truncates t to a calendar date in UTC. Ledger keys and provider
// queries only ever see whole days.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDay renders t as an ISO-8601 calendar date.
func FormatDay(t time.Time) string {
	return t.Format(DateFormat)
}

// ParseDay parses an ISO-8601 calendar date into a UTC midnight time.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateFormat, s, time.UTC)
}
