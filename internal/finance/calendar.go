// Package finance holds the pure derivation rules behind every number the
// driver sees: VAT extraction, the blended cost per kilometre, live shift
// economics, period reports, the twelve month forecast and installment
// origination. Nothing in this package performs I/O.
package finance

import "time"

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonthsClamped moves t by the given number of calendar months, keeping the
// day of month where possible and clamping to the last day otherwise.
// 31 January plus one month is 29 February in a leap year.
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// MonthStart returns the first instant of t's calendar month in t's location.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// monthIndex flattens a calendar month into a single comparable number.
func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}
