package finance

import (
	"fmt"
	"strings"
	"time"
)

// PeriodKind is the granularity of a report.
type PeriodKind string

// Report granularities.
const (
	PeriodMonthly PeriodKind = "MONTHLY"
	PeriodYearly  PeriodKind = "YEARLY"
)

// ParsePeriodKind accepts "month", "monthly", "year" or "yearly" in any case.
func ParsePeriodKind(s string) (PeriodKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "month", "monthly":
		return PeriodMonthly, nil
	case "year", "yearly":
		return PeriodYearly, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Period is an inclusive time range.
type Period struct {
	Kind  PeriodKind
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within [Start, End].
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Label is a human readable name such as "March 2024" or "2024".
func (p Period) Label() string {
	if p.Kind == PeriodYearly {
		return p.Start.Format("2006")
	}
	return p.Start.Format(ForecastLabelLayout)
}

// ResolvePeriod returns the calendar month or year containing anchor, in
// anchor's location. End is one millisecond before the next period starts.
func ResolvePeriod(kind PeriodKind, anchor time.Time) Period {
	loc := anchor.Location()
	var start, next time.Time
	switch kind {
	case PeriodYearly:
		start = time.Date(anchor.Year(), time.January, 1, 0, 0, 0, 0, loc)
		next = start.AddDate(1, 0, 0)
	default:
		kind = PeriodMonthly
		start = time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, loc)
		next = start.AddDate(0, 1, 0)
	}
	return Period{
		Kind:  kind,
		Start: start,
		End:   next.Add(-time.Millisecond),
	}
}

// NavigateAnchor moves anchor by delta months or years, clamping the day of
// month to the last valid day of the target month.
func NavigateAnchor(kind PeriodKind, anchor time.Time, delta int) time.Time {
	if kind == PeriodYearly {
		return AddMonthsClamped(anchor, 12*delta)
	}
	return AddMonthsClamped(anchor, delta)
}
