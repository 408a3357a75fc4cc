package finance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// ForecastMonths is the length of the rolling forecast window.
const ForecastMonths = 12

// ForecastLabelLayout formats month labels such as "March 2024".
const ForecastLabelLayout = "January 2006"

// YearlyMatch selects how yearly and quarterly recurring items are placed on
// the month-stepped forecast.
type YearlyMatch string

const (
	// YearlyMatchDayOfYear counts a yearly item in a month only when the
	// month's reference date falls exactly on the item's day-of-year anchor.
	// Quarterly items never count in this mode.
	YearlyMatchDayOfYear YearlyMatch = "day_of_year"
	// YearlyMatchAnchorMonth counts a yearly item once in the calendar month
	// containing its anchor day, and a quarterly item every third month
	// from there.
	YearlyMatchAnchorMonth YearlyMatch = "anchor_month"
)

// ParseYearlyMatch parses a YearlyMatch name. An empty string selects the default.
func ParseYearlyMatch(s string) (YearlyMatch, error) {
	switch YearlyMatch(s) {
	case "", YearlyMatchDayOfYear:
		return YearlyMatchDayOfYear, nil
	case YearlyMatchAnchorMonth:
		return YearlyMatchAnchorMonth, nil
	default:
		return "", fmt.Errorf("unknown yearly match mode %q", s)
	}
}

// ForecastOptions tune the projection.
type ForecastOptions struct {
	YearlyMatch YearlyMatch
}

// MonthForecast is the projected cash obligation for one month.
type MonthForecast struct {
	Label        string
	Month        time.Time
	Recurring    decimal.Decimal
	Installments decimal.Decimal
	Total        decimal.Decimal
}

// Forecast projects recurring and installment obligations over the next
// ForecastMonths months, starting with the month containing now.
//
// Month i uses now moved forward i months (day clamped) as its reference date.
// Installments are placed by their original schedule, not by the remaining
// counter, so payments already charged do not shift the projection.
func Forecast(
	now time.Time,
	recurring []models.RecurringExpense,
	installments []models.Installment,
	opts ForecastOptions,
) []MonthForecast {
	out := make([]MonthForecast, 0, ForecastMonths)

	for i := range ForecastMonths {
		ref := AddMonthsClamped(now, i)

		recurringTotal := decimal.Zero
		for j := range recurring {
			if recurringDue(recurring[j], ref, opts.YearlyMatch) {
				recurringTotal = recurringTotal.Add(recurring[j].Amount)
			}
		}

		installmentTotal := decimal.Zero
		for j := range installments {
			if k := installmentPeriod(installments[j], ref); k > 0 {
				installmentTotal = installmentTotal.Add(installments[j].PeriodAmount(k))
			}
		}

		out = append(out, MonthForecast{
			Label:        ref.Format(ForecastLabelLayout),
			Month:        MonthStart(ref),
			Recurring:    recurringTotal,
			Installments: installmentTotal,
			Total:        recurringTotal.Add(installmentTotal),
		})
	}

	return out
}

func recurringDue(r models.RecurringExpense, ref time.Time, match YearlyMatch) bool {
	switch r.Frequency {
	case models.FrequencyMonthly:
		return true
	case models.FrequencyYearly:
		if match == YearlyMatchAnchorMonth {
			return anchorMonth(r.Day, ref.Year()) == ref.Month()
		}
		return ref.YearDay() == r.Day
	case models.FrequencyQuarterly:
		if match == YearlyMatchAnchorMonth {
			diff := int(ref.Month()) - int(anchorMonth(r.Day, ref.Year()))
			return ((diff%3)+3)%3 == 0
		}
		return false
	default:
		return false
	}
}

// anchorMonth returns the calendar month containing the given day of year,
// clamped into the year.
func anchorMonth(dayOfYear, year int) time.Month {
	last := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
	dayOfYear = max(1, min(dayOfYear, last))
	return time.Date(year, time.January, dayOfYear, 0, 0, 0, 0, time.UTC).Month()
}

// installmentPeriod returns the plan period falling in ref's month, counted
// from 1, or 0 when the month is outside the plan.
func installmentPeriod(inst models.Installment, ref time.Time) int {
	diff := monthIndex(ref) - monthIndex(inst.StartDate)
	if diff < 0 || diff >= inst.TotalInstallments {
		return 0
	}
	return diff + 1
}
