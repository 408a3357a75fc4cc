package export

import (
	"cmp"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/go-analyze/charts"
	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// ErrNothingToChart is returned when no expense has a positive amount.
var ErrNothingToChart = errors.New("no expenses to chart")

// maxSlices keeps the legend readable; smaller groups are merged into "Other".
const maxSlices = 8

var periodSuffix = regexp.MustCompile(`\s*\(\d+/\d+\)$`)

// ExpenseSlice is one group of the expense chart.
type ExpenseSlice struct {
	Label string
	Total decimal.Decimal
}

// GroupExpenses totals expenses by description, counting every installment
// period of a purchase under the purchase's name. Groups are ordered by
// total, largest first.
func GroupExpenses(expenses []models.Expense) []ExpenseSlice {
	totals := make(map[string]decimal.Decimal)
	for i := range expenses {
		label := strings.TrimSpace(periodSuffix.ReplaceAllString(expenses[i].Description, ""))
		if label == "" {
			label = "Other"
		}
		totals[label] = totals[label].Add(expenses[i].Amount)
	}

	out := make([]ExpenseSlice, 0, len(totals))
	for label, total := range totals {
		if total.IsPositive() {
			out = append(out, ExpenseSlice{Label: label, Total: total})
		}
	}
	slices.SortFunc(out, func(a, b ExpenseSlice) int {
		if c := b.Total.Cmp(a.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})

	if len(out) > maxSlices {
		other := ExpenseSlice{Label: "Other"}
		for _, s := range out[maxSlices-1:] {
			other.Total = other.Total.Add(s.Total)
		}
		out = append(out[:maxSlices-1], other)
	}
	return out
}

// ExpenseChart renders a PNG pie chart of the period's expenses.
func ExpenseChart(expenses []models.Expense, title string) ([]byte, error) {
	groups := GroupExpenses(expenses)
	if len(groups) == 0 {
		return nil, ErrNothingToChart
	}

	values := make([]float64, len(groups))
	names := make([]string, len(groups))
	for i, g := range groups {
		values[i] = g.Total.InexactFloat64()
		names[i] = g.Label
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{
			Text: fmt.Sprintf("Expenses - %s", title),
		}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf, nil
}
