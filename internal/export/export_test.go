package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func sampleShifts() []models.ShiftSummary {
	end := time.Date(2024, time.March, 5, 16, 45, 0, 0, time.UTC)
	return []models.ShiftSummary{
		{
			Shift: models.Shift{
				ID:            1,
				StartTime:     time.Date(2024, time.March, 5, 8, 30, 0, 0, time.UTC),
				EndTime:       &end,
				StartOdometer: dec("1000"),
				EndOdometer:   decPtr("1123.4"),
			},
			TotalRevenue:  dec("210.5"),
			TotalReceipts: dec("113"),
			JobCount:      9,
		},
		{
			Shift: models.Shift{
				ID:            2,
				StartTime:     time.Date(2024, time.March, 6, 7, 0, 0, 0, time.UTC),
				StartOdometer: dec("1123.4"),
				Active:        true,
			},
			TotalRevenue:  dec("15"),
			TotalReceipts: dec("0"),
		},
	}
}

func sampleExpenses() []models.Expense {
	return []models.Expense{
		{
			ID:            1,
			Timestamp:     time.Date(2024, time.March, 2, 10, 0, 0, 0, time.UTC),
			Description:   "Fuel, diesel",
			Amount:        dec("62"),
			VATAmount:     dec("12"),
			PaymentMethod: models.PaymentMethodCash,
		},
		{
			ID:            2,
			Timestamp:     time.Date(2024, time.March, 3, 10, 0, 0, 0, time.UTC),
			Description:   "Car wash",
			Amount:        dec("8.5"),
			PaymentMethod: models.PaymentMethodCash,
		},
	}
}

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	require.True(t, bytes.HasPrefix(data, []byte(utf8BOM)), "missing BOM")
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte(utf8BOM)))).ReadAll()
	require.NoError(t, err)
	return records
}

func TestShiftsCSV(t *testing.T) {
	t.Parallel()

	data, err := ShiftsCSV(sampleShifts(), time.UTC)
	require.NoError(t, err)
	records := readCSV(t, data)

	require.Len(t, records, 3)
	require.Equal(t, shiftHeader, records[0])
	require.Equal(t, []string{"05/03/2024", "08:30", "16:45", "123.4", "210.50", "113.00", "13.00", ""}, records[1])
	require.Equal(t, []string{"06/03/2024", "07:00", "-", "0", "15.00", "0.00", "0.00", ""}, records[2])
}

func TestShiftsCSV_Location(t *testing.T) {
	t.Parallel()

	athens := time.FixedZone("EET", 2*60*60)
	data, err := ShiftsCSV(sampleShifts()[:1], athens)
	require.NoError(t, err)
	records := readCSV(t, data)
	require.Equal(t, "10:30", records[1][1])
	require.Equal(t, "18:45", records[1][2])
}

func TestExpensesCSV(t *testing.T) {
	t.Parallel()

	t.Run("rows", func(t *testing.T) {
		data, err := ExpensesCSV(sampleExpenses(), time.UTC)
		require.NoError(t, err)
		records := readCSV(t, data)

		require.Len(t, records, 3)
		require.Equal(t, expenseHeader, records[0])
		require.Equal(t, []string{"02/03/2024", "Fuel, diesel", "62.00", "12.00", "12.00", "Yes"}, records[1])
		require.Equal(t, []string{"03/03/2024", "Car wash", "8.50", "0.00", "0.00", "No"}, records[2])
	})

	t.Run("empty", func(t *testing.T) {
		data, err := ExpensesCSV(nil, time.UTC)
		require.NoError(t, err)
		records := readCSV(t, data)
		require.Len(t, records, 1)
	})

	t.Run("quotes commas", func(t *testing.T) {
		data, err := ExpensesCSV(sampleExpenses()[:1], time.UTC)
		require.NoError(t, err)
		require.True(t, strings.Contains(string(data), `"Fuel, diesel"`))
	})
}

func TestFilename(t *testing.T) {
	t.Parallel()

	anchor := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "shifts_2024-03.csv", Filename("shifts", finance.ResolvePeriod(finance.PeriodMonthly, anchor), "csv"))
	require.Equal(t, "report_2024.xlsx", Filename("report", finance.ResolvePeriod(finance.PeriodYearly, anchor), "xlsx"))
}

func TestReportWorkbook(t *testing.T) {
	t.Parallel()

	data, err := ReportWorkbook(sampleShifts(), sampleExpenses(), time.UTC)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, []string{shiftsSheet, expensesSheet}, f.GetSheetList())

	shifts, err := f.GetRows(shiftsSheet)
	require.NoError(t, err)
	require.Len(t, shifts, 3)
	require.Equal(t, "Distance (km)", shifts[0][3])
	require.Equal(t, "123.4", shifts[1][3])

	expenses, err := f.GetRows(expensesSheet)
	require.NoError(t, err)
	require.Len(t, expenses, 3)
	require.Equal(t, "Fuel, diesel", expenses[1][1])
	require.Equal(t, "No", expenses[2][5])
}

func TestGroupExpenses(t *testing.T) {
	t.Parallel()

	t.Run("installment periods merge under the purchase", func(t *testing.T) {
		groups := GroupExpenses([]models.Expense{
			{Description: "Tyres (1/12)", Amount: dec("100")},
			{Description: "Tyres (2/12)", Amount: dec("100")},
			{Description: "Fuel", Amount: dec("60")},
		})
		require.Len(t, groups, 2)
		require.Equal(t, "Tyres", groups[0].Label)
		require.True(t, groups[0].Total.Equal(dec("200")))
		require.Equal(t, "Fuel", groups[1].Label)
	})

	t.Run("small groups fold into other", func(t *testing.T) {
		var exps []models.Expense
		for i, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
			exps = append(exps, models.Expense{Description: name, Amount: decimal.NewFromInt(int64(100 - i))})
		}
		groups := GroupExpenses(exps)
		require.Len(t, groups, maxSlices)
		last := groups[len(groups)-1]
		require.Equal(t, "Other", last.Label)
		// h, i and j: 93 + 92 + 91.
		require.True(t, last.Total.Equal(dec("276")), last.Total.String())
	})

	t.Run("empty", func(t *testing.T) {
		require.Empty(t, GroupExpenses(nil))
	})
}

func TestExpenseChart(t *testing.T) {
	t.Parallel()

	t.Run("renders png", func(t *testing.T) {
		png, err := ExpenseChart(sampleExpenses(), "March 2024")
		require.NoError(t, err)
		require.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
	})

	t.Run("nothing to chart", func(t *testing.T) {
		_, err := ExpenseChart(nil, "March 2024")
		require.ErrorIs(t, err, ErrNothingToChart)
	})
}
