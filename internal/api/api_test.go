package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gitlab.com/yelinaung/taxi-ledger/internal/engine"
	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/ledger"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

var testNow = time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newTestServer(t *testing.T) (http.Handler, *engine.Engine) {
	t.Helper()
	eng := engine.New(ledger.NewMemory(), engine.Options{Now: func() time.Time { return testNow }})
	return NewRouter(NewHandler(eng)), eng
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// seed records one shift with a receipted job in March 2024 and one expense.
func seed(t *testing.T, eng *engine.Engine) {
	t.Helper()
	ctx := context.Background()
	_, err := eng.StartShift(ctx, dec("1000"))
	require.NoError(t, err)
	_, err = eng.AddJob(ctx, engine.JobInput{Revenue: dec("113"), ReceiptAmount: decPtr("113")})
	require.NoError(t, err)
	_, err = eng.AddExpense(ctx, finance.ExpenseInput{
		Description:   "Fuel",
		Amount:        dec("62"),
		VATAmount:     dec("12"),
		PaymentMethod: models.PaymentMethodCash,
		Installments:  1,
	})
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	h, _ := newTestServer(t)

	rec := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestGetDashboard(t *testing.T) {
	t.Parallel()

	t.Run("no shift", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestServer(t)

		rec := get(t, h, "/api/dashboard")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		dash := decode[DashboardDTO](t, rec)
		require.Nil(t, dash.Shift)
		require.Equal(t, models.DefaultCurrencySymbol, dash.CurrencySymbol)
	})

	t.Run("active shift", func(t *testing.T) {
		t.Parallel()
		h, eng := newTestServer(t)
		seed(t, eng)

		dash := decode[DashboardDTO](t, get(t, h, "/api/dashboard"))
		require.NotNil(t, dash.Shift)
		require.True(t, dash.Shift.Active)
		require.Equal(t, 1, dash.JobCount)
		require.True(t, dash.Revenue.Equal(dec("113")), dash.Revenue.String())
		require.True(t, dash.ReceiptsVAT.Equal(dec("13")), dash.ReceiptsVAT.String())
	})
}

func TestGetReport(t *testing.T) {
	t.Parallel()
	h, eng := newTestServer(t)
	seed(t, eng)

	rec := get(t, h, "/api/reports?period=monthly&date=2024-03-10")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[ReportDTO](t, rec)
	require.Equal(t, string(finance.PeriodMonthly), report.Period)
	require.Equal(t, 1, report.ShiftCount)
	require.Equal(t, 1, report.ExpenseCount)
	require.True(t, report.TotalIncome.Equal(dec("113")))
	require.True(t, report.NetIncome.Equal(dec("51")))
	require.True(t, report.VATCollected.Equal(dec("13")))
	require.True(t, report.VATPayable.Equal(dec("1")))

	// The date defaults to today.
	report = decode[ReportDTO](t, get(t, h, "/api/reports?period=year"))
	require.Equal(t, string(finance.PeriodYearly), report.Period)
	require.Equal(t, 2024, report.Start.Year())
	require.Equal(t, 1, report.ShiftCount)

	report = decode[ReportDTO](t, get(t, h, "/api/reports?date=2024-02-10"))
	require.Zero(t, report.ShiftCount)
	require.True(t, report.TotalIncome.IsZero())
}

func TestGetOverview(t *testing.T) {
	t.Parallel()
	h, eng := newTestServer(t)
	seed(t, eng)

	rec := get(t, h, "/api/overview?period=monthly&date=2024-03-10")
	require.Equal(t, http.StatusOK, rec.Code)
	ov := decode[OverviewDTO](t, rec)
	require.NotNil(t, ov.Dashboard.Shift)
	require.Equal(t, 1, ov.Dashboard.JobCount)
	require.Equal(t, "March 2024", ov.Report.Label)
	require.Equal(t, 1, ov.Report.ShiftCount)
	require.True(t, ov.Report.NetIncome.Equal(dec("51")))
	require.Len(t, ov.Forecast, finance.ForecastMonths)

	ov = decode[OverviewDTO](t, get(t, h, "/api/overview?date=2024-03-31&offset=-1"))
	require.Equal(t, "February 2024", ov.Report.Label)
	require.Zero(t, ov.Report.ShiftCount)

	ov = decode[OverviewDTO](t, get(t, h, "/api/overview?period=yearly&offset=-1"))
	require.Equal(t, "2023", ov.Report.Label)
}

func TestGetReport_BadQuery(t *testing.T) {
	t.Parallel()
	h, _ := newTestServer(t)

	tests := []struct {
		name   string
		target string
	}{
		{"unknown period", "/api/reports?period=weekly"},
		{"bad date", "/api/reports?date=31/03/2024"},
		{"bad export date", "/api/export/shifts.csv?date=yesterday"},
		{"bad offset", "/api/overview?offset=soon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := get(t, h, tt.target)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			require.Equal(t, "invalid period", resp.Error)
			require.NotEmpty(t, resp.Details)
		})
	}
}

func TestGetForecast(t *testing.T) {
	t.Parallel()
	h, eng := newTestServer(t)
	_, err := eng.AddRecurringExpense(context.Background(), models.RecurringExpense{
		Description: "Insurance",
		Amount:      dec("50"),
		Frequency:   models.FrequencyMonthly,
		Day:         1,
	})
	require.NoError(t, err)

	months := decode[[]MonthForecastDTO](t, get(t, h, "/api/forecast"))
	require.Len(t, months, finance.ForecastMonths)
	require.Equal(t, "March 2024", months[0].Label)
	require.Equal(t, "2024-03", months[0].Month)
	for _, m := range months {
		require.True(t, m.Total.Equal(dec("50")), "%s: %s", m.Label, m.Total)
	}
}

func TestGetReceivables(t *testing.T) {
	t.Parallel()
	h, eng := newTestServer(t)
	ctx := context.Background()
	_, err := eng.StartShift(ctx, dec("0"))
	require.NoError(t, err)
	unpaid := false
	_, err = eng.AddJob(ctx, engine.JobInput{Revenue: dec("40"), PaymentType: models.PaymentTypeContract, Paid: &unpaid, Notes: "hotel"})
	require.NoError(t, err)
	_, err = eng.AddJob(ctx, engine.JobInput{Revenue: dec("10")})
	require.NoError(t, err)

	recv := decode[ReceivablesDTO](t, get(t, h, "/api/receivables"))
	require.Len(t, recv.Jobs, 1)
	require.Equal(t, "contract", recv.Jobs[0].PaymentType)
	require.Equal(t, "hotel", recv.Jobs[0].Notes)
	require.False(t, recv.Jobs[0].Paid)
	require.True(t, recv.Total.Equal(dec("40")))
}

func TestExports(t *testing.T) {
	t.Parallel()
	h, eng := newTestServer(t)
	seed(t, eng)

	t.Run("shifts csv", func(t *testing.T) {
		t.Parallel()
		rec := get(t, h, "/api/export/shifts.csv?date=2024-03-01")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
		require.Contains(t, rec.Header().Get("Content-Disposition"), "shifts_2024-03.csv")
		require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\uFEFF")))
		require.Contains(t, rec.Body.String(), "31/03/2024")
	})

	t.Run("expenses csv", func(t *testing.T) {
		t.Parallel()
		rec := get(t, h, "/api/export/expenses.csv?period=yearly")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Header().Get("Content-Disposition"), "expenses_2024.csv")
		require.Contains(t, rec.Body.String(), "Fuel")
	})

	t.Run("workbook", func(t *testing.T) {
		t.Parallel()
		rec := get(t, h, "/api/export/report.xlsx")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Header().Get("Content-Disposition"), "report_2024-03.xlsx")

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		rows, err := f.GetRows("Expenses")
		require.NoError(t, err)
		require.Len(t, rows, 2)
	})
}

func TestGetExpenseChart(t *testing.T) {
	t.Parallel()

	t.Run("empty period", func(t *testing.T) {
		t.Parallel()
		h, _ := newTestServer(t)
		rec := get(t, h, "/api/chart.png")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("png", func(t *testing.T) {
		t.Parallel()
		h, eng := newTestServer(t)
		seed(t, eng)
		rec := get(t, h, "/api/chart.png")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		require.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
	})
}

func TestNewServer(t *testing.T) {
	t.Parallel()
	_, eng := newTestServer(t)
	srv := NewServer(":0", NewHandler(eng))
	require.Equal(t, ":0", srv.Addr)
	require.NotNil(t, srv.Handler)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
