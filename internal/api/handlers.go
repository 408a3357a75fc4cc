package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gitlab.com/yelinaung/taxi-ledger/internal/engine"
	"gitlab.com/yelinaung/taxi-ledger/internal/export"
	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/logger"
)

const dateLayout = "2006-01-02"

// Handler serves the read-only ledger endpoints.
type Handler struct {
	engine *engine.Engine
}

// NewHandler creates a handler over eng.
func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{engine: eng}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetDashboard returns the live shift dashboard.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.engine.Dashboard(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(dash))
}

// GetReport returns the report for ?period=monthly|yearly&date=YYYY-MM-DD.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	period, err := h.parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period", err)
		return
	}
	report, err := h.engine.Report(r.Context(), period.Kind, period.Start)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// GetOverview returns the dashboard, the selected period's report and the
// forecast in one response.
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	period, err := h.parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period", err)
		return
	}
	ov, err := h.engine.Overview(r.Context(), period.Kind, period.Start)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOverviewDTO(ov))
}

// GetForecast returns the twelve-month projection.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	months, err := h.engine.Forecast(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toForecastDTOs(months))
}

// GetReceivables lists unpaid jobs.
func (h *Handler) GetReceivables(w http.ResponseWriter, r *http.Request) {
	recv, err := h.engine.Receivables(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceivablesDTO(recv))
}

// ExportShiftsCSV streams the shifts of a period as CSV.
func (h *Handler) ExportShiftsCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "shifts", "csv", "text/csv; charset=utf-8", func(p finance.Period) ([]byte, error) {
		shifts, _, err := h.engine.ReportData(r.Context(), p.Start, p.End)
		if err != nil {
			return nil, err
		}
		return export.ShiftsCSV(shifts, h.engine.Location())
	})
}

// ExportExpensesCSV streams the expenses of a period as CSV.
func (h *Handler) ExportExpensesCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "expenses", "csv", "text/csv; charset=utf-8", func(p finance.Period) ([]byte, error) {
		_, expenses, err := h.engine.ReportData(r.Context(), p.Start, p.End)
		if err != nil {
			return nil, err
		}
		return export.ExpensesCSV(expenses, h.engine.Location())
	})
}

// ExportWorkbook streams both sheets of a period as XLSX.
func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "report", "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", func(p finance.Period) ([]byte, error) {
		shifts, expenses, err := h.engine.ReportData(r.Context(), p.Start, p.End)
		if err != nil {
			return nil, err
		}
		return export.ReportWorkbook(shifts, expenses, h.engine.Location())
	})
}

// GetExpenseChart renders the period's expenses as a PNG pie chart.
func (h *Handler) GetExpenseChart(w http.ResponseWriter, r *http.Request) {
	period, err := h.parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period", err)
		return
	}
	_, expenses, err := h.engine.ReportData(r.Context(), period.Start, period.End)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	png, err := export.ExpenseChart(expenses, period.Label())
	if errors.Is(err, export.ErrNothingToChart) {
		writeError(w, http.StatusNotFound, "no expenses in period", nil)
		return
	}
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, prefix, ext, contentType string, render func(finance.Period) ([]byte, error)) {
	period, err := h.parsePeriod(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid period", err)
		return
	}
	data, err := render(period)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(prefix, period, ext)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// parsePeriod reads ?period=, ?date= and ?offset=. The date defaults to today
// in the engine's location; offset moves it by whole periods.
func (h *Handler) parsePeriod(r *http.Request) (finance.Period, error) {
	q := r.URL.Query()
	kind, err := finance.ParsePeriodKind(q.Get("period"))
	if err != nil {
		return finance.Period{}, err
	}
	anchor := h.engine.Now()
	if s := strings.TrimSpace(q.Get("date")); s != "" {
		anchor, err = time.ParseInLocation(dateLayout, s, h.engine.Location())
		if err != nil {
			return finance.Period{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
		}
	}
	if s := strings.TrimSpace(q.Get("offset")); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil {
			return finance.Period{}, fmt.Errorf("offset must be an integer: %w", err)
		}
		anchor = finance.NavigateAnchor(kind, anchor, offset)
	}
	return finance.ResolvePeriod(kind, anchor), nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine errors to HTTP statuses. Storage failures are
// logged and reported without details.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found", err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, "invalid request", err)
	default:
		logger.Log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}
