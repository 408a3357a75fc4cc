package api

import (
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/taxi-ledger/internal/engine"
	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// Money and distances are encoded as JSON strings to keep decimal precision.

// ShiftDTO is an open or closed shift.
type ShiftDTO struct {
	ID            int64            `json:"id"`
	StartTime     time.Time        `json:"start_time"`
	EndTime       *time.Time       `json:"end_time,omitempty"`
	StartOdometer decimal.Decimal  `json:"start_odometer"`
	EndOdometer   *decimal.Decimal `json:"end_odometer,omitempty"`
	VehicleCost   *decimal.Decimal `json:"vehicle_cost,omitempty"`
	Active        bool             `json:"active"`
}

// DashboardDTO is the live shift view.
type DashboardDTO struct {
	Shift              *ShiftDTO       `json:"shift"`
	JobCount           int             `json:"job_count"`
	Revenue            decimal.Decimal `json:"revenue"`
	Receipts           decimal.Decimal `json:"receipts"`
	ReceiptsVAT        decimal.Decimal `json:"receipts_vat"`
	Distance           decimal.Decimal `json:"distance"`
	CostPerDistance    decimal.Decimal `json:"cost_per_distance"`
	VehicleCost        decimal.Decimal `json:"vehicle_cost"`
	TotalDeductibleVAT decimal.Decimal `json:"total_deductible_vat"`
	PayableVAT         decimal.Decimal `json:"payable_vat"`
	InstallmentDebt    decimal.Decimal `json:"installment_debt"`
	Receivables        decimal.Decimal `json:"receivables"`
	CurrencySymbol     string          `json:"currency_symbol"`
}

// ReportDTO is the aggregate over one period.
type ReportDTO struct {
	Period        string          `json:"period"`
	Label         string          `json:"label"`
	Start         time.Time       `json:"start"`
	End           time.Time       `json:"end"`
	ShiftCount    int             `json:"shift_count"`
	ExpenseCount  int             `json:"expense_count"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetIncome     decimal.Decimal `json:"net_income"`
	Receipts      decimal.Decimal `json:"receipts"`
	VATCollected  decimal.Decimal `json:"vat_collected"`
	VATDeductible decimal.Decimal `json:"vat_deductible"`
	VATPayable    decimal.Decimal `json:"vat_payable"`
}

// MonthForecastDTO is one projected month.
type MonthForecastDTO struct {
	Label        string          `json:"label"`
	Month        string          `json:"month"`
	Recurring    decimal.Decimal `json:"recurring"`
	Installments decimal.Decimal `json:"installments"`
	Total        decimal.Decimal `json:"total"`
}

// OverviewDTO bundles the dashboard, one report and the forecast.
type OverviewDTO struct {
	Dashboard DashboardDTO       `json:"dashboard"`
	Report    ReportDTO          `json:"report"`
	Forecast  []MonthForecastDTO `json:"forecast"`
}

// JobDTO is one fare.
type JobDTO struct {
	ID            int64            `json:"id"`
	ShiftID       int64            `json:"shift_id"`
	Timestamp     time.Time        `json:"timestamp"`
	Revenue       decimal.Decimal  `json:"revenue"`
	ReceiptAmount *decimal.Decimal `json:"receipt_amount,omitempty"`
	PaymentType   string           `json:"payment_type"`
	Paid          bool             `json:"paid"`
	Notes         string           `json:"notes,omitempty"`
}

// ReceivablesDTO lists unpaid jobs.
type ReceivablesDTO struct {
	Jobs  []JobDTO        `json:"jobs"`
	Total decimal.Decimal `json:"total"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toShiftDTO(s *models.Shift) *ShiftDTO {
	if s == nil {
		return nil
	}
	return &ShiftDTO{
		ID:            s.ID,
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		StartOdometer: s.StartOdometer,
		EndOdometer:   s.EndOdometer,
		VehicleCost:   s.VehicleCost,
		Active:        s.Active,
	}
}

func toDashboardDTO(d engine.Dashboard) DashboardDTO {
	return DashboardDTO{
		Shift:              toShiftDTO(d.Shift),
		JobCount:           d.JobCount,
		Revenue:            d.Revenue,
		Receipts:           d.Receipts,
		ReceiptsVAT:        d.ReceiptsVAT.Round(2),
		Distance:           d.Distance,
		CostPerDistance:    d.CostPerDistance.Round(4),
		VehicleCost:        d.VehicleCost.Round(2),
		TotalDeductibleVAT: d.TotalDeductibleVAT,
		PayableVAT:         d.PayableVAT.Round(2),
		InstallmentDebt:    d.InstallmentDebt,
		Receivables:        d.Receivables,
		CurrencySymbol:     d.CurrencySymbol,
	}
}

func toReportDTO(r finance.ReportSnapshot) ReportDTO {
	return ReportDTO{
		Period:        string(r.Period.Kind),
		Label:         r.Period.Label(),
		Start:         r.Period.Start,
		End:           r.Period.End,
		ShiftCount:    r.ShiftCount,
		ExpenseCount:  r.ExpenseCount,
		TotalIncome:   r.TotalIncome,
		TotalExpenses: r.TotalExpenses,
		NetIncome:     r.NetIncome,
		Receipts:      r.Receipts,
		VATCollected:  r.VATCollected.Round(2),
		VATDeductible: r.VATDeductible,
		VATPayable:    r.VATPayable.Round(2),
	}
}

func toForecastDTOs(months []finance.MonthForecast) []MonthForecastDTO {
	out := make([]MonthForecastDTO, 0, len(months))
	for _, m := range months {
		out = append(out, MonthForecastDTO{
			Label:        m.Label,
			Month:        m.Month.Format("2006-01"),
			Recurring:    m.Recurring.Round(2),
			Installments: m.Installments.Round(2),
			Total:        m.Total.Round(2),
		})
	}
	return out
}

func toOverviewDTO(o engine.Overview) OverviewDTO {
	return OverviewDTO{
		Dashboard: toDashboardDTO(o.Dashboard),
		Report:    toReportDTO(o.Report),
		Forecast:  toForecastDTOs(o.Forecast),
	}
}

func toReceivablesDTO(r engine.Receivables) ReceivablesDTO {
	out := ReceivablesDTO{Jobs: make([]JobDTO, 0, len(r.Jobs)), Total: r.Total}
	for _, j := range r.Jobs {
		dto := JobDTO{
			ID:            j.ID,
			ShiftID:       j.ShiftID,
			Timestamp:     j.Timestamp,
			Revenue:       j.Revenue,
			ReceiptAmount: j.ReceiptAmount,
			PaymentType:   string(j.PaymentType),
			Paid:          j.Paid,
		}
		if j.Notes != nil {
			dto.Notes = *j.Notes
		}
		out.Jobs = append(out.Jobs, dto)
	}
	return out
}
