package finance

import (
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// ReportSnapshot is the aggregate over one reporting period.
type ReportSnapshot struct {
	Period        Period
	ShiftCount    int
	ExpenseCount  int
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	NetIncome     decimal.Decimal
	Receipts      decimal.Decimal
	VATCollected  decimal.Decimal
	VATDeductible decimal.Decimal
	VATPayable    decimal.Decimal
}

// Report aggregates the shifts that started in the period and the expenses
// dated in it. Rows outside the period are ignored, so callers may pass
// unfiltered data.
func Report(period Period, shifts []models.ShiftSummary, expenses []models.Expense) ReportSnapshot {
	snap := ReportSnapshot{
		Period:        period,
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		Receipts:      decimal.Zero,
		VATDeductible: decimal.Zero,
	}

	for i := range shifts {
		if !period.Contains(shifts[i].Shift.StartTime) {
			continue
		}
		snap.ShiftCount++
		snap.TotalIncome = snap.TotalIncome.Add(shifts[i].TotalRevenue)
		snap.Receipts = snap.Receipts.Add(shifts[i].TotalReceipts)
	}

	for i := range expenses {
		if !period.Contains(expenses[i].Timestamp) {
			continue
		}
		snap.ExpenseCount++
		snap.TotalExpenses = snap.TotalExpenses.Add(expenses[i].Amount)
		snap.VATDeductible = snap.VATDeductible.Add(expenses[i].VATAmount)
	}

	snap.NetIncome = snap.TotalIncome.Sub(snap.TotalExpenses)
	snap.VATCollected = ReceiptVAT(snap.Receipts)
	snap.VATPayable = snap.VATCollected.Sub(snap.VATDeductible)
	return snap
}
