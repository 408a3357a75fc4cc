package finance

import (
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// ShiftSnapshot is the live dashboard view of a shift.
//
// Revenue through VehicleCost describe the selected shift only, while
// TotalDeductibleVAT and PayableVAT use every expense ever recorded. With no
// shift selected the shift fields are zero and PayableVAT is the negated
// deductible total.
type ShiftSnapshot struct {
	Shift              *models.Shift
	JobCount           int
	Revenue            decimal.Decimal
	Receipts           decimal.Decimal
	ReceiptsVAT        decimal.Decimal
	Distance           decimal.Decimal
	CostPerDistance    decimal.Decimal
	VehicleCost        decimal.Decimal
	TotalDeductibleVAT decimal.Decimal
	PayableVAT         decimal.Decimal
}

// HasShift reports whether the snapshot describes a shift.
func (s ShiftSnapshot) HasShift() bool {
	return s.Shift != nil
}

// ShiftEconomics combines a shift with its jobs. shift may be nil.
func ShiftEconomics(
	shift *models.Shift,
	jobs []models.Job,
	costPerDistance decimal.Decimal,
	totalDeductibleVAT decimal.Decimal,
) ShiftSnapshot {
	snap := ShiftSnapshot{
		Revenue:            decimal.Zero,
		Receipts:           decimal.Zero,
		ReceiptsVAT:        decimal.Zero,
		Distance:           decimal.Zero,
		CostPerDistance:    costPerDistance,
		VehicleCost:        decimal.Zero,
		TotalDeductibleVAT: totalDeductibleVAT,
	}

	if shift != nil {
		s := *shift
		snap.Shift = &s
		snap.JobCount = len(jobs)

		var maxOdometer *decimal.Decimal
		for i := range jobs {
			snap.Revenue = snap.Revenue.Add(jobs[i].Revenue)
			snap.Receipts = snap.Receipts.Add(jobs[i].Receipt())
			if odo := jobs[i].Odometer; odo != nil && (maxOdometer == nil || odo.GreaterThan(*maxOdometer)) {
				maxOdometer = odo
			}
		}

		snap.ReceiptsVAT = ReceiptVAT(snap.Receipts)
		if maxOdometer != nil {
			snap.Distance = nonNegative(maxOdometer.Sub(s.StartOdometer))
		}
		snap.VehicleCost = VehicleCost(snap.Distance, costPerDistance)
	}

	snap.PayableVAT = snap.ReceiptsVAT.Sub(totalDeductibleVAT)
	return snap
}

// TotalDeductibleVAT sums the VAT carried on every given expense.
func TotalDeductibleVAT(expenses []models.Expense) decimal.Decimal {
	total := decimal.Zero
	for i := range expenses {
		total = total.Add(expenses[i].VATAmount)
	}
	return total
}

// InstallmentDebt is the amount still owed across all installment plans.
func InstallmentDebt(installments []models.Installment) decimal.Decimal {
	total := decimal.Zero
	for i := range installments {
		if installments[i].IsActive() {
			total = total.Add(installments[i].Outstanding())
		}
	}
	return total
}

// Receivables sums the revenue of unpaid jobs.
func Receivables(jobs []models.Job) decimal.Decimal {
	total := decimal.Zero
	for i := range jobs {
		if !jobs[i].Paid {
			total = total.Add(jobs[i].Revenue)
		}
	}
	return total
}
