package finance

import (
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// CostInputs are the all-time figures blended into the cost per kilometre.
type CostInputs struct {
	BaselineDistance decimal.Decimal
	BaselineExpense  decimal.Decimal
	Expenses         []models.Expense
	Shifts           []models.ShiftSummary
}

// CostInputsFrom assembles CostInputs from stored settings and ledger rows.
func CostInputsFrom(settings models.Settings, expenses []models.Expense, shifts []models.ShiftSummary) CostInputs {
	return CostInputs{
		BaselineDistance: settings.BaselineDistance,
		BaselineExpense:  settings.BaselineExpense,
		Expenses:         expenses,
		Shifts:           shifts,
	}
}

// CostPerDistance is (baseline expense + cost-relevant expenses) divided by
// (baseline distance + distance over every shift). It is a running blend over
// all time, not a period figure. A non-positive denominator yields zero.
func CostPerDistance(in CostInputs) decimal.Decimal {
	expense := in.BaselineExpense
	for i := range in.Expenses {
		if in.Expenses[i].AffectsCostPerDistance {
			expense = expense.Add(in.Expenses[i].Amount)
		}
	}

	distance := in.BaselineDistance
	for i := range in.Shifts {
		distance = distance.Add(ShiftDistance(in.Shifts[i]))
	}

	if !distance.IsPositive() {
		return decimal.Zero
	}
	return expense.Div(distance)
}

// ShiftDistance is the distance driven in a shift. Ended shifts use the end
// odometer; open shifts use the highest job odometer as a live estimate.
func ShiftDistance(s models.ShiftSummary) decimal.Decimal {
	end := s.Shift.StartOdometer
	switch {
	case s.Shift.EndOdometer != nil:
		end = *s.Shift.EndOdometer
	case s.MaxJobOdometer != nil:
		end = *s.MaxJobOdometer
	}
	return nonNegative(end.Sub(s.Shift.StartOdometer))
}

// VehicleCost is the amortized cost of driving the given distance.
func VehicleCost(distance, costPerDistance decimal.Decimal) decimal.Decimal {
	if !distance.IsPositive() {
		return decimal.Zero
	}
	return distance.Mul(costPerDistance)
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
