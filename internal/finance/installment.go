package finance

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// ErrInvalidInstallmentCount is returned for zero, negative or fractional counts.
var ErrInvalidInstallmentCount = errors.New("installment count must be a positive integer")

// ExpenseInput is a new expense as entered by the driver.
type ExpenseInput struct {
	Description            string
	Amount                 decimal.Decimal
	VATAmount              decimal.Decimal
	AffectsCostPerDistance bool
	PaymentMethod          models.PaymentMethod
	Installments           int
}

// Origination is what OriginateExpense decided to write. Installment is nil
// for an ordinary expense. When set, the caller must store it first and link
// Expense.InstallmentID to its identity in the same transaction.
type Origination struct {
	Expense     models.Expense
	Installment *models.Installment
}

// ParseInstallmentCount parses user text such as "12" or "x12". Fractions,
// zero and negative values are rejected.
func ParseInstallmentCount(s string) (int, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "x")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidInstallmentCount, s)
	}
	return n, nil
}

// OriginateExpense turns an entered expense into the records to persist.
//
// A card payment split into n > 1 installments produces an Installment plan of
// n monthly periods of total/n each, the last absorbing any remainder, and an
// Expense for the first period only, described as "desc (1/n)". Anything else produces one Expense for the full amount.
// Nothing is returned when validation fails.
func OriginateExpense(in ExpenseInput, now time.Time) (Origination, error) {
	if in.Installments < 1 {
		return Origination{}, fmt.Errorf("%w: %d", ErrInvalidInstallmentCount, in.Installments)
	}

	full := models.Expense{
		Timestamp:              now,
		Description:            strings.TrimSpace(in.Description),
		Amount:                 in.Amount,
		VATAmount:              in.VATAmount,
		AffectsCostPerDistance: in.AffectsCostPerDistance,
		PaymentMethod:          in.PaymentMethod,
	}
	if err := full.Validate(); err != nil {
		return Origination{}, err
	}

	if in.Installments == 1 || in.PaymentMethod != models.PaymentMethodCard {
		return Origination{Expense: full}, nil
	}

	plan := &models.Installment{
		Description:            full.Description,
		TotalAmount:            in.Amount,
		MonthlyAmount:          in.Amount.Div(decimal.NewFromInt(int64(in.Installments))),
		VATAmount:              in.VATAmount,
		AffectsCostPerDistance: in.AffectsCostPerDistance,
		TotalInstallments:      in.Installments,
		RemainingInstallments:  in.Installments,
		StartDate:              now,
		NextPaymentDate:        now,
	}
	if err := plan.Validate(); err != nil {
		return Origination{}, err
	}

	first := full
	first.Description = PeriodDescription(full.Description, 1, in.Installments)
	first.Amount = plan.PeriodAmount(1)
	first.VATAmount = plan.PeriodVAT(1)

	return Origination{Expense: first, Installment: plan}, nil
}

// PeriodDescription appends the "(k/n)" period marker to a description.
func PeriodDescription(desc string, k, n int) string {
	return fmt.Sprintf("%s (%d/%d)", desc, k, n)
}

// FirstPeriodRecorded reports whether the plan's next period is the first
// one, whose expense OriginateExpense already produced. Callers advance such
// a plan without inserting the charge again.
func FirstPeriodRecorded(inst models.Installment) bool {
	return inst.RemainingInstallments == inst.TotalInstallments
}

// NextCharge returns the expense for the installment's next period and the
// plan advanced by one payment. The charge is dated at the period's scheduled
// payment date and carries that period's share of the amount and VAT. ok is
// false when nothing is outstanding.
func NextCharge(inst models.Installment) (models.Expense, models.Installment, bool) {
	if !inst.IsActive() {
		return models.Expense{}, inst, false
	}

	period := inst.TotalInstallments - inst.RemainingInstallments + 1
	id := inst.ID
	due := inst.NextPaymentDate
	charge := models.Expense{
		Timestamp:              due,
		Description:            PeriodDescription(inst.Description, period, inst.TotalInstallments),
		Amount:                 inst.PeriodAmount(period),
		VATAmount:              inst.PeriodVAT(period),
		AffectsCostPerDistance: inst.AffectsCostPerDistance,
		PaymentMethod:          models.PaymentMethodCard,
		InstallmentID:          &id,
	}

	advanced := inst
	advanced.RemainingInstallments--
	advanced.LastPaymentDate = &due
	advanced.NextPaymentDate = AddMonthsClamped(due, 1)

	return charge, advanced, true
}
