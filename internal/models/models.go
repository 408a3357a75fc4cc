// Package models defines the domain entities for the driver ledger.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrencySymbol is shown until the driver picks another symbol.
const DefaultCurrencySymbol = "€"

// MaxDescriptionLength is the maximum allowed length for expense descriptions.
const MaxDescriptionLength = 200

// PaymentType is how a job was paid by the passenger.
type PaymentType string

// Payment types for jobs.
const (
	PaymentTypeCash     PaymentType = "cash"
	PaymentTypeCard     PaymentType = "card"
	PaymentTypeContract PaymentType = "contract"
)

// ParsePaymentType parses a case-insensitive payment type name.
func ParsePaymentType(s string) (PaymentType, error) {
	switch PaymentType(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentTypeCash:
		return PaymentTypeCash, nil
	case PaymentTypeCard:
		return PaymentTypeCard, nil
	case PaymentTypeContract:
		return PaymentTypeContract, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentType, s)
	}
}

// PaymentMethod is how the driver paid an expense.
type PaymentMethod string

// Payment methods for expenses. Only card payments can be split into installments.
const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodBank PaymentMethod = "bank"
	PaymentMethodCard PaymentMethod = "card"
)

// ParsePaymentMethod parses a case-insensitive payment method name.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentMethodCash:
		return PaymentMethodCash, nil
	case PaymentMethodBank:
		return PaymentMethodBank, nil
	case PaymentMethodCard:
		return PaymentMethodCard, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
	}
}

// Frequency is how often a recurring expense falls due.
type Frequency string

// Supported recurring frequencies.
const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyYearly    Frequency = "yearly"
	FrequencyQuarterly Frequency = "quarterly"
)

// ParseFrequency parses a case-insensitive frequency name.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(s))) {
	case FrequencyMonthly:
		return FrequencyMonthly, nil
	case FrequencyYearly:
		return FrequencyYearly, nil
	case FrequencyQuarterly:
		return FrequencyQuarterly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
}

// Shift is one continuous work session.
type Shift struct {
	ID            int64
	StartTime     time.Time
	EndTime       *time.Time
	StartOdometer decimal.Decimal
	EndOdometer   *decimal.Decimal
	VehicleCost   *decimal.Decimal
	Active        bool
}

// Job is one fare recorded within a shift.
type Job struct {
	ID            int64
	ShiftID       int64
	Revenue       decimal.Decimal
	ReceiptAmount *decimal.Decimal
	Notes         *string
	Odometer      *decimal.Decimal
	Timestamp     time.Time
	PaymentType   PaymentType
	Paid          bool
}

// Receipt returns the receipt amount, or zero when none was recorded.
func (j Job) Receipt() decimal.Decimal {
	if j.ReceiptAmount == nil {
		return decimal.Zero
	}
	return *j.ReceiptAmount
}

// Expense is a single operating expense.
type Expense struct {
	ID                     int64
	Timestamp              time.Time
	Description            string
	Amount                 decimal.Decimal
	VATAmount              decimal.Decimal
	AffectsCostPerDistance bool
	PaymentMethod          PaymentMethod
	InstallmentID          *int64
}

// RecurringExpense is a periodic fixed obligation such as insurance or road tax.
// Day is a day-of-month for monthly items and a day-of-year anchor otherwise.
type RecurringExpense struct {
	ID                     int64
	Description            string
	Amount                 decimal.Decimal
	VATAmount              decimal.Decimal
	AffectsCostPerDistance bool
	Frequency              Frequency
	Day                    int
}

// Installment is a card purchase repaid in monthly periods. Every period but
// the last charges MonthlyAmount; the last one charges what is left of
// TotalAmount, so the periods add up to the purchase exactly.
type Installment struct {
	ID                     int64
	Description            string
	TotalAmount            decimal.Decimal
	MonthlyAmount          decimal.Decimal
	// VATAmount is the deductible VAT of the whole purchase.
	VATAmount              decimal.Decimal
	AffectsCostPerDistance bool
	TotalInstallments      int
	RemainingInstallments  int
	StartDate              time.Time
	LastPaymentDate        *time.Time
	NextPaymentDate        time.Time
}

// IsActive reports whether payments are still outstanding.
func (i Installment) IsActive() bool {
	return i.RemainingInstallments > 0
}

// PeriodAmount returns the amount charged for period k, counted from 1.
func (i Installment) PeriodAmount(k int) decimal.Decimal {
	if k < i.TotalInstallments {
		return i.MonthlyAmount
	}
	rest := i.TotalAmount.Sub(i.MonthlyAmount.Mul(decimal.NewFromInt(int64(i.TotalInstallments - 1))))
	if !rest.IsPositive() {
		return i.MonthlyAmount
	}
	return rest
}

// PeriodVAT returns the share of VATAmount that period k carries.
func (i Installment) PeriodVAT(k int) decimal.Decimal {
	if i.VATAmount.IsZero() || i.TotalInstallments < 1 {
		return decimal.Zero
	}
	n := i.TotalInstallments
	share := i.VATAmount.Div(decimal.NewFromInt(int64(n)))
	if k < n {
		return share
	}
	return i.VATAmount.Sub(share.Mul(decimal.NewFromInt(int64(n - 1))))
}

// Outstanding returns the amount still owed on the plan.
func (i Installment) Outstanding() decimal.Decimal {
	owed := decimal.Zero
	for k := i.TotalInstallments - i.RemainingInstallments + 1; k <= i.TotalInstallments; k++ {
		owed = owed.Add(i.PeriodAmount(k))
	}
	return owed
}

// ShiftSummary is a shift joined with its job totals.
type ShiftSummary struct {
	Shift          Shift
	TotalRevenue   decimal.Decimal
	TotalReceipts  decimal.Decimal
	JobCount       int
	MaxJobOdometer *decimal.Decimal
}

// Settings are the driver's preferences.
type Settings struct {
	CurrencySymbol   string
	BaselineDistance decimal.Decimal
	BaselineExpense  decimal.Decimal
}

// DefaultSettings returns the preferences used before anything is stored.
func DefaultSettings() Settings {
	return Settings{
		CurrencySymbol:   DefaultCurrencySymbol,
		BaselineDistance: decimal.Zero,
		BaselineExpense:  decimal.Zero,
	}
}
