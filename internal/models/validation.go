package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Validation errors returned by the Validate methods.
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidOdometer      = errors.New("invalid odometer reading")
	ErrEmptyDescription     = errors.New("description is required")
	ErrDescriptionTooLong   = errors.New("description too long")
	ErrInvalidPaymentType   = errors.New("invalid payment type")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidFrequency     = errors.New("invalid frequency")
	ErrInvalidDay           = errors.New("invalid anchor day")
	ErrInvalidSchedule      = errors.New("invalid installment schedule")
	ErrInvalidShiftState    = errors.New("invalid shift state")
)

// Validate checks the shift invariants.
func (s Shift) Validate() error {
	if s.StartOdometer.IsNegative() {
		return fmt.Errorf("%w: start odometer is negative", ErrInvalidOdometer)
	}
	if s.EndOdometer != nil && s.EndOdometer.LessThan(s.StartOdometer) {
		return fmt.Errorf("%w: end %s is below start %s", ErrInvalidOdometer, s.EndOdometer, s.StartOdometer)
	}
	if s.Active && s.EndTime != nil {
		return fmt.Errorf("%w: active shift has an end time", ErrInvalidShiftState)
	}
	if s.VehicleCost != nil && s.VehicleCost.IsNegative() {
		return fmt.Errorf("%w: vehicle cost is negative", ErrInvalidAmount)
	}
	return nil
}

// Validate checks the job fields.
func (j Job) Validate() error {
	if j.Revenue.IsNegative() {
		return fmt.Errorf("%w: revenue is negative", ErrInvalidAmount)
	}
	if j.ReceiptAmount != nil && j.ReceiptAmount.IsNegative() {
		return fmt.Errorf("%w: receipt is negative", ErrInvalidAmount)
	}
	if j.Odometer != nil && j.Odometer.IsNegative() {
		return fmt.Errorf("%w: odometer is negative", ErrInvalidOdometer)
	}
	switch j.PaymentType {
	case PaymentTypeCash, PaymentTypeCard, PaymentTypeContract:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPaymentType, j.PaymentType)
	}
	return nil
}

// Validate checks the expense fields.
func (e Expense) Validate() error {
	if err := validateDescription(e.Description); err != nil {
		return err
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	if e.VATAmount.IsNegative() || e.VATAmount.GreaterThan(e.Amount) {
		return fmt.Errorf("%w: VAT must be between 0 and the amount", ErrInvalidAmount)
	}
	switch e.PaymentMethod {
	case PaymentMethodCash, PaymentMethodBank, PaymentMethodCard:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, e.PaymentMethod)
	}
	return nil
}

// Validate checks the recurring expense fields.
func (r RecurringExpense) Validate() error {
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}
	if r.VATAmount.IsNegative() || r.VATAmount.GreaterThan(r.Amount) {
		return fmt.Errorf("%w: VAT must be between 0 and the amount", ErrInvalidAmount)
	}
	switch r.Frequency {
	case FrequencyMonthly:
		if r.Day < 1 || r.Day > 31 {
			return fmt.Errorf("%w: day of month %d", ErrInvalidDay, r.Day)
		}
	case FrequencyYearly, FrequencyQuarterly:
		if r.Day < 1 || r.Day > 366 {
			return fmt.Errorf("%w: day of year %d", ErrInvalidDay, r.Day)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, r.Frequency)
	}
	return nil
}

// Validate checks the installment schedule.
func (i Installment) Validate() error {
	if err := validateDescription(i.Description); err != nil {
		return err
	}
	if !i.TotalAmount.IsPositive() || !i.MonthlyAmount.IsPositive() {
		return fmt.Errorf("%w: amounts must be positive", ErrInvalidAmount)
	}
	if i.VATAmount.IsNegative() || i.VATAmount.GreaterThan(i.TotalAmount) {
		return fmt.Errorf("%w: vat %s outside 0..%s", ErrInvalidAmount, i.VATAmount, i.TotalAmount)
	}
	if i.TotalInstallments < 1 {
		return fmt.Errorf("%w: total installments %d", ErrInvalidSchedule, i.TotalInstallments)
	}
	if i.RemainingInstallments < 0 || i.RemainingInstallments > i.TotalInstallments {
		return fmt.Errorf("%w: remaining %d of %d", ErrInvalidSchedule, i.RemainingInstallments, i.TotalInstallments)
	}
	return nil
}

func validateDescription(desc string) error {
	if strings.TrimSpace(desc) == "" {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return fmt.Errorf("%w: max %d characters", ErrDescriptionTooLong, MaxDescriptionLength)
	}
	return nil
}
