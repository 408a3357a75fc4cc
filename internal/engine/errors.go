package engine

import (
	"errors"
	"fmt"

	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/ledger"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

var (
	// ErrShiftAlreadyActive is returned when starting a shift while one is running.
	ErrShiftAlreadyActive = errors.New("a shift is already active")

	// ErrNoActiveShift is returned when an operation needs a running shift.
	ErrNoActiveShift = errors.New("no active shift")

	// ErrOdometerBelowStart is returned when an end or job odometer reading is
	// lower than the shift's start reading.
	ErrOdometerBelowStart = errors.New("odometer reading is below the shift start")
)

// ValidationError names the input field that failed a rule.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsClientError reports whether err was caused by the caller's input or by
// the current ledger state, as opposed to a storage failure.
func IsClientError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) ||
		errors.Is(err, ErrShiftAlreadyActive) ||
		errors.Is(err, ErrNoActiveShift) ||
		errors.Is(err, ErrOdometerBelowStart) ||
		errors.Is(err, finance.ErrInvalidInstallmentCount) ||
		errors.Is(err, models.ErrInvalidAmount) ||
		errors.Is(err, models.ErrEmptyDescription) ||
		errors.Is(err, ledger.ErrConflict)
}

// IsNotFound reports whether err refers to a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ledger.ErrNotFound)
}
