package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/ledger"
	"gitlab.com/yelinaung/taxi-ledger/internal/logger"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// AddExpense records an expense. A card payment split into several
// installments stores the plan and its first-period expense in one
// transaction, so either both exist or neither does.
func (e *Engine) AddExpense(ctx context.Context, in finance.ExpenseInput) (finance.Origination, error) {
	orig, err := finance.OriginateExpense(in, e.now())
	if err != nil {
		return finance.Origination{}, invalid("expense", err)
	}

	err = e.update(ctx, "AddExpense", func(ctx context.Context, w ledger.Writer) error {
		if orig.Installment != nil {
			if err := w.InsertInstallment(ctx, orig.Installment); err != nil {
				return err
			}
			id := orig.Installment.ID
			orig.Expense.InstallmentID = &id
		}
		return w.InsertExpense(ctx, &orig.Expense)
	})
	if err != nil {
		return finance.Origination{}, err
	}

	evt := logger.Log.Info().
		Int64("expense_id", orig.Expense.ID).
		Str("description", logger.SanitizeDescription(orig.Expense.Description)).
		Str("amount", orig.Expense.Amount.String())
	if orig.Installment != nil {
		evt = evt.Int64("installment_id", orig.Installment.ID).Int("installments", orig.Installment.TotalInstallments)
	}
	evt.Msg("Expense added")
	return orig, nil
}

// ExpenseUpdate holds the expense fields to change. Nil fields are kept.
type ExpenseUpdate struct {
	Description            *string
	Amount                 *decimal.Decimal
	VATAmount              *decimal.Decimal
	AffectsCostPerDistance *bool
	PaymentMethod          *models.PaymentMethod
	Timestamp              *time.Time
}

// UpdateExpense edits an expense.
func (e *Engine) UpdateExpense(ctx context.Context, id int64, upd ExpenseUpdate) (*models.Expense, error) {
	var out *models.Expense
	err := e.update(ctx, "UpdateExpense", func(ctx context.Context, w ledger.Writer) error {
		exp, err := w.Expense(ctx, id)
		if err != nil {
			return err
		}
		if upd.Description != nil {
			exp.Description = strings.TrimSpace(*upd.Description)
		}
		if upd.Amount != nil {
			exp.Amount = *upd.Amount
		}
		if upd.VATAmount != nil {
			exp.VATAmount = *upd.VATAmount
		}
		if upd.AffectsCostPerDistance != nil {
			exp.AffectsCostPerDistance = *upd.AffectsCostPerDistance
		}
		if upd.PaymentMethod != nil {
			exp.PaymentMethod = *upd.PaymentMethod
		}
		if upd.Timestamp != nil {
			exp.Timestamp = *upd.Timestamp
		}
		if err := exp.Validate(); err != nil {
			return invalid("expense", err)
		}
		if err := w.UpdateExpense(ctx, exp); err != nil {
			return err
		}
		out = exp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteExpense removes an expense. An installment plan it belongs to is kept.
func (e *Engine) DeleteExpense(ctx context.Context, id int64) error {
	return e.update(ctx, "DeleteExpense", func(ctx context.Context, w ledger.Writer) error {
		return w.DeleteExpense(ctx, id)
	})
}

// Expenses lists expenses dated within [start, end], newest first.
func (e *Engine) Expenses(ctx context.Context, start, end time.Time) ([]models.Expense, error) {
	var out []models.Expense
	err := e.read(ctx, "Expenses", func(ctx context.Context, r ledger.Reader) error {
		var err error
		out, err = r.ExpensesInRange(ctx, start, end)
		return err
	})
	return out, err
}

// RecurringExpenses lists the recurring obligations.
func (e *Engine) RecurringExpenses(ctx context.Context) ([]models.RecurringExpense, error) {
	var out []models.RecurringExpense
	err := e.read(ctx, "RecurringExpenses", func(ctx context.Context, r ledger.Reader) error {
		var err error
		out, err = r.RecurringExpenses(ctx)
		return err
	})
	return out, err
}

// AddRecurringExpense stores a recurring obligation.
func (e *Engine) AddRecurringExpense(ctx context.Context, rec models.RecurringExpense) (*models.RecurringExpense, error) {
	rec.ID = 0
	rec.Description = strings.TrimSpace(rec.Description)
	if err := rec.Validate(); err != nil {
		return nil, invalid("recurring expense", err)
	}
	err := e.update(ctx, "AddRecurringExpense", func(ctx context.Context, w ledger.Writer) error {
		return w.InsertRecurringExpense(ctx, &rec)
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info().Int64("recurring_id", rec.ID).Str("frequency", string(rec.Frequency)).Msg("Recurring expense added")
	return &rec, nil
}

// UpdateRecurringExpense replaces a recurring obligation.
func (e *Engine) UpdateRecurringExpense(ctx context.Context, rec models.RecurringExpense) (*models.RecurringExpense, error) {
	rec.Description = strings.TrimSpace(rec.Description)
	if err := rec.Validate(); err != nil {
		return nil, invalid("recurring expense", err)
	}
	err := e.update(ctx, "UpdateRecurringExpense", func(ctx context.Context, w ledger.Writer) error {
		return w.UpdateRecurringExpense(ctx, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteRecurringExpense removes a recurring obligation.
func (e *Engine) DeleteRecurringExpense(ctx context.Context, id int64) error {
	return e.update(ctx, "DeleteRecurringExpense", func(ctx context.Context, w ledger.Writer) error {
		return w.DeleteRecurringExpense(ctx, id)
	})
}

// ApplyRecurringExpense records one occurrence of a recurring obligation as a
// cash expense dated now.
func (e *Engine) ApplyRecurringExpense(ctx context.Context, id int64) (*models.Expense, error) {
	var out *models.Expense
	err := e.update(ctx, "ApplyRecurringExpense", func(ctx context.Context, w ledger.Writer) error {
		rec, err := w.RecurringExpense(ctx, id)
		if err != nil {
			return err
		}
		exp := &models.Expense{
			Timestamp:              e.now(),
			Description:            rec.Description,
			Amount:                 rec.Amount,
			VATAmount:              rec.VATAmount,
			AffectsCostPerDistance: rec.AffectsCostPerDistance,
			PaymentMethod:          models.PaymentMethodCash,
		}
		if err := exp.Validate(); err != nil {
			return invalid("expense", err)
		}
		if err := w.InsertExpense(ctx, exp); err != nil {
			return err
		}
		out = exp
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Info().Int64("recurring_id", id).Int64("expense_id", out.ID).Msg("Recurring expense applied")
	return out, nil
}

// Installments lists every installment plan.
func (e *Engine) Installments(ctx context.Context) ([]models.Installment, error) {
	var out []models.Installment
	err := e.read(ctx, "Installments", func(ctx context.Context, r ledger.Reader) error {
		var err error
		out, err = r.Installments(ctx)
		return err
	})
	return out, err
}

// UpdateInstallment replaces an installment plan.
func (e *Engine) UpdateInstallment(ctx context.Context, inst models.Installment) (*models.Installment, error) {
	inst.Description = strings.TrimSpace(inst.Description)
	if err := inst.Validate(); err != nil {
		return nil, invalid("installment", err)
	}
	err := e.update(ctx, "UpdateInstallment", func(ctx context.Context, w ledger.Writer) error {
		return w.UpdateInstallment(ctx, &inst)
	})
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// DeleteInstallment removes a plan. Expenses already charged keep their amounts.
func (e *Engine) DeleteInstallment(ctx context.Context, id int64) error {
	return e.update(ctx, "DeleteInstallment", func(ctx context.Context, w ledger.Writer) error {
		return w.DeleteInstallment(ctx, id)
	})
}

// ChargeDueInstallments advances every plan whose next payment date is not
// after now, catching up on missed months, and records one expense per
// charged period dated at that period's payment date. The first period of a plan was recorded when the purchase
// was entered, so it only advances the plan. It returns the expenses created.
func (e *Engine) ChargeDueInstallments(ctx context.Context, now time.Time) ([]models.Expense, error) {
	var charged []models.Expense
	err := e.update(ctx, "ChargeDueInstallments", func(ctx context.Context, w ledger.Writer) error {
		charged = nil
		plans, err := w.Installments(ctx)
		if err != nil {
			return err
		}
		for _, plan := range plans {
			advanced := false
			for plan.IsActive() && !plan.NextPaymentDate.After(now) {
				firstPeriod := finance.FirstPeriodRecorded(plan)
				charge, next, ok := finance.NextCharge(plan)
				if !ok {
					break
				}
				if !firstPeriod {
					if err := w.InsertExpense(ctx, &charge); err != nil {
						return fmt.Errorf("failed to charge installment %d: %w", plan.ID, err)
					}
					charged = append(charged, charge)
				}
				plan = next
				advanced = true
			}
			if advanced {
				if err := w.UpdateInstallment(ctx, &plan); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(charged) > 0 {
		logger.Log.Info().Int("count", len(charged)).Msg("Installments charged")
	}
	return charged, nil
}

// SetCurrencySymbol changes the display currency symbol.
func (e *Engine) SetCurrencySymbol(ctx context.Context, symbol string) error {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return invalid("currency symbol", models.ErrEmptyDescription)
	}
	return e.update(ctx, "SetCurrencySymbol", func(ctx context.Context, w ledger.Writer) error {
		settings, err := w.Settings(ctx)
		if err != nil {
			return err
		}
		settings.CurrencySymbol = symbol
		return w.SaveSettings(ctx, settings)
	})
}

// SetVehicleBaseline sets the distance and expense driven before the ledger
// started. Both feed the cost per kilometre.
func (e *Engine) SetVehicleBaseline(ctx context.Context, distance, expense decimal.Decimal) error {
	if distance.IsNegative() {
		return invalid("baseline distance", models.ErrInvalidOdometer)
	}
	if expense.IsNegative() {
		return invalid("baseline expense", models.ErrInvalidAmount)
	}
	err := e.update(ctx, "SetVehicleBaseline", func(ctx context.Context, w ledger.Writer) error {
		settings, err := w.Settings(ctx)
		if err != nil {
			return err
		}
		settings.BaselineDistance = distance
		settings.BaselineExpense = expense
		return w.SaveSettings(ctx, settings)
	})
	if err == nil {
		logger.Log.Info().Str("distance", distance.String()).Str("expense", expense.String()).Msg("Vehicle baseline updated")
	}
	return err
}
