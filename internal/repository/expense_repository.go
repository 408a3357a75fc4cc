package repository

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/yelinaung/taxi-ledger/internal/database"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// ExpenseRepository handles expense database operations.
type ExpenseRepository struct {
	db database.Querier
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db database.Querier) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

const expenseColumns = `id, occurred_at, description, amount, vat_amount, affects_cost_per_distance, payment_method, installment_id`

// Create adds a new expense.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO expenses (occurred_at, description, amount, vat_amount, affects_cost_per_distance, payment_method, installment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, expense.Timestamp, expense.Description, expense.Amount, expense.VATAmount,
		expense.AffectsCostPerDistance, string(expense.PaymentMethod), expense.InstallmentID,
	).Scan(&expense.ID)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetByID retrieves an expense by ID.
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*models.Expense, error) {
	var exp models.Expense
	var method string
	err := r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id).
		Scan(&exp.ID, &exp.Timestamp, &exp.Description, &exp.Amount, &exp.VATAmount,
			&exp.AffectsCostPerDistance, &method, &exp.InstallmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense %d: %w", id, notFound(err))
	}
	exp.PaymentMethod = models.PaymentMethod(method)
	return &exp, nil
}

// GetAll returns every expense, newest first.
func (r *ExpenseRepository) GetAll(ctx context.Context) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		ORDER BY occurred_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	return scanExpenses(rows)
}

// GetByDateRange returns expenses dated within [start, end], newest first.
func (r *ExpenseRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE occurred_at >= $1 AND occurred_at <= $2
		ORDER BY occurred_at DESC, id DESC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses by date range: %w", err)
	}
	defer rows.Close()

	return scanExpenses(rows)
}

// Update modifies an existing expense.
func (r *ExpenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE expenses SET
			occurred_at = $2,
			description = $3,
			amount = $4,
			vat_amount = $5,
			affects_cost_per_distance = $6,
			payment_method = $7,
			installment_id = $8,
			updated_at = NOW()
		WHERE id = $1
	`, expense.ID, expense.Timestamp, expense.Description, expense.Amount, expense.VATAmount,
		expense.AffectsCostPerDistance, string(expense.PaymentMethod), expense.InstallmentID)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update expense %d: %w", expense.ID, ErrNotFound)
	}
	return nil
}

// Delete removes an expense by ID.
func (r *ExpenseRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete expense %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanExpenses(rows rowScanner) ([]models.Expense, error) {
	var expenses []models.Expense
	for rows.Next() {
		var exp models.Expense
		var method string
		if err := rows.Scan(&exp.ID, &exp.Timestamp, &exp.Description, &exp.Amount, &exp.VATAmount,
			&exp.AffectsCostPerDistance, &method, &exp.InstallmentID); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		exp.PaymentMethod = models.PaymentMethod(method)
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}
