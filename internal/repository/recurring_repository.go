package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/taxi-ledger/internal/database"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// RecurringExpenseRepository handles recurring expense database operations.
type RecurringExpenseRepository struct {
	db database.Querier
}

// NewRecurringExpenseRepository creates a new RecurringExpenseRepository.
func NewRecurringExpenseRepository(db database.Querier) *RecurringExpenseRepository {
	return &RecurringExpenseRepository{db: db}
}

const recurringColumns = `id, description, amount, vat_amount, affects_cost_per_distance, frequency, anchor_day`

// Create inserts a recurring expense and sets its ID.
func (r *RecurringExpenseRepository) Create(ctx context.Context, rec *models.RecurringExpense) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO recurring_expenses (description, amount, vat_amount, affects_cost_per_distance, frequency, anchor_day)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, rec.Description, rec.Amount, rec.VATAmount, rec.AffectsCostPerDistance, string(rec.Frequency), rec.Day,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to create recurring expense: %w", err)
	}
	return nil
}

// GetByID retrieves a recurring expense by ID.
func (r *RecurringExpenseRepository) GetByID(ctx context.Context, id int64) (*models.RecurringExpense, error) {
	var rec models.RecurringExpense
	var freq string
	err := r.db.QueryRow(ctx, `SELECT `+recurringColumns+` FROM recurring_expenses WHERE id = $1`, id).
		Scan(&rec.ID, &rec.Description, &rec.Amount, &rec.VATAmount, &rec.AffectsCostPerDistance, &freq, &rec.Day)
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring expense %d: %w", id, notFound(err))
	}
	rec.Frequency = models.Frequency(freq)
	return &rec, nil
}

// GetAll returns every recurring expense ordered by description.
func (r *RecurringExpenseRepository) GetAll(ctx context.Context) ([]models.RecurringExpense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+recurringColumns+` FROM recurring_expenses
		ORDER BY description, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring expenses: %w", err)
	}
	defer rows.Close()

	var out []models.RecurringExpense
	for rows.Next() {
		var rec models.RecurringExpense
		var freq string
		if err := rows.Scan(&rec.ID, &rec.Description, &rec.Amount, &rec.VATAmount,
			&rec.AffectsCostPerDistance, &freq, &rec.Day); err != nil {
			return nil, fmt.Errorf("failed to scan recurring expense: %w", err)
		}
		rec.Frequency = models.Frequency(freq)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring expenses: %w", err)
	}
	return out, nil
}

// Update replaces a recurring expense's fields.
func (r *RecurringExpenseRepository) Update(ctx context.Context, rec *models.RecurringExpense) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE recurring_expenses SET
			description = $2,
			amount = $3,
			vat_amount = $4,
			affects_cost_per_distance = $5,
			frequency = $6,
			anchor_day = $7,
			updated_at = NOW()
		WHERE id = $1
	`, rec.ID, rec.Description, rec.Amount, rec.VATAmount, rec.AffectsCostPerDistance, string(rec.Frequency), rec.Day)
	if err != nil {
		return fmt.Errorf("failed to update recurring expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update recurring expense %d: %w", rec.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a recurring expense by ID.
func (r *RecurringExpenseRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM recurring_expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recurring expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete recurring expense %d: %w", id, ErrNotFound)
	}
	return nil
}
