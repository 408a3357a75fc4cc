package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"gitlab.com/yelinaung/taxi-ledger/internal/database"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// InstallmentRepository handles installment plan database operations.
type InstallmentRepository struct {
	db database.Querier
}

// NewInstallmentRepository creates a new InstallmentRepository.
func NewInstallmentRepository(db database.Querier) *InstallmentRepository {
	return &InstallmentRepository{db: db}
}

const installmentColumns = `id, description, total_amount, monthly_amount, vat_amount,
	affects_cost_per_distance, total_installments, remaining_installments, start_date,
	last_payment_date, next_payment_date`

func scanInstallment(row pgx.Row, inst *models.Installment) error {
	return row.Scan(&inst.ID, &inst.Description, &inst.TotalAmount, &inst.MonthlyAmount,
		&inst.VATAmount, &inst.AffectsCostPerDistance, &inst.TotalInstallments,
		&inst.RemainingInstallments, &inst.StartDate, &inst.LastPaymentDate, &inst.NextPaymentDate)
}

// Create inserts an installment plan and sets its ID.
func (r *InstallmentRepository) Create(ctx context.Context, inst *models.Installment) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO installments (description, total_amount, monthly_amount, vat_amount,
			affects_cost_per_distance, total_installments, remaining_installments, start_date,
			last_payment_date, next_payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, inst.Description, inst.TotalAmount, inst.MonthlyAmount, inst.VATAmount,
		inst.AffectsCostPerDistance, inst.TotalInstallments, inst.RemainingInstallments,
		inst.StartDate, inst.LastPaymentDate, inst.NextPaymentDate,
	).Scan(&inst.ID)
	if err != nil {
		return fmt.Errorf("failed to create installment: %w", err)
	}
	return nil
}

// GetByID retrieves an installment plan by ID.
func (r *InstallmentRepository) GetByID(ctx context.Context, id int64) (*models.Installment, error) {
	var inst models.Installment
	row := r.db.QueryRow(ctx, `SELECT `+installmentColumns+` FROM installments WHERE id = $1`, id)
	if err := scanInstallment(row, &inst); err != nil {
		return nil, fmt.Errorf("failed to get installment %d: %w", id, notFound(err))
	}
	return &inst, nil
}

// GetAll returns every installment plan ordered by next payment date.
func (r *InstallmentRepository) GetAll(ctx context.Context) ([]models.Installment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+installmentColumns+` FROM installments
		ORDER BY next_payment_date, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query installments: %w", err)
	}
	defer rows.Close()

	var out []models.Installment
	for rows.Next() {
		var inst models.Installment
		if err := scanInstallment(rows, &inst); err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating installments: %w", err)
	}
	return out, nil
}

// Update replaces an installment plan's fields.
func (r *InstallmentRepository) Update(ctx context.Context, inst *models.Installment) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE installments SET
			description = $2,
			total_amount = $3,
			monthly_amount = $4,
			vat_amount = $5,
			affects_cost_per_distance = $6,
			total_installments = $7,
			remaining_installments = $8,
			start_date = $9,
			last_payment_date = $10,
			next_payment_date = $11,
			updated_at = NOW()
		WHERE id = $1
	`, inst.ID, inst.Description, inst.TotalAmount, inst.MonthlyAmount, inst.VATAmount,
		inst.AffectsCostPerDistance, inst.TotalInstallments, inst.RemainingInstallments,
		inst.StartDate, inst.LastPaymentDate, inst.NextPaymentDate)
	if err != nil {
		return fmt.Errorf("failed to update installment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update installment %d: %w", inst.ID, ErrNotFound)
	}
	return nil
}

// Delete removes an installment plan. Expenses charged against it keep their
// amounts and lose the link.
func (r *InstallmentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM installments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete installment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete installment %d: %w", id, ErrNotFound)
	}
	return nil
}
