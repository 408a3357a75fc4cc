package repository

import (
	"context"
	"fmt"

	"gitlab.com/yelinaung/taxi-ledger/internal/database"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// JobRepository handles job database operations.
type JobRepository struct {
	db database.Querier
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db database.Querier) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, shift_id, revenue, receipt_amount, notes, odometer, occurred_at, payment_type, paid`

// Create inserts a job and sets its ID.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO jobs (shift_id, revenue, receipt_amount, notes, odometer, occurred_at, payment_type, paid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, job.ShiftID, job.Revenue, job.ReceiptAmount, job.Notes, job.Odometer, job.Timestamp,
		string(job.PaymentType), job.Paid,
	).Scan(&job.ID)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by ID.
func (r *JobRepository) GetByID(ctx context.Context, id int64) (*models.Job, error) {
	row := r.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	var j models.Job
	var paymentType string
	if err := row.Scan(&j.ID, &j.ShiftID, &j.Revenue, &j.ReceiptAmount, &j.Notes, &j.Odometer,
		&j.Timestamp, &paymentType, &j.Paid); err != nil {
		return nil, fmt.Errorf("failed to get job %d: %w", id, notFound(err))
	}
	j.PaymentType = models.PaymentType(paymentType)
	return &j, nil
}

// GetByShiftID returns the jobs of a shift in the order they happened.
func (r *JobRepository) GetByShiftID(ctx context.Context, shiftID int64) ([]models.Job, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE shift_id = $1
		ORDER BY occurred_at, id
	`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// GetUnpaid returns every unpaid job, oldest first.
func (r *JobRepository) GetUnpaid(ctx context.Context) ([]models.Job, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE NOT paid
		ORDER BY occurred_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unpaid jobs: %w", err)
	}
	defer rows.Close()

	return scanJobs(rows)
}

// Update replaces a job's fields.
func (r *JobRepository) Update(ctx context.Context, job *models.Job) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE jobs SET
			shift_id = $2,
			revenue = $3,
			receipt_amount = $4,
			notes = $5,
			odometer = $6,
			occurred_at = $7,
			payment_type = $8,
			paid = $9,
			updated_at = NOW()
		WHERE id = $1
	`, job.ID, job.ShiftID, job.Revenue, job.ReceiptAmount, job.Notes, job.Odometer, job.Timestamp,
		string(job.PaymentType), job.Paid)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update job %d: %w", job.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a job by ID.
func (r *JobRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete job %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanJobs(rows rowScanner) ([]models.Job, error) {
	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		var paymentType string
		if err := rows.Scan(&j.ID, &j.ShiftID, &j.Revenue, &j.ReceiptAmount, &j.Notes, &j.Odometer,
			&j.Timestamp, &paymentType, &j.Paid); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		j.PaymentType = models.PaymentType(paymentType)
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating jobs: %w", err)
	}
	return jobs, nil
}
