// Package repository implements PostgreSQL access for ledger records.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"gitlab.com/yelinaung/taxi-ledger/internal/database"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// notFound maps pgx.ErrNoRows to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ShiftRepository handles shift database operations.
type ShiftRepository struct {
	db database.Querier
}

// NewShiftRepository creates a new ShiftRepository.
func NewShiftRepository(db database.Querier) *ShiftRepository {
	return &ShiftRepository{db: db}
}

const shiftColumns = `s.id, s.start_time, s.end_time, s.start_odometer, s.end_odometer, s.vehicle_cost, s.active`

// Create inserts a shift and sets its ID.
func (r *ShiftRepository) Create(ctx context.Context, shift *models.Shift) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO shifts (start_time, end_time, start_odometer, end_odometer, vehicle_cost, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, shift.StartTime, shift.EndTime, shift.StartOdometer, shift.EndOdometer, shift.VehicleCost, shift.Active,
	).Scan(&shift.ID)
	if err != nil {
		return fmt.Errorf("failed to create shift: %w", err)
	}
	return nil
}

// GetByID retrieves a shift by ID.
func (r *ShiftRepository) GetByID(ctx context.Context, id int64) (*models.Shift, error) {
	var s models.Shift
	err := r.db.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts s WHERE s.id = $1`, id).
		Scan(&s.ID, &s.StartTime, &s.EndTime, &s.StartOdometer, &s.EndOdometer, &s.VehicleCost, &s.Active)
	if err != nil {
		return nil, fmt.Errorf("failed to get shift %d: %w", id, notFound(err))
	}
	return &s, nil
}

// GetActive returns the active shift, or nil when no shift is running.
func (r *ShiftRepository) GetActive(ctx context.Context) (*models.Shift, error) {
	var s models.Shift
	err := r.db.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts s WHERE s.active LIMIT 1`).
		Scan(&s.ID, &s.StartTime, &s.EndTime, &s.StartOdometer, &s.EndOdometer, &s.VehicleCost, &s.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active shift: %w", err)
	}
	return &s, nil
}

// Update replaces a shift's fields.
func (r *ShiftRepository) Update(ctx context.Context, shift *models.Shift) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE shifts SET
			start_time = $2,
			end_time = $3,
			start_odometer = $4,
			end_odometer = $5,
			vehicle_cost = $6,
			active = $7,
			updated_at = NOW()
		WHERE id = $1
	`, shift.ID, shift.StartTime, shift.EndTime, shift.StartOdometer, shift.EndOdometer, shift.VehicleCost, shift.Active)
	if err != nil {
		return fmt.Errorf("failed to update shift: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update shift %d: %w", shift.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a shift and, through the foreign key, its jobs.
func (r *ShiftRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM shifts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shift: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete shift %d: %w", id, ErrNotFound)
	}
	return nil
}

const summaryQuery = `
	SELECT ` + shiftColumns + `,
	       COALESCE(SUM(j.revenue), 0),
	       COALESCE(SUM(j.receipt_amount), 0),
	       COUNT(j.id),
	       MAX(j.odometer)
	FROM shifts s
	LEFT JOIN jobs j ON j.shift_id = s.id
`

// GetSummaries returns every shift with its job totals, newest first.
func (r *ShiftRepository) GetSummaries(ctx context.Context) ([]models.ShiftSummary, error) {
	rows, err := r.db.Query(ctx, summaryQuery+`
		GROUP BY s.id
		ORDER BY s.start_time DESC, s.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift summaries: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

// GetSummariesByDateRange returns shifts whose start time is within [start, end].
func (r *ShiftRepository) GetSummariesByDateRange(ctx context.Context, start, end time.Time) ([]models.ShiftSummary, error) {
	rows, err := r.db.Query(ctx, summaryQuery+`
		WHERE s.start_time >= $1 AND s.start_time <= $2
		GROUP BY s.id
		ORDER BY s.start_time DESC, s.id DESC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift summaries by date range: %w", err)
	}
	defer rows.Close()

	return scanSummaries(rows)
}

func scanSummaries(rows rowScanner) ([]models.ShiftSummary, error) {
	var out []models.ShiftSummary
	for rows.Next() {
		var sum models.ShiftSummary
		s := &sum.Shift
		if err := rows.Scan(
			&s.ID, &s.StartTime, &s.EndTime, &s.StartOdometer, &s.EndOdometer, &s.VehicleCost, &s.Active,
			&sum.TotalRevenue, &sum.TotalReceipts, &sum.JobCount, &sum.MaxJobOdometer,
		); err != nil {
			return nil, fmt.Errorf("failed to scan shift summary: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shift summaries: %w", err)
	}
	return out, nil
}
