package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the database schema. Every statement is idempotent.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS shifts (
			id BIGSERIAL PRIMARY KEY,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ,
			start_odometer NUMERIC(12, 2) NOT NULL,
			end_odometer NUMERIC(12, 2),
			vehicle_cost NUMERIC(12, 2),
			active BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT shifts_odometer_order CHECK (end_odometer IS NULL OR end_odometer >= start_odometer)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_shifts_single_active ON shifts(active) WHERE active`,
		`CREATE INDEX IF NOT EXISTS idx_shifts_start_time ON shifts(start_time)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			id BIGSERIAL PRIMARY KEY,
			shift_id BIGINT NOT NULL REFERENCES shifts(id) ON DELETE CASCADE,
			revenue NUMERIC(12, 2) NOT NULL,
			receipt_amount NUMERIC(12, 2),
			notes TEXT,
			odometer NUMERIC(12, 2),
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			payment_type TEXT NOT NULL DEFAULT 'cash',
			paid BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_shift_id ON jobs(shift_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_unpaid ON jobs(paid) WHERE NOT paid`,
		`CREATE TABLE IF NOT EXISTS installments (
			id BIGSERIAL PRIMARY KEY,
			description TEXT NOT NULL,
			total_amount NUMERIC NOT NULL,
			monthly_amount NUMERIC NOT NULL,
			vat_amount NUMERIC NOT NULL DEFAULT 0,
			affects_cost_per_distance BOOLEAN NOT NULL DEFAULT FALSE,
			total_installments INTEGER NOT NULL CHECK (total_installments > 0),
			remaining_installments INTEGER NOT NULL,
			start_date TIMESTAMPTZ NOT NULL,
			last_payment_date TIMESTAMPTZ,
			next_payment_date TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT installments_remaining_range CHECK (remaining_installments BETWEEN 0 AND total_installments)
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id BIGSERIAL PRIMARY KEY,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			description TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			vat_amount NUMERIC NOT NULL DEFAULT 0,
			affects_cost_per_distance BOOLEAN NOT NULL DEFAULT TRUE,
			payment_method TEXT NOT NULL DEFAULT 'cash',
			installment_id BIGINT REFERENCES installments(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		// Installment periods carry total/n unrounded.
		`ALTER TABLE installments ALTER COLUMN total_amount TYPE NUMERIC`,
		`ALTER TABLE installments ALTER COLUMN monthly_amount TYPE NUMERIC`,
		`ALTER TABLE installments ADD COLUMN IF NOT EXISTS vat_amount NUMERIC NOT NULL DEFAULT 0`,
		`ALTER TABLE installments ADD COLUMN IF NOT EXISTS affects_cost_per_distance BOOLEAN NOT NULL DEFAULT FALSE`,
		`ALTER TABLE expenses ALTER COLUMN amount TYPE NUMERIC`,
		`ALTER TABLE expenses ALTER COLUMN vat_amount TYPE NUMERIC`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_occurred_at ON expenses(occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_installment_id ON expenses(installment_id)`,
		`CREATE TABLE IF NOT EXISTS recurring_expenses (
			id BIGSERIAL PRIMARY KEY,
			description TEXT NOT NULL,
			amount NUMERIC(12, 2) NOT NULL,
			vat_amount NUMERIC(12, 2) NOT NULL DEFAULT 0,
			affects_cost_per_distance BOOLEAN NOT NULL DEFAULT TRUE,
			frequency TEXT NOT NULL CHECK (frequency IN ('monthly', 'yearly', 'quarterly')),
			anchor_day INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for i, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
