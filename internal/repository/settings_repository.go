package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/taxi-ledger/internal/database"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// Setting keys.
const (
	SettingCurrencySymbol   = "currency_symbol"
	SettingBaselineDistance = "baseline_distance"
	SettingBaselineExpense  = "baseline_expense"
)

// SettingsRepository stores driver preferences as key/value rows.
type SettingsRepository struct {
	db database.Querier
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db database.Querier) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored preferences, falling back to defaults for missing keys.
func (r *SettingsRepository) Get(ctx context.Context) (models.Settings, error) {
	settings := models.DefaultSettings()

	rows, err := r.db.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return settings, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return settings, fmt.Errorf("failed to scan setting: %w", err)
		}
		switch key {
		case SettingCurrencySymbol:
			settings.CurrencySymbol = value
		case SettingBaselineDistance, SettingBaselineExpense:
			d, err := decimal.NewFromString(value)
			if err != nil {
				return settings, fmt.Errorf("invalid %s setting %q: %w", key, value, err)
			}
			if key == SettingBaselineDistance {
				settings.BaselineDistance = d
			} else {
				settings.BaselineExpense = d
			}
		}
	}
	if err := rows.Err(); err != nil {
		return settings, fmt.Errorf("error iterating settings: %w", err)
	}
	return settings, nil
}

// Save upserts every preference.
func (r *SettingsRepository) Save(ctx context.Context, settings models.Settings) error {
	values := map[string]string{
		SettingCurrencySymbol:   settings.CurrencySymbol,
		SettingBaselineDistance: settings.BaselineDistance.String(),
		SettingBaselineExpense:  settings.BaselineExpense.String(),
	}
	for key, value := range values {
		if _, err := r.db.Exec(ctx, `
			INSERT INTO settings (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, key, value); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}
	return nil
}
