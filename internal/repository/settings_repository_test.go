package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/taxi-ledger/internal/database"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

func TestSettingsRepository(t *testing.T) {
	t.Parallel()
	tx := database.TestTx(t)
	repo := NewSettingsRepository(tx)
	ctx := context.Background()

	_, err := tx.Exec(ctx, `DELETE FROM settings`)
	require.NoError(t, err)

	t.Run("defaults when empty", func(t *testing.T) {
		got, err := repo.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, models.DefaultCurrencySymbol, got.CurrencySymbol)
		require.True(t, got.BaselineDistance.IsZero())
	})

	t.Run("save and reload", func(t *testing.T) {
		want := models.Settings{
			CurrencySymbol:   "$",
			BaselineDistance: decimal.NewFromInt(15000),
			BaselineExpense:  decimal.RequireFromString("4500.50"),
		}
		require.NoError(t, repo.Save(ctx, want))
		require.NoError(t, repo.Save(ctx, want))

		got, err := repo.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, "$", got.CurrencySymbol)
		require.True(t, got.BaselineDistance.Equal(want.BaselineDistance))
		require.True(t, got.BaselineExpense.Equal(want.BaselineExpense))
	})

	t.Run("corrupt value", func(t *testing.T) {
		_, err := tx.Exec(ctx, `UPDATE settings SET value = 'abc' WHERE key = $1`, SettingBaselineExpense)
		require.NoError(t, err)
		_, err = repo.Get(ctx)
		require.Error(t, err)
	})
}
