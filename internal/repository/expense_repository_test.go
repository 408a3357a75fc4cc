package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/taxi-ledger/internal/database"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

func TestExpenseRepository_CRUD(t *testing.T) {
	t.Parallel()
	tx := database.TestTx(t)
	repo := NewExpenseRepository(tx)
	ctx := context.Background()

	expense := &models.Expense{
		Timestamp:              time.Date(2092, 1, 15, 10, 0, 0, 0, time.UTC),
		Description:            "Tyres",
		Amount:                 decimal.RequireFromString("400.00"),
		VATAmount:              decimal.RequireFromString("77.42"),
		AffectsCostPerDistance: true,
		PaymentMethod:          models.PaymentMethodBank,
	}
	require.NoError(t, repo.Create(ctx, expense))
	require.NotZero(t, expense.ID)

	got, err := repo.GetByID(ctx, expense.ID)
	require.NoError(t, err)
	require.Equal(t, "Tyres", got.Description)
	require.True(t, got.VATAmount.Equal(decimal.RequireFromString("77.42")))
	require.Equal(t, models.PaymentMethodBank, got.PaymentMethod)
	require.Nil(t, got.InstallmentID)

	expense.Description = "Winter tyres"
	expense.AffectsCostPerDistance = false
	require.NoError(t, repo.Update(ctx, expense))

	got, err = repo.GetByID(ctx, expense.ID)
	require.NoError(t, err)
	require.Equal(t, "Winter tyres", got.Description)
	require.False(t, got.AffectsCostPerDistance)

	require.NoError(t, repo.Delete(ctx, expense.ID))
	_, err = repo.GetByID(ctx, expense.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.Update(ctx, expense), ErrNotFound)
}

func TestExpenseRepository_GetByDateRange(t *testing.T) {
	t.Parallel()
	tx := database.TestTx(t)
	repo := NewExpenseRepository(tx)
	ctx := context.Background()

	start := time.Date(2093, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2093, 6, 30, 23, 59, 59, 0, time.UTC)
	for _, ts := range []time.Time{start, start.Add(10 * 24 * time.Hour), end, end.Add(time.Second)} {
		require.NoError(t, repo.Create(ctx, &models.Expense{
			Timestamp:     ts,
			Description:   "Fuel",
			Amount:        decimal.NewFromInt(60),
			PaymentMethod: models.PaymentMethodCash,
		}))
	}

	got, err := repo.GetByDateRange(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.True(t, got[0].Timestamp.Equal(end))
	require.True(t, got[2].Timestamp.Equal(start))
}

func TestExpenseRepository_InstallmentLink(t *testing.T) {
	t.Parallel()
	tx := database.TestTx(t)
	installments := NewInstallmentRepository(tx)
	repo := NewExpenseRepository(tx)
	ctx := context.Background()

	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	inst := &models.Installment{
		Description:           "Phone",
		TotalAmount:           decimal.NewFromInt(300),
		MonthlyAmount:         decimal.NewFromInt(100),
		TotalInstallments:     3,
		RemainingInstallments: 2,
		StartDate:             now,
		LastPaymentDate:       &now,
		NextPaymentDate:       time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, installments.Create(ctx, inst))

	expense := &models.Expense{
		Timestamp:     now,
		Description:   "Phone (1/3)",
		Amount:        decimal.NewFromInt(100),
		PaymentMethod: models.PaymentMethodCard,
		InstallmentID: &inst.ID,
	}
	require.NoError(t, repo.Create(ctx, expense))

	require.NoError(t, installments.Delete(ctx, inst.ID))

	got, err := repo.GetByID(ctx, expense.ID)
	require.NoError(t, err)
	require.Nil(t, got.InstallmentID)
	require.True(t, got.Amount.Equal(decimal.NewFromInt(100)))
}
