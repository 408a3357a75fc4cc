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

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func createShift(t *testing.T, repo *ShiftRepository, start time.Time, odometer string, active bool) *models.Shift {
	t.Helper()

	shift := &models.Shift{
		StartTime:     start,
		StartOdometer: decimal.RequireFromString(odometer),
		Active:        active,
	}
	require.NoError(t, repo.Create(context.Background(), shift))
	require.NotZero(t, shift.ID)
	return shift
}

func TestShiftRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	tx := database.TestTx(t)
	repo := NewShiftRepository(tx)
	ctx := context.Background()

	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	shift := createShift(t, repo, start, "1000", false)

	got, err := repo.GetByID(ctx, shift.ID)
	require.NoError(t, err)
	require.True(t, got.StartTime.Equal(start))
	require.True(t, got.StartOdometer.Equal(decimal.NewFromInt(1000)))
	require.Nil(t, got.EndTime)
	require.Nil(t, got.EndOdometer)
	require.False(t, got.Active)

	_, err = repo.GetByID(ctx, shift.ID+1000000)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestShiftRepository_GetActive(t *testing.T) {
	t.Parallel()
	tx := database.TestTx(t)
	repo := NewShiftRepository(tx)
	ctx := context.Background()

	// Clear any committed active shift from the transaction's view.
	_, err := tx.Exec(ctx, `UPDATE shifts SET active = FALSE WHERE active`)
	require.NoError(t, err)

	got, err := repo.GetActive(ctx)
	require.NoError(t, err)
	require.Nil(t, got)

	shift := createShift(t, repo, time.Now().UTC(), "500", true)

	got, err = repo.GetActive(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, shift.ID, got.ID)
}

func TestShiftRepository_Update(t *testing.T) {
	t.Parallel()
	tx := database.TestTx(t)
	repo := NewShiftRepository(tx)
	ctx := context.Background()

	shift := createShift(t, repo, time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC), "1000", false)

	end := time.Date(2024, 3, 2, 16, 0, 0, 0, time.UTC)
	shift.EndTime = &end
	shift.EndOdometer = decPtr("1120")
	shift.VehicleCost = decPtr("36.00")
	require.NoError(t, repo.Update(ctx, shift))

	got, err := repo.GetByID(ctx, shift.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndTime)
	require.True(t, got.EndTime.Equal(end))
	require.True(t, got.EndOdometer.Equal(decimal.NewFromInt(1120)))
	require.True(t, got.VehicleCost.Equal(decimal.RequireFromString("36")))

	t.Run("missing shift", func(t *testing.T) {
		missing := &models.Shift{ID: shift.ID + 1000000, StartTime: end}
		require.ErrorIs(t, repo.Update(ctx, missing), ErrNotFound)
	})
}

func TestShiftRepository_Summaries(t *testing.T) {
	t.Parallel()
	tx := database.TestTx(t)
	shifts := NewShiftRepository(tx)
	jobs := NewJobRepository(tx)
	ctx := context.Background()

	// Far-future dates keep this range clear of other rows.
	day := time.Date(2091, 5, 10, 8, 0, 0, 0, time.UTC)
	withJobs := createShift(t, shifts, day, "1000", false)
	empty := createShift(t, shifts, day.Add(24*time.Hour), "1200", false)

	for _, j := range []models.Job{
		{ShiftID: withJobs.ID, Revenue: decimal.NewFromInt(20), ReceiptAmount: decPtr("15"), Odometer: decPtr("1010")},
		{ShiftID: withJobs.ID, Revenue: decimal.NewFromInt(30), Odometer: decPtr("1040")},
	} {
		j.Timestamp = day.Add(time.Hour)
		j.PaymentType = models.PaymentTypeCash
		j.Paid = true
		require.NoError(t, jobs.Create(ctx, &j))
	}

	got, err := shifts.GetSummariesByDateRange(ctx, day, day.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first.
	require.Equal(t, empty.ID, got[0].Shift.ID)
	require.Equal(t, 0, got[0].JobCount)
	require.True(t, got[0].TotalRevenue.IsZero())
	require.Nil(t, got[0].MaxJobOdometer)

	require.Equal(t, withJobs.ID, got[1].Shift.ID)
	require.Equal(t, 2, got[1].JobCount)
	require.True(t, got[1].TotalRevenue.Equal(decimal.NewFromInt(50)))
	require.True(t, got[1].TotalReceipts.Equal(decimal.NewFromInt(15)))
	require.NotNil(t, got[1].MaxJobOdometer)
	require.True(t, got[1].MaxJobOdometer.Equal(decimal.NewFromInt(1040)))

	t.Run("range bounds are inclusive", func(t *testing.T) {
		got, err := shifts.GetSummariesByDateRange(ctx, day, day)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, withJobs.ID, got[0].Shift.ID)
	})

	t.Run("all summaries include both shifts", func(t *testing.T) {
		all, err := shifts.GetSummaries(ctx)
		require.NoError(t, err)
		ids := make(map[int64]bool)
		for _, s := range all {
			ids[s.Shift.ID] = true
		}
		require.True(t, ids[withJobs.ID])
		require.True(t, ids[empty.ID])
	})
}
