package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

var memStart = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func seedShift(t *testing.T, store Store, active bool, start time.Time) *models.Shift {
	t.Helper()
	shift := &models.Shift{StartTime: start, StartOdometer: decimal.NewFromInt(1000), Active: active}
	err := store.Update(context.Background(), func(w Writer) error {
		return w.InsertShift(context.Background(), shift)
	})
	require.NoError(t, err)
	return shift
}

func TestMemory_UpdatePublishesTouchedTopics(t *testing.T) {
	t.Parallel()
	store := NewMemory()
	ch, cancel := store.Changes().Subscribe()
	defer cancel()
	ctx := context.Background()

	err := store.Update(ctx, func(w Writer) error {
		shift := &models.Shift{StartTime: memStart, StartOdometer: decimal.NewFromInt(1000), Active: true}
		if err := w.InsertShift(ctx, shift); err != nil {
			return err
		}
		return w.InsertJob(ctx, &models.Job{ShiftID: shift.ID, Revenue: decimal.NewFromInt(10), Timestamp: memStart})
	})
	require.NoError(t, err)

	change := <-ch
	require.Equal(t, uint64(1), change.Version)
	require.Equal(t, []Topic{TopicShifts, TopicJobs}, change.Topics)
}

func TestMemory_FailedUpdateRollsBackAndPublishesNothing(t *testing.T) {
	t.Parallel()
	store := NewMemory()
	ch, cancel := store.Changes().Subscribe()
	defer cancel()
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.Update(ctx, func(w Writer) error {
		inst := &models.Installment{Description: "Phone", TotalInstallments: 3, RemainingInstallments: 3}
		if err := w.InsertInstallment(ctx, inst); err != nil {
			return err
		}
		if err := w.InsertExpense(ctx, &models.Expense{Description: "Phone (1/3)", InstallmentID: &inst.ID}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = store.View(ctx, func(r Reader) error {
		insts, err := r.Installments(ctx)
		require.NoError(t, err)
		require.Empty(t, insts)
		exps, err := r.Expenses(ctx)
		require.NoError(t, err)
		require.Empty(t, exps)
		return nil
	})
	require.NoError(t, err)

	select {
	case c := <-ch:
		t.Fatalf("unexpected change %+v", c)
	default:
	}
	require.Equal(t, uint64(0), store.Changes().Version())
}

func TestMemory_SingleActiveShift(t *testing.T) {
	t.Parallel()
	store := NewMemory()
	ctx := context.Background()

	seedShift(t, store, true, memStart)

	err := store.Update(ctx, func(w Writer) error {
		return w.InsertShift(ctx, &models.Shift{StartTime: memStart, Active: true})
	})
	require.ErrorIs(t, err, ErrConflict)
}

func TestMemory_ReadsReturnCopies(t *testing.T) {
	t.Parallel()
	store := NewMemory()
	ctx := context.Background()

	shift := seedShift(t, store, false, memStart)
	shift.EndOdometer = decPtr("1200")
	require.NoError(t, store.Update(ctx, func(w Writer) error { return w.UpdateShift(ctx, shift) }))

	// Mutating the caller's value after the write must not leak into the store.
	*shift.EndOdometer = decimal.NewFromInt(9999)

	require.NoError(t, store.View(ctx, func(r Reader) error {
		got, err := r.Shift(ctx, shift.ID)
		require.NoError(t, err)
		require.True(t, got.EndOdometer.Equal(decimal.NewFromInt(1200)))
		return nil
	}))
}

func TestMemory_SummariesAndRanges(t *testing.T) {
	t.Parallel()
	store := NewMemory()
	ctx := context.Background()

	older := seedShift(t, store, false, memStart)
	newer := seedShift(t, store, true, memStart.Add(24*time.Hour))

	require.NoError(t, store.Update(ctx, func(w Writer) error {
		for _, j := range []models.Job{
			{ShiftID: older.ID, Revenue: decimal.NewFromInt(20), ReceiptAmount: decPtr("15"), Odometer: decPtr("1010")},
			{ShiftID: older.ID, Revenue: decimal.NewFromInt(30), Odometer: decPtr("1040"), Paid: false},
			{ShiftID: newer.ID, Revenue: decimal.NewFromInt(5), Paid: true},
		} {
			j.Timestamp = memStart
			if err := w.InsertJob(ctx, &j); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, store.View(ctx, func(r Reader) error {
		all, err := r.ShiftSummaries(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		require.Equal(t, newer.ID, all[0].Shift.ID)
		require.Equal(t, older.ID, all[1].Shift.ID)
		require.Equal(t, 2, all[1].JobCount)
		require.True(t, all[1].TotalRevenue.Equal(decimal.NewFromInt(50)))
		require.True(t, all[1].TotalReceipts.Equal(decimal.NewFromInt(15)))
		require.True(t, all[1].MaxJobOdometer.Equal(decimal.NewFromInt(1040)))
		require.Nil(t, all[0].MaxJobOdometer)

		inRange, err := r.ShiftSummariesInRange(ctx, memStart, memStart)
		require.NoError(t, err)
		require.Len(t, inRange, 1)
		require.Equal(t, older.ID, inRange[0].Shift.ID)

		unpaid, err := r.UnpaidJobs(ctx)
		require.NoError(t, err)
		require.Len(t, unpaid, 2)

		active, err := r.ActiveShift(ctx)
		require.NoError(t, err)
		require.Equal(t, newer.ID, active.ID)
		return nil
	}))
}

func TestMemory_DeleteCascades(t *testing.T) {
	t.Parallel()
	store := NewMemory()
	ctx := context.Background()

	shift := seedShift(t, store, false, memStart)
	var instID int64
	require.NoError(t, store.Update(ctx, func(w Writer) error {
		if err := w.InsertJob(ctx, &models.Job{ShiftID: shift.ID, Revenue: decimal.NewFromInt(10), Timestamp: memStart}); err != nil {
			return err
		}
		inst := &models.Installment{Description: "Tablet", TotalInstallments: 2, RemainingInstallments: 1}
		if err := w.InsertInstallment(ctx, inst); err != nil {
			return err
		}
		instID = inst.ID
		return w.InsertExpense(ctx, &models.Expense{Description: "Tablet (1/2)", InstallmentID: &inst.ID, Timestamp: memStart})
	}))

	require.NoError(t, store.Update(ctx, func(w Writer) error {
		if err := w.DeleteShift(ctx, shift.ID); err != nil {
			return err
		}
		return w.DeleteInstallment(ctx, instID)
	}))

	require.NoError(t, store.View(ctx, func(r Reader) error {
		jobs, err := r.JobsForShift(ctx, shift.ID)
		require.NoError(t, err)
		require.Empty(t, jobs)

		exps, err := r.Expenses(ctx)
		require.NoError(t, err)
		require.Len(t, exps, 1)
		require.Nil(t, exps[0].InstallmentID)
		return nil
	}))
}

func TestMemory_NotFound(t *testing.T) {
	t.Parallel()
	store := NewMemory()
	ctx := context.Background()

	err := store.Update(ctx, func(w Writer) error {
		return w.InsertJob(ctx, &models.Job{ShiftID: 42})
	})
	require.ErrorIs(t, err, ErrNotFound)

	err = store.View(ctx, func(r Reader) error {
		_, err := r.Expense(ctx, 7)
		return err
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_CancelledContext(t *testing.T) {
	t.Parallel()
	store := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.Update(ctx, func(Writer) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}

func TestMemory_SettingsDefaults(t *testing.T) {
	t.Parallel()
	store := NewMemory()
	ctx := context.Background()

	require.NoError(t, store.View(ctx, func(r Reader) error {
		s, err := r.Settings(ctx)
		require.NoError(t, err)
		require.Equal(t, models.DefaultSettings(), s)
		return nil
	}))
}
