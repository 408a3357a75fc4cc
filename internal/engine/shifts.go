package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/ledger"
	"gitlab.com/yelinaung/taxi-ledger/internal/logger"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// StartShift opens a shift at the given odometer reading.
func (e *Engine) StartShift(ctx context.Context, odometer decimal.Decimal) (*models.Shift, error) {
	shift := &models.Shift{
		StartTime:     e.now(),
		StartOdometer: odometer,
		Active:        true,
	}
	if err := shift.Validate(); err != nil {
		return nil, invalid("odometer", err)
	}

	err := e.update(ctx, "StartShift", func(ctx context.Context, w ledger.Writer) error {
		active, err := w.ActiveShift(ctx)
		if err != nil {
			return err
		}
		if active != nil {
			return fmt.Errorf("%w: shift %d", ErrShiftAlreadyActive, active.ID)
		}
		return w.InsertShift(ctx, shift)
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info().Int64("shift_id", shift.ID).Msg("Shift started")
	return shift, nil
}

// EndShift closes the active shift at the given odometer reading and stores
// its vehicle cost at the cost per kilometre in effect just before closing.
func (e *Engine) EndShift(ctx context.Context, odometer decimal.Decimal) (*models.Shift, error) {
	var ended *models.Shift
	err := e.update(ctx, "EndShift", func(ctx context.Context, w ledger.Writer) error {
		shift, err := w.ActiveShift(ctx)
		if err != nil {
			return err
		}
		if shift == nil {
			return ErrNoActiveShift
		}
		if odometer.LessThan(shift.StartOdometer) {
			return fmt.Errorf("%w: %s < %s", ErrOdometerBelowStart, odometer, shift.StartOdometer)
		}

		in, _, _, err := costInputs(ctx, w)
		if err != nil {
			return err
		}
		cost := finance.VehicleCost(odometer.Sub(shift.StartOdometer), finance.CostPerDistance(in)).Round(2)

		end := e.now()
		shift.EndTime = &end
		shift.EndOdometer = &odometer
		shift.VehicleCost = &cost
		shift.Active = false
		if err := shift.Validate(); err != nil {
			return invalid("odometer", err)
		}
		if err := w.UpdateShift(ctx, shift); err != nil {
			return err
		}
		ended = shift
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info().
		Int64("shift_id", ended.ID).
		Str("vehicle_cost", ended.VehicleCost.String()).
		Msg("Shift ended")
	return ended, nil
}

// ShiftUpdate holds the shift fields to change. Nil fields are kept.
type ShiftUpdate struct {
	StartTime     *time.Time
	EndTime       *time.Time
	StartOdometer *decimal.Decimal
	EndOdometer   *decimal.Decimal
}

// UpdateShift edits a shift. An ended shift has its vehicle cost recomputed
// from the edited distance. An active shift cannot be given an end time; use
// EndShift.
func (e *Engine) UpdateShift(ctx context.Context, id int64, upd ShiftUpdate) (*models.Shift, error) {
	var out *models.Shift
	err := e.update(ctx, "UpdateShift", func(ctx context.Context, w ledger.Writer) error {
		shift, err := w.Shift(ctx, id)
		if err != nil {
			return err
		}
		if upd.StartTime != nil {
			shift.StartTime = *upd.StartTime
		}
		if upd.StartOdometer != nil {
			shift.StartOdometer = *upd.StartOdometer
		}
		if upd.EndTime != nil {
			shift.EndTime = upd.EndTime
		}
		if upd.EndOdometer != nil {
			shift.EndOdometer = upd.EndOdometer
		}
		if err := shift.Validate(); err != nil {
			return invalid("shift", err)
		}

		if !shift.Active && shift.EndOdometer != nil {
			in, _, _, err := costInputs(ctx, w)
			if err != nil {
				return err
			}
			cost := finance.VehicleCost(shift.EndOdometer.Sub(shift.StartOdometer), finance.CostPerDistance(in)).Round(2)
			shift.VehicleCost = &cost
		}

		if err := w.UpdateShift(ctx, shift); err != nil {
			return err
		}
		out = shift
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteShift removes a shift together with its jobs.
func (e *Engine) DeleteShift(ctx context.Context, id int64) error {
	err := e.update(ctx, "DeleteShift", func(ctx context.Context, w ledger.Writer) error {
		return w.DeleteShift(ctx, id)
	})
	if err == nil {
		logger.Log.Info().Int64("shift_id", id).Msg("Shift deleted")
	}
	return err
}

// JobInput is a fare as entered by the driver.
type JobInput struct {
	Revenue       decimal.Decimal
	ReceiptAmount *decimal.Decimal
	Odometer      *decimal.Decimal
	Notes         string
	PaymentType   models.PaymentType
	// Paid defaults to true.
	Paid *bool
}

func (in JobInput) apply(job *models.Job) {
	job.Revenue = in.Revenue
	job.ReceiptAmount = in.ReceiptAmount
	job.Odometer = in.Odometer
	job.Notes = nil
	if notes := strings.TrimSpace(in.Notes); notes != "" {
		job.Notes = &notes
	}
	job.PaymentType = in.PaymentType
	if job.PaymentType == "" {
		job.PaymentType = models.PaymentTypeCash
	}
	job.Paid = true
	if in.Paid != nil {
		job.Paid = *in.Paid
	}
}

func checkJobOdometer(job *models.Job, shift *models.Shift) error {
	if job.Odometer != nil && job.Odometer.LessThan(shift.StartOdometer) {
		return fmt.Errorf("%w: %s < %s", ErrOdometerBelowStart, job.Odometer, shift.StartOdometer)
	}
	return nil
}

// AddJob records a fare on the active shift.
func (e *Engine) AddJob(ctx context.Context, in JobInput) (*models.Job, error) {
	job := &models.Job{Timestamp: e.now()}
	in.apply(job)
	if err := job.Validate(); err != nil {
		return nil, invalid("job", err)
	}

	err := e.update(ctx, "AddJob", func(ctx context.Context, w ledger.Writer) error {
		shift, err := w.ActiveShift(ctx)
		if err != nil {
			return err
		}
		if shift == nil {
			return ErrNoActiveShift
		}
		if err := checkJobOdometer(job, shift); err != nil {
			return err
		}
		job.ShiftID = shift.ID
		return w.InsertJob(ctx, job)
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info().
		Int64("job_id", job.ID).
		Int64("shift_id", job.ShiftID).
		Str("payment_type", string(job.PaymentType)).
		Msg("Job added")
	return job, nil
}

// UpdateJob replaces a job's fields. Its shift and timestamp are kept.
func (e *Engine) UpdateJob(ctx context.Context, id int64, in JobInput) (*models.Job, error) {
	var out *models.Job
	err := e.update(ctx, "UpdateJob", func(ctx context.Context, w ledger.Writer) error {
		job, err := w.Job(ctx, id)
		if err != nil {
			return err
		}
		in.apply(job)
		if err := job.Validate(); err != nil {
			return invalid("job", err)
		}
		shift, err := w.Shift(ctx, job.ShiftID)
		if err != nil {
			return err
		}
		if err := checkJobOdometer(job, shift); err != nil {
			return err
		}
		if err := w.UpdateJob(ctx, job); err != nil {
			return err
		}
		out = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteJob removes a job.
func (e *Engine) DeleteJob(ctx context.Context, id int64) error {
	return e.update(ctx, "DeleteJob", func(ctx context.Context, w ledger.Writer) error {
		return w.DeleteJob(ctx, id)
	})
}

// MarkJobPaid settles a receivable.
func (e *Engine) MarkJobPaid(ctx context.Context, id int64) (*models.Job, error) {
	var out *models.Job
	err := e.update(ctx, "MarkJobPaid", func(ctx context.Context, w ledger.Writer) error {
		job, err := w.Job(ctx, id)
		if err != nil {
			return err
		}
		if job.Paid {
			out = job
			return nil
		}
		job.Paid = true
		if err := w.UpdateJob(ctx, job); err != nil {
			return err
		}
		out = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
