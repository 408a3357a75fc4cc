package bot

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/yelinaung/taxi-ledger/internal/logger"
)

const (
	// ReminderCheckInterval is how often the reminder loop checks whether to send reminders.
	ReminderCheckInterval = 30 * time.Minute
	// ReminderTimeout is the maximum time a single reminder check can take.
	ReminderTimeout = 2 * time.Minute
)

// startShiftReminderLoop reminds the whitelisted users once a day, at the
// configured hour, when a shift is still open.
func (b *Bot) startShiftReminderLoop(ctx context.Context) {
	if !b.cfg.ShiftReminderEnabled {
		logger.Log.Info().Msg("Shift reminder is disabled")
		return
	}

	logger.Log.Info().
		Int("hour", b.cfg.ReminderHour).
		Str("timezone", b.engine.Location().String()).
		Msg("Shift reminder loop started")

	var reminded string
	ticker := time.NewTicker(ReminderCheckInterval)
	defer ticker.Stop()

	select {
	case <-ctx.Done():
		logger.Log.Info().Msg("Shift reminder loop stopped")
		return
	default:
	}

	// Run one check immediately so reminders aren't skipped when the process
	// starts during the configured reminder hour.
	b.checkShiftReminder(ctx, &reminded, b.engine.Now())

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info().Msg("Shift reminder loop stopped")
			return
		case <-ticker.C:
			b.checkShiftReminder(ctx, &reminded, b.engine.Now())
		}
	}
}

// checkShiftReminder sends the reminder when it is the reminder hour, a
// shift is open and no reminder went out today. reminded holds the date of
// the last reminder.
func (b *Bot) checkShiftReminder(ctx context.Context, reminded *string, now time.Time) {
	if now.Hour() != b.cfg.ReminderHour {
		return
	}
	today := now.Format("2006-01-02")
	if *reminded == today {
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, ReminderTimeout)
	defer cancel()

	dash, err := b.engine.Dashboard(checkCtx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to read dashboard for shift reminder")
		return
	}
	if !dash.HasShift() || !dash.Shift.Active {
		return
	}

	text := fmt.Sprintf(
		"🕚 Shift #%d has been running since %s. Don't forget to close it with <code>/endshift &lt;odometer&gt;</code>.\n\nSo far: %d jobs, %s",
		dash.Shift.ID, dash.Shift.StartTime.Format(displayDateTime), dash.JobCount, money(dash.CurrencySymbol, dash.Revenue),
	)
	for _, userID := range b.cfg.WhitelistedUserIDs {
		reply(checkCtx, b.messageSender, userID, text)
	}

	*reminded = today
	logger.Log.Debug().Msg("Sent shift reminder")
}
