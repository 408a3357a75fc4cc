package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	usageStartShift = "<code>/startshift &lt;odometer&gt;</code>"
	usageEndShift   = "<code>/endshift &lt;odometer&gt;</code>"
	usageEditShift  = "<code>/editshift &lt;id&gt; [start=&lt;km&gt;] [end=&lt;km&gt;]</code>"
	usageJob        = "<code>/job &lt;revenue&gt; [receipt=&lt;amount&gt;] [odo=&lt;km&gt;] [pay=cash|card|contract] [unpaid] [notes]</code>"
	usageEditJob    = "<code>/editjob &lt;id&gt; &lt;revenue&gt; [options]</code>"
)

// handleStartShift handles the /startshift command.
func (b *Bot) handleStartShift(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStartShiftCore(ctx, tgBot, update)
}

// handleStartShiftCore is the testable implementation of handleStartShift.
func (b *Bot) handleStartShiftCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	odometer, err := parseDecimal(extractCommandArgs(update.Message.Text))
	if err != nil {
		replyUsage(ctx, tg, chatID, nil, usageStartShift)
		return
	}

	shift, err := b.engine.StartShift(ctx, odometer)
	if err != nil {
		replyError(ctx, tg, chatID, "StartShift", err)
		return
	}

	reply(ctx, tg, chatID, fmt.Sprintf("🟢 Shift #%d started at %s\nOdometer: %s",
		shift.ID, shift.StartTime.Format("15:04"), km(shift.StartOdometer)))
}

// handleEndShift handles the /endshift command.
func (b *Bot) handleEndShift(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleEndShiftCore(ctx, tgBot, update)
}

// handleEndShiftCore is the testable implementation of handleEndShift.
func (b *Bot) handleEndShiftCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	odometer, err := parseDecimal(extractCommandArgs(update.Message.Text))
	if err != nil {
		replyUsage(ctx, tg, chatID, nil, usageEndShift)
		return
	}

	shift, err := b.engine.EndShift(ctx, odometer)
	if err != nil {
		replyError(ctx, tg, chatID, "EndShift", err)
		return
	}

	dash, err := b.engine.Dashboard(ctx)
	if err != nil {
		replyError(ctx, tg, chatID, "Dashboard", err)
		return
	}
	text := fmt.Sprintf("🏁 Shift #%d ended at %s\nDistance: %s\nVehicle cost: %s\n\n",
		shift.ID, shift.EndTime.Format("15:04"), km(shift.EndOdometer.Sub(shift.StartOdometer)),
		money(dash.CurrencySymbol, *shift.VehicleCost))
	reply(ctx, tg, chatID, text+formatDashboard(dash))
}

// handleShift handles the /shift command.
func (b *Bot) handleShift(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleShiftCore(ctx, tgBot, update)
}

// handleShiftCore is the testable implementation of handleShift.
func (b *Bot) handleShiftCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	dash, err := b.engine.Dashboard(ctx)
	if err != nil {
		replyError(ctx, tg, chatID, "Dashboard", err)
		return
	}
	reply(ctx, tg, chatID, formatDashboard(dash))
}

// handleEditShift handles the /editshift command.
func (b *Bot) handleEditShift(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleEditShiftCore(ctx, tgBot, update)
}

// handleEditShiftCore is the testable implementation of handleEditShift.
func (b *Bot) handleEditShiftCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, upd, err := ParseShiftEditArgs(extractCommandArgs(update.Message.Text))
	if err != nil {
		replyUsage(ctx, tg, chatID, err, usageEditShift)
		return
	}

	shift, err := b.engine.UpdateShift(ctx, id, upd)
	if err != nil {
		replyError(ctx, tg, chatID, "UpdateShift", err)
		return
	}

	text := fmt.Sprintf("✏️ Shift #%d updated. Start: %s", shift.ID, km(shift.StartOdometer))
	if shift.EndOdometer != nil {
		text += ", end: " + km(*shift.EndOdometer)
	}
	if shift.VehicleCost != nil {
		text += "\nVehicle cost: " + money(b.currencySymbol(ctx), *shift.VehicleCost)
	}
	reply(ctx, tg, chatID, text)
}

// handleDeleteShift handles the /deleteshift command.
func (b *Bot) handleDeleteShift(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleDeleteShiftCore(ctx, tgBot, update)
}

// handleDeleteShiftCore is the testable implementation of handleDeleteShift.
func (b *Bot) handleDeleteShiftCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, err := parseID(extractCommandArgs(update.Message.Text))
	if err != nil {
		replyUsage(ctx, tg, chatID, err, "<code>/deleteshift &lt;id&gt;</code>")
		return
	}
	if err := b.engine.DeleteShift(ctx, id); err != nil {
		replyError(ctx, tg, chatID, "DeleteShift", err)
		return
	}
	reply(ctx, tg, chatID, fmt.Sprintf("🗑 Shift #%d and its jobs deleted.", id))
}

// handleJob handles the /job command.
func (b *Bot) handleJob(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleJobCore(ctx, tgBot, update)
}

// handleJobCore is the testable implementation of handleJob.
func (b *Bot) handleJobCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	in, err := ParseJobArgs(extractCommandArgs(update.Message.Text))
	if err != nil {
		replyUsage(ctx, tg, chatID, err, usageJob)
		return
	}

	job, err := b.engine.AddJob(ctx, in)
	if err != nil {
		replyError(ctx, tg, chatID, "AddJob", err)
		return
	}

	text := "🚕 Job recorded: " + formatJob(job, b.currencySymbol(ctx))
	if dash, err := b.engine.Dashboard(ctx); err == nil {
		text += fmt.Sprintf("\nShift so far: %d jobs, %s", dash.JobCount, money(dash.CurrencySymbol, dash.Revenue))
	}
	reply(ctx, tg, chatID, text)
}

// handleEditJob handles the /editjob command.
func (b *Bot) handleEditJob(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleEditJobCore(ctx, tgBot, update)
}

// handleEditJobCore is the testable implementation of handleEditJob.
func (b *Bot) handleEditJobCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	idArg, rest, _ := strings.Cut(extractCommandArgs(update.Message.Text), " ")
	id, err := parseID(idArg)
	if err != nil {
		replyUsage(ctx, tg, chatID, err, usageEditJob)
		return
	}
	in, err := ParseJobArgs(rest)
	if err != nil {
		replyUsage(ctx, tg, chatID, err, usageEditJob)
		return
	}

	job, err := b.engine.UpdateJob(ctx, id, in)
	if err != nil {
		replyError(ctx, tg, chatID, "UpdateJob", err)
		return
	}
	reply(ctx, tg, chatID, "✏️ Job updated: "+formatJob(job, b.currencySymbol(ctx)))
}

// handleDeleteJob handles the /deletejob command.
func (b *Bot) handleDeleteJob(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleDeleteJobCore(ctx, tgBot, update)
}

// handleDeleteJobCore is the testable implementation of handleDeleteJob.
func (b *Bot) handleDeleteJobCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, err := parseID(extractCommandArgs(update.Message.Text))
	if err != nil {
		replyUsage(ctx, tg, chatID, err, "<code>/deletejob &lt;id&gt;</code>")
		return
	}
	if err := b.engine.DeleteJob(ctx, id); err != nil {
		replyError(ctx, tg, chatID, "DeleteJob", err)
		return
	}
	reply(ctx, tg, chatID, fmt.Sprintf("🗑 Job #%d deleted.", id))
}

// handleReceivables handles the /receivables command.
func (b *Bot) handleReceivables(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleReceivablesCore(ctx, tgBot, update)
}

// handleReceivablesCore is the testable implementation of handleReceivables.
func (b *Bot) handleReceivablesCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	recv, err := b.engine.Receivables(ctx)
	if err != nil {
		replyError(ctx, tg, chatID, "Receivables", err)
		return
	}
	if len(recv.Jobs) == 0 {
		reply(ctx, tg, chatID, "✅ No unpaid jobs.")
		return
	}

	symbol := b.currencySymbol(ctx)
	var sb strings.Builder
	sb.WriteString("💳 <b>Unpaid jobs</b>\n\n")
	for i := range recv.Jobs {
		fmt.Fprintf(&sb, "%s (%s)\n", formatJob(&recv.Jobs[i], symbol), recv.Jobs[i].Timestamp.Format(displayDate))
	}
	fmt.Fprintf(&sb, "\n<b>Total: %s</b>\nSettle with <code>/paid &lt;id&gt;</code>", money(symbol, recv.Total))
	reply(ctx, tg, chatID, sb.String())
}

// handlePaid handles the /paid command.
func (b *Bot) handlePaid(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handlePaidCore(ctx, tgBot, update)
}

// handlePaidCore is the testable implementation of handlePaid.
func (b *Bot) handlePaidCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, err := parseID(extractCommandArgs(update.Message.Text))
	if err != nil {
		replyUsage(ctx, tg, chatID, err, "<code>/paid &lt;job id&gt;</code>")
		return
	}
	job, err := b.engine.MarkJobPaid(ctx, id)
	if err != nil {
		replyError(ctx, tg, chatID, "MarkJobPaid", err)
		return
	}
	reply(ctx, tg, chatID, "✅ Paid: "+formatJob(job, b.currencySymbol(ctx)))
}
