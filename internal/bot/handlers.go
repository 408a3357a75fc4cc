package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/taxi-ledger/internal/engine"
	"gitlab.com/yelinaung/taxi-ledger/internal/logger"
)

// reply sends an HTML message to chatID.
func reply(ctx context.Context, tg TelegramAPI, chatID int64, text string) {
	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to send message")
	}
}

// replyError explains an engine error to the user. Storage failures are
// logged and reported generically.
func replyError(ctx context.Context, tg TelegramAPI, chatID int64, op string, err error) {
	var text string
	switch {
	case errors.Is(err, engine.ErrNoActiveShift):
		text = "❌ No shift is running. Start one with <code>/startshift &lt;odometer&gt;</code>"
	case errors.Is(err, engine.ErrShiftAlreadyActive):
		text = "❌ A shift is already running. End it with <code>/endshift &lt;odometer&gt;</code>"
	case errors.Is(err, engine.ErrOdometerBelowStart):
		text = "❌ The odometer reading is below the shift's starting reading."
	case engine.IsNotFound(err):
		text = "❌ Not found."
	case engine.IsClientError(err):
		text = "❌ " + escapeHTML(err.Error())
	default:
		logger.Log.Error().Err(err).Str("op", op).Msg("Operation failed")
		text = "❌ Something went wrong. Please try again."
	}
	reply(ctx, tg, chatID, text)
}

// replyUsage reports a malformed command with its usage line.
func replyUsage(ctx context.Context, tg TelegramAPI, chatID int64, err error, usage string) {
	text := "❌ Usage: " + usage
	if err != nil {
		text = fmt.Sprintf("❌ %s\n\nUsage: %s", escapeHTML(err.Error()), usage)
	}
	reply(ctx, tg, chatID, text)
}

// currencySymbol returns the configured symbol, falling back to the default
// when the preferences cannot be read.
func (b *Bot) currencySymbol(ctx context.Context) string {
	settings, err := b.engine.Settings(ctx)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to read settings")
		return "€"
	}
	return settings.CurrencySymbol
}

// handleStart handles the /start command.
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

// handleStartCore is the testable implementation of handleStart.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	firstName := ""
	if update.Message.From != nil {
		firstName = update.Message.From.FirstName
	}

	text := fmt.Sprintf(`👋 Welcome%s!

I keep your taxi books: shifts, fares, expenses, VAT and what you owe in the months ahead.

<b>Quick Start:</b>
• <code>/startshift 120500</code> - start a shift at the odometer reading
• <code>/job 15 receipt=15</code> - record a fare
• <code>/endshift 120640</code> - close the shift
• Send a photo of an invoice to record it as an expense

Use /help to see all available commands.`,
		formatGreeting(firstName))

	reply(ctx, tg, update.Message.Chat.ID, text)
}

// handleHelp handles the /help command.
func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

// handleHelpCore is the testable implementation of handleHelp.
func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := `📚 <b>Available Commands</b>

<b>Shifts:</b>
• <code>/startshift &lt;odometer&gt;</code> - Start a shift
• <code>/endshift &lt;odometer&gt;</code> - End the running shift
• <code>/shift</code> - Live dashboard
• <code>/editshift &lt;id&gt; [start=&lt;km&gt;] [end=&lt;km&gt;]</code> - Correct readings
• <code>/deleteshift &lt;id&gt;</code> - Delete a shift and its jobs

<b>Jobs:</b>
• <code>/job &lt;revenue&gt; [receipt=&lt;amount&gt;] [odo=&lt;km&gt;] [pay=cash|card|contract] [unpaid] [notes]</code>
• <code>/editjob &lt;id&gt; &lt;same as /job&gt;</code> - Replace a job
• <code>/deletejob &lt;id&gt;</code> - Delete a job
• <code>/receivables</code> - Unpaid jobs
• <code>/paid &lt;id&gt;</code> - Mark a job as paid

<b>Expenses:</b>
• <code>/expense &lt;amount&gt; &lt;description&gt; [vat=13|24|&lt;amount&gt;] [pay=cash|bank|card] [x&lt;n&gt;] [cpk]</code>
  <i>cpk</i> counts it as a vehicle running cost, <i>x12</i> splits a card payment into 12 installments
• <code>/expenses [month|year] [date]</code> - List expenses
• <code>/deleteexpense &lt;id&gt;</code> - Delete an expense
• <code>/recurring</code> - List recurring expenses
• <code>/recurring add &lt;amount&gt; &lt;monthly|quarterly|yearly&gt; &lt;day&gt; &lt;description&gt;</code>
• <code>/recurring delete &lt;id&gt;</code>
• <code>/apply &lt;id&gt;</code> - Record a recurring expense as paid today
• <code>/installments</code> - Installment plans

<b>Reports:</b>
• <code>/report [month|year] [2024-03]</code> - Income, expenses and VAT
• <code>/export [month|year] [date] [xlsx]</code> - CSV or Excel export
• <code>/chart [month|year] [date]</code> - Expense breakdown chart
• <code>/forecast</code> - Obligations for the next 12 months

<b>Settings:</b>
• <code>/currency [symbol]</code> - Show or set the currency symbol
• <code>/baseline [&lt;km&gt; &lt;amount&gt;]</code> - Distance and spend before you started logging`

	reply(ctx, tg, update.Message.Chat.ID, text)
}
