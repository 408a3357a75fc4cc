package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
)

const (
	usageExpense   = "<code>/expense &lt;amount&gt; &lt;description&gt; [vat=13|24|&lt;amount&gt;] [pay=cash|bank|card] [x&lt;n&gt;] [cpk]</code>"
	usageRecurring = "<code>/recurring add &lt;amount&gt; &lt;monthly|quarterly|yearly&gt; &lt;day&gt; &lt;description&gt; [vat=...] [cpk]</code> or <code>/recurring delete &lt;id&gt;</code>"
	usageBaseline  = "<code>/baseline &lt;km&gt; &lt;amount&gt;</code>"
)

// handleExpense handles the /expense command.
func (b *Bot) handleExpense(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleExpenseCore(ctx, tgBot, update)
}

// handleExpenseCore is the testable implementation of handleExpense.
func (b *Bot) handleExpenseCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	in, err := ParseExpenseArgs(extractCommandArgs(update.Message.Text))
	if err != nil {
		replyUsage(ctx, tg, chatID, err, usageExpense)
		return
	}

	orig, err := b.engine.AddExpense(ctx, in)
	if err != nil {
		replyError(ctx, tg, chatID, "AddExpense", err)
		return
	}

	symbol := b.currencySymbol(ctx)
	text := "✅ Expense recorded: " + formatExpense(&orig.Expense, symbol)
	if inst := orig.Installment; inst != nil {
		text += fmt.Sprintf("\n💳 Installment plan #%d: %d × %s, next on %s",
			inst.ID, inst.TotalInstallments, money(symbol, inst.MonthlyAmount), inst.NextPaymentDate.Format(displayDate))
	}
	reply(ctx, tg, chatID, text)
}

// handleExpenses handles the /expenses command.
func (b *Bot) handleExpenses(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleExpensesCore(ctx, tgBot, update)
}

// handleExpensesCore is the testable implementation of handleExpenses.
func (b *Bot) handleExpensesCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	period, _ := ParsePeriodArgs(extractCommandArgs(update.Message.Text), b.engine.Now())
	expenses, err := b.engine.Expenses(ctx, period.Start, period.End)
	if err != nil {
		replyError(ctx, tg, chatID, "Expenses", err)
		return
	}
	if len(expenses) == 0 {
		reply(ctx, tg, chatID, fmt.Sprintf("📭 No expenses in %s.", escapeHTML(period.Label())))
		return
	}

	symbol := b.currencySymbol(ctx)
	total := decimal.Zero
	var sb strings.Builder
	fmt.Fprintf(&sb, "🧾 <b>Expenses, %s</b>\n\n", escapeHTML(period.Label()))
	for i := range expenses {
		total = total.Add(expenses[i].Amount)
		sb.WriteString(formatExpense(&expenses[i], symbol) + "\n")
	}
	fmt.Fprintf(&sb, "\n<b>Total: %s</b>", money(symbol, total))
	reply(ctx, tg, chatID, sb.String())
}

// handleDeleteExpense handles the /deleteexpense command.
func (b *Bot) handleDeleteExpense(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleDeleteExpenseCore(ctx, tgBot, update)
}

// handleDeleteExpenseCore is the testable implementation of handleDeleteExpense.
func (b *Bot) handleDeleteExpenseCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, err := parseID(extractCommandArgs(update.Message.Text))
	if err != nil {
		replyUsage(ctx, tg, chatID, err, "<code>/deleteexpense &lt;id&gt;</code>")
		return
	}
	if err := b.engine.DeleteExpense(ctx, id); err != nil {
		replyError(ctx, tg, chatID, "DeleteExpense", err)
		return
	}
	reply(ctx, tg, chatID, fmt.Sprintf("🗑 Expense #%d deleted.", id))
}

// handleRecurring handles the /recurring command and its add and delete
// subcommands.
func (b *Bot) handleRecurring(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleRecurringCore(ctx, tgBot, update)
}

// handleRecurringCore is the testable implementation of handleRecurring.
func (b *Bot) handleRecurringCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	sub, rest, _ := strings.Cut(extractCommandArgs(update.Message.Text), " ")
	switch strings.ToLower(sub) {
	case "":
		b.listRecurring(ctx, tg, chatID)
	case "add":
		rec, err := ParseRecurringArgs(rest)
		if err != nil {
			replyUsage(ctx, tg, chatID, err, usageRecurring)
			return
		}
		saved, err := b.engine.AddRecurringExpense(ctx, rec)
		if err != nil {
			replyError(ctx, tg, chatID, "AddRecurringExpense", err)
			return
		}
		reply(ctx, tg, chatID, "🔁 Recurring expense added: "+formatRecurring(*saved, b.currencySymbol(ctx)))
	case "delete", "del", "rm":
		id, err := parseID(rest)
		if err != nil {
			replyUsage(ctx, tg, chatID, err, usageRecurring)
			return
		}
		if err := b.engine.DeleteRecurringExpense(ctx, id); err != nil {
			replyError(ctx, tg, chatID, "DeleteRecurringExpense", err)
			return
		}
		reply(ctx, tg, chatID, fmt.Sprintf("🗑 Recurring expense #%d deleted.", id))
	default:
		replyUsage(ctx, tg, chatID, nil, usageRecurring)
	}
}

func (b *Bot) listRecurring(ctx context.Context, tg TelegramAPI, chatID int64) {
	items, err := b.engine.RecurringExpenses(ctx)
	if err != nil {
		replyError(ctx, tg, chatID, "RecurringExpenses", err)
		return
	}
	if len(items) == 0 {
		reply(ctx, tg, chatID, "No recurring expenses yet.\n\n"+usageRecurring)
		return
	}

	symbol := b.currencySymbol(ctx)
	var sb strings.Builder
	sb.WriteString("🔁 <b>Recurring expenses</b>\n\n")
	for _, item := range items {
		sb.WriteString(formatRecurring(item, symbol) + "\n")
	}
	sb.WriteString("\nRecord one as paid with <code>/apply &lt;id&gt;</code>")
	reply(ctx, tg, chatID, sb.String())
}

// handleApply handles the /apply command.
func (b *Bot) handleApply(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleApplyCore(ctx, tgBot, update)
}

// handleApplyCore is the testable implementation of handleApply.
func (b *Bot) handleApplyCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, err := parseID(extractCommandArgs(update.Message.Text))
	if err != nil {
		replyUsage(ctx, tg, chatID, err, "<code>/apply &lt;recurring id&gt;</code>")
		return
	}
	exp, err := b.engine.ApplyRecurringExpense(ctx, id)
	if err != nil {
		replyError(ctx, tg, chatID, "ApplyRecurringExpense", err)
		return
	}
	reply(ctx, tg, chatID, "✅ Expense recorded: "+formatExpense(exp, b.currencySymbol(ctx)))
}

// handleInstallments handles the /installments command.
func (b *Bot) handleInstallments(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleInstallmentsCore(ctx, tgBot, update)
}

// handleInstallmentsCore is the testable implementation of handleInstallments.
func (b *Bot) handleInstallmentsCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	plans, err := b.engine.Installments(ctx)
	if err != nil {
		replyError(ctx, tg, chatID, "Installments", err)
		return
	}
	if len(plans) == 0 {
		reply(ctx, tg, chatID, "No installment plans. Pay by card with <code>x&lt;n&gt;</code> to create one.")
		return
	}

	symbol := b.currencySymbol(ctx)
	owed := decimal.Zero
	var sb strings.Builder
	sb.WriteString("💳 <b>Installment plans</b>\n\n")
	for _, p := range plans {
		owed = owed.Add(p.Outstanding())
		sb.WriteString(formatInstallment(p, symbol) + "\n")
	}
	fmt.Fprintf(&sb, "\n<b>Outstanding: %s</b>", money(symbol, owed))
	reply(ctx, tg, chatID, sb.String())
}

// handleCurrency handles the /currency command.
func (b *Bot) handleCurrency(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCurrencyCore(ctx, tgBot, update)
}

// handleCurrencyCore is the testable implementation of handleCurrency.
func (b *Bot) handleCurrencyCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	symbol := extractCommandArgs(update.Message.Text)
	if symbol == "" {
		reply(ctx, tg, chatID, fmt.Sprintf("💱 Currency symbol: <b>%s</b>\n\nChange it with <code>/currency &lt;symbol&gt;</code>",
			escapeHTML(b.currencySymbol(ctx))))
		return
	}
	if err := b.engine.SetCurrencySymbol(ctx, symbol); err != nil {
		replyError(ctx, tg, chatID, "SetCurrencySymbol", err)
		return
	}
	reply(ctx, tg, chatID, fmt.Sprintf("✅ Currency symbol set to <b>%s</b>", escapeHTML(symbol)))
}

// handleBaseline handles the /baseline command.
func (b *Bot) handleBaseline(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleBaselineCore(ctx, tgBot, update)
}

// handleBaselineCore is the testable implementation of handleBaseline.
func (b *Bot) handleBaselineCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	fields := strings.Fields(extractCommandArgs(update.Message.Text))
	if len(fields) == 0 {
		settings, err := b.engine.Settings(ctx)
		if err != nil {
			replyError(ctx, tg, chatID, "Settings", err)
			return
		}
		cpk, err := b.engine.CostPerDistance(ctx)
		if err != nil {
			replyError(ctx, tg, chatID, "CostPerDistance", err)
			return
		}
		reply(ctx, tg, chatID, fmt.Sprintf("🚗 Baseline: %s, %s\nCost per km: %s %s\n\nChange it with %s",
			km(settings.BaselineDistance), money(settings.CurrencySymbol, settings.BaselineExpense),
			cpk.StringFixed(3), escapeHTML(settings.CurrencySymbol), usageBaseline))
		return
	}
	if len(fields) != 2 {
		replyUsage(ctx, tg, chatID, nil, usageBaseline)
		return
	}

	distance, err := parseDecimal(fields[0])
	if err != nil {
		replyUsage(ctx, tg, chatID, err, usageBaseline)
		return
	}
	expense, err := parseDecimal(fields[1])
	if err != nil {
		replyUsage(ctx, tg, chatID, err, usageBaseline)
		return
	}
	if err := b.engine.SetVehicleBaseline(ctx, distance, expense); err != nil {
		replyError(ctx, tg, chatID, "SetVehicleBaseline", err)
		return
	}
	reply(ctx, tg, chatID, fmt.Sprintf("✅ Baseline set to %s and %s", km(distance), money(b.currencySymbol(ctx), expense)))
}
