package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/taxi-ledger/internal/export"
	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/logger"
)

const (
	callbackReportPrefix = "report:"
	callbackReportPrev   = callbackReportPrefix + "prev"
	callbackReportNext   = callbackReportPrefix + "next"
	callbackReportMonth  = callbackReportPrefix + "month"
	callbackReportYear   = callbackReportPrefix + "year"
)

// buildReportKeyboard creates the period navigation keyboard under a report.
func buildReportKeyboard(kind finance.PeriodKind) *models.InlineKeyboardMarkup {
	toggle := models.InlineKeyboardButton{Text: "📆 Year", CallbackData: callbackReportYear}
	if kind == finance.PeriodYearly {
		toggle = models.InlineKeyboardButton{Text: "🗓 Month", CallbackData: callbackReportMonth}
	}
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "◀️", CallbackData: callbackReportPrev},
				toggle,
				{Text: "▶️", CallbackData: callbackReportNext},
			},
		},
	}
}

// handleReport handles the /report command.
func (b *Bot) handleReport(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleReportCore(ctx, tgBot, update)
}

// handleReportCore is the testable implementation of handleReport. It points
// the engine's report view at the requested period.
func (b *Bot) handleReportCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	period, _ := ParsePeriodArgs(extractCommandArgs(update.Message.Text), b.engine.Now())
	rv := b.engine.ReportView()
	rv.SetKind(period.Kind)
	rv.SetAnchor(period.Start)

	res := rv.View().Evaluate(ctx)
	if res.Err != nil {
		replyError(ctx, tg, chatID, "Report", res.Err)
		return
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        formatReport(res.Value, b.currencySymbol(ctx)),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: buildReportKeyboard(period.Kind),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send report")
	}
}

// handleReportCallback handles the report navigation buttons.
func (b *Bot) handleReportCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleReportCallbackCore(ctx, tgBot, update)
}

// handleReportCallbackCore is the testable implementation of handleReportCallback.
func (b *Bot) handleReportCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	query := update.CallbackQuery
	if query == nil {
		return
	}
	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: query.ID})

	msg := query.Message.Message
	if msg == nil {
		return
	}

	rv := b.engine.ReportView()
	switch query.Data {
	case callbackReportPrev:
		rv.Previous()
	case callbackReportNext:
		rv.Next()
	case callbackReportMonth:
		rv.SetKind(finance.PeriodMonthly)
	case callbackReportYear:
		rv.SetKind(finance.PeriodYearly)
	default:
		return
	}

	res := rv.View().Evaluate(ctx)
	if res.Err != nil {
		logger.Log.Error().Err(res.Err).Msg("Failed to compute report")
		return
	}

	_, err := tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        formatReport(res.Value, b.currencySymbol(ctx)),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: buildReportKeyboard(res.Value.Period.Kind),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to update report")
	}
}

// handleExport handles the /export command.
func (b *Bot) handleExport(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleExportCore(ctx, tgBot, update)
}

// handleExportCore is the testable implementation of handleExport. It sends
// the shifts and expenses CSV files, or one workbook when "xlsx" is given.
func (b *Bot) handleExportCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	period, rest := ParsePeriodArgs(extractCommandArgs(update.Message.Text), b.engine.Now())
	shifts, expenses, err := b.engine.ReportData(ctx, period.Start, period.End)
	if err != nil {
		replyError(ctx, tg, chatID, "ReportData", err)
		return
	}
	if len(shifts) == 0 && len(expenses) == 0 {
		reply(ctx, tg, chatID, fmt.Sprintf("📭 Nothing recorded in %s.", escapeHTML(period.Label())))
		return
	}

	loc := b.engine.Location()
	type file struct {
		name string
		data []byte
	}
	var files []file

	if slices.Contains(rest, "xlsx") {
		data, err := export.ReportWorkbook(shifts, expenses, loc)
		if err != nil {
			replyError(ctx, tg, chatID, "ReportWorkbook", err)
			return
		}
		files = append(files, file{export.Filename("report", period, "xlsx"), data})
	} else {
		shiftsCSV, err := export.ShiftsCSV(shifts, loc)
		if err != nil {
			replyError(ctx, tg, chatID, "ShiftsCSV", err)
			return
		}
		expensesCSV, err := export.ExpensesCSV(expenses, loc)
		if err != nil {
			replyError(ctx, tg, chatID, "ExpensesCSV", err)
			return
		}
		files = append(files,
			file{export.Filename("shifts", period, "csv"), shiftsCSV},
			file{export.Filename("expenses", period, "csv"), expensesCSV},
		)
	}

	caption := fmt.Sprintf("📤 <b>%s</b>\nShifts: %d, expenses: %d", escapeHTML(period.Label()), len(shifts), len(expenses))
	for i, f := range files {
		params := &bot.SendDocumentParams{
			ChatID:   chatID,
			Document: &models.InputFileUpload{Filename: f.name, Data: bytes.NewReader(f.data)},
		}
		if i == 0 {
			params.Caption = caption
			params.ParseMode = models.ParseModeHTML
		}
		if _, err := tg.SendDocument(ctx, params); err != nil {
			logger.Log.Error().Err(err).Str("file", f.name).Msg("Failed to send export")
			reply(ctx, tg, chatID, "❌ Failed to send export. Please try again.")
			return
		}
	}
}

// handleChart handles the /chart command.
func (b *Bot) handleChart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleChartCore(ctx, tgBot, update)
}

// handleChartCore is the testable implementation of handleChart.
func (b *Bot) handleChartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
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

	title := "Expenses " + period.Label()
	chart, err := export.ExpenseChart(expenses, title)
	if errors.Is(err, export.ErrNothingToChart) {
		reply(ctx, tg, chatID, fmt.Sprintf("📊 No expenses found for %s.", escapeHTML(period.Label())))
		return
	}
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate chart")
		reply(ctx, tg, chatID, "❌ Failed to generate chart. Please try again.")
		return
	}

	symbol := b.currencySymbol(ctx)
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 <b>%s</b>\n", escapeHTML(title))
	for _, s := range export.GroupExpenses(expenses) {
		fmt.Fprintf(&sb, "\n%s: %s", escapeHTML(s.Label), money(symbol, s.Total))
	}

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:    chatID,
		Document:  &models.InputFileUpload{Filename: export.Filename("chart", period, "png"), Data: bytes.NewReader(chart)},
		Caption:   sb.String(),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send chart document")
		reply(ctx, tg, chatID, "❌ Failed to send chart. Please try again.")
	}
}

// handleForecast handles the /forecast command.
func (b *Bot) handleForecast(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleForecastCore(ctx, tgBot, update)
}

// handleForecastCore is the testable implementation of handleForecast.
func (b *Bot) handleForecastCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	months, err := b.engine.Forecast(ctx)
	if err != nil {
		replyError(ctx, tg, chatID, "Forecast", err)
		return
	}
	reply(ctx, tg, chatID, formatForecast(months, b.currencySymbol(ctx)))
}
