// Package bot provides the Telegram bot initialization and handlers.
package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/taxi-ledger/internal/bot/mocks"
	"gitlab.com/yelinaung/taxi-ledger/internal/config"
	"gitlab.com/yelinaung/taxi-ledger/internal/engine"
	"gitlab.com/yelinaung/taxi-ledger/internal/gemini"
	"gitlab.com/yelinaung/taxi-ledger/internal/logger"
)

// TelegramAPI is an alias to the interface defined in the mocks package,
// where it avoids an import cycle.
type TelegramAPI = mocks.TelegramAPI

var _ TelegramAPI = (*bot.Bot)(nil)

// invoiceParser reads expense invoices from photos.
type invoiceParser interface {
	ParseInvoice(ctx context.Context, imageBytes []byte, mimeType string) (*gemini.InvoiceData, error)
}

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot           *bot.Bot
	cfg           *config.Config
	engine        *engine.Engine
	invoices      invoiceParser
	messageSender TelegramAPI

	pendingMu       sync.Mutex
	pendingInvoices map[int64]*pendingInvoice
}

// New creates a new Bot instance. invoices may be nil, which disables
// invoice photo parsing.
func New(cfg *config.Config, eng *engine.Engine, invoices invoiceParser) (*Bot, error) {
	b := newBot(cfg, eng, invoices)

	opts := []bot.Option{
		bot.WithMiddlewares(b.whitelistMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.messageSender = telegramBot
	b.registerHandlers()

	return b, nil
}

func newBot(cfg *config.Config, eng *engine.Engine, invoices invoiceParser) *Bot {
	b := &Bot{
		cfg:             cfg,
		engine:          eng,
		pendingInvoices: make(map[int64]*pendingInvoice),
	}
	// A typed nil *gemini.Client must not become a non-nil interface.
	if c, ok := invoices.(*gemini.Client); !ok || c != nil {
		b.invoices = invoices
	}
	return b
}

// Start runs the background loops and polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	go b.startInstallmentLoop(ctx)
	go b.startShiftReminderLoop(ctx)

	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
}

// registerHandlers sets up command handlers.
func (b *Bot) registerHandlers() {
	commands := []struct {
		command string
		handler bot.HandlerFunc
	}{
		{"/start", b.handleStart},
		{"/help", b.handleHelp},
		{"/startshift", b.handleStartShift},
		{"/endshift", b.handleEndShift},
		{"/editshift", b.handleEditShift},
		{"/deleteshift", b.handleDeleteShift},
		{"/shift", b.handleShift},
		{"/job", b.handleJob},
		{"/editjob", b.handleEditJob},
		{"/deletejob", b.handleDeleteJob},
		{"/receivables", b.handleReceivables},
		{"/paid", b.handlePaid},
		{"/expenses", b.handleExpenses},
		{"/expense", b.handleExpense},
		{"/deleteexpense", b.handleDeleteExpense},
		{"/recurring", b.handleRecurring},
		{"/apply", b.handleApply},
		{"/installments", b.handleInstallments},
		{"/report", b.handleReport},
		{"/export", b.handleExport},
		{"/chart", b.handleChart},
		{"/forecast", b.handleForecast},
		{"/currency", b.handleCurrency},
		{"/baseline", b.handleBaseline},
	}
	for _, c := range commands {
		b.bot.RegisterHandlerMatchFunc(matchCommand(c.command), c.handler)
	}

	b.bot.RegisterHandlerMatchFunc(func(update *tgmodels.Update) bool {
		return update.Message != nil && len(update.Message.Photo) > 0
	}, b.handlePhoto)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackInvoicePrefix, bot.MatchTypePrefix, b.handleInvoiceCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackReportPrefix, bot.MatchTypePrefix, b.handleReportCallback)
}

// matchCommand matches "/cmd", "/cmd args" and "/cmd@botname" but not
// "/cmdother", so /shift does not swallow /shifts and /expense does not
// swallow /expenses.
func matchCommand(command string) bot.MatchFunc {
	return func(update *tgmodels.Update) bool {
		if update.Message == nil {
			return false
		}
		return commandName(update.Message.Text) == command
	}
}

// whitelistMiddleware checks if the user is whitelisted before processing.
func (b *Bot) whitelistMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		userID := extractUserID(update)
		if userID == 0 {
			return
		}

		username := extractUsername(update)
		logUserAction(userID, update)

		if !b.cfg.IsUserWhitelisted(userID, username) {
			logger.Log.Warn().
				Str("user_hash", logger.HashUserID(userID)).
				Msg("Blocked non-whitelisted user")
			if update.Message != nil {
				_, _ = tgBot.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: update.Message.Chat.ID,
					Text:   "⛔ Sorry, you are not authorized to use this bot.",
				})
			}
			return
		}

		next(ctx, tgBot, update)
	}
}

// logUserAction logs the user's input/action without its free text.
func logUserAction(userID int64, update *tgmodels.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		event := logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("chat_hash", logger.HashChatID(msg.Chat.ID))

		if cmd := commandName(msg.Text); cmd != "" {
			event = event.Str("command", cmd)
		} else if msg.Text != "" {
			event = event.Str("text", logger.SanitizeText(msg.Text))
		}
		if len(msg.Photo) > 0 {
			event = event.Str("type", "photo")
		}

		event.Msg("User input")

	case update.CallbackQuery != nil:
		logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("data", update.CallbackQuery.Data).
			Msg("Callback query")
	}
}

// extractUsername gets the username from the update.
func extractUsername(update *tgmodels.Update) string {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.Username
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.Username
	}
	return ""
}

// extractUserID gets the user ID from various update types.
func extractUserID(update *tgmodels.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

// defaultHandler handles unrecognized messages.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.defaultHandlerCore(ctx, tgBot, update)
}

func (b *Bot) defaultHandlerCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      "I didn't understand that. Use /help to see available commands, or send a photo of an invoice.",
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send default response")
	}
}
