package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/gemini"
	"gitlab.com/yelinaung/taxi-ledger/internal/logger"
)

const (
	callbackInvoicePrefix = "invoice:"
	callbackInvoiceSave   = callbackInvoicePrefix + "save"
	callbackInvoiceCPK    = callbackInvoicePrefix + "cpk"
	callbackInvoiceCancel = callbackInvoicePrefix + "cancel"

	// pendingInvoiceTTL is how long an unconfirmed invoice can still be saved.
	pendingInvoiceTTL = time.Hour
)

// pendingInvoice is a parsed invoice waiting for the driver's confirmation.
type pendingInvoice struct {
	input     finance.ExpenseInput
	createdAt time.Time
}

// buildInvoiceKeyboard creates the inline keyboard for invoice confirmation.
func buildInvoiceKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "✅ Save", CallbackData: callbackInvoiceSave},
				{Text: "⛽ Running cost", CallbackData: callbackInvoiceCPK},
				{Text: "❌ Cancel", CallbackData: callbackInvoiceCancel},
			},
		},
	}
}

// invoiceExpense builds the expense to record from an invoice. The photo
// caption may override the description and add expense options such as
// "pay=card x6 cpk".
func invoiceExpense(data *gemini.InvoiceData, caption string) (finance.ExpenseInput, error) {
	opts, err := parseExpenseOptions(strings.Fields(caption))
	if err != nil {
		return finance.ExpenseInput{}, err
	}
	in := finance.ExpenseInput{
		Description:            data.Label(),
		Amount:                 data.Amount,
		VATAmount:              data.DeductibleVAT(),
		AffectsCostPerDistance: opts.cpk,
		PaymentMethod:          opts.method,
		Installments:           opts.count,
	}
	if len(opts.words) > 0 {
		in.Description = strings.Join(opts.words, " ")
	}
	if opts.vatMode != finance.VATModeNone {
		in.VATAmount = finance.ExpenseVAT(in.Amount, opts.vatMode, opts.manualVAT)
	}
	return in, nil
}

func (b *Bot) setPendingInvoice(chatID int64, p *pendingInvoice) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	b.pendingInvoices[chatID] = p
}

// takePendingInvoice removes and returns the chat's pending invoice if it has
// not expired.
func (b *Bot) takePendingInvoice(chatID int64, now time.Time) *pendingInvoice {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	p := b.pendingInvoices[chatID]
	delete(b.pendingInvoices, chatID)
	if p == nil || now.Sub(p.createdAt) > pendingInvoiceTTL {
		return nil
	}
	return p
}

// handlePhoto handles photo messages for invoice OCR.
func (b *Bot) handlePhoto(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handlePhotoCore(ctx, tgBot, update)
}

// handlePhotoCore is the testable implementation of handlePhoto.
func (b *Bot) handlePhotoCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || len(update.Message.Photo) == 0 {
		return
	}
	chatID := update.Message.Chat.ID

	if b.invoices == nil {
		reply(ctx, tg, chatID, "📷 Invoice reading is not configured. Record the expense with <code>/expense &lt;amount&gt; &lt;description&gt;</code>")
		return
	}

	largestPhoto := update.Message.Photo[len(update.Message.Photo)-1]
	reply(ctx, tg, chatID, "📷 Reading invoice...")

	imageBytes, err := b.downloadFile(ctx, tg, largestPhoto.FileID)
	if err != nil {
		logger.Log.Error().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to download photo")
		reply(ctx, tg, chatID, "❌ Failed to download photo. Please try again.")
		return
	}

	data, err := b.invoices.ParseInvoice(ctx, imageBytes, "image/jpeg")
	if err != nil {
		logger.Log.Warn().Err(err).Str("chat_hash", logger.HashChatID(chatID)).Msg("Failed to parse invoice")
		text := "❌ Could not read this invoice. Record it with <code>/expense &lt;amount&gt; &lt;description&gt;</code>"
		if errors.Is(err, gemini.ErrParseTimeout) {
			text = "⏱️ Reading the invoice timed out. Please try again or use <code>/expense</code>."
		}
		reply(ctx, tg, chatID, text)
		return
	}
	if !data.HasAmount() {
		reply(ctx, tg, chatID, "❌ No total found on this invoice. Record it with <code>/expense &lt;amount&gt; &lt;description&gt;</code>")
		return
	}

	in, err := invoiceExpense(data, update.Message.Caption)
	if err != nil {
		replyUsage(ctx, tg, chatID, err, "caption options: <code>[description] [vat=13|24|&lt;amount&gt;] [pay=cash|bank|card] [x&lt;n&gt;] [cpk]</code>")
		return
	}

	b.setPendingInvoice(chatID, &pendingInvoice{input: in, createdAt: b.engine.Now()})

	logger.Log.Info().
		Str("chat_hash", logger.HashChatID(chatID)).
		Str("amount", in.Amount.String()).
		Float64("confidence", data.Confidence).
		Msg("Invoice parsed")

	symbol := b.currencySymbol(ctx)
	var sb strings.Builder
	sb.WriteString("🧾 <b>Invoice read</b>\n\n")
	fmt.Fprintf(&sb, "Description: %s\n", escapeHTML(in.Description))
	fmt.Fprintf(&sb, "Amount: %s\n", money(symbol, in.Amount))
	fmt.Fprintf(&sb, "Deductible VAT: %s\n", money(symbol, in.VATAmount))
	if !data.Date.IsZero() {
		fmt.Fprintf(&sb, "Invoice date: %s\n", data.Date.Format(displayDate))
	}
	fmt.Fprintf(&sb, "Paid by: %s", in.PaymentMethod)
	if in.Installments > 1 {
		fmt.Fprintf(&sb, " in %d installments", in.Installments)
	}

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        sb.String(),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: buildInvoiceKeyboard(),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send invoice confirmation")
	}
}

// handleInvoiceCallback handles the invoice confirmation buttons.
func (b *Bot) handleInvoiceCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleInvoiceCallbackCore(ctx, tgBot, update)
}

// handleInvoiceCallbackCore is the testable implementation of handleInvoiceCallback.
func (b *Bot) handleInvoiceCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	query := update.CallbackQuery
	if query == nil {
		return
	}
	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: query.ID})

	msg := query.Message.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	edit := func(text string) {
		_, err := tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: msg.ID,
			Text:      text,
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			logger.Log.Error().Err(err).Msg("Failed to edit invoice message")
		}
	}

	pending := b.takePendingInvoice(chatID, b.engine.Now())
	if pending == nil {
		edit("⌛ This invoice is no longer pending. Send the photo again.")
		return
	}

	in := pending.input
	switch query.Data {
	case callbackInvoiceCancel:
		edit("❌ Invoice discarded.")
		return
	case callbackInvoiceCPK:
		in.AffectsCostPerDistance = true
	case callbackInvoiceSave:
	default:
		b.setPendingInvoice(chatID, pending)
		return
	}

	orig, err := b.engine.AddExpense(ctx, in)
	if err != nil {
		replyError(ctx, tg, chatID, "AddExpense", err)
		return
	}
	text := "✅ Expense recorded: " + formatExpense(&orig.Expense, b.currencySymbol(ctx))
	if orig.Installment != nil {
		text += fmt.Sprintf("\n💳 Installment plan #%d created", orig.Installment.ID)
	}
	edit(text)
}
