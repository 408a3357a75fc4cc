package bot

import (
	"context"
	"strings"
	"time"

	"gitlab.com/yelinaung/taxi-ledger/internal/logger"
)

// InstallmentTimeout is the maximum time a single installment run can take.
const InstallmentTimeout = 2 * time.Minute

// startInstallmentLoop charges due installments once at startup and then
// every InstallmentCheckInterval until ctx is done.
func (b *Bot) startInstallmentLoop(ctx context.Context) {
	interval := b.cfg.InstallmentCheckInterval
	if interval <= 0 {
		logger.Log.Info().Msg("Installment charging is disabled")
		return
	}

	logger.Log.Info().Dur("interval", interval).Msg("Installment loop started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	select {
	case <-ctx.Done():
		logger.Log.Info().Msg("Installment loop stopped")
		return
	default:
	}

	b.chargeInstallments(ctx, b.engine.Now())

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info().Msg("Installment loop stopped")
			return
		case <-ticker.C:
			b.chargeInstallments(ctx, b.engine.Now())
		}
	}
}

// chargeInstallments records every installment period due by now and tells
// the whitelisted users what was charged.
func (b *Bot) chargeInstallments(ctx context.Context, now time.Time) {
	runCtx, cancel := context.WithTimeout(ctx, InstallmentTimeout)
	defer cancel()

	charged, err := b.engine.ChargeDueInstallments(runCtx, now)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to charge installments")
		return
	}
	if len(charged) == 0 || b.messageSender == nil {
		return
	}

	symbol := b.currencySymbol(runCtx)
	var sb strings.Builder
	sb.WriteString("💳 <b>Installments charged</b>\n\n")
	for i := range charged {
		sb.WriteString(formatExpense(&charged[i], symbol) + "\n")
	}
	text := strings.TrimSuffix(sb.String(), "\n")

	for _, userID := range b.cfg.WhitelistedUserIDs {
		reply(runCtx, b.messageSender, userID, text)
	}
	logger.Log.Debug().Int("count", len(charged)).Msg("Sent installment notice")
}
