package bot

import (
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/taxi-ledger/internal/bot/mocks"
	"gitlab.com/yelinaung/taxi-ledger/internal/config"
	"gitlab.com/yelinaung/taxi-ledger/internal/engine"
	"gitlab.com/yelinaung/taxi-ledger/internal/ledger"
)

const (
	testChatID int64 = 12345
	testUserID int64 = 777
)

var testNow = time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC)

// setupTestBot creates a Bot over an in-memory ledger with a fixed clock.
func setupTestBot(t *testing.T) (*Bot, *mocks.MockBot) {
	t.Helper()
	return setupTestBotWithParser(t, nil)
}

func setupTestBotWithParser(t *testing.T, parser invoiceParser) (*Bot, *mocks.MockBot) {
	t.Helper()

	cfg := &config.Config{
		TelegramBotToken:         "test-token",
		DatabaseURL:              "test-url",
		WhitelistedUserIDs:       []int64{testUserID},
		Location:                 time.UTC,
		InstallmentCheckInterval: time.Hour,
		ShiftReminderEnabled:     true,
		ReminderHour:             23,
	}
	eng := engine.New(ledger.NewMemory(), engine.Options{Now: func() time.Time { return testNow }})

	mockBot := mocks.NewMockBot()
	b := newBot(cfg, eng, parser)
	b.messageSender = mockBot
	return b, mockBot
}

// mustParseDecimal parses a decimal string or panics (for test data).
func mustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("invalid decimal in test: " + s)
	}
	return d
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
