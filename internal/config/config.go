// Package config provides application configuration loading from environment.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/telemetry"
)

// Defaults for optional settings.
const (
	DefaultTimezone                 = "Europe/Athens"
	DefaultReminderHour             = 23
	DefaultInstallmentCheckInterval = time.Hour
	DefaultServiceName              = "taxi-ledger"
)

// Config holds all configuration for the application.
type Config struct {
	TelegramBotToken     string
	DatabaseURL          string
	GeminiAPIKey         string
	// GeminiModel overrides the invoice model when set.
	GeminiModel          string
	LogLevel             string
	LogFormat            string
	WhitelistedUserIDs   []int64
	WhitelistedUsernames []string

	// HTTPAddr enables the read-only API when set.
	HTTPAddr string
	Timezone string
	Location *time.Location

	ForecastYearlyMatch      finance.YearlyMatch
	InstallmentCheckInterval time.Duration

	// ShiftReminderEnabled nags about a shift still open at ReminderHour.
	ShiftReminderEnabled bool
	ReminderHour         int

	OTelExporter    string
	OTelServiceName string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		LogFormat:        strings.ToLower(envOr("LOG_FORMAT", "console")),
		HTTPAddr:         strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		OTelExporter:     strings.ToLower(envOr("OTEL_EXPORTER", telemetry.ExporterNone)),
		OTelServiceName:  envOr("OTEL_SERVICE_NAME", DefaultServiceName),
	}

	var errs []string

	cfg.Timezone = envOr("TIMEZONE", DefaultTimezone)
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		errs = append(errs, fmt.Sprintf("TIMEZONE %q is not a valid location", cfg.Timezone))
		loc = time.UTC
	}
	cfg.Location = loc

	cfg.ForecastYearlyMatch = finance.YearlyMatchDayOfYear
	if s := os.Getenv("FORECAST_YEARLY_MATCH"); s != "" {
		match, err := finance.ParseYearlyMatch(s)
		if err != nil {
			errs = append(errs, "FORECAST_YEARLY_MATCH must be day_of_year or anchor_month")
		} else {
			cfg.ForecastYearlyMatch = match
		}
	}

	cfg.InstallmentCheckInterval = DefaultInstallmentCheckInterval
	if s := os.Getenv("INSTALLMENT_CHECK_INTERVAL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			cfg.InstallmentCheckInterval = d
		}
	}

	cfg.ShiftReminderEnabled = os.Getenv("SHIFT_REMINDER_ENABLED") == "true"
	cfg.ReminderHour = DefaultReminderHour
	if hourStr := os.Getenv("REMINDER_HOUR"); hourStr != "" {
		if h, err := strconv.Atoi(hourStr); err == nil && h >= 0 && h <= 23 {
			cfg.ReminderHour = h
		}
	}

	whitelistStr := os.Getenv("WHITELISTED_USER_IDS")
	if whitelistStr != "" {
		for idStr := range strings.SplitSeq(whitelistStr, ",") {
			idStr = strings.TrimSpace(idStr)
			if idStr == "" {
				continue
			}
			id, err := strconv.ParseInt(idStr, 10, 64)
			if err != nil {
				continue
			}
			cfg.WhitelistedUserIDs = append(cfg.WhitelistedUserIDs, id)
		}
	}

	whitelistUsernames := os.Getenv("WHITELISTED_USERNAMES")
	if whitelistUsernames != "" {
		for username := range strings.SplitSeq(whitelistUsernames, ",") {
			username = strings.TrimSpace(username)
			if username == "" {
				continue
			}
			cfg.WhitelistedUsernames = append(cfg.WhitelistedUsernames, strings.TrimPrefix(username, "@"))
		}
	}

	if err := cfg.validate(errs); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// validate checks that all required configuration is present. errs carries
// problems already found while parsing.
func (c *Config) validate(errs []string) error {
	if c.TelegramBotToken == "" {
		errs = append(errs, "TELEGRAM_BOT_TOKEN is required")
	}

	if c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if len(c.WhitelistedUserIDs) == 0 && len(c.WhitelistedUsernames) == 0 {
		errs = append(errs, "at least one whitelisted user (WHITELISTED_USER_IDS or WHITELISTED_USERNAMES) is required")
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, "LOG_FORMAT must be console or json")
	}

	switch c.OTelExporter {
	case telemetry.ExporterNone, telemetry.ExporterStdout, telemetry.ExporterOTLPHTTP, telemetry.ExporterOTLPGRPC:
	default:
		errs = append(errs, "OTEL_EXPORTER must be none, stdout, otlp-http or otlp-grpc")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsUserWhitelisted checks if a Telegram user ID or username is in the whitelist.
// Returns true if either the user ID or username is whitelisted.
func (c *Config) IsUserWhitelisted(userID int64, username string) bool {
	if slices.Contains(c.WhitelistedUserIDs, userID) {
		return true
	}

	if username != "" {
		username = strings.TrimPrefix(username, "@")
		for _, whitelisted := range c.WhitelistedUsernames {
			if strings.EqualFold(whitelisted, username) {
				return true
			}
		}
	}

	return false
}
