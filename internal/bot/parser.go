package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/taxi-ledger/internal/engine"
	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// Command argument errors shown to the user.
var (
	errMissingAmount      = errors.New("missing amount")
	errMissingDescription = errors.New("missing description")
	errMissingID          = errors.New("missing id")
	errUnknownOption      = errors.New("unknown option")
)

// commandName returns the "/command" a message starts with, without any
// "@botname" suffix, or "" when the text is not a command.
func commandName(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	name, _, _ := strings.Cut(text, " ")
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name)
}

// extractCommandArgs strips the /command prefix (and optional @botname suffix)
// from a message and returns the remaining trimmed arguments.
func extractCommandArgs(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	_, args, _ := strings.Cut(text, " ")
	return strings.TrimSpace(args)
}

// parseDecimal parses a non-negative number, accepting a comma as the
// decimal separator.
func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not a number", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%q must not be negative", s)
	}
	return d, nil
}

func parseID(s string) (int64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return 0, errMissingID
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not a valid id", s)
	}
	return id, nil
}

// splitOption splits "key=value" into its lowercased key and value.
func splitOption(tok string) (string, string, bool) {
	key, value, ok := strings.Cut(tok, "=")
	if !ok || key == "" {
		return "", "", false
	}
	return strings.ToLower(key), value, true
}

// ParseJobArgs parses "/job" arguments:
//
//	<revenue> [receipt=<amount>] [odo=<km>] [pay=cash|card|contract] [unpaid] [notes...]
//
// Options may appear anywhere; remaining words form the notes.
func ParseJobArgs(args string) (engine.JobInput, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return engine.JobInput{}, errMissingAmount
	}

	revenue, err := parseDecimal(fields[0])
	if err != nil {
		return engine.JobInput{}, err
	}
	in := engine.JobInput{Revenue: revenue}

	var notes []string
	for _, tok := range fields[1:] {
		if strings.EqualFold(tok, "unpaid") {
			paid := false
			in.Paid = &paid
			continue
		}
		key, value, ok := splitOption(tok)
		if !ok {
			notes = append(notes, tok)
			continue
		}
		switch key {
		case "receipt", "r":
			d, err := parseDecimal(value)
			if err != nil {
				return engine.JobInput{}, fmt.Errorf("receipt: %w", err)
			}
			in.ReceiptAmount = &d
		case "odo", "km":
			d, err := parseDecimal(value)
			if err != nil {
				return engine.JobInput{}, fmt.Errorf("odometer: %w", err)
			}
			in.Odometer = &d
		case "pay":
			pt, err := models.ParsePaymentType(value)
			if err != nil {
				return engine.JobInput{}, err
			}
			in.PaymentType = pt
		default:
			return engine.JobInput{}, fmt.Errorf("%w %q", errUnknownOption, key)
		}
	}
	in.Notes = strings.Join(notes, " ")
	return in, nil
}

// expenseOptions are the options shared by one-off and recurring expenses.
type expenseOptions struct {
	vatMode   finance.VATMode
	manualVAT decimal.Decimal
	cpk       bool
	method    models.PaymentMethod
	count     int
	words     []string
}

func parseExpenseOptions(fields []string) (expenseOptions, error) {
	opts := expenseOptions{vatMode: finance.VATModeNone, method: models.PaymentMethodCash, count: 1}
	for _, tok := range fields {
		lower := strings.ToLower(tok)
		if lower == "cpk" {
			opts.cpk = true
			continue
		}
		if len(lower) > 1 && lower[0] == 'x' && lower[1] >= '0' && lower[1] <= '9' {
			n, err := finance.ParseInstallmentCount(lower)
			if err != nil {
				return opts, err
			}
			opts.count = n
			continue
		}
		key, value, ok := splitOption(tok)
		if !ok {
			opts.words = append(opts.words, tok)
			continue
		}
		switch key {
		case "vat":
			mode, err := finance.ParseVATMode(value)
			if err == nil && mode != finance.VATModeManual {
				opts.vatMode = mode
				continue
			}
			d, derr := parseDecimal(value)
			if derr != nil {
				return opts, fmt.Errorf("vat: %w", derr)
			}
			opts.vatMode = finance.VATModeManual
			opts.manualVAT = d
		case "pay":
			m, err := models.ParsePaymentMethod(value)
			if err != nil {
				return opts, err
			}
			opts.method = m
		case "n":
			n, err := finance.ParseInstallmentCount(value)
			if err != nil {
				return opts, err
			}
			opts.count = n
		default:
			return opts, fmt.Errorf("%w %q", errUnknownOption, key)
		}
	}
	return opts, nil
}

// ParseExpenseArgs parses "/expense" arguments:
//
//	<amount> <description...> [vat=13|24|<amount>] [pay=cash|bank|card] [x<n>] [cpk]
//
// "cpk" marks a running cost that feeds the cost per kilometre. x<n> splits a
// card payment into n monthly installments.
func ParseExpenseArgs(args string) (finance.ExpenseInput, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return finance.ExpenseInput{}, errMissingAmount
	}
	amount, err := parseDecimal(fields[0])
	if err != nil {
		return finance.ExpenseInput{}, err
	}
	opts, err := parseExpenseOptions(fields[1:])
	if err != nil {
		return finance.ExpenseInput{}, err
	}
	if len(opts.words) == 0 {
		return finance.ExpenseInput{}, errMissingDescription
	}
	return finance.ExpenseInput{
		Description:            strings.Join(opts.words, " "),
		Amount:                 amount,
		VATAmount:              finance.ExpenseVAT(amount, opts.vatMode, opts.manualVAT),
		AffectsCostPerDistance: opts.cpk,
		PaymentMethod:          opts.method,
		Installments:           opts.count,
	}, nil
}

// ParseRecurringArgs parses "/recurring add" arguments:
//
//	<amount> <monthly|quarterly|yearly> <day> <description...> [vat=...] [cpk]
func ParseRecurringArgs(args string) (models.RecurringExpense, error) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return models.RecurringExpense{}, errMissingAmount
	}
	amount, err := parseDecimal(fields[0])
	if err != nil {
		return models.RecurringExpense{}, err
	}
	freq, err := models.ParseFrequency(fields[1])
	if err != nil {
		return models.RecurringExpense{}, err
	}
	day, err := strconv.Atoi(fields[2])
	if err != nil {
		return models.RecurringExpense{}, fmt.Errorf("%w: %q", models.ErrInvalidDay, fields[2])
	}
	opts, err := parseExpenseOptions(fields[3:])
	if err != nil {
		return models.RecurringExpense{}, err
	}
	if len(opts.words) == 0 {
		return models.RecurringExpense{}, errMissingDescription
	}
	return models.RecurringExpense{
		Description:            strings.Join(opts.words, " "),
		Amount:                 amount,
		VATAmount:              finance.ExpenseVAT(amount, opts.vatMode, opts.manualVAT),
		AffectsCostPerDistance: opts.cpk,
		Frequency:              freq,
		Day:                    day,
	}, nil
}

// ParseShiftEditArgs parses "/editshift" arguments: <id> [start=<km>] [end=<km>].
func ParseShiftEditArgs(args string) (int64, engine.ShiftUpdate, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, engine.ShiftUpdate{}, errMissingID
	}
	id, err := parseID(fields[0])
	if err != nil {
		return 0, engine.ShiftUpdate{}, err
	}
	var upd engine.ShiftUpdate
	for _, tok := range fields[1:] {
		key, value, ok := splitOption(tok)
		if !ok {
			return 0, engine.ShiftUpdate{}, fmt.Errorf("%w %q", errUnknownOption, tok)
		}
		d, err := parseDecimal(value)
		if err != nil {
			return 0, engine.ShiftUpdate{}, fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "start":
			upd.StartOdometer = &d
		case "end":
			upd.EndOdometer = &d
		default:
			return 0, engine.ShiftUpdate{}, fmt.Errorf("%w %q", errUnknownOption, key)
		}
	}
	return id, upd, nil
}

// ParsePeriodArgs resolves "[month|year] [YYYY | YYYY-MM | YYYY-MM-DD]" to a
// period around now. Unrecognised words are returned in rest.
func ParsePeriodArgs(args string, now time.Time) (finance.Period, []string) {
	kind := finance.PeriodMonthly
	anchor := now
	var rest []string

	for _, tok := range strings.Fields(args) {
		if k, err := finance.ParsePeriodKind(tok); err == nil {
			kind = k
			continue
		}
		if t, ok := parseAnchor(tok, now.Location()); ok {
			anchor = t
			if len(tok) == len("2006") {
				kind = finance.PeriodYearly
			}
			continue
		}
		rest = append(rest, strings.ToLower(tok))
	}
	return finance.ResolvePeriod(kind, anchor), rest
}

func parseAnchor(tok string, loc *time.Location) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if len(tok) != len(layout) {
			continue
		}
		if t, err := time.ParseInLocation(layout, tok, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
