package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

func TestCommandName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"/job 15", "/job"},
		{"/JOB", "/job"},
		{"/shift@taxi_bot", "/shift"},
		{"/expenses month", "/expenses"},
		{"  /help  ", "/help"},
		{"hello", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, commandName(tt.text))
		})
	}
}

func TestExtractCommandArgs(t *testing.T) {
	t.Parallel()

	require.Equal(t, "15 receipt=15", extractCommandArgs("/job 15 receipt=15"))
	require.Equal(t, "15", extractCommandArgs("/job@taxi_bot   15 "))
	require.Empty(t, extractCommandArgs("/shift"))
	require.Empty(t, extractCommandArgs("/shift@taxi_bot"))
}

func TestParseDecimal(t *testing.T) {
	t.Parallel()

	d, err := parseDecimal("12,5")
	require.NoError(t, err)
	require.True(t, d.Equal(mustParseDecimal("12.5")))

	d, err = parseDecimal(" 0 ")
	require.NoError(t, err)
	require.True(t, d.IsZero())

	_, err = parseDecimal("-1")
	require.ErrorContains(t, err, "must not be negative")

	_, err = parseDecimal("abc")
	require.ErrorContains(t, err, "is not a number")
}

func TestParseID(t *testing.T) {
	t.Parallel()

	id, err := parseID("#42")
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	_, err = parseID("")
	require.ErrorIs(t, err, errMissingID)

	for _, bad := range []string{"0", "-3", "x"} {
		_, err = parseID(bad)
		require.Error(t, err, bad)
	}
}

func TestParseJobArgs(t *testing.T) {
	t.Parallel()

	t.Run("revenue only", func(t *testing.T) {
		t.Parallel()
		in, err := ParseJobArgs("15")
		require.NoError(t, err)
		require.True(t, in.Revenue.Equal(mustParseDecimal("15")))
		require.Nil(t, in.ReceiptAmount)
		require.Nil(t, in.Odometer)
		require.Nil(t, in.Paid)
		require.Empty(t, in.Notes)
	})

	t.Run("all options with notes", func(t *testing.T) {
		t.Parallel()
		in, err := ParseJobArgs("40 Airport receipt=40 odo=120,5 pay=contract unpaid run")
		require.NoError(t, err)
		require.True(t, in.ReceiptAmount.Equal(mustParseDecimal("40")))
		require.True(t, in.Odometer.Equal(mustParseDecimal("120.5")))
		require.Equal(t, models.PaymentTypeContract, in.PaymentType)
		require.NotNil(t, in.Paid)
		require.False(t, *in.Paid)
		require.Equal(t, "Airport run", in.Notes)
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()
		_, err := ParseJobArgs("")
		require.ErrorIs(t, err, errMissingAmount)

		_, err = ParseJobArgs("abc")
		require.Error(t, err)

		_, err = ParseJobArgs("15 tip=2")
		require.ErrorIs(t, err, errUnknownOption)

		_, err = ParseJobArgs("15 pay=bitcoin")
		require.ErrorIs(t, err, models.ErrInvalidPaymentType)

		_, err = ParseJobArgs("15 receipt=-1")
		require.ErrorContains(t, err, "receipt")
	})
}

func TestParseExpenseArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    string
		desc    string
		amount  string
		vat     string
		cpk     bool
		method  models.PaymentMethod
		count   int
		wantErr error
	}{
		{name: "plain", args: "62 Car wash", desc: "Car wash", amount: "62", vat: "0", method: models.PaymentMethodCash, count: 1},
		{name: "standard rate", args: "124 Fuel vat=24 cpk", desc: "Fuel", amount: "124", vat: "24", cpk: true, method: models.PaymentMethodCash, count: 1},
		{name: "reduced rate", args: "113 Service vat=13%", desc: "Service", amount: "113", vat: "13", method: models.PaymentMethodCash, count: 1},
		{name: "manual vat", args: "50 Parts vat=4,50 pay=bank", desc: "Parts", amount: "50", vat: "4.5", method: models.PaymentMethodBank, count: 1},
		{name: "installments", args: "1200 New tyres pay=card x12 cpk", desc: "New tyres", amount: "1200", vat: "0", cpk: true, method: models.PaymentMethodCard, count: 12},
		{name: "installments key", args: "600 Phone pay=card n=6", desc: "Phone", amount: "600", vat: "0", method: models.PaymentMethodCard, count: 6},
		{name: "missing amount", args: "", wantErr: errMissingAmount},
		{name: "missing description", args: "10 vat=24", wantErr: errMissingDescription},
		{name: "zero installments", args: "10 Thing x0", wantErr: finance.ErrInvalidInstallmentCount},
		{name: "unknown option", args: "10 Thing tag=work", wantErr: errUnknownOption},
		{name: "bad method", args: "10 Thing pay=cheque", wantErr: models.ErrInvalidPaymentMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			in, err := ParseExpenseArgs(tt.args)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.desc, in.Description)
			require.True(t, in.Amount.Equal(mustParseDecimal(tt.amount)), in.Amount.String())
			require.True(t, in.VATAmount.Equal(mustParseDecimal(tt.vat)), in.VATAmount.String())
			require.Equal(t, tt.cpk, in.AffectsCostPerDistance)
			require.Equal(t, tt.method, in.PaymentMethod)
			require.Equal(t, tt.count, in.Installments)
		})
	}
}

func TestParseRecurringArgs(t *testing.T) {
	t.Parallel()

	rec, err := ParseRecurringArgs("80 monthly 15 Insurance premium vat=24")
	require.NoError(t, err)
	require.Equal(t, "Insurance premium", rec.Description)
	require.True(t, rec.Amount.Equal(mustParseDecimal("80")))
	require.Equal(t, models.FrequencyMonthly, rec.Frequency)
	require.Equal(t, 15, rec.Day)
	require.True(t, rec.VATAmount.Equal(mustParseDecimal("15.48")), rec.VATAmount.String())

	_, err = ParseRecurringArgs("80 weekly 1 Thing")
	require.ErrorIs(t, err, models.ErrInvalidFrequency)

	_, err = ParseRecurringArgs("80 yearly first Road tax")
	require.ErrorIs(t, err, models.ErrInvalidDay)

	_, err = ParseRecurringArgs("80 yearly 60")
	require.ErrorIs(t, err, errMissingDescription)

	_, err = ParseRecurringArgs("80")
	require.ErrorIs(t, err, errMissingAmount)
}

func TestParseShiftEditArgs(t *testing.T) {
	t.Parallel()

	id, upd, err := ParseShiftEditArgs("7 start=100 end=250,5")
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
	require.True(t, upd.StartOdometer.Equal(mustParseDecimal("100")))
	require.True(t, upd.EndOdometer.Equal(mustParseDecimal("250.5")))
	require.Nil(t, upd.StartTime)

	_, _, err = ParseShiftEditArgs("")
	require.ErrorIs(t, err, errMissingID)

	_, _, err = ParseShiftEditArgs("7 middle=3")
	require.ErrorIs(t, err, errUnknownOption)

	_, _, err = ParseShiftEditArgs("7 100")
	require.ErrorIs(t, err, errUnknownOption)
}

func TestParsePeriodArgs(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		args     string
		kind     finance.PeriodKind
		start    time.Time
		wantRest []string
	}{
		{"", finance.PeriodMonthly, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), nil},
		{"year", finance.PeriodYearly, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), nil},
		{"2023-11", finance.PeriodMonthly, time.Date(2023, time.November, 1, 0, 0, 0, 0, time.UTC), nil},
		{"2023-11-20 yearly", finance.PeriodYearly, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), nil},
		{"2022", finance.PeriodYearly, time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC), nil},
		{"month XLSX", finance.PeriodMonthly, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), []string{"xlsx"}},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			t.Parallel()
			period, rest := ParsePeriodArgs(tt.args, now)
			require.Equal(t, tt.kind, period.Kind)
			require.True(t, period.Start.Equal(tt.start), "start %s", period.Start)
			require.Equal(t, tt.wantRest, rest)
		})
	}
}
