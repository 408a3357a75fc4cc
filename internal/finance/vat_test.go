package finance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestVAT(t *testing.T) {
	t.Parallel()

	t.Run("revenue rate on 100", func(t *testing.T) {
		t.Parallel()
		require.InDelta(t, 11.504, VAT(dec("100"), RevenueVATRate).InexactFloat64(), 0.001)
	})

	t.Run("standard rate on 124", func(t *testing.T) {
		t.Parallel()
		requireDecimal(t, "24", VAT(dec("124"), StandardVATRate))
	})

	t.Run("zero gross is exactly zero", func(t *testing.T) {
		t.Parallel()
		require.True(t, VAT(decimal.Zero, RevenueVATRate).IsZero())
		require.True(t, VAT(decimal.Zero, StandardVATRate).IsZero())
	})

	t.Run("degenerate rate does not divide by zero", func(t *testing.T) {
		t.Parallel()
		require.True(t, VAT(dec("10"), dec("-1")).IsZero())
		require.True(t, VAT(dec("10"), dec("-2")).IsZero())
	})

	t.Run("zero rate has no tax", func(t *testing.T) {
		t.Parallel()
		require.True(t, VAT(dec("50"), decimal.Zero).IsZero())
	})
}

func TestVAT_ReconstructsGross(t *testing.T) {
	t.Parallel()

	rates := []decimal.Decimal{RevenueVATRate, StandardVATRate}
	tolerance := dec("0.000000001")

	rapid.Check(t, func(t *rapid.T) {
		cents := rapid.Int64Range(0, 100_000_000).Draw(t, "cents")
		rate := rates[rapid.IntRange(0, len(rates)-1).Draw(t, "rate")]
		gross := decimal.New(cents, -2)

		net := gross.Div(one.Add(rate))
		diff := VAT(gross, rate).Add(net).Sub(gross).Abs()
		if diff.GreaterThan(tolerance) {
			t.Fatalf("tax + net != gross for %s at %s (diff %s)", gross, rate, diff)
		}
	})
}

func TestParseVATMode(t *testing.T) {
	t.Parallel()

	tests := map[string]VATMode{
		"":       VATModeNone,
		"0":      VATModeNone,
		"13":     VATModeReduced,
		"13%":    VATModeReduced,
		"24":     VATModeStandard,
		"manual": VATModeManual,
	}
	for input, want := range tests {
		got, err := ParseVATMode(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}

	_, err := ParseVATMode("17")
	require.Error(t, err)
}

func TestExpenseVAT(t *testing.T) {
	t.Parallel()

	requireDecimal(t, "11.50", ExpenseVAT(dec("100"), VATModeReduced, decimal.Zero))
	requireDecimal(t, "19.35", ExpenseVAT(dec("100"), VATModeStandard, decimal.Zero))
	requireDecimal(t, "7", ExpenseVAT(dec("100"), VATModeManual, dec("7")))
	requireDecimal(t, "100", ExpenseVAT(dec("100"), VATModeManual, dec("250")))
	requireDecimal(t, "0", ExpenseVAT(dec("100"), VATModeManual, dec("-3")))
	requireDecimal(t, "0", ExpenseVAT(dec("100"), VATModeNone, dec("5")))
}
