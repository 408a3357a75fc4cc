package finance

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

var originNow = time.Date(2024, time.March, 31, 12, 0, 0, 0, time.UTC)

func TestOriginateExpense_Installments(t *testing.T) {
	t.Parallel()

	out, err := OriginateExpense(ExpenseInput{
		Description:   "Tyres",
		Amount:        dec("1200"),
		VATAmount:     dec("232.26"),
		PaymentMethod: models.PaymentMethodCard,
		Installments:  12,
	}, originNow)
	require.NoError(t, err)
	require.NotNil(t, out.Installment)

	plan := out.Installment
	requireDecimal(t, "100", plan.MonthlyAmount)
	requireDecimal(t, "1200", plan.TotalAmount)
	require.Equal(t, 12, plan.TotalInstallments)
	require.Equal(t, 12, plan.RemainingInstallments)
	require.Equal(t, originNow, plan.StartDate)
	require.Equal(t, originNow, plan.NextPaymentDate)
	require.Nil(t, plan.LastPaymentDate)

	requireDecimal(t, "100", out.Expense.Amount)
	requireDecimal(t, "19.355", out.Expense.VATAmount)
	require.True(t, strings.HasSuffix(out.Expense.Description, "(1/12)"))
	require.Equal(t, "Tyres (1/12)", out.Expense.Description)
	require.Equal(t, models.PaymentMethodCard, out.Expense.PaymentMethod)
}

func TestOriginateExpense_UnevenSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		amount string
		n      int
	}{
		{name: "thirds", amount: "100", n: 3},
		{name: "cents over a year", amount: "0.05", n: 12},
		{name: "odd total", amount: "62", n: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := OriginateExpense(ExpenseInput{
				Description:   "Seat covers",
				Amount:        dec(tt.amount),
				PaymentMethod: models.PaymentMethodCard,
				Installments:  tt.n,
			}, originNow)
			require.NoError(t, err)
			require.NotNil(t, out.Installment)
			require.True(t, out.Installment.MonthlyAmount.IsPositive())
			require.True(t, out.Expense.Amount.Equal(out.Installment.MonthlyAmount))

			total := out.Expense.Amount
			plan := *out.Installment
			for {
				if FirstPeriodRecorded(plan) {
					_, plan, _ = NextCharge(plan)
					continue
				}
				charge, next, ok := NextCharge(plan)
				if !ok {
					break
				}
				total = total.Add(charge.Amount)
				plan = next
			}
			requireDecimal(t, tt.amount, total)
		})
	}
}

func TestOriginateExpense_Ordinary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method models.PaymentMethod
		n      int
	}{
		{name: "single card payment", method: models.PaymentMethodCard, n: 1},
		{name: "cash cannot be split", method: models.PaymentMethodCash, n: 6},
		{name: "bank transfer cannot be split", method: models.PaymentMethodBank, n: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := OriginateExpense(ExpenseInput{
				Description:            "Fuel",
				Amount:                 dec("60"),
				VATAmount:              dec("11.61"),
				AffectsCostPerDistance: true,
				PaymentMethod:          tt.method,
				Installments:           tt.n,
			}, originNow)
			require.NoError(t, err)
			require.Nil(t, out.Installment)
			require.Equal(t, "Fuel", out.Expense.Description)
			requireDecimal(t, "60", out.Expense.Amount)
			requireDecimal(t, "11.61", out.Expense.VATAmount)
			require.True(t, out.Expense.AffectsCostPerDistance)
			require.Nil(t, out.Expense.InstallmentID)
		})
	}
}

func TestOriginateExpense_Rejects(t *testing.T) {
	t.Parallel()

	base := ExpenseInput{Description: "Fuel", Amount: dec("60"), PaymentMethod: models.PaymentMethodCard}

	zero := base
	zero.Installments = 0
	_, err := OriginateExpense(zero, originNow)
	require.ErrorIs(t, err, ErrInvalidInstallmentCount)

	negative := base
	negative.Installments = -4
	_, err = OriginateExpense(negative, originNow)
	require.ErrorIs(t, err, ErrInvalidInstallmentCount)

	noDesc := base
	noDesc.Installments = 1
	noDesc.Description = ""
	_, err = OriginateExpense(noDesc, originNow)
	require.ErrorIs(t, err, models.ErrEmptyDescription)

	noAmount := base
	noAmount.Installments = 3
	noAmount.Amount = decimal.Zero
	_, err = OriginateExpense(noAmount, originNow)
	require.ErrorIs(t, err, models.ErrInvalidAmount)
}

func TestParseInstallmentCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "12", want: 12},
		{input: "x6", want: 6},
		{input: " 3 ", want: 3},
		{input: "1", want: 1},
		{input: "0", wantErr: true},
		{input: "-2", wantErr: true},
		{input: "1.5", wantErr: true},
		{input: "twelve", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseInstallmentCount(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidInstallmentCount)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func FuzzParseInstallmentCount(f *testing.F) {
	for _, seed := range []string{"12", "x3", "0", "-1", "2.5", "", "999999999999999999999"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, input string) {
		n, err := ParseInstallmentCount(input)
		if err == nil && n < 1 {
			t.Fatalf("accepted non-positive count %d from %q", n, input)
		}
	})
}

func TestNextCharge(t *testing.T) {
	t.Parallel()

	due := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	inst := models.Installment{
		ID:                     7,
		Description:            "Tyres",
		TotalAmount:            dec("1200"),
		MonthlyAmount:          dec("100"),
		VATAmount:              dec("240"),
		AffectsCostPerDistance: true,
		TotalInstallments:      12,
		RemainingInstallments:  11,
		StartDate:              time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC),
		NextPaymentDate:        due,
	}

	charge, advanced, ok := NextCharge(inst)
	require.True(t, ok)
	require.Equal(t, "Tyres (2/12)", charge.Description)
	requireDecimal(t, "100", charge.Amount)
	requireDecimal(t, "20", charge.VATAmount)
	require.True(t, charge.AffectsCostPerDistance)
	require.Equal(t, due, charge.Timestamp)
	require.Equal(t, models.PaymentMethodCard, charge.PaymentMethod)
	require.NotNil(t, charge.InstallmentID)
	require.Equal(t, int64(7), *charge.InstallmentID)

	require.Equal(t, 10, advanced.RemainingInstallments)
	require.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), advanced.NextPaymentDate)
	require.NotNil(t, advanced.LastPaymentDate)
	require.Equal(t, due, *advanced.LastPaymentDate)
	require.Equal(t, 11, inst.RemainingInstallments, "input is not mutated")

	inst.RemainingInstallments = 0
	_, _, ok = NextCharge(inst)
	require.False(t, ok)
}

func TestFirstPeriodRecorded(t *testing.T) {
	t.Parallel()

	orig, err := OriginateExpense(ExpenseInput{
		Description:   "Tablet",
		Amount:        dec("300"),
		PaymentMethod: models.PaymentMethodCard,
		Installments:  3,
	}, originNow)
	require.NoError(t, err)
	require.True(t, FirstPeriodRecorded(*orig.Installment))

	_, advanced, ok := NextCharge(*orig.Installment)
	require.True(t, ok)
	require.False(t, FirstPeriodRecorded(advanced))
}
