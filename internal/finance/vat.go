package finance

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Fixed VAT rates.
var (
	// RevenueVATRate applies to every fiscal receipt issued for a fare.
	RevenueVATRate = decimal.RequireFromString("0.13")
	// StandardVATRate is the common rate on fuel, parts and services.
	StandardVATRate = decimal.RequireFromString("0.24")
)

var one = decimal.NewFromInt(1)

// VAT returns the tax embedded in a tax-inclusive gross amount:
// gross - gross/(1+rate). A zero gross or a rate at or below -1 yields zero.
func VAT(gross, rate decimal.Decimal) decimal.Decimal {
	if gross.IsZero() {
		return decimal.Zero
	}
	divisor := one.Add(rate)
	if !divisor.IsPositive() {
		return decimal.Zero
	}
	return gross.Sub(gross.Div(divisor))
}

// ReceiptVAT is VAT at the revenue rate.
func ReceiptVAT(gross decimal.Decimal) decimal.Decimal {
	return VAT(gross, RevenueVATRate)
}

// VATMode selects how the deductible VAT of an expense invoice is obtained.
type VATMode string

// Supported VAT modes for expenses.
const (
	VATModeNone     VATMode = "none"
	VATModeReduced  VATMode = "13"
	VATModeStandard VATMode = "24"
	VATModeManual   VATMode = "manual"
)

// ParseVATMode parses the short form used in commands: 0, 13, 24 or manual.
func ParseVATMode(s string) (VATMode, error) {
	switch strings.ToLower(strings.TrimSuffix(strings.TrimSpace(s), "%")) {
	case "", "0", "none", "no":
		return VATModeNone, nil
	case "13":
		return VATModeReduced, nil
	case "24":
		return VATModeStandard, nil
	case "manual", "m":
		return VATModeManual, nil
	default:
		return "", fmt.Errorf("unknown VAT mode %q", s)
	}
}

// ExpenseVAT computes the VAT stored on an expense at entry time, rounded to
// cents. Manual mode stores the given amount capped at the invoice amount.
func ExpenseVAT(amount decimal.Decimal, mode VATMode, manual decimal.Decimal) decimal.Decimal {
	switch mode {
	case VATModeReduced:
		return VAT(amount, RevenueVATRate).Round(2)
	case VATModeStandard:
		return VAT(amount, StandardVATRate).Round(2)
	case VATModeManual:
		if manual.IsNegative() {
			return decimal.Zero
		}
		return decimal.Min(manual, amount)
	default:
		return decimal.Zero
	}
}
