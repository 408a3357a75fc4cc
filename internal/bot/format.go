package bot

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/taxi-ledger/internal/engine"
	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

const (
	displayDate     = "02/01/2006"
	displayDateTime = "02/01/2006 15:04"
)

// escapeHTML escapes HTML special characters for safe interpolation in Telegram HTML messages.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// money formats an amount with two decimals and the currency symbol.
func money(symbol string, d decimal.Decimal) string {
	return d.StringFixed(2) + " " + escapeHTML(symbol)
}

func km(d decimal.Decimal) string {
	return d.StringFixed(1) + " km"
}

func formatGreeting(firstName string) string {
	if firstName == "" {
		return ""
	}
	return ", " + escapeHTML(firstName)
}

func formatDashboard(d engine.Dashboard) string {
	sym := d.CurrencySymbol
	var sb strings.Builder

	if d.HasShift() {
		fmt.Fprintf(&sb, "<b>🟢 Shift in progress</b> #%d\n", d.Shift.ID)
		fmt.Fprintf(&sb, "Started: %s\n", d.Shift.StartTime.Format(displayDateTime))
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "🚕 Jobs: %d\n", d.JobCount)
		fmt.Fprintf(&sb, "💰 Revenue: %s\n", money(sym, d.Revenue))
		fmt.Fprintf(&sb, "🧾 Receipts: %s (VAT %s)\n", money(sym, d.Receipts), money(sym, d.ReceiptsVAT))
		fmt.Fprintf(&sb, "📏 Distance: %s\n", km(d.Distance))
		fmt.Fprintf(&sb, "⛽ Vehicle cost: %s\n", money(sym, d.VehicleCost))
	} else {
		sb.WriteString("<b>No shift recorded yet.</b> Start one with <code>/startshift &lt;odometer&gt;</code>\n")
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Cost per km: %s %s\n", d.CostPerDistance.StringFixed(3), escapeHTML(sym))
	fmt.Fprintf(&sb, "Deductible VAT (all time): %s\n", money(sym, d.TotalDeductibleVAT))
	fmt.Fprintf(&sb, "VAT payable: %s\n", money(sym, d.PayableVAT))
	if d.InstallmentDebt.IsPositive() {
		fmt.Fprintf(&sb, "Installment debt: %s\n", money(sym, d.InstallmentDebt))
	}
	if d.Receivables.IsPositive() {
		fmt.Fprintf(&sb, "Receivables: %s\n", money(sym, d.Receivables))
	}
	return sb.String()
}

func formatReport(r finance.ReportSnapshot, symbol string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 <b>%s</b>\n\n", escapeHTML(r.Period.Label()))
	fmt.Fprintf(&sb, "Shifts: %d\n", r.ShiftCount)
	fmt.Fprintf(&sb, "Income: %s\n", money(symbol, r.TotalIncome))
	fmt.Fprintf(&sb, "Expenses (%d): %s\n", r.ExpenseCount, money(symbol, r.TotalExpenses))
	fmt.Fprintf(&sb, "<b>Net: %s</b>\n\n", money(symbol, r.NetIncome))
	fmt.Fprintf(&sb, "Receipts: %s\n", money(symbol, r.Receipts))
	fmt.Fprintf(&sb, "VAT collected: %s\n", money(symbol, r.VATCollected))
	fmt.Fprintf(&sb, "VAT deductible: %s\n", money(symbol, r.VATDeductible))
	fmt.Fprintf(&sb, "<b>VAT payable: %s</b>", money(symbol, r.VATPayable))
	return sb.String()
}

func formatForecast(months []finance.MonthForecast, symbol string) string {
	var sb strings.Builder
	sb.WriteString("📅 <b>Upcoming obligations</b>\n\n")
	total := decimal.Zero
	for _, m := range months {
		total = total.Add(m.Total)
		line := fmt.Sprintf("%s: %s", m.Label, money(symbol, m.Total))
		if m.Installments.IsPositive() {
			line += fmt.Sprintf(" (installments %s)", m.Installments.StringFixed(2))
		}
		sb.WriteString(line + "\n")
	}
	fmt.Fprintf(&sb, "\n<b>Total: %s</b>", money(symbol, total))
	return sb.String()
}

func formatJob(j *models.Job, symbol string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%d %s %s", j.ID, money(symbol, j.Revenue), j.PaymentType)
	if j.ReceiptAmount != nil {
		fmt.Fprintf(&sb, ", receipt %s", j.ReceiptAmount.StringFixed(2))
	}
	if j.Odometer != nil {
		fmt.Fprintf(&sb, ", odo %s", j.Odometer.StringFixed(1))
	}
	if !j.Paid {
		sb.WriteString(", <i>unpaid</i>")
	}
	if j.Notes != nil {
		fmt.Fprintf(&sb, " - %s", escapeHTML(*j.Notes))
	}
	return sb.String()
}

func formatExpense(e *models.Expense, symbol string) string {
	line := fmt.Sprintf("#%d %s %s %s", e.ID, e.Timestamp.Format(displayDate), escapeHTML(e.Description), money(symbol, e.Amount))
	if e.VATAmount.IsPositive() {
		line += fmt.Sprintf(" (VAT %s)", e.VATAmount.StringFixed(2))
	}
	if e.AffectsCostPerDistance {
		line += " ⛽"
	}
	return line
}

func formatRecurring(r models.RecurringExpense, symbol string) string {
	return fmt.Sprintf("#%d %s %s %s day %d", r.ID, escapeHTML(r.Description), money(symbol, r.Amount), r.Frequency, r.Day)
}

func formatInstallment(i models.Installment, symbol string) string {
	paid := i.TotalInstallments - i.RemainingInstallments
	line := fmt.Sprintf("#%d %s %s/month, %d/%d paid", i.ID, escapeHTML(i.Description), money(symbol, i.MonthlyAmount), paid, i.TotalInstallments)
	if i.IsActive() {
		line += fmt.Sprintf(", next %s, owed %s", i.NextPaymentDate.Format(displayDate), i.Outstanding().StringFixed(2))
	} else {
		line += " ✅"
	}
	return line
}
