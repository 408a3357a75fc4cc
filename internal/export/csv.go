// Package export renders ledger data as CSV, XLSX and PNG files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

const (
	dateLayout = "02/01/2006"
	timeLayout = "15:04"

	// utf8BOM lets spreadsheet programs detect the encoding.
	utf8BOM = "\uFEFF"
)

var (
	shiftHeader   = []string{"Date", "Start Time", "End Time", "Distance (km)", "Revenue", "Receipts (Z)", "VAT (Included)", "Notes"}
	expenseHeader = []string{"Date", "Description", "Amount", "VAT Amount", "Deductible VAT", "Invoice?"}
)

func shiftRow(s models.ShiftSummary, loc *time.Location) []string {
	start := s.Shift.StartTime.In(loc)
	end := "-"
	if s.Shift.EndTime != nil {
		end = s.Shift.EndTime.In(loc).Format(timeLayout)
	}
	distance := "0"
	if s.Shift.EndOdometer != nil {
		distance = s.Shift.EndOdometer.Sub(s.Shift.StartOdometer).StringFixed(1)
	}
	return []string{
		start.Format(dateLayout),
		start.Format(timeLayout),
		end,
		distance,
		s.TotalRevenue.StringFixed(2),
		s.TotalReceipts.StringFixed(2),
		finance.ReceiptVAT(s.TotalReceipts).StringFixed(2),
		"",
	}
}

func expenseRow(e models.Expense, loc *time.Location) []string {
	invoice := "No"
	if e.VATAmount.IsPositive() {
		invoice = "Yes"
	}
	vat := e.VATAmount.StringFixed(2)
	return []string{
		e.Timestamp.In(loc).Format(dateLayout),
		e.Description,
		e.Amount.StringFixed(2),
		vat,
		vat,
		invoice,
	}
}

// ShiftsCSV writes one row per shift with its revenue and included VAT.
// Shifts still running show "-" as end time and zero distance.
func ShiftsCSV(shifts []models.ShiftSummary, loc *time.Location) ([]byte, error) {
	rows := make([][]string, 0, len(shifts))
	for i := range shifts {
		rows = append(rows, shiftRow(shifts[i], loc))
	}
	return writeCSV(shiftHeader, rows)
}

// ExpensesCSV writes one row per expense. An expense carrying VAT counts as
// an invoice.
func ExpensesCSV(expenses []models.Expense, loc *time.Location) ([]byte, error) {
	rows := make([][]string, 0, len(expenses))
	for i := range expenses {
		rows = append(rows, expenseRow(expenses[i], loc))
	}
	return writeCSV(expenseHeader, rows)
}

func writeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	writer := csv.NewWriter(&buf)

	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename names an export file after its content and period, for example
// "shifts_2024-03.csv" or "report_2024.xlsx".
func Filename(prefix string, period finance.Period, ext string) string {
	layout := "2006-01"
	if period.Kind == finance.PeriodYearly {
		layout = "2006"
	}
	return fmt.Sprintf("%s_%s.%s", prefix, period.Start.Format(layout), ext)
}
