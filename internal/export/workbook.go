package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

const (
	shiftsSheet   = "Shifts"
	expensesSheet = "Expenses"
)

// ReportWorkbook builds an XLSX file with a Shifts and an Expenses sheet
// laid out like the CSV exports.
func ReportWorkbook(shifts []models.ShiftSummary, expenses []models.Expense, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// A new file starts with "Sheet1"; rename it instead of leaving it empty.
	if err := f.SetSheetName(f.GetSheetName(0), shiftsSheet); err != nil {
		return nil, fmt.Errorf("failed to create shifts sheet: %w", err)
	}
	shiftRows := make([][]string, 0, len(shifts))
	for i := range shifts {
		shiftRows = append(shiftRows, shiftRow(shifts[i], loc))
	}
	if err := writeSheet(f, shiftsSheet, shiftHeader, shiftRows); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(expensesSheet); err != nil {
		return nil, fmt.Errorf("failed to create expenses sheet: %w", err)
	}
	expenseRows := make([][]string, 0, len(expenses))
	for i := range expenses {
		expenseRows = append(expenseRows, expenseRow(expenses[i], loc))
	}
	if err := writeSheet(f, expensesSheet, expenseHeader, expenseRows); err != nil {
		return nil, err
	}

	_ = f.SetColWidth(shiftsSheet, "A", "H", 14)
	_ = f.SetColWidth(expensesSheet, "A", "A", 12)
	_ = f.SetColWidth(expensesSheet, "B", "B", 30)
	_ = f.SetColWidth(expensesSheet, "C", "F", 14)
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
