package reports

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"siteledger/internal/domain/ledger"
)

// renderStatementXLSX lays the entries out oldest first with a running
// balance. Pending accruals appear but do not move the balance until a
// settlement pays them; debits always count.
func renderStatementXLSX(workerName string, rows []StatementRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Statement"
	f.SetSheetName("Sheet1", sheet)

	if err := f.SetCellValue(sheet, "A1", fmt.Sprintf("Ledger statement: %s", workerName)); err != nil {
		return nil, err
	}
	headers := []string{"Date", "Type", "Category", "Description", "Amount", "Status", "Balance"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 3)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	balance := decimal.Zero
	for i, row := range rows {
		if row.Type == ledger.TypeDebit {
			balance = balance.Sub(row.Amount)
		} else if row.Status == ledger.StatusPaid {
			balance = balance.Add(row.Amount)
		}

		values := []any{
			row.EntryDate.Format("2006-01-02"),
			row.Type,
			row.Category,
			row.Description,
			row.Amount.StringFixed(2),
			row.Status,
			balance.StringFixed(2),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+4)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
