package reports

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

func renderReceiptPDF(data ReceiptData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payment Receipt")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Organization: %s", data.OrgName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Worker: %s", data.WorkerName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Email: %s", data.WorkerEmail))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Category: %s", data.Category))
	pdf.Ln(7)
	if data.Description != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Description: %s", data.Description))
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Entry date: %s", data.EntryDate.Format("2006-01-02")))
	pdf.Ln(7)
	if data.PaidDate != nil {
		pdf.Cell(0, 8, fmt.Sprintf("Paid date: %s", data.PaidDate.Format("2006-01-02")))
		pdf.Ln(7)
	}
	if data.CreatedBy != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Recorded by: %s", data.CreatedBy))
		pdf.Ln(7)
	}
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, fmt.Sprintf("Amount: %s", data.Amount.StringFixed(2)))
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Reference: %s", data.EntryID))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
