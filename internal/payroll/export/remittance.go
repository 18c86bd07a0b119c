// Package export renders payroll documents: the remittance slip handed to an
// employee and the weekly register workbook used by the office.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/gartstein/siteledger/internal/payroll/week"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

// RemittancePDF writes the remittance slip of one weekly payment.
func RemittancePDF(w io.Writer, r *models.Remittance) error {
	if r == nil {
		return fmt.Errorf("remittance is required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Remittance "+r.Payment.WeekLabel, true)
	pdf.SetCreationDate(r.Payment.UpdatedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Remittance advice")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Employee: %s (#%d)", r.Employee.Name, r.Employee.ID)))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Week: %s", r.Payment.WeekLabel))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Classification: %s", r.Classification))
	pdf.Ln(10)

	widths := []float64{30, 28, 52, 22, 26, 30}
	headers := []string{"Day", "Date", "Site", "Hours", "Rate", "Amount"}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, day := range week.Days {
		entry, ok := r.Timesheet.Entries[day]
		if !ok {
			continue
		}
		cells := []string{
			string(day),
			entry.WorkDate,
			entry.Site,
			entry.Hours.StringFixed(2),
			money(entry.Rate),
			money(entry.Hours.Mul(entry.Rate)),
		}
		for i, c := range cells {
			align := "L"
			if i >= 3 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, tr(c), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Total hours: %s", r.Timesheet.TotalHours.StringFixed(2)))
	pdf.Ln(6)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Gross: %s", money(r.Payment.GrossAmount))))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Net factor: %s", r.NetFactor.StringFixed(2)))
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Net: %s", money(r.Payment.NetAmount))))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, statusLine(&r.Payment))

	return pdf.Output(w)
}

func money(d decimal.Decimal) string {
	return "£" + d.StringFixed(moneyPlaces)
}

func statusLine(p *models.WeeklyPayment) string {
	if p.IsPaid && p.PaidAt != nil {
		return "Status: paid on " + p.PaidAt.UTC().Format(time.DateOnly)
	}
	return "Status: " + string(p.Status())
}
