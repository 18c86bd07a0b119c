package export

import (
	"fmt"
	"io"
	"time"

	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/xuri/excelize/v2"
)

const (
	RegisterSheet = "Register"
	SitesSheet    = "Sites"
)

var registerHeader = []interface{}{
	"Employee ID", "Name", "Classification", "Hours", "Gross", "Net", "Status", "Paid at",
}

// WeeklyRegisterXLSX writes the register workbook: one row per ledger row
// with a totals line, and a second sheet with the hours per site.
func WeeklyRegisterXLSX(w io.Writer, reg *models.Register) error {
	if reg == nil {
		return fmt.Errorf("register is required")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RegisterSheet); err != nil {
		return err
	}
	if err := f.SetCellValue(RegisterSheet, "A1", "Week "+reg.WeekLabel); err != nil {
		return err
	}
	if err := f.SetSheetRow(RegisterSheet, "A3", &registerHeader); err != nil {
		return err
	}

	row := 4
	for _, line := range reg.Lines {
		paidAt := ""
		if line.Payment.PaidAt != nil {
			paidAt = line.Payment.PaidAt.UTC().Format(time.DateOnly)
		}
		values := []interface{}{
			line.Employee.ID,
			line.Employee.Name,
			string(line.Classification),
			line.Hours.InexactFloat64(),
			line.Payment.GrossAmount.InexactFloat64(),
			line.Payment.NetAmount.InexactFloat64(),
			string(line.Payment.Status()),
			paidAt,
		}
		if err := setRow(f, RegisterSheet, row, values); err != nil {
			return err
		}
		row++
	}

	totals := []interface{}{
		"Total", "", "",
		reg.Summary.TotalHours.InexactFloat64(),
		"", "",
		fmt.Sprintf("%d pending", reg.Summary.PendingCount),
		"",
	}
	if err := setRow(f, RegisterSheet, row, totals); err != nil {
		return err
	}
	if err := setRow(f, RegisterSheet, row+1, []interface{}{
		"Paid", "", "", "",
		reg.Summary.PaidGross.InexactFloat64(),
		reg.Summary.PaidNet.InexactFloat64(),
	}); err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(RegisterSheet, "D4", fmt.Sprintf("F%d", row+1), style); err != nil {
		return err
	}

	if _, err := f.NewSheet(SitesSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(SitesSheet, "A1", &[]interface{}{"Site", "Hours"}); err != nil {
		return err
	}
	for i, site := range reg.Summary.HoursBySite {
		if err := setRow(f, SitesSheet, i+2, []interface{}{site.Site, site.Hours.InexactFloat64()}); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
