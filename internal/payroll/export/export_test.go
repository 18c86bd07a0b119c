package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/gartstein/siteledger/internal/payroll/week"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testWeek = "2024-06-10 - 2024-06-16"

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func paidPayment() models.WeeklyPayment {
	paidAt := time.Date(2024, 6, 17, 9, 0, 0, 0, time.UTC)
	return models.WeeklyPayment{
		EmployeeID:  1,
		WeekLabel:   testWeek,
		GrossAmount: d("180.00"),
		NetAmount:   d("126.00"),
		IsPaid:      true,
		PaidAt:      &paidAt,
		UpdatedAt:   paidAt,
	}
}

func TestRemittancePDF(t *testing.T) {
	r := &models.Remittance{
		Employee:       models.Employee{ID: 1, Name: "Alice Mason"},
		Classification: models.ClassificationNI,
		NetFactor:      d("0.70"),
		Payment:        paidPayment(),
		Timesheet: models.Timesheet{
			EmployeeID: 1,
			WeekLabel:  testWeek,
			Entries: map[week.Day]models.TimeEntry{
				week.Monday:  {WorkDate: "2024-06-10", Site: "Riverside", Hours: d("10"), Rate: d("15")},
				week.Tuesday: {WorkDate: "2024-06-11", Site: "Harbour", Hours: d("2"), Rate: d("15")},
			},
			TotalHours: d("12"),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, RemittancePDF(&buf, r))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	assert.Error(t, RemittancePDF(&buf, nil))
}

func TestStatusLine(t *testing.T) {
	p := paidPayment()
	assert.Equal(t, "Status: paid on 2024-06-17", statusLine(&p))

	p.IsPaid = false
	p.PaidAt = nil
	assert.Equal(t, "Status: pending", statusLine(&p))
}

func TestWeeklyRegisterXLSX(t *testing.T) {
	pending := models.WeeklyPayment{EmployeeID: 2, WeekLabel: testWeek, GrossAmount: d("160"), NetAmount: d("128")}
	reg := &models.Register{
		WeekLabel: testWeek,
		Lines: []models.RegisterLine{
			{
				Employee:       models.Employee{ID: 1, Name: "Alice Mason"},
				Classification: models.ClassificationNI,
				Hours:          d("12"),
				Payment:        paidPayment(),
			},
			{
				Employee:       models.Employee{ID: 2, Name: "Bob Joiner"},
				Classification: models.ClassificationUTR,
				Hours:          d("8"),
				Payment:        pending,
			},
		},
		Summary: models.Dashboard{
			WeekLabel:    testWeek,
			TotalHours:   d("20"),
			HoursBySite:  []models.SiteHours{{Site: "Harbour", Hours: d("10")}, {Site: "Riverside", Hours: d("10")}},
			PaidGross:    d("180"),
			PaidNet:      d("126"),
			PendingCount: 1,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WeeklyRegisterXLSX(&buf, reg))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	cell := func(sheet, axis string) string {
		v, err := f.GetCellValue(sheet, axis)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Week "+testWeek, cell(RegisterSheet, "A1"))
	assert.Equal(t, "Employee ID", cell(RegisterSheet, "A3"))
	assert.Equal(t, "Alice Mason", cell(RegisterSheet, "B4"))
	assert.Equal(t, "180.00", cell(RegisterSheet, "E4"))
	assert.Equal(t, "paid", cell(RegisterSheet, "G4"))
	assert.Equal(t, "2024-06-17", cell(RegisterSheet, "H4"))
	assert.Equal(t, "pending", cell(RegisterSheet, "G5"))
	assert.Equal(t, "Total", cell(RegisterSheet, "A6"))
	assert.Equal(t, "1 pending", cell(RegisterSheet, "G6"))
	assert.Equal(t, "126.00", cell(RegisterSheet, "F7"))

	assert.Equal(t, "Harbour", cell(SitesSheet, "A2"))
	assert.Equal(t, "Riverside", cell(SitesSheet, "A3"))

	assert.Error(t, WeeklyRegisterXLSX(&buf, nil))
}
