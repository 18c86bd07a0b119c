package db

import (
	dbmodels "github.com/gartstein/siteledger/internal/payroll/db/models"
	"github.com/gartstein/siteledger/internal/payroll/models"
)

func employeeFromRow(row dbmodels.Employee) *models.Employee {
	emp := &models.Employee{
		ID:         row.ID,
		Name:       row.Name,
		HourlyRate: row.HourlyRate,
	}
	// An unparseable classification is treated like a missing one.
	if c, err := models.ParseClassification(row.Classification); err == nil {
		emp.Classification = c
	}
	return emp
}

func accountFromRow(row dbmodels.Account) models.Account {
	return models.Account{
		ID:         row.ID,
		Email:      row.Email,
		Role:       models.Role(row.Role),
		EmployeeID: row.EmployeeID,
	}
}

func entryToRow(entry *models.TimeEntry) dbmodels.TimeEntry {
	return dbmodels.TimeEntry{
		EmployeeID: entry.EmployeeID,
		WorkDate:   entry.WorkDate,
		Hours:      entry.Hours,
		Site:       entry.Site,
		ContractID: entry.ContractID,
		Rate:       entry.Rate,
		CreatedAt:  entry.CreatedAt,
		UpdatedAt:  entry.UpdatedAt,
	}
}

func entryFromRow(row dbmodels.TimeEntry) models.TimeEntry {
	return models.TimeEntry{
		EmployeeID: row.EmployeeID,
		WorkDate:   row.WorkDate,
		Hours:      row.Hours,
		Site:       row.Site,
		ContractID: row.ContractID,
		Rate:       row.Rate,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

func paymentToRow(p *models.WeeklyPayment) dbmodels.WeeklyPayment {
	return dbmodels.WeeklyPayment{
		EmployeeID:  p.EmployeeID,
		WeekLabel:   p.WeekLabel,
		GrossAmount: p.GrossAmount,
		NetAmount:   p.NetAmount,
		IsPaid:      p.IsPaid,
		PaidAt:      p.PaidAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func paymentFromRow(row dbmodels.WeeklyPayment) *models.WeeklyPayment {
	return &models.WeeklyPayment{
		EmployeeID:  row.EmployeeID,
		WeekLabel:   row.WeekLabel,
		GrossAmount: row.GrossAmount,
		NetAmount:   row.NetAmount,
		IsPaid:      row.IsPaid,
		PaidAt:      row.PaidAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

func noteFromRow(row dbmodels.WeekNote) *models.WeekNote {
	return &models.WeekNote{
		EmployeeID: row.EmployeeID,
		WeekLabel:  row.WeekLabel,
		Note:       row.Note,
		UpdatedAt:  row.UpdatedAt,
	}
}
