package db

import (
	"context"

	dbmodels "github.com/gartstein/siteledger/internal/payroll/db/models"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/gartstein/siteledger/internal/payroll/week"
	"gorm.io/gorm/clause"
)

// UpsertTimeEntry inserts the entry or, when (employee, date) already exists,
// overwrites hours, site, contract and rate in place.
func (r *Repository) UpsertTimeEntry(ctx context.Context, entry *models.TimeEntry) error {
	row := entryToRow(entry)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "employee_id"}, {Name: "work_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"hours", "site", "contract_id", "rate", "updated_at"}),
		}).
		Create(&row)
	return result.Error
}

// ListEntries returns an employee's entries inside the window, by date.
func (r *Repository) ListEntries(ctx context.Context, employeeID int64, w week.Window) ([]models.TimeEntry, error) {
	var rows []dbmodels.TimeEntry
	result := r.db.WithContext(ctx).
		Where("employee_id = ? AND work_date BETWEEN ? AND ?", employeeID, w.StartDate(), w.EndDate()).
		Order("work_date").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	return entriesFromRows(rows), nil
}

// ListWeekEntries returns every entry inside the window.
func (r *Repository) ListWeekEntries(ctx context.Context, w week.Window) ([]models.TimeEntry, error) {
	var rows []dbmodels.TimeEntry
	result := r.db.WithContext(ctx).
		Where("work_date BETWEEN ? AND ?", w.StartDate(), w.EndDate()).
		Order("employee_id, work_date").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	return entriesFromRows(rows), nil
}

func entriesFromRows(rows []dbmodels.TimeEntry) []models.TimeEntry {
	entries := make([]models.TimeEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, entryFromRow(row))
	}
	return entries
}
