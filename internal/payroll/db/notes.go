package db

import (
	"context"
	"errors"

	dbmodels "github.com/gartstein/siteledger/internal/payroll/db/models"
	e "github.com/gartstein/siteledger/internal/payroll/errors"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) UpsertWeekNote(ctx context.Context, note *models.WeekNote) error {
	row := dbmodels.WeekNote{
		EmployeeID: note.EmployeeID,
		WeekLabel:  note.WeekLabel,
		Note:       note.Note,
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "employee_id"}, {Name: "week_label"}},
			DoUpdates: clause.AssignmentColumns([]string{"note", "updated_at"}),
		}).
		Create(&row)
	if result.Error != nil {
		return result.Error
	}
	note.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) GetWeekNote(ctx context.Context, employeeID int64, weekLabel string) (*models.WeekNote, error) {
	var row dbmodels.WeekNote
	result := r.db.WithContext(ctx).First(&row, "employee_id = ? AND week_label = ?", employeeID, weekLabel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return noteFromRow(row), nil
}
