package controller

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	e "github.com/gartstein/siteledger/internal/payroll/errors"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/gartstein/siteledger/internal/payroll/week"
)

const maxNoteLength = 2000

// SaveWeekNote creates or replaces the employee's note for the week.
func (s *PayrollService) SaveWeekNote(ctx context.Context, employeeID int64, weekLabel, text string) (*models.WeekNote, error) {
	w, err := week.Parse(weekLabel)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(text) > maxNoteLength {
		return nil, fmt.Errorf("%w: note longer than %d characters", e.ErrInvalidInput, maxNoteLength)
	}
	if _, err := getEmployee(ctx, s.repo, employeeID); err != nil {
		return nil, err
	}

	note := &models.WeekNote{EmployeeID: employeeID, WeekLabel: w.Label(), Note: text}
	if err := s.repo.UpsertWeekNote(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to save week note: %w", err)
	}
	return note, nil
}

func (s *PayrollService) GetWeekNote(ctx context.Context, employeeID int64, weekLabel string) (*models.WeekNote, error) {
	w, err := week.Parse(weekLabel)
	if err != nil {
		return nil, err
	}
	note, err := s.repo.GetWeekNote(ctx, employeeID, w.Label())
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("%w: no note for employee %d in week %s", e.ErrNotFound, employeeID, w.Label())
		}
		return nil, fmt.Errorf("failed to get week note: %w", err)
	}
	return note, nil
}
