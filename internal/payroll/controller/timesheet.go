package controller

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gartstein/siteledger/internal/payroll/calc"
	"github.com/gartstein/siteledger/internal/payroll/db"
	e "github.com/gartstein/siteledger/internal/payroll/errors"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/gartstein/siteledger/internal/payroll/week"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var maxHours = decimal.NewFromInt(24)

// hoursPlaces is the precision hours are stored with.
const hoursPlaces = 2

// SubmitHours records one employee's week. It is SubmitTimesheet with a
// single-employee batch.
func (s *PayrollService) SubmitHours(ctx context.Context, employeeID int64, weekLabel string, days map[week.Day]models.DayInput) (*models.SubmissionResult, error) {
	return s.SubmitTimesheet(ctx, weekLabel, []models.EmployeeHours{{EmployeeID: employeeID, Days: days}})
}

// SubmitTimesheet validates and stores a batch of employee weeks in one
// transaction. Any invalid day aborts the whole batch. Employees that end up
// with hours get their ledger row created or, while pending, refreshed.
func (s *PayrollService) SubmitTimesheet(ctx context.Context, weekLabel string, batch []models.EmployeeHours) (*models.SubmissionResult, error) {
	w, err := week.Parse(weekLabel)
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, fmt.Errorf("%w: timesheet has no employees", e.ErrInvalidInput)
	}
	for _, sub := range batch {
		for day := range sub.Days {
			if day.Offset() < 0 {
				return nil, fmt.Errorf("%w: employee %d: unknown day %q", e.ErrInvalidInput, sub.EmployeeID, day)
			}
		}
	}

	now := s.now()
	result := &models.SubmissionResult{WeekLabel: w.Label()}
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		result.Employees = make([]models.EmployeeSubmission, 0, len(batch))
		for _, sub := range batch {
			es, err := s.submitEmployee(ctx, tx, w, sub, now)
			if err != nil {
				return err
			}
			result.Employees = append(result.Employees, *es)
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("submit timesheet", err)
	}

	for _, es := range result.Employees {
		if es.TotalHours.IsPositive() {
			s.notifyHoursSubmitted(ctx, w, es)
		}
	}
	return result, nil
}

func (s *PayrollService) submitEmployee(ctx context.Context, repo Repository, w week.Window, sub models.EmployeeHours, now time.Time) (*models.EmployeeSubmission, error) {
	emp, err := getEmployee(ctx, repo, sub.EmployeeID)
	if err != nil {
		return nil, err
	}
	assignments, err := repo.ListAssignments(ctx, emp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	rate := s.rateFor(emp)

	es := &models.EmployeeSubmission{EmployeeID: emp.ID}
	for _, day := range week.Days {
		in, ok := sub.Days[day]
		if !ok {
			continue
		}
		hours, ok := parseHours(in.Hours)
		if !ok {
			es.DaysSkipped++
			continue
		}
		if hours.GreaterThan(maxHours) {
			return nil, &e.HoursOutOfRangeError{EmployeeID: emp.ID, Day: string(day), Hours: in.Hours}
		}
		if !hours.Equal(hours.Round(hoursPlaces)) {
			return nil, &e.HoursPrecisionError{EmployeeID: emp.ID, Day: string(day), Hours: in.Hours}
		}
		site := strings.TrimSpace(in.Site)
		if site == "" {
			return nil, &e.MissingSiteError{EmployeeID: emp.ID, Day: string(day)}
		}
		assignment, ok := findAssignment(assignments, site)
		if !ok {
			return nil, &e.UnassignedSiteError{
				EmployeeID:    emp.ID,
				Day:           string(day),
				Site:          site,
				AssignedSites: siteNames(assignments),
			}
		}

		entry := &models.TimeEntry{
			EmployeeID: emp.ID,
			WorkDate:   w.DateOf(day),
			Hours:      hours,
			Site:       assignment.SiteName,
			ContractID: assignment.ContractID,
			Rate:       rate,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := repo.UpsertTimeEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to store time entry: %w", err)
		}
		es.DaysWritten++
	}

	entries, err := repo.ListEntries(ctx, emp.ID, w)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	totals := calc.Aggregate(entries, s.classificationFor(emp))
	es.TotalHours = totals.Hours
	if !totals.Hours.IsPositive() {
		return es, nil
	}

	payment, err := s.syncPayment(ctx, repo, emp.ID, w, totals, now)
	if err != nil {
		return nil, err
	}
	es.Payment = payment
	return es, nil
}

// syncPayment creates the week's ledger row if it does not exist yet and
// otherwise refreshes a pending row's amounts. Paid rows are not touched.
func (s *PayrollService) syncPayment(ctx context.Context, repo Repository, employeeID int64, w week.Window, totals calc.Totals, now time.Time) (*models.WeeklyPayment, error) {
	created, err := repo.CreatePaymentIfAbsent(ctx, &models.WeeklyPayment{
		EmployeeID:  employeeID,
		WeekLabel:   w.Label(),
		GrossAmount: totals.Gross,
		NetAmount:   totals.Net,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	if !created {
		if _, err := repo.RefreshPendingAmounts(ctx, employeeID, w.Label(), totals.Gross, totals.Net, now); err != nil {
			return nil, fmt.Errorf("failed to refresh payment: %w", err)
		}
	}
	payment, err := repo.GetPayment(ctx, employeeID, w.Label())
	if err != nil {
		return nil, fmt.Errorf("failed to read payment: %w", err)
	}
	return payment, nil
}

// GetTimesheet returns the employee's stored entries for the week.
func (s *PayrollService) GetTimesheet(ctx context.Context, employeeID int64, weekLabel string) (*models.Timesheet, error) {
	w, err := week.Parse(weekLabel)
	if err != nil {
		return nil, err
	}
	if _, err := getEmployee(ctx, s.repo, employeeID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEntries(ctx, employeeID, w)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}

	ts := &models.Timesheet{
		EmployeeID: employeeID,
		WeekLabel:  w.Label(),
		Entries:    make(map[week.Day]models.TimeEntry, len(entries)),
		TotalHours: decimal.Zero,
	}
	for _, entry := range entries {
		day, ok := w.DayOf(entry.WorkDate)
		if !ok {
			s.logger.Warn("time entry outside of its week", zap.Int64("employee_id", employeeID), zap.String("work_date", entry.WorkDate))
			continue
		}
		ts.Entries[day] = entry
		ts.TotalHours = ts.TotalHours.Add(entry.Hours)
	}
	return ts, nil
}

// parseHours returns the hours of a day as entered, or false when the day
// should be skipped: blank, non-numeric, or not positive. Range and precision
// are checked by the caller on the unrounded value.
func parseHours(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	hours, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	if !hours.IsPositive() {
		return decimal.Zero, false
	}
	return hours, true
}

func findAssignment(assignments []models.Assignment, site string) (models.Assignment, bool) {
	for _, a := range assignments {
		if strings.EqualFold(a.SiteName, site) {
			return a, true
		}
	}
	return models.Assignment{}, false
}

func siteNames(assignments []models.Assignment) []string {
	seen := make(map[string]struct{}, len(assignments))
	names := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if _, ok := seen[a.SiteName]; ok {
			continue
		}
		seen[a.SiteName] = struct{}{}
		names = append(names, a.SiteName)
	}
	sort.Strings(names)
	return names
}
