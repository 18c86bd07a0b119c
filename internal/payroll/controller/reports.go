package controller

import (
	"context"
	"fmt"

	"github.com/gartstein/siteledger/internal/payroll/calc"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/gartstein/siteledger/internal/payroll/week"
	"github.com/shopspring/decimal"
)

// Remittance collects the data of one employee's remittance slip. The
// payment must exist.
func (s *PayrollService) Remittance(ctx context.Context, employeeID int64, weekLabel string) (*models.Remittance, error) {
	payment, err := s.GetPayment(ctx, employeeID, weekLabel)
	if err != nil {
		return nil, err
	}
	emp, err := getEmployee(ctx, s.repo, employeeID)
	if err != nil {
		return nil, err
	}
	ts, err := s.GetTimesheet(ctx, employeeID, weekLabel)
	if err != nil {
		return nil, err
	}
	classification := s.classificationFor(emp)
	return &models.Remittance{
		Employee:       *emp,
		Classification: classification,
		NetFactor:      calc.NetFactor(classification),
		Payment:        *payment,
		Timesheet:      *ts,
	}, nil
}

// Register collects every ledger row of the week with its employee and hours.
func (s *PayrollService) Register(ctx context.Context, weekLabel string) (*models.Register, error) {
	w, err := week.Parse(weekLabel)
	if err != nil {
		return nil, err
	}
	summary, err := s.dashboardFor(ctx, w)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, w.Label())
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	entries, err := s.repo.ListWeekEntries(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}

	hours := make(map[int64]decimal.Decimal)
	for _, entry := range entries {
		hours[entry.EmployeeID] = hours[entry.EmployeeID].Add(entry.Hours)
	}
	ids := make([]int64, 0, len(payments))
	for _, p := range payments {
		ids = append(ids, p.EmployeeID)
	}
	employees, err := s.repo.ListEmployees(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	register := &models.Register{
		WeekLabel: w.Label(),
		Lines:     make([]models.RegisterLine, 0, len(payments)),
		Summary:   *summary,
	}
	for _, p := range payments {
		emp, ok := employees[p.EmployeeID]
		if !ok {
			emp = models.Employee{ID: p.EmployeeID}
		}
		register.Lines = append(register.Lines, models.RegisterLine{
			Employee:       emp,
			Classification: s.classificationFor(&emp),
			Hours:          hours[p.EmployeeID],
			Payment:        p,
		})
	}
	return register, nil
}
