package controller

import (
	"context"
	"fmt"
	"sort"

	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/gartstein/siteledger/internal/payroll/week"
	"github.com/shopspring/decimal"
)

// Dashboard rolls up the week containing the current date in the configured
// timezone.
func (s *PayrollService) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	return s.dashboardFor(ctx, week.For(s.now().In(s.cfg.Location)))
}

func (s *PayrollService) DashboardForWeek(ctx context.Context, weekLabel string) (*models.Dashboard, error) {
	w, err := week.Parse(weekLabel)
	if err != nil {
		return nil, err
	}
	return s.dashboardFor(ctx, w)
}

func (s *PayrollService) dashboardFor(ctx context.Context, w week.Window) (*models.Dashboard, error) {
	entries, err := s.repo.ListWeekEntries(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	payments, err := s.repo.ListPayments(ctx, w.Label())
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	d := &models.Dashboard{
		WeekLabel:   w.Label(),
		TotalHours:  decimal.Zero,
		HoursBySite: []models.SiteHours{},
		PaidGross:   decimal.Zero,
		PaidNet:     decimal.Zero,
		TopEarners:  []models.EarnerTotal{},
	}

	bySite := make(map[string]decimal.Decimal)
	active := make(map[int64]struct{})
	for _, entry := range entries {
		if !entry.Hours.IsPositive() {
			continue
		}
		d.TotalHours = d.TotalHours.Add(entry.Hours)
		bySite[entry.Site] = bySite[entry.Site].Add(entry.Hours)
		active[entry.EmployeeID] = struct{}{}
	}
	d.ActiveEmployees = len(active)
	for site, hours := range bySite {
		d.HoursBySite = append(d.HoursBySite, models.SiteHours{Site: site, Hours: hours})
	}
	sort.Slice(d.HoursBySite, func(i, j int) bool {
		a, b := d.HoursBySite[i], d.HoursBySite[j]
		if !a.Hours.Equal(b.Hours) {
			return a.Hours.GreaterThan(b.Hours)
		}
		return a.Site < b.Site
	})

	for _, p := range payments {
		if p.IsPaid {
			d.PaidGross = d.PaidGross.Add(p.GrossAmount)
			d.PaidNet = d.PaidNet.Add(p.NetAmount)
		} else {
			d.PendingCount++
		}
	}

	// payments are ordered by gross, largest first
	top := payments
	if len(top) > s.cfg.TopEarners {
		top = top[:s.cfg.TopEarners]
	}
	ids := make([]int64, 0, len(top))
	for _, p := range top {
		ids = append(ids, p.EmployeeID)
	}
	employees, err := s.repo.ListEmployees(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	for _, p := range top {
		d.TopEarners = append(d.TopEarners, models.EarnerTotal{
			EmployeeID: p.EmployeeID,
			Name:       employees[p.EmployeeID].Name,
			Gross:      p.GrossAmount,
			Net:        p.NetAmount,
			IsPaid:     p.IsPaid,
		})
	}
	return d, nil
}
