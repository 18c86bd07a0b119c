package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gartstein/siteledger/internal/payroll/calc"
	"github.com/gartstein/siteledger/internal/payroll/db"
	e "github.com/gartstein/siteledger/internal/payroll/errors"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/gartstein/siteledger/internal/payroll/week"
	"go.uber.org/zap"
)

// SetPaidStatus moves the (employee, week) ledger row to the requested
// status. A missing row is created first; confirming recomputes the amounts
// from the week's current entries. Requesting the current status is a no-op.
func (s *PayrollService) SetPaidStatus(ctx context.Context, employeeID int64, weekLabel string, paid bool) (*models.WeeklyPayment, error) {
	w, err := week.Parse(weekLabel)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var payment *models.WeeklyPayment
	var confirmed bool
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		var err error
		payment, confirmed, err = s.setPaidStatus(ctx, tx, employeeID, w, paid, now)
		return err
	})
	if err != nil {
		return nil, wrapErr("set payment status", err)
	}

	if confirmed {
		s.notifyPaymentConfirmed(ctx, payment)
	}
	return payment, nil
}

// BulkSetPaidStatus applies every update in one transaction; a single
// failure leaves the ledger unchanged.
func (s *PayrollService) BulkSetPaidStatus(ctx context.Context, updates []models.StatusUpdate) ([]models.WeeklyPayment, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no status updates", e.ErrInvalidInput)
	}
	windows := make([]week.Window, len(updates))
	for i, u := range updates {
		w, err := week.Parse(u.WeekLabel)
		if err != nil {
			return nil, err
		}
		windows[i] = w
	}

	now := s.now()
	var payments []models.WeeklyPayment
	var confirmed []*models.WeeklyPayment
	err := s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		payments = make([]models.WeeklyPayment, 0, len(updates))
		confirmed = confirmed[:0]
		for i, u := range updates {
			payment, ok, err := s.setPaidStatus(ctx, tx, u.EmployeeID, windows[i], u.Paid, now)
			if err != nil {
				return err
			}
			payments = append(payments, *payment)
			if ok {
				confirmed = append(confirmed, payment)
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("set payment statuses", err)
	}

	for _, payment := range confirmed {
		s.notifyPaymentConfirmed(ctx, payment)
	}
	return payments, nil
}

// setPaidStatus reports true when this call moved the row from pending to
// paid.
func (s *PayrollService) setPaidStatus(ctx context.Context, repo Repository, employeeID int64, w week.Window, paid bool, now time.Time) (*models.WeeklyPayment, bool, error) {
	emp, err := getEmployee(ctx, repo, employeeID)
	if err != nil {
		return nil, false, err
	}
	entries, err := repo.ListEntries(ctx, employeeID, w)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list time entries: %w", err)
	}
	totals := calc.Aggregate(entries, s.classificationFor(emp))
	label := w.Label()

	if !paid {
		created, err := repo.CreatePaymentIfAbsent(ctx, &models.WeeklyPayment{
			EmployeeID:  employeeID,
			WeekLabel:   label,
			GrossAmount: totals.Gross,
			NetAmount:   totals.Net,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return nil, false, fmt.Errorf("failed to create payment: %w", err)
		}
		if !created {
			if _, err := repo.MarkPending(ctx, employeeID, label, now); err != nil {
				return nil, false, fmt.Errorf("failed to mark payment pending: %w", err)
			}
		}
		payment, err := repo.GetPayment(ctx, employeeID, label)
		if err != nil {
			return nil, false, fmt.Errorf("failed to read payment: %w", err)
		}
		return payment, false, nil
	}

	if _, err := repo.GetPayment(ctx, employeeID, label); err != nil {
		if !errors.Is(err, e.ErrNotFound) {
			return nil, false, fmt.Errorf("failed to read payment: %w", err)
		}
		if !totals.Hours.IsPositive() {
			return nil, false, fmt.Errorf("%w: no payment or hours for employee %d in week %s", e.ErrNotFound, employeeID, label)
		}
		if _, err := repo.CreatePaymentIfAbsent(ctx, &models.WeeklyPayment{
			EmployeeID:  employeeID,
			WeekLabel:   label,
			GrossAmount: totals.Gross,
			NetAmount:   totals.Net,
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return nil, false, fmt.Errorf("failed to create payment: %w", err)
		}
	}

	confirmed, err := repo.MarkPaid(ctx, employeeID, label, totals.Gross, totals.Net, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to mark payment paid: %w", err)
	}
	payment, err := repo.GetPayment(ctx, employeeID, label)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read payment: %w", err)
	}
	return payment, confirmed, nil
}

// Recompute rewrites the row's amounts from the week's current entries,
// whatever its status. It is the only way a paid amount changes.
func (s *PayrollService) Recompute(ctx context.Context, employeeID int64, weekLabel string) (*models.WeeklyPayment, error) {
	w, err := week.Parse(weekLabel)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var payment *models.WeeklyPayment
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		emp, err := getEmployee(ctx, tx, employeeID)
		if err != nil {
			return err
		}
		entries, err := tx.ListEntries(ctx, employeeID, w)
		if err != nil {
			return fmt.Errorf("failed to list time entries: %w", err)
		}
		totals := calc.Aggregate(entries, s.classificationFor(emp))
		if err := tx.SetAmounts(ctx, employeeID, w.Label(), totals.Gross, totals.Net, now); err != nil {
			if errors.Is(err, e.ErrNotFound) {
				return fmt.Errorf("%w: no payment for employee %d in week %s", e.ErrNotFound, employeeID, w.Label())
			}
			return err
		}
		payment, err = tx.GetPayment(ctx, employeeID, w.Label())
		return err
	})
	if err != nil {
		return nil, wrapErr("recompute payment", err)
	}

	s.logger.Info("payment recomputed",
		zap.Int64("employee_id", employeeID),
		zap.String("week_label", payment.WeekLabel),
		zap.String("gross", payment.GrossAmount.StringFixed(2)),
		zap.Bool("is_paid", payment.IsPaid),
	)
	return payment, nil
}

func (s *PayrollService) GetPayment(ctx context.Context, employeeID int64, weekLabel string) (*models.WeeklyPayment, error) {
	w, err := week.Parse(weekLabel)
	if err != nil {
		return nil, err
	}
	payment, err := s.repo.GetPayment(ctx, employeeID, w.Label())
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("%w: no payment for employee %d in week %s", e.ErrNotFound, employeeID, w.Label())
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return payment, nil
}

// ListPayments returns the week's ledger, largest gross first.
func (s *PayrollService) ListPayments(ctx context.Context, weekLabel string) ([]models.WeeklyPayment, error) {
	w, err := week.Parse(weekLabel)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, w.Label())
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
