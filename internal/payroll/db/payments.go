package db

import (
	"context"
	"errors"
	"time"

	dbmodels "github.com/gartstein/siteledger/internal/payroll/db/models"
	e "github.com/gartstein/siteledger/internal/payroll/errors"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreatePaymentIfAbsent inserts the ledger row unless one already exists for
// (employee, week). The insert and the uniqueness check are one statement, so
// concurrent callers fold into a single row. It reports whether this call
// created the row.
func (r *Repository) CreatePaymentIfAbsent(ctx context.Context, payment *models.WeeklyPayment) (bool, error) {
	row := paymentToRow(payment)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "employee_id"}, {Name: "week_label"}},
			DoNothing: true,
		}).
		Create(&row)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) GetPayment(ctx context.Context, employeeID int64, weekLabel string) (*models.WeeklyPayment, error) {
	var row dbmodels.WeeklyPayment
	result := r.db.WithContext(ctx).First(&row, "employee_id = ? AND week_label = ?", employeeID, weekLabel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return paymentFromRow(row), nil
}

// ListPayments returns the week's ledger rows, largest gross first.
func (r *Repository) ListPayments(ctx context.Context, weekLabel string) ([]models.WeeklyPayment, error) {
	var rows []dbmodels.WeeklyPayment
	result := r.db.WithContext(ctx).
		Where("week_label = ?", weekLabel).
		Order("gross_amount DESC, employee_id").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	payments := make([]models.WeeklyPayment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, *paymentFromRow(row))
	}
	return payments, nil
}

// RefreshPendingAmounts rewrites the amounts of a pending row. Paid rows are
// left untouched; the boolean reports whether a row was updated.
func (r *Repository) RefreshPendingAmounts(ctx context.Context, employeeID int64, weekLabel string, gross, net decimal.Decimal, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&dbmodels.WeeklyPayment{}).
		Where("employee_id = ? AND week_label = ? AND is_paid = ?", employeeID, weekLabel, false).
		Updates(map[string]interface{}{
			"gross_amount": gross,
			"net_amount":   net,
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkPaid moves a pending row to paid with the given amounts. It reports
// false when the row was already paid (or absent), which makes a concurrent
// double confirm transition only once.
func (r *Repository) MarkPaid(ctx context.Context, employeeID int64, weekLabel string, gross, net decimal.Decimal, paidAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&dbmodels.WeeklyPayment{}).
		Where("employee_id = ? AND week_label = ? AND is_paid = ?", employeeID, weekLabel, false).
		Updates(map[string]interface{}{
			"is_paid":      true,
			"gross_amount": gross,
			"net_amount":   net,
			"paid_at":      paidAt,
			"updated_at":   paidAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// MarkPending moves a paid row back to pending, keeping its amounts.
func (r *Repository) MarkPending(ctx context.Context, employeeID int64, weekLabel string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&dbmodels.WeeklyPayment{}).
		Where("employee_id = ? AND week_label = ? AND is_paid = ?", employeeID, weekLabel, true).
		Updates(map[string]interface{}{
			"is_paid":    false,
			"paid_at":    nil,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SetAmounts overwrites the amounts regardless of status.
func (r *Repository) SetAmounts(ctx context.Context, employeeID int64, weekLabel string, gross, net decimal.Decimal, now time.Time) error {
	result := r.db.WithContext(ctx).Model(&dbmodels.WeeklyPayment{}).
		Where("employee_id = ? AND week_label = ?", employeeID, weekLabel).
		Updates(map[string]interface{}{
			"gross_amount": gross,
			"net_amount":   net,
			"updated_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}
