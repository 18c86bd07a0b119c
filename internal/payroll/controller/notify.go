package controller

import (
	"context"
	"errors"

	e "github.com/gartstein/siteledger/internal/payroll/errors"
	"github.com/gartstein/siteledger/internal/payroll/events"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/gartstein/siteledger/internal/payroll/week"
	"go.uber.org/zap"
)

// Notifications run after the transaction has committed. Nothing here can
// fail the caller: lookup and producer errors are logged and dropped.

func (s *PayrollService) notifyHoursSubmitted(ctx context.Context, w week.Window, sub models.EmployeeSubmission) {
	now := s.now()
	for _, recipient := range s.recipients(ctx, sub.EmployeeID) {
		event := events.NewEvent(events.HoursSubmitted, recipient, sub.EmployeeID, w.Label(), now)
		event.Hours = sub.TotalHours
		if sub.Payment != nil {
			event.Gross = sub.Payment.GrossAmount
			event.Net = sub.Payment.NetAmount
		}
		s.emit(event)
	}
}

func (s *PayrollService) notifyPaymentConfirmed(ctx context.Context, payment *models.WeeklyPayment) {
	paidAt := s.now()
	if payment.PaidAt != nil {
		paidAt = *payment.PaidAt
	}
	for _, recipient := range s.recipients(ctx, payment.EmployeeID) {
		event := events.NewEvent(events.PaymentConfirmed, recipient, payment.EmployeeID, payment.WeekLabel, paidAt)
		event.Gross = payment.GrossAmount
		event.Net = payment.NetAmount
		s.emit(event)
	}
}

// recipients returns the employee's own account, every manager-equivalent
// account and the admin summary channel, each once.
func (s *PayrollService) recipients(ctx context.Context, employeeID int64) []events.Recipient {
	var out []events.Recipient
	seen := make(map[int64]struct{})

	linked, err := s.repo.LinkedAccount(ctx, employeeID)
	switch {
	case err == nil:
		out = append(out, events.Recipient{AccountID: linked.ID, Email: linked.Email})
		seen[linked.ID] = struct{}{}
	case errors.Is(err, e.ErrNotFound):
	default:
		s.logger.Warn("failed to resolve linked account", zap.Error(err), zap.Int64("employee_id", employeeID))
	}

	managers, err := s.repo.ManagerAccounts(ctx)
	if err != nil {
		s.logger.Warn("failed to resolve manager accounts", zap.Error(err))
	}
	for _, m := range managers {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, events.Recipient{AccountID: m.ID, Email: m.Email})
	}

	return append(out, events.Recipient{Channel: events.AdminChannel})
}

func (s *PayrollService) emit(event events.Event) {
	if err := s.producer.Produce(event); err != nil {
		s.logger.Warn("failed to emit notification",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.Int64("employee_id", event.EmployeeID),
			zap.String("week_label", event.WeekLabel),
		)
	}
}
