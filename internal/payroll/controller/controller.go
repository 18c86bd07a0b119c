// Package controller implements the payroll reconciliation service: it turns
// submitted timesheets into time entries, keeps the weekly payment ledger in
// step with them, rolls both up for the dashboard and emits notification
// events when hours are submitted or a payment is confirmed.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gartstein/siteledger/internal/payroll/db"
	e "github.com/gartstein/siteledger/internal/payroll/errors"
	"github.com/gartstein/siteledger/internal/payroll/events"
	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/gartstein/siteledger/internal/payroll/week"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultTopEarners is the dashboard's top-N when none is configured.
const DefaultTopEarners = 5

type EventProducer interface {
	Produce(event events.Event) error
}

// Repository defines the storage the service needs. *db.Repository
// implements it; inside a transaction the service works on the
// transaction-scoped *db.Repository through the same interface.
type Repository interface {
	GetEmployee(ctx context.Context, id int64) (*models.Employee, error)
	ListEmployees(ctx context.Context, ids []int64) (map[int64]models.Employee, error)
	ListAssignments(ctx context.Context, employeeID int64) ([]models.Assignment, error)
	ManagerAccounts(ctx context.Context) ([]models.Account, error)
	LinkedAccount(ctx context.Context, employeeID int64) (*models.Account, error)

	UpsertTimeEntry(ctx context.Context, entry *models.TimeEntry) error
	ListEntries(ctx context.Context, employeeID int64, w week.Window) ([]models.TimeEntry, error)
	ListWeekEntries(ctx context.Context, w week.Window) ([]models.TimeEntry, error)

	CreatePaymentIfAbsent(ctx context.Context, payment *models.WeeklyPayment) (bool, error)
	GetPayment(ctx context.Context, employeeID int64, weekLabel string) (*models.WeeklyPayment, error)
	ListPayments(ctx context.Context, weekLabel string) ([]models.WeeklyPayment, error)
	RefreshPendingAmounts(ctx context.Context, employeeID int64, weekLabel string, gross, net decimal.Decimal, now time.Time) (bool, error)
	MarkPaid(ctx context.Context, employeeID int64, weekLabel string, gross, net decimal.Decimal, paidAt time.Time) (bool, error)
	MarkPending(ctx context.Context, employeeID int64, weekLabel string, now time.Time) (bool, error)
	SetAmounts(ctx context.Context, employeeID int64, weekLabel string, gross, net decimal.Decimal, now time.Time) error

	UpsertWeekNote(ctx context.Context, note *models.WeekNote) error
	GetWeekNote(ctx context.Context, employeeID int64, weekLabel string) (*models.WeekNote, error)

	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
}

// Config is the payroll policy of the service.
type Config struct {
	// DefaultHourlyRate is used for employees whose directory record has no rate.
	DefaultHourlyRate decimal.Decimal
	// DefaultClassification is used for employees without a classification.
	DefaultClassification models.Classification
	// Location decides which calendar day "now" falls on for the dashboard.
	Location *time.Location
	// TopEarners is the number of employees listed on the dashboard.
	TopEarners int
}

type Option func(*PayrollService)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *PayrollService) {
		s.now = now
	}
}

// PayrollService provides the timesheet, ledger, dashboard and note operations.
type PayrollService struct {
	repo     Repository
	producer EventProducer
	cfg      Config
	now      func() time.Time
	logger   *zap.Logger
}

func NewPayrollService(repo Repository, producer EventProducer, cfg Config, logger *zap.Logger, opts ...Option) *PayrollService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.TopEarners <= 0 {
		cfg.TopEarners = DefaultTopEarners
	}
	if cfg.DefaultClassification == "" {
		cfg.DefaultClassification = models.ClassificationUTR
	}
	s := &PayrollService{
		repo:     repo,
		producer: producer,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.Named("payroll_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PayrollService) rateFor(emp *models.Employee) decimal.Decimal {
	if emp.HourlyRate.Valid {
		return emp.HourlyRate.Decimal
	}
	s.logger.Warn("employee has no hourly rate, using default",
		zap.Int64("employee_id", emp.ID),
		zap.String("default_rate", s.cfg.DefaultHourlyRate.StringFixed(2)),
	)
	return s.cfg.DefaultHourlyRate
}

func (s *PayrollService) classificationFor(emp *models.Employee) models.Classification {
	if emp.Classification == "" {
		return s.cfg.DefaultClassification
	}
	return emp.Classification
}

func getEmployee(ctx context.Context, repo Repository, id int64) (*models.Employee, error) {
	emp, err := repo.GetEmployee(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("%w: employee %d", e.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return emp, nil
}

// wrapErr keeps caller-facing errors as they are and adds context to
// everything else.
func wrapErr(op string, err error) error {
	if errors.Is(err, e.ErrInvalidInput) || errors.Is(err, e.ErrNotFound) || errors.Is(err, e.ErrForbidden) {
		return err
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
