package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the derived state of a ledger row.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "pending"
	StatusPaid    PaymentStatus = "paid"
)

// WeeklyPayment is the ledger row for one (employee, week).
type WeeklyPayment struct {
	EmployeeID  int64
	WeekLabel   string
	GrossAmount decimal.Decimal
	NetAmount   decimal.Decimal
	IsPaid      bool
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *WeeklyPayment) Status() PaymentStatus {
	if p.IsPaid {
		return StatusPaid
	}
	return StatusPending
}

// StatusUpdate is one requested ledger transition.
type StatusUpdate struct {
	EmployeeID int64
	WeekLabel  string
	Paid       bool
}

// WeekNote is a free-text annotation on an employee's week.
type WeekNote struct {
	EmployeeID int64
	WeekLabel  string
	Note       string
	UpdatedAt  time.Time
}
