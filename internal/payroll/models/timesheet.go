package models

import (
	"time"

	"github.com/gartstein/siteledger/internal/payroll/week"
	"github.com/shopspring/decimal"
)

// DayInput is the raw submission for one day. Hours is kept as text so that
// blank or non-numeric values can be skipped rather than rejected.
type DayInput struct {
	Hours string
	Site  string
}

// EmployeeHours is one employee's part of a timesheet submission.
type EmployeeHours struct {
	EmployeeID int64
	Days       map[week.Day]DayInput
}

// TimeEntry is the stored record for one (employee, calendar date).
type TimeEntry struct {
	EmployeeID int64
	// WorkDate is the calendar date in week.DateLayout.
	WorkDate string
	// Hours is always in (0, 24].
	Hours decimal.Decimal
	// Site is the site label as submitted.
	Site string
	// ContractID is resolved through the employee's assignment for Site.
	ContractID int64
	// Rate is the employee's hourly rate at the time of writing.
	Rate      decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Timesheet is an employee's stored entries for one week.
type Timesheet struct {
	EmployeeID int64
	WeekLabel  string
	Entries    map[week.Day]TimeEntry
	TotalHours decimal.Decimal
}

// EmployeeSubmission summarizes what a submission did for one employee.
type EmployeeSubmission struct {
	EmployeeID  int64
	DaysWritten int
	DaysSkipped int
	TotalHours  decimal.Decimal
	// Payment is the ledger row for the week after the submission, nil when
	// the employee has no hours in the week.
	Payment *WeeklyPayment
}

// SubmissionResult is returned by a committed timesheet submission.
type SubmissionResult struct {
	WeekLabel string
	Employees []EmployeeSubmission
}
