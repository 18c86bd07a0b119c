// Package models contains the table rows of the payroll schema, mapped with
// GORM. The schema itself is provisioned by the goose migrations in the
// parent package; these structs never drive AutoMigrate.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee is a row of the directory's employees table.
type Employee struct {
	ID             int64               `gorm:"primaryKey;autoIncrement:false"`
	Name           string              `gorm:"size:200"`
	HourlyRate     decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	Classification string              `gorm:"size:3"`
}

func (Employee) TableName() string { return "employees" }

// Contract is a row of the registry's contracts table.
type Contract struct {
	ID       int64  `gorm:"primaryKey;autoIncrement:false"`
	SiteName string `gorm:"size:200"`
	Status   string `gorm:"size:20"`
}

func (Contract) TableName() string { return "contracts" }

// Assignment links an employee to a contract.
type Assignment struct {
	EmployeeID int64 `gorm:"primaryKey;autoIncrement:false"`
	ContractID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (Assignment) TableName() string { return "assignments" }

// Account is a login known to the directory.
type Account struct {
	ID         int64  `gorm:"primaryKey;autoIncrement:false"`
	Email      string `gorm:"size:320"`
	Role       string `gorm:"size:20"`
	EmployeeID *int64
}

func (Account) TableName() string { return "accounts" }

// TimeEntry is keyed by (employee_id, work_date).
type TimeEntry struct {
	EmployeeID int64           `gorm:"primaryKey;autoIncrement:false"`
	WorkDate   string          `gorm:"primaryKey;size:10"`
	Hours      decimal.Decimal `gorm:"type:numeric(5,2)"`
	Site       string          `gorm:"size:200"`
	ContractID int64
	Rate       decimal.Decimal `gorm:"type:numeric(10,2)"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (TimeEntry) TableName() string { return "time_entries" }

// WeeklyPayment is keyed by (employee_id, week_label).
type WeeklyPayment struct {
	EmployeeID  int64           `gorm:"primaryKey;autoIncrement:false"`
	WeekLabel   string          `gorm:"primaryKey;size:23"`
	GrossAmount decimal.Decimal `gorm:"type:numeric(12,2)"`
	NetAmount   decimal.Decimal `gorm:"type:numeric(12,2)"`
	IsPaid      bool
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (WeeklyPayment) TableName() string { return "weekly_payments" }

// WeekNote is keyed by (employee_id, week_label).
type WeekNote struct {
	EmployeeID int64  `gorm:"primaryKey;autoIncrement:false"`
	WeekLabel  string `gorm:"primaryKey;size:23"`
	Note       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (WeekNote) TableName() string { return "week_notes" }
