// Package models defines the core domain models of the payroll engine:
// directory records read from the external registries, time entries, the
// weekly payment ledger and the reporting rollups built from them.
package models

import (
	"fmt"
	"strings"

	e "github.com/gartstein/siteledger/internal/payroll/errors"
	"github.com/shopspring/decimal"
)

// Classification selects the net-pay formula of an employee.
type Classification string

const (
	// ClassificationNI keeps 70% of gross.
	ClassificationNI Classification = "NI"
	// ClassificationUTR keeps 80% of gross.
	ClassificationUTR Classification = "UTR"
)

// ParseClassification normalizes a stored or configured classification.
func ParseClassification(s string) (Classification, error) {
	switch Classification(strings.ToUpper(strings.TrimSpace(s))) {
	case ClassificationNI:
		return ClassificationNI, nil
	case ClassificationUTR:
		return ClassificationUTR, nil
	default:
		return "", fmt.Errorf("%w: unknown classification %q", e.ErrInvalidInput, s)
	}
}

// Role is the access level of an account.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// IsManager reports whether the role receives manager-level notifications
// and may change payment status.
func (r Role) IsManager() bool {
	return r == RoleAdmin || r == RoleManager
}

// Employee is a worker as owned by the Employee Directory.
type Employee struct {
	// ID is the directory identifier.
	ID int64
	// Name is the display name.
	Name string
	// HourlyRate is the current rate; invalid when the directory record is incomplete.
	HourlyRate decimal.NullDecimal
	// Classification selects the net factor; empty when the record is incomplete.
	Classification Classification
}

// Contract is a site contract as owned by the Contract Registry.
type Contract struct {
	ID       int64
	SiteName string
	Status   string
}

// Assignment links an employee to a contract and carries the contract's site
// name so site labels can be resolved without another lookup.
type Assignment struct {
	EmployeeID int64
	ContractID int64
	SiteName   string
}

// Account is a login that may receive notification events.
type Account struct {
	ID         int64
	Email      string
	Role       Role
	EmployeeID *int64
}
