package models

import "github.com/shopspring/decimal"

// SiteHours is the hours logged at one site.
type SiteHours struct {
	Site  string
	Hours decimal.Decimal
}

// EarnerTotal is one employee's ledger amounts for a week.
type EarnerTotal struct {
	EmployeeID int64
	Name       string
	Gross      decimal.Decimal
	Net        decimal.Decimal
	IsPaid     bool
}

// Dashboard is the read-only rollup of one week. Slices are never nil.
type Dashboard struct {
	WeekLabel       string
	TotalHours      decimal.Decimal
	HoursBySite     []SiteHours
	PaidGross       decimal.Decimal
	PaidNet         decimal.Decimal
	PendingCount    int
	TopEarners      []EarnerTotal
	ActiveEmployees int
}
