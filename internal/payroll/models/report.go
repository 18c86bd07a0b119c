package models

import "github.com/shopspring/decimal"

// Remittance is everything printed on one employee's remittance slip.
type Remittance struct {
	Employee       Employee
	Classification Classification
	NetFactor      decimal.Decimal
	Payment        WeeklyPayment
	Timesheet      Timesheet
}

// RegisterLine is one employee's row of the weekly register.
type RegisterLine struct {
	Employee       Employee
	Classification Classification
	Hours          decimal.Decimal
	Payment        WeeklyPayment
}

// Register is the week's full payroll register.
type Register struct {
	WeekLabel string
	Lines     []RegisterLine
	Summary   Dashboard
}
