// Package calc turns a week of time entries into payroll amounts.
package calc

import (
	"github.com/gartstein/siteledger/internal/payroll/models"
	"github.com/shopspring/decimal"
)

// AmountPlaces is the precision of every stored amount.
const AmountPlaces = 2

var (
	niFactor  = decimal.RequireFromString("0.70")
	utrFactor = decimal.RequireFromString("0.80")
)

// Totals are the weekly figures for one employee.
type Totals struct {
	Hours decimal.Decimal
	Gross decimal.Decimal
	Net   decimal.Decimal
}

// NetFactor returns the share of gross kept by the classification.
// Unknown classifications use the UTR factor.
func NetFactor(c models.Classification) decimal.Decimal {
	if c == models.ClassificationNI {
		return niFactor
	}
	return utrFactor
}

// Aggregate sums hours and pay over entries. Each entry is paid at its own
// rate snapshot. Only the returned Gross and Net are rounded; net is derived
// from the unrounded gross.
func Aggregate(entries []models.TimeEntry, c models.Classification) Totals {
	hours := decimal.Zero
	gross := decimal.Zero
	for _, entry := range entries {
		if !entry.Hours.IsPositive() {
			continue
		}
		hours = hours.Add(entry.Hours)
		gross = gross.Add(entry.Hours.Mul(entry.Rate))
	}

	return Totals{
		Hours: hours,
		Gross: gross.Round(AmountPlaces),
		Net:   gross.Mul(NetFactor(c)).Round(AmountPlaces),
	}
}
