// Package week derives the canonical Monday-to-Sunday payroll window from any
// date. The window label is the join key between time entries and the
// payment ledger, so every caller must go through For or Parse.
package week

import (
	"fmt"
	"strings"
	"time"

	e "github.com/gartstein/siteledger/internal/payroll/errors"
)

// DateLayout is the storage and wire layout of a calendar date.
const DateLayout = "2006-01-02"

const labelSeparator = " - "

// Day is one of the seven fixed day labels of a payroll week.
type Day string

const (
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
	Saturday  Day = "Saturday"
	Sunday    Day = "Sunday"
)

// Days lists the day labels Monday first.
var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Offset returns the number of days between the window start and d, or -1
// for an unknown label.
func (d Day) Offset() int {
	for i, day := range Days {
		if day == d {
			return i
		}
	}
	return -1
}

// ParseDay accepts a day label in any letter case.
func ParseDay(s string) (Day, error) {
	for _, day := range Days {
		if strings.EqualFold(strings.TrimSpace(s), string(day)) {
			return day, nil
		}
	}
	return "", fmt.Errorf("%w: unknown day %q", e.ErrInvalidInput, s)
}

// Window is the half-open interval [Monday 00:00, next Monday 00:00).
// Start is always a Monday at midnight UTC.
type Window struct {
	Start time.Time
}

// For returns the window containing the calendar date of t, as seen in t's
// own location.
func For(t time.Time) Window {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	offset := 1 - int(day.Weekday())
	if day.Weekday() == time.Sunday {
		offset = -6
	}
	return Window{Start: day.AddDate(0, 0, offset)}
}

// Parse accepts either a full label ("2024-06-10 - 2024-06-16") or any single
// date, and returns the canonical window.
func Parse(s string) (Window, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Window{}, fmt.Errorf("%w: week is required", e.ErrInvalidInput)
	}

	startPart, endPart, isRange := strings.Cut(s, labelSeparator)
	start, err := time.Parse(DateLayout, strings.TrimSpace(startPart))
	if err != nil {
		return Window{}, fmt.Errorf("%w: malformed week %q", e.ErrInvalidInput, s)
	}
	w := For(start)
	if !isRange {
		return w, nil
	}

	end, err := time.Parse(DateLayout, strings.TrimSpace(endPart))
	if err != nil {
		return Window{}, fmt.Errorf("%w: malformed week %q", e.ErrInvalidInput, s)
	}
	if !w.Start.Equal(start) || !w.End().Equal(end) {
		return Window{}, fmt.Errorf("%w: %q is not a Monday to Sunday week", e.ErrInvalidInput, s)
	}
	return w, nil
}

// End returns the Sunday of the window.
func (w Window) End() time.Time {
	return w.Start.AddDate(0, 0, 6)
}

// Label renders the join key "{monday} - {sunday}".
func (w Window) Label() string {
	return w.StartDate() + labelSeparator + w.EndDate()
}

func (w Window) StartDate() string {
	return w.Start.Format(DateLayout)
}

func (w Window) EndDate() string {
	return w.End().Format(DateLayout)
}

// DateOf returns the storage date for a day of this window.
func (w Window) DateOf(d Day) string {
	return w.Start.AddDate(0, 0, d.Offset()).Format(DateLayout)
}

// DayOf maps a stored date back to its day label.
func (w Window) DayOf(date string) (Day, bool) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", false
	}
	offset := int(t.Sub(w.Start).Hours() / 24)
	if offset < 0 || offset >= len(Days) {
		return "", false
	}
	return Days[offset], true
}

func (w Window) String() string {
	return w.Label()
}
