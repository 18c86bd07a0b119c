package errors

import (
	"fmt"
	"strings"
)

var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrForbidden    = fmt.Errorf("forbidden")
)

// MissingSiteError is returned when a day carries hours but no site.
type MissingSiteError struct {
	EmployeeID int64
	Day        string
}

func (err *MissingSiteError) Error() string {
	return fmt.Sprintf("employee %d: site is required for %s when hours are logged", err.EmployeeID, err.Day)
}

func (err *MissingSiteError) Unwrap() error {
	return ErrInvalidInput
}

// UnassignedSiteError is returned when hours are logged against a site the
// employee has no assignment for. AssignedSites lists the sites that would
// have been accepted.
type UnassignedSiteError struct {
	EmployeeID    int64
	Day           string
	Site          string
	AssignedSites []string
}

func (err *UnassignedSiteError) Error() string {
	assigned := "none"
	if len(err.AssignedSites) > 0 {
		assigned = strings.Join(err.AssignedSites, ", ")
	}
	return fmt.Sprintf("employee %d: not assigned to site %q on %s (assigned sites: %s)",
		err.EmployeeID, err.Site, err.Day, assigned)
}

func (err *UnassignedSiteError) Unwrap() error {
	return ErrInvalidInput
}

// HoursOutOfRangeError is returned for a day logging more than a full day.
type HoursOutOfRangeError struct {
	EmployeeID int64
	Day        string
	Hours      string
}

func (err *HoursOutOfRangeError) Error() string {
	return fmt.Sprintf("employee %d: %s hours on %s exceed 24", err.EmployeeID, err.Hours, err.Day)
}

func (err *HoursOutOfRangeError) Unwrap() error {
	return ErrInvalidInput
}

// HoursPrecisionError is returned for hours finer than a hundredth of an hour.
type HoursPrecisionError struct {
	EmployeeID int64
	Day        string
	Hours      string
}

func (err *HoursPrecisionError) Error() string {
	return fmt.Sprintf("employee %d: %s hours on %s have more than 2 decimal places", err.EmployeeID, err.Hours, err.Day)
}

func (err *HoursPrecisionError) Unwrap() error {
	return ErrInvalidInput
}
