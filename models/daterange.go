package models

import (
	"math"
	"time"
)

// DateRange is the user-chosen rental period. Both bounds are inclusive and
// normalized to midnight UTC.
type DateRange struct {
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// Day truncates a timestamp to its calendar day in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsComplete reports whether both bounds are set.
func (r DateRange) IsComplete() bool {
	return r.StartDate != nil && r.EndDate != nil
}

// DurationDays returns the inclusive day count of the range, floored at 1.
// A half-set range counts as 0.
func (r DateRange) DurationDays() int {
	if !r.IsComplete() {
		return 0
	}
	days := int(math.Ceil(r.EndDate.Sub(*r.StartDate).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days
}

// IsValid reports whether the range is complete and meets the minimum rental
// duration.
func (r DateRange) IsValid(minRentalDays int) bool {
	return r.IsComplete() && r.DurationDays() >= minRentalDays
}

// Equal compares two ranges by their calendar days.
func (r DateRange) Equal(other DateRange) bool {
	if r.IsComplete() != other.IsComplete() {
		return false
	}
	if !r.IsComplete() {
		return (r.StartDate == nil) == (other.StartDate == nil)
	}
	return r.StartDate.Equal(*other.StartDate) && r.EndDate.Equal(*other.EndDate)
}
