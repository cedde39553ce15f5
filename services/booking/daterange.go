package booking

import (
	"sync"
	"time"

	"rentflow/models"
)

// DateRangeSelector tracks the click-state of the rental date picker.
// First selection sets the start and clears the end; the second completes the
// pair, swapping the bounds if the user clicked backwards; a third click
// starts over. Clicks on disabled days are ignored entirely.
type DateRangeSelector struct {
	MinRentalDays  int
	MaxAdvanceDays int

	// Now is swappable for tests.
	Now func() time.Time

	mu          sync.Mutex
	rng         models.DateRange
	fullyBooked map[string]struct{}
}

// NewDateRangeSelector builds a selector with the given rental policy.
func NewDateRangeSelector(minRentalDays, maxAdvanceDays int) *DateRangeSelector {
	return &DateRangeSelector{
		MinRentalDays:  minRentalDays,
		MaxAdvanceDays: maxAdvanceDays,
		Now:            time.Now,
		fullyBooked:    make(map[string]struct{}),
	}
}

// SetFullyBookedDates replaces the externally supplied set of days that can
// no longer be booked.
func (s *DateRangeSelector) SetFullyBookedDates(dates []time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fullyBooked = make(map[string]struct{}, len(dates))
	for _, d := range dates {
		s.fullyBooked[models.Day(d).Format("2006-01-02")] = struct{}{}
	}
}

// Select applies one date-picker click. Returns the resulting range; a click
// on a disabled date is a no-op, not an error.
func (s *DateRangeSelector) Select(date time.Time) models.DateRange {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := models.Day(date)
	if s.disabled(day) {
		return s.rng
	}

	switch {
	case s.rng.StartDate == nil || s.rng.EndDate != nil:
		// Fresh selection, or restart after a complete pair.
		s.rng = models.DateRange{StartDate: &day}
	case day.Before(*s.rng.StartDate):
		// Second click before the first: swap.
		start := day
		end := *s.rng.StartDate
		s.rng = models.DateRange{StartDate: &start, EndDate: &end}
	default:
		end := day
		s.rng.EndDate = &end
	}
	return s.rng
}

// Range returns the current selection.
func (s *DateRangeSelector) Range() models.DateRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng
}

// SetRange replaces the selection wholesale, normalizing a reversed pair.
// Used when the range arrives already assembled from the client.
func (s *DateRangeSelector) SetRange(rng models.DateRange) models.DateRange {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rng.StartDate != nil {
		d := models.Day(*rng.StartDate)
		rng.StartDate = &d
	}
	if rng.EndDate != nil {
		d := models.Day(*rng.EndDate)
		rng.EndDate = &d
	}
	if rng.IsComplete() && rng.EndDate.Before(*rng.StartDate) {
		rng.StartDate, rng.EndDate = rng.EndDate, rng.StartDate
	}
	s.rng = rng
	return s.rng
}

// Clear resets the selection.
func (s *DateRangeSelector) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = models.DateRange{}
}

// IsDisabled reports whether a day cannot be picked: in the past, beyond the
// advance-booking horizon, or fully booked.
func (s *DateRangeSelector) IsDisabled(date time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled(models.Day(date))
}

// disabled applies the predicates. Caller holds the lock.
func (s *DateRangeSelector) disabled(day time.Time) bool {
	today := models.Day(s.Now())
	if day.Before(today) {
		return true
	}
	if day.After(today.AddDate(0, 0, s.MaxAdvanceDays)) {
		return true
	}
	_, booked := s.fullyBooked[day.Format("2006-01-02")]
	return booked
}

// Valid reports whether the current selection meets the minimum duration.
func (s *DateRangeSelector) Valid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IsValid(s.MinRentalDays)
}
