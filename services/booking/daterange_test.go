package booking

import (
	"testing"
	"time"

	"rentflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testToday = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func newTestSelector() *DateRangeSelector {
	s := NewDateRangeSelector(1, 180)
	s.Now = func() time.Time { return testToday }
	return s
}

func at(days int) time.Time {
	return testToday.AddDate(0, 0, days)
}

func TestSelect_FirstClickSetsStart(t *testing.T) {
	s := newTestSelector()
	rng := s.Select(at(5))
	require.NotNil(t, rng.StartDate)
	assert.Nil(t, rng.EndDate)
	assert.True(t, rng.StartDate.Equal(at(5)))
}

func TestSelect_SecondClickCompletesPair(t *testing.T) {
	s := newTestSelector()
	s.Select(at(5))
	rng := s.Select(at(8))
	require.True(t, rng.IsComplete())
	assert.True(t, rng.StartDate.Equal(at(5)))
	assert.True(t, rng.EndDate.Equal(at(8)))
	assert.Equal(t, 3, rng.DurationDays())
}

func TestSelect_BackwardsSecondClickSwaps(t *testing.T) {
	s := newTestSelector()
	s.Select(at(8))
	rng := s.Select(at(5))
	require.True(t, rng.IsComplete())
	assert.True(t, rng.StartDate.Equal(at(5)))
	assert.True(t, rng.EndDate.Equal(at(8)))
}

func TestSelect_ThirdClickRestartsSelection(t *testing.T) {
	s := newTestSelector()
	s.Select(at(5))
	s.Select(at(8))
	rng := s.Select(at(12))
	require.NotNil(t, rng.StartDate)
	assert.Nil(t, rng.EndDate)
	assert.True(t, rng.StartDate.Equal(at(12)))
}

func TestSelect_DisabledDatesAreIgnored(t *testing.T) {
	s := newTestSelector()

	// Past.
	rng := s.Select(at(-1))
	assert.Nil(t, rng.StartDate)

	// Beyond the advance-booking horizon.
	rng = s.Select(at(181))
	assert.Nil(t, rng.StartDate)

	// Fully booked.
	s.SetFullyBookedDates([]time.Time{at(10)})
	rng = s.Select(at(10))
	assert.Nil(t, rng.StartDate)

	// A valid click still works afterwards.
	rng = s.Select(at(9))
	require.NotNil(t, rng.StartDate)
}

func TestSetRange_NormalizesReversedPair(t *testing.T) {
	s := newTestSelector()
	start := at(8)
	end := at(5)
	rng := s.SetRange(models.DateRange{StartDate: &start, EndDate: &end})
	require.True(t, rng.IsComplete())
	assert.True(t, rng.StartDate.Equal(at(5)))
	assert.True(t, rng.EndDate.Equal(at(8)))
}

func TestIsDisabled(t *testing.T) {
	s := newTestSelector()
	s.SetFullyBookedDates([]time.Time{at(20)})

	assert.True(t, s.IsDisabled(at(-1)))
	assert.True(t, s.IsDisabled(at(200)))
	assert.True(t, s.IsDisabled(at(20)))
	assert.False(t, s.IsDisabled(at(0)))
	assert.False(t, s.IsDisabled(at(30)))
}
