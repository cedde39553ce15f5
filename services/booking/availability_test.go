package booking

import (
	"errors"
	"sync"
	"testing"
	"time"

	"rentflow/models"
	"rentflow/services/scheduling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRange(startOffset, endOffset int) models.DateRange {
	start := at(startOffset)
	end := at(endOffset)
	return models.DateRange{StartDate: &start, EndDate: &end}
}

func newTestCoordinator(client scheduling.Client, delay time.Duration) *AvailabilityCoordinator {
	return NewAvailabilityCoordinator(client, delay, 3, time.Second, 1, zap.NewNop())
}

func TestCoordinator_DebouncesRapidEdits(t *testing.T) {
	sched := &fakeScheduler{}
	c := newTestCoordinator(sched, 30*time.Millisecond)

	// Five rapid edits within the debounce window: only the last range may
	// reach the backend.
	for i := 1; i <= 5; i++ {
		c.OnRangeChanged(testRange(i, i+3), false)
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		checks, _ := sched.calls()
		return checks == 1
	}, time.Second, 5*time.Millisecond)

	// Give a second query time to fire if the debounce were broken.
	time.Sleep(60 * time.Millisecond)
	checks, _ := sched.calls()
	assert.Equal(t, 1, checks)

	sched.mu.Lock()
	defer sched.mu.Unlock()
	assert.True(t, sched.lastStart.Equal(at(5)))
	assert.True(t, sched.lastEnd.Equal(at(8)))
}

func TestCoordinator_StaleResultIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	call := 0

	sched := &fakeScheduler{}
	sched.checkFn = func(start, end time.Time) (int, error) {
		mu.Lock()
		call++
		mine := call
		mu.Unlock()
		if mine == 1 {
			// Q1 stalls until after Q2 has resolved.
			<-release
			return 0, nil
		}
		return 2, nil
	}

	c := newTestCoordinator(sched, 0)

	c.OnRangeChanged(testRange(5, 8), true)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return call == 1
	}, time.Second, time.Millisecond)

	c.OnRangeChanged(testRange(10, 13), true)
	require.Eventually(t, func() bool {
		return c.Latest().OverlapCount == 2
	}, time.Second, time.Millisecond)

	// Q1 resolves late with a rosier count; it must not overwrite Q2.
	close(release)
	time.Sleep(20 * time.Millisecond)
	latest := c.Latest()
	assert.Equal(t, 2, latest.OverlapCount)
	assert.Equal(t, models.AvailabilityAvailable, latest.Status)
}

func TestCoordinator_InvalidRangeClearsStatusWithoutQuery(t *testing.T) {
	sched := &fakeScheduler{}
	c := newTestCoordinator(sched, 0)

	// Complete range first so there is a status to clear.
	c.OnRangeChanged(testRange(5, 8), true)
	require.Eventually(t, func() bool {
		return c.Latest().Status == models.AvailabilityAvailable
	}, time.Second, time.Millisecond)

	start := at(5)
	c.OnRangeChanged(models.DateRange{StartDate: &start}, true)
	require.Eventually(t, func() bool {
		return c.Latest().Status == models.AvailabilityUnknown
	}, time.Second, time.Millisecond)

	checks, _ := sched.calls()
	assert.Equal(t, 1, checks)
}

func TestCoordinator_DegradesOpenOnQueryFailure(t *testing.T) {
	sched := &fakeScheduler{}
	sched.checkFn = func(start, end time.Time) (int, error) {
		return 0, &scheduling.TransportError{Err: errors.New("backend down")}
	}
	c := newTestCoordinator(sched, 0)

	c.OnRangeChanged(testRange(5, 8), true)
	require.Eventually(t, func() bool {
		return c.Latest().Status == models.AvailabilityAssumed
	}, time.Second, time.Millisecond)
	assert.True(t, c.Latest().Available())
}

func TestCoordinator_EmitsOnlyCommittedResults(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	call := 0

	sched := &fakeScheduler{}
	sched.checkFn = func(start, end time.Time) (int, error) {
		mu.Lock()
		call++
		mine := call
		mu.Unlock()
		if mine == 1 {
			<-release
			return 0, nil
		}
		return 2, nil
	}

	c := newTestCoordinator(sched, 0)
	var emitted []models.AvailabilityResult
	c.OnResult = func(res models.AvailabilityResult) {
		mu.Lock()
		emitted = append(emitted, res)
		mu.Unlock()
	}

	c.OnRangeChanged(testRange(5, 8), true)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return call == 1
	}, time.Second, time.Millisecond)

	c.OnRangeChanged(testRange(10, 13), true)
	require.Eventually(t, func() bool {
		return c.Latest().OverlapCount == 2
	}, time.Second, time.Millisecond)

	// The superseded query resolves late; its result is never emitted.
	close(release)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, emitted, 1)
	assert.Equal(t, 2, emitted[0].OverlapCount)
}

func TestEffectiveAvailability_FallsBackToStoredResult(t *testing.T) {
	stored := &models.AvailabilityResult{
		Status:         models.AvailabilityAvailable,
		SlotsRemaining: 2,
	}

	// A fresh coordinator after a restart knows nothing yet.
	got := EffectiveAvailability(models.AvailabilityResult{Status: models.AvailabilityUnknown}, stored)
	assert.Equal(t, *stored, got)

	// A live status always wins over the stored one.
	live := models.AvailabilityResult{Status: models.AvailabilityUnavailable, OverlapCount: 3}
	assert.Equal(t, live, EffectiveAvailability(live, stored))

	got = EffectiveAvailability(models.AvailabilityResult{Status: models.AvailabilityUnknown}, nil)
	assert.Equal(t, models.AvailabilityUnknown, got.Status)
}

func TestClassifyOverlap(t *testing.T) {
	// Capacity 3, one overlapping booking: limited but available.
	res := ClassifyOverlap(1, 3)
	assert.Equal(t, models.AvailabilityAvailable, res.Status)
	assert.Equal(t, 2, res.SlotsRemaining)
	assert.Contains(t, res.Message, "2 of 3")

	res = ClassifyOverlap(0, 3)
	assert.Equal(t, models.AvailabilityAvailable, res.Status)
	assert.Contains(t, res.Message, "available")

	res = ClassifyOverlap(3, 3)
	assert.Equal(t, models.AvailabilityUnavailable, res.Status)
	assert.False(t, res.Available())
}
