package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rentflow/models"
	"rentflow/services/scheduling"

	"go.uber.org/zap"
)

// AvailabilityCoordinator debounces date-range edits and keeps the displayed
// availability status in sync with the most recently initiated query.
//
// Every range change bumps a generation counter; the counter value is the
// request token of the query it eventually issues. A query commits its result
// only if its generation is still current when it resumes, so a superseded
// query that resolves late is discarded rather than overwriting newer state.
// Cancellation is cooperative: the superseded query still completes on the
// network side.
type AvailabilityCoordinator struct {
	Client        scheduling.Client
	Delay         time.Duration
	Capacity      int
	Timeout       time.Duration
	MinRentalDays int
	Logger        *zap.Logger

	// OnResult, when set, observes every committed status change, in commit
	// order.
	OnResult func(models.AvailabilityResult)

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	latest     models.AvailabilityResult
	// emitMu sequences OnResult callbacks; see commit.
	emitMu sync.Mutex
}

// NewAvailabilityCoordinator builds a coordinator for one wizard session.
func NewAvailabilityCoordinator(client scheduling.Client, delay time.Duration, capacity int, timeout time.Duration, minRentalDays int, logger *zap.Logger) *AvailabilityCoordinator {
	return &AvailabilityCoordinator{
		Client:        client,
		Delay:         delay,
		Capacity:      capacity,
		Timeout:       timeout,
		MinRentalDays: minRentalDays,
		Logger:        logger,
		latest:        models.AvailabilityResult{Status: models.AvailabilityUnknown},
	}
}

// OnRangeChanged restarts the debounce timer for a new range. Any pending
// timer and any in-flight query are superseded. With immediate set the query
// fires without the debounce delay (used for the initial render).
func (c *AvailabilityCoordinator) OnRangeChanged(rng models.DateRange, immediate bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	gen := c.generation

	if c.timer != nil {
		c.timer.Stop()
	}

	delay := c.Delay
	if immediate {
		delay = 0
	}
	c.timer = time.AfterFunc(delay, func() {
		c.fire(gen, rng)
	})
}

// fire runs when the debounce timer elapses.
func (c *AvailabilityCoordinator) fire(gen uint64, rng models.DateRange) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if !rng.IsValid(c.MinRentalDays) {
		// Incomplete or too-short range: clear the display, no query.
		c.commit(gen, models.AvailabilityResult{Status: models.AvailabilityUnknown})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	overlap, err := c.Client.CheckAvailability(ctx, *rng.StartDate, *rng.EndDate)

	var result models.AvailabilityResult
	if err != nil {
		// Degrade open: let the user proceed, the authoritative check before
		// payment has the final word.
		c.Logger.Warn("availability query failed, assuming available",
			zap.Error(err))
		result = models.AvailabilityResult{
			Status:  models.AvailabilityAssumed,
			Message: "Availability could not be verified right now. You can continue; we confirm your dates before payment.",
		}
	} else {
		result = ClassifyOverlap(overlap, c.Capacity)
	}

	c.commit(gen, result)
}

// commit stores the result if its generation is still current and hands it to
// OnResult. The emit lock is acquired before the state lock is released, so
// callbacks observe results in commit order without blocking coordinator
// state while they run.
func (c *AvailabilityCoordinator) commit(gen uint64, result models.AvailabilityResult) {
	c.mu.Lock()
	if gen != c.generation {
		// A newer query was initiated while this one was in flight.
		c.mu.Unlock()
		return
	}
	c.latest = result
	emit := c.OnResult
	c.emitMu.Lock()
	c.mu.Unlock()
	defer c.emitMu.Unlock()

	if emit != nil {
		emit(result)
	}
}

// Latest returns the most recently committed status.
func (c *AvailabilityCoordinator) Latest() models.AvailabilityResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Stop cancels any pending debounce timer and invalidates in-flight queries.
func (c *AvailabilityCoordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// EffectiveAvailability prefers the live coordinator status, falling back to
// the stored result when the in-process state was lost (fresh runtime after a
// restart).
func EffectiveAvailability(live models.AvailabilityResult, stored *models.AvailabilityResult) models.AvailabilityResult {
	if live.Status == models.AvailabilityUnknown && stored != nil {
		return *stored
	}
	return live
}

// ClassifyOverlap maps an overlap count against the slot capacity into a
// rendered availability result.
func ClassifyOverlap(overlap, capacity int) models.AvailabilityResult {
	if overlap >= capacity {
		return models.AvailabilityResult{
			Status:       models.AvailabilityUnavailable,
			OverlapCount: overlap,
			Message:      "All units are booked for the selected dates. Please choose a different period.",
		}
	}

	remaining := capacity - overlap
	msg := "Your dates are available."
	if overlap > 0 {
		msg = fmt.Sprintf("Limited availability: %d of %d units left for your dates.", remaining, capacity)
	}
	return models.AvailabilityResult{
		Status:         models.AvailabilityAvailable,
		OverlapCount:   overlap,
		SlotsRemaining: remaining,
		Message:        msg,
	}
}
