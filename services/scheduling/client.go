package scheduling

import (
	"context"
	"time"

	"rentflow/models"
)

// Client is the contract against the remote scheduling backend. The wire
// format is owned by the backend; everything above this interface is
// transport-agnostic.
type Client interface {
	// FullyBookedDates returns the calendar days that can no longer be booked
	// at all, used to seed the date picker's disabled set.
	FullyBookedDates(ctx context.Context) ([]time.Time, error)
	// CheckAvailability returns how many existing bookings overlap the range.
	CheckAvailability(ctx context.Context, start, end time.Time) (int, error)
	// CreateBooking submits the booking. This is the only irreversible call
	// in the system; the submission carries an idempotency key so a retried
	// request after a lost response cannot double-book.
	CreateBooking(ctx context.Context, sub models.BookingSubmission) (*models.BookingResult, error)
}
