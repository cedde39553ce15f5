package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"rentflow/models"
)

// ErrPaymentUnavailable is raised when the tokenization widget cannot be
// initialized (missing credentials or failed setup).
var ErrPaymentUnavailable = errors.New("payment processing is currently unavailable")

// ErrSessionNotFound is raised when a wizard session has expired or never
// existed; the flow restarts at step 1.
var ErrSessionNotFound = errors.New("booking session not found or expired")

// ValidationError is a field-scoped input failure. It is resolved at the
// step level and never retried or bubbled to a global handler.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates the field failures of one step.
type ValidationErrors struct {
	Step   models.WizardStep
	Fields []ValidationError
}

func (e *ValidationErrors) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("step %s invalid: %s", e.Step, strings.Join(parts, "; "))
}

// RateLimitedError reports that submissions are locked out. Terminal for this
// attempt, resolves by itself once RetryAfter has elapsed.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many booking attempts, try again in %s", e.RetryAfter.Round(time.Second))
}

// CardError is a user-correctable decline from the tokenization widget.
// Never retried automatically.
type CardError struct {
	Code models.CardErrorCode
}

func (e *CardError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Code.Message())
}

// AvailabilityConflictError reports that the requested dates are fully booked.
// Raised before any payment is attempted; the user must pick new dates.
type AvailabilityConflictError struct {
	OverlapCount int
}

func (e *AvailabilityConflictError) Error() string {
	return "the selected dates are no longer available, please choose different dates"
}

// RaceLossError reports a booking rejected at commit time because a
// concurrent customer claimed the dates first. Payment has already happened
// at this point, so a compensating refund is pending.
type RaceLossError struct {
	RefundPending bool
}

func (e *RaceLossError) Error() string {
	if e.RefundPending {
		return "your dates were booked by another customer moments ago; your payment will be refunded in full"
	}
	return "your dates were booked by another customer moments ago"
}

// RetriesExhaustedError reports that a retryable operation kept failing
// through the whole backoff budget.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Last }

// SubmissionError is the generic failure of the booking submission leg. The
// ChargeMayExist flag is the critical distinction: it tells the caller
// whether money may have moved even though no booking was confirmed.
type SubmissionError struct {
	ChargeMayExist bool
	Err            error
}

func (e *SubmissionError) Error() string {
	if e.ChargeMayExist {
		return "the booking could not be completed; if your card was charged the amount will be refunded"
	}
	return "the booking could not be completed, no charge was made; please try again"
}

func (e *SubmissionError) Unwrap() error { return e.Err }
