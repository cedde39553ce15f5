package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentflow/models"
	"rentflow/services/scheduling"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type controllerFixture struct {
	controller *FlowController
	scheduler  *fakeScheduler
	widget     *fakeWidget
	queue      *fakeQueue
	limiter    *RateLimiter
	machine    *StepMachine
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()

	scheduler := &fakeScheduler{}
	widget := &fakeWidget{}
	queue := &fakeQueue{}
	machine := NewStepMachine(1)
	machine.TimeSlots = []string{"09:00-12:00", "12:00-15:00"}
	limiter := NewRateLimiter(10*time.Minute, 5, nil, "sess-test", zap.NewNop())

	payments := NewPaymentOrchestrator(widget, zap.NewNop())
	require.NoError(t, payments.Initialize(context.Background()))

	return &controllerFixture{
		controller: &FlowController{
			Limiter:      limiter,
			Retry:        NewRetryExecutor(3, time.Millisecond, zap.NewNop()),
			Scheduler:    scheduler,
			Payments:     payments,
			Machine:      machine,
			Compensation: queue,
			Logger:       zap.NewNop(),
			Capacity:     3,
			PricePerDay:  95,
			Currency:     "eur",
		},
		scheduler: scheduler,
		widget:    widget,
		queue:     queue,
		limiter:   limiter,
		machine:   machine,
	}
}

func TestSubmit_ConfirmedBooking(t *testing.T) {
	fx := newControllerFixture(t)
	fx.scheduler.checkFn = func(start, end time.Time) (int, error) { return 1, nil }
	fx.scheduler.createFn = func(sub models.BookingSubmission) (*models.BookingResult, error) {
		return &models.BookingResult{
			Status:           models.BookingConfirmed,
			BookingReference: "bk-42",
			PaymentReference: "pi-42",
		}, nil
	}

	sess := paymentStepSession()
	receipt, err := fx.controller.Submit(context.Background(), sess, models.CardDetails{})

	require.NoError(t, err)
	assert.Equal(t, "bk-42", receipt.BookingReference)
	assert.Equal(t, "pi-42", receipt.PaymentReference)
	// Three rental days at the per-day price.
	assert.InDelta(t, 285.0, receipt.TotalPrice, 0.001)

	assert.Equal(t, models.StepConfirmation, sess.CurrentStep)
	assert.Equal(t, receipt, sess.Confirmation)

	// The submission carried an idempotency key, the minted token and the
	// chosen delivery slot.
	assert.NotEmpty(t, fx.scheduler.lastSub.IdempotencyKey)
	assert.Equal(t, "tok_test_123", fx.scheduler.lastSub.PaymentToken)
	assert.Equal(t, "09:00-12:00", fx.scheduler.lastSub.TimeSlot)

	// Confirmed booking resets the abuse limiter.
	assert.NoError(t, fx.limiter.CanSubmit())
	assert.Empty(t, fx.queue.enqueued())
}

func TestSubmit_AbortsBeforePaymentWhenDatesAreGone(t *testing.T) {
	fx := newControllerFixture(t)
	// Overlap at capacity: the authoritative check must abort the flow.
	fx.scheduler.checkFn = func(start, end time.Time) (int, error) { return 3, nil }

	sess := paymentStepSession()
	_, err := fx.controller.Submit(context.Background(), sess, models.CardDetails{})

	var conflict *AvailabilityConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 3, conflict.OverlapCount)

	// No payment call was made, no booking request sent.
	assert.Equal(t, 0, fx.widget.tokenizeCalls)
	_, creates := fx.scheduler.calls()
	assert.Equal(t, 0, creates)

	// The user is invited to pick different dates.
	assert.Equal(t, models.StepDates, sess.CurrentStep)
}

func TestSubmit_RaceLossAfterPaymentFlagsRefund(t *testing.T) {
	fx := newControllerFixture(t)
	fx.scheduler.checkFn = func(start, end time.Time) (int, error) { return 0, nil }
	fx.scheduler.createFn = func(sub models.BookingSubmission) (*models.BookingResult, error) {
		return &models.BookingResult{
			Status:           models.BookingRaceLost,
			PaymentReference: "pi-99",
		}, nil
	}

	sess := paymentStepSession()
	_, err := fx.controller.Submit(context.Background(), sess, models.CardDetails{})

	var race *RaceLossError
	require.ErrorAs(t, err, &race)
	assert.True(t, race.RefundPending)
	assert.Contains(t, race.Error(), "refunded")

	// No confirmation step for a lost race.
	assert.NotEqual(t, models.StepConfirmation, sess.CurrentStep)

	refunds := fx.queue.enqueued()
	require.Len(t, refunds, 1)
	assert.Equal(t, "pi-99", refunds[0].PaymentReference)
	assert.InDelta(t, 285.0, refunds[0].Amount, 0.001)
}

func TestSubmit_CardErrorAbortsWithoutBookingRequest(t *testing.T) {
	fx := newControllerFixture(t)
	fx.widget.tokenizeErr = &CardError{Code: models.CardInsufficientFunds}

	sess := paymentStepSession()
	_, err := fx.controller.Submit(context.Background(), sess, models.CardDetails{})

	var cardErr *CardError
	require.ErrorAs(t, err, &cardErr)
	assert.Equal(t, models.CardInsufficientFunds, cardErr.Code)

	_, creates := fx.scheduler.calls()
	assert.Equal(t, 0, creates)
	assert.Empty(t, fx.queue.enqueued())
}

func TestSubmit_RateLimitedBeforeAnySideEffect(t *testing.T) {
	fx := newControllerFixture(t)
	fx.limiter.MaxAttempts = 0

	sess := paymentStepSession()
	_, err := fx.controller.Submit(context.Background(), sess, models.CardDetails{})

	var rateErr *RateLimitedError
	require.ErrorAs(t, err, &rateErr)

	checks, creates := fx.scheduler.calls()
	assert.Equal(t, 0, checks)
	assert.Equal(t, 0, creates)
	assert.Equal(t, 0, fx.widget.tokenizeCalls)
}

func TestSubmit_StaleContactSendsUserBackToContactStep(t *testing.T) {
	fx := newControllerFixture(t)

	sess := paymentStepSession()
	sess.Contact.Email = "no-longer-valid"
	_, err := fx.controller.Submit(context.Background(), sess, models.CardDetails{})

	var verr *ValidationErrors
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, models.StepContact, verr.Step)
	assert.Equal(t, models.StepContact, sess.CurrentStep)

	checks, _ := fx.scheduler.calls()
	assert.Equal(t, 0, checks)
}

func TestSubmit_UnknownSubmissionOutcomeFlagsPossibleCharge(t *testing.T) {
	fx := newControllerFixture(t)
	fx.scheduler.checkFn = func(start, end time.Time) (int, error) { return 0, nil }
	fx.scheduler.createFn = func(sub models.BookingSubmission) (*models.BookingResult, error) {
		// The response path keeps dying; the backend may have committed.
		return nil, &scheduling.TransportError{Err: errors.New("response lost")}
	}

	sess := paymentStepSession()
	_, err := fx.controller.Submit(context.Background(), sess, models.CardDetails{})

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.True(t, subErr.ChargeMayExist)

	// Every retry of this attempt replayed the same idempotency key.
	_, creates := fx.scheduler.calls()
	assert.Equal(t, 3, creates)

	refunds := fx.queue.enqueued()
	require.Len(t, refunds, 1)
	assert.Empty(t, refunds[0].PaymentReference)
}

func TestSubmit_DefinitiveRejectionMeansNoCharge(t *testing.T) {
	fx := newControllerFixture(t)
	fx.scheduler.checkFn = func(start, end time.Time) (int, error) { return 0, nil }
	fx.scheduler.createFn = func(sub models.BookingSubmission) (*models.BookingResult, error) {
		// The backend received the request and refused it; nothing was
		// committed and nothing was charged.
		return nil, &scheduling.StatusError{StatusCode: 400, Body: "malformed submission"}
	}

	sess := paymentStepSession()
	_, err := fx.controller.Submit(context.Background(), sess, models.CardDetails{})

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.False(t, subErr.ChargeMayExist)
	assert.Contains(t, subErr.Error(), "no charge")

	// A terminal rejection is not retried and needs no compensating refund.
	_, creates := fx.scheduler.calls()
	assert.Equal(t, 1, creates)
	assert.Empty(t, fx.queue.enqueued())
}

func TestSubmit_MissingTimeSlotRewindsToDateStep(t *testing.T) {
	fx := newControllerFixture(t)

	sess := paymentStepSession()
	sess.TimeSlot = ""
	_, err := fx.controller.Submit(context.Background(), sess, models.CardDetails{})

	var verr *ValidationErrors
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, models.StepDates, verr.Step)
	assert.Equal(t, models.StepDates, sess.CurrentStep)

	checks, _ := fx.scheduler.calls()
	assert.Equal(t, 0, checks)
}

func TestSubmit_AuthoritativeCheckNeverDegradesOpen(t *testing.T) {
	fx := newControllerFixture(t)
	fx.scheduler.checkFn = func(start, end time.Time) (int, error) {
		return 0, &scheduling.TransportError{Err: errors.New("backend down")}
	}

	sess := paymentStepSession()
	_, err := fx.controller.Submit(context.Background(), sess, models.CardDetails{})

	require.Error(t, err)
	var exhausted *RetriesExhaustedError
	assert.ErrorAs(t, err, &exhausted)

	// Payment is never attempted on unverified dates.
	assert.Equal(t, 0, fx.widget.tokenizeCalls)
}
