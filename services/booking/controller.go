package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentflow/models"
	"rentflow/services/scheduling"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompensationQueue accepts refund tasks for payments that may have gone
// through without a confirmed booking.
type CompensationQueue interface {
	EnqueueRefund(ctx context.Context, payload models.RefundPayload) error
}

// FlowController sequences the final submission: rate gate, revalidation,
// authoritative availability check, tokenization, booking creation, and
// interpretation of race outcomes. Every step short-circuits on failure.
// Steps before booking creation are side-effect-free; the creation call is
// the only irreversible action.
type FlowController struct {
	Limiter      *RateLimiter
	Retry        *RetryExecutor
	Scheduler    scheduling.Client
	Payments     *PaymentOrchestrator
	Machine      *StepMachine
	Compensation CompensationQueue
	Logger       *zap.Logger

	Capacity    int
	PricePerDay float64
	Currency    string
}

// Submit runs the whole submission pipeline for a session sitting on the
// payment step. On success the session is moved to the confirmation step and
// the receipt returned. Errors come from the package taxonomy; a
// *SubmissionError with ChargeMayExist set means money may have moved.
func (f *FlowController) Submit(ctx context.Context, sess *models.WizardSession, card models.CardDetails) (*models.BookingReceipt, error) {
	// 1. Abuse gate. Nothing has happened yet, aborting is free.
	if err := f.Limiter.CanSubmit(); err != nil {
		f.Logger.Warn("submission blocked by rate limiter",
			zap.String("sessionId", sess.SessionID), zap.Error(err))
		return nil, err
	}

	// 2. This try counts, whatever happens next.
	f.Limiter.RecordAttempt()

	// 3. Defense against stale state: re-run step 1-2 validation.
	if err := f.Machine.Revalidate(sess); err != nil {
		var verr *ValidationErrors
		if errors.As(err, &verr) {
			// Send the user back to the offending step.
			if goBackErr := f.Machine.GoBack(sess, verr.Step); goBackErr != nil {
				f.Logger.Warn("could not navigate back to invalid step", zap.Error(goBackErr))
			}
		}
		return nil, err
	}

	rng := sess.Range
	if sess.RangeSnapshot != nil {
		rng = *sess.RangeSnapshot
	}

	// 4. Authoritative availability check. Unlike the debounced UI check this
	// never degrades open: payment is not attempted for unverified dates.
	var overlap int
	err := f.Retry.Run(ctx, "availability-check", func(ctx context.Context) error {
		count, err := f.Scheduler.CheckAvailability(ctx, *rng.StartDate, *rng.EndDate)
		if err != nil {
			return err
		}
		overlap = count
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not verify availability: %w", err)
	}
	if overlap >= f.Capacity {
		f.Logger.Info("dates fully booked at submission time",
			zap.String("sessionId", sess.SessionID), zap.Int("overlap", overlap))
		if goBackErr := f.Machine.GoBack(sess, models.StepDates); goBackErr != nil {
			f.Logger.Warn("could not navigate back to date step", zap.Error(goBackErr))
		}
		return nil, &AvailabilityConflictError{OverlapCount: overlap}
	}

	// 5. Tokenize. Card errors are terminal and user-correctable; no booking
	// request has been sent.
	payTok, err := f.Payments.Tokenize(ctx, card)
	if err != nil {
		return nil, err
	}

	// 6. Assemble and submit. The idempotency key is fixed for all retries of
	// this attempt, so a replay after a lost response cannot double-book.
	days := rng.DurationDays()
	sub := models.BookingSubmission{
		IdempotencyKey: uuid.New().String(),
		Contact:        *sess.Contact,
		Range:          rng,
		TimeSlot:       sess.TimeSlot,
		PaymentToken:   payTok.Token,
		TotalPrice:     float64(days) * f.PricePerDay,
		Currency:       f.Currency,
		SubmittedAt:    time.Now(),
	}
	payTok.Consumed = true

	var result *models.BookingResult
	err = f.Retry.Run(ctx, "create-booking", func(ctx context.Context) error {
		res, err := f.Scheduler.CreateBooking(ctx, sub)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		var statusErr *scheduling.StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			// The backend received the request and refused it outright:
			// nothing was committed and nothing was charged. The user may
			// retry freely after correcting the problem.
			f.Logger.Warn("booking submission rejected by backend",
				zap.String("sessionId", sess.SessionID),
				zap.Int("status", statusErr.StatusCode))
			return nil, &SubmissionError{ChargeMayExist: false, Err: err}
		}
		// The token was consumed and the submission outcome is unknown; the
		// charge may exist server-side even though we never saw the response.
		f.flagCompensation(ctx, sub, "", "submission outcome unknown")
		return nil, &SubmissionError{ChargeMayExist: true, Err: err}
	}

	// 7. Interpret the verdict.
	switch result.Status {
	case models.BookingConfirmed:
		receipt := &models.BookingReceipt{
			BookingReference: result.BookingReference,
			PaymentReference: result.PaymentReference,
			Range:            rng,
			TotalPrice:       sub.TotalPrice,
			Currency:         sub.Currency,
			ConfirmedAt:      time.Now(),
		}
		f.Machine.CompleteBooking(sess, receipt)
		f.Limiter.Reset()
		f.Logger.Info("booking confirmed",
			zap.String("sessionId", sess.SessionID),
			zap.String("bookingReference", receipt.BookingReference))
		return receipt, nil

	case models.BookingRaceLost:
		// A concurrent customer won the dates after we charged. Promise the
		// refund through a durable task, then surface the loss.
		f.Logger.Warn("booking race lost after payment",
			zap.String("sessionId", sess.SessionID),
			zap.String("paymentReference", result.PaymentReference))
		f.flagCompensation(ctx, sub, result.PaymentReference, "dates claimed by concurrent booking")
		return nil, &RaceLossError{RefundPending: true}

	default:
		f.Logger.Error("booking submission failed",
			zap.String("sessionId", sess.SessionID),
			zap.String("status", string(result.Status)),
			zap.String("detail", result.Detail))
		f.flagCompensation(ctx, sub, result.PaymentReference, "submission failed after tokenization")
		return nil, &SubmissionError{ChargeMayExist: true, Err: fmt.Errorf("backend status %q: %s", result.Status, result.Detail)}
	}
}

// flagCompensation enqueues a refund task. Failures are logged loudly but do
// not change the user-facing outcome; the refund promise stands and support
// tooling picks up from the log.
func (f *FlowController) flagCompensation(ctx context.Context, sub models.BookingSubmission, paymentRef, reason string) {
	if f.Compensation == nil {
		f.Logger.Error("no compensation queue configured, manual refund required",
			zap.String("idempotencyKey", sub.IdempotencyKey), zap.String("reason", reason))
		return
	}
	payload := models.RefundPayload{
		TaskID:           uuid.New().String(),
		PaymentReference: paymentRef,
		PaymentToken:     sub.PaymentToken,
		Amount:           sub.TotalPrice,
		Currency:         sub.Currency,
		Reason:           reason,
	}
	if err := f.Compensation.EnqueueRefund(ctx, payload); err != nil {
		f.Logger.Error("failed to enqueue compensating refund, manual refund required",
			zap.String("idempotencyKey", sub.IdempotencyKey),
			zap.String("paymentReference", paymentRef),
			zap.Error(err))
	}
}
