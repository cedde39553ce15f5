package booking

import (
	"context"
	"errors"
	"net"
	"time"

	"rentflow/services/scheduling"

	"go.uber.org/zap"
)

// Operation is one fallible async leg wrapped by the retry executor.
type Operation func(ctx context.Context) error

// RetryExecutor reruns an operation with bounded exponential backoff.
// Attempt state lives in Run's stack frame, so concurrent unrelated
// operations never share counters.
type RetryExecutor struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *zap.Logger
}

// NewRetryExecutor builds an executor with the given budget.
func NewRetryExecutor(maxAttempts int, baseDelay time.Duration, logger *zap.Logger) *RetryExecutor {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryExecutor{MaxAttempts: maxAttempts, BaseDelay: baseDelay, Logger: logger}
}

// Run invokes op until it succeeds, fails terminally, or the attempt budget
// runs out. Retryable failures wait baseDelay * 2^attempt between tries;
// terminal failures propagate immediately without consuming further attempts.
func (e *RetryExecutor) Run(ctx context.Context, name string, op Operation) error {
	var lastErr error

	for attempt := 0; attempt < e.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := e.BaseDelay * (1 << (attempt - 1))
			e.Logger.Debug("retrying operation",
				zap.String("operation", name),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if !IsRetryable(lastErr) {
			e.Logger.Debug("terminal failure, not retrying",
				zap.String("operation", name), zap.Error(lastErr))
			return lastErr
		}

		e.Logger.Warn("retryable failure",
			zap.String("operation", name),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
	}

	return &RetriesExhaustedError{Attempts: e.MaxAttempts, Last: lastErr}
}

// IsRetryable classifies a failure. Transient network, timeout and
// server-class conditions are retryable; validation, card declines,
// rate limits and business verdicts are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *scheduling.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var transportErr *scheduling.TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}
