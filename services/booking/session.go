package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"rentflow/models"
	"rentflow/services/scheduling"
	"rentflow/utils"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options carries the environment-scoped tunables the wizard components need.
// Constructed once from config and injected; components never read ambient
// globals.
type Options struct {
	MinRentalDays        int
	MaxAdvanceDays       int
	SlotCapacity         int
	PricePerDay          float64
	Currency             string
	TimeSlots            []string
	DebounceDelay        time.Duration
	NetworkTimeout       time.Duration
	RateLimitWindow      time.Duration
	RateLimitMaxAttempts int
}

// sessionRuntime holds the live, non-serializable parts of one session: the
// date selector, the debounced availability coordinator, the submission rate
// limiter and the payment orchestrator.
type sessionRuntime struct {
	selector    *DateRangeSelector
	coordinator *AvailabilityCoordinator
	limiter     *RateLimiter
	payments    *PaymentOrchestrator
}

// DefaultWizardService implements WizardService. Session state is serialized
// to Redis between requests; runtimes live in-process and are rebuilt lazily
// after a restart.
type DefaultWizardService struct {
	Cache        *redis.Client
	RateCache    *redis.Client
	Scheduler    scheduling.Client
	Machine      *StepMachine
	Widget       TokenWidget
	Retry        *RetryExecutor
	Compensation CompensationQueue
	Opts         Options
	Logger       *zap.Logger

	mu       sync.Mutex
	runtimes map[string]*sessionRuntime
}

// NewWizardService wires the wizard engine.
func NewWizardService(cache, rateCache *redis.Client, scheduler scheduling.Client, widget TokenWidget, compensation CompensationQueue, opts Options, logger *zap.Logger) *DefaultWizardService {
	machine := NewStepMachine(opts.MinRentalDays)
	machine.TimeSlots = opts.TimeSlots
	return &DefaultWizardService{
		Cache:        cache,
		RateCache:    rateCache,
		Scheduler:    scheduler,
		Machine:      machine,
		Widget:       widget,
		Retry:        NewRetryExecutor(3, 500*time.Millisecond, logger),
		Compensation: compensation,
		Opts:         opts,
		Logger:       logger,
		runtimes:     make(map[string]*sessionRuntime),
	}
}

// InitiateSession creates a new wizard session at step 1 and seeds the
// disabled-date set from the scheduling backend.
func (s *DefaultWizardService) InitiateSession(ctx context.Context) (*models.WizardSession, error) {
	sess := &models.WizardSession{
		SessionID: uuid.New().String(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.Machine.InitSession(sess)

	rt := s.runtime(sess.SessionID)

	// Best effort: an unreachable backend must not keep the wizard from
	// opening, the authoritative check still guards submission.
	if dates, err := s.Scheduler.FullyBookedDates(ctx); err != nil {
		s.Logger.Warn("could not seed fully-booked dates", zap.Error(err))
	} else {
		rt.selector.SetFullyBookedDates(dates)
	}

	if err := s.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	s.Logger.Info("wizard session initiated", zap.String("sessionId", sess.SessionID))
	return sess, nil
}

// GetSession loads a session from the cache.
func (s *DefaultWizardService) GetSession(ctx context.Context, sessionID string) (*models.WizardSession, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	raw, err := s.Cache.Get(ctx, utils.SessionCachePrefix+sessionID).Result()
	if err != nil {
		return nil, ErrSessionNotFound
	}
	var sess models.WizardSession
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("failed to parse wizard session %s: %w", sessionID, err)
	}
	return &sess, nil
}

// CancelSession drops the session and tears down its runtime, including any
// mounted payment form.
func (s *DefaultWizardService) CancelSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	rt := s.runtimes[sessionID]
	delete(s.runtimes, sessionID)
	s.mu.Unlock()

	if rt != nil {
		rt.coordinator.Stop()
		if err := rt.payments.Destroy(); err != nil {
			s.Logger.Warn("failed to tear down payment form", zap.Error(err))
		}
	}
	return s.Cache.Del(ctx, utils.SessionCachePrefix+sessionID).Err()
}

// SelectDates replaces the range (normalizing a reversed pair) and restarts
// the debounced availability check.
func (s *DefaultWizardService) SelectDates(ctx context.Context, sessionID string, rng models.DateRange, immediate bool) (*models.WizardSession, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rt := s.runtime(sessionID)
	sess.Range = rt.selector.SetRange(rng)
	sess.UpdatedAt = time.Now()
	rt.coordinator.OnRangeChanged(sess.Range, immediate)

	if err := s.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// PickDate applies one date-picker click (YYYY-MM-DD) and restarts the
// debounced availability check. Clicks on disabled dates are ignored.
func (s *DefaultWizardService) PickDate(ctx context.Context, sessionID string, date string) (*models.WizardSession, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, &ValidationErrors{
			Step:   models.StepDates,
			Fields: []ValidationError{{Field: "date", Message: "expected a date in YYYY-MM-DD format"}},
		}
	}

	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rt := s.runtime(sessionID)
	sess.Range = rt.selector.Select(day)
	sess.UpdatedAt = time.Now()
	rt.coordinator.OnRangeChanged(sess.Range, false)

	if err := s.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SelectTimeSlot stores the step-1 delivery slot.
func (s *DefaultWizardService) SelectTimeSlot(ctx context.Context, sessionID, slot string) (*models.WizardSession, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if verr := ValidateTimeSlot(slot, s.Opts.TimeSlots); verr != nil {
		return sess, verr
	}
	sess.TimeSlot = slot
	sess.UpdatedAt = time.Now()
	if err := s.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Availability returns the latest committed availability status for the
// session's range, falling back to the persisted result when the in-process
// coordinator was lost to a restart.
func (s *DefaultWizardService) Availability(ctx context.Context, sessionID string) (models.AvailabilityResult, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return models.AvailabilityResult{}, err
	}
	live := s.runtime(sessionID).coordinator.Latest()
	return EffectiveAvailability(live, sess.LastResult), nil
}

// Advance validates the active step and moves forward.
func (s *DefaultWizardService) Advance(ctx context.Context, sessionID string) (*models.WizardSession, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.Machine.Advance(sess); err != nil {
		return sess, err
	}
	if err := s.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SubmitContact stores the step-2 fields and advances past the contact step.
func (s *DefaultWizardService) SubmitContact(ctx context.Context, sessionID string, contact models.ContactDetails) (*models.WizardSession, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.CurrentStep != models.StepContact {
		return sess, fmt.Errorf("contact details belong to the %s step, session is on %s", models.StepContact, sess.CurrentStep)
	}
	sess.Contact = &contact
	if err := s.Machine.Advance(sess); err != nil {
		return sess, err
	}
	if err := s.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// GoBack navigates to an earlier step without validation.
func (s *DefaultWizardService) GoBack(ctx context.Context, sessionID string, to models.WizardStep) (*models.WizardSession, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.Machine.GoBack(sess, to); err != nil {
		return sess, err
	}
	if err := s.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Reset returns the session to step 1 and clears all progress.
func (s *DefaultWizardService) Reset(ctx context.Context, sessionID string) (*models.WizardSession, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.Machine.Reset(sess)
	sess.Range = models.DateRange{}
	sess.Contact = nil
	s.runtime(sessionID).selector.Clear()
	if err := s.saveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// EnterPayment prepares the payment step: initializes the widget session and
// mounts the card form. Idempotent per payment step entry.
func (s *DefaultWizardService) EnterPayment(ctx context.Context, sessionID, container string) (*models.WizardSession, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.CurrentStep != models.StepPayment {
		return sess, fmt.Errorf("session is on the %s step, not payment", sess.CurrentStep)
	}

	rt := s.runtime(sessionID)
	if err := rt.payments.Initialize(ctx); err != nil {
		return sess, err
	}
	if err := rt.payments.AttachForm(container); err != nil {
		return sess, err
	}
	return sess, nil
}

// LeavePayment tears down the mounted card form (modal close).
func (s *DefaultWizardService) LeavePayment(ctx context.Context, sessionID string) error {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return err
	}
	return s.runtime(sessionID).payments.Destroy()
}

// Submit runs the full submission pipeline and persists the resulting
// session state whatever the outcome.
func (s *DefaultWizardService) Submit(ctx context.Context, sessionID string, card models.CardDetails) (*models.WizardSession, *models.BookingReceipt, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if sess.CurrentStep != models.StepPayment {
		return sess, nil, fmt.Errorf("submission requires the payment step, session is on %s", sess.CurrentStep)
	}

	rt := s.runtime(sessionID)
	if err := rt.payments.Initialize(ctx); err != nil {
		return sess, nil, err
	}

	controller := &FlowController{
		Limiter:      rt.limiter,
		Retry:        s.Retry,
		Scheduler:    s.Scheduler,
		Payments:     rt.payments,
		Machine:      s.Machine,
		Compensation: s.Compensation,
		Logger:       s.Logger,
		Capacity:     s.Opts.SlotCapacity,
		PricePerDay:  s.Opts.PricePerDay,
		Currency:     s.Opts.Currency,
	}

	receipt, submitErr := controller.Submit(ctx, sess, card)

	if err := s.saveSession(ctx, sess); err != nil {
		s.Logger.Error("failed to persist session after submission", zap.Error(err))
	}
	return sess, receipt, submitErr
}

// runtime returns the live components for a session, building them on first
// use (or after a restart).
func (s *DefaultWizardService) runtime(sessionID string) *sessionRuntime {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rt, ok := s.runtimes[sessionID]; ok {
		return rt
	}
	rt := &sessionRuntime{
		selector: NewDateRangeSelector(s.Opts.MinRentalDays, s.Opts.MaxAdvanceDays),
		coordinator: NewAvailabilityCoordinator(
			s.Scheduler, s.Opts.DebounceDelay, s.Opts.SlotCapacity,
			s.Opts.NetworkTimeout, s.Opts.MinRentalDays, s.Logger),
		limiter: NewRateLimiter(
			s.Opts.RateLimitWindow, s.Opts.RateLimitMaxAttempts,
			s.RateCache, sessionID, s.Logger),
		payments: NewPaymentOrchestrator(s.Widget, s.Logger),
	}
	rt.coordinator.OnResult = func(res models.AvailabilityResult) {
		s.storeAvailability(sessionID, res)
	}
	s.runtimes[sessionID] = rt
	return rt
}

// storeAvailability persists a committed availability result into the cached
// session so the displayed status survives a process restart.
func (s *DefaultWizardService) storeAvailability(sessionID string, res models.AvailabilityResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		// Session gone or expired mid-query; nothing to persist.
		return
	}
	sess.LastResult = &res
	sess.UpdatedAt = time.Now()
	if err := s.saveSession(ctx, sess); err != nil {
		s.Logger.Warn("failed to persist availability result",
			zap.String("sessionId", sessionID), zap.Error(err))
	}
}

// saveSession marshals the session back into the cache with a fresh TTL.
func (s *DefaultWizardService) saveSession(ctx context.Context, sess *models.WizardSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal wizard session: %w", err)
	}
	if err := s.Cache.Set(ctx, utils.SessionCachePrefix+sess.SessionID, data, utils.SessionCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to store wizard session: %w", err)
	}
	return nil
}
