package booking

import (
	"context"
	"sync"
	"time"

	"rentflow/models"
)

// fakeScheduler is an in-memory scheduling.Client.
type fakeScheduler struct {
	mu          sync.Mutex
	checkFn     func(start, end time.Time) (int, error)
	createFn    func(sub models.BookingSubmission) (*models.BookingResult, error)
	checkCalls  int
	createCalls int
	lastStart   time.Time
	lastEnd     time.Time
	lastSub     models.BookingSubmission
}

func (f *fakeScheduler) FullyBookedDates(ctx context.Context) ([]time.Time, error) {
	return nil, nil
}

func (f *fakeScheduler) CheckAvailability(ctx context.Context, start, end time.Time) (int, error) {
	f.mu.Lock()
	f.checkCalls++
	f.lastStart, f.lastEnd = start, end
	fn := f.checkFn
	f.mu.Unlock()

	if fn == nil {
		return 0, nil
	}
	return fn(start, end)
}

func (f *fakeScheduler) CreateBooking(ctx context.Context, sub models.BookingSubmission) (*models.BookingResult, error) {
	f.mu.Lock()
	f.createCalls++
	f.lastSub = sub
	fn := f.createFn
	f.mu.Unlock()

	if fn == nil {
		return &models.BookingResult{Status: models.BookingConfirmed}, nil
	}
	return fn(sub)
}

func (f *fakeScheduler) calls() (check, create int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkCalls, f.createCalls
}

// fakeWidget is an in-memory TokenWidget.
type fakeWidget struct {
	mu            sync.Mutex
	initErr       error
	attachErr     error
	tokenizeErr   error
	tokenizeCalls int
	attachCalls   []string
	destroyCalls  int
}

func (w *fakeWidget) Initialize(ctx context.Context) error { return w.initErr }

func (w *fakeWidget) Attach(container string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attachCalls = append(w.attachCalls, container)
	return w.attachErr
}

func (w *fakeWidget) Tokenize(ctx context.Context, card models.CardDetails) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tokenizeCalls++
	if w.tokenizeErr != nil {
		return "", w.tokenizeErr
	}
	return "tok_test_123", nil
}

func (w *fakeWidget) Destroy() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroyCalls++
	return nil
}

// fakeQueue records refund compensation tasks.
type fakeQueue struct {
	mu       sync.Mutex
	payloads []models.RefundPayload
}

func (q *fakeQueue) EnqueueRefund(ctx context.Context, payload models.RefundPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.payloads = append(q.payloads, payload)
	return nil
}

func (q *fakeQueue) enqueued() []models.RefundPayload {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]models.RefundPayload(nil), q.payloads...)
}

func validContact() *models.ContactDetails {
	return &models.ContactDetails{
		FirstName:   "Jonas",
		LastName:    "Bergmann",
		Email:       "jonas@example.com",
		Phone:       "+4915123456789",
		Street:      "Hafenstrasse",
		HouseNumber: "12a",
		PostalCode:  "20457",
		City:        "Hamburg",
	}
}

// paymentStepSession builds a session sitting on the payment step with a
// frozen range of testToday+5 .. testToday+8.
func paymentStepSession() *models.WizardSession {
	start := at(5)
	end := at(8)
	snapshot := models.DateRange{StartDate: &start, EndDate: &end}
	return &models.WizardSession{
		SessionID:   "sess-test",
		CurrentStep: models.StepPayment,
		Validated: map[models.WizardStep]bool{
			models.StepDates:   true,
			models.StepContact: true,
		},
		Range:         snapshot,
		RangeSnapshot: &snapshot,
		TimeSlot:      "09:00-12:00",
		Contact:       validContact(),
	}
}
