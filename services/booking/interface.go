package booking

import (
	"context"

	"rentflow/models"
)

// WizardService defines the interface for driving a stateful booking wizard
// session from the outside.
type WizardService interface {
	InitiateSession(ctx context.Context) (*models.WizardSession, error)
	GetSession(ctx context.Context, sessionID string) (*models.WizardSession, error)
	CancelSession(ctx context.Context, sessionID string) error

	// Step 1: date selection. SelectDates replaces the range wholesale,
	// PickDate applies a single date-picker click. Both restart the debounced
	// availability check. SelectTimeSlot stores the delivery slot.
	SelectDates(ctx context.Context, sessionID string, rng models.DateRange, immediate bool) (*models.WizardSession, error)
	PickDate(ctx context.Context, sessionID string, date string) (*models.WizardSession, error)
	SelectTimeSlot(ctx context.Context, sessionID, slot string) (*models.WizardSession, error)
	Availability(ctx context.Context, sessionID string) (models.AvailabilityResult, error)

	// Navigation.
	Advance(ctx context.Context, sessionID string) (*models.WizardSession, error)
	SubmitContact(ctx context.Context, sessionID string, contact models.ContactDetails) (*models.WizardSession, error)
	GoBack(ctx context.Context, sessionID string, to models.WizardStep) (*models.WizardSession, error)
	Reset(ctx context.Context, sessionID string) (*models.WizardSession, error)

	// Payment step lifecycle.
	EnterPayment(ctx context.Context, sessionID, container string) (*models.WizardSession, error)
	LeavePayment(ctx context.Context, sessionID string) error

	// Final submission.
	Submit(ctx context.Context, sessionID string, card models.CardDetails) (*models.WizardSession, *models.BookingReceipt, error)
}
