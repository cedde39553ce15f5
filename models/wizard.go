package models

import "time"

// WizardStep identifies one of the four linear booking steps.
type WizardStep int

const (
	StepDates        WizardStep = 1
	StepContact      WizardStep = 2
	StepPayment      WizardStep = 3
	StepConfirmation WizardStep = 4
)

func (s WizardStep) String() string {
	switch s {
	case StepDates:
		return "dates"
	case StepContact:
		return "contact"
	case StepPayment:
		return "payment"
	case StepConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// ContactDetails are the step-2 customer fields. Validation tags follow the
// go-playground conventions used by gin binding.
type ContactDetails struct {
	FirstName    string `json:"firstName" validate:"required,min=2,max=64"`
	LastName     string `json:"lastName" validate:"required,min=2,max=64"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"required,e164"`
	Street       string `json:"street" validate:"required,max=128"`
	HouseNumber  string `json:"houseNumber" validate:"required,max=16"`
	PostalCode   string `json:"postalCode" validate:"required,max=12"`
	City         string `json:"city" validate:"required,max=64"`
	DeliveryNote string `json:"deliveryNote,omitempty" validate:"max=500"`
}

// WizardSession holds the state of one customer's trip through the booking
// wizard. It is serialized to the session cache between requests.
type WizardSession struct {
	SessionID   string     `json:"sessionId"`
	CurrentStep WizardStep `json:"currentStep"`
	// Validated flags per step, keyed 1..4.
	Validated map[WizardStep]bool `json:"validated"`

	// Live range edited on step 1.
	Range DateRange `json:"range"`
	// Snapshot copied when leaving step 1; later steps read only this.
	RangeSnapshot *DateRange `json:"rangeSnapshot,omitempty"`

	Contact       *ContactDetails     `json:"contact,omitempty"`
	TimeSlot      string              `json:"timeSlot,omitempty"`
	LastResult    *AvailabilityResult `json:"lastResult,omitempty"`
	Confirmation  *BookingReceipt     `json:"confirmation,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}
