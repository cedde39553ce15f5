package models

import "time"

// BookingStatus is the backend's verdict on a booking creation request.
type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	// BookingRaceLost means a concurrent customer claimed the dates between
	// our pre-payment check and the commit.
	BookingRaceLost BookingStatus = "dates-no-longer-available"
	BookingFailed   BookingStatus = "other-failure"
)

// BookingSubmission is the aggregate sent to the scheduling backend. It is
// assembled once per submission attempt and never mutated after that.
type BookingSubmission struct {
	IdempotencyKey string         `json:"idempotencyKey"`
	Contact        ContactDetails `json:"contact"`
	Range          DateRange      `json:"range"`
	TimeSlot       string         `json:"timeSlot"`
	PaymentToken   string         `json:"paymentToken"`
	TotalPrice     float64        `json:"totalPrice"`
	Currency       string         `json:"currency"`
	SubmittedAt    time.Time      `json:"submittedAt"`
}

// BookingResult is the backend response to a createBooking call.
type BookingResult struct {
	Status           BookingStatus `json:"status"`
	BookingReference string        `json:"bookingReference,omitempty"`
	PaymentReference string        `json:"paymentReference,omitempty"`
	Detail           string        `json:"detail,omitempty"`
}

// BookingReceipt is the confirmation payload shown on step 4.
type BookingReceipt struct {
	BookingReference string    `json:"bookingReference"`
	PaymentReference string    `json:"paymentReference"`
	Range            DateRange `json:"range"`
	TotalPrice       float64   `json:"totalPrice"`
	Currency         string    `json:"currency"`
	ConfirmedAt      time.Time `json:"confirmedAt"`
}
