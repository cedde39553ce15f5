package models

import "time"

// CardErrorCode is the taxonomy of user-correctable card failures surfaced by
// the tokenization widget. These are terminal for the current attempt and are
// never retried automatically.
type CardErrorCode string

const (
	CardExpired           CardErrorCode = "card_expired"
	CardCVVFailed         CardErrorCode = "cvv_check_failed"
	CardInsufficientFunds CardErrorCode = "insufficient_funds"
	CardDeclined          CardErrorCode = "card_declined"
)

// Message returns the user-facing text for a card error.
func (c CardErrorCode) Message() string {
	switch c {
	case CardExpired:
		return "Your card has expired. Please use a different card."
	case CardCVVFailed:
		return "The security code was not accepted. Please check the CVV and try again."
	case CardInsufficientFunds:
		return "Your card has insufficient funds for this booking."
	default:
		return "Your card was declined. Please try a different payment method."
	}
}

// PaymentToken is the single-use token minted by the tokenization widget. It
// is consumed by exactly one submission attempt.
type PaymentToken struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	Consumed  bool      `json:"consumed"`
}

// RefundPayload is the asynq task body for a compensating refund.
type RefundPayload struct {
	TaskID           string  `json:"taskId"`
	PaymentReference string  `json:"paymentReference"`
	PaymentToken     string  `json:"paymentToken"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	Reason           string  `json:"reason"`
}

// CardDetails are the raw card-entry fields handed to the tokenization
// widget. They are never logged and never stored.
type CardDetails struct {
	HolderName string `json:"holderName"`
	Number     string `json:"number"`
	ExpMonth   string `json:"expMonth"`
	ExpYear    string `json:"expYear"`
	CVC        string `json:"cvc"`
}
