package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"rentflow/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/token"
	"go.uber.org/zap"
)

// TokenWidget is the external tokenization widget: it owns the card-entry
// surface and mints single-use payment tokens. Declines come back as
// *CardError; infrastructure failures as other errors.
type TokenWidget interface {
	Initialize(ctx context.Context) error
	Attach(container string) error
	Tokenize(ctx context.Context, card models.CardDetails) (string, error)
	Destroy() error
}

// PaymentOrchestrator drives the widget lifecycle: one initialized session,
// at most one mounted form, tokens minted on demand. Card errors are terminal
// for the attempt; the user corrects input and resubmits.
type PaymentOrchestrator struct {
	Widget TokenWidget
	Logger *zap.Logger

	mu          sync.Mutex
	initialized bool
	attachedTo  string
}

// NewPaymentOrchestrator wraps a widget.
func NewPaymentOrchestrator(widget TokenWidget, logger *zap.Logger) *PaymentOrchestrator {
	return &PaymentOrchestrator{Widget: widget, Logger: logger}
}

// Initialize establishes the widget session. Fails with ErrPaymentUnavailable
// when credentials are absent or the widget cannot start.
func (p *PaymentOrchestrator) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := p.Widget.Initialize(ctx); err != nil {
		p.Logger.Error("payment widget initialization failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}
	p.initialized = true
	return nil
}

// AttachForm mounts the card-entry UI. Safe to call once per payment step
// entry: re-attaching to the same container is a no-op, attaching elsewhere
// tears the previous mount down first so reopening the modal cannot leave
// duplicate widgets behind.
func (p *PaymentOrchestrator) AttachForm(container string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return ErrPaymentUnavailable
	}
	if p.attachedTo == container {
		return nil
	}
	if p.attachedTo != "" {
		if err := p.Widget.Destroy(); err != nil {
			p.Logger.Warn("failed to tear down previous payment form", zap.Error(err))
		}
		p.attachedTo = ""
	}
	if err := p.Widget.Attach(container); err != nil {
		return fmt.Errorf("failed to attach payment form: %w", err)
	}
	p.attachedTo = container
	return nil
}

// Destroy tears down the mounted form. Called on modal close.
func (p *PaymentOrchestrator) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.attachedTo == "" {
		return nil
	}
	p.attachedTo = ""
	return p.Widget.Destroy()
}

// Tokenize mints a fresh single-use payment token. Declined or invalid cards
// surface as *CardError with a user-facing message.
func (p *PaymentOrchestrator) Tokenize(ctx context.Context, card models.CardDetails) (*models.PaymentToken, error) {
	p.mu.Lock()
	if !p.initialized {
		p.mu.Unlock()
		return nil, ErrPaymentUnavailable
	}
	p.mu.Unlock()

	tok, err := p.Widget.Tokenize(ctx, card)
	if err != nil {
		return nil, err
	}
	p.Logger.Debug("payment token minted")
	return &models.PaymentToken{Token: tok, CreatedAt: time.Now()}, nil
}

// StripeWidget implements TokenWidget against the Stripe tokenization API.
type StripeWidget struct {
	SecretKey string
	PublicKey string
	Logger    *zap.Logger
}

// Initialize verifies the environment-scoped credentials are present.
func (w *StripeWidget) Initialize(ctx context.Context) error {
	if w.SecretKey == "" || w.PublicKey == "" {
		return fmt.Errorf("stripe credentials are not configured")
	}
	stripe.Key = w.SecretKey
	return nil
}

// Attach is a no-op server side; the mount point belongs to the embedding
// page, the orchestrator just tracks its lifecycle.
func (w *StripeWidget) Attach(container string) error { return nil }

// Destroy matches Attach.
func (w *StripeWidget) Destroy() error { return nil }

// Tokenize exchanges card details for a single-use Stripe token, mapping
// decline conditions onto the card-error taxonomy.
func (w *StripeWidget) Tokenize(ctx context.Context, card models.CardDetails) (string, error) {
	params := &stripe.TokenParams{
		Params: stripe.Params{Context: ctx},
		Card: &stripe.CardParams{
			Name:     stripe.String(card.HolderName),
			Number:   stripe.String(card.Number),
			ExpMonth: stripe.String(card.ExpMonth),
			ExpYear:  stripe.String(card.ExpYear),
			CVC:      stripe.String(card.CVC),
		},
	}

	tok, err := token.New(params)
	if err != nil {
		if cardErr := mapStripeError(err); cardErr != nil {
			return "", cardErr
		}
		return "", fmt.Errorf("tokenization failed: %w", err)
	}
	return tok.ID, nil
}

// mapStripeError translates Stripe decline codes into the taxonomy; nil for
// non-card failures.
func mapStripeError(err error) *CardError {
	stripeErr, ok := err.(*stripe.Error)
	if !ok {
		return nil
	}

	switch stripeErr.Code {
	case stripe.ErrorCodeExpiredCard:
		return &CardError{Code: models.CardExpired}
	case stripe.ErrorCodeIncorrectCVC, stripe.ErrorCodeInvalidCVC:
		return &CardError{Code: models.CardCVVFailed}
	case stripe.ErrorCodeCardDeclined:
		if stripeErr.DeclineCode == stripe.DeclineCodeInsufficientFunds {
			return &CardError{Code: models.CardInsufficientFunds}
		}
		return &CardError{Code: models.CardDeclined}
	case stripe.ErrorCodeIncorrectNumber, stripe.ErrorCodeInvalidNumber,
		stripe.ErrorCodeInvalidExpiryMonth, stripe.ErrorCodeInvalidExpiryYear:
		return &CardError{Code: models.CardDeclined}
	}
	return nil
}
