package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider event types handled by the webhook.
const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventCheckoutAsyncSucceeded = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncFailed    = "checkout.session.async_payment_failed"
	EventCheckoutExpired        = "checkout.session.expired"
)

// Provider is the external payment processor.
type Provider interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*ProviderSession, error)
	// VerifyEvent checks the signature header against the payload and
	// decodes it.
	VerifyEvent(payload []byte, signature string) (*Event, error)
	// DecodeEvent decodes a payload that was verified earlier.
	DecodeEvent(payload []byte) (*Event, error)
}

type CheckoutRequest struct {
	CustomerID  string
	ProductName string
	Amount      decimal.Decimal
	Currency    string
	Metadata    map[string]string
}

type ProviderSession struct {
	ID  string
	URL string
}

type Event struct {
	ID      string
	Type    string
	Session *SessionData
}

// SessionData is the checkout session carried by checkout.session.* events.
type SessionData struct {
	ID              string
	PaymentStatus   string
	PaymentIntentID string
	Metadata        map[string]string
}

// minorUnits converts a decimal amount to the currency's smallest unit.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
