package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

const (
	SubscriptionActive   = "ACTIVE"
	SubscriptionCanceled = "CANCELED"
	SubscriptionExpired  = "EXPIRED"

	CheckoutPending   = "pending"
	CheckoutSucceeded = "succeeded"
	CheckoutFailed    = "failed"

	PaymentSucceeded = "SUCCEEDED"
	PaymentFailed    = "FAILED"

	EventPending   = "pending"
	EventProcessed = "processed"
	EventFailed    = "failed"
)

type Plan struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	IncludedUnits  int             `json:"includedUnits"`
	MaxUsers       int             `json:"maxUsers"`
	MaxChecklists  *int            `json:"maxChecklists"`
	ExtraUserPrice decimal.Decimal `json:"extraUserPrice"`
	ExtraUnitPrice decimal.Decimal `json:"extraUnitPrice"`
	IsCustom       bool            `json:"isCustom"`
	CreatedAt      int64           `json:"createdAt"`
}

type Subscription struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	PlanID    string `json:"planId"`
	Status    string `json:"status"`
	StartsAt  int64  `json:"startsAt"`
	EndsAt    *int64 `json:"endsAt,omitempty"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`

	Plan *Plan `json:"plan,omitempty"`
}

type CheckoutSession struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	OrganizationID    string          `json:"organizationId"`
	PlanID            string          `json:"planId"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	ProviderSessionID *string         `json:"providerSessionId,omitempty"`
	SubscriptionID    *string         `json:"subscriptionId,omitempty"`
	CreatedAt         int64           `json:"createdAt"`
	UpdatedAt         int64           `json:"updatedAt"`

	Plan         *Plan         `json:"plan,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
}

type Payment struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	SubscriptionID    *string         `json:"subscriptionId,omitempty"`
	CheckoutSessionID *string         `json:"checkoutSessionId,omitempty"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	ProviderPaymentID *string         `json:"providerPaymentId,omitempty"`
	CreatedAt         int64           `json:"createdAt"`

	Subscription *Subscription `json:"subscription,omitempty"`
}

// BillingEvent is a payment provider notification recorded for idempotency
// and retry.
type BillingEvent struct {
	ID              string          `json:"id"`
	ProviderEventID string          `json:"providerEventId"`
	EventType       string          `json:"eventType"`
	Status          string          `json:"status"`
	Payload         json.RawMessage `json:"payload"`
	Attempts        int             `json:"attempts"`
	LastError       *string         `json:"lastError,omitempty"`
	CreatedAt       int64           `json:"createdAt"`
	ProcessedAt     *int64          `json:"processedAt,omitempty"`
}
