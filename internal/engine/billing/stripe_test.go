package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"

	"checkops/internal/platform/config"
)

const completedEvent = `{
  "id": "evt_1",
  "object": "event",
  "api_version": "2024-06-20",
  "type": "checkout.session.completed",
  "data": {
    "object": {
      "id": "cs_test_1",
      "object": "checkout.session",
      "payment_status": "paid",
      "payment_intent": "pi_1",
      "metadata": {"planId": "plan_basic", "userId": "usr_1"}
    }
  }
}`

func TestStripeVerifyEvent(t *testing.T) {
	p := NewStripeProvider(config.StripeConfig{WebhookSecret: "whsec_test"})

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(completedEvent),
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})

	ev, err := p.VerifyEvent(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventCheckoutCompleted, ev.Type)
	require.NotNil(t, ev.Session)
	assert.Equal(t, "cs_test_1", ev.Session.ID)
	assert.Equal(t, "paid", ev.Session.PaymentStatus)
	assert.Equal(t, "pi_1", ev.Session.PaymentIntentID)
	assert.Equal(t, "plan_basic", ev.Session.Metadata["planId"])

	_, err = p.VerifyEvent(signed.Payload, "t=1,v1=deadbeef")
	assert.Error(t, err)
}

func TestStripeDecodeEvent(t *testing.T) {
	p := NewStripeProvider(config.StripeConfig{})

	ev, err := p.DecodeEvent([]byte(completedEvent))
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", ev.Session.ID)

	other, err := p.DecodeEvent([]byte(`{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`))
	require.NoError(t, err)
	assert.Nil(t, other.Session)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(4990), minorUnits(decimal.RequireFromString("49.90")))
	assert.Equal(t, int64(100), minorUnits(decimal.RequireFromString("0.995")))
	assert.Equal(t, int64(0), minorUnits(decimal.Zero))
}
