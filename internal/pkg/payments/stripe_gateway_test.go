package payments

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v79"
)

func TestKindForStripeType(t *testing.T) {
	cases := map[string]EventKind{
		"payment_intent.succeeded":      EventPaymentSucceeded,
		"payment_intent.payment_failed": EventPaymentFailed,
		"invoice.payment_succeeded":     EventInvoiceSucceeded,
		"invoice.payment_failed":        EventInvoiceFailed,
		"customer.subscription.updated": EventSubscriptionUpdated,
		"customer.subscription.deleted": EventSubscriptionDeleted,
		"charge.updated":                EventUnknown,
		"customer.created":              EventUnknown,
		"":                              EventUnknown,
	}
	for raw, want := range cases {
		assert.Equal(t, want, kindForStripeType(raw), raw)
	}
}

func stripeEvent(t *testing.T, id, eventType string, object interface{}) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(object)
	require.NoError(t, err)
	return &stripe.Event{
		ID:   id,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestMapStripeEventPaymentIntent(t *testing.T) {
	se := stripeEvent(t, "evt_1", "payment_intent.succeeded", map[string]interface{}{
		"id":       "pi_1",
		"amount":   4999,
		"currency": "eur",
		"metadata": map[string]string{
			"transaction_id": "42",
			"account_id":     "1",
		},
		"payment_method_types": []string{"card"},
	})

	ev, err := mapStripeEvent(se)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventPaymentSucceeded, ev.Kind)
	assert.Equal(t, uint(42), ev.TransactionID)
	assert.Equal(t, int64(4999), ev.AmountMinor)
	assert.Equal(t, "EUR", ev.Currency)
	assert.Equal(t, "card", ev.PaymentMethod)
}

func TestMapStripeEventPaymentFailedCarriesReason(t *testing.T) {
	se := stripeEvent(t, "evt_2", "payment_intent.payment_failed", map[string]interface{}{
		"id":       "pi_2",
		"amount":   4999,
		"currency": "eur",
		"metadata": map[string]string{"transaction_id": "42"},
		"last_payment_error": map[string]interface{}{
			"message": "Your card was declined.",
			"code":    "card_declined",
		},
	})

	ev, err := mapStripeEvent(se)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentFailed, ev.Kind)
	assert.Equal(t, "Your card was declined.", ev.FailureReason)
}

func TestMapStripeEventInvoice(t *testing.T) {
	periodEnd := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	se := stripeEvent(t, "evt_3", "invoice.payment_succeeded", map[string]interface{}{
		"id":           "in_1",
		"amount_paid":  1999,
		"currency":     "eur",
		"subscription": "sub_abc",
		"lines": map[string]interface{}{
			"data": []map[string]interface{}{{
				"price": map[string]interface{}{
					"id":        "price_123",
					"recurring": map[string]interface{}{"interval": "month"},
				},
				"period": map[string]interface{}{"end": periodEnd.Unix()},
			}},
		},
	})

	ev, err := mapStripeEvent(se)
	require.NoError(t, err)
	assert.Equal(t, EventInvoiceSucceeded, ev.Kind)
	assert.Equal(t, "sub_abc", ev.SubscriptionRef)
	assert.Equal(t, int64(1999), ev.AmountMinor)
	assert.Equal(t, "month", ev.Interval)
	require.NotNil(t, ev.PeriodEnd)
	assert.True(t, ev.PeriodEnd.Equal(periodEnd))
}

func TestMapStripeEventInvoiceFailedDefaultsReason(t *testing.T) {
	se := stripeEvent(t, "evt_4", "invoice.payment_failed", map[string]interface{}{
		"id":           "in_2",
		"amount_due":   1999,
		"currency":     "eur",
		"subscription": "sub_abc",
	})

	ev, err := mapStripeEvent(se)
	require.NoError(t, err)
	assert.Equal(t, EventInvoiceFailed, ev.Kind)
	assert.Equal(t, int64(1999), ev.AmountMinor, "unpaid invoices report amount_due")
	assert.NotEmpty(t, ev.FailureReason)
}

func TestMapStripeEventSubscription(t *testing.T) {
	periodEnd := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	se := stripeEvent(t, "evt_5", "customer.subscription.updated", map[string]interface{}{
		"id":                 "sub_abc",
		"status":             "past_due",
		"current_period_end": periodEnd.Unix(),
		"items": map[string]interface{}{
			"data": []map[string]interface{}{{
				"price": map[string]interface{}{
					"id":        "price_123",
					"recurring": map[string]interface{}{"interval": "year"},
				},
			}},
		},
	})

	ev, err := mapStripeEvent(se)
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionUpdated, ev.Kind)
	assert.Equal(t, "sub_abc", ev.SubscriptionRef)
	assert.Equal(t, "past_due", ev.SubscriptionStatus)
	assert.Equal(t, "year", ev.Interval)
	require.NotNil(t, ev.PeriodEnd)
	assert.True(t, ev.PeriodEnd.Equal(periodEnd))
}

func TestMapStripeEventMalformedPayload(t *testing.T) {
	se := &stripe.Event{
		ID:   "evt_bad",
		Type: "payment_intent.succeeded",
		Data: &stripe.EventData{Raw: []byte("{not json")},
	}
	_, err := mapStripeEvent(se)
	require.Error(t, err)
}

func TestParseTransactionID(t *testing.T) {
	assert.Equal(t, uint(42), parseTransactionID(map[string]string{"transaction_id": "42"}))
	assert.Equal(t, uint(42), parseTransactionID(map[string]string{"transaction_id": " 42 "}))
	assert.Zero(t, parseTransactionID(map[string]string{"transaction_id": "abc"}))
	assert.Zero(t, parseTransactionID(map[string]string{}))
	assert.Zero(t, parseTransactionID(nil))
}
