package payments

import (
	"errors"
	"time"
)

// EventKind is the closed set of gateway webhook events the reconciliation
// engine understands. Adding a gateway event type means adding a constant
// here and a case to the dispatch switch; everything else maps to
// EventUnknown and is acknowledged without side effects.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventPaymentSucceeded
	EventPaymentFailed
	EventInvoiceSucceeded
	EventInvoiceFailed
	EventSubscriptionUpdated
	EventSubscriptionDeleted
)

func (k EventKind) String() string {
	switch k {
	case EventPaymentSucceeded:
		return "payment_succeeded"
	case EventPaymentFailed:
		return "payment_failed"
	case EventInvoiceSucceeded:
		return "invoice_succeeded"
	case EventInvoiceFailed:
		return "invoice_failed"
	case EventSubscriptionUpdated:
		return "subscription_updated"
	case EventSubscriptionDeleted:
		return "subscription_deleted"
	default:
		return "unknown"
	}
}

// Event is the provider-neutral shape of a verified webhook delivery. Each
// handler re-derives its target state from these fields alone; nothing about
// delivery order is assumed.
type Event struct {
	// ID is the gateway's event id, the deduplication key.
	ID      string
	Kind    EventKind
	RawType string

	// TransactionID is the local join key carried in gateway metadata for
	// intent-scoped events. Zero when the event is subscription-scoped.
	TransactionID uint

	// SubscriptionRef is the gateway subscription id for invoice and
	// subscription lifecycle events.
	SubscriptionRef string

	AmountMinor int64
	Currency    string

	// Interval is the gateway-reported billing interval (month/year/unknown).
	Interval string

	// SubscriptionStatus is the gateway's own report for lifecycle events.
	SubscriptionStatus string

	PeriodEnd     *time.Time
	FailureReason string
	PaymentMethod string
}

// IntentResponse is returned to the caller of intent creation; ClientSecret
// completes the payment UI flow on the storefront.
type IntentResponse struct {
	TransactionID  uint   `json:"transaction_id"`
	SubscriptionID uint   `json:"subscription_id,omitempty"`
	ClientSecret   string `json:"client_secret"`
}

// Outcome classifies what a webhook delivery did.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeDuplicate
	OutcomeIgnored
)

var (
	// ErrValidation covers malformed intent requests (bad amount, unknown
	// account or course). Nothing is persisted.
	ErrValidation = errors.New("payments: validation failed")

	// ErrGatewayUnavailable covers failed or timed-out gateway calls during
	// intent creation. The local row is marked FAILED before this surfaces.
	ErrGatewayUnavailable = errors.New("payments: gateway unavailable")

	// ErrBadSignature covers webhook payloads failing authenticity checks.
	// Not transient: rejected with no state change and no retry.
	ErrBadSignature = errors.New("payments: invalid webhook signature")
)
