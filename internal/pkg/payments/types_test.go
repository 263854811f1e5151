package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventKindString(t *testing.T) {
	cases := map[EventKind]string{
		EventUnknown:             "unknown",
		EventPaymentSucceeded:    "payment_succeeded",
		EventPaymentFailed:       "payment_failed",
		EventInvoiceSucceeded:    "invoice_succeeded",
		EventInvoiceFailed:       "invoice_failed",
		EventSubscriptionUpdated: "subscription_updated",
		EventSubscriptionDeleted: "subscription_deleted",
		EventKind(99):            "unknown",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}
