package payments

import "context"

// CustomerParams describes the local account a gateway customer is created
// for. AccountID is stored in gateway-side metadata so a lost local mapping
// can be recovered by search instead of creating a duplicate.
type CustomerParams struct {
	AccountID uint
	Email     string
	Name      string
}

// IntentParams describes a one-off payment intent. TransactionID travels in
// gateway metadata and is the join key reconciliation uses later.
type IntentParams struct {
	CustomerRef   string
	AmountMinor   int64
	Currency      string
	TransactionID uint
	AccountID     uint
	ProductType   string
	Description   string
}

// SubscriptionParams describes a recurring subscription checkout against a
// gateway-side price.
type SubscriptionParams struct {
	CustomerRef   string
	PriceRef      string
	TransactionID uint
	AccountID     uint
	CourseID      uint
}

// IntentResult carries the gateway references created for a checkout.
// SubscriptionRef is empty for one-off intents.
type IntentResult struct {
	GatewayRef      string
	SubscriptionRef string
	ClientSecret    string
}

// Gateway is the outbound interface to the external payment processor. An
// implementation is constructed at process start and injected; components
// never reach for a package-level client.
type Gateway interface {
	CreateCustomer(ctx context.Context, p CustomerParams) (string, error)
	// FindCustomerByAccount searches gateway-side metadata for an existing
	// customer tagged with the local account id. Returns "" when none exists.
	FindCustomerByAccount(ctx context.Context, accountID uint) (string, error)
	CreatePaymentIntent(ctx context.Context, p IntentParams) (*IntentResult, error)
	CreateSubscription(ctx context.Context, p SubscriptionParams) (*IntentResult, error)
	// VerifyWebhook authenticates the raw payload against the signature
	// header before any parsing and maps it to a provider-neutral Event.
	// Returns ErrBadSignature on mismatch.
	VerifyWebhook(payload []byte, signatureHeader string) (*Event, error)
}
