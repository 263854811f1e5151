package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/kurshub/kurshub/internal/pkg/env"
)

// Metadata keys embedded in gateway objects. metaTransactionID is the join
// key reconciliation resolves local rows by; it is never parsed from free
// text.
const (
	metaTransactionID = "transaction_id"
	metaAccountID     = "account_id"
	metaProductType   = "product_type"
	metaCourseID      = "course_id"
)

// StripeGateway implements Gateway against the Stripe API.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

// NewStripeGateway creates a gateway with an explicitly constructed API
// client. Lifecycle belongs to the caller, not to package init.
func NewStripeGateway(apiKey, webhookSecret string) *StripeGateway {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeGateway{api: api, webhookSecret: webhookSecret}
}

// NewStripeGatewayFromEnv builds the gateway from STRIPE_SECRET_KEY and
// STRIPE_WEBHOOK_SECRET.
func NewStripeGatewayFromEnv() *StripeGateway {
	return NewStripeGateway(
		strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
	)
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, p CustomerParams) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(p.Email),
		Name:  stripe.String(p.Name),
	}
	params.Context = ctx
	params.AddMetadata(metaAccountID, strconv.FormatUint(uint64(p.AccountID), 10))

	cust, err := g.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: create customer: %v", ErrGatewayUnavailable, err)
	}
	return cust.ID, nil
}

func (g *StripeGateway) FindCustomerByAccount(ctx context.Context, accountID uint) (string, error) {
	params := &stripe.CustomerSearchParams{
		SearchParams: stripe.SearchParams{
			Query: fmt.Sprintf("metadata['%s']:'%d'", metaAccountID, accountID),
		},
	}
	params.Context = ctx

	iter := g.api.Customers.Search(params)
	for iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("%w: search customer: %v", ErrGatewayUnavailable, err)
	}
	return "", nil
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, p IntentParams) (*IntentResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.AmountMinor),
		Currency: stripe.String(strings.ToLower(p.Currency)),
		Customer: stripe.String(p.CustomerRef),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if p.Description != "" {
		params.Description = stripe.String(p.Description)
	}
	params.AddMetadata(metaTransactionID, strconv.FormatUint(uint64(p.TransactionID), 10))
	params.AddMetadata(metaAccountID, strconv.FormatUint(uint64(p.AccountID), 10))
	params.AddMetadata(metaProductType, p.ProductType)
	params.SetIdempotencyKey(uuid.NewString())

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create payment intent: %v", ErrGatewayUnavailable, err)
	}
	return &IntentResult{GatewayRef: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *StripeGateway) CreateSubscription(ctx context.Context, p SubscriptionParams) (*IntentResult, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(p.CustomerRef),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(p.PriceRef)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")
	params.AddMetadata(metaTransactionID, strconv.FormatUint(uint64(p.TransactionID), 10))
	params.AddMetadata(metaAccountID, strconv.FormatUint(uint64(p.AccountID), 10))
	params.AddMetadata(metaCourseID, strconv.FormatUint(uint64(p.CourseID), 10))
	params.SetIdempotencyKey(uuid.NewString())

	sub, err := g.api.Subscriptions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: create subscription: %v", ErrGatewayUnavailable, err)
	}

	res := &IntentResult{SubscriptionRef: sub.ID}
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		res.GatewayRef = sub.LatestInvoice.PaymentIntent.ID
		res.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
		// The initial invoice charge must reconcile against the local
		// transaction row, so the join key goes on the intent as well.
		if res.GatewayRef != "" {
			uparams := &stripe.PaymentIntentParams{}
			uparams.Context = ctx
			uparams.AddMetadata(metaTransactionID, strconv.FormatUint(uint64(p.TransactionID), 10))
			uparams.AddMetadata(metaAccountID, strconv.FormatUint(uint64(p.AccountID), 10))
			uparams.AddMetadata(metaProductType, "SUBSCRIPTION")
			if _, err := g.api.PaymentIntents.Update(res.GatewayRef, uparams); err != nil {
				return nil, fmt.Errorf("%w: tag payment intent: %v", ErrGatewayUnavailable, err)
			}
		}
	}
	return res, nil
}

// VerifyWebhook recomputes the signature over the exact raw bytes before any
// JSON parsing, then maps the Stripe event into the closed EventKind set.
func (g *StripeGateway) VerifyWebhook(payload []byte, signatureHeader string) (*Event, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, signatureHeader, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return mapStripeEvent(&stripeEvent)
}

func mapStripeEvent(se *stripe.Event) (*Event, error) {
	ev := &Event{
		ID:      se.ID,
		RawType: string(se.Type),
		Kind:    kindForStripeType(string(se.Type)),
	}

	switch ev.Kind {
	case EventPaymentSucceeded, EventPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(se.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("payments: decode payment_intent event %s: %w", se.ID, err)
		}
		ev.TransactionID = parseTransactionID(pi.Metadata)
		ev.AmountMinor = pi.Amount
		ev.Currency = strings.ToUpper(string(pi.Currency))
		if len(pi.PaymentMethodTypes) > 0 {
			ev.PaymentMethod = pi.PaymentMethodTypes[0]
		}
		if pi.LastPaymentError != nil {
			ev.FailureReason = pi.LastPaymentError.Msg
			if ev.FailureReason == "" {
				ev.FailureReason = string(pi.LastPaymentError.Code)
			}
		}

	case EventInvoiceSucceeded, EventInvoiceFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(se.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("payments: decode invoice event %s: %w", se.ID, err)
		}
		if inv.Subscription != nil {
			ev.SubscriptionRef = inv.Subscription.ID
		}
		ev.AmountMinor = inv.AmountPaid
		if ev.AmountMinor == 0 {
			ev.AmountMinor = inv.AmountDue
		}
		ev.Currency = strings.ToUpper(string(inv.Currency))
		ev.Interval = "unknown"
		if len(inv.Lines.Data) > 0 {
			line := inv.Lines.Data[0]
			if line.Price != nil && line.Price.Recurring != nil {
				ev.Interval = string(line.Price.Recurring.Interval)
			}
			if line.Period != nil && line.Period.End > 0 {
				end := time.Unix(line.Period.End, 0).UTC()
				ev.PeriodEnd = &end
			}
		}
		if inv.LastFinalizationError != nil {
			ev.FailureReason = inv.LastFinalizationError.Msg
		}
		if ev.Kind == EventInvoiceFailed && ev.FailureReason == "" {
			ev.FailureReason = "invoice payment failed"
		}

	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(se.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("payments: decode subscription event %s: %w", se.ID, err)
		}
		ev.SubscriptionRef = sub.ID
		ev.SubscriptionStatus = string(sub.Status)
		ev.Interval = "unknown"
		if sub.Items != nil && len(sub.Items.Data) > 0 {
			item := sub.Items.Data[0]
			if item.Price != nil && item.Price.Recurring != nil {
				ev.Interval = string(item.Price.Recurring.Interval)
			}
		}
		if sub.CurrentPeriodEnd > 0 {
			end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
			ev.PeriodEnd = &end
		}
	}

	return ev, nil
}

func kindForStripeType(eventType string) EventKind {
	switch eventType {
	case "payment_intent.succeeded":
		return EventPaymentSucceeded
	case "payment_intent.payment_failed":
		return EventPaymentFailed
	case "invoice.payment_succeeded":
		return EventInvoiceSucceeded
	case "invoice.payment_failed":
		return EventInvoiceFailed
	case "customer.subscription.updated":
		return EventSubscriptionUpdated
	case "customer.subscription.deleted":
		return EventSubscriptionDeleted
	default:
		return EventUnknown
	}
}

func parseTransactionID(metadata map[string]string) uint {
	raw, ok := metadata[metaTransactionID]
	if !ok {
		return 0
	}
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
