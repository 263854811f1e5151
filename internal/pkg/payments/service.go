package payments

import (
	"context"

	"gorm.io/gorm"
)

// Notifier is the outbound contract to the notification subsystem. Calls are
// fire-and-forget from reconciliation's perspective: delivery failures are
// logged, never rolled back into financial state.
type Notifier interface {
	PaymentSucceeded(ctx context.Context, accountID uint, amountMinor int64, currency, productLabel string) error
	PaymentFailed(ctx context.Context, accountID uint, amountMinor int64, currency, reason string) error
	SubscriptionCanceled(ctx context.Context, accountID uint) error
}

// Service ties the customer identity mapper, intent issuer, webhook ingestor
// and reconciliation state machine to their collaborators.
type Service struct {
	repo     Repository
	gateway  Gateway
	notifier Notifier
}

// NewService creates a payment service from injected collaborators.
func NewService(repo Repository, gateway Gateway, notifier Notifier) *Service {
	return &Service{repo: repo, gateway: gateway, notifier: notifier}
}

// NewServiceFromDB creates a payment service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, gateway Gateway, notifier Notifier) *Service {
	return NewService(NewRepository(db), gateway, notifier)
}
