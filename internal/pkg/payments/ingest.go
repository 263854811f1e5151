package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"

	"github.com/kurshub/kurshub/app/models"
)

// IngestResult reports what a webhook delivery did.
type IngestResult struct {
	Outcome Outcome
	EventID string
}

// Ingest is the single entry point for asynchronous truth from the gateway:
// verify, deduplicate, dispatch, mark applied. The event record, the entity
// mutation and the applied marker commit in one DB transaction; a handler
// failure rolls all of it back so the gateway's redelivery is the retry
// queue. Two concurrent deliveries of the same event serialize on the locked
// event row, so only one passes the not-yet-applied check.
func (s *Service) Ingest(ctx context.Context, payload []byte, signatureHeader string) (*IngestResult, error) {
	event, err := s.gateway.VerifyWebhook(payload, signatureHeader)
	if err != nil {
		log.Printf("[payments] SECURITY webhook signature rejected: %v", err)
		return nil, err
	}

	eventID := event.ID
	if eventID == "" {
		sum := sha256.Sum256(payload)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	var (
		outcome Outcome
		notes   []pendingNote
	)
	err = s.repo.InTransaction(func(r Repository) error {
		record := &models.PaymentWebhookEvent{
			GatewayEventID: eventID,
			EventType:      event.RawType,
			PayloadJSON:    string(payload),
		}
		if _, err := r.CreateWebhookEventIfNotExists(record); err != nil {
			return err
		}
		locked, err := r.GetWebhookEventForUpdate(eventID)
		if err != nil {
			return err
		}
		if locked.ProcessedAt != nil {
			// Gateways redeliver on any non-2xx; duplicates are expected
			// and must be cheap no-ops.
			outcome = OutcomeDuplicate
			return nil
		}

		if event.Kind == EventUnknown {
			outcome = OutcomeIgnored
			return r.MarkWebhookEventProcessed(locked.ID, "")
		}

		res, err := s.apply(ctx, r, event)
		if err != nil {
			// Persistence failure: do not mark applied, roll back, let the
			// gateway redeliver.
			return err
		}
		outcome = res.outcome
		notes = res.notes
		return r.MarkWebhookEventProcessed(locked.ID, res.note)
	})
	if err != nil {
		return nil, err
	}

	// Notifications go out only after the state change is durable, and their
	// failures never surface to the gateway.
	for _, n := range notes {
		s.dispatchNote(ctx, n)
	}

	return &IngestResult{Outcome: outcome, EventID: eventID}, nil
}

func (s *Service) dispatchNote(ctx context.Context, n pendingNote) {
	var err error
	switch n.kind {
	case models.NotificationPaymentSucceeded:
		err = s.notifier.PaymentSucceeded(ctx, n.accountID, n.amount, n.currency, n.label)
	case models.NotificationPaymentFailed:
		err = s.notifier.PaymentFailed(ctx, n.accountID, n.amount, n.currency, n.label)
	case models.NotificationSubscriptionCanceled:
		err = s.notifier.SubscriptionCanceled(ctx, n.accountID)
	}
	if err != nil {
		log.Printf("[payments] notification %s for account %d failed: %v", n.kind, n.accountID, err)
	}
}
