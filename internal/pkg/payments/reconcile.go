package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/kurshub/kurshub/app/models"
)

type pendingNote struct {
	kind      string
	accountID uint
	amount    int64
	currency  string
	label     string
}

type applyResult struct {
	outcome Outcome
	// note is stored in the event record's processing_error column; empty
	// for clean application, the anomaly description otherwise.
	note  string
	notes []pendingNote
}

// apply routes a verified event to its handler. The switch is exhaustive
// over EventKind; EventUnknown never reaches this point.
func (s *Service) apply(ctx context.Context, r Repository, ev *Event) (*applyResult, error) {
	_ = ctx
	switch ev.Kind {
	case EventPaymentSucceeded:
		return s.applyPaymentSucceeded(r, ev)
	case EventPaymentFailed:
		return s.applyPaymentFailed(r, ev)
	case EventInvoiceSucceeded:
		return s.applyInvoiceSucceeded(r, ev)
	case EventInvoiceFailed:
		return s.applyInvoiceFailed(r, ev)
	case EventSubscriptionUpdated:
		return s.applySubscriptionUpdated(r, ev)
	case EventSubscriptionDeleted:
		return s.applySubscriptionDeleted(r, ev)
	default:
		return nil, fmt.Errorf("payments: unroutable event kind %d", ev.Kind)
	}
}

// anomaly logs and absorbs a mismatch between gateway truth and local state.
// The existing state stays authoritative; the event is acknowledged so the
// gateway stops redelivering something that will never resolve.
func anomaly(ev *Event, format string, args ...interface{}) (*applyResult, error) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[payments] ANOMALY event=%s type=%s: %s", ev.ID, ev.RawType, msg)
	return &applyResult{outcome: OutcomeIgnored, note: msg}, nil
}

func (s *Service) applyPaymentSucceeded(r Repository, ev *Event) (*applyResult, error) {
	if ev.TransactionID == 0 {
		return anomaly(ev, "payment event carries no local transaction reference")
	}
	txn, err := r.GetTransactionForUpdate(ev.TransactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return anomaly(ev, "unknown transaction reference %d", ev.TransactionID)
		}
		return nil, err
	}
	if !models.CanTransitionTransaction(txn.Status, models.TransactionCompleted) {
		return anomaly(ev, "illegal transition %s -> %s for transaction %d", txn.Status, models.TransactionCompleted, txn.ID)
	}

	now := time.Now()
	txn.Status = models.TransactionCompleted
	txn.CompletedAt = &now
	if ev.PaymentMethod != "" {
		txn.PaymentMethod = ev.PaymentMethod
	}
	if err := r.UpdateTransaction(txn); err != nil {
		return nil, err
	}

	if txn.SubscriptionID != nil {
		if err := s.promoteSubscription(r, *txn.SubscriptionID, ev); err != nil {
			return nil, err
		}
	}
	if txn.CourseID != nil && txn.ProductType == models.ProductTypeSingleCourse {
		en := &models.Enrollment{
			AccountID:     txn.AccountID,
			CourseID:      *txn.CourseID,
			TransactionID: txn.ID,
		}
		if err := r.CreateEnrollmentIfNotExists(en); err != nil {
			return nil, err
		}
	}

	return &applyResult{
		outcome: OutcomeApplied,
		notes: []pendingNote{{
			kind:      models.NotificationPaymentSucceeded,
			accountID: txn.AccountID,
			amount:    txn.AmountMinor,
			currency:  txn.Currency,
			label:     txn.Description,
		}},
	}, nil
}

func (s *Service) applyPaymentFailed(r Repository, ev *Event) (*applyResult, error) {
	if ev.TransactionID == 0 {
		return anomaly(ev, "payment event carries no local transaction reference")
	}
	txn, err := r.GetTransactionForUpdate(ev.TransactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return anomaly(ev, "unknown transaction reference %d", ev.TransactionID)
		}
		return nil, err
	}
	// A failure report for an already-completed transaction is stale gateway
	// noise, not an overwrite.
	if !models.CanTransitionTransaction(txn.Status, models.TransactionFailed) {
		return anomaly(ev, "illegal transition %s -> %s for transaction %d", txn.Status, models.TransactionFailed, txn.ID)
	}

	txn.Status = models.TransactionFailed
	if ev.FailureReason != "" {
		txn.Description = fmt.Sprintf("%s (failed: %s)", txn.Description, ev.FailureReason)
	}
	if err := r.UpdateTransaction(txn); err != nil {
		return nil, err
	}

	return &applyResult{
		outcome: OutcomeApplied,
		notes: []pendingNote{{
			kind:      models.NotificationPaymentFailed,
			accountID: txn.AccountID,
			amount:    txn.AmountMinor,
			currency:  txn.Currency,
			label:     ev.FailureReason,
		}},
	}, nil
}

// applyInvoiceSucceeded records a recurring renewal charge. Renewals are new
// financial events, never mutations of the original transaction, and the
// expiry advances from its prior value by the gateway-reported interval.
func (s *Service) applyInvoiceSucceeded(r Repository, ev *Event) (*applyResult, error) {
	if ev.SubscriptionRef == "" {
		return anomaly(ev, "invoice event carries no subscription reference")
	}
	sub, err := r.GetSubscriptionForUpdateByGatewayRef(ev.SubscriptionRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return anomaly(ev, "unknown subscription reference %q", ev.SubscriptionRef)
		}
		return nil, err
	}

	now := time.Now()
	renewal := &models.Transaction{
		AccountID:      sub.AccountID,
		SubscriptionID: &sub.ID,
		CourseID:       &sub.CourseID,
		AmountMinor:    ev.AmountMinor,
		Currency:       ev.Currency,
		ProductType:    models.ProductTypeSubscription,
		Status:         models.TransactionCompleted,
		Description:    "Subscription renewal",
		CompletedAt:    &now,
	}
	if err := r.CreateTransaction(renewal); err != nil {
		return nil, err
	}

	sub.Status = models.SubscriptionActive
	if sub.StartsAt == nil {
		sub.StartsAt = &now
	}
	if interval := normalizeInterval(ev.Interval); interval != models.BillingIntervalUnknown {
		sub.BillingInterval = interval
		next := advanceExpiry(sub.EndsAt, interval, now)
		sub.EndsAt = &next
	} else if ev.PeriodEnd != nil {
		// No interval reported; fall back to the gateway's own period end.
		sub.EndsAt = ev.PeriodEnd
	}
	if err := r.UpdateSubscription(sub); err != nil {
		return nil, err
	}

	return &applyResult{
		outcome: OutcomeApplied,
		notes: []pendingNote{{
			kind:      models.NotificationPaymentSucceeded,
			accountID: sub.AccountID,
			amount:    ev.AmountMinor,
			currency:  ev.Currency,
			label:     renewal.Description,
		}},
	}, nil
}

// applyInvoiceFailed records the failed renewal charge but leaves the
// subscription status alone: the gateway is authoritative on subscription
// status and reports it through a subscription-updated event.
func (s *Service) applyInvoiceFailed(r Repository, ev *Event) (*applyResult, error) {
	if ev.SubscriptionRef == "" {
		return anomaly(ev, "invoice event carries no subscription reference")
	}
	sub, err := r.GetSubscriptionForUpdateByGatewayRef(ev.SubscriptionRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return anomaly(ev, "unknown subscription reference %q", ev.SubscriptionRef)
		}
		return nil, err
	}

	failed := &models.Transaction{
		AccountID:      sub.AccountID,
		SubscriptionID: &sub.ID,
		CourseID:       &sub.CourseID,
		AmountMinor:    ev.AmountMinor,
		Currency:       ev.Currency,
		ProductType:    models.ProductTypeSubscription,
		Status:         models.TransactionFailed,
		Description:    fmt.Sprintf("Subscription renewal (failed: %s)", ev.FailureReason),
	}
	if err := r.CreateTransaction(failed); err != nil {
		return nil, err
	}

	return &applyResult{
		outcome: OutcomeApplied,
		notes: []pendingNote{{
			kind:      models.NotificationPaymentFailed,
			accountID: sub.AccountID,
			amount:    ev.AmountMinor,
			currency:  ev.Currency,
			label:     ev.FailureReason,
		}},
	}, nil
}

func (s *Service) applySubscriptionUpdated(r Repository, ev *Event) (*applyResult, error) {
	if ev.SubscriptionRef == "" {
		return anomaly(ev, "subscription event carries no subscription reference")
	}
	sub, err := r.GetSubscriptionForUpdateByGatewayRef(ev.SubscriptionRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return anomaly(ev, "unknown subscription reference %q", ev.SubscriptionRef)
		}
		return nil, err
	}

	sub.Status = mapGatewaySubscriptionStatus(ev.SubscriptionStatus)
	if interval := normalizeInterval(ev.Interval); interval != models.BillingIntervalUnknown {
		sub.BillingInterval = interval
	}
	if ev.PeriodEnd != nil {
		sub.EndsAt = ev.PeriodEnd
	}
	if err := r.UpdateSubscription(sub); err != nil {
		return nil, err
	}

	return &applyResult{outcome: OutcomeApplied}, nil
}

func (s *Service) applySubscriptionDeleted(r Repository, ev *Event) (*applyResult, error) {
	if ev.SubscriptionRef == "" {
		return anomaly(ev, "subscription event carries no subscription reference")
	}
	sub, err := r.GetSubscriptionForUpdateByGatewayRef(ev.SubscriptionRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return anomaly(ev, "unknown subscription reference %q", ev.SubscriptionRef)
		}
		return nil, err
	}

	now := time.Now()
	sub.Status = models.SubscriptionCanceled
	if ev.PeriodEnd != nil {
		sub.EndsAt = ev.PeriodEnd
	} else if sub.EndsAt == nil {
		sub.EndsAt = &now
	}
	if err := r.UpdateSubscription(sub); err != nil {
		return nil, err
	}

	return &applyResult{
		outcome: OutcomeApplied,
		notes: []pendingNote{{
			kind:      models.NotificationSubscriptionCanceled,
			accountID: sub.AccountID,
		}},
	}, nil
}

// promoteSubscription activates a subscription after its initiating charge
// completed. Period data, when absent from the payment event, arrives with
// the gateway's subscription-updated event.
func (s *Service) promoteSubscription(r Repository, subscriptionID uint, ev *Event) error {
	sub, err := r.GetSubscriptionForUpdate(subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[payments] ANOMALY event=%s: transaction references missing subscription %d", ev.ID, subscriptionID)
			return nil
		}
		return err
	}
	if sub.Status == models.SubscriptionCanceled {
		// Stale success after an explicit cancellation must not resurrect it.
		log.Printf("[payments] ANOMALY event=%s: ignoring promotion of canceled subscription %d", ev.ID, sub.ID)
		return nil
	}

	now := time.Now()
	sub.Status = models.SubscriptionActive
	if sub.StartsAt == nil {
		sub.StartsAt = &now
	}
	if ev.PeriodEnd != nil {
		sub.EndsAt = ev.PeriodEnd
	}
	return r.UpdateSubscription(sub)
}

// mapGatewaySubscriptionStatus maps the gateway's reported status to the
// local enum. Anything neither active nor canceled counts as past_due.
func mapGatewaySubscriptionStatus(status string) string {
	switch status {
	case "active", "trialing":
		return models.SubscriptionActive
	case "canceled":
		return models.SubscriptionCanceled
	default:
		return models.SubscriptionPastDue
	}
}

func normalizeInterval(interval string) string {
	switch interval {
	case models.BillingIntervalMonth, models.BillingIntervalYear:
		return interval
	default:
		return models.BillingIntervalUnknown
	}
}

// advanceExpiry extends the expiry by one billing interval from its prior
// value, not from "now"; a fresh subscription without one starts counting at
// the charge time.
func advanceExpiry(current *time.Time, interval string, now time.Time) time.Time {
	base := now
	if current != nil {
		base = *current
	}
	switch interval {
	case models.BillingIntervalYear:
		return base.AddDate(1, 0, 0)
	default:
		return base.AddDate(0, 1, 0)
	}
}
