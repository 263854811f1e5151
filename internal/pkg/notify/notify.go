package notify

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/kurshub/kurshub/app/models"
	"github.com/kurshub/kurshub/internal/pkg/mail"
)

// Dispatcher persists payment notifications for the in-app feed and mails
// the account. It implements the payments.Notifier contract; reconciliation
// treats every call as fire-and-forget.
type Dispatcher struct {
	db *gorm.DB
}

func NewDispatcher(db *gorm.DB) *Dispatcher {
	return &Dispatcher{db: db}
}

func (d *Dispatcher) PaymentSucceeded(ctx context.Context, accountID uint, amountMinor int64, currency, productLabel string) error {
	_ = ctx
	content := fmt.Sprintf("Your payment of %s for %s was successful.", formatAmount(amountMinor, currency), productLabel)
	return d.deliver(accountID, models.NotificationPaymentSucceeded, "Payment received", content)
}

func (d *Dispatcher) PaymentFailed(ctx context.Context, accountID uint, amountMinor int64, currency, reason string) error {
	_ = ctx
	if reason == "" {
		reason = "unknown reason"
	}
	content := fmt.Sprintf("Your payment of %s failed: %s. Please update your payment method and try again.", formatAmount(amountMinor, currency), reason)
	return d.deliver(accountID, models.NotificationPaymentFailed, "Payment failed", content)
}

func (d *Dispatcher) SubscriptionCanceled(ctx context.Context, accountID uint) error {
	_ = ctx
	content := "Your subscription has been canceled. You keep access until the end of the paid period."
	return d.deliver(accountID, models.NotificationSubscriptionCanceled, "Subscription canceled", content)
}

func (d *Dispatcher) deliver(accountID uint, notificationType, subject, content string) error {
	if err := models.CreateNotification(d.db, accountID, notificationType, content, 0); err != nil {
		return err
	}

	var account models.Account
	if err := d.db.First(&account, accountID).Error; err != nil {
		log.Printf("[notify] account %d not found for mail delivery: %v", accountID, err)
		return nil
	}
	if err := mail.SendMail(account.Email, subject, content); err != nil {
		// The in-app notification is already stored; mail is best effort.
		log.Printf("[notify] mail to account %d failed: %v", accountID, err)
	}
	return nil
}

func formatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, currency)
}
