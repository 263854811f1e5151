package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	NotificationPaymentSucceeded     = "payment_succeeded"
	NotificationPaymentFailed        = "payment_failed"
	NotificationSubscriptionCanceled = "subscription_canceled"
	NotificationSystem               = "system"
)

type Notification struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	AccountID   uint           `gorm:"index" json:"account_id"`
	Account     Account        `gorm:"foreignKey:AccountID" json:"account,omitempty"`
	Type        string         `gorm:"type:varchar(50)" json:"type" validate:"oneof=payment_succeeded payment_failed subscription_canceled system"`
	Content     string         `gorm:"type:text" json:"content"`
	IsRead      bool           `gorm:"default:false" json:"is_read"`
	ReferenceID uint           `json:"reference_id"` // ID of the object the notification refers to
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// MarkAsRead marks a notification as read
func (n *Notification) MarkAsRead(db *gorm.DB) error {
	n.IsRead = true
	return db.Model(n).Update("is_read", true).Error
}

// CreateNotification creates a new notification
func CreateNotification(db *gorm.DB, accountID uint, notificationType string, content string, referenceID uint) error {
	notification := Notification{
		AccountID:   accountID,
		Type:        notificationType,
		Content:     content,
		ReferenceID: referenceID,
		IsRead:      false,
	}

	return db.Create(&notification).Error
}
