package models

import "time"

const (
	SubscriptionInactive = "inactive"
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
	SubscriptionPastDue  = "past_due"
)

const (
	BillingIntervalMonth   = "month"
	BillingIntervalYear    = "year"
	BillingIntervalUnknown = "unknown"
)

// Subscription embodies entitlement: status == active means the account may
// access the paid content. Created inactive by the intent issuer and promoted
// only by reconciliation of a successful charge.
type Subscription struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	AccountID       uint       `gorm:"not null;index" json:"account_id"`
	CourseID        uint       `gorm:"not null;index" json:"course_id"`
	Status          string     `gorm:"type:varchar(20);not null;default:'inactive';index" json:"status"`
	BillingInterval string     `gorm:"type:varchar(16);not null;default:'unknown'" json:"billing_interval"`
	GatewayRef      *string    `gorm:"type:varchar(191);uniqueIndex;default:null" json:"gateway_ref,omitempty"`
	StartsAt        *time.Time `gorm:"type:timestamp;default:null" json:"starts_at,omitempty"`
	EndsAt          *time.Time `gorm:"type:timestamp;default:null" json:"ends_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsLapsed reports whether the subscription is marked active although its
// end timestamp has passed. Lapsed rows must be forced away from active on
// the next reconciliation pass.
func (s *Subscription) IsLapsed(now time.Time) bool {
	return s.Status == SubscriptionActive && s.EndsAt != nil && s.EndsAt.Before(now)
}

// IsEntitling reports whether the subscription currently grants access.
func (s *Subscription) IsEntitling(now time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	return s.EndsAt == nil || s.EndsAt.After(now)
}
