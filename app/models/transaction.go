package models

import "time"

const (
	ProductTypeSubscription = "SUBSCRIPTION"
	ProductTypeSingleCourse = "SINGLE_COURSE"
)

const (
	TransactionPending   = "PENDING"
	TransactionCompleted = "COMPLETED"
	TransactionFailed    = "FAILED"
	TransactionRefunded  = "REFUNDED"
	TransactionCanceled  = "CANCELED"
)

// allowedTransactionTransitions is the closed set of legal status moves.
// Anything outside this table is an anomaly and must be dropped, not applied.
var allowedTransactionTransitions = map[string][]string{
	TransactionPending:   {TransactionCompleted, TransactionFailed},
	TransactionCompleted: {TransactionRefunded, TransactionCanceled},
}

// CanTransitionTransaction reports whether moving a transaction from one
// status to another is legal.
func CanTransitionTransaction(from, to string) bool {
	for _, allowed := range allowedTransactionTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transaction records one attempt to move money. Rows are created PENDING by
// the intent issuer, mutated only by webhook reconciliation afterwards and
// never deleted (financial audit trail). GatewayRef is immutable once set.
type Transaction struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	AccountID      uint       `gorm:"not null;index" json:"account_id"`
	SubscriptionID *uint      `gorm:"index;default:null" json:"subscription_id,omitempty"`
	CourseID       *uint      `gorm:"index;default:null" json:"course_id,omitempty"`
	AmountMinor    int64      `gorm:"not null" json:"amount_minor"`
	Currency       string     `gorm:"type:char(3);not null" json:"currency"`
	ProductType    string     `gorm:"type:varchar(20);not null" json:"product_type"`
	Status         string     `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	GatewayRef     *string    `gorm:"type:varchar(191);uniqueIndex;default:null" json:"gateway_ref,omitempty"`
	PaymentMethod  string     `gorm:"type:varchar(50);default:''" json:"payment_method"`
	Description    string     `gorm:"type:text" json:"description"`
	CompletedAt    *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the transaction can no longer change except for
// post-completion adjustments (refund/cancel).
func (t *Transaction) IsTerminal() bool {
	return t.Status != TransactionPending
}
