package payments

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kurshub/kurshub/app/models"
)

// Repository provides the DB operations used by the payment service. The
// ForUpdate variants take a row lock and are only meaningful inside
// InTransaction; each transaction/subscription row is the serialization
// point for concurrent webhook deliveries.
type Repository interface {
	InTransaction(fn func(Repository) error) error

	GetAccountByID(id uint) (*models.Account, error)
	// SetAccountGatewayCustomerID persists the mapping only when no mapping
	// exists yet and reports whether this call won the write.
	SetAccountGatewayCustomerID(accountID uint, customerRef string) (bool, error)

	GetCourseByID(id uint) (*models.Course, error)

	CreateTransaction(t *models.Transaction) error
	SetTransactionGatewayRef(id uint, gatewayRef string) error
	GetTransactionForUpdate(id uint) (*models.Transaction, error)
	UpdateTransaction(t *models.Transaction) error
	ListTransactionsByAccount(accountID uint, offset, limit int) ([]models.Transaction, error)

	CreateSubscription(s *models.Subscription) error
	GetSubscriptionForUpdate(id uint) (*models.Subscription, error)
	GetSubscriptionForUpdateByGatewayRef(gatewayRef string) (*models.Subscription, error)
	UpdateSubscription(s *models.Subscription) error
	ListLapsedActiveSubscriptions(now time.Time, limit int) ([]models.Subscription, error)

	CreateWebhookEventIfNotExists(e *models.PaymentWebhookEvent) (bool, error)
	GetWebhookEventForUpdate(gatewayEventID string) (*models.PaymentWebhookEvent, error)
	MarkWebhookEventProcessed(id uint, processingError string) error

	CreateEnrollmentIfNotExists(en *models.Enrollment) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) InTransaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}

func (r *gormRepository) GetAccountByID(id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.First(&account, id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *gormRepository) SetAccountGatewayCustomerID(accountID uint, customerRef string) (bool, error) {
	tx := r.db.Model(&models.Account{}).
		Where("id = ? AND gateway_customer_id IS NULL", accountID).
		Update("gateway_customer_id", customerRef)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) GetCourseByID(id uint) (*models.Course, error) {
	var course models.Course
	if err := r.db.First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *gormRepository) CreateTransaction(t *models.Transaction) error {
	return r.db.Create(t).Error
}

func (r *gormRepository) SetTransactionGatewayRef(id uint, gatewayRef string) error {
	// GatewayRef is immutable once set; the guard keeps retries from
	// rebinding a transaction to a different gateway object.
	return r.db.Model(&models.Transaction{}).
		Where("id = ? AND gateway_ref IS NULL", id).
		Update("gateway_ref", gatewayRef).Error
}

func (r *gormRepository) GetTransactionForUpdate(id uint) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *gormRepository) UpdateTransaction(t *models.Transaction) error {
	return r.db.Save(t).Error
}

func (r *gormRepository) ListTransactionsByAccount(accountID uint, offset, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.Where("account_id = ?", accountID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (r *gormRepository) CreateSubscription(s *models.Subscription) error {
	return r.db.Create(s).Error
}

func (r *gormRepository) GetSubscriptionForUpdate(id uint) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) GetSubscriptionForUpdateByGatewayRef(gatewayRef string) (*models.Subscription, error) {
	var s models.Subscription
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("gateway_ref = ?", gatewayRef).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) UpdateSubscription(s *models.Subscription) error {
	return r.db.Save(s).Error
}

func (r *gormRepository) ListLapsedActiveSubscriptions(now time.Time, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("status = ? AND ends_at IS NOT NULL AND ends_at < ?", models.SubscriptionActive, now).
		Limit(limit).
		Find(&subs).Error
	return subs, err
}

func (r *gormRepository) CreateWebhookEventIfNotExists(e *models.PaymentWebhookEvent) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "gateway_event_id"}},
		DoNothing: true,
	}).Create(e)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) GetWebhookEventForUpdate(gatewayEventID string) (*models.PaymentWebhookEvent, error) {
	var e models.PaymentWebhookEvent
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("gateway_event_id = ?", gatewayEventID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *gormRepository) MarkWebhookEventProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.PaymentWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) CreateEnrollmentIfNotExists(en *models.Enrollment) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "course_id"}},
		DoNothing: true,
	}).Create(en).Error
}
