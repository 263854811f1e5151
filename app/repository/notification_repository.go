package repository

import (
	"gorm.io/gorm"

	"github.com/kurshub/kurshub/app/models"
)

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository instance
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) ListByAccount(accountID uint, offset, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.Where("account_id = ?", accountID).
		Order("created_at DESC").Offset(offset).Limit(limit).Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) CountUnread(accountID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).
		Where("account_id = ? AND is_read = ?", accountID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkRead(id, accountID uint) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ? AND account_id = ?", id, accountID).
		Update("is_read", true).Error
}
