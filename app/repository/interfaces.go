package repository

import (
	"github.com/kurshub/kurshub/app/models"
)

// AccountRepository defines the interface for account-related database operations
type AccountRepository interface {
	Create(account *models.Account) error
	GetByID(id uint) (*models.Account, error)
	GetByEmail(email string) (*models.Account, error)
	GetByActivationToken(token string) (*models.Account, error)
	Update(account *models.Account) error
	List(offset, limit int) ([]models.Account, error)
	Count() (int64, error)
}

// CourseRepository defines the interface for course catalog operations
type CourseRepository interface {
	Create(course *models.Course) error
	GetByID(id uint) (*models.Course, error)
	GetBySlug(slug string) (*models.Course, error)
	ListPublished(offset, limit int) ([]models.Course, error)
	List(offset, limit int) ([]models.Course, error)
	Update(course *models.Course) error
	Delete(id uint) error
	Count() (int64, error)
}

// NotificationRepository defines the interface for notification feed operations
type NotificationRepository interface {
	ListByAccount(accountID uint, offset, limit int) ([]models.Notification, error)
	CountUnread(accountID uint) (int64, error)
	MarkRead(id, accountID uint) error
}

// Repositories bundles all repository implementations
type Repositories struct {
	Account      AccountRepository
	Course       CourseRepository
	Notification NotificationRepository
}
