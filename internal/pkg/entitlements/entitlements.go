package entitlements

import (
	"time"

	"gorm.io/gorm"

	"github.com/kurshub/kurshub/app/models"
)

// HasCourseAccess reports whether an account may access a course, either
// through a one-off purchase (enrollment) or an entitling subscription.
func HasCourseAccess(db *gorm.DB, accountID, courseID uint) (bool, error) {
	var count int64
	err := db.Model(&models.Enrollment{}).
		Where("account_id = ? AND course_id = ?", accountID, courseID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	subs, err := ListSubscriptions(db, accountID)
	if err != nil {
		return false, err
	}
	now := time.Now()
	for i := range subs {
		if subs[i].CourseID == courseID && subs[i].IsEntitling(now) {
			return true, nil
		}
	}
	return false, nil
}

// ListSubscriptions returns all subscriptions of an account.
func ListSubscriptions(db *gorm.DB, accountID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := db.Where("account_id = ?", accountID).Find(&subs).Error
	return subs, err
}

// ListEnrollments returns all course enrollments of an account.
func ListEnrollments(db *gorm.DB, accountID uint) ([]models.Enrollment, error) {
	var ens []models.Enrollment
	err := db.Where("account_id = ?", accountID).Find(&ens).Error
	return ens, err
}
