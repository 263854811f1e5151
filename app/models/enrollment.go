package models

import "time"

// Enrollment grants an account access to a single purchased course. Written
// exactly once per account/course pair when the purchase transaction
// completes.
type Enrollment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AccountID     uint      `gorm:"not null;index:ux_enrollments_account_course,unique,priority:1" json:"account_id"`
	CourseID      uint      `gorm:"not null;index:ux_enrollments_account_course,unique,priority:2" json:"course_id"`
	TransactionID uint      `gorm:"not null;index" json:"transaction_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
