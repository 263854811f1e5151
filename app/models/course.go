package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Course is a catalog entry. PriceMinor is in minor currency units (cents);
// GatewayPriceRef is the gateway-side recurring price used for subscription
// checkouts and stays empty for one-off-only courses.
type Course struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Title           string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=3,max=200"`
	Slug            string         `gorm:"type:varchar(200);uniqueIndex;not null" json:"slug" validate:"required,min=3,max=200"`
	Description     string         `gorm:"type:text" json:"description"`
	PriceMinor      int64          `gorm:"not null" json:"price_minor" validate:"gt=0"`
	Currency        string         `gorm:"type:char(3);not null;default:'EUR'" json:"currency" validate:"len=3"`
	GatewayPriceRef string         `gorm:"type:varchar(191);default:''" json:"-"`
	Published       bool           `gorm:"default:false;index" json:"published"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Course) Validate() error {
	v := validator.New()

	return v.Struct(c)
}
