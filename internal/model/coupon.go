package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Coupon 优惠券，仅在 [StartDate, EndDate] 内有效。
type Coupon struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Code      string    `gorm:"size:64;uniqueIndex;not null" json:"code"`
	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
}

func (Coupon) TableName() string { return "coupons" }

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
