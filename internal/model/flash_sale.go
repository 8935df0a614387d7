package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FlashSale 商品限时折扣：时间窗内按百分比降价。
type FlashSale struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProductID          string          `gorm:"type:varchar(36);not null;index" json:"product_id"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount_percentage"`
	StartTime          time.Time       `gorm:"not null" json:"start_time"`
	EndTime            time.Time       `gorm:"not null" json:"end_time"`
}

func (FlashSale) TableName() string { return "flash_sales" }

func (f *FlashSale) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// EffectiveAt reports whether the sale window covers t (both ends inclusive).
func (f FlashSale) EffectiveAt(t time.Time) bool {
	return !t.Before(f.StartTime) && !t.After(f.EndTime)
}
