package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product 商品目录条目。订单核心只会修改 Stock。
type Product struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// 名称只在未删除的商品中唯一，软删除后可以复用。
	Name     string          `gorm:"size:128;not null;uniqueIndex:idx_products_name_live,where:deleted_at IS NULL" json:"name"`
	Price    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock    int64           `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	IsActive bool            `gorm:"not null" json:"is_active"`

	CategoryID string    `gorm:"type:varchar(36);not null;index" json:"category_id"`
	Category   *Category `json:"category,omitempty"`

	// OfferPrice is filled for catalog reads when a flash sale is running.
	OfferPrice *decimal.Decimal `gorm:"-" json:"offer_price,omitempty"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
