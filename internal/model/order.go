package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus 订单履约状态。
type OrderStatus string

const (
	OrderReceived     OrderStatus = "Received"
	OrderInProcessing OrderStatus = "In-Processing"
	OrderCompleted    OrderStatus = "Completed"
	OrderCancelled    OrderStatus = "Cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderReceived, OrderInProcessing, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// PaymentStatus 支付状态（货到付款时由配送员更新）。
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentOnTheWay  PaymentStatus = "On-the-Way"
	PaymentPaid      PaymentStatus = "Paid"
	PaymentCancelled PaymentStatus = "Cancelled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentOnTheWay, PaymentPaid, PaymentCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentCard   PaymentMethod = "Card"
	PaymentOnline PaymentMethod = "Online"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentCard, PaymentOnline:
		return true
	}
	return false
}

// Order 订单。商品行与金额在创建后不可变，只有 Status/PaymentStatus 会被更新。
type Order struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// OrderNo 是对外展示的订单号，例如 "000123"。
	OrderNo string `gorm:"size:32;uniqueIndex;not null" json:"order_id"`

	Name            string `gorm:"size:128;not null" json:"name"`
	Mobile          string `gorm:"size:32;not null;index" json:"mobile"`
	Email           string `gorm:"size:128" json:"email"`
	ShippingAddress string `gorm:"size:512;not null" json:"shipping_address"`
	City            string `gorm:"size:128;not null" json:"city"`

	Products []OrderLine `gorm:"foreignKey:OrderID" json:"products"`

	CouponID *string `gorm:"type:varchar(36);index" json:"coupon_id"`
	Coupon   *Coupon `json:"coupon,omitempty"`

	TotalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Discount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	DeliveryCharge decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"delivery_charge"`
	FinalAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"final_amount"`

	Status        OrderStatus   `gorm:"size:20;not null;index" json:"status"`
	PaymentMethod PaymentMethod `gorm:"size:20;not null" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"size:20;not null;index" json:"payment_status"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// OrderLine 订单行，归属于订单，UnitPrice 为下单时的快照价格。
type OrderLine struct {
	ID      uint   `gorm:"primarykey" json:"-"`
	OrderID string `gorm:"type:varchar(36);not null;index" json:"-"`

	ProductID string   `gorm:"type:varchar(36);not null;index" json:"product_id"`
	Product   *Product `json:"product,omitempty"`

	Quantity  int64           `gorm:"not null" json:"quantity"`
	Color     string          `gorm:"size:64;not null" json:"color"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
}

func (OrderLine) TableName() string { return "order_lines" }
