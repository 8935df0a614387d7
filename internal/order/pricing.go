package order

import (
	"strings"
	"time"

	"storefront/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// DeliveryRates 两档固定运费：配送地址落在 MetroZone 时收 Metro，否则收 Other。
type DeliveryRates struct {
	MetroZone string
	Metro     decimal.Decimal
	Other     decimal.Decimal
}

// DefaultDeliveryRates mirrors the storefront's production table.
func DefaultDeliveryRates() DeliveryRates {
	return DeliveryRates{
		MetroZone: "dhaka",
		Metro:     decimal.NewFromInt(70),
		Other:     decimal.NewFromInt(130),
	}
}

// ChargeFor matches the zone name against the city first, then the address.
func (r DeliveryRates) ChargeFor(city, address string) decimal.Decimal {
	zone := strings.ToLower(strings.TrimSpace(r.MetroZone))
	if zone != "" && (strings.Contains(strings.ToLower(city), zone) ||
		strings.Contains(strings.ToLower(address), zone)) {
		return r.Metro
	}
	return r.Other
}

// Amounts 是订单的派生金额。
type Amounts struct {
	Total    decimal.Decimal
	Discount decimal.Decimal
	Delivery decimal.Decimal
	Final    decimal.Decimal
}

// Pricing 计算单价与订单合计，无副作用。
type Pricing struct {
	rates DeliveryRates
}

func NewPricing(rates DeliveryRates) *Pricing {
	return &Pricing{rates: rates}
}

// ActiveFlashSale returns the earliest-created sale whose window covers now, or nil.
func (p *Pricing) ActiveFlashSale(db *gorm.DB, productID string, now time.Time) (*model.FlashSale, error) {
	var sales []model.FlashSale
	err := db.Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&sales).Error
	if err != nil {
		return nil, storageErr("flash sale lookup", err)
	}
	for i := range sales {
		if sales[i].EffectiveAt(now) {
			return &sales[i], nil
		}
	}
	return nil, nil
}

// UnitPriceFor looks up the running flash sale and prices one unit of the product.
func (p *Pricing) UnitPriceFor(db *gorm.DB, product model.Product, now time.Time) (decimal.Decimal, error) {
	sale, err := p.ActiveFlashSale(db, product.ID, now)
	if err != nil {
		return decimal.Zero, err
	}
	return UnitPrice(product, sale), nil
}

// UnitPrice = price - price*discount/100, rounded to cents.
func UnitPrice(product model.Product, sale *model.FlashSale) decimal.Decimal {
	if sale == nil {
		return product.Price
	}
	off := product.Price.Mul(sale.DiscountPercentage).Div(hundred)
	return product.Price.Sub(off).Round(2)
}

// Totals aggregates the priced lines. The final amount never goes below zero.
func (p *Pricing) Totals(lines []model.OrderLine, discount decimal.Decimal, city, address string) Amounts {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity)))
	}
	delivery := p.rates.ChargeFor(city, address)
	final := total.Sub(discount).Add(delivery)
	if final.IsNegative() {
		final = decimal.Zero
	}
	return Amounts{Total: total, Discount: discount, Delivery: delivery, Final: final}
}
