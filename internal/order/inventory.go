package order

import (
	"time"

	"storefront/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Inventory 在调用方事务内校验并扣减库存。
// 失败时不做手工回补，由事务回滚撤销本次请求已扣的库存。
type Inventory struct {
	pricing *Pricing
}

func NewInventory(pricing *Pricing) *Inventory {
	return &Inventory{pricing: pricing}
}

// Reserve walks the lines in order and fills UnitPrice on each one.
func (inv *Inventory) Reserve(tx *gorm.DB, lines []model.OrderLine, now time.Time) ([]model.OrderLine, error) {
	out := make([]model.OrderLine, len(lines))
	for i, line := range lines {
		var products []model.Product
		if err := tx.Where("id = ?", line.ProductID).Limit(1).Find(&products).Error; err != nil {
			return nil, storageErr("product lookup", err)
		}
		if len(products) == 0 {
			return nil, errors.Wrapf(ErrProductNotFound, "product %s", line.ProductID)
		}
		p := products[0]
		if !p.IsActive {
			return nil, errors.Wrapf(ErrProductInactive, "product %s", p.Name)
		}
		if p.Stock < line.Quantity {
			return nil, errors.Wrapf(ErrInsufficientStock, "product %s", p.Name)
		}

		price, err := inv.pricing.UnitPriceFor(tx, p, now)
		if err != nil {
			return nil, err
		}

		// 条件扣减：stock >= quantity 才更新，0 行受影响说明被并发请求抢先。
		res := tx.Model(&model.Product{}).
			Where("id = ? AND stock >= ?", p.ID, line.Quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", line.Quantity))
		if res.Error != nil {
			return nil, storageErr("stock decrement", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, errors.Wrapf(ErrInsufficientStock, "product %s", p.Name)
		}

		line.UnitPrice = price
		out[i] = line
	}
	return out, nil
}
