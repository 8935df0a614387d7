package order

import (
	"time"

	"storefront/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ResolveCoupon 按 code 查券并校验有效期，返回券 ID 供订单引用。
func ResolveCoupon(tx *gorm.DB, code string, now time.Time) (string, error) {
	var coupons []model.Coupon
	if err := tx.Where("code = ?", code).Limit(1).Find(&coupons).Error; err != nil {
		return "", storageErr("coupon lookup", err)
	}
	if len(coupons) == 0 {
		return "", ErrCouponNotFound
	}
	c := coupons[0]
	if now.Before(c.StartDate) {
		return "", errors.Wrapf(ErrCouponNotStarted, "coupon %s", c.Code)
	}
	if now.After(c.EndDate) {
		return "", errors.Wrapf(ErrCouponExpired, "coupon %s", c.Code)
	}
	return c.ID, nil
}
