package order

import (
	"regexp"
	"strings"

	"storefront/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// mobilePattern 本地手机号：01 开头，第三位 3-9，共 11 位。
var mobilePattern = regexp.MustCompile(`^01[3-9]\d{8}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return model.PaymentMethod(fl.Field().String()).Valid()
	})
	return v
}

// LineInput 是客户端提交的一行商品，单价由服务端计算。
type LineInput struct {
	Product  string `json:"product" validate:"required"`
	Quantity int64  `json:"quantity" validate:"gte=1"`
	Color    string `json:"color" validate:"required"`
}

// PlaceOrder 下单请求。
type PlaceOrder struct {
	Name            string              `json:"name" validate:"required,min=2"`
	Mobile          string              `json:"mobile" validate:"required,mobile"`
	Email           string              `json:"email" validate:"omitempty,email"`
	ShippingAddress string              `json:"shipping_address" validate:"required,min=4"`
	City            string              `json:"city" validate:"required"`
	PaymentMethod   model.PaymentMethod `json:"payment_method" validate:"payment_method"`
	Coupon          string              `json:"coupon"`
	Products        []LineInput         `json:"products" validate:"required,min=1,dive"`
}

func (r PlaceOrder) normalize() PlaceOrder {
	r.Name = strings.TrimSpace(r.Name)
	r.Mobile = strings.TrimSpace(r.Mobile)
	r.Email = strings.TrimSpace(r.Email)
	r.ShippingAddress = strings.TrimSpace(r.ShippingAddress)
	r.City = strings.TrimSpace(r.City)
	r.Coupon = strings.TrimSpace(r.Coupon)
	if r.PaymentMethod == "" {
		r.PaymentMethod = model.PaymentCOD
	}
	lines := make([]LineInput, len(r.Products))
	for i, l := range r.Products {
		l.Product = strings.TrimSpace(l.Product)
		l.Color = strings.TrimSpace(l.Color)
		lines[i] = l
	}
	r.Products = lines
	return r
}

// Validate returns ErrInvalidRequest naming the first offending field.
func (r PlaceOrder) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errors.Wrapf(ErrInvalidRequest, "field %s failed on the '%s' rule", fe.Namespace(), fe.Tag())
	}
	return errors.Wrap(ErrInvalidRequest, err.Error())
}

func (r PlaceOrder) lines() []model.OrderLine {
	out := make([]model.OrderLine, len(r.Products))
	for i, l := range r.Products {
		out[i] = model.OrderLine{ProductID: l.Product, Quantity: l.Quantity, Color: l.Color}
	}
	return out
}
