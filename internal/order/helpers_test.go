package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront/internal/database"
	"storefront/internal/model"
	"storefront/internal/queue"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingSink struct {
	mu     sync.Mutex
	events []queue.OrderEvent
	err    error
}

func (s *recordingSink) Emit(_ context.Context, ev queue.OrderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) Events() []queue.OrderEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]queue.OrderEvent(nil), s.events...)
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *recordingSink) {
	t.Helper()
	db := database.OpenTemp(t)
	sink := &recordingSink{}
	return NewService(db, DefaultDeliveryRates(), sink), db, sink
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int64) model.Product {
	t.Helper()
	c := model.Category{Name: "cat-" + name, Slug: "cat-" + uuid.NewString(), IsActive: true}
	require.NoError(t, db.Create(&c).Error)
	p := model.Product{Name: name, Price: decimal.RequireFromString(price), Stock: stock, CategoryID: c.ID, IsActive: true}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func deactivate(t *testing.T, db *gorm.DB, id string) {
	t.Helper()
	require.NoError(t, db.Model(&model.Product{}).Where("id = ?", id).Update("is_active", false).Error)
}

func seedCoupon(t *testing.T, db *gorm.DB, code string, start, end time.Time) model.Coupon {
	t.Helper()
	c := model.Coupon{Code: code, StartDate: start, EndDate: end, IsActive: true}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func seedFlashSale(t *testing.T, db *gorm.DB, productID, pct string, start, end time.Time) model.FlashSale {
	t.Helper()
	s := model.FlashSale{ProductID: productID, DiscountPercentage: decimal.RequireFromString(pct), StartTime: start, EndTime: end}
	require.NoError(t, db.Create(&s).Error)
	return s
}

func stockOf(t *testing.T, db *gorm.DB, id string) int64 {
	t.Helper()
	var p model.Product
	require.NoError(t, db.Unscoped().Where("id = ?", id).First(&p).Error)
	return p.Stock
}

func orderCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.Order{}).Count(&n).Error)
	return n
}

func placeRequest(city string, lines ...LineInput) PlaceOrder {
	return PlaceOrder{
		Name:            "Rahim Uddin",
		Mobile:          "01712345678",
		ShippingAddress: "House 12, Road 5",
		City:            city,
		Products:        lines,
	}
}

func line(productID string, qty int64) LineInput {
	return LineInput{Product: productID, Quantity: qty, Color: "black"}
}

// counterValue 读取计数器当前值，不存在时为 0。
func counterValue(t *testing.T, db *gorm.DB, id string) int64 {
	t.Helper()
	var rows []model.Counter
	require.NoError(t, db.Where("id = ?", id).Limit(1).Find(&rows).Error)
	if len(rows) == 0 {
		return 0
	}
	return rows[0].Seq
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}
