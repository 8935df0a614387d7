package order

import (
	"context"
	"strings"

	"storefront/internal/model"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// OrderQuery 后台订单列表筛选条件。
type OrderQuery struct {
	Page          int
	Limit         int
	Status        model.OrderStatus
	PaymentStatus model.PaymentStatus
	Search        string
}

// Meta 分页信息。
type Meta struct {
	Page      int   `json:"page"`
	Limit     int   `json:"limit"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// ListOrders returns orders newest first.
func (s *Service) ListOrders(ctx context.Context, q OrderQuery) ([]model.Order, Meta, error) {
	page, limit := Paginate(q.Page, q.Limit)

	scope := s.db.WithContext(ctx).Model(&model.Order{})
	if q.Status != "" {
		scope = scope.Where("status = ?", q.Status)
	}
	if q.PaymentStatus != "" {
		scope = scope.Where("payment_status = ?", q.PaymentStatus)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		like := ContainsPattern(term)
		scope = scope.Where("order_no LIKE ? ESCAPE '\\' OR name LIKE ? ESCAPE '\\' OR mobile LIKE ? ESCAPE '\\'", like, like, like)
	}

	var total int64
	if err := scope.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, Meta{}, storageErr("order count", err)
	}

	var orders []model.Order
	err := withDetails(scope.Session(&gorm.Session{})).
		Order("created_at DESC").
		Order("order_no DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, Meta{}, storageErr("order list", err)
	}

	return orders, NewMeta(page, limit, total), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern 构造字面匹配的 LIKE 模式，SQL 中需配合 ESCAPE '\' 使用。
func ContainsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// Paginate clamps page/limit to sane values.
func Paginate(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func NewMeta(page, limit int, total int64) Meta {
	totalPage := total / int64(limit)
	if total%int64(limit) != 0 {
		totalPage++
	}
	return Meta{Page: page, Limit: limit, Total: total, TotalPage: totalPage}
}
