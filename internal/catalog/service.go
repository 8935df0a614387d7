package catalog

import (
	"context"
	"strings"
	"time"

	"storefront/internal/model"
	"storefront/internal/order"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("already exists")
	ErrInUse        = errors.New("still referenced")
)

// Service 分类、商品、秒杀与优惠券的后台维护。
type Service struct {
	db      *gorm.DB
	pricing *order.Pricing
	log     *log.Entry
	now     func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:      db,
		pricing: order.NewPricing(order.DeliveryRates{}),
		log:     log.WithField("component", "catalog"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type NewProduct struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Stock      int64           `json:"stock"`
	CategoryID string          `json:"category_id"`
	IsActive   *bool           `json:"is_active"`
}

func (s *Service) CreateProduct(ctx context.Context, in NewProduct) (*model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errors.Wrap(ErrInvalidInput, "name is required")
	}
	if in.Price.IsNegative() {
		return nil, errors.Wrap(ErrInvalidInput, "price must be >= 0")
	}
	if in.Stock < 0 {
		return nil, errors.Wrap(ErrInvalidInput, "stock must be >= 0")
	}
	if err := s.requireActiveCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}
	p := &model.Product{Name: name, Price: in.Price, Stock: in.Stock, CategoryID: in.CategoryID, IsActive: true}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, s.writeErr("product create", name, err)
	}
	s.log.WithFields(log.Fields{"product_id": p.ID, "name": p.Name}).Info("product created")
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	var products []model.Product
	err := s.db.WithContext(ctx).Preload("Category").Where("id = ?", id).Limit(1).Find(&products).Error
	if err != nil {
		return nil, errors.Wrap(err, "product lookup")
	}
	if len(products) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "product %s", id)
	}
	p := &products[0]
	if err := s.annotate(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ProductQuery 商品列表筛选。Categories 为空表示不按分类过滤。
type ProductQuery struct {
	Page       int
	Limit      int
	Search     string
	InStock    *bool
	Categories []string
}

func (s *Service) ListProducts(ctx context.Context, q ProductQuery) ([]model.Product, order.Meta, error) {
	page, limit := order.Paginate(q.Page, q.Limit)

	scope := s.db.WithContext(ctx).Model(&model.Product{})
	if term := strings.TrimSpace(q.Search); term != "" {
		scope = scope.Where("name LIKE ? ESCAPE '\\'", order.ContainsPattern(term))
	}
	if len(q.Categories) > 0 {
		scope = scope.Where("category_id IN ?", q.Categories)
	}
	if q.InStock != nil {
		if *q.InStock {
			scope = scope.Where("stock > 0")
		} else {
			scope = scope.Where("stock = 0")
		}
	}

	var total int64
	if err := scope.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, order.Meta{}, errors.Wrap(err, "product count")
	}
	var list []model.Product
	err := scope.Session(&gorm.Session{}).
		Preload("Category").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, order.Meta{}, errors.Wrap(err, "product list")
	}
	for i := range list {
		if err := s.annotate(ctx, &list[i]); err != nil {
			return nil, order.Meta{}, err
		}
	}
	return list, order.NewMeta(page, limit, total), nil
}

// ProductPatch 只更新非 nil 字段。
type ProductPatch struct {
	Name       *string          `json:"name"`
	Price      *decimal.Decimal `json:"price"`
	Stock      *int64           `json:"stock"`
	CategoryID *string          `json:"category_id"`
	IsActive   *bool            `json:"is_active"`
}

func (s *Service) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*model.Product, error) {
	updates := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, errors.Wrap(ErrInvalidInput, "name must not be empty")
		}
		updates["name"] = name
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, errors.Wrap(ErrInvalidInput, "price must be >= 0")
		}
		updates["price"] = *patch.Price
	}
	if patch.Stock != nil {
		if *patch.Stock < 0 {
			return nil, errors.Wrap(ErrInvalidInput, "stock must be >= 0")
		}
		updates["stock"] = *patch.Stock
	}
	if patch.CategoryID != nil {
		if err := s.requireActiveCategory(ctx, *patch.CategoryID); err != nil {
			return nil, err
		}
		updates["category_id"] = *patch.CategoryID
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}
	if len(updates) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "nothing to update")
	}

	res := s.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, s.writeErr("product update", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errors.Wrapf(ErrNotFound, "product %s", id)
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct 软删除，历史订单仍能展示商品信息。
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Product{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "product delete")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "product %s", id)
	}
	return nil
}

type NewFlashSale struct {
	ProductID          string          `json:"product_id"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	StartTime          time.Time       `json:"start_time"`
	EndTime            time.Time       `json:"end_time"`
}

func (s *Service) CreateFlashSale(ctx context.Context, in NewFlashSale) (*model.FlashSale, error) {
	if in.DiscountPercentage.IsNegative() || in.DiscountPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return nil, errors.Wrap(ErrInvalidInput, "discount_percentage must be within 0-100")
	}
	if !in.EndTime.After(in.StartTime) {
		return nil, errors.Wrap(ErrInvalidInput, "end_time must be after start_time")
	}
	if _, err := s.GetProduct(ctx, in.ProductID); err != nil {
		return nil, err
	}
	sale := &model.FlashSale{
		ProductID:          in.ProductID,
		DiscountPercentage: in.DiscountPercentage,
		StartTime:          in.StartTime.UTC(),
		EndTime:            in.EndTime.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(sale).Error; err != nil {
		return nil, errors.Wrap(err, "flash sale create")
	}
	return sale, nil
}

func (s *Service) DeleteFlashSale(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.FlashSale{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "flash sale delete")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "flash sale %s", id)
	}
	return nil
}

type NewCoupon struct {
	Code      string    `json:"code"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

func (s *Service) CreateCoupon(ctx context.Context, in NewCoupon) (*model.Coupon, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, errors.Wrap(ErrInvalidInput, "code is required")
	}
	if !in.EndDate.After(in.StartDate) {
		return nil, errors.Wrap(ErrInvalidInput, "end_date must be after start_date")
	}
	c := &model.Coupon{Code: code, StartDate: in.StartDate.UTC(), EndDate: in.EndDate.UTC(), IsActive: true}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, s.writeErr("coupon create", code, err)
	}
	return c, nil
}

func (s *Service) ListCoupons(ctx context.Context) ([]model.Coupon, error) {
	var list []model.Coupon
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, errors.Wrap(err, "coupon list")
	}
	return list, nil
}

// annotate fills OfferPrice while a flash sale is running.
func (s *Service) annotate(ctx context.Context, p *model.Product) error {
	sale, err := s.pricing.ActiveFlashSale(s.db.WithContext(ctx), p.ID, s.now())
	if err != nil {
		return err
	}
	if sale != nil {
		offer := order.UnitPrice(*p, sale)
		p.OfferPrice = &offer
	}
	return nil
}

func (s *Service) writeErr(op, subject string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.Wrapf(ErrDuplicate, "%s '%s'", op, subject)
	}
	return errors.Wrap(err, op)
}
