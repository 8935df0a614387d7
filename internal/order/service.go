package order

import (
	"context"
	"time"

	"storefront/internal/model"
	"storefront/internal/queue"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// EventSink receives order events after the owning transaction has committed.
type EventSink interface {
	Emit(ctx context.Context, ev queue.OrderEvent) error
}

type stage string

const (
	stageStarted         stage = "started"
	stageLinesNormalized stage = "lines_normalized"
	stageStockReserved   stage = "stock_reserved"
	stageCouponResolved  stage = "coupon_resolved"
	stagePriced          stage = "priced"
	stagePersisted       stage = "persisted"
	stageCommitted       stage = "committed"
)

// Service 协调下单事务：库存、优惠券、计价、订单号与订单写入同属一个事务。
type Service struct {
	db        *gorm.DB
	seq       *Sequence
	pricing   *Pricing
	inventory *Inventory
	events    EventSink
	log       *log.Entry
	now       func() time.Time
}

// NewService wires the order core. events may be nil.
func NewService(db *gorm.DB, rates DeliveryRates, events EventSink) *Service {
	pricing := NewPricing(rates)
	return &Service{
		db:        db,
		seq:       NewSequence(OrderCounter),
		pricing:   pricing,
		inventory: NewInventory(pricing),
		events:    events,
		log:       log.WithField("component", "order"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder 下单。任一步失败整笔事务回滚，错误原样返回给调用方。
func (s *Service) CreateOrder(ctx context.Context, req PlaceOrder) (*model.Order, error) {
	req = req.normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	at := stageStarted
	var created model.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines := req.lines()
		at = stageLinesNormalized

		lines, err := s.inventory.Reserve(tx, lines, now)
		if err != nil {
			return err
		}
		at = stageStockReserved

		var couponID *string
		if req.Coupon != "" {
			id, err := ResolveCoupon(tx, req.Coupon, now)
			if err != nil {
				return err
			}
			couponID = &id
		}
		at = stageCouponResolved

		// 优惠金额暂不计算，券只做校验与引用。
		amounts := s.pricing.Totals(lines, decimal.Zero, req.City, req.ShippingAddress)
		at = stagePriced

		orderNo, err := s.seq.Next(tx)
		if err != nil {
			return err
		}

		created = model.Order{
			OrderNo:         orderNo,
			Name:            req.Name,
			Mobile:          req.Mobile,
			Email:           req.Email,
			ShippingAddress: req.ShippingAddress,
			City:            req.City,
			Products:        lines,
			CouponID:        couponID,
			TotalAmount:     amounts.Total,
			Discount:        amounts.Discount,
			DeliveryCharge:  amounts.Delivery,
			FinalAmount:     amounts.Final,
			Status:          model.OrderReceived,
			PaymentMethod:   req.PaymentMethod,
			PaymentStatus:   model.PaymentPending,
		}
		if err := tx.Create(&created).Error; err != nil {
			return storageErr("order create", err)
		}
		at = stagePersisted
		return nil
	})
	if err != nil {
		err = classify(err)
		s.log.WithFields(log.Fields{
			"stage":  at,
			"mobile": req.Mobile,
			"lines":  len(req.Products),
		}).WithError(err).Warn("order transaction aborted")
		return nil, err
	}
	at = stageCommitted
	s.log.WithFields(log.Fields{
		"order_id": created.ID,
		"order_no": created.OrderNo,
		"final":    created.FinalAmount.String(),
		"stage":    at,
	}).Info("order created")

	out, err := s.GetOrder(ctx, created.ID)
	if err != nil {
		// 已提交，读回失败不影响结果，返回未填充商品详情的订单。
		s.log.WithError(err).WithField("order_id", created.ID).Warn("reload created order")
		out = &created
	}
	s.emit(ctx, queue.EventOrderPlaced, out)
	return out, nil
}

// GetOrder loads an order with its lines' products and coupon populated.
func (s *Service) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	var orders []model.Order
	err := withDetails(s.db.WithContext(ctx)).
		Where("id = ?", id).
		Limit(1).
		Find(&orders).Error
	if err != nil {
		return nil, storageErr("order lookup", err)
	}
	if len(orders) == 0 {
		return nil, errors.Wrapf(ErrOrderNotFound, "order %s", id)
	}
	return &orders[0], nil
}

// ChangeOrderStatus 无状态机约束，任意状态可直接覆盖。
func (s *Service) ChangeOrderStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, errors.Wrapf(ErrInvalidRequest, "unknown order status %q", status)
	}
	return s.overwrite(ctx, id, "status", status, queue.EventOrderStatusChanged)
}

// ChangePaymentStatus 同样是无条件覆盖。
func (s *Service) ChangePaymentStatus(ctx context.Context, id string, status model.PaymentStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, errors.Wrapf(ErrInvalidRequest, "unknown payment status %q", status)
	}
	return s.overwrite(ctx, id, "payment_status", status, queue.EventPaymentStatusChanged)
}

func (s *Service) overwrite(ctx context.Context, id, column string, value any, evt queue.EventType) (*model.Order, error) {
	res := s.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return nil, storageErr("order update "+column, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errors.Wrapf(ErrOrderNotFound, "order %s", id)
	}
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(log.Fields{"order_id": id, column: value}).Info("order updated")
	s.emit(ctx, evt, o)
	return o, nil
}

func (s *Service) emit(ctx context.Context, t queue.EventType, o *model.Order) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, queue.NewOrderEvent(t, o)); err != nil {
		s.log.WithError(err).WithFields(log.Fields{"order_id": o.ID, "type": t}).Error("emit order event")
	}
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Products.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Coupon")
}

// classify keeps domain errors as they are and marks everything else as a storage failure.
func classify(err error) error {
	for _, known := range []error{
		ErrInvalidRequest, ErrProductNotFound, ErrProductInactive, ErrInsufficientStock,
		ErrCouponNotFound, ErrCouponNotStarted, ErrCouponExpired, ErrOrderNotFound, ErrStorage,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return storageErr("order transaction", err)
}
