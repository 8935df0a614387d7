package queue

import (
	"context"
	"encoding/json"
	"strings"

	"storefront/internal/model"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// PaymentUpdate 是支付网关回调经 Kafka 投递过来的消息体。
type PaymentUpdate struct {
	OrderID       string              `json:"order_id"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
}

func (u PaymentUpdate) Validate() error {
	if strings.TrimSpace(u.OrderID) == "" {
		return errors.New("order_id is required")
	}
	if !u.PaymentStatus.Valid() {
		return errors.Errorf("unknown payment_status %q", u.PaymentStatus)
	}
	return nil
}

// PaymentUpdater 由订单服务实现。
type PaymentUpdater interface {
	ChangePaymentStatus(ctx context.Context, id string, status model.PaymentStatus) (*model.Order, error)
}

// PaymentConsumer 消费支付状态主题并回写订单。
type PaymentConsumer struct {
	r       *kafka.Reader
	updater PaymentUpdater
	log     *log.Entry
}

func NewPaymentConsumer(brokers []string, topic, groupID string, updater PaymentUpdater) *PaymentConsumer {
	return &PaymentConsumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		updater: updater,
		log:     log.WithFields(log.Fields{"component": "payment_consumer", "topic": topic}),
	}
}

func (c *PaymentConsumer) Close() error { return c.r.Close() }

// Run 阻塞消费直到 ctx 取消。处理失败的消息记录日志后跳过，不阻塞分区。
func (c *PaymentConsumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.log.WithError(err).Error("read message")
			}
			return
		}
		if err := c.handle(ctx, m); err != nil {
			c.log.WithError(err).WithFields(log.Fields{
				"partition": m.Partition,
				"offset":    m.Offset,
			}).Warn("skip payment update")
		}
	}
}

func (c *PaymentConsumer) handle(ctx context.Context, m kafka.Message) error {
	var u PaymentUpdate
	if err := json.Unmarshal(m.Value, &u); err != nil {
		return errors.Wrap(err, "decode payment update")
	}
	if err := u.Validate(); err != nil {
		return err
	}
	if _, err := c.updater.ChangePaymentStatus(ctx, u.OrderID, u.PaymentStatus); err != nil {
		return errors.Wrapf(err, "update order %s", u.OrderID)
	}
	c.log.WithFields(log.Fields{"order_id": u.OrderID, "payment_status": u.PaymentStatus}).Info("payment status applied")
	return nil
}
