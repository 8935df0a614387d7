package queue

import (
	"fmt"
	"strconv"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
)

// EventType 订单事件类型。
type EventType string

const (
	EventOrderPlaced          EventType = "order.placed"
	EventOrderStatusChanged   EventType = "order.status_changed"
	EventPaymentStatusChanged EventType = "order.payment_status_changed"
)

// OrderEvent 是写入 Redis Stream、再由 Relay 转发到 Kafka 的订单事件。
type OrderEvent struct {
	EventID       string    `json:"event_id"`
	Type          EventType `json:"type"`
	OrderID       string    `json:"order_id"`
	OrderNo       string    `json:"order_no"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	FinalAmount   string    `json:"final_amount"`
	OccurredAt    int64     `json:"occurred_at"` // unix ms
}

// NewOrderEvent snapshots the order fields consumers care about.
func NewOrderEvent(t EventType, o *model.Order) OrderEvent {
	return OrderEvent{
		EventID:       uuid.NewString(),
		Type:          t,
		OrderID:       o.ID,
		OrderNo:       o.OrderNo,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		FinalAmount:   o.FinalAmount.String(),
		OccurredAt:    time.Now().UnixMilli(),
	}
}

// Validate 做最小字段校验，防止 relay 转发脏消息。
func (e OrderEvent) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	switch e.Type {
	case EventOrderPlaced, EventOrderStatusChanged, EventPaymentStatusChanged:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.OrderID == "" {
		return fmt.Errorf("order_id is required")
	}
	if e.OrderNo == "" {
		return fmt.Errorf("order_no is required")
	}
	if e.OccurredAt <= 0 {
		return fmt.Errorf("occurred_at must be > 0")
	}
	return nil
}

// Values flattens the event into Redis stream fields.
func (e OrderEvent) Values() map[string]any {
	return map[string]any{
		"event_id":       e.EventID,
		"type":           string(e.Type),
		"order_id":       e.OrderID,
		"order_no":       e.OrderNo,
		"status":         e.Status,
		"payment_status": e.PaymentStatus,
		"final_amount":   e.FinalAmount,
		"occurred_at":    strconv.FormatInt(e.OccurredAt, 10),
	}
}

func parseOrderEvent(values map[string]any) (OrderEvent, error) {
	var (
		e   OrderEvent
		err error
	)
	fields := []struct {
		key string
		dst *string
	}{
		{"event_id", &e.EventID},
		{"order_id", &e.OrderID},
		{"order_no", &e.OrderNo},
		{"status", &e.Status},
		{"payment_status", &e.PaymentStatus},
		{"final_amount", &e.FinalAmount},
	}
	for _, f := range fields {
		if *f.dst, err = getStreamString(values, f.key); err != nil {
			return OrderEvent{}, err
		}
	}
	typ, err := getStreamString(values, "type")
	if err != nil {
		return OrderEvent{}, err
	}
	e.Type = EventType(typ)

	occurred, err := getStreamString(values, "occurred_at")
	if err != nil {
		return OrderEvent{}, err
	}
	if e.OccurredAt, err = strconv.ParseInt(occurred, 10, 64); err != nil {
		return OrderEvent{}, fmt.Errorf("invalid occurred_at %q", occurred)
	}

	if err := e.Validate(); err != nil {
		return OrderEvent{}, err
	}
	return e, nil
}

func getStreamString(values map[string]any, key string) (string, error) {
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing field %s", key)
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	default:
		return "", fmt.Errorf("unsupported field type %s: %T", key, v)
	}
}
