package queue

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"storefront/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	rd "github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStream = "storefront:test:order_events"

type fakePublisher struct {
	mu     sync.Mutex
	got    []OrderEvent
	failOn int // 第 n 次调用返回错误，0 表示不失败
	calls  int
}

func (p *fakePublisher) Publish(_ context.Context, ev OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failOn > 0 && p.calls == p.failOn {
		return errors.New("kafka unavailable")
	}
	p.got = append(p.got, ev)
	return nil
}

func setupTestRedis(t *testing.T) *rd.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := rd.NewClient(&rd.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func sampleOrder(id, no string) *model.Order {
	return &model.Order{
		ID:            id,
		OrderNo:       no,
		Status:        model.OrderReceived,
		PaymentStatus: model.PaymentPending,
		FinalAmount:   decimal.RequireFromString("3670"),
	}
}

func TestOrderEventValidate(t *testing.T) {
	ev := NewOrderEvent(EventOrderPlaced, sampleOrder("o-1", "000001"))
	require.NoError(t, ev.Validate())
	assert.Equal(t, "3670", ev.FinalAmount)

	bad := ev
	bad.Type = "order.exploded"
	assert.Error(t, bad.Validate())

	bad = ev
	bad.OrderID = ""
	assert.Error(t, bad.Validate())
}

func TestParseOrderEventRejectsMalformed(t *testing.T) {
	values := NewOrderEvent(EventOrderPlaced, sampleOrder("o-1", "000001")).Values()

	parsed, err := parseOrderEvent(values)
	require.NoError(t, err)
	assert.Equal(t, "000001", parsed.OrderNo)

	delete(values, "order_no")
	_, err = parseOrderEvent(values)
	assert.Error(t, err)

	_, err = parseOrderEvent(map[string]any{"occurred_at": "yesterday"})
	assert.Error(t, err)
}

func TestRelayForwardsAndAcks(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	sink := NewStreamSink(client, testStream)
	pub := &fakePublisher{}
	relay := NewRelay(client, pub, testStream, "relay", "relay-1")

	// 先建组，确保之后写入的消息都能被组读到。
	n, err := relay.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, sink.Emit(ctx, NewOrderEvent(EventOrderPlaced, sampleOrder("o-1", "000001"))))
	require.NoError(t, sink.Emit(ctx, NewOrderEvent(EventOrderStatusChanged, sampleOrder("o-1", "000001"))))

	n, err = relay.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pub.got, 2)
	assert.Equal(t, EventOrderPlaced, pub.got[0].Type)
	assert.Equal(t, EventOrderStatusChanged, pub.got[1].Type)

	left, err := client.XLen(ctx, testStream).Result()
	require.NoError(t, err)
	assert.Zero(t, left, "acked messages are deleted")
}

func TestRelayRetriesAfterPublishFailure(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	pub := &fakePublisher{failOn: 1}
	relay := NewRelay(client, pub, testStream, "relay", "relay-1")
	_, err := relay.Drain(ctx)
	require.NoError(t, err)

	require.NoError(t, NewStreamSink(client, testStream).Emit(ctx, NewOrderEvent(EventOrderPlaced, sampleOrder("o-2", "000002"))))

	_, err = relay.Drain(ctx)
	require.Error(t, err)
	assert.Empty(t, pub.got)

	// 未 ACK 的消息留在 pending，下一轮重新投递。
	n, err := relay.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pub.got, 1)
	assert.Equal(t, "o-2", pub.got[0].OrderID)
}

func TestRelayDropsMalformedEntries(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	pub := &fakePublisher{}
	relay := NewRelay(client, pub, testStream, "relay", "relay-1")
	_, err := relay.Drain(ctx)
	require.NoError(t, err)

	require.NoError(t, client.XAdd(ctx, &rd.XAddArgs{Stream: testStream, Values: map[string]any{"junk": "1"}}).Err())

	n, err := relay.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, pub.got)

	left, err := client.XLen(ctx, testStream).Result()
	require.NoError(t, err)
	assert.Zero(t, left)
}

func TestStreamSinkRejectsInvalidEvent(t *testing.T) {
	client := setupTestRedis(t)
	err := NewStreamSink(client, testStream).Emit(context.Background(), OrderEvent{Type: EventOrderPlaced})
	assert.Error(t, err)
}

type fakeUpdater struct {
	calls map[string]model.PaymentStatus
	err   error
}

func (f *fakeUpdater) ChangePaymentStatus(_ context.Context, id string, status model.PaymentStatus) (*model.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.calls == nil {
		f.calls = map[string]model.PaymentStatus{}
	}
	f.calls[id] = status
	return &model.Order{ID: id, PaymentStatus: status}, nil
}

func TestPaymentConsumerHandle(t *testing.T) {
	up := &fakeUpdater{}
	c := &PaymentConsumer{updater: up, log: log.WithField("test", t.Name())}
	ctx := context.Background()

	msg := func(v any) kafka.Message {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return kafka.Message{Value: b}
	}

	require.NoError(t, c.handle(ctx, msg(PaymentUpdate{OrderID: "o-1", PaymentStatus: model.PaymentPaid})))
	assert.Equal(t, model.PaymentPaid, up.calls["o-1"])

	assert.Error(t, c.handle(ctx, kafka.Message{Value: []byte("{not json")}))
	assert.Error(t, c.handle(ctx, msg(PaymentUpdate{OrderID: "o-1", PaymentStatus: "Refunded"})))
	assert.Error(t, c.handle(ctx, msg(PaymentUpdate{PaymentStatus: model.PaymentPaid})))

	up.err = errors.New("order not found")
	assert.Error(t, c.handle(ctx, msg(PaymentUpdate{OrderID: "o-9", PaymentStatus: model.PaymentPaid})))
}
