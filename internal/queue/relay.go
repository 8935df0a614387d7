package queue

import (
	"context"
	"time"

	rediskey "storefront/pkg/redis"

	"github.com/pkg/errors"
	rd "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Publisher 是 relay 的下游，生产环境为 *Producer。
type Publisher interface {
	Publish(ctx context.Context, ev OrderEvent) error
}

// noBlock 让 XREADGROUP 不带 BLOCK 参数，立即返回。
const noBlock = -1

// Relay 将 Redis Stream 事件异步转发到 Kafka。
// 发布成功后才 ACK，失败则保留消息等待重试。
type Relay struct {
	rdb *rd.Client
	pub Publisher
	log *log.Entry

	stream   string
	group    string
	consumer string
}

func NewRelay(rdb *rd.Client, pub Publisher, stream, group, consumer string) *Relay {
	return &Relay{
		rdb:      rdb,
		pub:      pub,
		log:      log.WithFields(log.Fields{"component": "relay", "stream": stream}),
		stream:   stream,
		group:    group,
		consumer: consumer,
	}
}

func (r *Relay) Run(ctx context.Context) error {
	if err := rediskey.EnsureGroup(ctx, r.rdb, r.stream, r.group); err != nil {
		return errors.Wrap(err, "relay ensure group")
	}
	r.log.Info("relay started")

	for {
		if ctx.Err() != nil {
			return nil
		}
		_, n, err := r.pump(ctx, 2*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.log.WithError(err).Warn("relay pump")
			time.Sleep(300 * time.Millisecond)
			continue
		}
		if n > 0 {
			r.log.WithField("count", n).Debug("relayed events")
		}
	}
}

// Drain forwards everything currently in the stream without blocking and
// reports how many events were published.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	if err := rediskey.EnsureGroup(ctx, r.rdb, r.stream, r.group); err != nil {
		return 0, errors.Wrap(err, "relay ensure group")
	}
	total := 0
	for {
		handled, sent, err := r.pump(ctx, noBlock)
		total += sent
		if err != nil || handled == 0 {
			return total, err
		}
	}
}

// pump 先处理本消费者遗留的 pending，再读新消息。
// 返回本轮处理（含丢弃）的条数与成功发布的条数。
func (r *Relay) pump(ctx context.Context, block time.Duration) (handled, sent int, err error) {
	msgs, err := r.readGroup(ctx, "0", noBlock)
	if err != nil {
		return 0, 0, errors.Wrap(err, "read pending")
	}
	if len(msgs) == 0 {
		if msgs, err = r.readGroup(ctx, ">", block); err != nil {
			return 0, 0, errors.Wrap(err, "read new")
		}
	}

	for _, xm := range msgs {
		published, err := r.processOne(ctx, xm)
		if err != nil {
			// 未 ACK 的消息留在 pending，下一轮重试。
			return handled, sent, errors.Wrapf(err, "message %s", xm.ID)
		}
		handled++
		if published {
			sent++
		}
	}
	return handled, sent, nil
}

func (r *Relay) readGroup(ctx context.Context, streamID string, block time.Duration) ([]rd.XMessage, error) {
	streams, err := r.rdb.XReadGroup(ctx, &rd.XReadGroupArgs{
		Group:    r.group,
		Consumer: r.consumer,
		Streams:  []string{r.stream, streamID},
		Count:    16,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out []rd.XMessage
	for _, s := range streams {
		out = append(out, s.Messages...)
	}
	return out, nil
}

func (r *Relay) processOne(ctx context.Context, xm rd.XMessage) (bool, error) {
	ev, err := parseOrderEvent(xm.Values)
	if err != nil {
		// 脏消息直接丢弃，避免阻塞队列。
		r.log.WithError(err).WithField("message_id", xm.ID).Warn("drop malformed event")
		return false, rediskey.AckAndDelete(ctx, r.rdb, r.stream, r.group, xm.ID)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.pub.Publish(pubCtx, ev); err != nil {
		return false, err
	}
	return true, rediskey.AckAndDelete(ctx, r.rdb, r.stream, r.group, xm.ID)
}
