package queue

import (
	"context"

	rediskey "storefront/pkg/redis"

	"github.com/pkg/errors"
	rd "github.com/redis/go-redis/v9"
)

// StreamSink 把订单事件写入 Redis Stream，由 Relay 异步投递到 Kafka。
type StreamSink struct {
	rdb    *rd.Client
	stream string
}

func NewStreamSink(rdb *rd.Client, stream string) *StreamSink {
	return &StreamSink{rdb: rdb, stream: stream}
}

func (s *StreamSink) Emit(ctx context.Context, ev OrderEvent) error {
	if err := ev.Validate(); err != nil {
		return errors.Wrap(err, "order event")
	}
	if _, err := rediskey.AppendEvent(ctx, s.rdb, s.stream, ev.Values()); err != nil {
		return errors.Wrapf(err, "xadd %s", s.stream)
	}
	return nil
}
