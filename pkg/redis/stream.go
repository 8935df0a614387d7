package redis

import (
	"context"
	"strings"

	rd "github.com/redis/go-redis/v9"
)

// streamMaxLen 近似裁剪上限，relay 长时间不可用时防止无限增长。
const streamMaxLen = 100000

// AppendEvent 写入一条事件到 stream，返回消息 ID。
func AppendEvent(ctx context.Context, rdb *rd.Client, stream string, values map[string]any) (string, error) {
	return rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: values,
	}).Result()
}

// EnsureGroup 创建消费组，已存在视为成功。
func EnsureGroup(ctx context.Context, rdb *rd.Client, stream, group string) error {
	err := rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err == nil || strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

// AckAndDelete 确认并删除已处理消息。
func AckAndDelete(ctx context.Context, rdb *rd.Client, stream, group, id string) error {
	pipe := rdb.TxPipeline()
	pipe.XAck(ctx, stream, group, id)
	pipe.XDel(ctx, stream, id)
	_, err := pipe.Exec(ctx)
	return err
}
