package redis

import (
	"context"
	"fmt"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// luaSlidingWindow：滑动窗口计数（原子操作）
// KEYS[1]=限流key，ARGV[1]=当前毫秒时间戳，ARGV[2]=窗口开始毫秒，ARGV[3]=key 过期秒数
// ARGV[4]=成员，ARGV[5]=上限。返回窗口内请求数，超限返回 -1。
const luaSlidingWindow = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])
local member = ARGV[4]
local limit = tonumber(ARGV[5])

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, now, member)
  redis.call('EXPIRE', key, ttl)
  return count + 1
end
return -1
`

// AllowInWindow 记录一次请求。窗口内已满 limit 次时返回 false。
func AllowInWindow(ctx context.Context, rdb *rd.Client, key string, limit int, window time.Duration, now time.Time) (bool, error) {
	nowMs := now.UnixMilli()
	windowStart := nowMs - window.Milliseconds()
	ttl := int64(window / time.Second)
	if ttl < 1 {
		ttl = 1
	}
	member := fmt.Sprintf("%d-%d", nowMs, now.UnixNano())

	n, err := rdb.Eval(ctx, luaSlidingWindow, []string{key}, nowMs, windowStart, ttl, member, limit).Int()
	if err != nil {
		return false, err
	}
	return n >= 0, nil
}
