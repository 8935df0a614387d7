package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	rd "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *rd.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := rd.NewClient(&rd.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "storefront:rate_limit:order:mobile:01712345678", OrderLimitKey("mobile", "01712345678"))
}

func TestAllowInWindow(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	key := OrderLimitKey("mobile", "01700000000")
	base := time.Now()

	for i := 0; i < 3; i++ {
		ok, err := AllowInWindow(ctx, client, key, 3, time.Minute, base.Add(time.Duration(i)*time.Millisecond))
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := AllowInWindow(ctx, client, key, 3, time.Minute, base.Add(10*time.Millisecond))
	require.NoError(t, err)
	assert.False(t, ok)

	// 窗口滑过之后恢复。
	ok, err = AllowInWindow(ctx, client, key, 3, time.Minute, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowInWindowSurfacesRedisErrors(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Close()

	_, err := AllowInWindow(context.Background(), client, "k", 1, time.Second, time.Now())
	assert.Error(t, err)
}

func TestStreamHelpers(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	stream := "storefront:stream:test"

	require.NoError(t, EnsureGroup(ctx, client, stream, "g"))
	require.NoError(t, EnsureGroup(ctx, client, stream, "g"), "existing group is fine")

	id, err := AppendEvent(ctx, client, stream, map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	res, err := client.XReadGroup(ctx, &rd.XReadGroupArgs{
		Group: "g", Consumer: "c", Streams: []string{stream, ">"}, Count: 10, Block: -1,
	}).Result()
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Len(t, res[0].Messages, 1)
	assert.Equal(t, "v", res[0].Messages[0].Values["k"])

	require.NoError(t, AckAndDelete(ctx, client, stream, "g", id))
	n, err := client.XLen(ctx, stream).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
