package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	rediskey "storefront/pkg/redis"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// OrderRateLimit 下单限流：按 body 里的手机号计数，解析不到时按客户端 IP。
// Redis 不可用时放行。
func OrderRateLimit(rdb *rd.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rediskey.OrderLimitKey("ip", c.ClientIP())
		if mobile := extractMobile(c); mobile != "" {
			key = rediskey.OrderLimitKey("mobile", mobile)
		}

		ok, err := rediskey.AllowInWindow(c.Request.Context(), rdb, key, limit, window, time.Now())
		if err != nil {
			log.WithError(err).WithField("key", key).Warn("rate limit unavailable, letting request through")
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code": http.StatusTooManyRequests,
				"msg":  "too many order attempts, please retry later",
			})
			return
		}
		c.Next()
	}
}

// maxMobileBody 超过这个大小的 body 不解析手机号，按 IP 限流。
const maxMobileBody = 64 << 10

type replayBody struct {
	io.Reader
	io.Closer
}

// extractMobile 读取 body 中的 mobile，并把 body 原样放回去供后续 handler 使用。
func extractMobile(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	orig := c.Request.Body
	head, err := io.ReadAll(io.LimitReader(orig, maxMobileBody+1))
	c.Request.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(head), orig), Closer: orig}
	if err != nil || len(head) > maxMobileBody {
		return ""
	}

	var req struct {
		Mobile string `json:"mobile"`
	}
	if err := json.Unmarshal(head, &req); err != nil {
		return ""
	}
	return strings.TrimSpace(req.Mobile)
}
