package router

import (
	"net/http"
	"strconv"

	"storefront/internal/catalog"
	"storefront/internal/middleware"
	"storefront/internal/order"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const storageFailureMsg = "internal storage failure"

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"code": 0, "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"code": status, "msg": msg})
}

// writeError 将领域错误映射为 HTTP 状态码，存储类错误不暴露细节。
func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		log.WithError(err).WithField("request_id", c.GetString(middleware.HeaderRequestID)).Error("request failed")
		fail(c, status, storageFailureMsg)
		return
	}
	fail(c, status, err.Error())
}

func statusOf(err error) int {
	switch {
	case order.IsNotFound(err), errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrInsufficientStock),
		errors.Is(err, catalog.ErrDuplicate),
		errors.Is(err, catalog.ErrInUse):
		return http.StatusConflict
	case errors.Is(err, order.ErrInvalidRequest),
		errors.Is(err, order.ErrProductInactive),
		errors.Is(err, order.ErrCouponNotStarted),
		errors.Is(err, order.ErrCouponExpired),
		errors.Is(err, catalog.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}
