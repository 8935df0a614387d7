package router

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/order"

	"github.com/gin-gonic/gin"
)

// createOrder 下单入口。字段校验、库存、优惠券、计价与订单号都在服务层的同一事务里完成。
func createOrder(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.PlaceOrder
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		o, err := svc.CreateOrder(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}
		created(c, o)
	}
}

func listOrders(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := order.OrderQuery{
			Page:          queryInt(c, "page"),
			Limit:         queryInt(c, "limit"),
			Status:        model.OrderStatus(c.Query("status")),
			PaymentStatus: model.PaymentStatus(c.Query("payment_status")),
			Search:        c.Query("search"),
		}
		if q.Status != "" && !q.Status.Valid() {
			fail(c, http.StatusBadRequest, "unknown order status")
			return
		}
		if q.PaymentStatus != "" && !q.PaymentStatus.Valid() {
			fail(c, http.StatusBadRequest, "unknown payment status")
			return
		}
		list, meta, err := svc.ListOrders(c.Request.Context(), q)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": list, "meta": meta})
	}
}

func getOrder(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := svc.GetOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		ok(c, o)
	}
}

func changeOrderStatus(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Status model.OrderStatus `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		o, err := svc.ChangeOrderStatus(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			writeError(c, err)
			return
		}
		ok(c, o)
	}
}

func changePaymentStatus(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PaymentStatus model.PaymentStatus `json:"payment_status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		o, err := svc.ChangePaymentStatus(c.Request.Context(), c.Param("id"), req.PaymentStatus)
		if err != nil {
			writeError(c, err)
			return
		}
		ok(c, o)
	}
}
