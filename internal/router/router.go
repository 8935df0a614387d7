package router

import (
	"net/http"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/order"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
)

// Deps 路由需要的全部依赖。Redis 为 nil 时不启用下单限流。
type Deps struct {
	Orders  *order.Service
	Catalog *catalog.Service
	Redis   *rd.Client
	Config  config.AppConfig
}

// Setup 注册全部 HTTP 路由。
func Setup(r *gin.Engine, d Deps) {
	r.Use(middleware.RequestID(), middleware.AccessLog())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	admin := middleware.RequireRole(middleware.RoleAdmin)
	api := r.Group("/api")

	// Categories
	api.GET("/categories", listCategories(d.Catalog))
	api.POST("/categories", admin, createCategory(d.Catalog))
	api.PATCH("/categories/:id", admin, updateCategory(d.Catalog))
	api.DELETE("/categories/:id", admin, deleteCategory(d.Catalog))

	// Products
	api.GET("/products", listProducts(d.Catalog))
	api.GET("/products/:id", getProduct(d.Catalog))
	api.POST("/products", admin, createProduct(d.Catalog))
	api.PATCH("/products/:id", admin, updateProduct(d.Catalog))
	api.DELETE("/products/:id", admin, deleteProduct(d.Catalog))

	// Flash sales & coupons
	api.POST("/flash-sales", admin, createFlashSale(d.Catalog))
	api.DELETE("/flash-sales/:id", admin, deleteFlashSale(d.Catalog))
	api.GET("/coupons", admin, listCoupons(d.Catalog))
	api.POST("/coupons", admin, createCoupon(d.Catalog))

	// Orders
	place := []gin.HandlerFunc{}
	if d.Redis != nil {
		place = append(place, middleware.OrderRateLimit(d.Redis, d.Config.OrderRateLimit, d.Config.OrderRateWindow))
	}
	place = append(place, createOrder(d.Orders))
	api.POST("/orders", place...)
	api.GET("/orders", middleware.RequireRole(middleware.RoleAdmin, middleware.RoleDelivery), listOrders(d.Orders))
	api.GET("/orders/:id",
		middleware.RequireRole(middleware.RoleUser, middleware.RoleAdmin, middleware.RoleDelivery),
		getOrder(d.Orders))
	api.PATCH("/orders/:id/status", admin, changeOrderStatus(d.Orders))
	api.PATCH("/orders/:id/payment-status",
		middleware.RequireRole(middleware.RoleDelivery, middleware.RoleAdmin),
		changePaymentStatus(d.Orders))
}
