package router

import (
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/catalog"

	"github.com/gin-gonic/gin"
)

func listCategories(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tree, err := svc.ListCategories(c.Request.Context(), c.Query("search"))
		if err != nil {
			writeError(c, err)
			return
		}
		ok(c, tree)
	}
}

func createCategory(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req catalog.NewCategory
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		cat, err := svc.CreateCategory(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}
		created(c, cat)
	}
}

func updateCategory(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req catalog.CategoryPatch
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		cat, err := svc.UpdateCategory(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			writeError(c, err)
			return
		}
		ok(c, cat)
	}
}

func deleteCategory(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "deleted"})
	}
}

// listProducts 商品列表，支持 page/limit/search/in_stock/categories（逗号分隔的分类 ID）。
func listProducts(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := catalog.ProductQuery{
			Page:   queryInt(c, "page"),
			Limit:  queryInt(c, "limit"),
			Search: c.Query("search"),
		}
		for _, id := range strings.Split(c.Query("categories"), ",") {
			if id = strings.TrimSpace(id); id != "" {
				q.Categories = append(q.Categories, id)
			}
		}
		if raw := c.Query("in_stock"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				fail(c, http.StatusBadRequest, "in_stock must be true or false")
				return
			}
			q.InStock = &v
		}
		list, meta, err := svc.ListProducts(c.Request.Context(), q)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": list, "meta": meta})
	}
}

func getProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.GetProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		ok(c, p)
	}
}

func createProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req catalog.NewProduct
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		p, err := svc.CreateProduct(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}
		created(c, p)
	}
}

func updateProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req catalog.ProductPatch
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		p, err := svc.UpdateProduct(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			writeError(c, err)
			return
		}
		ok(c, p)
	}
}

func deleteProduct(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "deleted"})
	}
}

// createFlashSale 时间使用 RFC3339。
func createFlashSale(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req catalog.NewFlashSale
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		sale, err := svc.CreateFlashSale(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}
		created(c, sale)
	}
}

func deleteFlashSale(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DeleteFlashSale(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "deleted"})
	}
}

func listCoupons(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.ListCoupons(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		ok(c, list)
	}
}

func createCoupon(svc *catalog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req catalog.NewCoupon
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		coupon, err := svc.CreateCoupon(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}
		created(c, coupon)
	}
}
