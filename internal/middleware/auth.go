package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// 身份由前置网关校验后通过请求头透传。
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleDelivery Role = "delivery"
	RoleUser     Role = "user"
)

// Actor 当前请求的调用方。
type Actor struct {
	ID   string
	Role Role
}

const actorKey = "actor"

// RequireRole 要求调用方带身份且角色在允许列表中：缺身份 401，角色不符 403。
func RequireRole(roles ...Role) gin.HandlerFunc {
	allowed := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		role := Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))))
		if id == "" || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "msg": "unauthorized"})
			return
		}
		if _, ok := allowed[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "msg": "forbidden"})
			return
		}
		c.Set(actorKey, Actor{ID: id, Role: role})
		c.Next()
	}
}

// ActorFrom returns the actor stored by RequireRole.
func ActorFrom(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return Actor{}, false
	}
	a, ok := v.(Actor)
	return a, ok
}
