package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newLimitedEngine(t *testing.T, limit int) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := rd.NewClient(&rd.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.POST("/orders", OrderRateLimit(rdb, limit, time.Minute), func(c *gin.Context) {
		var body struct {
			Mobile string `json:"mobile"`
		}
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusOK, gin.H{"mobile": body.Mobile})
	})
	return r, mr
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestOrderRateLimitByMobile(t *testing.T) {
	r, _ := newLimitedEngine(t, 2)

	for i := 0; i < 2; i++ {
		w := post(r, `{"mobile":"01711111111"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "01711111111", "body must survive the limiter")
	}
	assert.Equal(t, http.StatusTooManyRequests, post(r, `{"mobile":"01711111111"}`).Code)

	// 其它手机号不受影响。
	assert.Equal(t, http.StatusOK, post(r, `{"mobile":"01822222222"}`).Code)
}

func TestOrderRateLimitFallsBackToIP(t *testing.T) {
	r, mr := newLimitedEngine(t, 1)

	w := post(r, `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusTooManyRequests, post(r, `{}`).Code)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], ":ip:")
}

func TestOrderRateLimitOversizedBodyUsesIP(t *testing.T) {
	r, mr := newLimitedEngine(t, 5)

	body := `{"mobile":"01733333333","note":"` + strings.Repeat("x", maxMobileBody) + `"}`
	w := post(r, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "01733333333", "handler must still see the whole body")

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], ":ip:")
}

func TestOrderRateLimitFailsOpen(t *testing.T) {
	r, mr := newLimitedEngine(t, 1)
	mr.Close()

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, post(r, `{"mobile":"01711111111"}`).Code)
	}
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.GET("/admin", RequireRole(RoleAdmin), func(c *gin.Context) {
		a, ok := ActorFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, a.ID)
	})

	cases := []struct {
		name   string
		id     string
		role   string
		status int
	}{
		{"anonymous", "", "", http.StatusUnauthorized},
		{"missing role", "u1", "", http.StatusUnauthorized},
		{"wrong role", "u1", "delivery", http.StatusForbidden},
		{"admin", "u1", "Admin", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.id != "" {
				req.Header.Set(HeaderUserID, tc.id)
			}
			if tc.role != "" {
				req.Header.Set(HeaderUserRole, tc.role)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), AccessLog())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(HeaderRequestID)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "abc")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(HeaderRequestID))
}
