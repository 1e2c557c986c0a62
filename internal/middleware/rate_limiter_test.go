package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedRouter(cfg RateLimiterConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiterMiddleware(cfg))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func hit(r http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterRejectsAfterBurst(t *testing.T) {
	r := newLimitedRouter(RateLimiterConfig{RequestsPerSecond: 0.001, Burst: 2})

	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.1").Code)

	w := hit(r, "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "retry_after")

	// other clients keep their own bucket
	assert.Equal(t, http.StatusOK, hit(r, "10.0.0.2").Code)
}

func TestRateLimiterDisabled(t *testing.T) {
	r := newLimitedRouter(RateLimiterConfig{})
	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, hit(r, "10.0.0.1").Code)
	}
}

func TestLimiterMapEvictsIdleClients(t *testing.T) {
	lm := newLimiterMap(RateLimiterConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	lm.get("a", start)
	lm.get("b", start.Add(50*time.Second))

	assert.Equal(t, 1, lm.evict(start.Add(90*time.Second)))
	assert.Len(t, lm.limiters, 1)
	_, ok := lm.limiters["b"]
	assert.True(t, ok)
}
