package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterConfig configures per-client request limits.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
	// IdleTTL is how long an unused client limiter is kept. Zero means 10 minutes.
	IdleTTL time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterMap stores one token bucket per client IP.
type limiterMap struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	config   RateLimiterConfig
}

func newLimiterMap(config RateLimiterConfig) *limiterMap {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	return &limiterMap{
		limiters: make(map[string]*clientLimiter),
		config:   config,
	}
}

func (lm *limiterMap) get(ip string, now time.Time) *rate.Limiter {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	cl, ok := lm.limiters[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(lm.config.RequestsPerSecond), lm.config.Burst)}
		lm.limiters[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// evict drops limiters idle for longer than IdleTTL and returns how many were removed.
func (lm *limiterMap) evict(now time.Time) int {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	removed := 0
	for ip, cl := range lm.limiters {
		if now.Sub(cl.lastSeen) > lm.config.IdleTTL {
			delete(lm.limiters, ip)
			removed++
		}
	}
	return removed
}

func (lm *limiterMap) cleanup() {
	ticker := time.NewTicker(lm.config.IdleTTL)
	defer ticker.Stop()
	for now := range ticker.C {
		lm.evict(now)
	}
}

// RateLimiterMiddleware rejects clients that exceed their token bucket with 429.
// A non-positive RequestsPerSecond disables limiting.
func RateLimiterMiddleware(config RateLimiterConfig) gin.HandlerFunc {
	if config.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	lm := newLimiterMap(config)
	go lm.cleanup()

	return func(c *gin.Context) {
		now := time.Now()
		limiter := lm.get(c.ClientIP(), now)

		if !limiter.AllowN(now, 1) {
			reservation := limiter.ReserveN(now, 1)
			retryAfter := reservation.DelayFrom(now).Seconds()
			reservation.CancelAt(now)

			c.Header("Retry-After", formatRetryAfter(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded. Please try again later.",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}

func formatRetryAfter(seconds float64) string {
	return strconv.Itoa(int(math.Ceil(seconds)))
}
