package routes

import (
	"net/http"

	"niftacore/internal/handlers"
	"niftacore/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Options configures the router's cross-cutting middleware.
type Options struct {
	AllowedOrigins []string
	RateLimit      middleware.RateLimiterConfig
}

// SetupRouter builds the gin engine with every route configured.
func SetupRouter(h *handlers.Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.Any("/health", handlers.Health)

	r.Use(corsMiddleware(opts.AllowedOrigins))
	r.Use(middleware.RateLimiterMiddleware(opts.RateLimit))

	SetupCollectionRoutes(r, h)
	SetupReferralRoutes(r, h)
	SetupBalanceRoutes(r, h)
	SetupStreamRoutes(r, h)

	return r
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowed[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, Origin, Cache-Control, X-Requested-With, Idempotency-Key")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
