package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xyz-asif/lostfound/internal/pkg/response"
)

// UserIDKey is the gin context key the auth middleware stores the caller id under.
const UserIDKey = "userID"

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c *gin.Context) string

func ByIP(c *gin.Context) string {
	return c.ClientIP()
}

// ByUser keys requests on the authenticated user id, falling back to IP.
// It must run after the auth middleware.
func ByUser(c *gin.Context) string {
	if id := c.GetString(UserIDKey); id != "" {
		return "user:" + id
	}
	return c.ClientIP()
}

// Middleware limits requests per client IP.
func Middleware(limiter *RateLimiter) gin.HandlerFunc {
	return CustomKeyMiddleware(limiter, ByIP)
}

func CustomKeyMiddleware(limiter *RateLimiter, keyFunc KeyFunc) gin.HandlerFunc {
	limit := strconv.Itoa(limiter.Limit())

	return func(c *gin.Context) {
		key := keyFunc(c)
		if key == "" {
			key = c.ClientIP()
		}

		d := limiter.Take(key)
		reset := d.ResetAt.UTC().Format(time.RFC3339)
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", reset)

		if !d.Allowed {
			retryAfter := strconv.Itoa(int(d.RetryAfter(limiter.now()).Seconds()))
			c.Header("Retry-After", retryAfter)

			response.ErrorWithData(c, http.StatusTooManyRequests, "Rate limit exceeded. Try again later.", "RATE_LIMITED", gin.H{
				"retry_after": retryAfter + "s",
				"reset_time":  reset,
				"limit":       limiter.Limit(),
				"remaining":   0,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
