package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization, X-Request-ID"
	corsExpose  = "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After"
)

// CORS allows credentialed requests from a comma-separated list of
// origins. "*" echoes any origin back, since a literal wildcard is not
// valid alongside credentials.
func CORS(allowedOrigins string) gin.HandlerFunc {
	allowAny := false
	allowed := make(map[string]struct{})
	for _, o := range strings.Split(allowedOrigins, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			allowAny = true
		default:
			allowed[o] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		c.Header("Vary", "Origin, Access-Control-Request-Method, Access-Control-Request-Headers")

		if origin != "" {
			if _, ok := allowed[origin]; ok || allowAny {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Credentials", "true")
				c.Header("Access-Control-Expose-Headers", corsExpose)
			}
		}

		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}

		headers := c.GetHeader("Access-Control-Request-Headers")
		if strings.TrimSpace(headers) == "" {
			headers = corsHeaders
		}
		c.Header("Access-Control-Allow-Methods", corsMethods)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Access-Control-Max-Age", "600")
		c.AbortWithStatus(http.StatusNoContent)
	}
}
