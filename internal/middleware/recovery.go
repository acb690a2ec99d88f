package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/xyz-asif/lostfound/internal/pkg/logger"
	"github.com/xyz-asif/lostfound/internal/pkg/response"
	"github.com/xyz-asif/lostfound/internal/pkg/telemetry"
)

// Recovery turns panics into a generic 500, logging the stack and reporting
// the panic to Sentry.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", rec)
				}

				log.ErrorContext(c.Request.Context(), "panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"stack", string(debug.Stack()),
				)
				telemetry.CaptureError(c.Request.Context(), err, map[string]string{
					"route": c.FullPath(),
				})

				response.InternalServerError(c, "Internal server error", "INTERNAL_ERROR")
				c.Abort()
			}
		}()
		c.Next()
	}
}
