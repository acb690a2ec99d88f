package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/xyz-asif/lostfound/internal/pkg/logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestID propagates or assigns a request id and stores it on the request
// context so every log record for the request carries it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}

		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))

		c.Next()
	}
}
