package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/xyz-asif/lostfound/internal/pkg/ratelimit"
)

// RegisterRoutes mounts the auth endpoints. Credential endpoints share the
// supplied limiter keyed by client IP.
func RegisterRoutes(router *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc, limiter *ratelimit.RateLimiter) {
	auth := router.Group("/auth")
	{
		limited := auth.Group("", ratelimit.Middleware(limiter))
		limited.POST("/register", h.Register)
		limited.POST("/login", h.Login)
		limited.POST("/google", h.GoogleLogin)

		auth.GET("/me", authMiddleware, h.Me)
		auth.PUT("/profile", authMiddleware, h.UpdateProfile)
		auth.POST("/devices", authMiddleware, h.RegisterDevice)
	}
}
