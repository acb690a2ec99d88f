package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/xyz-asif/lostfound/internal/features/auth"
	"github.com/xyz-asif/lostfound/internal/pkg/access"
)

func RegisterRoutes(router *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	admin := router.Group("/admin", authMiddleware, auth.RequireRoles(access.RoleAdmin))
	{
		admin.GET("/users", h.ListUsers)
		admin.PUT("/users/:id/role", h.UpdateUserRole)
		admin.PUT("/users/:id/status", h.UpdateUserStatus)
		admin.PUT("/items/:id/status", h.OverrideItemStatus)
		admin.GET("/stats", h.Stats)
		admin.GET("/notifications/dead-letters", h.DeadLetters)
	}
}
