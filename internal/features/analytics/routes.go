package analytics

import (
	"github.com/gin-gonic/gin"

	"github.com/xyz-asif/lostfound/internal/features/auth"
	"github.com/xyz-asif/lostfound/internal/pkg/access"
)

func RegisterRoutes(router *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	staffOnly := auth.RequireRoles(access.RoleStaff, access.RoleAdmin)

	router.GET("/analytics", authMiddleware, staffOnly, h.Analytics)

	dashboard := router.Group("/dashboard", authMiddleware)
	{
		dashboard.GET("/stats", h.UserDashboard)
		dashboard.GET("/recent-items", h.RecentItems)
	}

	staff := router.Group("/staff/dashboard", authMiddleware, staffOnly)
	{
		staff.GET("/stats", h.StaffStats)
		staff.GET("/items", h.StaffItems)
		staff.GET("/pending-claims", h.PendingClaims)
	}
}
