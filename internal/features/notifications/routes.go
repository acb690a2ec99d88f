package notifications

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	notifications := router.Group("/notifications")
	notifications.Use(authMiddleware)
	{
		notifications.GET("", h.ListNotifications)
		notifications.GET("/unread-count", h.GetUnreadCount)
		notifications.PUT("/mark-all-read", h.MarkAllAsRead)
		notifications.PUT("/:id/read", h.MarkAsRead)
		notifications.DELETE("/:id", h.DeleteNotification)
	}
}
