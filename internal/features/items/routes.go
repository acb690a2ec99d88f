package items

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the item endpoints. Static segments are registered
// before the :id wildcard.
func RegisterRoutes(router *gin.RouterGroup, h *Handler, authMiddleware, optionalAuth gin.HandlerFunc) {
	items := router.Group("/items")
	{
		items.GET("", h.ListItems)
		items.GET("/my-items", authMiddleware, h.MyItems)
		items.PUT("/handover/:id", authMiddleware, h.HandoverItem)
		items.POST("", authMiddleware, h.CreateItem)
		items.GET("/:id", optionalAuth, h.GetItem)
		items.PUT("/:id", authMiddleware, h.UpdateItem)
		items.DELETE("/:id", authMiddleware, h.DeleteItem)
		items.GET("/:id/claims", authMiddleware, h.ItemClaims)
	}
}
