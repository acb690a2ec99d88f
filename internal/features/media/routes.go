package media

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	media := router.Group("/media", authMiddleware)
	{
		media.POST("/images", h.UploadImages)
		media.POST("/documents", h.UploadDocuments)
	}
}
