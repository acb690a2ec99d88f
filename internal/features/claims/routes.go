package claims

import (
	"github.com/gin-gonic/gin"

	"github.com/xyz-asif/lostfound/internal/pkg/ratelimit"
)

// RegisterRoutes mounts the claim endpoints. Claim submission is rate
// limited per user.
func RegisterRoutes(router *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc, submitLimiter *ratelimit.RateLimiter) {
	itemClaims := router.Group("/items/:id", authMiddleware)
	{
		itemClaims.POST("/claim", ratelimit.CustomKeyMiddleware(submitLimiter, ratelimit.ByUser), h.SubmitClaim)
		itemClaims.PUT("/claims/:claimId", h.UpdateClaimStatus)
		itemClaims.PUT("/return", h.MarkReturned)
	}

	router.GET("/claims/my-claims", authMiddleware, h.MyClaims)
}
