package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/xyz-asif/lostfound/internal/config"
	"github.com/xyz-asif/lostfound/internal/features/admin"
	"github.com/xyz-asif/lostfound/internal/features/analytics"
	"github.com/xyz-asif/lostfound/internal/features/auth"
	"github.com/xyz-asif/lostfound/internal/features/claims"
	"github.com/xyz-asif/lostfound/internal/features/items"
	"github.com/xyz-asif/lostfound/internal/features/media"
	"github.com/xyz-asif/lostfound/internal/features/notifications"
	"github.com/xyz-asif/lostfound/internal/pkg/cloudinary"
	"github.com/xyz-asif/lostfound/internal/pkg/jwt"
	"github.com/xyz-asif/lostfound/internal/pkg/logger"
	"github.com/xyz-asif/lostfound/internal/pkg/ratelimit"
)

// Dependencies are the shared services built in main. Cloudinary, Redis and
// Verifier are optional and may be nil.
type Dependencies struct {
	Config        *config.Config
	Users         *auth.Repository
	Items         *items.Repository
	Notifications *notifications.Repository
	Analytics     *analytics.Repository
	Notifier      notifications.Notifier
	Verifier      auth.TokenVerifier
	Cloudinary    *cloudinary.Service
	Redis         *redis.Client
	AuthLimiter   *ratelimit.RateLimiter
	ClaimLimiter  *ratelimit.RateLimiter
	Log           logger.Logger
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	api := router.Group("/api/v1")

	jwtCfg := jwt.DefaultConfig(deps.Config.JWTSecret, deps.Config.JWTExpiry())
	authMiddleware := auth.NewAuthMiddleware(deps.Users, jwtCfg)
	optionalAuth := auth.NewOptionalAuthMiddleware(deps.Users, jwtCfg)

	// Typed nils must not leak into the optional interfaces below.
	var assets items.AssetRemover
	var uploader media.Uploader
	if deps.Cloudinary != nil {
		assets = deps.Cloudinary
		uploader = deps.Cloudinary
	}
	var deadLetters redis.Cmdable
	if deps.Redis != nil {
		deadLetters = deps.Redis
	}

	authHandler := auth.NewHandler(deps.Users, deps.Verifier, jwtCfg, deps.Log)
	auth.RegisterRoutes(api, authHandler, authMiddleware, deps.AuthLimiter)

	itemHandler := items.NewHandler(deps.Items, deps.Users, deps.Notifier, assets, deps.Config.ItemExpiry(), deps.Log)
	items.RegisterRoutes(api, itemHandler, authMiddleware, optionalAuth)

	claimService := claims.NewService(deps.Items, deps.Notifier, deps.Users, deps.Log)
	claims.RegisterRoutes(api, claims.NewHandler(claimService, deps.Users, deps.Log), authMiddleware, deps.ClaimLimiter)

	notificationHandler := notifications.NewHandler(deps.Notifications, deps.Users, deps.Items, deps.Log)
	notifications.RegisterRoutes(api, notificationHandler, authMiddleware)

	analyticsService := analytics.NewService(deps.Analytics)
	analytics.RegisterRoutes(api, analytics.NewHandler(analyticsService, deps.Items, deps.Users, deps.Log), authMiddleware)

	adminHandler := admin.NewHandler(deps.Users, deps.Items, analyticsService, deadLetters, deps.Log)
	admin.RegisterRoutes(api, adminHandler, authMiddleware)

	media.RegisterRoutes(api, media.NewHandler(uploader, deps.Log), authMiddleware)
}

// Limiters builds the request limiters used by SetupRoutes.
func Limiters() (authLimiter, claimLimiter *ratelimit.RateLimiter) {
	return ratelimit.New(10, time.Minute), ratelimit.New(5, 10*time.Minute)
}
