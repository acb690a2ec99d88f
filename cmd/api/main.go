// ================== cmd/api/main.go ==================
//
// @title Lost & Found API
// @version 1.0
// @description Lost and found item reporting, claims review and branch analytics
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer <token>"
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/xyz-asif/lostfound/docs"
	"github.com/xyz-asif/lostfound/internal/config"
	"github.com/xyz-asif/lostfound/internal/database"
	"github.com/xyz-asif/lostfound/internal/features/analytics"
	"github.com/xyz-asif/lostfound/internal/features/auth"
	"github.com/xyz-asif/lostfound/internal/features/items"
	"github.com/xyz-asif/lostfound/internal/features/notifications"
	"github.com/xyz-asif/lostfound/internal/middleware"
	"github.com/xyz-asif/lostfound/internal/pkg/cloudinary"
	"github.com/xyz-asif/lostfound/internal/pkg/logger"
	"github.com/xyz-asif/lostfound/internal/pkg/response"
	"github.com/xyz-asif/lostfound/internal/pkg/telemetry"
	"github.com/xyz-asif/lostfound/internal/pkg/validator"
	"github.com/xyz-asif/lostfound/internal/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(err)
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel).With("service", cfg.ServiceName, "env", cfg.AppEnv)
	logger.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		telemetry.SentryFlush()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	if err := telemetry.SetupSentry(cfg.SentryDSN, cfg.AppEnv, cfg.ServiceVersion); err != nil {
		log.Warn("sentry disabled", "error", err)
	}
	defer telemetry.SentryFlush()

	if err := validator.Setup(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Disconnect(shutdownCtx); err != nil {
			log.Error("mongo disconnect failed", "error", err)
		}
	}()

	usersRepo, err := auth.NewRepository(ctx, db.Database)
	if err != nil {
		return err
	}
	itemsRepo, err := items.NewRepository(ctx, db.Database)
	if err != nil {
		return err
	}
	notificationsRepo, err := notifications.NewRepository(ctx, db.Database)
	if err != nil {
		return err
	}
	analyticsRepo := analytics.NewRepository(db.Database)

	var redisClient *redis.Client
	deadLetters := notifications.DeadLetterSink(notifications.NewLogSink(log))
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()
		deadLetters = notifications.NewRedisSink(redisClient, cfg.DeadLetterMax, deadLetters, log)
	}

	dispatcherOpts := []notifications.Option{notifications.WithDeadLetterSink(deadLetters)}
	var verifier auth.TokenVerifier
	firebaseApp, err := auth.InitFirebase(ctx, cfg.FirebaseServiceAccountPath)
	if err != nil {
		return err
	}
	if firebaseApp != nil {
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			return fmt.Errorf("firebase auth client: %w", err)
		}
		verifier = authClient

		messagingClient, err := firebaseApp.Messaging(ctx)
		if err != nil {
			return fmt.Errorf("firebase messaging client: %w", err)
		}
		dispatcherOpts = append(dispatcherOpts,
			notifications.WithPusher(notifications.NewFCMPusher(messagingClient, usersRepo, log)))
	} else {
		log.Info("firebase disabled, google sign-in and push are off")
	}

	var uploads *cloudinary.Service
	if cfg.CloudinaryEnabled() {
		uploads, err = cloudinary.NewService(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryUploadFolder)
		if err != nil {
			return err
		}
	} else {
		log.Info("cloudinary disabled, uploads are off")
	}

	dispatcher := notifications.NewDispatcher(notificationsRepo, log, int64(cfg.NotificationBuffer), dispatcherOpts...)
	// Close below ends the subscription once the server has drained.
	if err := dispatcher.Start(context.Background()); err != nil {
		return err
	}
	defer func() {
		if err := dispatcher.Close(); err != nil {
			log.Error("dispatcher close failed", "error", err)
		}
	}()

	go items.NewExpiryWorker(itemsRepo, cfg.ExpirySweepInterval, log).Run(ctx)

	authLimiter, claimLimiter := routes.Limiters()
	authLimiter.StartCleanup(ctx, 5*time.Minute)
	claimLimiter.StartCleanup(ctx, 5*time.Minute)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(cfg.FrontendURL))

	router.GET("/health", func(c *gin.Context) {
		status := map[string]interface{}{
			"status": "ok",
			"time":   time.Now().Unix(),
			"mongo":  "ok",
		}
		healthy := true
		if err := db.Ping(c.Request.Context()); err != nil {
			status["mongo"] = err.Error()
			healthy = false
		}
		if redisClient != nil {
			status["redis"] = "ok"
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				status["redis"] = err.Error()
				healthy = false
			}
		}
		if !healthy {
			status["status"] = "degraded"
			response.ErrorWithData(c, http.StatusServiceUnavailable, "Dependency check failed", "UNHEALTHY", status)
			return
		}
		response.Success(c, status)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	docs.SwaggerInfo.Host = "localhost:" + cfg.Port
	docs.SwaggerInfo.Version = cfg.ServiceVersion
	router.GET(
		"/swagger/*any",
		ginSwagger.WrapHandler(
			swaggerFiles.Handler,
			ginSwagger.URL("/swagger/doc.json"),
			ginSwagger.DeepLinking(true),
			ginSwagger.DefaultModelsExpandDepth(-1),
			ginSwagger.DocExpansion("none"),
			ginSwagger.PersistAuthorization(true),
		),
	)

	deps := routes.Dependencies{
		Config:        cfg,
		Users:         usersRepo,
		Items:         itemsRepo,
		Notifications: notificationsRepo,
		Analytics:     analyticsRepo,
		Notifier:      dispatcher,
		Verifier:      verifier,
		Cloudinary:    uploads,
		Redis:         redisClient,
		AuthLimiter:   authLimiter,
		ClaimLimiter:  claimLimiter,
		Log:           log,
	}
	routes.SetupRoutes(router, deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}
