// Command seed checks connectivity to every configured backend and makes
// sure an administrator account exists. Running it twice is safe.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/xyz-asif/lostfound/internal/config"
	"github.com/xyz-asif/lostfound/internal/database"
	"github.com/xyz-asif/lostfound/internal/features/auth"
	"github.com/xyz-asif/lostfound/internal/pkg/access"
	"github.com/xyz-asif/lostfound/internal/pkg/cloudinary"
	"github.com/xyz-asif/lostfound/internal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel).With("cmd", "seed")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer db.Disconnect(context.Background())
	log.Info("mongo connected", "database", cfg.MongoDB)

	if cfg.RedisURL != "" {
		rdb, err := database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		_ = rdb.Close()
		log.Info("redis connected")
	}

	app, err := auth.InitFirebase(ctx, cfg.FirebaseServiceAccountPath)
	if err != nil {
		return err
	}
	if app != nil {
		if _, err := app.Auth(ctx); err != nil {
			return fmt.Errorf("firebase auth client: %w", err)
		}
		log.Info("firebase auth ready")
	}

	if cfg.CloudinaryEnabled() {
		if _, err := cloudinary.NewService(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryUploadFolder); err != nil {
			return err
		}
		log.Info("cloudinary configured")
	}

	users, err := auth.NewRepository(ctx, db.Database)
	if err != nil {
		return err
	}
	return ensureAdmin(ctx, users, cfg, log)
}

func ensureAdmin(ctx context.Context, users *auth.Repository, cfg *config.Config, log logger.Logger) error {
	existing, err := users.GetUserByEmail(ctx, cfg.SeedAdminEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Role == access.RoleAdmin && existing.IsActive {
			log.Info("admin already present", "email", existing.Email)
			return nil
		}
		if err := users.UpdateUser(ctx, existing.ID, bson.M{"role": access.RoleAdmin, "isActive": true}); err != nil {
			return err
		}
		log.Info("promoted existing user to admin", "email", existing.Email)
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.SeedAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin := &auth.User{
		Name:     cfg.SeedAdminName,
		Email:    auth.NormalizeEmail(cfg.SeedAdminEmail),
		Password: string(hash),
		Role:     access.RoleAdmin,
		IsActive: true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	log.Info("admin created", "email", admin.Email, "id", admin.ID.Hex())
	return nil
}
