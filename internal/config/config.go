package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTesting     = "testing"

	defaultJWTSecret = "secret"
)

type Config struct {
	Port        string `conf:"default:8080,env:PORT"`
	AppEnv      string `conf:"default:development,enum:development|testing|production,env:APP_ENV"`
	LogLevel    string `conf:"default:info,env:LOG_LEVEL"`
	FrontendURL string `conf:"default:http://localhost:3000,env:FRONTEND_URL"`

	MongoURI string `conf:"default:mongodb://localhost:27017,env:MONGO_URI,noprint"`
	MongoDB  string `conf:"default:lostfound,env:MONGO_DB"`
	RedisURL string `conf:"env:REDIS_URL,noprint"`

	JWTSecret      string `conf:"default:secret,env:JWT_SECRET,noprint"`
	JWTExpireHours int    `conf:"default:24,env:JWT_EXPIRE_HOURS"`

	CloudinaryCloudName    string `conf:"env:CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey       string `conf:"env:CLOUDINARY_API_KEY,noprint"`
	CloudinaryAPISecret    string `conf:"env:CLOUDINARY_API_SECRET,noprint"`
	CloudinaryUploadFolder string `conf:"default:lostfound,env:CLOUDINARY_UPLOAD_FOLDER"`

	FirebaseServiceAccountPath string `conf:"env:FIREBASE_SERVICE_ACCOUNT_PATH"`

	SentryDSN      string `conf:"env:SENTRY_DSN,noprint"`
	ServiceName    string `conf:"default:lostfound-api,env:SERVICE_NAME"`
	ServiceVersion string `conf:"default:dev,env:SERVICE_VERSION"`

	ItemExpiryDays      int           `conf:"default:30,env:ITEM_EXPIRY_DAYS"`
	ExpirySweepInterval time.Duration `conf:"default:1h,env:EXPIRY_SWEEP_INTERVAL"`
	NotificationBuffer  int           `conf:"default:256,env:NOTIFICATION_BUFFER"`
	DeadLetterMax       int64         `conf:"default:1000,env:NOTIFICATION_DEAD_LETTER_MAX"`

	SeedAdminName     string `conf:"default:Administrator,env:SEED_ADMIN_NAME"`
	SeedAdminEmail    string `conf:"default:admin@lostfound.local,env:SEED_ADMIN_EMAIL"`
	SeedAdminPassword string `conf:"default:ChangeMe123!,env:SEED_ADMIN_PASSWORD,noprint"`
}

// Load reads configuration from the environment, after loading .env if present.
func Load() (*Config, error) {
	var cfg Config
	_ = godotenv.Load()
	if _, err := conf.Parse("", &cfg); err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// JWTExpiry is the access token lifetime.
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpireHours) * time.Hour
}

// ItemExpiry is how long a new item accepts claims.
func (c *Config) ItemExpiry() time.Duration {
	return time.Duration(c.ItemExpiryDays) * 24 * time.Hour
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Validate rejects unusable values and, in production, unsafe defaults.
func (c *Config) Validate() error {
	var errs []string

	if c.JWTExpireHours <= 0 {
		errs = append(errs, "JWT_EXPIRE_HOURS must be positive")
	}
	if c.ItemExpiryDays <= 0 {
		errs = append(errs, "ITEM_EXPIRY_DAYS must be positive")
	}
	if c.ExpirySweepInterval <= 0 {
		errs = append(errs, "EXPIRY_SWEEP_INTERVAL must be positive")
	}
	if c.NotificationBuffer <= 0 {
		errs = append(errs, "NOTIFICATION_BUFFER must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret || len(c.JWTSecret) < 32 {
			errs = append(errs, "JWT_SECRET must be set to at least 32 characters in production")
		}
		if c.LogLevel == "debug" {
			errs = append(errs, "LOG_LEVEL must not be 'debug' in production")
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
}
