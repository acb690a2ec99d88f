package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingRole  = errors.New("token does not carry a role")
)

// Claims represents JWT claims
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Config represents JWT configuration
type Config struct {
	Secret        string
	AccessExpiry  time.Duration
	Issuer        string
	Audience      string
	SigningMethod jwt.SigningMethod
}

// DefaultConfig returns default JWT configuration
func DefaultConfig(secret string, expiry time.Duration) *Config {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Config{
		Secret:        secret,
		AccessExpiry:  expiry,
		Issuer:        "lostfound-api",
		Audience:      "lostfound-users",
		SigningMethod: jwt.SigningMethodHS256,
	}
}

// GenerateToken issues an access token carrying the user's role
func GenerateToken(userID, email, role string, cfg *Config) (string, error) {
	if cfg == nil {
		return "", errors.New("JWT config is required")
	}

	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    cfg.Issuer,
			Audience:  []string{cfg.Audience},
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(cfg.SigningMethod, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// ValidateToken validates and parses a JWT token
func ValidateToken(tokenString string, cfg *Config) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithAudience(cfg.Audience))

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role == "" {
		return nil, ErrMissingRole
	}

	return claims, nil
}
