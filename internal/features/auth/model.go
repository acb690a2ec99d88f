package auth

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/pkg/access"
)

// User represents a registered account
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email" json:"email"`
	Password    string             `bson:"password,omitempty" json:"-"`
	GoogleID    string             `bson:"googleId,omitempty" json:"-"`
	Phone       string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Role        access.Role        `bson:"role" json:"role"`
	Branch      string             `bson:"branch,omitempty" json:"branch,omitempty"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	FCMTokens   []string           `bson:"fcmTokens,omitempty" json:"-"`
	LastLoginAt *time.Time         `bson:"lastLoginAt,omitempty" json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Summary is the subset of a user embedded into other resources.
type Summary struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Phone string             `json:"phone,omitempty"`
}

func (u *User) Summary() *Summary {
	return &Summary{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}

// Principal converts the user into the access-control view of the caller.
func (u *User) Principal() access.Principal {
	return access.Principal{UserID: u.ID, Role: u.Role, Branch: u.Branch}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Phone    string `json:"phone" binding:"omitempty,phone"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// GoogleAuthRequest represents the payload for Google sign-in
type GoogleAuthRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

type UpdateProfileRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=2,max=100"`
	Phone *string `json:"phone" binding:"omitempty,phone"`
}

type RegisterDeviceRequest struct {
	Token string `json:"token" binding:"required,max=4096"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	User        *User  `json:"user"`
	AccessToken string `json:"accessToken"`
}
