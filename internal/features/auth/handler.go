package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/xyz-asif/lostfound/internal/pkg/access"
	"github.com/xyz-asif/lostfound/internal/pkg/jwt"
	"github.com/xyz-asif/lostfound/internal/pkg/logger"
	"github.com/xyz-asif/lostfound/internal/pkg/response"
	apperrors "github.com/xyz-asif/lostfound/pkg/errors"
)

var (
	errInvalidCredentials = apperrors.Unauthorized("INVALID_CREDENTIALS", "Invalid email or password")
	errAccountDisabled    = apperrors.Forbidden("ACCOUNT_DISABLED", "Account is deactivated")
)

// Store is the persistence the auth handlers need.
type Store interface {
	UserLookup
	Create(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*User, error)
	UpdateUser(ctx context.Context, userID primitive.ObjectID, updates bson.M) error
	AddDeviceToken(ctx context.Context, userID primitive.ObjectID, token string) error
	TouchLogin(ctx context.Context, userID primitive.ObjectID, at time.Time) error
}

type Handler struct {
	store    Store
	verifier TokenVerifier
	jwtCfg   *jwt.Config
	log      logger.Logger
}

// NewHandler builds the auth handler. verifier may be nil, in which case
// Google sign-in answers 503.
func NewHandler(store Store, verifier TokenVerifier, jwtCfg *jwt.Config, log logger.Logger) *Handler {
	return &Handler{store: store, verifier: verifier, jwtCfg: jwtCfg, log: log}
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "User registration data"
// @Success 201 {object} response.APIResponse{data=AuthResponse}
// @Failure 400 {object} response.APIResponse
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if err := ValidatePassword(req.Password); err != nil {
		response.FromError(c, err)
		return
	}

	ctx := c.Request.Context()
	email := NormalizeEmail(req.Email)

	existing, err := h.store.GetUserByEmail(ctx, email)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if existing != nil {
		response.FromError(c, ErrEmailTaken)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		response.FromError(c, apperrors.Internal(err))
		return
	}

	user := &User{
		Name:     req.Name,
		Email:    email,
		Password: string(hash),
		Phone:    req.Phone,
		Role:     access.RoleUser,
		IsActive: true,
	}
	if err := h.store.Create(ctx, user); err != nil {
		response.FromError(c, err)
		return
	}

	h.log.InfoContext(ctx, "user registered", "user_id", user.ID.Hex())
	h.respondWithToken(c, user, true)
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} response.APIResponse{data=AuthResponse}
// @Failure 401 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.GetUserByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		response.FromError(c, err)
		return
	}
	if user == nil || user.Password == "" {
		response.FromError(c, errInvalidCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		response.FromError(c, errInvalidCredentials)
		return
	}
	if !user.IsActive {
		response.FromError(c, errAccountDisabled)
		return
	}

	h.touchLogin(ctx, user)
	h.respondWithToken(c, user, false)
}

// GoogleLogin godoc
// @Summary Sign in with a Google ID token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body GoogleAuthRequest true "Google ID token"
// @Success 200 {object} response.APIResponse{data=AuthResponse}
// @Failure 401 {object} response.APIResponse
// @Failure 503 {object} response.APIResponse
// @Router /auth/google [post]
func (h *Handler) GoogleLogin(c *gin.Context) {
	if h.verifier == nil {
		response.ServiceUnavailable(c, "Google sign-in is not configured", "GOOGLE_AUTH_DISABLED")
		return
	}

	var req GoogleAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	ctx := c.Request.Context()
	token, err := h.verifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		h.log.WarnContext(ctx, "google token rejected", "error", err)
		response.Unauthorized(c, "Invalid Google token", "INVALID_GOOGLE_TOKEN")
		return
	}
	gu := googleUserFromToken(token)
	if gu.Email == "" {
		response.Unauthorized(c, "Google account has no email", "INVALID_GOOGLE_TOKEN")
		return
	}

	user, created, err := h.findOrCreateGoogleUser(ctx, gu)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if !user.IsActive {
		response.FromError(c, errAccountDisabled)
		return
	}

	h.touchLogin(ctx, user)
	h.respondWithToken(c, user, created)
}

func (h *Handler) findOrCreateGoogleUser(ctx context.Context, gu *GoogleUser) (*User, bool, error) {
	user, err := h.store.GetUserByGoogleID(ctx, gu.UID)
	if err != nil || user != nil {
		return user, false, err
	}

	// An existing password account with the same address gets linked.
	user, err = h.store.GetUserByEmail(ctx, gu.Email)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		if err := h.store.UpdateUser(ctx, user.ID, bson.M{"googleId": gu.UID}); err != nil {
			return nil, false, err
		}
		user.GoogleID = gu.UID
		return user, false, nil
	}

	name := gu.Name
	if name == "" {
		name = gu.Email
	}
	user = &User{
		Name:     name,
		Email:    gu.Email,
		GoogleID: gu.UID,
		Role:     access.RoleUser,
		IsActive: true,
	}
	if err := h.store.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// Me godoc
// @Summary Get current user profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse{data=User}
// @Failure 401 {object} response.APIResponse
// @Router /auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return
	}
	response.Success(c, user)
}

// UpdateProfile godoc
// @Summary Update own name or phone
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} response.APIResponse{data=User}
// @Failure 400 {object} response.APIResponse
// @Router /auth/profile [put]
func (h *Handler) UpdateProfile(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	updates := bson.M{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if len(updates) == 0 {
		response.BadRequest(c, "No fields to update", "NO_CHANGES")
		return
	}

	if err := h.store.UpdateUser(c.Request.Context(), user.ID, updates); err != nil {
		response.FromError(c, err)
		return
	}

	updated, err := h.store.GetUserByID(c.Request.Context(), user.ID.Hex())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, updated, "Profile updated")
}

// RegisterDevice godoc
// @Summary Register a push notification device token
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RegisterDeviceRequest true "FCM token"
// @Success 200 {object} response.APIResponse
// @Router /auth/devices [post]
func (h *Handler) RegisterDevice(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return
	}

	var req RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.store.AddDeviceToken(c.Request.Context(), user.ID, req.Token); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil, "Device registered")
}

func (h *Handler) touchLogin(ctx context.Context, user *User) {
	now := time.Now()
	if err := h.store.TouchLogin(ctx, user.ID, now); err != nil {
		h.log.WarnContext(ctx, "failed to record login", "user_id", user.ID.Hex(), "error", err)
		return
	}
	user.LastLoginAt = &now
}

func (h *Handler) respondWithToken(c *gin.Context, user *User, created bool) {
	token, err := jwt.GenerateToken(user.ID.Hex(), user.Email, string(user.Role), h.jwtCfg)
	if err != nil {
		response.FromError(c, apperrors.Internal(fmt.Errorf("generate token: %w", err)))
		return
	}

	resp := AuthResponse{User: user, AccessToken: token}
	if created {
		response.Created(c, resp)
		return
	}
	response.Success(c, resp)
}
