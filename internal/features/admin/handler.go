package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/features/analytics"
	"github.com/xyz-asif/lostfound/internal/features/auth"
	"github.com/xyz-asif/lostfound/internal/features/items"
	"github.com/xyz-asif/lostfound/internal/features/notifications"
	"github.com/xyz-asif/lostfound/internal/pkg/access"
	"github.com/xyz-asif/lostfound/internal/pkg/logger"
	"github.com/xyz-asif/lostfound/internal/pkg/pagination"
	"github.com/xyz-asif/lostfound/internal/pkg/response"
	apperrors "github.com/xyz-asif/lostfound/pkg/errors"
)

var (
	ErrBranchRequired = apperrors.Validation("BRANCH_REQUIRED", "Staff accounts require a branch")
	ErrOwnRole        = apperrors.Validation("OWN_ROLE", "You cannot change your own role")
	ErrOwnStatus      = apperrors.Validation("OWN_STATUS", "You cannot deactivate your own account")
	errInvalidUserID  = apperrors.Validation("INVALID_USER_ID", "Invalid user ID")
)

type UserStore interface {
	GetUserByID(ctx context.Context, userID string) (*auth.User, error)
	UpdateUser(ctx context.Context, userID primitive.ObjectID, updates bson.M) error
	List(ctx context.Context, f auth.ListFilter, skip, limit int64) ([]auth.User, int64, error)
	CountByRole(ctx context.Context) (map[access.Role]int64, error)
}

type ItemStore interface {
	Mutate(ctx context.Context, id primitive.ObjectID, fn func(*items.Item) error) (*items.Item, error)
}

type Overviewer interface {
	Overview(ctx context.Context, scope access.Scope, days int) (*analytics.Overview, error)
}

type Handler struct {
	users       UserStore
	items       ItemStore
	analytics   Overviewer
	deadLetters redis.Cmdable
	log         logger.Logger
	now         func() time.Time
}

// NewHandler creates the admin handler. deadLetters may be nil when Redis is
// not configured.
func NewHandler(users UserStore, itemStore ItemStore, overview Overviewer, deadLetters redis.Cmdable, log logger.Logger) *Handler {
	return &Handler{
		users:       users,
		items:       itemStore,
		analytics:   overview,
		deadLetters: deadLetters,
		log:         log.With("component", "admin"),
		now:         time.Now,
	}
}

// ListUsers godoc
// @Summary List users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Users per page"
// @Param role query string false "user, staff or admin"
// @Param active query bool false "Active flag"
// @Param search query string false "Name or email substring"
// @Success 200 {object} response.APIResponse{data=[]auth.User}
// @Router /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	var query ListUsersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}
	query.Normalize()

	f := auth.ListFilter{
		Role:   access.Role(query.Role),
		Active: query.Active,
		Search: strings.TrimSpace(query.Search),
	}
	users, total, err := h.users.List(c.Request.Context(), f, query.Skip(), int64(query.Limit))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Paginated(c, users, pagination.New(query.Page, query.Limit, total))
}

// UpdateUserRole godoc
// @Summary Change a user's role and branch
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body UpdateRoleRequest true "Role"
// @Success 200 {object} response.APIResponse{data=auth.User}
// @Failure 400 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /admin/users/{id}/role [put]
func (h *Handler) UpdateUserRole(c *gin.Context) {
	admin, target, ok := h.target(c)
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	branch := strings.TrimSpace(req.Branch)

	if target.ID == admin.ID && req.Role != admin.Role {
		response.FromError(c, ErrOwnRole)
		return
	}
	if req.Role == access.RoleStaff && branch == "" {
		response.FromError(c, ErrBranchRequired)
		return
	}

	ctx := c.Request.Context()
	if err := h.users.UpdateUser(ctx, target.ID, bson.M{"role": req.Role, "branch": branch}); err != nil {
		response.FromError(c, err)
		return
	}
	h.log.InfoContext(ctx, "user role changed",
		"user_id", target.ID.Hex(),
		"from", target.Role,
		"to", req.Role,
		"branch", branch,
		"by", admin.ID.Hex(),
	)

	target.Role = req.Role
	target.Branch = branch
	response.Success(c, target, "User role updated")
}

// UpdateUserStatus godoc
// @Summary Activate or deactivate a user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body UpdateStatusRequest true "Active flag"
// @Success 200 {object} response.APIResponse{data=auth.User}
// @Failure 400 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /admin/users/{id}/status [put]
func (h *Handler) UpdateUserStatus(c *gin.Context) {
	admin, target, ok := h.target(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if target.ID == admin.ID && !*req.IsActive {
		response.FromError(c, ErrOwnStatus)
		return
	}

	ctx := c.Request.Context()
	if err := h.users.UpdateUser(ctx, target.ID, bson.M{"isActive": *req.IsActive}); err != nil {
		response.FromError(c, err)
		return
	}
	h.log.InfoContext(ctx, "user status changed", "user_id", target.ID.Hex(), "active", *req.IsActive, "by", admin.ID.Hex())

	target.IsActive = *req.IsActive
	response.Success(c, target, "User status updated")
}

// OverrideItemStatus godoc
// @Summary Correct an item's status
// @Description Sets any status regardless of the normal lifecycle.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Param request body items.OverrideStatusRequest true "Status"
// @Success 200 {object} response.APIResponse{data=items.Item}
// @Failure 400 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /admin/items/{id}/status [put]
func (h *Handler) OverrideItemStatus(c *gin.Context) {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return
	}

	id, err := items.ParseID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	var req items.OverrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	var previous items.Status
	ctx := c.Request.Context()
	item, err := h.items.Mutate(ctx, id, func(item *items.Item) error {
		if err := p.Require(access.OverrideItemStatus, item.Resource()); err != nil {
			return err
		}
		previous = item.Status
		return item.OverrideStatus(req.Status, h.now())
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.log.WarnContext(ctx, "item status overridden",
		"item_id", id.Hex(),
		"from", previous,
		"to", req.Status,
		"reason", req.Reason,
		"by", p.UserID.Hex(),
	)
	item.ClaimCount = len(item.Claims)
	response.Success(c, item, "Item status updated")
}

// Stats godoc
// @Summary System wide counters
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse{data=Stats}
// @Router /admin/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	roles, err := h.users.CountByRole(ctx)
	if err != nil {
		response.FromError(c, err)
		return
	}
	overview, err := h.analytics.Overview(ctx, access.Scope{}, analytics.DefaultTrendDays)
	if err != nil {
		response.FromError(c, err)
		return
	}

	stats := &Stats{UsersByRole: roles, Items: overview.Totals}
	for _, n := range roles {
		stats.TotalUsers += n
	}
	response.Success(c, stats)
}

// DeadLetters godoc
// @Summary Recently failed notifications
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of records (max 500)"
// @Success 200 {object} response.APIResponse{data=[]notifications.DeadLetterRecord}
// @Failure 503 {object} response.APIResponse
// @Router /admin/notifications/dead-letters [get]
func (h *Handler) DeadLetters(c *gin.Context) {
	if h.deadLetters == nil {
		response.ServiceUnavailable(c, "Dead letter storage is not configured", "DEAD_LETTERS_DISABLED")
		return
	}

	var query DeadLettersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}
	if query.Limit == 0 {
		query.Limit = 50
	}

	records, err := notifications.RecentDeadLetters(c.Request.Context(), h.deadLetters, query.Limit)
	if err != nil {
		response.FromError(c, fmt.Errorf("read dead letters: %w", err))
		return
	}
	response.Success(c, records)
}

// target loads the caller and the user named by :id, enforcing ManageUsers.
func (h *Handler) target(c *gin.Context) (*auth.User, *auth.User, bool) {
	admin, ok := auth.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return nil, nil, false
	}
	if err := admin.Principal().Require(access.ManageUsers, access.Resource{}); err != nil {
		response.FromError(c, err)
		return nil, nil, false
	}

	if _, err := primitive.ObjectIDFromHex(c.Param("id")); err != nil {
		response.FromError(c, errInvalidUserID)
		return nil, nil, false
	}
	target, err := h.users.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return nil, nil, false
	}
	return admin, target, true
}
