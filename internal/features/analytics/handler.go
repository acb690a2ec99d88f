package analytics

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/xyz-asif/lostfound/internal/features/auth"
	"github.com/xyz-asif/lostfound/internal/features/items"
	"github.com/xyz-asif/lostfound/internal/pkg/access"
	"github.com/xyz-asif/lostfound/internal/pkg/logger"
	"github.com/xyz-asif/lostfound/internal/pkg/pagination"
	"github.com/xyz-asif/lostfound/internal/pkg/response"
)

const defaultRecentItems = 5

// ItemLister lists items for the dashboards.
type ItemLister interface {
	List(ctx context.Context, f items.Filter, sort bson.D, skip, limit int64) ([]items.Item, int64, error)
}

type Handler struct {
	service *Service
	items   ItemLister
	users   items.UserDirectory
	log     logger.Logger
	now     func() time.Time
}

func NewHandler(service *Service, lister ItemLister, users items.UserDirectory, log logger.Logger) *Handler {
	return &Handler{service: service, items: lister, users: users, log: log, now: time.Now}
}

// Analytics godoc
// @Summary Item and claim analytics
// @Description Staff see their branch; admins see everything or narrow with branch.
// @Tags analytics
// @Produce json
// @Security BearerAuth
// @Param days query int false "Trend window in days (default 30)"
// @Param branch query string false "Branch filter, admins only"
// @Success 200 {object} response.APIResponse{data=Overview}
// @Failure 403 {object} response.APIResponse
// @Router /analytics [get]
func (h *Handler) Analytics(c *gin.Context) {
	var query AnalyticsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}

	scope, ok := h.scope(c, query.Branch)
	if !ok {
		return
	}

	overview, err := h.service.Overview(c.Request.Context(), scope, query.Days)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, overview)
}

// UserDashboard godoc
// @Summary Personal dashboard counters
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse{data=UserStats}
// @Router /dashboard/stats [get]
func (h *Handler) UserDashboard(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return
	}

	stats, err := h.service.UserStats(c.Request.Context(), user.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, stats)
}

// RecentItems godoc
// @Summary Latest active items
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of items (max 20)"
// @Success 200 {object} response.APIResponse{data=[]items.Item}
// @Router /dashboard/recent-items [get]
func (h *Handler) RecentItems(c *gin.Context) {
	var query RecentQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}
	if query.Limit == 0 {
		query.Limit = defaultRecentItems
	}

	ctx := c.Request.Context()
	now := h.now()
	f := items.Filter{Statuses: []items.Status{items.StatusActive}, OpenAt: &now}
	list, _, err := h.items.List(ctx, f, items.SortOrder("newest"), 0, int64(query.Limit))
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.summarize(ctx, list)
	response.Success(c, list)
}

// StaffStats godoc
// @Summary Branch dashboard counters
// @Tags staff
// @Produce json
// @Security BearerAuth
// @Param branch query string false "Branch filter, admins only"
// @Success 200 {object} response.APIResponse{data=BranchStats}
// @Failure 403 {object} response.APIResponse
// @Router /staff/dashboard/stats [get]
func (h *Handler) StaffStats(c *gin.Context) {
	scope, ok := h.scope(c, c.Query("branch"))
	if !ok {
		return
	}

	stats, err := h.service.BranchStats(c.Request.Context(), scope)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, stats)
}

// StaffItems godoc
// @Summary Items in the caller's branch
// @Tags staff
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param status query string false "Status filter, all by default"
// @Param branch query string false "Branch filter, admins only"
// @Success 200 {object} response.APIResponse{data=[]items.Item}
// @Router /staff/dashboard/items [get]
func (h *Handler) StaffItems(c *gin.Context) {
	var query StaffItemsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}
	query.Normalize()

	scope, ok := h.scope(c, query.Branch)
	if !ok {
		return
	}

	f := query.Filter("")
	f.Scope = scope

	ctx := c.Request.Context()
	list, total, err := h.items.List(ctx, f, items.SortOrder(query.Sort), query.Skip(), int64(query.Limit))
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.summarize(ctx, list)
	response.Paginated(c, list, pagination.New(query.Page, query.Limit, total))
}

// PendingClaims godoc
// @Summary Items with claims awaiting review in the caller's branch
// @Tags staff
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param branch query string false "Branch filter, admins only"
// @Success 200 {object} response.APIResponse{data=[]items.Item}
// @Router /staff/dashboard/pending-claims [get]
func (h *Handler) PendingClaims(c *gin.Context) {
	var query PendingClaimsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}
	query.Normalize()

	scope, ok := h.scope(c, query.Branch)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	f := items.Filter{ClaimState: items.ClaimPending, Scope: scope}
	list, total, err := h.items.List(ctx, f, items.SortOrder("oldest"), query.Skip(), int64(query.Limit))
	if err != nil {
		response.FromError(c, err)
		return
	}

	ptrs := make([]*items.Item, len(list))
	for i := range list {
		pending := []items.Claim{}
		for _, claim := range list[i].Claims {
			if claim.Status == items.ClaimPending {
				pending = append(pending, claim)
			}
		}
		list[i].ClaimCount = len(list[i].Claims)
		list[i].Claims = pending
		ptrs[i] = &list[i]
	}
	items.Populate(ctx, h.users, h.log, ptrs...)

	response.Paginated(c, list, pagination.New(query.Page, query.Limit, total))
}

// scope resolves the branch scope for the caller, writing the error
// response itself when there is none.
func (h *Handler) scope(c *gin.Context, branch string) (access.Scope, bool) {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return access.Scope{}, false
	}
	scope, err := access.ScopeFor(p, branch)
	if err != nil {
		response.FromError(c, err)
		return access.Scope{}, false
	}
	return scope, true
}

func (h *Handler) summarize(ctx context.Context, list []items.Item) {
	ptrs := make([]*items.Item, len(list))
	for i := range list {
		list[i].Summarize()
		ptrs[i] = &list[i]
	}
	items.Populate(ctx, h.users, h.log, ptrs...)
}
