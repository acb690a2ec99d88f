package claims

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/features/auth"
	"github.com/xyz-asif/lostfound/internal/features/items"
	"github.com/xyz-asif/lostfound/internal/pkg/logger"
	"github.com/xyz-asif/lostfound/internal/pkg/pagination"
	"github.com/xyz-asif/lostfound/internal/pkg/response"
)

// MyClaimsQuery binds GET /claims/my-claims.
type MyClaimsQuery struct {
	pagination.Query
	Status string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
}

type Handler struct {
	service *Service
	users   items.UserDirectory
	log     logger.Logger
}

func NewHandler(service *Service, users items.UserDirectory, log logger.Logger) *Handler {
	return &Handler{service: service, users: users, log: log}
}

// SubmitClaim godoc
// @Summary Claim an item
// @Description Submits an ownership claim with optional verification documents.
// @Tags claims
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Param request body items.SubmitClaimRequest true "Claim"
// @Success 201 {object} response.APIResponse{data=items.Claim}
// @Failure 400 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse
// @Router /items/{id}/claim [post]
func (h *Handler) SubmitClaim(c *gin.Context) {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return
	}

	itemID, err := items.ParseID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	var req items.SubmitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	claim, err := h.service.Submit(c.Request.Context(), p, itemID, req.VerificationDocuments, req.Notes)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, claim, "Claim submitted successfully")
}

// UpdateClaimStatus godoc
// @Summary Review a claim
// @Description Approving a claim marks the item claimed and rejects every other pending claim.
// @Tags claims
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Param claimId path string true "Claim ID"
// @Param request body items.UpdateClaimStatusRequest true "New status"
// @Success 200 {object} response.APIResponse{data=items.Item}
// @Failure 400 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /items/{id}/claims/{claimId} [put]
func (h *Handler) UpdateClaimStatus(c *gin.Context) {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return
	}

	itemID, err := items.ParseID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	claimID, err := items.ParseClaimID(c.Param("claimId"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	var req items.UpdateClaimStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	ctx := c.Request.Context()
	item, err := h.service.UpdateStatus(ctx, p, itemID, claimID, req.Status, req.Notes)
	if err != nil {
		response.FromError(c, err)
		return
	}

	item.RedactFor(&p)
	items.Populate(ctx, h.users, h.log, item)
	response.Success(c, item, "Claim status updated")
}

// MarkReturned godoc
// @Summary Mark an item as returned
// @Tags claims
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Param request body items.MarkReturnedRequest false "Approved claim"
// @Success 200 {object} response.APIResponse{data=items.Item}
// @Failure 400 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Router /items/{id}/return [put]
func (h *Handler) MarkReturned(c *gin.Context) {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return
	}

	itemID, err := items.ParseID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	// The body is optional; an empty one (any transfer encoding) reads as EOF.
	var req items.MarkReturnedRequest
	if c.Request.Body != nil {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.BindError(c, err)
			return
		}
	}

	var claimID *primitive.ObjectID
	if req.ClaimID != "" {
		id, err := items.ParseClaimID(req.ClaimID)
		if err != nil {
			response.FromError(c, err)
			return
		}
		claimID = &id
	}

	ctx := c.Request.Context()
	item, err := h.service.MarkReturned(ctx, p, itemID, claimID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	item.RedactFor(&p)
	items.Populate(ctx, h.users, h.log, item)
	response.Success(c, item, "Item marked as returned")
}

// MyClaims godoc
// @Summary List the caller's claims
// @Tags claims
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param status query string false "pending, approved or rejected"
// @Success 200 {object} response.APIResponse{data=[]items.Item}
// @Router /claims/my-claims [get]
func (h *Handler) MyClaims(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return
	}

	var query MyClaimsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}
	query.Normalize()

	ctx := c.Request.Context()
	list, total, err := h.service.MyClaims(ctx, user.ID, items.ClaimStatus(query.Status), query.Skip(), int64(query.Limit))
	if err != nil {
		response.FromError(c, err)
		return
	}

	ptrs := make([]*items.Item, len(list))
	for i := range list {
		ptrs[i] = &list[i]
	}
	items.Populate(ctx, h.users, h.log, ptrs...)

	response.Paginated(c, list, pagination.New(query.Page, query.Limit, total))
}
