package items

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/features/auth"
	"github.com/xyz-asif/lostfound/internal/features/notifications"
	"github.com/xyz-asif/lostfound/internal/pkg/access"
	"github.com/xyz-asif/lostfound/internal/pkg/cloudinary"
	"github.com/xyz-asif/lostfound/internal/pkg/logger"
	"github.com/xyz-asif/lostfound/internal/pkg/pagination"
	"github.com/xyz-asif/lostfound/internal/pkg/response"
	apperrors "github.com/xyz-asif/lostfound/pkg/errors"
)

var ErrDateInFuture = apperrors.Validation("INVALID_DATE", "Date cannot be in the future")

// Store is the item persistence used by handlers and the claim service.
type Store interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Item, error)
	List(ctx context.Context, f Filter, sort bson.D, skip, limit int64) ([]Item, int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Mutate(ctx context.Context, id primitive.ObjectID, fn func(*Item) error) (*Item, error)
}

// AssetRemover deletes uploaded files. *cloudinary.Service satisfies it.
type AssetRemover interface {
	Delete(ctx context.Context, publicID, resourceType string) error
}

// Handler handles HTTP requests for the items feature
type Handler struct {
	store    Store
	users    UserDirectory
	notifier notifications.Notifier
	assets   AssetRemover
	expiry   time.Duration
	log      logger.Logger
	now      func() time.Time
}

// NewHandler creates a new item handler. assets may be nil when uploads are
// not configured.
func NewHandler(store Store, users UserDirectory, notifier notifications.Notifier, assets AssetRemover, expiry time.Duration, log logger.Logger) *Handler {
	return &Handler{
		store:    store,
		users:    users,
		notifier: notifier,
		assets:   assets,
		expiry:   expiry,
		log:      log,
		now:      time.Now,
	}
}

// ListItems godoc
// @Summary List items
// @Description Public listing with filtering and pagination. Defaults to active items.
// @Tags items
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param category query string false "Category"
// @Param type query string false "lost or found"
// @Param status query string false "active, claimed, returned, expired or all"
// @Param location query string false "Location substring"
// @Param district query string false "District substring"
// @Param search query string false "Free text over title, description and location"
// @Param sort query string false "newest, oldest or date"
// @Success 200 {object} response.APIResponse{data=[]Item}
// @Failure 400 {object} response.APIResponse
// @Router /items [get]
func (h *Handler) ListItems(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}
	query.Normalize()

	f := query.Filter(StatusActive)
	if len(f.Statuses) == 1 && f.Statuses[0] == StatusActive {
		// Overdue items stay hidden until the sweeper marks them expired.
		now := h.now()
		f.OpenAt = &now
	}
	h.respondList(c, f, query)
}

// MyItems godoc
// @Summary List items reported by the caller
// @Tags items
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param status query string false "Status filter, all by default"
// @Success 200 {object} response.APIResponse{data=[]Item}
// @Router /items/my-items [get]
func (h *Handler) MyItems(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return
	}

	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}
	query.Normalize()

	f := query.Filter("")
	f.ReportedBy = &user.ID
	h.respondList(c, f, query)
}

func (h *Handler) respondList(c *gin.Context, f Filter, query ListQuery) {
	ctx := c.Request.Context()
	list, total, err := h.store.List(ctx, f, SortOrder(query.Sort), query.Skip(), int64(query.Limit))
	if err != nil {
		response.FromError(c, err)
		return
	}

	ptrs := make([]*Item, len(list))
	for i := range list {
		list[i].Summarize()
		ptrs[i] = &list[i]
	}
	Populate(ctx, h.users, h.log, ptrs...)

	response.Paginated(c, list, pagination.New(query.Page, query.Limit, total))
}

// GetItem godoc
// @Summary Get an item
// @Description Claims are visible to the reporter and covering staff; a claimant sees only their own claim.
// @Tags items
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.APIResponse{data=Item}
// @Failure 404 {object} response.APIResponse
// @Router /items/{id} [get]
func (h *Handler) GetItem(c *gin.Context) {
	id, err := ParseID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	ctx := c.Request.Context()
	item, err := h.store.GetByID(ctx, id)
	if err != nil {
		response.FromError(c, err)
		return
	}

	var viewer *access.Principal
	if p, ok := auth.CurrentPrincipal(c); ok {
		viewer = &p
	}
	item.RedactFor(viewer)
	Populate(ctx, h.users, h.log, item)

	response.Success(c, item)
}

// CreateItem godoc
// @Summary Report a lost or found item
// @Tags items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateItemRequest true "Item details"
// @Success 201 {object} response.APIResponse{data=Item}
// @Failure 400 {object} response.APIResponse
// @Router /items [post]
func (h *Handler) CreateItem(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return
	}

	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	now := h.now()
	if req.Date.After(now.Add(24 * time.Hour)) {
		response.FromError(c, ErrDateInFuture)
		return
	}

	contact := req.ContactInfo
	if contact.Email == "" && contact.Phone == "" {
		contact.Email = user.Email
		contact.Phone = user.Phone
	}

	item := &Item{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Type:        req.Type,
		Status:      StatusActive,
		Location:    req.Location,
		District:    req.District,
		Date:        req.Date,
		Images:      req.Images,
		ContactInfo: contact,
		ReportedBy:  user.ID,
		ExpiryDate:  now.Add(h.expiry),
		Claims:      []Claim{},
		CreatedAt:   now,
	}
	if err := h.store.Create(c.Request.Context(), item); err != nil {
		response.FromError(c, err)
		return
	}

	h.log.InfoContext(c.Request.Context(), "item reported", "item_id", item.ID.Hex(), "type", item.Type)
	item.Reporter = user.Summary()
	response.Created(c, item, "Item reported successfully")
}

// UpdateItem godoc
// @Summary Update an item
// @Description Allowed for the reporter and for staff covering the item's location.
// @Tags items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Param request body UpdateItemRequest true "Fields to change"
// @Success 200 {object} response.APIResponse{data=Item}
// @Failure 400 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /items/{id} [put]
func (h *Handler) UpdateItem(c *gin.Context) {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return
	}

	id, err := ParseID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if req.Date != nil && req.Date.After(h.now().Add(24*time.Hour)) {
		response.FromError(c, ErrDateInFuture)
		return
	}

	var removed []Image
	ctx := c.Request.Context()
	item, err := h.store.Mutate(ctx, id, func(item *Item) error {
		if err := p.Require(access.UpdateItem, item.Resource()); err != nil {
			return err
		}
		if item.Status == StatusReturned {
			return ErrItemReturned
		}
		removed = req.apply(item, h.now())
		return nil
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	for _, img := range removed {
		h.removeAsset(ctx, img.PublicID, cloudinary.ResourceImage)
	}

	item.RedactFor(&p)
	Populate(ctx, h.users, h.log, item)
	response.Success(c, item, "Item updated successfully")
}

// apply copies the set fields onto item and returns images no longer referenced.
func (req UpdateItemRequest) apply(item *Item, now time.Time) []Image {
	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.Location != nil {
		item.Location = *req.Location
	}
	if req.District != nil {
		item.District = *req.District
	}
	if req.Date != nil {
		item.Date = *req.Date
	}
	if req.ContactInfo != nil {
		item.ContactInfo = *req.ContactInfo
	}

	var removed []Image
	if req.Images != nil {
		kept := make(map[string]bool, len(*req.Images))
		for _, img := range *req.Images {
			kept[img.PublicID] = true
		}
		for _, img := range item.Images {
			if !kept[img.PublicID] {
				removed = append(removed, img)
			}
		}
		item.Images = *req.Images
	}

	item.UpdatedAt = now
	return removed
}

// DeleteItem godoc
// @Summary Delete an item
// @Description Removes the item, its claims and their uploaded files.
// @Tags items
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Success 200 {object} response.APIResponse
// @Failure 403 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /items/{id} [delete]
func (h *Handler) DeleteItem(c *gin.Context) {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return
	}

	id, err := ParseID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	ctx := c.Request.Context()
	item, err := h.store.GetByID(ctx, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if err := p.Require(access.DeleteItem, item.Resource()); err != nil {
		response.FromError(c, err)
		return
	}

	if err := h.store.Delete(ctx, id); err != nil {
		response.FromError(c, err)
		return
	}

	for _, img := range item.Images {
		h.removeAsset(ctx, img.PublicID, cloudinary.ResourceImage)
	}
	for _, claim := range item.Claims {
		for _, doc := range claim.VerificationDocuments {
			h.removeAsset(ctx, doc.PublicID, cloudinary.ResourceTypeFor(doc.Name))
		}
	}

	h.log.InfoContext(ctx, "item deleted", "item_id", id.Hex(), "by", p.UserID.Hex())
	response.Success(c, nil, "Item deleted successfully")
}

// HandoverItem godoc
// @Summary Record a police handover
// @Tags items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Param request body HandoverRequest true "Police report"
// @Success 200 {object} response.APIResponse{data=Item}
// @Failure 403 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /items/handover/{id} [put]
func (h *Handler) HandoverItem(c *gin.Context) {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return
	}

	id, err := ParseID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	var req HandoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	ctx := c.Request.Context()
	item, err := h.store.Mutate(ctx, id, func(item *Item) error {
		if err := p.Require(access.HandOver, item.Resource()); err != nil {
			return err
		}
		return item.Handover(req.PoliceReportNumber, h.now())
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	h.notifier.Notify(ctx, item.ReportedBy, notifications.Message{
		Type:        notifications.TypeItemHandover,
		Title:       "Item handed over to police",
		Message:     fmt.Sprintf("Your item %q was handed over to the police (report %s).", item.Title, req.PoliceReportNumber),
		RelatedItem: &item.ID,
		RelatedUser: &p.UserID,
		Data:        map[string]interface{}{"policeReportNumber": req.PoliceReportNumber},
	})

	item.RedactFor(&p)
	Populate(ctx, h.users, h.log, item)
	response.Success(c, item, "Item handed over to police")
}

// ItemClaims godoc
// @Summary List the claims on an item
// @Tags items
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Success 200 {object} response.APIResponse{data=[]Claim}
// @Failure 403 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /items/{id}/claims [get]
func (h *Handler) ItemClaims(c *gin.Context) {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "AUTH_REQUIRED")
		return
	}

	id, err := ParseID(c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	ctx := c.Request.Context()
	item, err := h.store.GetByID(ctx, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if err := p.Require(access.ViewItemClaims, item.Resource()); err != nil {
		response.FromError(c, err)
		return
	}

	Populate(ctx, h.users, h.log, item)
	response.Success(c, item.Claims)
}

func (h *Handler) removeAsset(ctx context.Context, publicID, resourceType string) {
	if h.assets == nil || publicID == "" {
		return
	}
	if err := h.assets.Delete(ctx, publicID, resourceType); err != nil {
		h.log.WarnContext(ctx, "delete uploaded asset", "public_id", publicID, "error", err)
	}
}
