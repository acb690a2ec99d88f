package notifications

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/features/auth"
	"github.com/xyz-asif/lostfound/internal/pkg/logger"
	"github.com/xyz-asif/lostfound/internal/pkg/pagination"
	"github.com/xyz-asif/lostfound/internal/pkg/response"
)

// Reader is the notification storage used by the HTTP handlers.
type Reader interface {
	List(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, skip, limit int64) ([]Notification, int64, error)
	CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	MarkAsRead(ctx context.Context, id, recipient primitive.ObjectID) (*Notification, error)
	MarkAllAsRead(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	Delete(ctx context.Context, id, recipient primitive.ObjectID) error
}

// UserDirectory resolves related users for display.
type UserDirectory interface {
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*auth.User, error)
}

// ContentProvider defines interface to fetch item titles for display
type ContentProvider interface {
	ItemTitles(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error)
}

type Handler struct {
	repo    Reader
	users   UserDirectory
	content ContentProvider
	log     logger.Logger
}

func NewHandler(repo Reader, users UserDirectory, content ContentProvider, log logger.Logger) *Handler {
	return &Handler{repo: repo, users: users, content: content, log: log}
}

// ListNotifications godoc
// @Summary List notifications
// @Description Get paginated list of the caller's notifications, unread first
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Items per page (default 10, max 100)"
// @Param unreadOnly query bool false "Only show unread"
// @Success 200 {object} response.APIResponse{data=[]NotificationResponse}
// @Failure 401 {object} response.APIResponse
// @Router /notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	currentUser, ok := auth.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BindError(c, err)
		return
	}
	ValidateListQuery(&query)

	ctx := c.Request.Context()
	notifications, total, err := h.repo.List(ctx, currentUser.ID, query.UnreadOnly, query.Skip(), int64(query.Limit))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Paginated(c, h.enrich(ctx, notifications), pagination.New(query.Page, query.Limit, total))
}

// GetUnreadCount godoc
// @Summary Get unread notification count
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse{data=UnreadCountResponse}
// @Failure 401 {object} response.APIResponse
// @Router /notifications/unread-count [get]
func (h *Handler) GetUnreadCount(c *gin.Context) {
	currentUser, ok := auth.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	count, err := h.repo.CountUnread(c.Request.Context(), currentUser.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, UnreadCountResponse{UnreadCount: count})
}

// MarkAsRead godoc
// @Summary Mark notification as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} response.APIResponse{data=Notification}
// @Failure 400 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /notifications/{id}/read [put]
func (h *Handler) MarkAsRead(c *gin.Context) {
	currentUser, ok := auth.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	notificationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid notification ID", "INVALID_ID")
		return
	}

	// Filtering on recipient makes other users' notifications look absent.
	notification, err := h.repo.MarkAsRead(c.Request.Context(), notificationID, currentUser.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, notification)
}

// MarkAllAsRead godoc
// @Summary Mark all notifications as read
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.APIResponse{data=MarkAllReadResponse}
// @Failure 401 {object} response.APIResponse
// @Router /notifications/mark-all-read [put]
func (h *Handler) MarkAllAsRead(c *gin.Context) {
	currentUser, ok := auth.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	count, err := h.repo.MarkAllAsRead(c.Request.Context(), currentUser.ID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, MarkAllReadResponse{MarkedCount: count})
}

// DeleteNotification godoc
// @Summary Delete a notification
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /notifications/{id} [delete]
func (h *Handler) DeleteNotification(c *gin.Context) {
	currentUser, ok := auth.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "Authentication required", "UNAUTHORIZED")
		return
	}

	notificationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid notification ID", "INVALID_ID")
		return
	}

	if err := h.repo.Delete(c.Request.Context(), notificationID, currentUser.ID); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, nil, "Notification deleted")
}

// enrich attaches related user names and item titles. Lookup failures only
// degrade the payload.
func (h *Handler) enrich(ctx context.Context, notifications []Notification) []NotificationResponse {
	responses := make([]NotificationResponse, len(notifications))
	if len(notifications) == 0 {
		return responses
	}

	var userIDs, itemIDs []primitive.ObjectID
	for _, n := range notifications {
		if n.RelatedUser != nil {
			userIDs = append(userIDs, *n.RelatedUser)
		}
		if n.RelatedItem != nil {
			itemIDs = append(itemIDs, *n.RelatedItem)
		}
	}
	userIDs = uniqueIDs(userIDs)
	itemIDs = uniqueIDs(itemIDs)

	users := map[primitive.ObjectID]*auth.User{}
	if len(userIDs) > 0 && h.users != nil {
		found, err := h.users.GetUsersByIDs(ctx, userIDs)
		if err != nil {
			h.log.WarnContext(ctx, "enrich notification users", "error", err)
		} else {
			users = found
		}
	}

	titles := map[primitive.ObjectID]string{}
	if len(itemIDs) > 0 && h.content != nil {
		found, err := h.content.ItemTitles(ctx, itemIDs)
		if err != nil {
			h.log.WarnContext(ctx, "enrich notification items", "error", err)
		} else {
			titles = found
		}
	}

	for i, n := range notifications {
		resp := NotificationResponse{Notification: n}
		if n.RelatedUser != nil {
			if u, ok := users[*n.RelatedUser]; ok {
				resp.RelatedUserInfo = &RelatedUser{ID: u.ID, Name: u.Name}
			}
		}
		if n.RelatedItem != nil {
			if title, ok := titles[*n.RelatedItem]; ok {
				resp.RelatedItemInfo = &RelatedItem{ID: *n.RelatedItem, Title: title}
			}
		}
		responses[i] = resp
	}
	return responses
}
