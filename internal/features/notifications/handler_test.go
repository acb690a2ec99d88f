package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/features/auth"
	"github.com/xyz-asif/lostfound/internal/pkg/access"
	"github.com/xyz-asif/lostfound/internal/pkg/logger"
)

type memReader struct {
	items []Notification
}

func (m *memReader) List(_ context.Context, recipient primitive.ObjectID, unreadOnly bool, skip, limit int64) ([]Notification, int64, error) {
	var matched []Notification
	for _, n := range m.items {
		if n.Recipient == recipient && (!unreadOnly || !n.IsRead) {
			matched = append(matched, n)
		}
	}
	total := int64(len(matched))
	if skip >= total {
		return []Notification{}, total, nil
	}
	end := min(skip+limit, total)
	return matched[skip:end], total, nil
}

func (m *memReader) CountUnread(_ context.Context, recipient primitive.ObjectID) (int64, error) {
	var n int64
	for _, item := range m.items {
		if item.Recipient == recipient && !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *memReader) MarkAsRead(_ context.Context, id, recipient primitive.ObjectID) (*Notification, error) {
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].Recipient == recipient {
			m.items[i].IsRead = true
			return &m.items[i], nil
		}
	}
	return nil, ErrNotificationNotFound
}

func (m *memReader) MarkAllAsRead(_ context.Context, recipient primitive.ObjectID) (int64, error) {
	var n int64
	for i := range m.items {
		if m.items[i].Recipient == recipient && !m.items[i].IsRead {
			m.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *memReader) Delete(_ context.Context, id, recipient primitive.ObjectID) error {
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].Recipient == recipient {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return ErrNotificationNotFound
}

type titles map[primitive.ObjectID]string

func (t titles) ItemTitles(context.Context, []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	return t, nil
}

func setup(reader *memReader, content ContentProvider, user *auth.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(reader, nil, content, logger.Nop())

	r := gin.New()
	withUser := func(c *gin.Context) {
		c.Set(auth.ContextUserKey, user)
		c.Next()
	}
	RegisterRoutes(r.Group("/api/v1"), h, withUser)
	return r
}

func TestNotificationRoutes(t *testing.T) {
	me := &auth.User{ID: primitive.NewObjectID(), Role: access.RoleUser, IsActive: true}
	other := primitive.NewObjectID()
	item := primitive.NewObjectID()

	reader := &memReader{items: []Notification{
		{ID: primitive.NewObjectID(), Recipient: me.ID, Type: TypeClaimApproved, RelatedItem: &item},
		{ID: primitive.NewObjectID(), Recipient: me.ID, Type: TypeItemClaimed, IsRead: true},
		{ID: primitive.NewObjectID(), Recipient: other, Type: TypeClaimRejected},
	}}
	r := setup(reader, titles{item: "Black wallet"}, me)

	t.Run("list is paginated and enriched", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/notifications?limit=1", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Data       []NotificationResponse `json:"data"`
			Pagination map[string]any         `json:"pagination"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Data, 1)
		require.Equal(t, "Black wallet", body.Data[0].RelatedItemInfo.Title)
		require.Equal(t, float64(2), body.Pagination["total"])
		require.Equal(t, true, body.Pagination["hasNext"])
		require.Equal(t, false, body.Pagination["hasPrev"])
	})

	t.Run("unread count", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/notifications/unread-count", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"unreadCount":1`)
	})

	t.Run("cannot touch another user's notification", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("PUT", "/api/v1/notifications/"+reader.items[2].ID.Hex()+"/read", nil))
		require.Equal(t, http.StatusNotFound, w.Code)

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/notifications/"+reader.items[2].ID.Hex(), nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("PUT", "/api/v1/notifications/nope/read", nil))
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("mark all read", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("PUT", "/api/v1/notifications/mark-all-read", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), `"markedCount":1`)
		require.False(t, reader.items[2].IsRead)
	})

	t.Run("delete own", func(t *testing.T) {
		id := reader.items[0].ID
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("DELETE", "/api/v1/notifications/"+id.Hex(), nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, reader.items, 2)
	})
}
