package items_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/features/auth"
	"github.com/xyz-asif/lostfound/internal/features/items"
	"github.com/xyz-asif/lostfound/internal/features/items/itemstest"
	"github.com/xyz-asif/lostfound/internal/features/notifications"
	"github.com/xyz-asif/lostfound/internal/pkg/access"
	"github.com/xyz-asif/lostfound/internal/pkg/logger"
)

type directory map[primitive.ObjectID]*auth.User

func (d directory) GetUsersByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*auth.User, error) {
	out := map[primitive.ObjectID]*auth.User{}
	for _, id := range ids {
		if u, ok := d[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type sent struct {
	recipient primitive.ObjectID
	msg       notifications.Message
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (n *recordingNotifier) Notify(_ context.Context, recipient primitive.ObjectID, msg notifications.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{recipient, msg})
}

func (n *recordingNotifier) NotifyMany(ctx context.Context, recipients []primitive.ObjectID, msg notifications.Message) {
	for _, r := range recipients {
		n.Notify(ctx, r, msg)
	}
}

type removedAssets struct {
	ids []string
}

func (r *removedAssets) Delete(_ context.Context, publicID, _ string) error {
	r.ids = append(r.ids, publicID)
	return nil
}

type fixture struct {
	store    *itemstest.Store
	notifier *recordingNotifier
	assets   *removedAssets
	users    directory
	router   *gin.Engine
	caller   *auth.User
}

func newFixture(t *testing.T, seed ...*items.Item) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		store:    itemstest.New(seed...),
		notifier: &recordingNotifier{},
		assets:   &removedAssets{},
		users:    directory{},
	}
	h := items.NewHandler(f.store, f.users, f.notifier, f.assets, 30*24*time.Hour, logger.Nop())

	withUser := func(c *gin.Context) {
		if f.caller != nil {
			c.Set(auth.ContextUserKey, f.caller)
		}
		c.Next()
	}
	requireUser := func(c *gin.Context) {
		if f.caller == nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(auth.ContextUserKey, f.caller)
		c.Next()
	}

	f.router = gin.New()
	items.RegisterRoutes(f.router.Group("/api"), h, requireUser, withUser)
	return f
}

func (f *fixture) as(role access.Role, branch string) *auth.User {
	u := &auth.User{ID: primitive.NewObjectID(), Name: "Test " + string(role), Email: string(role) + "@example.com", Role: role, Branch: branch, IsActive: true}
	f.users[u.ID] = u
	f.caller = u
	return u
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func seedItem(reporter primitive.ObjectID, location string) *items.Item {
	return &items.Item{
		ID:         primitive.NewObjectID(),
		Title:      "Blue umbrella",
		Category:   items.CategoryOther,
		Type:       items.TypeFound,
		Status:     items.StatusActive,
		Location:   location,
		ReportedBy: reporter,
		ExpiryDate: time.Now().Add(24 * time.Hour),
		Images:     []items.Image{{URL: "https://res.example.com/a.jpg", PublicID: "lostfound/a"}},
		CreatedAt:  time.Now(),
	}
}

func TestCreateItem(t *testing.T) {
	f := newFixture(t)
	user := f.as(access.RoleUser, "")

	w, resp := f.do(t, http.MethodPost, "/api/items", map[string]any{
		"title":       "Lost keys",
		"description": "Three keys on a red ring",
		"category":    "keys",
		"type":        "lost",
		"location":    "Central Park",
		"date":        time.Now().Add(-time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, true, resp["success"])

	data := resp["data"].(map[string]any)
	require.Equal(t, "active", data["status"])
	require.Equal(t, user.ID.Hex(), data["reportedById"])
	contact := data["contactInfo"].(map[string]any)
	require.Equal(t, user.Email, contact["email"])
}

func TestCreateItem_Validation(t *testing.T) {
	f := newFixture(t)
	f.as(access.RoleUser, "")

	w, resp := f.do(t, http.MethodPost, "/api/items", map[string]any{"title": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, false, resp["success"])

	w, _ = f.do(t, http.MethodPost, "/api/items", map[string]any{
		"title":       "Lost keys",
		"description": "Three keys on a red ring",
		"category":    "keys",
		"type":        "lost",
		"location":    "Central Park",
		"date":        time.Now().Add(72 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListItems_DefaultsToActive(t *testing.T) {
	reporter := primitive.NewObjectID()
	active := seedItem(reporter, "Central")
	returned := seedItem(reporter, "Central")
	returned.Status = items.StatusReturned
	f := newFixture(t, active, returned)

	w, resp := f.do(t, http.MethodGet, "/api/items", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["data"], 1)
	require.Equal(t, float64(1), resp["pagination"].(map[string]any)["total"])

	_, resp = f.do(t, http.MethodGet, "/api/items?status=all", nil)
	require.Len(t, resp["data"], 2)

	w, _ = f.do(t, http.MethodGet, "/api/items?status=lost", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListItems_HidesOverdueActiveItems(t *testing.T) {
	reporter := primitive.NewObjectID()
	open := seedItem(reporter, "Central")
	overdue := seedItem(reporter, "Central")
	overdue.ExpiryDate = time.Now().Add(-time.Minute)
	f := newFixture(t, open, overdue)

	_, resp := f.do(t, http.MethodGet, "/api/items", nil)
	require.Len(t, resp["data"], 1)
	require.Equal(t, open.ID.Hex(), resp["data"].([]any)[0].(map[string]any)["id"])

	_, resp = f.do(t, http.MethodGet, "/api/items?status=active", nil)
	require.Len(t, resp["data"], 1)

	_, resp = f.do(t, http.MethodGet, "/api/items?status=all", nil)
	require.Len(t, resp["data"], 2)
}

func TestGetItem_RedactsClaims(t *testing.T) {
	reporter := primitive.NewObjectID()
	item := seedItem(reporter, "Central")
	other := primitive.NewObjectID()
	item.Claims = []items.Claim{{ID: primitive.NewObjectID(), Claimant: other, Status: items.ClaimPending}}
	f := newFixture(t, item)

	_, resp := f.do(t, http.MethodGet, "/api/items/"+item.ID.Hex(), nil)
	data := resp["data"].(map[string]any)
	require.Empty(t, data["claims"])
	require.Equal(t, float64(1), data["claimCount"])

	f.as(access.RoleStaff, "central")
	_, resp = f.do(t, http.MethodGet, "/api/items/"+item.ID.Hex(), nil)
	require.Len(t, resp["data"].(map[string]any)["claims"], 1)

	w, _ := f.do(t, http.MethodGet, "/api/items/not-an-id", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodGet, "/api/items/"+primitive.NewObjectID().Hex(), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateItem(t *testing.T) {
	f := newFixture(t)
	owner := f.as(access.RoleUser, "")
	item := seedItem(owner.ID, "Central")
	require.NoError(t, f.store.Create(context.Background(), item))

	w, resp := f.do(t, http.MethodPut, "/api/items/"+item.ID.Hex(), map[string]any{
		"title":  "Navy umbrella",
		"images": []map[string]any{},
	})
	require.Equal(t, http.StatusOK, w.Code, resp)
	require.Equal(t, "Navy umbrella", f.store.Get(item.ID).Title)
	require.Equal(t, []string{"lostfound/a"}, f.assets.ids)

	f.as(access.RoleStaff, "North Branch")
	w, resp = f.do(t, http.MethodPut, "/api/items/"+item.ID.Hex(), map[string]any{"title": "Hijacked"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "FORBIDDEN", resp["code"])

	f.as(access.RoleStaff, "Central")
	w, _ = f.do(t, http.MethodPut, "/api/items/"+item.ID.Hex(), map[string]any{"district": "Old Town"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteItem_RemovesUploads(t *testing.T) {
	f := newFixture(t)
	owner := f.as(access.RoleUser, "")
	item := seedItem(owner.ID, "Central")
	item.Claims = []items.Claim{{
		ID:       primitive.NewObjectID(),
		Claimant: primitive.NewObjectID(),
		Status:   items.ClaimPending,
		VerificationDocuments: []items.Document{
			{URL: "https://res.example.com/r.pdf", Name: "receipt.pdf", PublicID: "lostfound/r"},
		},
	}}
	require.NoError(t, f.store.Create(context.Background(), item))

	f.as(access.RoleUser, "")
	w, _ := f.do(t, http.MethodDelete, "/api/items/"+item.ID.Hex(), nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	f.caller = owner
	w, _ = f.do(t, http.MethodDelete, "/api/items/"+item.ID.Hex(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, f.store.Get(item.ID))
	require.ElementsMatch(t, []string{"lostfound/a", "lostfound/r"}, f.assets.ids)
}

func TestHandover_NotifiesReporter(t *testing.T) {
	reporter := primitive.NewObjectID()
	item := seedItem(reporter, "Central Station")
	f := newFixture(t, item)
	f.as(access.RoleStaff, "central")

	w, resp := f.do(t, http.MethodPut, "/api/items/handover/"+item.ID.Hex(), map[string]any{"policeReportNumber": "PR-7"})
	require.Equal(t, http.StatusOK, w.Code, resp)
	require.True(t, f.store.Get(item.ID).HandedOverToPolice)

	require.Len(t, f.notifier.sent, 1)
	require.Equal(t, reporter, f.notifier.sent[0].recipient)
	require.Equal(t, notifications.TypeItemHandover, f.notifier.sent[0].msg.Type)
}

func TestItemClaims_RequiresCoverage(t *testing.T) {
	reporter := primitive.NewObjectID()
	item := seedItem(reporter, "Central")
	f := newFixture(t, item)

	f.as(access.RoleUser, "")
	w, _ := f.do(t, http.MethodGet, "/api/items/"+item.ID.Hex()+"/claims", nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	f.as(access.RoleAdmin, "")
	w, resp := f.do(t, http.MethodGet, "/api/items/"+item.ID.Hex()+"/claims", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, resp["data"])
}

func TestMyItems(t *testing.T) {
	f := newFixture(t)
	me := f.as(access.RoleUser, "")
	mine := seedItem(me.ID, "Central")
	mine.Status = items.StatusExpired
	require.NoError(t, f.store.Create(context.Background(), mine))
	require.NoError(t, f.store.Create(context.Background(), seedItem(primitive.NewObjectID(), "Central")))

	w, resp := f.do(t, http.MethodGet, "/api/items/my-items", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["data"], 1)
}
