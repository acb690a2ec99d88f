package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/xyz-asif/lostfound/internal/features/analytics"
	"github.com/xyz-asif/lostfound/internal/features/auth"
	"github.com/xyz-asif/lostfound/internal/features/items"
	"github.com/xyz-asif/lostfound/internal/features/items/itemstest"
	"github.com/xyz-asif/lostfound/internal/pkg/access"
	"github.com/xyz-asif/lostfound/internal/pkg/logger"
)

type memUsers struct {
	byID map[primitive.ObjectID]*auth.User
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*auth.User, error) {
	oid, _ := primitive.ObjectIDFromHex(id)
	u, ok := m.byID[oid]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) UpdateUser(_ context.Context, id primitive.ObjectID, updates bson.M) error {
	u, ok := m.byID[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	if v, ok := updates["role"]; ok {
		u.Role = v.(access.Role)
	}
	if v, ok := updates["branch"]; ok {
		u.Branch = v.(string)
	}
	if v, ok := updates["isActive"]; ok {
		u.IsActive = v.(bool)
	}
	return nil
}

func (m *memUsers) List(_ context.Context, f auth.ListFilter, _, _ int64) ([]auth.User, int64, error) {
	out := []auth.User{}
	for _, u := range m.byID {
		if f.Role == "" || u.Role == f.Role {
			out = append(out, *u)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memUsers) CountByRole(context.Context) (map[access.Role]int64, error) {
	counts := map[access.Role]int64{}
	for _, u := range m.byID {
		counts[u.Role]++
	}
	return counts, nil
}

type fixedOverview struct{}

func (fixedOverview) Overview(context.Context, access.Scope, int) (*analytics.Overview, error) {
	return &analytics.Overview{Totals: analytics.Totals{Items: 9, Active: 4}}, nil
}

type fixture struct {
	users  *memUsers
	store  *itemstest.Store
	admin  *auth.User
	caller *auth.User
	router *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	admin := &auth.User{ID: primitive.NewObjectID(), Name: "Admin", Role: access.RoleAdmin, IsActive: true}
	f := &fixture{
		users:  &memUsers{byID: map[primitive.ObjectID]*auth.User{admin.ID: admin}},
		store:  itemstest.New(),
		admin:  admin,
		caller: admin,
	}
	authenticate := func(c *gin.Context) {
		c.Set(auth.ContextUserKey, f.caller)
		c.Next()
	}

	f.router = gin.New()
	RegisterRoutes(f.router.Group("/api/v1"), NewHandler(f.users, f.store, fixedOverview{}, nil, logger.Nop()), authenticate)
	return f
}

func (f *fixture) addUser(role access.Role) *auth.User {
	u := &auth.User{ID: primitive.NewObjectID(), Name: "Someone", Role: role, IsActive: true}
	f.users.byID[u.ID] = u
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

func TestUpdateUserRole(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(access.RoleUser)
	path := "/api/v1/admin/users/" + user.ID.Hex() + "/role"

	w, resp := f.do(t, http.MethodPut, path, map[string]any{"role": "staff"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "BRANCH_REQUIRED", resp["code"])

	w, _ = f.do(t, http.MethodPut, path, map[string]any{"role": "staff", "branch": " Central "})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, access.RoleStaff, f.users.byID[user.ID].Role)
	require.Equal(t, "Central", f.users.byID[user.ID].Branch)

	w, _ = f.do(t, http.MethodPut, path, map[string]any{"role": "overlord"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPut, "/api/v1/admin/users/"+primitive.NewObjectID().Hex()+"/role", map[string]any{"role": "user"})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateUserRole_CannotDemoteSelf(t *testing.T) {
	f := newFixture(t)
	w, resp := f.do(t, http.MethodPut, "/api/v1/admin/users/"+f.admin.ID.Hex()+"/role", map[string]any{"role": "user"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "OWN_ROLE", resp["code"])
}

func TestUpdateUserStatus(t *testing.T) {
	f := newFixture(t)
	user := f.addUser(access.RoleUser)

	w, _ := f.do(t, http.MethodPut, "/api/v1/admin/users/"+user.ID.Hex()+"/status", map[string]any{"isActive": false})
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, f.users.byID[user.ID].IsActive)

	w, _ = f.do(t, http.MethodPut, "/api/v1/admin/users/"+user.ID.Hex()+"/status", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, resp := f.do(t, http.MethodPut, "/api/v1/admin/users/"+f.admin.ID.Hex()+"/status", map[string]any{"isActive": false})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "OWN_STATUS", resp["code"])
}

func TestAdminRoutesRejectStaff(t *testing.T) {
	f := newFixture(t)
	f.caller = f.addUser(access.RoleStaff)

	w, _ := f.do(t, http.MethodGet, "/api/v1/admin/users", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestOverrideItemStatus(t *testing.T) {
	f := newFixture(t)
	item := &items.Item{
		Title:      "Red scarf",
		Status:     items.StatusReturned,
		ReportedBy: primitive.NewObjectID(),
		ExpiryDate: time.Now().Add(time.Hour),
	}
	require.NoError(t, f.store.Create(context.Background(), item))
	path := "/api/v1/admin/items/" + item.ID.Hex() + "/status"

	w, _ := f.do(t, http.MethodPut, path, map[string]any{"status": "active", "reason": "returned by mistake"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, items.StatusActive, f.store.Get(item.ID).Status)

	w, resp := f.do(t, http.MethodPut, path, map[string]any{"status": "lost"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "INVALID_ITEM_STATUS", resp["code"])
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	f.addUser(access.RoleUser)
	f.addUser(access.RoleStaff)

	w, resp := f.do(t, http.MethodGet, "/api/v1/admin/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]any)
	require.Equal(t, float64(3), data["totalUsers"])
	require.Equal(t, float64(9), data["items"].(map[string]any)["totalItems"])
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)
	f.addUser(access.RoleStaff)

	w, resp := f.do(t, http.MethodGet, "/api/v1/admin/users?role=staff", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["data"], 1)
}

func TestDeadLetters_DisabledWithoutRedis(t *testing.T) {
	f := newFixture(t)
	w, resp := f.do(t, http.MethodGet, "/api/v1/admin/notifications/dead-letters", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Equal(t, "DEAD_LETTERS_DISABLED", resp["code"])
}
