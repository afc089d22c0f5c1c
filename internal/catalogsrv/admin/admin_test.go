package admin

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/datacatalog/internal/catalogsrv/catcommon"
	"github.com/tansive/datacatalog/internal/catalogsrv/datasets"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/memstore"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
)

func addUser(t *testing.T, store *memstore.Store, name, role, status string, created time.Time) *models.User {
	t.Helper()
	u := &models.User{
		ID:        catcommon.NewID(),
		Username:  name,
		Email:     name + "@example.com",
		Role:      role,
		Status:    status,
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.Nil(t, store.CreateUser(context.Background(), u))
	return u
}

func newTestService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return NewService(store, datasets.NewActivityLog(store, nil)), store
}

func TestSetStatus(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	root := addUser(t, store, "root", models.RoleAdmin, models.StatusActive, base)
	alice := addUser(t, store, "alice", models.RoleUser, models.StatusUnverified, base.Add(time.Hour))

	tests := []struct {
		name    string
		id      string
		status  string
		wantErr error
	}{
		{"activate", alice.ID.String(), models.StatusActive, nil},
		{"deactivate", alice.ID.String(), models.StatusInactive, nil},
		{"unknown status", alice.ID.String(), "banned", ErrInvalidStatus},
		{"admin target", root.ID.String(), models.StatusInactive, ErrAdminTarget},
		{"missing user", "0b0f6f4c-8a8d-4d4e-9a5b-3f1b2f0c9e11", models.StatusActive, ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := uuid.MustParse(tt.id)
			u, err := s.SetStatus(ctx, "root", id, tt.status)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, tt.status, u.Status)
			stored, serr := store.GetUser(ctx, id)
			require.Nil(t, serr)
			assert.Equal(t, tt.status, stored.Status)
		})
	}

	acts, err := datasets.NewActivityLog(store, nil).Recent(ctx, "root", 0)
	require.Nil(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, datasets.ActivityUserStatusUpdate, acts[0].ActivityType)
}

func TestApproveAndList(t *testing.T) {
	s, store := newTestService(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	addUser(t, store, "root", models.RoleAdmin, models.StatusActive, base)
	bob := addUser(t, store, "bob", models.RoleUser, models.StatusUnverified, base.Add(time.Hour))
	addUser(t, store, "carol", models.RoleUser, models.StatusUnverified, base.Add(2*time.Hour))

	pending, err := s.Users(ctx, models.StatusUnverified)
	require.Nil(t, err)
	assert.Len(t, pending, 2)

	u, err := s.Approve(ctx, "root", bob.ID)
	require.Nil(t, err)
	assert.Equal(t, models.StatusActive, u.Status)

	pending, err = s.Users(ctx, models.StatusUnverified)
	require.Nil(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "carol", pending[0].Username)

	all, err := s.Users(ctx, "")
	require.Nil(t, err)
	assert.Len(t, all, 3)

	_, err = s.Users(ctx, "nope")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRoutes(t *testing.T) {
	s, store := newTestService(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	root := addUser(t, store, "root", models.RoleAdmin, models.StatusActive, base)
	dave := addUser(t, store, "dave", models.RoleUser, models.StatusUnverified, base.Add(time.Hour))
	router := Router(s)

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, jsoniter.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req = req.WithContext(catcommon.WithUserContext(req.Context(), &catcommon.UserContext{
			UserID: root.ID, Username: root.Username, Role: root.Role,
		}))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodGet, "/users/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list usersRsp
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Users, 1)
	assert.Equal(t, "dave", list.Users[0].Username)

	rec = do(http.MethodPut, "/users/"+dave.ID.String()+"/status", map[string]string{"status": "banned"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(http.MethodPut, "/users/"+root.ID.String()+"/status", map[string]string{"status": "inactive"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(http.MethodPost, "/users/not-an-id/approve", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(http.MethodPost, "/users/"+dave.ID.String()+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"active"`)

	rec = do(http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password_hash")
}
