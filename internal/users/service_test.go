package users

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmanager/shopmanager/internal/rbac"
	"github.com/shopmanager/shopmanager/internal/shared"
)

type recordingAudit struct{ logs []shared.AuditLog }

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func seed(t *testing.T, repo *Memory, email, role string) User {
	t.Helper()
	u := User{ID: uuid.New(), Username: strings.Split(email, "@")[0], Email: email, Phone: "077", PasswordHash: "hash", Role: role, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUpdateAppliesOnlyGivenFields(t *testing.T) {
	repo := NewMemory()
	audit := &recordingAudit{}
	svc := NewService(repo, audit, nil)
	u := seed(t, repo, "ana@example.com", rbac.RoleCashier)
	seed(t, repo, "ben@example.com", rbac.RoleCashier)
	ctx := context.Background()

	role := rbac.RoleAdmin
	email := "  ANA2@Example.com "
	got, err := svc.Update(ctx, u.ID, UpdateInput{Role: &role, Email: &email}, "root")
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, got.Role)
	assert.Equal(t, "ana2@example.com", got.Email)
	assert.Equal(t, "ana", got.Username)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "user.update", audit.logs[0].Action)

	stored, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", stored.PasswordHash)

	taken := "ben@example.com"
	_, err = svc.Update(ctx, u.ID, UpdateInput{Email: &taken}, "root")
	assert.True(t, errors.Is(err, shared.ErrDuplicateKey))

	bad := "owner"
	_, err = svc.Update(ctx, u.ID, UpdateInput{Role: &bad}, "root")
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestDeleteRejectsSelf(t *testing.T) {
	repo := NewMemory()
	svc := NewService(repo, nil, nil)
	u := seed(t, repo, "ana@example.com", rbac.RoleAdmin)

	err := svc.Delete(context.Background(), u.ID, u.ID.String(), "ana")
	assert.True(t, errors.Is(err, shared.ErrValidation))
	require.NoError(t, svc.Delete(context.Background(), u.ID, uuid.NewString(), "root"))
	assert.True(t, errors.Is(svc.Delete(context.Background(), u.ID, "", "root"), shared.ErrNotFound))
}

func TestUserRoutesRequireManager(t *testing.T) {
	repo := NewMemory()
	u := seed(t, repo, "ana@example.com", rbac.RoleCashier)
	h := NewHandler(nil, NewService(repo, nil, nil), rbac.Middleware{})

	as := func(role string) http.Handler {
		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: "x", Username: "x", Role: role})
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
		r.Route("/users", h.MountRoutes)
		return r
	}

	rec := httptest.NewRecorder()
	as(rbac.RoleCashier).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	as(rbac.RoleAdmin).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ana@example.com")
	assert.NotContains(t, rec.Body.String(), "hash")

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/users/"+u.ID.String(), strings.NewReader(`{"phone":"071"}`))
	as(rbac.RoleSuperAdmin).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"phone":"071"`)

	rec = httptest.NewRecorder()
	as(rbac.RoleAdmin).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/users/"+u.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "User deleted successfully")
}
