package audithttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmanager/shopmanager/internal/audit"
	"github.com/shopmanager/shopmanager/internal/rbac"
	"github.com/shopmanager/shopmanager/internal/shared"
)

type stubTimelineService struct {
	result      audit.Result
	exportRows  []audit.TimelineRow
	lastFilters audit.TimelineFilters
}

func (s *stubTimelineService) Timeline(_ context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.lastFilters = filters
	return s.result, nil
}

func (s *stubTimelineService) Export(_ context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.lastFilters = filters
	return s.exportRows, nil
}

func newRouter(service *stubTimelineService) http.Handler {
	h := NewHandler(nil, service, rbac.Middleware{})
	h.now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Route("/audit", h.MountRoutes)
	return r
}

func request(role, target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if role != "" {
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: "u1", Username: "root", Role: role}))
	}
	return req
}

func TestTimelineRequiresSuperadmin(t *testing.T) {
	r := newRouter(&stubTimelineService{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, request("", "/audit"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, request(rbac.RoleAdmin, "/audit"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTimelineDefaultsAndFilters(t *testing.T) {
	service := &stubTimelineService{result: audit.Result{Rows: []audit.TimelineRow{{ID: 1, Actor: "root"}}, Paging: audit.PagingInfo{Page: 1, PageSize: 20}}}
	r := newRouter(service)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, request(rbac.RoleSuperAdmin, "/audit?actor=root"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"actor":"root"`)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), service.lastFilters.To)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), service.lastFilters.From)
	assert.Equal(t, "root", service.lastFilters.Actor)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, request(rbac.RoleSuperAdmin, "/audit?from=2026-03-01&to=2026-03-05&page=2&pageSize=10"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), service.lastFilters.To)
	assert.Equal(t, 2, service.lastFilters.Page)
	assert.Equal(t, 10, service.lastFilters.PageSize)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	r := newRouter(&stubTimelineService{})
	for _, target := range []string{
		"/audit?from=yesterday",
		"/audit?from=2026-03-10&to=2026-03-01",
		"/audit?from=2025-01-01&to=2026-03-01",
		"/audit?page=0",
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, request(rbac.RoleSuperAdmin, target))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestExportCSV(t *testing.T) {
	service := &stubTimelineService{exportRows: []audit.TimelineRow{{ID: 3, Actor: "root", Action: "user.delete", Entity: "user", EntityID: "u2"}}}
	r := newRouter(service)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, request(rbac.RoleSuperAdmin, "/audit/export.csv?from=2026-03-01&to=2026-03-05"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, rec.Body.String(), "3,0001-01-01T00:00:00Z,root,user.delete,user,u2,")
}
