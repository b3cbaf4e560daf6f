package app

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmanager/shopmanager/internal/ledger"
	"github.com/shopmanager/shopmanager/internal/observability"
	"github.com/shopmanager/shopmanager/internal/sequence"
	"github.com/shopmanager/shopmanager/internal/shared"
)

type staticAuth struct{}

func (staticAuth) Authenticate(raw string) (shared.Principal, error) {
	if raw != "good" {
		return shared.Principal{}, fmt.Errorf("bad token: %w", shared.ErrUnauthorized)
	}
	return shared.Principal{UserID: "u1", Username: "nimal", Role: "admin"}, nil
}

func newTestRouter() http.Handler {
	ledgerSvc := ledger.NewService(ledger.NewMemory(), sequence.NewMemory(), nil)
	return NewRouter(RouterParams{
		Config:        &Config{AppEnv: "test", RateLimitPerMin: 1000},
		Authenticator: staticAuth{},
		Metrics:       observability.NewMetrics(),
		LedgerHandler: ledger.NewHandler(nil, ledgerSvc),
	})
}

func TestRouterPublicEndpoints(t *testing.T) {
	r := newTestRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shopmanager_http_requests_total")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"Route not found"`)
}

func TestRouterRequiresBearer(t *testing.T) {
	r := newTestRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/maintenance", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/maintenance", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/deviceIssues", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPatch, "/maintenance", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouterSkipsUnsetHandlers(t *testing.T) {
	r := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
