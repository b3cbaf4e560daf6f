package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopmanager/shopmanager/internal/lifecycle"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsHandlerExposesRuntimeMetrics(t *testing.T) {
	body := scrape(t, NewMetrics())
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `shopmanager_http_requests_total{code="418",route="/test"} 1`)
	assert.Contains(t, body, `shopmanager_http_request_duration_seconds_bucket{route="/test"`)
}

func TestMetricsObserveLifecycle(t *testing.T) {
	metrics := NewMetrics()
	metrics.StockAdjusted("product", lifecycle.ReasonSale, -3)
	metrics.StockAdjusted("product", lifecycle.ReasonSale, -2)
	metrics.ArchiveFailed("supplier")

	body := scrape(t, metrics)
	assert.Contains(t, body, `shopmanager_stock_adjustments_total{entity="product",reason="sale"} 2`)
	assert.Contains(t, body, `shopmanager_stock_units_total{entity="product",reason="sale"} 5`)
	assert.Contains(t, body, `shopmanager_archive_failures_total{entity="supplier"} 1`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.StockAdjusted("product", lifecycle.ReasonSale, 1)
	metrics.ArchiveFailed("product")
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	assert.NotNil(t, metrics.Middleware(next))

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
