package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/shopmanager/shopmanager/internal/audit/http"
	"github.com/shopmanager/shopmanager/internal/auth"
	"github.com/shopmanager/shopmanager/internal/dashboard"
	"github.com/shopmanager/shopmanager/internal/ledger"
	"github.com/shopmanager/shopmanager/internal/observability"
	"github.com/shopmanager/shopmanager/internal/payments"
	"github.com/shopmanager/shopmanager/internal/platform/httpx"
	"github.com/shopmanager/shopmanager/internal/products"
	"github.com/shopmanager/shopmanager/internal/repairs"
	"github.com/shopmanager/shopmanager/internal/staff"
	"github.com/shopmanager/shopmanager/internal/suppliers"
	"github.com/shopmanager/shopmanager/internal/users"
	"github.com/shopmanager/shopmanager/jobs"
)

// RouterParams groups dependencies for building the HTTP router. Nil
// handlers are skipped.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	Authenticator auth.Authenticator
	Metrics       *observability.Metrics

	AuthHandler      *auth.Handler
	UsersHandler     *users.Handler
	AuditHandler     *audithttp.Handler
	ProductsHandler  *products.Handler
	SuppliersHandler *suppliers.Handler
	RepairsHandler   *repairs.Handler
	PaymentsHandler  *payments.Handler
	DashboardHandler *dashboard.Handler
	StaffHandler     *staff.Handler
	LedgerHandler    *ledger.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	if !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.NotFound(httpx.NotFoundHandler)
	r.MethodNotAllowed(httpx.MethodNotAllowedHandler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireBearer(params.Authenticator))

		mount(r, "/users", params.UsersHandler, func(h *users.Handler) func(chi.Router) { return h.MountRoutes })
		mount(r, "/audit", params.AuditHandler, func(h *audithttp.Handler) func(chi.Router) { return h.MountRoutes })
		mount(r, "/products", params.ProductsHandler, func(h *products.Handler) func(chi.Router) { return h.MountRoutes })
		mount(r, "/clicked-products", params.ProductsHandler, func(h *products.Handler) func(chi.Router) { return h.MountClicks })
		mount(r, "/suppliers", params.SuppliersHandler, func(h *suppliers.Handler) func(chi.Router) { return h.MountRoutes })
		mount(r, "/repairs", params.RepairsHandler, func(h *repairs.Handler) func(chi.Router) { return h.MountRoutes })
		mount(r, "/payments", params.PaymentsHandler, func(h *payments.Handler) func(chi.Router) { return h.MountRoutes })
		mount(r, "/returns", params.PaymentsHandler, func(h *payments.Handler) func(chi.Router) { return h.MountReturns })
		mount(r, "/dashboard", params.DashboardHandler, func(h *dashboard.Handler) func(chi.Router) { return h.MountRoutes })
		mount(r, "/cashiers", params.StaffHandler, func(h *staff.Handler) func(chi.Router) { return h.MountCashiers })
		mount(r, "/attendance", params.StaffHandler, func(h *staff.Handler) func(chi.Router) { return h.MountAttendance })
		mount(r, "/salaries", params.StaffHandler, func(h *staff.Handler) func(chi.Router) { return h.MountSalaries })
		mount(r, "/extra-income", params.LedgerHandler, func(h *ledger.Handler) func(chi.Router) { return h.MountExtraIncome })
		mount(r, "/maintenance", params.LedgerHandler, func(h *ledger.Handler) func(chi.Router) { return h.MountMaintenance })
		mount(r, "/deviceTypes", params.LedgerHandler, func(h *ledger.Handler) func(chi.Router) { return h.MountCatalog(ledger.DeviceTypes) })
		mount(r, "/deviceIssues", params.LedgerHandler, func(h *ledger.Handler) func(chi.Router) { return h.MountCatalog(ledger.DeviceIssues) })
		mount(r, "/customers", params.LedgerHandler, func(h *ledger.Handler) func(chi.Router) { return h.MountCustomers })
		mount(r, "/jobs", params.JobHandler, func(h *jobs.Handler) func(chi.Router) { return h.MountRoutes })
	})

	return r
}

func mount[H any](r chi.Router, pattern string, h *H, routes func(*H) func(chi.Router)) {
	if h == nil {
		return
	}
	r.Route(pattern, routes(h))
}
