package audithttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/shopmanager/shopmanager/internal/platform/httpx"
	"github.com/shopmanager/shopmanager/internal/rbac"
	"github.com/shopmanager/shopmanager/internal/shared"
)

const rateLimit = 10
const rateWindow = time.Minute

// MountRoutes registers the timeline and its CSV export. Superadmin only.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Error(w, http.StatusTooManyRequests, "Too many export requests", "")
		}),
	)
	r.Use(h.rbac.RequireRole(rbac.RoleSuperAdmin))
	r.Get("/", h.handleTimeline)
	r.With(limiter).Get("/export.csv", h.handleExport)
}

func rateLimitKey(r *http.Request) (string, error) {
	if p, ok := shared.PrincipalFromContext(r.Context()); ok && p.UserID != "" {
		return "user:" + p.UserID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
