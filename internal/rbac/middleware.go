package rbac

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopmanager/shopmanager/internal/platform/httpx"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// Middleware wires role checks for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// RequireRole lets the request through when the caller holds any of roles.
// Anonymous callers get 401, others 403.
func (m Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := normalizeRoles(roles)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(allowed) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			p, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, fmt.Errorf("authentication required: %w", shared.ErrUnauthorized))
				return
			}
			if _, ok := allowed[strings.ToLower(p.Role)]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Info("rbac denied",
					slog.String("user", p.UserID),
					slog.String("role", p.Role),
					slog.String("path", r.URL.Path))
			}
			httpx.RespondError(w, fmt.Errorf("role %s may not access this resource: %w", p.Role, shared.ErrForbidden))
		})
	}
}

func normalizeRoles(roles []string) map[string]struct{} {
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(strings.ToLower(r))
		if r == "" {
			continue
		}
		set[r] = struct{}{}
	}
	return set
}
