package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shopmanager/shopmanager/internal/platform/httpx"
	"github.com/shopmanager/shopmanager/internal/shared"
)

// Authenticator resolves bearer tokens to principals.
type Authenticator interface {
	Authenticate(raw string) (shared.Principal, error)
}

// RequireBearer rejects requests without a valid bearer token and attaches
// the principal otherwise.
func RequireBearer(a Authenticator) func(http.Handler) http.Handler {
	return bearer(a, true)
}

// OptionalBearer attaches the principal when a token is sent. An invalid
// token is still rejected.
func OptionalBearer(a Authenticator) func(http.Handler) http.Handler {
	return bearer(a, false)
}

func bearer(a Authenticator, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				if required {
					httpx.RespondError(w, fmt.Errorf("missing bearer token: %w", shared.ErrUnauthorized))
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			p, err := a.Authenticate(raw)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
