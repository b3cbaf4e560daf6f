package shared

import "context"

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID   string
	Username string
	Role     string
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

// ActorFromContext returns the name recorded as changedBy for mutations.
func ActorFromContext(ctx context.Context) string {
	if p, ok := PrincipalFromContext(ctx); ok {
		if p.Username != "" {
			return p.Username
		}
		if p.UserID != "" {
			return p.UserID
		}
	}
	return "system"
}
