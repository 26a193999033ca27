package authn

import (
	"context"
	"net/http"

	"github.com/tradevault/identity/pkg/apperr"
	"github.com/tradevault/identity/pkg/token"
	"github.com/tradevault/identity/pkg/user"
)

// contextKey is a private type for context keys in the authn package.
type contextKey string

const principalKey contextKey = "authn_principal"

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p *token.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal from context, or nil if unset.
func PrincipalFromContext(ctx context.Context) *token.Principal {
	p, _ := ctx.Value(principalKey).(*token.Principal)
	return p
}

// Guard enforces the system's two authorization predicates on top of the
// resolver. There is no finer-grained role model.
type Guard struct {
	resolver *Resolver
	users    user.Store
}

// NewGuard creates a guard.
func NewGuard(resolver *Resolver, users user.Store) *Guard {
	return &Guard{resolver: resolver, users: users}
}

// RequireSession returns the request's principal or an unauthorized error.
func (g *Guard) RequireSession(ctx context.Context, req *http.Request) (*token.Principal, error) {
	principal, err := g.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if principal == nil {
		return nil, apperr.Unauthorized("authentication required")
	}
	return principal, nil
}

// RequireAdmin returns the principal if it belongs to an administrator,
// a forbidden error if not, and an unauthorized error when there is no
// valid session at all.
func (g *Guard) RequireAdmin(ctx context.Context, req *http.Request) (*token.Principal, error) {
	principal, err := g.RequireSession(ctx, req)
	if err != nil {
		return nil, err
	}

	u, err := g.users.GetByID(ctx, principal.UserID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u == nil || !u.IsAdmin {
		return nil, apperr.Forbidden("admin privilege required")
	}
	return principal, nil
}

// Middleware resolves the session and injects the principal into the
// request context, rejecting unauthenticated requests with 401. Handlers
// behind it can read the principal with PrincipalFromContext.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := g.RequireSession(r.Context(), r)
		if err != nil {
			appErr := apperr.FromError(err)
			http.Error(w, appErr.Message, appErr.Status())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}
