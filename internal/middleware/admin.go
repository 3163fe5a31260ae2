package middleware

import (
	"context"
	"net/http"

	"kairo-backend/internal/auth"
	"kairo-backend/internal/httpx"
)

// AccessCookie carries the admin access token issued at login.
const AccessCookie = "kairo_access"

type principalKey struct{}

// Principal identifies the authenticated back-office caller.
type Principal struct {
	Subject string
	Role    string
	ViaKey  bool
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// IsAdmin reports whether the request was authenticated as an administrator.
func IsAdmin(ctx context.Context) bool {
	p, ok := PrincipalFromContext(ctx)
	return ok && p.Role == auth.RoleAdmin
}

func resolvePrincipal(r *http.Request, adminKey string, manager *auth.Manager) (Principal, bool) {
	if adminKey != "" && r.Header.Get("X-Admin-Key") == adminKey {
		return Principal{Subject: "api-key", Role: auth.RoleAdmin, ViaKey: true}, true
	}
	if manager == nil {
		return Principal{}, false
	}
	cookie, err := r.Cookie(AccessCookie)
	if err != nil || cookie.Value == "" {
		return Principal{}, false
	}
	claims, err := manager.Parse(cookie.Value)
	if err != nil || claims.Kind != auth.KindAccess || !auth.IsBackOfficeRole(claims.Role) {
		return Principal{}, false
	}
	return Principal{Subject: claims.Subject, Role: claims.Role}, true
}

func AdminAuth(adminKey string, manager *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" && manager == nil {
				httpx.WriteError(w, http.StatusServiceUnavailable, "admin auth not configured", nil)
				return
			}
			p, ok := resolvePrincipal(r, adminKey, manager)
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole narrows an AdminAuth-protected route to one role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok || p.Role != role {
				httpx.WriteError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OptionalAdmin attaches the principal when credentials are valid and lets
// anonymous requests through untouched. Handlers that serve both visitors
// and the back-office check IsAdmin themselves.
func OptionalAdmin(adminKey string, manager *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, ok := resolvePrincipal(r, adminKey, manager); ok {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}
