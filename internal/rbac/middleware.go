package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fleetdesk/fleetdesk/internal/platform/httpx"
)

// DenialCounter records denied requests for observability. Implemented by
// observability.Metrics; nil disables counting.
type DenialCounter interface {
	IncPermissionDenied(route string)
}

// Middleware gates HTTP routes on the effective user's permissions. It is a
// thin projection of the evaluator: the identity middleware resolves who is
// effective, this only asks whether that identity qualifies.
type Middleware struct {
	Logger  *slog.Logger
	Denials DenialCounter
}

// RequireAny ensures the effective user holds at least one of the required
// permissions.
func (m Middleware) RequireAny(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			identity, ok := IdentityFromContext(r.Context())
			if !ok || !HasAnyPermission(identity.Effective, perms...) {
				m.deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAll ensures the effective user holds every required permission.
func (m Middleware) RequireAll(perms ...Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(perms) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			identity, ok := IdentityFromContext(r.Context())
			if !ok || !HasAllPermissions(identity.Effective, perms...) {
				m.deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireModule gates a route group on module-level access.
func (m Middleware) RequireModule(module ModuleID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok || !CanAccessModule(identity.Effective, module) {
				m.deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request) {
	if m.Denials != nil {
		m.Denials.IncPermissionDenied(routePattern(r))
	}
	if m.Logger != nil {
		m.Logger.Warn("permission denied", slog.String("path", r.URL.Path))
	}
	httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permissions")
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
