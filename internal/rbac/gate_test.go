package rbac

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idleIdentity(role RoleID) Identity {
	s := subjectWithRole(role)
	return Identity{Real: s, Effective: s}
}

func TestWithCapability(t *testing.T) {
	ran := false
	err := WithCapability(idleIdentity(RoleSuperAdmin), PermSystemMaintenance, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	ran = false
	err = WithCapability(idleIdentity(RoleSupport), PermSystemMaintenance, func() error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.False(t, ran)
}

func TestWithCapabilityPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	err := WithCapability(idleIdentity(RoleSuperAdmin), PermTenantView, func() error { return boom })
	assert.ErrorIs(t, err, boom)
}

type countingDenials struct{ routes []string }

func (c *countingDenials) IncPermissionDenied(route string) { c.routes = append(c.routes, route) }

func gatedRequest(t *testing.T, mw func(http.Handler) http.Handler, identity *Identity) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.With(mw).Get("/probe", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if identity != nil {
		req = req.WithContext(ContextWithIdentity(req.Context(), *identity))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareRequireAny(t *testing.T) {
	counter := &countingDenials{}
	mw := Middleware{Denials: counter}

	admin := idleIdentity(RoleSuperAdmin)
	rec := gatedRequest(t, mw.RequireAny(PermSystemMaintenance), &admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	support := idleIdentity(RoleSupport)
	rec = gatedRequest(t, mw.RequireAny(PermSystemMaintenance), &support)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = gatedRequest(t, mw.RequireAny(PermSupportView), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "unauthenticated requests are denied")

	assert.Len(t, counter.routes, 2)
}

func TestMiddlewareRequireModuleUsesEffectiveUser(t *testing.T) {
	mw := Middleware{}
	impersonating := Identity{
		Real:          subjectWithRole(RoleSuperAdmin),
		Effective:     subjectWithRole(RoleTenantAdmin),
		Impersonating: true,
	}

	rec := gatedRequest(t, mw.RequireModule(ModuleMaintenanceTools), &impersonating)
	assert.Equal(t, http.StatusForbidden, rec.Code,
		"impersonation must narrow capability to the target role")

	rec = gatedRequest(t, mw.RequireModule(ModuleTenants), &impersonating)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMiddlewareRequireAll(t *testing.T) {
	mw := Middleware{}

	tenantAdmin := idleIdentity(RoleTenantAdmin)
	rec := gatedRequest(t, mw.RequireAll(PermTenantView, PermTenantAdmin), &tenantAdmin)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = gatedRequest(t, mw.RequireAll(PermTenantView, PermSystemMaintenance), &tenantAdmin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
