package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleetdesk/internal/app"
	"github.com/fleetdesk/fleetdesk/internal/directory"
	"github.com/fleetdesk/fleetdesk/internal/rbac"
	"github.com/fleetdesk/fleetdesk/internal/shared"
	_ "github.com/fleetdesk/fleetdesk/testing"
)

func seedDirectory() *directory.Service {
	repo := directory.NewMemoryRepository(
		directory.User{ID: 1, Name: "Root Admin", Email: "root@fleetdesk.test", Role: rbac.RoleSuperAdmin},
		directory.User{ID: 3, Name: "Tenant Owner", Email: "owner@fleetdesk.test", Role: rbac.RoleTenantAdmin},
		directory.User{ID: 9, Name: "Frozen Admin", Email: "frozen@fleetdesk.test", Role: rbac.RoleTenantAdmin, Suspended: true},
	)
	return directory.NewService(repo)
}

func sessionForTest(t *testing.T) *shared.Session {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sm := shared.NewSessionManager(client, "fleetdesk_session", "secret", time.Hour, false)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return sess
}

func resolveIdentity(t *testing.T, sess *shared.Session) (rbac.Identity, bool) {
	t.Helper()
	var (
		identity rbac.Identity
		ok       bool
	)
	mw := app.IdentityMiddleware(nil, seedDirectory())
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok = rbac.IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if sess != nil {
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return identity, ok
}

func TestIdentityMiddlewareResolvesRealUser(t *testing.T) {
	sess := sessionForTest(t)
	sess.SetUser("1")

	identity, ok := resolveIdentity(t, sess)
	require.True(t, ok)
	assert.Equal(t, int64(1), identity.Real.ID)
	assert.Equal(t, identity.Real, identity.Effective)
	assert.False(t, identity.Impersonating)
}

func TestIdentityMiddlewareSwapsEffectiveUser(t *testing.T) {
	sess := sessionForTest(t)
	sess.SetUser("1")
	sess.SetImpersonated("3")

	identity, ok := resolveIdentity(t, sess)
	require.True(t, ok)
	assert.True(t, identity.Impersonating)
	assert.Equal(t, int64(1), identity.Real.ID)
	assert.Equal(t, int64(3), identity.Effective.ID)
	assert.Equal(t, rbac.RoleTenantAdmin, identity.Effective.Role)
}

func TestIdentityMiddlewareAnonymousSession(t *testing.T) {
	sess := sessionForTest(t)

	_, ok := resolveIdentity(t, sess)
	assert.False(t, ok)

	_, ok = resolveIdentity(t, nil)
	assert.False(t, ok)
}

func TestIdentityMiddlewareSuspendedUserFailsClosed(t *testing.T) {
	sess := sessionForTest(t)
	sess.SetUser("9")

	_, ok := resolveIdentity(t, sess)
	assert.False(t, ok)
}

func TestIdentityMiddlewareStaleTargetDropsImpersonation(t *testing.T) {
	sess := sessionForTest(t)
	sess.SetUser("1")
	sess.SetImpersonated("404")

	identity, ok := resolveIdentity(t, sess)
	require.True(t, ok)
	assert.False(t, identity.Impersonating)
	assert.Equal(t, identity.Real, identity.Effective)
}
