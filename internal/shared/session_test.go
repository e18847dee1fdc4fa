package shared

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
)

func newTestSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "fleetdesk_session", "secret", time.Hour, false)
}

func commitSession(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, sm.Commit(context.Background(), rr, req, sess))
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0]
}

func TestSessionRoundTripsIdentitySlots(t *testing.T) {
	sm := newTestSessionManager(t)

	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("1")
	sess.SetImpersonated("3")
	cookie := commitSession(t, sm, sess)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "1", loaded.User())
	assert.Equal(t, "3", loaded.Impersonated())

	loaded.ClearImpersonated()
	cookie = commitSession(t, sm, loaded)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err = sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "1", loaded.User())
	assert.Empty(t, loaded.Impersonated())
}

func TestDestroyedSessionIsRemoved(t *testing.T) {
	sm := newTestSessionManager(t)

	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("1")
	commitSession(t, sm, sess)

	live, err := sm.Exists(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.True(t, live)

	sm.Destroy(sess)
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rr, httptest.NewRequest(http.MethodGet, "/", nil), sess))

	live, err = sm.Exists(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.False(t, live)
}
