package impersonation

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleetdesk/internal/directory"
	"github.com/fleetdesk/fleetdesk/internal/rbac"
	"github.com/fleetdesk/fleetdesk/internal/shared"
)

type countingEvents struct {
	started int
	stopped int
}

func (c *countingEvents) IncImpersonationStarted() { c.started++ }
func (c *countingEvents) IncImpersonationStopped() { c.stopped++ }

func newTestSession(t *testing.T) *shared.Session {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sm := shared.NewSessionManager(client, "fleetdesk_session", "test-secret", time.Hour, false)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	return sess
}

func testUsers() *directory.MemoryRepository {
	return directory.NewMemoryRepository(
		directory.User{ID: 1, Name: "Root Admin", Email: "root@fleetdesk.test", Role: rbac.RoleSuperAdmin},
		directory.User{ID: 2, Name: "Second Root", Email: "root2@fleetdesk.test", Role: rbac.RoleSuperAdmin},
		directory.User{ID: 3, Name: "Tenant Owner", Email: "owner@fleetdesk.test", Role: rbac.RoleTenantAdmin},
		directory.User{ID: 4, Name: "Branch Manager", Email: "manager@fleetdesk.test", Role: rbac.RoleManager},
		directory.User{ID: 5, Name: "Frozen Agent", Email: "frozen@fleetdesk.test", Role: rbac.RoleSupport, Suspended: true},
	)
}

func superAdminIdentity() rbac.Identity {
	subject := rbac.Subject{ID: 1, Name: "Root Admin", Role: rbac.RoleSuperAdmin}
	return rbac.Identity{Real: subject, Effective: subject}
}

func newTestManager(store Store, events EventRecorder) *Manager {
	return NewManager(store, directory.NewService(testUsers()), slog.New(slog.DiscardHandler), events)
}

func TestStartRecordsSessionAndSwapsIdentity(t *testing.T) {
	store := NewMemoryStore()
	events := &countingEvents{}
	mgr := newTestManager(store, events)
	sess := newTestSession(t)

	rec, err := mgr.Start(context.Background(), sess, superAdminIdentity(), 3, "203.0.113.7")
	require.NoError(t, err)

	assert.Equal(t, int64(1), rec.AdminID)
	assert.Equal(t, int64(3), rec.TargetID)
	assert.Equal(t, "Tenant Owner", rec.TargetName)
	assert.Equal(t, "203.0.113.7", rec.OriginIP)
	assert.Equal(t, sess.ID, rec.SessionID)
	assert.True(t, rec.Open())
	assert.Equal(t, "3", sess.Impersonated())
	assert.Equal(t, 1, events.started)

	open, err := store.OpenByAdmin(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, open.ID)
}

func TestStartDenials(t *testing.T) {
	cases := []struct {
		name     string
		identity rbac.Identity
		targetID int64
		reason   Reason
	}{
		{
			name:     "self target",
			identity: superAdminIdentity(),
			targetID: 1,
			reason:   ReasonSelfTarget,
		},
		{
			name:     "suspended target",
			identity: superAdminIdentity(),
			targetID: 5,
			reason:   ReasonTargetSuspended,
		},
		{
			name:     "super admin target is protected",
			identity: superAdminIdentity(),
			targetID: 2,
			reason:   ReasonTargetProtected,
		},
		{
			name: "effective role lacks permission",
			identity: rbac.Identity{
				Real:      rbac.Subject{ID: 3, Name: "Tenant Owner", Role: rbac.RoleTenantAdmin},
				Effective: rbac.Subject{ID: 3, Name: "Tenant Owner", Role: rbac.RoleTenantAdmin},
			},
			targetID: 4,
			reason:   ReasonInsufficientPermission,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mgr := newTestManager(NewMemoryStore(), nil)
			sess := newTestSession(t)

			rec, err := mgr.Start(context.Background(), sess, tc.identity, tc.targetID, "")
			require.Nil(t, rec)
			denial, ok := AsDenial(err)
			require.True(t, ok, "expected a denial, got %v", err)
			assert.Equal(t, tc.reason, denial.Reason)
			assert.Empty(t, sess.Impersonated(), "denied start must not touch the session")
		})
	}
}

func TestStartSelfTargetRefusedForEveryRole(t *testing.T) {
	for _, role := range rbac.AllRoles() {
		subject := rbac.Subject{ID: 3, Name: "Tenant Owner", Role: role.ID}
		identity := rbac.Identity{Real: subject, Effective: subject}
		mgr := newTestManager(NewMemoryStore(), nil)

		rec, err := mgr.Start(context.Background(), newTestSession(t), identity, 3, "")
		require.Nil(t, rec, "role %s", role.ID)
		denial, ok := AsDenial(err)
		require.True(t, ok, "role %s: expected denial, got %v", role.ID, err)
		if role.ID == rbac.RoleSuperAdmin {
			assert.Equal(t, ReasonSelfTarget, denial.Reason)
		}
	}
}

func TestStartWhileAlreadyImpersonating(t *testing.T) {
	mgr := newTestManager(NewMemoryStore(), nil)
	sess := newTestSession(t)

	_, err := mgr.Start(context.Background(), sess, superAdminIdentity(), 3, "")
	require.NoError(t, err)

	_, err = mgr.Start(context.Background(), sess, superAdminIdentity(), 4, "")
	denial, ok := AsDenial(err)
	require.True(t, ok)
	assert.Equal(t, ReasonAlreadyImpersonating, denial.Reason)
	assert.Equal(t, "3", sess.Impersonated(), "original session must stay intact")
}

func TestStartConflictFromStore(t *testing.T) {
	// A fresh session but an open record in the store, as after a crashed
	// replica. The store-level invariant still refuses the second start.
	store := NewMemoryStore()
	mgr := newTestManager(store, nil)

	_, err := mgr.Start(context.Background(), newTestSession(t), superAdminIdentity(), 3, "")
	require.NoError(t, err)

	_, err = mgr.Start(context.Background(), newTestSession(t), superAdminIdentity(), 4, "")
	denial, ok := AsDenial(err)
	require.True(t, ok)
	assert.Equal(t, ReasonAlreadyImpersonating, denial.Reason)
}

func TestStartUnknownTarget(t *testing.T) {
	mgr := newTestManager(NewMemoryStore(), nil)

	_, err := mgr.Start(context.Background(), newTestSession(t), superAdminIdentity(), 999, "")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStopFinalizesExactlyOnce(t *testing.T) {
	store := NewMemoryStore()
	events := &countingEvents{}
	mgr := newTestManager(store, events)
	sess := newTestSession(t)

	started, err := mgr.Start(context.Background(), sess, superAdminIdentity(), 3, "")
	require.NoError(t, err)

	stopped, err := mgr.Stop(context.Background(), sess, 1)
	require.NoError(t, err)
	require.NotNil(t, stopped)
	assert.Equal(t, started.ID, stopped.ID)
	require.NotNil(t, stopped.EndedAt)
	assert.False(t, stopped.EndedAt.Before(stopped.StartedAt))
	assert.Equal(t, int64(0), stopped.DurationMinutes)
	assert.Empty(t, sess.Impersonated())
	assert.Equal(t, 1, events.stopped)

	records, total, err := store.List(context.Background(), Filter{AdminID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, total, "stop must not create a second record")
	require.Len(t, records, 1)
	assert.False(t, records[0].Open())
}

func TestStopWhileIdleIsNoOp(t *testing.T) {
	events := &countingEvents{}
	mgr := newTestManager(NewMemoryStore(), events)
	sess := newTestSession(t)

	rec, err := mgr.Stop(context.Background(), sess, 1)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Zero(t, events.stopped)

	// Repeated stops stay harmless.
	rec, err = mgr.Stop(context.Background(), sess, 1)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStopClearsStaleSessionFlag(t *testing.T) {
	// Session says impersonating but the store has no open record, as after
	// the sweeper closed an orphan. Stop restores the session silently.
	mgr := newTestManager(NewMemoryStore(), nil)
	sess := newTestSession(t)
	sess.SetImpersonated("3")

	rec, err := mgr.Stop(context.Background(), sess, 1)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Empty(t, sess.Impersonated())
}

func TestDurationTruncatesToWholeMinutes(t *testing.T) {
	// Seed an open record that started 2m30s ago; the closed record reports
	// two whole minutes.
	store := NewMemoryStore()
	rec := &Record{
		ID:        uuid.New(),
		AdminID:   1,
		TargetID:  3,
		StartedAt: time.Now().UTC().Add(-2*time.Minute - 30*time.Second),
	}
	require.NoError(t, store.Create(context.Background(), rec))

	mgr := newTestManager(store, nil)
	sess := newTestSession(t)
	sess.SetImpersonated("3")

	stopped, err := mgr.Stop(context.Background(), sess, 1)
	require.NoError(t, err)
	require.NotNil(t, stopped)
	assert.Equal(t, int64(2), stopped.DurationMinutes)
	assert.Empty(t, sess.Impersonated())
}

func TestRecordActionAppendsToOpenRecord(t *testing.T) {
	store := NewMemoryStore()
	mgr := newTestManager(store, nil)
	sess := newTestSession(t)

	_, err := mgr.Start(context.Background(), sess, superAdminIdentity(), 3, "")
	require.NoError(t, err)

	require.NoError(t, mgr.RecordAction(context.Background(), 1, "changed booking #42 status"))
	require.NoError(t, mgr.RecordAction(context.Background(), 1, "reset target password"))

	current, err := mgr.Current(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, current.Actions, 2)
	assert.Equal(t, "changed booking #42 status", current.Actions[0].Description)
	assert.False(t, current.Actions[0].At.IsZero())
}

func TestRecordActionWhileIdle(t *testing.T) {
	mgr := newTestManager(NewMemoryStore(), nil)
	err := mgr.RecordAction(context.Background(), 1, "anything")
	assert.ErrorIs(t, err, ErrNotImpersonating)
}

func TestCurrentWhileIdle(t *testing.T) {
	mgr := newTestManager(NewMemoryStore(), nil)
	_, err := mgr.Current(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotImpersonating)
}
