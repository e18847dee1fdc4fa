package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleetdesk/internal/rbac"
)

func seedUsers() *MemoryRepository {
	tenant := int64(11)
	return NewMemoryRepository(
		User{ID: 1, Email: "root@fleetdesk.io", Name: "Platform Root", Role: rbac.RoleSuperAdmin},
		User{ID: 2, Email: "ops@fleetdesk.io", Name: "Second Root", Role: rbac.RoleSuperAdmin},
		User{ID: 3, Email: "admin@acme-rentals.com", Name: "Acme Admin", Role: rbac.RoleTenantAdmin, TenantID: &tenant},
		User{ID: 4, Email: "books@acme-rentals.com", Name: "Acme Books", Role: rbac.RoleAccountant, TenantID: &tenant},
		User{ID: 5, Email: "gone@acme-rentals.com", Name: "Suspended Clerk", Role: rbac.RoleSupport, TenantID: &tenant, Suspended: true},
	)
}

func TestListImpersonationTargets(t *testing.T) {
	svc := NewService(seedUsers())
	admin := rbac.Subject{ID: 1, Role: rbac.RoleSuperAdmin}

	targets, err := svc.ListImpersonationTargets(context.Background(), admin)
	require.NoError(t, err)

	ids := make([]int64, 0, len(targets))
	for _, u := range targets {
		ids = append(ids, u.ID)
	}
	assert.ElementsMatch(t, []int64{3, 4}, ids,
		"self, other super admins and suspended accounts are never offered")
}

func TestListUsersFilters(t *testing.T) {
	svc := NewService(seedUsers())
	tenant := int64(11)

	users, err := svc.ListUsers(context.Background(), Filter{TenantID: &tenant, ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	users, err = svc.ListUsers(context.Background(), Filter{Role: rbac.RoleAccountant})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Acme Books", users[0].Name)
}

func TestGetUserNotFound(t *testing.T) {
	svc := NewService(seedUsers())
	_, err := svc.GetUser(context.Background(), 999)
	assert.Error(t, err)
}

func TestSubjectAdapter(t *testing.T) {
	u := User{ID: 4, Name: "Acme Books", Role: rbac.RoleAccountant}
	s := u.Subject()
	assert.Equal(t, int64(4), s.ID)
	assert.True(t, rbac.HasPermission(s, rbac.PermBillingView))
	assert.False(t, rbac.HasPermission(s, rbac.PermTenantImpersonate))
}
