package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subjectWithRole(role RoleID) Subject {
	return Subject{ID: 7, Name: "test subject", Role: role}
}

func TestHasPermissionAccountant(t *testing.T) {
	accountant := subjectWithRole(RoleAccountant)

	assert.True(t, HasPermission(accountant, PermBillingView))
	assert.True(t, HasPermission(accountant, PermReportsView))
	assert.False(t, HasPermission(accountant, PermSystemMaintenance))
	assert.False(t, HasPermission(accountant, PermTenantImpersonate))
}

func TestHasPermissionStaleRoleFailsClosed(t *testing.T) {
	stale := subjectWithRole(RoleID("fleet-ops"))
	for _, p := range AllPermissions() {
		assert.False(t, HasPermission(stale, p), "stale role granted %s", p)
	}
}

func TestHasPermissionUnknownPermissionNeverGranted(t *testing.T) {
	for _, role := range AllRoles() {
		assert.False(t, HasPermission(subjectWithRole(role.ID), Permission("warp.drive")))
	}
}

func TestHasAnyPermission(t *testing.T) {
	manager := subjectWithRole(RoleManager)

	assert.True(t, HasAnyPermission(manager, PermTenantView, PermTenantAdmin))
	assert.False(t, HasAnyPermission(manager, PermTenantAdmin, PermBillingManage))
	assert.False(t, HasAnyPermission(manager), "empty list must grant nothing")
}

func TestCanAccessModule(t *testing.T) {
	cases := []struct {
		role   RoleID
		module ModuleID
		want   bool
	}{
		{RoleSuperAdmin, ModuleMaintenanceTools, true},
		{RoleTenantAdmin, ModuleMaintenanceTools, false},
		{RoleTenantAdmin, ModuleTenants, true},
		{RoleManager, ModuleTenants, true},
		{RoleAccountant, ModuleAccounting, true},
		{RoleAccountant, ModuleTenants, false},
		{RoleSupport, ModuleSupport, true},
		{RoleUser, ModuleSupport, true},
		{RoleUser, ModuleAuditLogs, false},
		{RoleSuperAdmin, ModuleID("fleet-telemetry"), false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, CanAccessModule(subjectWithRole(tc.role), tc.module),
			"role=%s module=%s", tc.role, tc.module)
	}
}

// Each role's answers must be exactly its registry set: no permission bleeds
// between roles and granting one permission cannot change another's result.
func TestEvaluationMatchesRegistryExactly(t *testing.T) {
	for _, role := range AllRoles() {
		granted := PermissionsOf(role.ID)
		for _, p := range AllPermissions() {
			_, want := granted[p]
			assert.Equalf(t, want, HasPermission(subjectWithRole(role.ID), p),
				"role=%s perm=%s", role.ID, p)
		}
	}
}

func TestPermissionsOfReturnsCopy(t *testing.T) {
	first := PermissionsOf(RoleAccountant)
	first[PermSystemMaintenance] = struct{}{}

	require.False(t, HasPermission(subjectWithRole(RoleAccountant), PermSystemMaintenance),
		"mutating a returned set must not alter the registry")
}

func TestAllRolesOrderedByLevel(t *testing.T) {
	roles := AllRoles()
	require.Len(t, roles, 6)
	assert.Equal(t, RoleSuperAdmin, roles[0].ID)
	assert.Equal(t, RoleUser, roles[len(roles)-1].ID)
	for i := 1; i < len(roles); i++ {
		assert.Less(t, roles[i-1].Level, roles[i].Level)
	}
}

func TestRoleLabel(t *testing.T) {
	assert.Equal(t, "Super Admin", RoleLabel(RoleSuperAdmin))
	assert.Equal(t, "Tenant Admin", RoleLabel(RoleTenantAdmin))
}

func TestImpersonationNarrowsVisibility(t *testing.T) {
	identity := Identity{
		Real:          subjectWithRole(RoleSuperAdmin),
		Effective:     subjectWithRole(RoleTenantAdmin),
		Impersonating: true,
	}

	// The real admin holds system.maintenance, the effective user does not.
	assert.True(t, HasPermission(identity.Real, PermSystemMaintenance))
	assert.False(t, AllowModule(identity, ModuleMaintenanceTools))
	assert.True(t, AllowModule(identity, ModuleTenants))
}
