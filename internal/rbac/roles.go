package rbac

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RoleID identifies a role. Roles are static configuration; the registry
// below is the only source of role→permission mappings.
type RoleID string

const (
	RoleSuperAdmin  RoleID = "super-admin"
	RoleTenantAdmin RoleID = "tenant-admin"
	RoleManager     RoleID = "manager"
	RoleAccountant  RoleID = "accountant"
	RoleSupport     RoleID = "support"
	RoleUser        RoleID = "user"
)

// Role describes a registry entry. Level orders roles for display, lower
// meaning more authority; it never participates in access decisions.
type Role struct {
	ID    RoleID
	Label string
	Level int
}

var roleLevels = map[RoleID]int{
	RoleSuperAdmin:  1,
	RoleTenantAdmin: 2,
	RoleManager:     3,
	RoleAccountant:  4,
	RoleSupport:     5,
	RoleUser:        6,
}

// rolePermissions is the authoritative grant table. The harness matrix in
// harness.go asserts it case by case; change both together.
var rolePermissions = map[RoleID][]Permission{
	RoleSuperAdmin: AllPermissions(),
	RoleTenantAdmin: {
		PermTenantView,
		PermTenantAdmin,
		PermLandingEdit,
		PermLandingPublish,
		PermSupportView,
		PermSupportManage,
		PermBillingView,
		PermReportsView,
		PermUsersView,
		PermUsersManage,
	},
	RoleManager: {
		PermTenantView,
		PermSupportView,
		PermSupportManage,
		PermReportsView,
		PermUsersView,
	},
	RoleAccountant: {
		PermBillingView,
		PermReportsView,
	},
	RoleSupport: {
		PermSupportView,
		PermSupportManage,
	},
	RoleUser: {
		PermSupportView,
	},
}

// PermissionsOf returns the permission set granted by a role. Unknown role
// identifiers yield an empty set rather than an error so evaluation stays
// fail-closed when a stored role reference has gone stale.
func PermissionsOf(id RoleID) map[Permission]struct{} {
	perms := rolePermissions[id]
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// KnownRole reports whether the role exists in the registry.
func KnownRole(id RoleID) bool {
	_, ok := roleLevels[id]
	return ok
}

// AllRoles returns registry entries ordered by level ascending.
func AllRoles() []Role {
	roles := make([]Role, 0, len(roleLevels))
	for id, level := range roleLevels {
		roles = append(roles, Role{ID: id, Label: RoleLabel(id), Level: level})
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Level < roles[j].Level })
	return roles
}

// RoleLabel renders a human readable label for a role identifier.
func RoleLabel(id RoleID) string {
	caser := cases.Title(language.English)
	return caser.String(strings.ReplaceAll(string(id), "-", " "))
}
