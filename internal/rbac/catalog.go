// Package rbac implements the permission model for the FleetDesk console:
// the permission catalog, the role registry, the access evaluator and the
// capability gates every protected surface must go through.
package rbac

// Permission is an atomic, named capability. The catalog below is closed:
// permissions are declared here once and never created at runtime.
type Permission string

const (
	PermTenantView        Permission = "tenant.view"
	PermTenantAdmin       Permission = "tenant.admin"
	PermTenantImpersonate Permission = "tenant.impersonate"

	PermLandingEdit    Permission = "landing.edit"
	PermLandingPublish Permission = "landing.publish"

	PermSupportView   Permission = "support.view"
	PermSupportManage Permission = "support.manage"

	PermSystemMaintenance Permission = "system.maintenance"

	PermBillingView   Permission = "billing.view"
	PermBillingManage Permission = "billing.manage"

	PermReportsView Permission = "reports.view"

	PermUsersView   Permission = "users.view"
	PermUsersManage Permission = "users.manage"

	PermAuditView Permission = "audit.view"
)

// AllPermissions returns every permission in the catalog.
func AllPermissions() []Permission {
	return []Permission{
		PermTenantView,
		PermTenantAdmin,
		PermTenantImpersonate,
		PermLandingEdit,
		PermLandingPublish,
		PermSupportView,
		PermSupportManage,
		PermSystemMaintenance,
		PermBillingView,
		PermBillingManage,
		PermReportsView,
		PermUsersView,
		PermUsersManage,
		PermAuditView,
	}
}

// ModuleID identifies a console module reachable from the dashboard.
type ModuleID string

const (
	ModuleTenants          ModuleID = "tenants"
	ModuleLandingPages     ModuleID = "landing-pages"
	ModuleSupport          ModuleID = "support"
	ModuleMaintenanceTools ModuleID = "maintenance-tools"
	ModuleAccounting       ModuleID = "accounting"
	ModuleUserManagement   ModuleID = "user-management"
	ModuleAuditLogs        ModuleID = "audit-logs"
	ModuleImpersonation    ModuleID = "impersonation"
)

// modulePermissions declares which permissions open a module. A module is
// accessible when the effective user holds at least one of its permissions.
var modulePermissions = map[ModuleID][]Permission{
	ModuleTenants:          {PermTenantView, PermTenantAdmin},
	ModuleLandingPages:     {PermLandingEdit, PermLandingPublish},
	ModuleSupport:          {PermSupportView},
	ModuleMaintenanceTools: {PermSystemMaintenance},
	ModuleAccounting:       {PermBillingView, PermReportsView},
	ModuleUserManagement:   {PermUsersView},
	ModuleAuditLogs:        {PermAuditView},
	ModuleImpersonation:    {PermTenantImpersonate},
}

// ModulePermissions returns the any-of permission list declared for a module.
// Unknown modules yield an empty list, so they are never accessible.
func ModulePermissions(id ModuleID) []Permission {
	perms, ok := modulePermissions[id]
	if !ok {
		return nil
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// AllModules returns the declared module identifiers.
func AllModules() []ModuleID {
	return []ModuleID{
		ModuleTenants,
		ModuleLandingPages,
		ModuleSupport,
		ModuleMaintenanceTools,
		ModuleAccounting,
		ModuleUserManagement,
		ModuleAuditLogs,
		ModuleImpersonation,
	}
}
