package rbac

// Subject is the minimal view of a user the evaluator needs. The directory
// module adapts its User into a Subject; the evaluator itself never touches
// storage.
type Subject struct {
	ID        int64
	Name      string
	Role      RoleID
	Suspended bool
}

// Identity carries the real authenticated admin together with the identity
// that is currently effective. While idle the two are the same; while
// impersonating, Effective is the target and Real is retained so the session
// can be reversed and every audited action attributed to the actor.
type Identity struct {
	Real          Subject
	Effective     Subject
	Impersonating bool
}

// HasPermission reports whether the subject's role grants the permission.
func HasPermission(s Subject, p Permission) bool {
	_, ok := PermissionsOf(s.Role)[p]
	return ok
}

// HasAnyPermission reports whether the subject holds at least one of the
// given permissions. An empty list grants nothing.
func HasAnyPermission(s Subject, perms ...Permission) bool {
	granted := PermissionsOf(s.Role)
	for _, p := range perms {
		if _, ok := granted[p]; ok {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the subject holds every permission given.
func HasAllPermissions(s Subject, perms ...Permission) bool {
	granted := PermissionsOf(s.Role)
	for _, p := range perms {
		if _, ok := granted[p]; !ok {
			return false
		}
	}
	return true
}

// CanAccessModule resolves the module to its declared any-of permission list
// and delegates to HasAnyPermission. Unknown modules are never accessible.
func CanAccessModule(s Subject, id ModuleID) bool {
	return HasAnyPermission(s, modulePermissions[id]...)
}

// AccessibleModules returns the modules the subject may open, in declaration
// order. Consumers use this to decide which dashboard tiles to render.
func AccessibleModules(s Subject) []ModuleID {
	var out []ModuleID
	for _, id := range AllModules() {
		if CanAccessModule(s, id) {
			out = append(out, id)
		}
	}
	return out
}
