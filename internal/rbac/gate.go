package rbac

import "errors"

// ErrPermissionDenied is returned by WithCapability when the effective user
// does not hold the required permission.
var ErrPermissionDenied = errors.New("rbac: permission denied")

// Allow reports whether the identity's effective user holds at least one of
// the given permissions. It is the framework-free capability gate: callers
// that are not HTTP handlers use this instead of inspecting roles directly.
func Allow(id Identity, perms ...Permission) bool {
	return HasAnyPermission(id.Effective, perms...)
}

// AllowModule reports whether the identity's effective user may open the
// module.
func AllowModule(id Identity, module ModuleID) bool {
	return CanAccessModule(id.Effective, module)
}

// WithCapability runs fn only when the effective user holds the permission,
// returning ErrPermissionDenied otherwise. Denial is a normal, recoverable
// outcome; callers render their fallback instead of propagating it.
func WithCapability(id Identity, perm Permission, fn func() error) error {
	if !HasPermission(id.Effective, perm) {
		return ErrPermissionDenied
	}
	return fn()
}
