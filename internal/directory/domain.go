// Package directory reads user accounts from the platform user directory.
// The directory is owned by an external service; this package only reads it
// to resolve identities and to populate impersonation target pickers.
package directory

import (
	"time"

	"github.com/fleetdesk/fleetdesk/internal/rbac"
)

// User is a directory account as the console sees it.
type User struct {
	ID        int64
	Email     string
	Name      string
	Role      rbac.RoleID
	TenantID  *int64
	Suspended bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subject adapts the user for the access evaluator.
func (u User) Subject() rbac.Subject {
	return rbac.Subject{
		ID:        u.ID,
		Name:      u.Name,
		Role:      u.Role,
		Suspended: u.Suspended,
	}
}

// RoleLabel returns the display label for the user's role.
func (u User) RoleLabel() string {
	return rbac.RoleLabel(u.Role)
}
