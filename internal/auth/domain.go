package auth

import (
	"time"

	"github.com/fleetdesk/fleetdesk/internal/rbac"
)

// User represents an authenticated console account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         rbac.RoleID
	Suspended    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Subject converts the account into an authorization subject.
func (u User) Subject() rbac.Subject {
	return rbac.Subject{ID: u.ID, Name: u.Name, Role: u.Role, Suspended: u.Suspended}
}
