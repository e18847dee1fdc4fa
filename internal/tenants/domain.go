// Package tenants is the console's read model over rental companies. The
// tenant lifecycle itself is owned by the provisioning backend; the console
// only browses tenants and links accounts to them.
package tenants

import "time"

// Tenant is one rental company on the platform.
type Tenant struct {
	ID        int64
	Name      string
	Slug      string
	Plan      string
	Suspended bool
	CreatedAt time.Time
}
