package directory

import (
	"context"

	"github.com/fleetdesk/fleetdesk/internal/rbac"
)

// Service wraps directory reads with console business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetUser fetches one account.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// GetUserByEmail fetches one account by email.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetUserByEmail(ctx, email)
}

// ListUsers returns accounts matching the filter.
func (s *Service) ListUsers(ctx context.Context, f Filter) ([]User, error) {
	return s.repo.ListUsers(ctx, f)
}

// ListImpersonationTargets returns the accounts the admin may become:
// active users other than the admin themselves, excluding platform super
// admins. The impersonation manager re-checks these rules on start; this
// filter only keeps ineligible entries out of the picker.
func (s *Service) ListImpersonationTargets(ctx context.Context, admin rbac.Subject) ([]User, error) {
	users, err := s.repo.ListUsers(ctx, Filter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	targets := make([]User, 0, len(users))
	for _, u := range users {
		if u.ID == admin.ID || u.Role == rbac.RoleSuperAdmin {
			continue
		}
		targets = append(targets, u)
	}
	return targets, nil
}
