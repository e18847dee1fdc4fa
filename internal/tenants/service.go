package tenants

import "context"

// Service wraps tenant reads.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetTenant fetches one tenant.
func (s *Service) GetTenant(ctx context.Context, id int64) (Tenant, error) {
	return s.repo.GetTenant(ctx, id)
}

// ListTenants returns tenants matching the filter.
func (s *Service) ListTenants(ctx context.Context, f Filter) ([]Tenant, error) {
	return s.repo.ListTenants(ctx, f)
}
