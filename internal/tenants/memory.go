package tenants

import (
	"context"
	"sort"
	"sync"

	"github.com/fleetdesk/fleetdesk/internal/shared"
)

// MemoryRepository is an in-memory Repository for tests and local seeds.
type MemoryRepository struct {
	mu      sync.RWMutex
	tenants map[int64]Tenant
}

// NewMemoryRepository constructs an in-memory repository.
func NewMemoryRepository(tenants ...Tenant) *MemoryRepository {
	repo := &MemoryRepository{tenants: make(map[int64]Tenant, len(tenants))}
	for _, t := range tenants {
		repo.tenants[t.ID] = t
	}
	return repo
}

// Put inserts or replaces a tenant.
func (r *MemoryRepository) Put(t Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.ID] = t
}

// GetTenant fetches a tenant by ID.
func (r *MemoryRepository) GetTenant(ctx context.Context, id int64) (Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[id]
	if !ok {
		return Tenant{}, shared.ErrNotFound
	}
	return t, nil
}

// ListTenants returns tenants matching the filter, ordered by name.
func (r *MemoryRepository) ListTenants(ctx context.Context, f Filter) ([]Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Tenant
	for _, t := range r.tenants {
		if f.Plan != "" && t.Plan != f.Plan {
			continue
		}
		if f.ActiveOnly && t.Suspended {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var _ Repository = (*MemoryRepository)(nil)
