package directory

import (
	"context"
	"sort"
	"sync"

	"github.com/fleetdesk/fleetdesk/internal/shared"
)

// MemoryRepository is an in-memory Repository used by tests and local
// development seeds.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[int64]User
}

// NewMemoryRepository constructs an empty in-memory repository.
func NewMemoryRepository(users ...User) *MemoryRepository {
	repo := &MemoryRepository{users: make(map[int64]User, len(users))}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

// Put inserts or replaces an account.
func (r *MemoryRepository) Put(u User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

// GetUser fetches a user by ID.
func (r *MemoryRepository) GetUser(ctx context.Context, id int64) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

// GetUserByEmail fetches a user by email.
func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

// ListUsers returns accounts matching the filter, ordered by name.
func (r *MemoryRepository) ListUsers(ctx context.Context, f Filter) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var users []User
	for _, u := range r.users {
		if f.TenantID != nil && (u.TenantID == nil || *u.TenantID != *f.TenantID) {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.ActiveOnly && u.Suspended {
			continue
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

var _ Repository = (*MemoryRepository)(nil)
