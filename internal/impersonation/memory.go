package impersonation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development. It
// enforces the same invariants as the durable store.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Create appends a new open record.
func (s *MemoryStore) Create(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.records {
		if existing.AdminID == rec.AdminID && existing.Open() {
			return ErrOpenRecordExists
		}
	}
	clone := cloneRecord(*rec)
	s.records = append(s.records, &clone)
	return nil
}

// AppendAction adds an action to an open record.
func (s *MemoryStore) AppendAction(ctx context.Context, id uuid.UUID, action Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.find(id)
	if rec == nil {
		return ErrRecordNotFound
	}
	if !rec.Open() {
		return ErrNoOpenRecord
	}
	rec.Actions = append(rec.Actions, action)
	return nil
}

// Finalize closes an open record.
func (s *MemoryStore) Finalize(ctx context.Context, id uuid.UUID, endedAt time.Time, durationMinutes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.find(id)
	if rec == nil {
		return ErrRecordNotFound
	}
	if !rec.Open() {
		return ErrNoOpenRecord
	}
	ended := endedAt
	rec.EndedAt = &ended
	rec.DurationMinutes = durationMinutes
	return nil
}

// OpenByAdmin returns the admin's open record.
func (s *MemoryStore) OpenByAdmin(ctx context.Context, adminID int64) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].AdminID == adminID && s.records[i].Open() {
			clone := cloneRecord(*s.records[i])
			return &clone, nil
		}
	}
	return nil, ErrNoOpenRecord
}

// ListOpen returns all open records, oldest first.
func (s *MemoryStore) ListOpen(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, rec := range s.records {
		if rec.Open() {
			out = append(out, cloneRecord(*rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// List returns matching records newest-first with the total match count.
func (s *MemoryStore) List(ctx context.Context, f Filter) ([]Record, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []Record
	for _, rec := range s.records {
		if f.AdminID != 0 && rec.AdminID != f.AdminID {
			continue
		}
		if f.TargetID != 0 && rec.TargetID != f.TargetID {
			continue
		}
		if f.Status == StatusOpen && !rec.Open() {
			continue
		}
		if f.Status == StatusClosed && rec.Open() {
			continue
		}
		matched = append(matched, cloneRecord(*rec))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartedAt.After(matched[j].StartedAt) })

	total := len(matched)
	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return nil, total, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (s *MemoryStore) find(id uuid.UUID) *Record {
	for _, rec := range s.records {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

func cloneRecord(rec Record) Record {
	if rec.EndedAt != nil {
		ended := *rec.EndedAt
		rec.EndedAt = &ended
	}
	if len(rec.Actions) > 0 {
		actions := make([]Action, len(rec.Actions))
		copy(actions, rec.Actions)
		rec.Actions = actions
	}
	return rec
}

var _ Store = (*MemoryStore)(nil)
