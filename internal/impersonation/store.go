package impersonation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status filters list queries on record state.
type Status string

const (
	StatusAny    Status = ""
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Filter narrows audit log queries. Zero values match everything.
type Filter struct {
	AdminID  int64
	TargetID int64
	Status   Status
	// Offset/Limit page through results; Limit <= 0 means no limit.
	Offset int
	Limit  int
}

var (
	// ErrOpenRecordExists is returned by Create when the admin already has
	// an open record. It backs the one-open-session-per-admin invariant.
	ErrOpenRecordExists = errors.New("impersonation: open record already exists for admin")
	// ErrNoOpenRecord is returned when an admin has no open record.
	ErrNoOpenRecord = errors.New("impersonation: no open record for admin")
	// ErrRecordNotFound is returned for unknown record IDs.
	ErrRecordNotFound = errors.New("impersonation: record not found")
)

// Store persists Impersonation Records. The Manager is the sole writer; the
// interface deliberately exposes no update or delete beyond finalization and
// action appends, because the log is the only evidence of who acted as whom.
type Store interface {
	// Create appends a new open record. Fails with ErrOpenRecordExists when
	// the admin already has one open.
	Create(ctx context.Context, rec *Record) error
	// AppendAction adds an action to an open record.
	AppendAction(ctx context.Context, id uuid.UUID, action Action) error
	// Finalize closes a record, setting end time and duration exactly once.
	Finalize(ctx context.Context, id uuid.UUID, endedAt time.Time, durationMinutes int64) error
	// OpenByAdmin returns the admin's open record, ErrNoOpenRecord if none.
	OpenByAdmin(ctx context.Context, adminID int64) (*Record, error)
	// ListOpen returns every open record, oldest first. Used by the sweeper.
	ListOpen(ctx context.Context) ([]Record, error)
	// List returns records newest-first with the total match count.
	List(ctx context.Context, f Filter) ([]Record, int, error)
}
