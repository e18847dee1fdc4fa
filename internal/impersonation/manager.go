package impersonation

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fleetdesk/fleetdesk/internal/directory"
	"github.com/fleetdesk/fleetdesk/internal/rbac"
	"github.com/fleetdesk/fleetdesk/internal/shared"
)

// UserSource resolves impersonation targets. Satisfied by the directory
// service.
type UserSource interface {
	GetUser(ctx context.Context, id int64) (directory.User, error)
}

// EventRecorder counts lifecycle events for observability. Implemented by
// observability.Metrics; nil disables counting.
type EventRecorder interface {
	IncImpersonationStarted()
	IncImpersonationStopped()
}

// Manager owns the impersonation state machine for each admin session. It is
// the only component that mutates the effective-identity slot and the only
// writer of the audit store: per admin the session cycles Idle ⇄
// Impersonating for as long as the authenticated session lives.
type Manager struct {
	store  Store
	users  UserSource
	logger *slog.Logger
	events EventRecorder
}

// NewManager constructs a Manager.
func NewManager(store Store, users UserSource, logger *slog.Logger, events EventRecorder) *Manager {
	return &Manager{store: store, users: users, logger: logger, events: events}
}

// Start begins impersonating target on the admin's session.
//
// Preconditions, checked in order: no impersonation already open for this
// admin, the effective user holds tenant.impersonate, the target is not the
// admin themselves, not suspended, and not a platform super admin (never
// exempted, including for super admins impersonating each other). Refusals
// come back as *Denial with the specific reason; the session state is left
// untouched.
func (m *Manager) Start(ctx context.Context, sess *shared.Session, identity rbac.Identity, targetID int64, originIP string) (*Record, error) {
	if sess == nil {
		return nil, errors.New("impersonation: session required")
	}
	if sess.Impersonated() != "" || identity.Impersonating {
		return nil, &Denial{Reason: ReasonAlreadyImpersonating}
	}
	if !rbac.HasPermission(identity.Effective, rbac.PermTenantImpersonate) {
		return nil, &Denial{Reason: ReasonInsufficientPermission}
	}

	target, err := m.users.GetUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.ID == identity.Real.ID {
		return nil, &Denial{Reason: ReasonSelfTarget}
	}
	if target.Suspended {
		return nil, &Denial{Reason: ReasonTargetSuspended}
	}
	if target.Role == rbac.RoleSuperAdmin {
		return nil, &Denial{Reason: ReasonTargetProtected}
	}

	rec := &Record{
		ID:         uuid.New(),
		AdminID:    identity.Real.ID,
		AdminName:  identity.Real.Name,
		TargetID:   target.ID,
		TargetName: target.Name,
		SessionID:  sess.ID,
		OriginIP:   originIP,
		StartedAt:  time.Now().UTC(),
	}
	// The record is written before the session flips so a crash in between
	// leaves an open record (reaped by the sweeper) rather than an
	// impersonation with no audit trail.
	if err := m.store.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrOpenRecordExists) {
			return nil, &Denial{Reason: ReasonAlreadyImpersonating}
		}
		return nil, err
	}
	sess.SetImpersonated(strconv.FormatInt(target.ID, 10))

	if m.events != nil {
		m.events.IncImpersonationStarted()
	}
	if m.logger != nil {
		m.logger.Info("impersonation started",
			slog.Int64("admin_id", identity.Real.ID),
			slog.Int64("target_id", target.ID),
			slog.String("record_id", rec.ID.String()))
	}
	return rec, nil
}

// Stop ends the admin's impersonation session, finalizing exactly the most
// recent open record. Calling Stop while idle is a harmless no-op so that
// session-teardown code stays idempotent; it returns (nil, nil) in that case.
func (m *Manager) Stop(ctx context.Context, sess *shared.Session, adminID int64) (*Record, error) {
	rec, err := m.store.OpenByAdmin(ctx, adminID)
	if err != nil {
		if errors.Is(err, ErrNoOpenRecord) {
			if sess != nil {
				sess.ClearImpersonated()
			}
			return nil, nil
		}
		return nil, err
	}

	endedAt := time.Now().UTC()
	minutes := int64(endedAt.Sub(rec.StartedAt).Minutes())
	if err := m.store.Finalize(ctx, rec.ID, endedAt, minutes); err != nil && !errors.Is(err, ErrNoOpenRecord) {
		return nil, err
	}
	if sess != nil {
		sess.ClearImpersonated()
	}
	rec.EndedAt = &endedAt
	rec.DurationMinutes = minutes

	if m.events != nil {
		m.events.IncImpersonationStopped()
	}
	if m.logger != nil {
		m.logger.Info("impersonation stopped",
			slog.Int64("admin_id", adminID),
			slog.Int64("target_id", rec.TargetID),
			slog.Int64("duration_minutes", minutes))
	}
	return rec, nil
}

// RecordAction appends an audit-worthy action to the admin's open record.
func (m *Manager) RecordAction(ctx context.Context, adminID int64, description string) error {
	rec, err := m.store.OpenByAdmin(ctx, adminID)
	if err != nil {
		if errors.Is(err, ErrNoOpenRecord) {
			return ErrNotImpersonating
		}
		return err
	}
	return m.store.AppendAction(ctx, rec.ID, Action{
		At:          time.Now().UTC(),
		Description: description,
	})
}

// Current returns the admin's open record, or ErrNotImpersonating.
func (m *Manager) Current(ctx context.Context, adminID int64) (*Record, error) {
	rec, err := m.store.OpenByAdmin(ctx, adminID)
	if err != nil {
		if errors.Is(err, ErrNoOpenRecord) {
			return nil, ErrNotImpersonating
		}
		return nil, err
	}
	return rec, nil
}
