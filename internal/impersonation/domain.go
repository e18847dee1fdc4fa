// Package impersonation lets a privileged administrator temporarily operate
// the console as another user, with every session recorded in an append-only
// audit log.
package impersonation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is one audit-worthy operation performed while impersonating.
type Action struct {
	At          time.Time `json:"at"`
	Description string    `json:"description"`
}

// Record is one impersonation session in the audit log. Records are created
// when impersonation starts, mutated only to append actions and to set the
// end timestamp, and never deleted.
type Record struct {
	ID              uuid.UUID
	AdminID         int64
	AdminName       string
	TargetID        int64
	TargetName      string
	SessionID       string
	OriginIP        string
	StartedAt       time.Time
	EndedAt         *time.Time
	DurationMinutes int64
	Actions         []Action
}

// Open reports whether the session is still running.
func (r Record) Open() bool { return r.EndedAt == nil }

// Reason classifies why an impersonation request was refused.
type Reason string

const (
	ReasonInsufficientPermission Reason = "insufficient-permission"
	ReasonSelfTarget             Reason = "self-target"
	ReasonTargetSuspended        Reason = "target-suspended"
	ReasonTargetProtected        Reason = "target-protected-role"
	ReasonAlreadyImpersonating   Reason = "already-impersonating"
)

// Message returns the human readable explanation surfaced to the operator.
func (r Reason) Message() string {
	switch r {
	case ReasonInsufficientPermission:
		return "you do not have permission to impersonate users"
	case ReasonSelfTarget:
		return "you cannot impersonate yourself"
	case ReasonTargetSuspended:
		return "suspended accounts cannot be impersonated"
	case ReasonTargetProtected:
		return "platform administrators cannot be impersonated"
	case ReasonAlreadyImpersonating:
		return "an impersonation session is already active"
	default:
		return "impersonation refused"
	}
}

// Denial is the typed refusal returned by Manager.Start. It is a recoverable
// condition, not a failure: callers surface Reason and stay in their current
// state.
type Denial struct {
	Reason Reason
}

func (d *Denial) Error() string {
	return fmt.Sprintf("impersonation denied: %s", d.Reason)
}

// AsDenial unwraps a Denial from err if present.
func AsDenial(err error) (*Denial, bool) {
	var denial *Denial
	if errors.As(err, &denial) {
		return denial, true
	}
	return nil, false
}

// ErrNotImpersonating signals operations that require an active session.
// Stop treats the idle case as a no-op instead of returning this.
var ErrNotImpersonating = errors.New("impersonation: no active session")
