package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fleetdesk/fleetdesk/internal/impersonation"
)

// SessionChecker reports whether a session is still live. Implemented by the
// session manager.
type SessionChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// JobMetrics counts job executions. Implemented by observability.Metrics.
type JobMetrics interface {
	IncJob(task, outcome string)
}

// Sweeper closes impersonation records orphaned by vanished sessions: a
// crashed server or an expired session leaves the record open with nobody
// left to stop it.
type Sweeper struct {
	store    impersonation.Store
	sessions SessionChecker
	logger   *slog.Logger
	metrics  JobMetrics
	// Grace keeps records younger than this out of the sweep so a record
	// written just before its session commit is not reaped mid-start.
	Grace time.Duration
}

// NewSweeper constructs a Sweeper.
func NewSweeper(store impersonation.Store, sessions SessionChecker, logger *slog.Logger, metrics JobMetrics) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, sessions: sessions, logger: logger, metrics: metrics, Grace: 5 * time.Minute}
}

// Handle processes TaskImpersonationSweep tasks.
func (s *Sweeper) Handle(ctx context.Context, _ *asynq.Task) error {
	closed, err := s.Sweep(ctx)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncJob(TaskImpersonationSweep, "error")
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.IncJob(TaskImpersonationSweep, "ok")
	}
	if closed > 0 {
		s.logger.Info("swept orphaned impersonation records", slog.Int("closed", closed))
	}
	return nil
}

// Sweep closes every open record whose session no longer exists. It returns
// the number of records closed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	open, err := s.store.ListOpen(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	closed := 0
	for _, rec := range open {
		if now.Sub(rec.StartedAt) < s.Grace {
			continue
		}
		alive, err := s.sessions.Exists(ctx, rec.SessionID)
		if err != nil {
			return closed, err
		}
		if alive {
			continue
		}

		minutes := int64(now.Sub(rec.StartedAt).Minutes())
		if err := s.store.Finalize(ctx, rec.ID, now, minutes); err != nil {
			// Already closed by a concurrent stop; nothing to do.
			if errors.Is(err, impersonation.ErrNoOpenRecord) {
				continue
			}
			return closed, err
		}
		closed++
		s.logger.Warn("closed orphaned impersonation record",
			slog.String("record_id", rec.ID.String()),
			slog.Int64("admin_id", rec.AdminID),
			slog.Int64("target_id", rec.TargetID))
	}
	return closed, nil
}
