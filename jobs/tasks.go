package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskImpersonationSweep closes impersonation records whose owning
	// session disappeared without an explicit stop.
	TaskImpersonationSweep = "impersonation:sweep"
)

// NewImpersonationSweepTask constructs an Asynq task for the sweep. The task
// carries no payload; every run scans the whole store.
func NewImpersonationSweepTask() *asynq.Task {
	return asynq.NewTask(TaskImpersonationSweep, nil, asynq.Queue(QueueDefault))
}
