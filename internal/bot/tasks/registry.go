package tasks

import (
	"context"
)

// ScheduledTaskFunc is the signature of every scheduled task. The context
// provided by the scheduler should be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks initializes and returns the map of scheduled tasks. The
// keys match the task names in the scheduler configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := make(map[string]ScheduledTaskFunc)

	tasks["digest_broadcast"] = newDigestBroadcastTask(deps)
	tasks["retention"] = newRetentionTask(deps)

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
