package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskPermissionSeed reinstalls the default grant matrix.
	TaskPermissionSeed = "permissions:seed"
	// TaskSessionSweep removes expired session rows from postgres.
	TaskSessionSweep = "sessions:sweep"
	// TaskAnalyticsWarmup precomputes the dashboard summary.
	TaskAnalyticsWarmup = "analytics:warmup"
)

// SessionSweepPayload bounds a single sweep run.
type SessionSweepPayload struct {
	BatchSize int `json:"batch_size"`
}

// NewPermissionSeedTask constructs the permission seed task.
func NewPermissionSeedTask() *asynq.Task {
	return asynq.NewTask(TaskPermissionSeed, nil)
}

// NewSessionSweepTask constructs a session sweep task.
func NewSessionSweepTask(batchSize int) (*asynq.Task, error) {
	data, err := json.Marshal(SessionSweepPayload{BatchSize: batchSize})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionSweep, data), nil
}

// NewAnalyticsWarmupTask constructs the dashboard warmup task.
func NewAnalyticsWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskAnalyticsWarmup, nil)
}
