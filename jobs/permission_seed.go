package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Seeder installs the default grant matrix. *rbac.Service satisfies it.
type Seeder interface {
	Seed(ctx context.Context) error
}

// PermissionSeedJob handles TaskPermissionSeed.
type PermissionSeedJob struct {
	seeder Seeder
	logger *slog.Logger
}

// NewPermissionSeedJob constructs the job.
func NewPermissionSeedJob(seeder Seeder, logger *slog.Logger) *PermissionSeedJob {
	return &PermissionSeedJob{seeder: seeder, logger: logger}
}

// Handle reinstalls the default grants.
func (j *PermissionSeedJob) Handle(ctx context.Context, t *asynq.Task) error {
	if err := j.seeder.Seed(ctx); err != nil {
		j.logger.Error("permission seed", slog.Any("error", err))
		return err
	}
	j.logger.Info("permission seed completed")
	return nil
}
