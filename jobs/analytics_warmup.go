package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Warmer precomputes the dashboard. *analytics.Service satisfies it.
type Warmer interface {
	Warmup(ctx context.Context) error
}

// AnalyticsWarmupJob handles TaskAnalyticsWarmup.
type AnalyticsWarmupJob struct {
	warmer Warmer
	logger *slog.Logger
}

// NewAnalyticsWarmupJob constructs the job.
func NewAnalyticsWarmupJob(warmer Warmer, logger *slog.Logger) *AnalyticsWarmupJob {
	return &AnalyticsWarmupJob{warmer: warmer, logger: logger}
}

// Handle fills the dashboard cache.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if err := j.warmer.Warmup(ctx); err != nil {
		j.logger.Error("analytics warmup", slog.Any("error", err))
		return err
	}
	j.logger.Info("analytics warmup completed")
	return nil
}
