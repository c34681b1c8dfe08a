package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultSweepBatch = 1000

// SessionSweepJob deletes expired session audit rows. The redis copies
// expire on their own; this keeps the postgres table from growing forever.
type SessionSweepJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewSessionSweepJob constructs the job.
func NewSessionSweepJob(pool *pgxpool.Pool, logger *slog.Logger) *SessionSweepJob {
	return &SessionSweepJob{pool: pool, logger: logger}
}

// Handle removes up to BatchSize expired rows.
func (j *SessionSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SessionSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.BatchSize <= 0 {
		payload.BatchSize = defaultSweepBatch
	}

	tag, err := j.pool.Exec(ctx, `
		DELETE FROM sessions WHERE id IN (
			SELECT id FROM sessions WHERE expires_at < now() LIMIT $1
		)`, payload.BatchSize)
	if err != nil {
		j.logger.Error("session sweep", slog.Any("error", err))
		return err
	}
	j.logger.Info("session sweep completed", slog.Int64("removed", tag.RowsAffected()))
	return nil
}
