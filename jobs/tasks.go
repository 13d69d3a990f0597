package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/gatehouse-io/gatehouse/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskExpirySweep deactivates role assignments and grants whose
	// expiry has passed.
	TaskExpirySweep = "authz:expiry-sweep"
)

// NewExpirySweepTask constructs the sweep task. It carries no payload.
func NewExpirySweepTask() *asynq.Task {
	return asynq.NewTask(TaskExpirySweep, nil)
}

// Sweeper flips expired role assignments and permission grants inactive.
// Satisfied by authz.Repository.
type Sweeper interface {
	DeactivateExpiredAssignments(ctx context.Context) (int64, error)
	DeactivateExpiredGrants(ctx context.Context) (int64, error)
}

// NewExpirySweepHandler returns the asynq handler for TaskExpirySweep.
// Expired entries are already filtered out of every resolution, so the
// sweep only reconciles stored state with what the resolver enforces.
func NewExpirySweepHandler(sweeper Sweeper, logger *slog.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		assignments, err := sweeper.DeactivateExpiredAssignments(ctx)
		if err != nil {
			return err
		}
		grants, err := sweeper.DeactivateExpiredGrants(ctx)
		if err != nil {
			return err
		}
		if assignments > 0 || grants > 0 {
			logger.Info("expiry sweep completed",
				slog.Int64("assignments", assignments),
				slog.Int64("grants", grants))
		}
		return nil
	}
}

// Instrument wraps a handler with run, failure and duration metrics.
func Instrument(job string, metrics *jobmetrics.Metrics, handler asynq.HandlerFunc) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(job)
		return tracker.End(handler(ctx, t))
	}
}
