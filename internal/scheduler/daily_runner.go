package scheduler

import (
	"context"
	"time"

	"nutricoach_backend/platform/logger"
)

const defaultBatchInterval = 24 * time.Hour

// DailyRunner enqueues the lifecycle batch run on a fixed cadence. It only
// schedules; the asynq worker executes the batch, so the API process and the
// scheduler process can run the same binary layout without double work.
type DailyRunner struct {
	enqueuer BatchRunEnqueuer
	log      *logger.Logger
	interval time.Duration
}

func NewDailyRunner(enqueuer BatchRunEnqueuer, log *logger.Logger, interval time.Duration) *DailyRunner {
	if interval <= 0 {
		interval = defaultBatchInterval
	}
	return &DailyRunner{
		enqueuer: enqueuer,
		log:      log,
		interval: interval,
	}
}

func (r *DailyRunner) Run(ctx context.Context) {
	if r == nil || r.enqueuer == nil {
		return
	}

	r.enqueue(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.enqueue(ctx)
		}
	}
}

func (r *DailyRunner) enqueue(ctx context.Context) {
	err := r.enqueuer.EnqueueBatchRun(ctx, LifecycleBatchRunPayload{
		Manual:      false,
		RequestedAt: time.Now(),
	})
	if err != nil {
		r.log.Warn("failed to enqueue lifecycle batch run", "error", err)
		return
	}
	r.log.Info("lifecycle batch run enqueued")
}
