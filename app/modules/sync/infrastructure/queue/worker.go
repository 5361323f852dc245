package syncqueue

import (
	"context"
	"time"

	"github.com/riverqueue/river"
)

// SyncJobWorker runs sync_jobs rows delivered by River.
type SyncJobWorker struct {
	river.WorkerDefaults[SyncJobArgs]
	service *Service
	timeout time.Duration
}

// NewSyncJobWorker creates the worker. A zero timeout keeps River's default.
func NewSyncJobWorker(service *Service, timeout time.Duration) *SyncJobWorker {
	return &SyncJobWorker{service: service, timeout: timeout}
}

func (w *SyncJobWorker) Work(ctx context.Context, job *river.Job[SyncJobArgs]) error {
	return w.service.Run(ctx, job.Args, job.Attempt, job.MaxAttempts)
}

func (w *SyncJobWorker) Timeout(*river.Job[SyncJobArgs]) time.Duration {
	return w.timeout
}

// DispatchSweepWorker runs the periodic outbox sweep.
type DispatchSweepWorker struct {
	river.WorkerDefaults[DispatchSweepArgs]
	service *Service
}

// NewDispatchSweepWorker creates the sweep worker.
func NewDispatchSweepWorker(service *Service) *DispatchSweepWorker {
	return &DispatchSweepWorker{service: service}
}

func (w *DispatchSweepWorker) Work(ctx context.Context, _ *river.Job[DispatchSweepArgs]) error {
	return w.service.Sweep(ctx)
}
