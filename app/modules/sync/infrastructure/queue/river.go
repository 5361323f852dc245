package syncqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	syncmetrics "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
)

// QueueName is the River queue sync jobs run on.
const QueueName = "sync"

// RiverConfig configures the River runtime.
type RiverConfig struct {
	MaxWorkers    int
	MaxAttempts   int
	JobTimeout    time.Duration
	SweepInterval time.Duration
}

// Runtime owns the River client and its pgx pool.
type Runtime struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics syncmetrics.SyncMetrics
}

// NewRuntime connects to dsn, registers the sync workers and binds a River
// dispatcher to service.
func NewRuntime(ctx context.Context, dsn string, service *Service, cfg RiverConfig, metrics syncmetrics.SyncMetrics, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = syncmetrics.NewNoop()
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}

	ctxLogger := logger.With(
		slog.String("operation", "new_sync_queue_runtime"),
		slog.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_runtime", "river")

	// River requires pgx, not database/sql
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_runtime", "river")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_runtime", "river")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_runtime", "river")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewSyncJobWorker(service, cfg.JobTimeout))
	river.AddWorker(workers, NewDispatchSweepWorker(service))

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
			QueueName:          {MaxWorkers: cfg.MaxWorkers},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(cfg.SweepInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return DispatchSweepArgs{}, &river.InsertOpts{Queue: QueueName, MaxAttempts: 1}
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
		Logger: logger,
	})
	if err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_runtime", "river")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	service.SetDispatcher(&RiverDispatcher{
		client:      client,
		maxAttempts: cfg.MaxAttempts,
		logger:      ctxLogger,
	})

	metrics.RecordOperationSuccess(ctx, "initialize_runtime", "river")
	metrics.RecordOperationDuration(ctx, "initialize_runtime", "river", time.Since(start))
	ctxLogger.InfoContext(ctx, "Sync queue runtime initialized")

	return &Runtime{client: client, pool: pool, logger: ctxLogger, metrics: metrics}, nil
}

// Start starts the River client.
func (r *Runtime) Start(ctx context.Context) error {
	r.metrics.RecordOperationAttempt(ctx, "start_runtime", "river")
	if err := r.client.Start(ctx); err != nil {
		r.metrics.RecordOperationFailure(ctx, "start_runtime", "river")
		return fmt.Errorf("failed to start River client: %w", err)
	}
	r.metrics.RecordOperationSuccess(ctx, "start_runtime", "river")
	r.logger.InfoContext(ctx, "Sync queue runtime started")
	return nil
}

// Stop waits for running jobs and closes the pool.
func (r *Runtime) Stop(ctx context.Context) error {
	defer r.pool.Close()
	if err := r.client.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	r.logger.InfoContext(ctx, "Sync queue runtime stopped")
	return nil
}

// Pool exposes the pgx pool, e.g. for River migrations.
func (r *Runtime) Pool() *pgxpool.Pool { return r.pool }

// RiverDispatcher inserts sync jobs into River. Inserts are unique by args
// among live River jobs, so handing the same generation over twice while it is
// still in flight is a no-op.
type RiverDispatcher struct {
	client      *river.Client[pgx.Tx]
	maxAttempts int
	logger      *slog.Logger
}

// liveStates are the River states in which an identical delivery is still going
// to run. Finished River jobs outlive purged sync_jobs rows, and must not block
// a resubmitted row that starts over at generation zero.
var liveStates = []rivertype.JobState{
	rivertype.JobStateAvailable,
	rivertype.JobStatePending,
	rivertype.JobStateRetryable,
	rivertype.JobStateRunning,
	rivertype.JobStateScheduled,
}

func insertParams(jobs []SyncJobArgs, maxAttempts int) []river.InsertManyParams {
	params := make([]river.InsertManyParams, len(jobs))
	for i, args := range jobs {
		params[i] = river.InsertManyParams{
			Args: args,
			InsertOpts: &river.InsertOpts{
				Queue:       QueueName,
				MaxAttempts: maxAttempts,
				UniqueOpts: river.UniqueOpts{
					ByArgs:  true,
					ByState: liveStates,
				},
			},
		}
	}
	return params
}

func (d *RiverDispatcher) Dispatch(ctx context.Context, jobs []SyncJobArgs) error {
	results, err := d.client.InsertMany(ctx, insertParams(jobs, d.maxAttempts))
	if err != nil {
		return fmt.Errorf("failed to insert sync jobs into River: %w", err)
	}

	skipped := 0
	for _, res := range results {
		if res.UniqueSkippedAsDuplicate {
			skipped++
		}
	}
	d.logger.DebugContext(ctx, "Dispatched sync jobs",
		slog.Int("count", len(jobs)),
		slog.Int("duplicates", skipped),
	)
	return nil
}
