package syncservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	syncmetrics "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/metrics"
	syncdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/repositories"
	"github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/tournamentapi"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Orchestrator executes sync jobs. Each job runs the two-phase protocol: the
// first delivery reconciles its tier and submits its children, the delivery
// after the children finished completes the job.
type Orchestrator struct {
	queue      Queue
	api        tournamentapi.Client
	repo       syncdb.Repository
	reconciler *Reconciler
	matcher    TeamMatcher
	discovery  *Discovery
	flows      FlowBuilder
	db         *bun.DB
	clock      syncdomain.Clock
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    syncmetrics.SyncMetrics
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	queue Queue,
	api tournamentapi.Client,
	repo syncdb.Repository,
	reconciler *Reconciler,
	matcher TeamMatcher,
	discovery *Discovery,
	db *bun.DB,
	clock syncdomain.Clock,
	logger *slog.Logger,
	tracer trace.Tracer,
	metrics syncmetrics.SyncMetrics,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = syncdomain.RealClock{}
	}
	if metrics == nil {
		metrics = syncmetrics.NewNoop()
	}
	return &Orchestrator{
		queue:      queue,
		api:        api,
		repo:       repo,
		reconciler: reconciler,
		matcher:    matcher,
		discovery:  discovery,
		db:         db,
		clock:      clock,
		logger:     logger.With(slog.String("component", "orchestrator")),
		tracer:     tracer,
		metrics:    metrics,
	}
}

// Execute runs one delivery of a job. ErrWaitingOnChildren is returned as is;
// any other error moves the job to failed before it is returned.
func (o *Orchestrator) Execute(ctx context.Context, exec syncdomain.Execution) (err error) {
	if exec.Payload == nil {
		err = fmt.Errorf("%w: job %s has no payload", syncdomain.ErrMalformedPayload, exec.JobID)
		o.fail(ctx, exec, err)
		return err
	}

	kind := exec.Payload.Kind()
	logger := o.logger.With(
		slog.String("job_id", exec.JobID),
		slog.String("kind", string(kind)),
		slog.Int("attempt", exec.Attempt),
		slog.Bool("resumed", exec.Resumed()),
	)

	var span trace.Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, "sync."+string(kind), trace.WithAttributes(
			attribute.String("job.id", exec.JobID),
			attribute.String("job.kind", string(kind)),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	start := time.Now()
	defer func() {
		o.metrics.RecordOperationDuration(ctx, string(kind), "Orchestrator", time.Since(start))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s job: %v", kind, r)
			logger.ErrorContext(ctx, "Critical panic recovered", slog.Any("error", err))
		}
		switch {
		case err == nil:
		case errors.Is(err, syncdomain.ErrWaitingOnChildren):
			logger.DebugContext(ctx, "Job waiting on children")
		default:
			span.RecordError(err)
			logger.ErrorContext(ctx, "Job failed", slog.Any("error", err))
			o.fail(ctx, exec, err)
		}
	}()

	logger.DebugContext(ctx, "Executing job")

	switch p := exec.Payload.(type) {
	case *syncdomain.DiscoveryPayload:
		return o.processDiscovery(ctx, exec, p, logger)
	case *syncdomain.StructureSyncPayload:
		return o.processStructure(ctx, exec, p, logger)
	case *syncdomain.SubEventSyncPayload:
		return o.processSubEvent(ctx, exec, p, logger)
	case *syncdomain.DrawSyncPayload:
		return o.processDraw(ctx, exec, p, logger)
	case *syncdomain.EntrySyncPayload:
		return o.processEntries(ctx, exec, p, logger)
	case *syncdomain.EncounterSyncPayload:
		return o.processEncounter(ctx, exec, p, logger)
	case *syncdomain.GameSyncPayload:
		return o.processGames(ctx, exec, p, logger)
	case *syncdomain.StandingSyncPayload:
		return o.processStandings(ctx, exec, p, logger)
	case *syncdomain.TeamMatchingPayload:
		return o.processTeamMatching(ctx, exec, p, logger)
	default:
		return fmt.Errorf("%w: unsupported job kind %q", syncdomain.ErrMalformedPayload, kind)
	}
}

// fail records the failure on the job. A malformed payload never succeeds on
// retry, so it fails the job for good.
func (o *Orchestrator) fail(ctx context.Context, exec syncdomain.Execution, cause error) {
	final := exec.FinalAttempt() || errors.Is(cause, syncdomain.ErrMalformedPayload)
	if err := o.queue.MoveToFailed(ctx, exec.JobID, cause, final); err != nil {
		o.logger.ErrorContext(ctx, "Failed to move job to failed",
			slog.String("job_id", exec.JobID),
			slog.Any("error", err),
		)
	}
}

// spawnChildren runs phase one of a job. build reconciles the tier and returns
// the children to submit; it only runs while *created is false. The flag and
// the generation it was set in are persisted before the job suspends, so a
// re-delivery never submits twice and a retry of that same generation waits
// on the children again instead of moving on.
func (o *Orchestrator) spawnChildren(
	ctx context.Context,
	exec syncdomain.Execution,
	created *bool,
	createdIn *int,
	build func(ctx context.Context) ([]syncdomain.JobSpec, error),
) error {
	if *created {
		if exec.ResumedAfter(*createdIn) {
			return nil
		}
		return o.awaitChildren(ctx, exec)
	}

	specs, err := build(ctx)
	if err != nil {
		return err
	}
	if len(specs) > 0 {
		if err := o.queue.SubmitBatch(ctx, specs); err != nil {
			return fmt.Errorf("failed to submit child jobs: %w", err)
		}
	}

	*created = true
	*createdIn = exec.Generation
	if err := o.queue.UpdatePayload(ctx, exec.JobID, exec.Payload); err != nil {
		return fmt.Errorf("failed to persist phase flags: %w", err)
	}
	if len(specs) == 0 {
		return nil
	}
	return o.awaitChildren(ctx, exec)
}

// awaitChildren suspends the job when some child has not finished yet.
func (o *Orchestrator) awaitChildren(ctx context.Context, exec syncdomain.Execution) error {
	waiting, err := o.queue.MoveToWaitingChildren(ctx, exec.JobID)
	if err != nil {
		return fmt.Errorf("failed to wait on children: %w", err)
	}
	if waiting {
		return syncdomain.ErrWaitingOnChildren
	}
	return nil
}

// finish is phase two: the job reports full progress and the root of its
// flow advances by one unit.
func (o *Orchestrator) finish(ctx context.Context, exec syncdomain.Execution, logger *slog.Logger) {
	if err := o.queue.UpdateProgress(ctx, exec.JobID, 100); err != nil {
		logger.WarnContext(ctx, "Failed to report job progress", slog.Any("error", err))
	}

	if flow := exec.Payload.Flow(); flow != nil && flow.RootJobID != "" && flow.RootJobID != exec.JobID {
		total := 0
		if flow.Plan != nil {
			total = flow.Plan.TotalUnits
		}
		pct, err := o.queue.AdvanceRootProgress(ctx, flow.RootJobID, total)
		if err != nil {
			logger.WarnContext(ctx, "Failed to advance root progress",
				slog.String("root_job_id", flow.RootJobID),
				slog.Any("error", err),
			)
		} else {
			logger.DebugContext(ctx, "Root progress advanced",
				slog.String("root_job_id", flow.RootJobID),
				slog.Int("progress", pct),
			)
		}
	}

	logger.InfoContext(ctx, "Job completed")
}

// reportProgress writes intermediate progress when the percentage moved.
func (o *Orchestrator) reportProgress(ctx context.Context, exec syncdomain.Execution, tracker *syncdomain.ProgressTracker, completed int) {
	before := tracker.Reported()
	if pct := tracker.Update(completed); pct > before && pct < 100 {
		if err := o.queue.UpdateProgress(ctx, exec.JobID, pct); err != nil {
			o.logger.WarnContext(ctx, "Failed to report job progress",
				slog.String("job_id", exec.JobID),
				slog.Any("error", err),
			)
		}
	}
}

// skipMissing reports whether err means a referenced record is gone. Such
// units are logged and skipped instead of failing the job.
func skipMissing(ctx context.Context, logger *slog.Logger, err error, what string) bool {
	if errors.Is(err, tournamentapi.ErrNotFound) || errors.Is(err, syncdomain.ErrMissingReference) || errors.Is(err, syncdb.ErrNotFound) {
		logger.WarnContext(ctx, "Skipping missing reference",
			slog.String("reference", what),
			slog.Any("error", err),
		)
		return true
	}
	return false
}

// batchError returns an error only when every item of a batch failed.
func batchError(what string, total int, errs []error) error {
	if total == 0 || len(errs) < total {
		return nil
	}
	return fmt.Errorf("all %d %s failed: %w", total, what, errors.Join(errs...))
}

// runInTx runs fn in a transaction when a database is configured.
func runInTx[T any](
	o *Orchestrator,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (T, error),
) (T, error) {
	if o.db == nil {
		return fn(ctx, nil)
	}

	var result T
	err := o.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}
