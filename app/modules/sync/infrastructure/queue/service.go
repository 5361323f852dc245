package syncqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	syncmetrics "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/metrics"
	"github.com/uptrace/bun"
)

// ErrJobFinished is returned when a transition is requested on a job that
// already completed or failed.
var ErrJobFinished = errors.New("sync job already finished")

// Executor runs one delivery of a job.
type Executor interface {
	Execute(ctx context.Context, exec syncdomain.Execution) error
}

// Dispatcher hands ready jobs to the worker transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobs []SyncJobArgs) error
}

// EventPublisher receives job lifecycle events.
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, event syncdomain.JobEvent) error
}

// Options tune the outbox sweep.
type Options struct {
	// StaleAfter is how long a pending row may wait before the sweep re-dispatches it.
	StaleAfter time.Duration
	// Retention is how long finished rows are kept. Zero keeps them forever.
	Retention  time.Duration
	SweepBatch int
}

// Service is the flow queue: it persists jobs, gates them on dependencies and
// children, and hands ready jobs to the dispatcher.
type Service struct {
	store      Store
	db         *bun.DB
	dispatcher Dispatcher
	executor   Executor
	publisher  EventPublisher
	metrics    syncmetrics.SyncMetrics
	logger     *slog.Logger
	opts       Options
	now        func() time.Time
}

// NewService creates the flow queue. The dispatcher and executor are bound later
// because both depend on the queue themselves.
func NewService(store Store, db *bun.DB, publisher EventPublisher, metrics syncmetrics.SyncMetrics, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = syncmetrics.NewNoop()
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = time.Minute
	}
	if opts.SweepBatch <= 0 {
		opts.SweepBatch = 200
	}
	return &Service{
		store:     store,
		db:        db,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "sync_queue")),
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetDispatcher binds the worker transport.
func (s *Service) SetDispatcher(d Dispatcher) { s.dispatcher = d }

// SetExecutor binds the job executor.
func (s *Service) SetExecutor(e Executor) { s.executor = e }

// runInTx runs fn in a transaction when a database is configured.
func (s *Service) runInTx(ctx context.Context, fn func(ctx context.Context, db bun.IDB) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

// Submit persists a single job. Submitting an id that already exists is a no-op.
func (s *Service) Submit(ctx context.Context, spec syncdomain.JobSpec) error {
	return s.SubmitBatch(ctx, []syncdomain.JobSpec{spec})
}

// SubmitBatch persists all jobs and their dependency edges atomically, then
// dispatches the ones that are ready.
func (s *Service) SubmitBatch(ctx context.Context, specs []syncdomain.JobSpec) error {
	if len(specs) == 0 {
		return nil
	}

	now := s.now()
	rows := make([]*JobRow, 0, len(specs))
	var deps []DependencyRow
	for _, spec := range specs {
		row, err := newJobRow(spec, now)
		if err != nil {
			return err
		}
		rows = append(rows, row)
		for _, d := range spec.DependsOn {
			deps = append(deps, DependencyRow{JobID: spec.ID, DependsOn: d})
		}
	}

	var ready []*JobRow
	isNew := make(map[string]bool, len(rows))
	err := s.runInTx(ctx, func(ctx context.Context, db bun.IDB) error {
		inserted, err := s.store.InsertJobs(ctx, db, rows, deps)
		if err != nil {
			return err
		}
		clear(isNew)
		for _, id := range inserted {
			isNew[id] = true
		}
		ready = ready[:0]
		for _, row := range rows {
			if !isNew[row.JobID] {
				continue
			}
			if row.State == syncdomain.JobStateWaiting {
				unmet, err := s.store.CountUnmetDependencies(ctx, db, row.JobID)
				if err != nil {
					return err
				}
				if unmet > 0 {
					continue
				}
				row.State = syncdomain.JobStatePending
				if err := s.store.UpdateJob(ctx, db, row, "state"); err != nil {
					return err
				}
			}
			ready = append(ready, row)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("submit batch: %w", err)
	}

	if skipped := len(rows) - len(isNew); skipped > 0 {
		s.logger.DebugContext(ctx, "Skipped jobs that already exist",
			slog.Int("submitted", len(rows)),
			slog.Int("skipped", skipped),
		)
	}

	s.dispatch(ctx, ready)
	for _, row := range rows {
		if isNew[row.JobID] {
			s.publish(ctx, s.event(row, ""))
		}
	}
	return nil
}

func newJobRow(spec syncdomain.JobSpec, now time.Time) (*JobRow, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("%w: job id is required", syncdomain.ErrMalformedPayload)
	}
	env, err := syncdomain.EncodePayload(spec.Payload)
	if err != nil {
		return nil, err
	}

	row := &JobRow{
		JobID:               spec.ID,
		Kind:                spec.Payload.Kind(),
		Domain:              payloadDomain(spec.Payload),
		ParentID:            spec.ParentID,
		Payload:             env,
		State:               syncdomain.JobStatePending,
		FailParentOnFailure: spec.FailParentOnFailure,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if len(spec.DependsOn) > 0 {
		row.State = syncdomain.JobStateWaiting
	}
	if spec.ParentID != "" {
		row.Options = map[string]any{"parent": map[string]any{"id": spec.ParentID, "queue": QueueName}}
	}
	if flow := spec.Payload.Flow(); flow != nil && flow.Plan != nil && spec.ParentID == "" {
		row.TotalUnits = flow.Plan.TotalUnits
	}
	return row, nil
}

func payloadDomain(p syncdomain.Payload) syncdomain.Domain {
	if flow := p.Flow(); flow != nil && flow.Domain != "" {
		return flow.Domain
	}
	if _, ok := p.(*syncdomain.TeamMatchingPayload); ok {
		return syncdomain.DomainCompetition
	}
	return syncdomain.DomainTournament
}

// dispatch hands rows to the transport. Rows that cannot be dispatched stay
// pending and are picked up by the sweep.
func (s *Service) dispatch(ctx context.Context, rows []*JobRow) {
	if len(rows) == 0 {
		return
	}
	if s.dispatcher == nil {
		s.logger.WarnContext(ctx, "No dispatcher bound, leaving jobs pending", slog.Int("count", len(rows)))
		return
	}

	args := make([]SyncJobArgs, len(rows))
	ids := make([]string, len(rows))
	for i, row := range rows {
		args[i] = row.args()
		ids[i] = row.JobID
	}
	if err := s.dispatcher.Dispatch(ctx, args); err != nil {
		s.logger.WarnContext(ctx, "Dispatch failed, jobs stay pending",
			slog.Int("count", len(rows)),
			slog.Any("error", err),
		)
		return
	}
	if err := s.store.MarkQueued(ctx, nil, ids); err != nil {
		s.logger.WarnContext(ctx, "Failed to mark jobs queued", slog.Any("error", err))
	}
}

// Run executes one delivery of a job. It returns nil when the job completed,
// suspended itself or was a stale delivery, and the execution error otherwise
// so the transport can retry.
func (s *Service) Run(ctx context.Context, args SyncJobArgs, attempt, maxAttempts int) error {
	logger := s.logger.With(
		slog.String("job_id", args.JobID),
		slog.Int("generation", args.Generation),
		slog.Int("attempt", attempt),
	)
	if s.executor == nil {
		return fmt.Errorf("no executor bound for job %s", args.JobID)
	}

	row, skip, err := s.begin(ctx, args)
	if err != nil {
		return err
	}
	if skip {
		logger.DebugContext(ctx, "Skipping stale delivery")
		return nil
	}

	payload, err := syncdomain.DecodePayload(row.Payload)
	if err != nil {
		logger.ErrorContext(ctx, "Job payload cannot be decoded", slog.Any("error", err))
		return s.fail(ctx, row.JobID, err, true)
	}

	exec := syncdomain.Execution{
		JobID:       row.JobID,
		Payload:     payload,
		Generation:  row.Generation,
		Attempt:     attempt,
		MaxAttempts: maxAttempts,
	}
	if args.Resume {
		exec.ResumeToken = syncdomain.ResumeToken(row.JobID, row.Generation)
	}

	err = s.executor.Execute(ctx, exec)
	switch {
	case errors.Is(err, syncdomain.ErrWaitingOnChildren):
		logger.InfoContext(ctx, "Job suspended until children finish")
		return nil
	case err != nil:
		if ferr := s.fail(ctx, row.JobID, err, exec.FinalAttempt()); ferr != nil {
			logger.ErrorContext(ctx, "Failed to record job failure", slog.Any("error", ferr))
		}
		return err
	}
	return s.complete(ctx, row.JobID)
}

// begin claims the row for this delivery.
func (s *Service) begin(ctx context.Context, args SyncJobArgs) (*JobRow, bool, error) {
	var claimed *JobRow
	err := s.runInTx(ctx, func(ctx context.Context, db bun.IDB) error {
		row, err := s.store.LockJob(ctx, db, args.JobID)
		if errors.Is(err, ErrJobNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if row.Generation != args.Generation {
			return nil
		}
		switch row.State {
		case syncdomain.JobStatePending, syncdomain.JobStateQueued, syncdomain.JobStateRetrying, syncdomain.JobStateActive:
		default:
			return nil
		}
		row.State = syncdomain.JobStateActive
		row.Attempts++
		if err := s.store.UpdateJob(ctx, db, row, "state", "attempts"); err != nil {
			return err
		}
		claimed = row
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("claim job %s: %w", args.JobID, err)
	}
	if claimed == nil {
		return nil, true, nil
	}
	s.publish(ctx, s.event(claimed, ""))
	return claimed, false, nil
}

// complete marks the job completed, releases dependents whose dependencies are
// now all met and resumes a parent waiting on its children.
func (s *Service) complete(ctx context.Context, jobID string) error {
	var events []syncdomain.JobEvent
	var ready []*JobRow
	var done *JobRow

	err := s.runInTx(ctx, func(ctx context.Context, db bun.IDB) error {
		row, err := s.store.LockJob(ctx, db, jobID)
		if err != nil {
			return err
		}
		if row.State.Terminal() {
			return nil
		}
		now := s.now()
		row.State = syncdomain.JobStateCompleted
		row.Progress = 100
		row.LastError = ""
		row.FinishedAt = &now
		if err := s.store.UpdateJob(ctx, db, row, "state", "progress", "last_error", "finished_at"); err != nil {
			return err
		}
		done = row
		events = append(events, s.event(row, ""))

		released, err := s.releaseDependents(ctx, db, row.JobID)
		if err != nil {
			return err
		}
		ready = append(ready, released...)

		parent, err := s.settleParent(ctx, db, row.ParentID)
		if err != nil {
			return err
		}
		if parent != nil {
			ready = append(ready, parent)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("complete job %s: %w", jobID, err)
	}

	if done != nil {
		s.metrics.RecordJobOutcome(ctx, string(done.Kind), string(syncdomain.JobStateCompleted))
	}
	s.dispatch(ctx, ready)
	s.publish(ctx, events...)
	return nil
}

func (s *Service) releaseDependents(ctx context.Context, db bun.IDB, jobID string) ([]*JobRow, error) {
	ids, err := s.store.ListWaitingDependents(ctx, db, jobID)
	if err != nil {
		return nil, err
	}
	var ready []*JobRow
	for _, id := range ids {
		unmet, err := s.store.CountUnmetDependencies(ctx, db, id)
		if err != nil {
			return nil, err
		}
		if unmet > 0 {
			continue
		}
		dep, err := s.store.LockJob(ctx, db, id)
		if err != nil {
			return nil, err
		}
		if dep.State != syncdomain.JobStateWaiting {
			continue
		}
		dep.State = syncdomain.JobStatePending
		if err := s.store.UpdateJob(ctx, db, dep, "state"); err != nil {
			return nil, err
		}
		ready = append(ready, dep)
	}
	return ready, nil
}

// settleParent re-dispatches a parent in waiting_children once none of its
// children is still unfinished. The new generation marks the delivery as a
// resumption.
func (s *Service) settleParent(ctx context.Context, db bun.IDB, parentID string) (*JobRow, error) {
	if parentID == "" {
		return nil, nil
	}
	parent, err := s.store.LockJob(ctx, db, parentID)
	if errors.Is(err, ErrJobNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if parent.State != syncdomain.JobStateWaitingChildren {
		return nil, nil
	}
	unfinished, err := s.store.CountUnfinishedChildren(ctx, db, parentID)
	if err != nil {
		return nil, err
	}
	if unfinished > 0 {
		return nil, nil
	}
	parent.Generation++
	parent.State = syncdomain.JobStatePending
	if err := s.store.UpdateJob(ctx, db, parent, "state", "generation"); err != nil {
		return nil, err
	}
	return parent, nil
}

// MoveToFailed records a failure. A non-final failure leaves the job retrying;
// a final one fails it, its waiting dependents and, when configured, its parent.
func (s *Service) MoveToFailed(ctx context.Context, jobID string, cause error, final bool) error {
	return s.fail(ctx, jobID, cause, final)
}

func (s *Service) fail(ctx context.Context, jobID string, cause error, final bool) error {
	var events []syncdomain.JobEvent
	var ready []*JobRow
	var failed []*JobRow

	err := s.runInTx(ctx, func(ctx context.Context, db bun.IDB) error {
		row, err := s.store.LockJob(ctx, db, jobID)
		if err != nil {
			return err
		}
		if row.State.Terminal() {
			return nil
		}
		if !final {
			row.State = syncdomain.JobStateRetrying
			row.LastError = cause.Error()
			if err := s.store.UpdateJob(ctx, db, row, "state", "last_error"); err != nil {
				return err
			}
			events = append(events, s.event(row, row.LastError))
			return nil
		}
		return s.failCascade(ctx, db, row, cause.Error(), &events, &ready, &failed)
	})
	if err != nil {
		return fmt.Errorf("fail job %s: %w", jobID, err)
	}

	for _, row := range failed {
		s.metrics.RecordJobOutcome(ctx, string(row.Kind), string(syncdomain.JobStateFailed))
	}
	s.dispatch(ctx, ready)
	s.publish(ctx, events...)
	return nil
}

func (s *Service) failCascade(ctx context.Context, db bun.IDB, row *JobRow, reason string, events *[]syncdomain.JobEvent, ready, failed *[]*JobRow) error {
	now := s.now()
	row.State = syncdomain.JobStateFailed
	row.LastError = reason
	row.FinishedAt = &now
	if err := s.store.UpdateJob(ctx, db, row, "state", "last_error", "finished_at"); err != nil {
		return err
	}
	*events = append(*events, s.event(row, reason))
	*failed = append(*failed, row)

	// the parent goes first so a dependent settling it cannot resume it
	if row.ParentID != "" && row.FailParentOnFailure {
		parent, err := s.store.LockJob(ctx, db, row.ParentID)
		if err != nil && !errors.Is(err, ErrJobNotFound) {
			return err
		}
		if parent != nil && !parent.State.Terminal() {
			if err := s.failCascade(ctx, db, parent, fmt.Sprintf("child %s failed: %s", row.JobID, reason), events, ready, failed); err != nil {
				return err
			}
		}
	}

	dependents, err := s.store.ListWaitingDependents(ctx, db, row.JobID)
	if err != nil {
		return err
	}
	for _, id := range dependents {
		dep, err := s.store.LockJob(ctx, db, id)
		if err != nil {
			return err
		}
		if dep.State.Terminal() {
			continue
		}
		if err := s.failCascade(ctx, db, dep, fmt.Sprintf("dependency %s failed: %s", row.JobID, reason), events, ready, failed); err != nil {
			return err
		}
	}

	if row.ParentID == "" || row.FailParentOnFailure {
		return nil
	}
	parent, err := s.settleParent(ctx, db, row.ParentID)
	if err != nil {
		return err
	}
	if parent != nil {
		*ready = append(*ready, parent)
	}
	return nil
}

// MoveToWaitingChildren suspends the job while any of its children is unfinished.
// It reports false when there is nothing to wait for.
func (s *Service) MoveToWaitingChildren(ctx context.Context, jobID string) (bool, error) {
	var waiting *JobRow
	err := s.runInTx(ctx, func(ctx context.Context, db bun.IDB) error {
		row, err := s.store.LockJob(ctx, db, jobID)
		if err != nil {
			return err
		}
		if row.State.Terminal() {
			return fmt.Errorf("%w: %s is %s", ErrJobFinished, jobID, row.State)
		}
		unfinished, err := s.store.CountUnfinishedChildren(ctx, db, jobID)
		if err != nil {
			return err
		}
		if unfinished == 0 {
			return nil
		}
		row.State = syncdomain.JobStateWaitingChildren
		if err := s.store.UpdateJob(ctx, db, row, "state"); err != nil {
			return err
		}
		waiting = row
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("move %s to waiting children: %w", jobID, err)
	}
	if waiting == nil {
		return false, nil
	}
	s.publish(ctx, s.event(waiting, ""))
	return true, nil
}

// UpdatePayload replaces the persisted payload of a job.
func (s *Service) UpdatePayload(ctx context.Context, jobID string, payload syncdomain.Payload) error {
	env, err := syncdomain.EncodePayload(payload)
	if err != nil {
		return err
	}
	row := &JobRow{JobID: jobID, Payload: env}
	if err := s.store.UpdateJob(ctx, nil, row, "payload"); err != nil {
		return fmt.Errorf("update payload of %s: %w", jobID, err)
	}
	return nil
}

// UpdateProgress raises the progress of a job; lower values are ignored.
func (s *Service) UpdateProgress(ctx context.Context, jobID string, progress int) error {
	progress = max(0, min(100, progress))
	stored, err := s.store.UpdateProgress(ctx, nil, jobID, progress)
	if err != nil {
		return fmt.Errorf("update progress of %s: %w", jobID, err)
	}
	s.publish(ctx, syncdomain.JobEvent{
		JobID:      jobID,
		State:      syncdomain.JobStateActive,
		Progress:   stored,
		OccurredAt: s.now(),
	})
	return nil
}

// AdvanceRootProgress counts one finished unit towards the root job of a flow
// and returns the root's progress.
func (s *Service) AdvanceRootProgress(ctx context.Context, rootID string, total int) (int, error) {
	if rootID == "" {
		return 0, nil
	}
	progress, err := s.store.AdvanceRootProgress(ctx, nil, rootID, total)
	if err != nil {
		return 0, fmt.Errorf("advance root progress of %s: %w", rootID, err)
	}
	s.publish(ctx, syncdomain.JobEvent{
		JobID:      rootID,
		State:      syncdomain.JobStateActive,
		Progress:   progress,
		OccurredAt: s.now(),
	})
	return progress, nil
}

// GetJob returns the persisted view of a job.
func (s *Service) GetJob(ctx context.Context, jobID string) (*syncdomain.JobRecord, error) {
	row, err := s.store.GetJob(ctx, nil, jobID)
	if err != nil {
		return nil, err
	}
	rec := row.Record()
	return &rec, nil
}

// Stats counts jobs per state.
func (s *Service) Stats(ctx context.Context) (syncdomain.QueueStats, error) {
	counts, err := s.store.CountByState(ctx, nil)
	if err != nil {
		return syncdomain.QueueStats{}, err
	}
	var stats syncdomain.QueueStats
	for state, n := range counts {
		stats.Add(state, n)
	}
	return stats, nil
}

// ListRecent returns the most recently updated jobs, optionally filtered by state.
func (s *Service) ListRecent(ctx context.Context, limit int, state *syncdomain.JobState) ([]syncdomain.JobRecord, error) {
	rows, err := s.store.ListRecent(ctx, nil, limit, state)
	if err != nil {
		return nil, err
	}
	out := make([]syncdomain.JobRecord, len(rows))
	for i, row := range rows {
		out[i] = row.Record()
	}
	return out, nil
}

// Sweep re-dispatches pending rows that were never handed to the transport and
// purges finished rows past the retention.
func (s *Service) Sweep(ctx context.Context) error {
	stale, err := s.store.ListStale(ctx, nil, syncdomain.JobStatePending, s.now().Add(-s.opts.StaleAfter), s.opts.SweepBatch)
	if err != nil {
		return err
	}
	if len(stale) > 0 {
		s.logger.InfoContext(ctx, "Re-dispatching stale pending jobs", slog.Int("count", len(stale)))
		s.dispatch(ctx, stale)
	}

	if s.opts.Retention > 0 {
		purged, err := s.store.PurgeFinished(ctx, nil, s.now().Add(-s.opts.Retention))
		if err != nil {
			return err
		}
		if purged > 0 {
			s.logger.InfoContext(ctx, "Purged finished jobs", slog.Int("count", purged))
		}
	}
	return nil
}

func (s *Service) event(row *JobRow, errMsg string) syncdomain.JobEvent {
	return syncdomain.JobEvent{
		JobID:      row.JobID,
		Kind:       row.Kind,
		ParentID:   row.ParentID,
		State:      row.State,
		Progress:   row.Progress,
		Error:      errMsg,
		OccurredAt: s.now(),
	}
}

func (s *Service) publish(ctx context.Context, events ...syncdomain.JobEvent) {
	if s.publisher == nil {
		return
	}
	for _, ev := range events {
		if err := s.publisher.PublishJobEvent(ctx, ev); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish job event",
				slog.String("job_id", ev.JobID),
				slog.String("state", string(ev.State)),
				slog.Any("error", err),
			)
		}
	}
}
