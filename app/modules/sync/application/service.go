package syncservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	syncmetrics "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/metrics"
	syncdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/repositories"
	"github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/tournamentapi"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName = "SyncService"

	defaultRecentJobs = 20
	maxRecentJobs     = 500

	scopeDateLayout = "20060102"
)

// ErrInvalidRequest is returned for requests that can never be queued.
var ErrInvalidRequest = errors.New("invalid sync request")

// Deps are the collaborators of a SyncService.
type Deps struct {
	Queue      Queue
	Repo       syncdb.Repository
	API        tournamentapi.Client
	Matcher    TeamMatcher
	Subscriber EventSubscriber
	Logger     *slog.Logger
	Metrics    syncmetrics.SyncMetrics
	Tracer     trace.Tracer
	Clock      syncdomain.Clock

	// Season is the window in which discovered competitions are synced.
	Season             syncdomain.SeasonWindow
	PlannerConcurrency int
	DB                 *bun.DB
}

// SyncService implements the Service interface.
type SyncService struct {
	queue        Queue
	repo         syncdb.Repository
	api          tournamentapi.Client
	planner      *Planner
	discovery    *Discovery
	orchestrator *Orchestrator
	subscriber   EventSubscriber
	logger       *slog.Logger
	metrics      syncmetrics.SyncMetrics
	tracer       trace.Tracer
	clock        syncdomain.Clock
}

// NewSyncService wires the planner, reconciler, discovery and orchestrator.
func NewSyncService(deps Deps) *SyncService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = syncmetrics.NewNoop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = syncdomain.RealClock{}
	}
	season := deps.Season
	if season.StartMonth == 0 || season.EndMonth == 0 {
		season = DefaultCompetitionWindow
	}

	s := &SyncService{
		queue:      deps.Queue,
		repo:       deps.Repo,
		api:        deps.API,
		planner:    NewPlanner(deps.API, logger, deps.PlannerConcurrency),
		subscriber: deps.Subscriber,
		logger:     logger,
		metrics:    metrics,
		tracer:     deps.Tracer,
		clock:      clock,
	}

	reconciler := NewReconciler(deps.Repo, clock, metrics)
	s.discovery = NewDiscovery(deps.API, deps.Repo, reconciler, s, clock, season, logger)
	s.orchestrator = NewOrchestrator(
		deps.Queue, deps.API, deps.Repo, reconciler, deps.Matcher, s.discovery,
		deps.DB, clock, logger, deps.Tracer, metrics,
	)
	return s
}

var _ Service = (*SyncService)(nil)

// Executor is what the queue runs deliveries with.
func (s *SyncService) Executor() *Orchestrator {
	return s.orchestrator
}

// QueueDiscovery queues one page of tournament discovery.
func (s *SyncService) QueueDiscovery(ctx context.Context, req DiscoveryRequest) (string, error) {
	refDate := req.RefDate
	if refDate.IsZero() {
		refDate = s.clock.Now()
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultDiscoveryPageSize
	}

	ids := []string{refDate.Format(scopeDateLayout)}
	if req.SearchTerm != "" {
		ids = append(ids, req.SearchTerm)
	}
	jobID := syncdomain.GenerateJobID(syncdomain.DomainTournament, syncdomain.ComponentDiscovery, ids...)

	return withTelemetry(s, ctx, "QueueDiscovery", jobID, func(ctx context.Context) (string, error) {
		err := s.queue.Submit(ctx, syncdomain.JobSpec{
			ID: jobID,
			Payload: &syncdomain.DiscoveryPayload{
				RefDate:    refDate,
				PageSize:   pageSize,
				SearchTerm: req.SearchTerm,
			},
		})
		if err != nil {
			return "", err
		}
		s.logger.InfoContext(ctx, "Discovery queued", slog.String("job_id", jobID))
		return jobID, nil
	})
}

// QueueStructureSync computes the work plan of a subject and queues its root
// structure job.
func (s *SyncService) QueueStructureSync(ctx context.Context, req StructureSyncRequest) (string, error) {
	return withTelemetry(s, ctx, "QueueStructureSync", req.SubjectCode, func(ctx context.Context) (string, error) {
		if strings.TrimSpace(req.SubjectCode) == "" {
			return "", fmt.Errorf("%w: subject code is required", ErrInvalidRequest)
		}

		payload := &syncdomain.StructureSyncPayload{
			SubjectCode:          req.SubjectCode,
			EventCodes:           req.EventCodes,
			IncludeSubComponents: req.IncludeSubComponents,
		}
		event, err := s.repo.GetEventByExternalCode(ctx, nil, req.SubjectCode)
		switch {
		case err == nil:
			payload.EventID = event.ID
			payload.Domain = event.Kind
		case errors.Is(err, syncdb.ErrNotFound):
			payload.Domain = s.remoteDomain(ctx, req.SubjectCode)
		default:
			return "", fmt.Errorf("failed to look up event %s: %w", req.SubjectCode, err)
		}
		if payload.Domain == "" {
			payload.Domain = syncdomain.DomainTournament
		}

		plan := s.planner.CalculateWorkPlan(ctx, payload.Domain, req.SubjectCode, req.EventCodes, req.IncludeSubComponents)
		payload.Plan = &plan

		jobID := syncdomain.GenerateJobID(payload.Domain, syncdomain.ComponentStructure, req.SubjectCode)
		payload.RootJobID = jobID
		if err := s.queue.Submit(ctx, syncdomain.JobSpec{ID: jobID, Payload: payload}); err != nil {
			return "", err
		}

		s.logger.InfoContext(ctx, "Structure sync queued",
			slog.String("job_id", jobID),
			slog.String("domain", string(payload.Domain)),
			slog.Int("total_units", plan.TotalUnits),
		)
		return jobID, nil
	})
}

// remoteDomain asks the API what kind of subject the code is.
func (s *SyncService) remoteDomain(ctx context.Context, code string) syncdomain.Domain {
	t, err := s.api.GetTournament(ctx, code)
	if err != nil {
		s.logger.WarnContext(ctx, "Could not resolve subject domain, assuming tournament",
			slog.String("subject_code", code),
			slog.Any("error", err),
		)
		return syncdomain.DomainTournament
	}
	return syncdomain.MapDomain(t.TypeCode)
}

// QueueGameSync queues a result sync for a subject that is already synced.
func (s *SyncService) QueueGameSync(ctx context.Context, req GameSyncRequest) (string, error) {
	return withTelemetry(s, ctx, "QueueGameSync", req.SubjectCode, func(ctx context.Context) (string, error) {
		if strings.TrimSpace(req.SubjectCode) == "" {
			return "", fmt.Errorf("%w: subject code is required", ErrInvalidRequest)
		}

		event, err := s.repo.GetEventByExternalCode(ctx, nil, req.SubjectCode)
		if errors.Is(err, syncdb.ErrNotFound) {
			return "", fmt.Errorf("%w: event %s is not synced yet", syncdomain.ErrMissingReference, req.SubjectCode)
		}
		if err != nil {
			return "", fmt.Errorf("failed to look up event %s: %w", req.SubjectCode, err)
		}

		scope := s.clock.Now()
		if req.Date != nil {
			scope = *req.Date
		}
		scopeKey := scope.Format(scopeDateLayout)

		breakdown := syncdomain.Breakdown{Games: 1}
		if req.Date == nil && len(req.MatchCodes) == 0 {
			draws, err := s.repo.GetDrawsByEvent(ctx, nil, event.ID)
			if err != nil {
				return "", fmt.Errorf("failed to load draws of %s: %w", req.SubjectCode, err)
			}
			breakdown = syncdomain.Breakdown{Events: 1, Games: len(draws)}
		}
		plan := syncdomain.NewWorkPlan(req.SubjectCode, breakdown, nil)

		ids := append([]string{req.SubjectCode, scopeKey}, req.MatchCodes...)
		jobID := syncdomain.GenerateJobID(event.Kind, syncdomain.ComponentScores, ids...)
		payload := &syncdomain.GameSyncPayload{
			FlowContext: syncdomain.FlowContext{
				Domain:    event.Kind,
				RootJobID: jobID,
				Plan:      &plan,
			},
			SubjectCode: req.SubjectCode,
			EventID:     event.ID,
			Date:        req.Date,
			MatchCodes:  req.MatchCodes,
			ScopeKey:    scopeKey,
		}
		if err := s.queue.Submit(ctx, syncdomain.JobSpec{ID: jobID, Payload: payload}); err != nil {
			return "", err
		}

		s.logger.InfoContext(ctx, "Game sync queued",
			slog.String("job_id", jobID),
			slog.Int("total_units", plan.TotalUnits),
		)
		return jobID, nil
	})
}

// QueueTeamMatching queues a matching attempt for one external team.
func (s *SyncService) QueueTeamMatching(ctx context.Context, payload syncdomain.TeamMatchingPayload) (string, error) {
	return withTelemetry(s, ctx, "QueueTeamMatching", payload.ExternalTeamCode, func(ctx context.Context) (string, error) {
		if payload.ExternalTeamCode == "" {
			return "", fmt.Errorf("%w: external team code is required", ErrInvalidRequest)
		}
		scope := payload.EventCode
		if scope == "" {
			scope = payload.EventID.String()
		}
		jobID := syncdomain.GenerateJobID(syncdomain.DomainCompetition, syncdomain.ComponentTeamMatch, scope, payload.ExternalTeamCode)

		p := payload
		if err := s.queue.Submit(ctx, syncdomain.JobSpec{ID: jobID, Payload: &p}); err != nil {
			return "", err
		}
		s.logger.InfoContext(ctx, "Team matching queued",
			slog.String("job_id", jobID),
			slog.String("external_team_code", payload.ExternalTeamCode),
		)
		return jobID, nil
	})
}

// GetQueueStats returns job counts per state.
func (s *SyncService) GetQueueStats(ctx context.Context) (syncdomain.QueueStats, error) {
	return withTelemetry(s, ctx, "GetQueueStats", "", func(ctx context.Context) (syncdomain.QueueStats, error) {
		return s.queue.Stats(ctx)
	})
}

// GetRecentJobs lists the most recently updated jobs.
func (s *SyncService) GetRecentJobs(ctx context.Context, limit int, state *syncdomain.JobState) ([]syncdomain.JobRecord, error) {
	if limit <= 0 {
		limit = defaultRecentJobs
	}
	limit = min(limit, maxRecentJobs)
	return withTelemetry(s, ctx, "GetRecentJobs", "", func(ctx context.Context) ([]syncdomain.JobRecord, error) {
		return s.queue.ListRecent(ctx, limit, state)
	})
}

// GetJob returns one job.
func (s *SyncService) GetJob(ctx context.Context, jobID string) (*syncdomain.JobRecord, error) {
	return withTelemetry(s, ctx, "GetJob", jobID, func(ctx context.Context) (*syncdomain.JobRecord, error) {
		return s.queue.GetJob(ctx, jobID)
	})
}

// SubscribeJobEvents streams job lifecycle events until ctx is done.
func (s *SyncService) SubscribeJobEvents(ctx context.Context) (<-chan syncdomain.JobEvent, error) {
	if s.subscriber == nil {
		return nil, errors.New("job events are not available")
	}
	return s.subscriber.SubscribeJobEvents(ctx)
}

func withTelemetry[T any](
	s *SyncService,
	ctx context.Context,
	operationName string,
	identifier string,
	op func(ctx context.Context) (T, error),
) (result T, err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("identifier", identifier),
				slog.Any("error", err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			span.RecordError(err)
			var zero T
			result = zero
		}
	}()

	result, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("error", wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	return result, nil
}
