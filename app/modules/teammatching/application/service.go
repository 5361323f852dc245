package teammatchservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	syncmetrics "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/metrics"
	teammatchdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/domain"
	teammatchdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	serviceName = "TeamMatchingService"
	searchLimit = 50
)

// ErrReviewClosed is returned when resolving a review that is no longer pending.
var ErrReviewClosed = errors.New("team review already closed")

// TeamMatchingService implements the Service interface.
type TeamMatchingService struct {
	repo    teammatchdb.Repository
	logger  *slog.Logger
	metrics syncmetrics.SyncMetrics
	tracer  trace.Tracer
	db      *bun.DB
	now     func() time.Time
}

// NewTeamMatchingService creates a new TeamMatchingService.
func NewTeamMatchingService(
	repo teammatchdb.Repository,
	logger *slog.Logger,
	metrics syncmetrics.SyncMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *TeamMatchingService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = syncmetrics.NewNoop()
	}
	return &TeamMatchingService{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		db:      db,
		now:     time.Now,
	}
}

// MatchTeam scores internal teams against the external one and records either
// a link or a manual review.
func (s *TeamMatchingService) MatchTeam(ctx context.Context, req MatchRequest) teammatchdomain.MatchResult {
	ext := teammatchdomain.NewExternalTeamCandidate(req.ExternalCode, req.ExternalName, req.ClubName)

	result, err := withTelemetry(s, ctx, "MatchTeam", req.ExternalCode, func(ctx context.Context) (teammatchdomain.MatchResult, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (teammatchdomain.MatchResult, error) {
			return s.matchTeamLogic(ctx, db, req.EventID, ext)
		})
	})
	if err != nil {
		result = teammatchdomain.ReviewOnError(ext, err)
		s.recordReview(ctx, req.EventID, result)
	}

	s.metrics.RecordTeamMatch(ctx, string(result.Outcome))
	return result
}

func (s *TeamMatchingService) matchTeamLogic(ctx context.Context, db bun.IDB, eventID uuid.UUID, ext teammatchdomain.ExternalTeamCandidate) (teammatchdomain.MatchResult, error) {
	link, err := s.repo.GetLink(ctx, db, eventID, ext.ExternalCode)
	switch {
	case err == nil:
		return linkedResult(ext, link), nil
	case !errors.Is(err, teammatchdb.ErrNotFound):
		return teammatchdomain.MatchResult{}, fmt.Errorf("failed to check existing link: %w", err)
	}

	byClub, err := s.repo.SearchTeamsByClub(ctx, db, ext.ClubName, searchLimit)
	if err != nil {
		return teammatchdomain.MatchResult{}, err
	}
	byName, err := s.repo.SearchTeamsByName(ctx, db, ext.NormalizedName, searchLimit)
	if err != nil {
		return teammatchdomain.MatchResult{}, err
	}

	teams := make([]teammatchdomain.Team, 0, len(byClub)+len(byName))
	for _, t := range append(byClub, byName...) {
		teams = append(teams, toDomainTeam(t))
	}
	result := teammatchdomain.Decide(ext, teammatchdomain.RankCandidates(ext, teams))

	if result.Outcome.AutoMatched() {
		err = s.repo.SaveLink(ctx, db, &teammatchdb.ExternalLink{
			EventID:      eventID,
			ExternalCode: ext.ExternalCode,
			ExternalName: ext.ExternalName,
			TeamID:       result.Match.InternalTeamID,
			Outcome:      string(result.Outcome),
			Score:        result.Match.Score,
		})
		if err != nil {
			return teammatchdomain.MatchResult{}, err
		}
		s.logger.InfoContext(ctx, "External team matched",
			slog.String("external_code", ext.ExternalCode),
			slog.String("team_id", result.Match.InternalTeamID.String()),
			slog.Float64("score", result.Match.Score),
			slog.String("outcome", string(result.Outcome)),
		)
		return result, nil
	}

	if err := s.repo.SaveReview(ctx, db, reviewRecord(eventID, result)); err != nil {
		return teammatchdomain.MatchResult{}, err
	}
	s.logger.InfoContext(ctx, "External team queued for manual review",
		slog.String("external_code", ext.ExternalCode),
		slog.Int("suggestions", len(result.Suggestions)),
	)
	return result, nil
}

// recordReview persists a review outside the failed transaction.
func (s *TeamMatchingService) recordReview(ctx context.Context, eventID uuid.UUID, result teammatchdomain.MatchResult) {
	if err := s.repo.SaveReview(ctx, nil, reviewRecord(eventID, result)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record manual review",
			slog.String("external_code", result.External.ExternalCode),
			slog.Any("error", err),
		)
	}
}

// ListReviews lists reviews by status.
func (s *TeamMatchingService) ListReviews(ctx context.Context, status teammatchdb.ReviewStatus, limit int) ([]*teammatchdb.Review, error) {
	return withTelemetry(s, ctx, "ListReviews", string(status), func(ctx context.Context) ([]*teammatchdb.Review, error) {
		return s.repo.ListReviews(ctx, nil, status, limit)
	})
}

// ResolveReview closes a pending review.
func (s *TeamMatchingService) ResolveReview(ctx context.Context, reviewID uuid.UUID, teamID *uuid.UUID) (*teammatchdb.Review, error) {
	return withTelemetry(s, ctx, "ResolveReview", reviewID.String(), func(ctx context.Context) (*teammatchdb.Review, error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (*teammatchdb.Review, error) {
			return s.resolveReviewLogic(ctx, db, reviewID, teamID)
		})
	})
}

func (s *TeamMatchingService) resolveReviewLogic(ctx context.Context, db bun.IDB, reviewID uuid.UUID, teamID *uuid.UUID) (*teammatchdb.Review, error) {
	review, err := s.repo.GetReview(ctx, db, reviewID)
	if err != nil {
		return nil, err
	}
	if review.Status != teammatchdb.ReviewPending {
		return nil, fmt.Errorf("%w: %s", ErrReviewClosed, review.Status)
	}

	now := s.now()
	review.ResolvedAt = &now
	if teamID == nil {
		review.Status = teammatchdb.ReviewRejected
		if err := s.repo.UpdateReview(ctx, db, review); err != nil {
			return nil, err
		}
		return review, nil
	}

	if _, err := s.repo.GetTeam(ctx, db, *teamID); err != nil {
		return nil, fmt.Errorf("failed to load team %s: %w", teamID, err)
	}
	review.Status = teammatchdb.ReviewResolved
	review.ResolvedTeamID = teamID
	if err := s.repo.UpdateReview(ctx, db, review); err != nil {
		return nil, err
	}
	err = s.repo.SaveLink(ctx, db, &teammatchdb.ExternalLink{
		EventID:      review.EventID,
		ExternalCode: review.ExternalCode,
		ExternalName: review.ExternalName,
		TeamID:       *teamID,
		Outcome:      "manual",
		Score:        1,
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func linkedResult(ext teammatchdomain.ExternalTeamCandidate, link *teammatchdb.ExternalLink) teammatchdomain.MatchResult {
	outcome := teammatchdomain.Outcome(link.Outcome)
	if !outcome.AutoMatched() {
		// manual resolutions count as certain
		outcome = teammatchdomain.OutcomeAutoMatchedHigh
	}
	return teammatchdomain.MatchResult{
		External: ext,
		Outcome:  outcome,
		Match: &teammatchdomain.TeamMatchCandidate{
			InternalTeamID: link.TeamID,
			Name:           link.ExternalName,
			Score:          link.Score,
		},
		Suggestions: []teammatchdomain.TeamMatchCandidate{},
	}
}

func toDomainTeam(t *teammatchdb.Team) teammatchdomain.Team {
	return teammatchdomain.Team{
		ID:         t.ID,
		Name:       t.Name,
		ClubName:   t.ClubName,
		TeamNumber: t.TeamNumber,
		Gender:     t.Gender,
		Strength:   t.Strength,
	}
}

func reviewRecord(eventID uuid.UUID, result teammatchdomain.MatchResult) *teammatchdb.Review {
	suggestions := make([]teammatchdb.Suggestion, len(result.Suggestions))
	for i, c := range result.Suggestions {
		suggestions[i] = teammatchdb.Suggestion{
			TeamID:   c.InternalTeamID,
			Name:     c.Name,
			ClubName: c.ClubName,
			Score:    c.Score,
		}
	}
	return &teammatchdb.Review{
		EventID:      eventID,
		ExternalCode: result.External.ExternalCode,
		ExternalName: result.External.ExternalName,
		Suggestions:  suggestions,
		Error:        result.Error,
		Status:       teammatchdb.ReviewPending,
	}
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[T any](
	s *TeamMatchingService,
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

// runInTx ensures the operation runs within a transaction.
func runInTx[T any](
	s *TeamMatchingService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (T, error),
) (T, error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result T
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}
