package teammatchhandlers

import (
	"context"
	"io"

	teammatchservice "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/application"
	teammatchdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/domain"
	teammatchdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/infrastructure/repositories"
	"github.com/google/uuid"
)

// ------------------------
// Fake Team Matching Service
// ------------------------

type FakeTeamMatchService struct {
	trace []string

	MatchTeamFunc     func(ctx context.Context, req teammatchservice.MatchRequest) teammatchdomain.MatchResult
	ListReviewsFunc   func(ctx context.Context, status teammatchdb.ReviewStatus, limit int) ([]*teammatchdb.Review, error)
	ResolveReviewFunc func(ctx context.Context, reviewID uuid.UUID, teamID *uuid.UUID) (*teammatchdb.Review, error)
	ExportReviewsFunc func(ctx context.Context, w io.Writer, status teammatchdb.ReviewStatus) error
}

func NewFakeTeamMatchService() *FakeTeamMatchService {
	return &FakeTeamMatchService{
		trace: []string{},
	}
}

func (f *FakeTeamMatchService) record(step string) {
	f.trace = append(f.trace, step)
}

// --- Service Interface Implementation ---

func (f *FakeTeamMatchService) MatchTeam(ctx context.Context, req teammatchservice.MatchRequest) teammatchdomain.MatchResult {
	f.record("MatchTeam")
	if f.MatchTeamFunc != nil {
		return f.MatchTeamFunc(ctx, req)
	}
	return teammatchdomain.MatchResult{Outcome: teammatchdomain.OutcomeManualReview}
}

func (f *FakeTeamMatchService) ListReviews(ctx context.Context, status teammatchdb.ReviewStatus, limit int) ([]*teammatchdb.Review, error) {
	f.record("ListReviews")
	if f.ListReviewsFunc != nil {
		return f.ListReviewsFunc(ctx, status, limit)
	}
	return nil, nil
}

func (f *FakeTeamMatchService) ResolveReview(ctx context.Context, reviewID uuid.UUID, teamID *uuid.UUID) (*teammatchdb.Review, error) {
	f.record("ResolveReview")
	if f.ResolveReviewFunc != nil {
		return f.ResolveReviewFunc(ctx, reviewID, teamID)
	}
	return &teammatchdb.Review{ID: reviewID}, nil
}

func (f *FakeTeamMatchService) ExportReviews(ctx context.Context, w io.Writer, status teammatchdb.ReviewStatus) error {
	f.record("ExportReviews")
	if f.ExportReviewsFunc != nil {
		return f.ExportReviewsFunc(ctx, w, status)
	}
	return nil
}

// --- Accessors for assertions ---

func (f *FakeTeamMatchService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Ensure the fake actually satisfies the interface
var _ teammatchservice.Service = (*FakeTeamMatchService)(nil)
