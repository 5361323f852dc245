package teammatchservice

import (
	"context"

	teammatchdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Team Matching Repo
// ------------------------

type FakeTeamRepo struct {
	trace []string

	SearchTeamsByClubFunc func(ctx context.Context, db bun.IDB, clubName string, limit int) ([]*teammatchdb.Team, error)
	SearchTeamsByNameFunc func(ctx context.Context, db bun.IDB, normalizedName string, limit int) ([]*teammatchdb.Team, error)
	GetTeamFunc           func(ctx context.Context, db bun.IDB, teamID uuid.UUID) (*teammatchdb.Team, error)
	SaveTeamFunc          func(ctx context.Context, db bun.IDB, team *teammatchdb.Team) error
	GetLinkFunc           func(ctx context.Context, db bun.IDB, eventID uuid.UUID, externalCode string) (*teammatchdb.ExternalLink, error)
	SaveLinkFunc          func(ctx context.Context, db bun.IDB, link *teammatchdb.ExternalLink) error
	SaveReviewFunc        func(ctx context.Context, db bun.IDB, review *teammatchdb.Review) error
	GetReviewFunc         func(ctx context.Context, db bun.IDB, reviewID uuid.UUID) (*teammatchdb.Review, error)
	ListReviewsFunc       func(ctx context.Context, db bun.IDB, status teammatchdb.ReviewStatus, limit int) ([]*teammatchdb.Review, error)
	UpdateReviewFunc      func(ctx context.Context, db bun.IDB, review *teammatchdb.Review) error

	savedLinks   []*teammatchdb.ExternalLink
	savedReviews []*teammatchdb.Review
}

func NewFakeTeamRepo() *FakeTeamRepo {
	return &FakeTeamRepo{
		trace: []string{},
	}
}

func (f *FakeTeamRepo) record(step string) {
	f.trace = append(f.trace, step)
}

// --- Repository Interface Implementation ---

func (f *FakeTeamRepo) SearchTeamsByClub(ctx context.Context, db bun.IDB, clubName string, limit int) ([]*teammatchdb.Team, error) {
	f.record("SearchTeamsByClub")
	if f.SearchTeamsByClubFunc != nil {
		return f.SearchTeamsByClubFunc(ctx, db, clubName, limit)
	}
	return nil, nil
}

func (f *FakeTeamRepo) SearchTeamsByName(ctx context.Context, db bun.IDB, normalizedName string, limit int) ([]*teammatchdb.Team, error) {
	f.record("SearchTeamsByName")
	if f.SearchTeamsByNameFunc != nil {
		return f.SearchTeamsByNameFunc(ctx, db, normalizedName, limit)
	}
	return nil, nil
}

func (f *FakeTeamRepo) GetTeam(ctx context.Context, db bun.IDB, teamID uuid.UUID) (*teammatchdb.Team, error) {
	f.record("GetTeam")
	if f.GetTeamFunc != nil {
		return f.GetTeamFunc(ctx, db, teamID)
	}
	return nil, teammatchdb.ErrNotFound
}

func (f *FakeTeamRepo) SaveTeam(ctx context.Context, db bun.IDB, team *teammatchdb.Team) error {
	f.record("SaveTeam")
	if f.SaveTeamFunc != nil {
		return f.SaveTeamFunc(ctx, db, team)
	}
	return nil
}

func (f *FakeTeamRepo) GetLink(ctx context.Context, db bun.IDB, eventID uuid.UUID, externalCode string) (*teammatchdb.ExternalLink, error) {
	f.record("GetLink")
	if f.GetLinkFunc != nil {
		return f.GetLinkFunc(ctx, db, eventID, externalCode)
	}
	return nil, teammatchdb.ErrNotFound
}

func (f *FakeTeamRepo) SaveLink(ctx context.Context, db bun.IDB, link *teammatchdb.ExternalLink) error {
	f.record("SaveLink")
	f.savedLinks = append(f.savedLinks, link)
	if f.SaveLinkFunc != nil {
		return f.SaveLinkFunc(ctx, db, link)
	}
	return nil
}

func (f *FakeTeamRepo) SaveReview(ctx context.Context, db bun.IDB, review *teammatchdb.Review) error {
	f.record("SaveReview")
	f.savedReviews = append(f.savedReviews, review)
	if f.SaveReviewFunc != nil {
		return f.SaveReviewFunc(ctx, db, review)
	}
	return nil
}

func (f *FakeTeamRepo) GetReview(ctx context.Context, db bun.IDB, reviewID uuid.UUID) (*teammatchdb.Review, error) {
	f.record("GetReview")
	if f.GetReviewFunc != nil {
		return f.GetReviewFunc(ctx, db, reviewID)
	}
	return nil, teammatchdb.ErrNotFound
}

func (f *FakeTeamRepo) ListReviews(ctx context.Context, db bun.IDB, status teammatchdb.ReviewStatus, limit int) ([]*teammatchdb.Review, error) {
	f.record("ListReviews")
	if f.ListReviewsFunc != nil {
		return f.ListReviewsFunc(ctx, db, status, limit)
	}
	return nil, nil
}

func (f *FakeTeamRepo) UpdateReview(ctx context.Context, db bun.IDB, review *teammatchdb.Review) error {
	f.record("UpdateReview")
	if f.UpdateReviewFunc != nil {
		return f.UpdateReviewFunc(ctx, db, review)
	}
	return nil
}

var _ teammatchdb.Repository = (*FakeTeamRepo)(nil)
