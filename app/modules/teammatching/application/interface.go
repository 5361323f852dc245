package teammatchservice

import (
	"context"
	"io"

	teammatchdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/domain"
	teammatchdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/infrastructure/repositories"
	"github.com/google/uuid"
)

// MatchRequest identifies an externally reported team within an event.
type MatchRequest struct {
	EventID      uuid.UUID
	ExternalCode string
	ExternalName string
	// ClubName is optional; the club is parsed from ExternalName otherwise.
	ClubName string
}

// Service defines the contract for team matching operations.
type Service interface {
	// MatchTeam never fails: problems turn into a manual review carrying the error.
	MatchTeam(ctx context.Context, req MatchRequest) teammatchdomain.MatchResult
	ListReviews(ctx context.Context, status teammatchdb.ReviewStatus, limit int) ([]*teammatchdb.Review, error)
	// ResolveReview links the reviewed team to teamID, or rejects the review when teamID is nil.
	ResolveReview(ctx context.Context, reviewID uuid.UUID, teamID *uuid.UUID) (*teammatchdb.Review, error)
	ExportReviews(ctx context.Context, w io.Writer, status teammatchdb.ReviewStatus) error
}
