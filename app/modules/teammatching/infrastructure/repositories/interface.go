package teammatchdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for team matching persistence.
type Repository interface {
	// SearchTeamsByClub returns teams whose club name contains the given text.
	SearchTeamsByClub(ctx context.Context, db bun.IDB, clubName string, limit int) ([]*Team, error)

	// SearchTeamsByName returns teams whose normalized name contains the given text.
	SearchTeamsByName(ctx context.Context, db bun.IDB, normalizedName string, limit int) ([]*Team, error)

	GetTeam(ctx context.Context, db bun.IDB, teamID uuid.UUID) (*Team, error)
	SaveTeam(ctx context.Context, db bun.IDB, team *Team) error

	// GetLink returns the accepted match of an external code within an event.
	GetLink(ctx context.Context, db bun.IDB, eventID uuid.UUID, externalCode string) (*ExternalLink, error)

	// SaveLink upserts a link on (event_id, external_code).
	SaveLink(ctx context.Context, db bun.IDB, link *ExternalLink) error

	// SaveReview upserts a review on (event_id, external_code). A resolved review
	// is reopened.
	SaveReview(ctx context.Context, db bun.IDB, review *Review) error

	GetReview(ctx context.Context, db bun.IDB, reviewID uuid.UUID) (*Review, error)
	ListReviews(ctx context.Context, db bun.IDB, status ReviewStatus, limit int) ([]*Review, error)
	UpdateReview(ctx context.Context, db bun.IDB, review *Review) error
}
