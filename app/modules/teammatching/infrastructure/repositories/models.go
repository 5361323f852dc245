package teammatchdb

import (
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Team is an internal team that external teams get linked to.
type Team struct {
	bun.BaseModel `bun:"table:sync_teams,alias:tm"`

	ID             uuid.UUID              `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	ClubName       string                 `bun:"club_name,notnull" json:"club_name"`
	Name           string                 `bun:"name,notnull" json:"name"`
	NormalizedName string                 `bun:"normalized_name,notnull" json:"normalized_name"`
	TeamNumber     *int                   `bun:"team_number" json:"team_number,omitempty"`
	Gender         *syncdomain.GenderType `bun:"gender" json:"gender,omitempty"`
	Strength       *int                   `bun:"strength" json:"strength,omitempty"`
	CreatedAt      time.Time              `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time              `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// ExternalLink records an accepted match of an external team code, scoped to
// the event it was reported in.
type ExternalLink struct {
	bun.BaseModel `bun:"table:team_external_links,alias:tel"`

	ID           uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	EventID      uuid.UUID `bun:"event_id,type:uuid,notnull" json:"event_id"`
	ExternalCode string    `bun:"external_code,notnull" json:"external_code"`
	ExternalName string    `bun:"external_name,notnull" json:"external_name"`
	TeamID       uuid.UUID `bun:"team_id,type:uuid,notnull" json:"team_id"`
	Outcome      string    `bun:"outcome,notnull" json:"outcome"`
	Score        float64   `bun:"score,notnull" json:"score"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// ReviewStatus is the state of a manual review.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewResolved ReviewStatus = "resolved"
	ReviewRejected ReviewStatus = "rejected"
)

// Suggestion is a scored team offered to the reviewer.
type Suggestion struct {
	TeamID   uuid.UUID `json:"team_id"`
	Name     string    `json:"name"`
	ClubName string    `json:"club_name"`
	Score    float64   `json:"score"`
}

// Review is an external team waiting for a human decision.
type Review struct {
	bun.BaseModel `bun:"table:team_match_reviews,alias:tmr"`

	ID             uuid.UUID    `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	EventID        uuid.UUID    `bun:"event_id,type:uuid,notnull" json:"event_id"`
	ExternalCode   string       `bun:"external_code,notnull" json:"external_code"`
	ExternalName   string       `bun:"external_name,notnull" json:"external_name"`
	Suggestions    []Suggestion `bun:"suggestions,type:jsonb,notnull,default:'[]'" json:"suggestions"`
	Error          string       `bun:"error,nullzero" json:"error,omitempty"`
	Status         ReviewStatus `bun:"status,notnull" json:"status"`
	ResolvedTeamID *uuid.UUID   `bun:"resolved_team_id,type:uuid" json:"resolved_team_id,omitempty"`
	CreatedAt      time.Time    `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time    `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
	ResolvedAt     *time.Time   `bun:"resolved_at" json:"resolved_at,omitempty"`
}
