package teammatchdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a team, link or review does not exist.
var ErrNotFound = errors.New("team matching record not found")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new team matching repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.TrimSpace(s))
	return "%" + s + "%"
}

// SearchTeamsByClub retrieves teams by club name substring.
func (r *Impl) SearchTeamsByClub(ctx context.Context, db bun.IDB, clubName string, limit int) ([]*Team, error) {
	var teams []*Team
	err := r.resolveDB(db).NewSelect().
		Model(&teams).
		Where("club_name ILIKE ?", likePattern(clubName)).
		OrderExpr("name ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search teams by club: %w", err)
	}
	return teams, nil
}

// SearchTeamsByName retrieves teams by normalized name substring.
func (r *Impl) SearchTeamsByName(ctx context.Context, db bun.IDB, normalizedName string, limit int) ([]*Team, error) {
	var teams []*Team
	err := r.resolveDB(db).NewSelect().
		Model(&teams).
		Where("normalized_name LIKE ?", likePattern(normalizedName)).
		OrderExpr("name ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search teams by name: %w", err)
	}
	return teams, nil
}

// GetTeam retrieves a team by ID.
func (r *Impl) GetTeam(ctx context.Context, db bun.IDB, teamID uuid.UUID) (*Team, error) {
	team := new(Team)
	err := r.resolveDB(db).NewSelect().
		Model(team).
		Where("id = ?", teamID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// SaveTeam creates or updates a team.
func (r *Impl) SaveTeam(ctx context.Context, db bun.IDB, team *Team) error {
	if team.ID == uuid.Nil {
		team.ID = uuid.New()
	}
	team.UpdatedAt = time.Now()
	_, err := r.resolveDB(db).NewInsert().
		Model(team).
		On("CONFLICT (id) DO UPDATE").
		Set("club_name = EXCLUDED.club_name").
		Set("name = EXCLUDED.name").
		Set("normalized_name = EXCLUDED.normalized_name").
		Set("team_number = EXCLUDED.team_number").
		Set("gender = EXCLUDED.gender").
		Set("strength = EXCLUDED.strength").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save team: %w", err)
	}
	return nil
}

// GetLink retrieves the accepted match of an external team code.
func (r *Impl) GetLink(ctx context.Context, db bun.IDB, eventID uuid.UUID, externalCode string) (*ExternalLink, error) {
	link := new(ExternalLink)
	err := r.resolveDB(db).NewSelect().
		Model(link).
		Where("event_id = ?", eventID).
		Where("external_code = ?", externalCode).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team link: %w", err)
	}
	return link, nil
}

// SaveLink creates or updates a link.
func (r *Impl) SaveLink(ctx context.Context, db bun.IDB, link *ExternalLink) error {
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	link.UpdatedAt = time.Now()
	_, err := r.resolveDB(db).NewInsert().
		Model(link).
		On("CONFLICT (event_id, external_code) DO UPDATE").
		Set("external_name = EXCLUDED.external_name").
		Set("team_id = EXCLUDED.team_id").
		Set("outcome = EXCLUDED.outcome").
		Set("score = EXCLUDED.score").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save team link: %w", err)
	}
	return nil
}

// SaveReview creates or reopens a review.
func (r *Impl) SaveReview(ctx context.Context, db bun.IDB, review *Review) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	if review.Status == "" {
		review.Status = ReviewPending
	}
	if review.Suggestions == nil {
		review.Suggestions = []Suggestion{}
	}
	review.UpdatedAt = time.Now()
	err := r.resolveDB(db).NewInsert().
		Model(review).
		On("CONFLICT (event_id, external_code) DO UPDATE").
		Set("external_name = EXCLUDED.external_name").
		Set("suggestions = EXCLUDED.suggestions").
		Set("error = EXCLUDED.error").
		Set("status = EXCLUDED.status").
		Set("resolved_team_id = NULL").
		Set("resolved_at = NULL").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("id").
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to save team review: %w", err)
	}
	return nil
}

// GetReview retrieves a review by ID.
func (r *Impl) GetReview(ctx context.Context, db bun.IDB, reviewID uuid.UUID) (*Review, error) {
	review := new(Review)
	err := r.resolveDB(db).NewSelect().
		Model(review).
		Where("id = ?", reviewID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team review: %w", err)
	}
	return review, nil
}

// ListReviews lists reviews in a status, oldest first.
func (r *Impl) ListReviews(ctx context.Context, db bun.IDB, status ReviewStatus, limit int) ([]*Review, error) {
	var reviews []*Review
	q := r.resolveDB(db).NewSelect().
		Model(&reviews).
		OrderExpr("created_at ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list team reviews: %w", err)
	}
	return reviews, nil
}

// UpdateReview persists the status of a review.
func (r *Impl) UpdateReview(ctx context.Context, db bun.IDB, review *Review) error {
	review.UpdatedAt = time.Now()
	res, err := r.resolveDB(db).NewUpdate().
		Model(review).
		Column("status", "resolved_team_id", "resolved_at", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update team review: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
