package teammatchdomain

import (
	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	"github.com/google/uuid"
)

// ExternalTeamCandidate is a team as reported by the tournament API, with the
// fields parsed out of its conventional name.
type ExternalTeamCandidate struct {
	ExternalCode   string                 `json:"externalCode"`
	ExternalName   string                 `json:"externalName"`
	NormalizedName string                 `json:"normalizedName"`
	ClubName       string                 `json:"clubName"`
	TeamNumber     *int                   `json:"teamNumber,omitempty"`
	Gender         *syncdomain.GenderType `json:"gender,omitempty"`
	Strength       *int                   `json:"strength,omitempty"`
}

// NewExternalTeamCandidate parses name into a candidate. clubName overrides
// the club parsed from the name when the API reports it separately.
func NewExternalTeamCandidate(code, name, clubName string) ExternalTeamCandidate {
	parsed := ParseTeamName(name)
	c := ExternalTeamCandidate{
		ExternalCode:   code,
		ExternalName:   name,
		NormalizedName: NormalizeName(name),
		ClubName:       parsed.Club,
		TeamNumber:     parsed.Number,
		Gender:         parsed.Gender,
		Strength:       parsed.Strength,
	}
	if clubName != "" {
		c.ClubName = clubName
	}
	if c.ClubName == "" {
		c.ClubName = name
	}
	return c
}

// Team is an internal team that external teams are matched against.
type Team struct {
	ID         uuid.UUID
	Name       string
	ClubName   string
	TeamNumber *int
	Gender     *syncdomain.GenderType
	Strength   *int
}

// TeamMatchCandidate is a scored internal team. It only lives for one attempt.
type TeamMatchCandidate struct {
	InternalTeamID uuid.UUID              `json:"internalTeamId"`
	Name           string                 `json:"name"`
	ClubName       string                 `json:"clubName"`
	TeamNumber     *int                   `json:"teamNumber,omitempty"`
	Gender         *syncdomain.GenderType `json:"gender,omitempty"`
	Score          float64                `json:"score"`
}

// Outcome is the terminal state of one matching attempt.
type Outcome string

const (
	OutcomeAutoMatchedHigh   Outcome = "auto_matched_high_confidence"
	OutcomeAutoMatchedMedium Outcome = "auto_matched_medium_confidence"
	OutcomeManualReview      Outcome = "manual_review"
)

// AutoMatched reports whether the outcome links the team without review.
func (o Outcome) AutoMatched() bool {
	return o == OutcomeAutoMatchedHigh || o == OutcomeAutoMatchedMedium
}

// MatchResult is the decision for one external team.
type MatchResult struct {
	External    ExternalTeamCandidate
	Outcome     Outcome
	Match       *TeamMatchCandidate
	Suggestions []TeamMatchCandidate
	Error       string
}
