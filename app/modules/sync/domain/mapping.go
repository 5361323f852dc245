package syncdomain

import "strings"

// GenderType is the internal gender classification of an event or team.
type GenderType string

const (
	GenderMen   GenderType = "M"
	GenderWomen GenderType = "F"
	GenderMixed GenderType = "MX"
)

// GameType is the internal discipline of a game or sub-event.
type GameType string

const (
	GameTypeSingles GameType = "S"
	GameTypeDoubles GameType = "D"
	GameTypeMixed   GameType = "MX"
)

// DrawType is the internal draw format.
type DrawType string

const (
	DrawTypeKnockout      DrawType = "KO"
	DrawTypeRoundRobin    DrawType = "POULE"
	DrawTypeQualification DrawType = "QUALIFICATION"
	DrawTypePlayoff       DrawType = "PLAYOFF"
)

// TournamentStatus is the internal lifecycle status of a root entity.
type TournamentStatus string

const (
	StatusScheduled        TournamentStatus = "SCHEDULED"
	StatusRegistrationOpen TournamentStatus = "REGISTRATION_OPEN"
	StatusInProgress       TournamentStatus = "IN_PROGRESS"
	StatusFinished         TournamentStatus = "FINISHED"
	StatusCancelled        TournamentStatus = "CANCELLED"
)

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// MapGenderType maps an external gender code. Unknown codes map to mixed.
func MapGenderType(code string) GenderType {
	switch normalizeCode(code) {
	case "1", "m", "male", "men", "h", "heren", "boys":
		return GenderMen
	case "2", "f", "v", "w", "female", "women", "d", "dames", "girls":
		return GenderWomen
	default:
		return GenderMixed
	}
}

// MapGameType maps an external game type code. Unknown codes map to singles.
func MapGameType(code string) GameType {
	switch normalizeCode(code) {
	case "2", "d", "double", "doubles", "hd", "dd":
		return GameTypeDoubles
	case "3", "x", "mx", "gd", "mixed", "mixed-doubles", "mixed doubles":
		return GameTypeMixed
	default:
		return GameTypeSingles
	}
}

// MapDrawType maps an external draw type code. Unknown codes map to knockout.
func MapDrawType(code string) DrawType {
	switch normalizeCode(code) {
	case "2", "3", "poule", "pool", "round-robin", "roundrobin", "rr", "group":
		return DrawTypeRoundRobin
	case "4", "qualification", "qualifying", "qual":
		return DrawTypeQualification
	case "5", "playoff", "play-off", "playoffs":
		return DrawTypePlayoff
	default:
		return DrawTypeKnockout
	}
}

// MapTournamentStatus maps an external status code. Unknown codes map to scheduled.
func MapTournamentStatus(code string) TournamentStatus {
	switch normalizeCode(code) {
	case "1", "open", "registration", "registration-open", "entry-open":
		return StatusRegistrationOpen
	case "2", "running", "in-progress", "in_progress", "live", "started":
		return StatusInProgress
	case "3", "finished", "completed", "closed", "done":
		return StatusFinished
	case "4", "cancelled", "canceled":
		return StatusCancelled
	default:
		return StatusScheduled
	}
}

// MapDomain maps the external tournament type. Team based types are
// competitions; everything else is treated as an individual tournament.
func MapDomain(typeCode string) Domain {
	switch normalizeCode(typeCode) {
	case "1", "team", "teams", "league", "competition", "interclub":
		return DomainCompetition
	default:
		return DomainTournament
	}
}
