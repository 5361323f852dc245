package tournamentapi

import "time"

// TournamentSummary is one row of a tournament listing.
type TournamentSummary struct {
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	TypeCode   string    `json:"typeCode"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	StatusCode string    `json:"statusCode"`
	Country    string    `json:"country,omitempty"`
	Level      string    `json:"level,omitempty"`
}

// Tournament is the detail view of a tournament or team competition.
type Tournament struct {
	TournamentSummary
	Organizer string `json:"organizer,omitempty"`
	Venue     string `json:"venue,omitempty"`
}

// Event is a category inside a tournament (e.g. "Men's Singles A").
type Event struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	GenderCode   string `json:"genderCode"`
	GameTypeCode string `json:"gameTypeCode"`
	Level        string `json:"level,omitempty"`
}

// Draw is a bracket, pool or division of an event.
type Draw struct {
	Code      string `json:"code"`
	EventCode string `json:"eventCode"`
	Name      string `json:"name"`
	TypeCode  string `json:"typeCode"`
	Size      int    `json:"size"`
}

// Player is an external member record.
type Player struct {
	MemberID   string `json:"memberId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	GenderCode string `json:"genderCode,omitempty"`
}

// Entry is a registration in a draw: one or two players, or a team.
type Entry struct {
	Code     string   `json:"code"`
	Players  []Player `json:"players,omitempty"`
	TeamCode string   `json:"teamCode,omitempty"`
	TeamName string   `json:"teamName,omitempty"`
	Seed     string   `json:"seed,omitempty"`
}

// Team is a club team taking part in a competition.
type Team struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	ClubName string `json:"clubName,omitempty"`
}

// SetScore is the score of one set.
type SetScore struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

// Match is a single game between two sides.
type Match struct {
	Code          string     `json:"code"`
	DrawCode      string     `json:"drawCode"`
	EncounterCode string     `json:"encounterCode,omitempty"`
	Round         string     `json:"round,omitempty"`
	ScheduledAt   *time.Time `json:"scheduledAt,omitempty"`
	Team1         []Player   `json:"team1,omitempty"`
	Team2         []Player   `json:"team2,omitempty"`
	Sets          []SetScore `json:"sets,omitempty"`
	Winner        int        `json:"winner"`
	StatusCode    string     `json:"statusCode,omitempty"`
	GameTypeCode  string     `json:"gameTypeCode,omitempty"`
}

// Encounter is a team-versus-team meeting in a competition draw.
type Encounter struct {
	Code        string     `json:"code"`
	DrawCode    string     `json:"drawCode"`
	HomeTeam    Team       `json:"homeTeam"`
	AwayTeam    Team       `json:"awayTeam"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	HomeScore   int        `json:"homeScore"`
	AwayScore   int        `json:"awayScore"`
}

// ListQuery filters a tournament listing.
type ListQuery struct {
	RefDate  time.Time
	PageSize int
	Search   string
}
