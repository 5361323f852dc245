package syncdb

import (
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Event is the synced root entity: an individual tournament or a team competition.
type Event struct {
	bun.BaseModel `bun:"table:sync_events,alias:ev"`

	ID           uuid.UUID                   `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Kind         syncdomain.Domain           `bun:"kind,notnull" json:"kind"`
	ExternalCode string                      `bun:"external_code,notnull,unique" json:"external_code"`
	Name         string                      `bun:"name,notnull" json:"name"`
	StartDate    *time.Time                  `bun:"start_date" json:"start_date,omitempty"`
	EndDate      *time.Time                  `bun:"end_date" json:"end_date,omitempty"`
	Status       syncdomain.TournamentStatus `bun:"status,notnull" json:"status"`
	Country      string                      `bun:"country,nullzero" json:"country,omitempty"`
	Level        string                      `bun:"level,nullzero" json:"level,omitempty"`
	LastSyncedAt time.Time                   `bun:"last_synced_at,notnull" json:"last_synced_at"`
	CreatedAt    time.Time                   `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time                   `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// SubEvent is a category of an event, unique by external code within its event.
type SubEvent struct {
	bun.BaseModel `bun:"table:sync_sub_events,alias:sev"`

	ID           uuid.UUID             `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	EventID      uuid.UUID             `bun:"event_id,notnull,type:uuid" json:"event_id"`
	ExternalCode string                `bun:"external_code,notnull" json:"external_code"`
	Name         string                `bun:"name,notnull" json:"name"`
	Gender       syncdomain.GenderType `bun:"gender,notnull" json:"gender"`
	GameType     syncdomain.GameType   `bun:"game_type,notnull" json:"game_type"`
	Level        string                `bun:"level,nullzero" json:"level,omitempty"`
	LastSyncedAt time.Time             `bun:"last_synced_at,notnull" json:"last_synced_at"`
	CreatedAt    time.Time             `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time             `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Draw is a bracket or pool of a sub-event.
type Draw struct {
	bun.BaseModel `bun:"table:sync_draws,alias:dr"`

	ID           uuid.UUID           `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	SubEventID   uuid.UUID           `bun:"sub_event_id,notnull,type:uuid" json:"sub_event_id"`
	ExternalCode string              `bun:"external_code,notnull" json:"external_code"`
	Name         string              `bun:"name,notnull" json:"name"`
	Type         syncdomain.DrawType `bun:"type,notnull" json:"type"`
	Size         int                 `bun:"size,notnull,default:0" json:"size"`
	LastSyncedAt time.Time           `bun:"last_synced_at,notnull" json:"last_synced_at"`
	CreatedAt    time.Time           `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time           `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Player is keyed globally by the external member id.
type Player struct {
	bun.BaseModel `bun:"table:sync_players,alias:pl"`

	ID           uuid.UUID             `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	MemberID     string                `bun:"member_id,notnull,unique" json:"member_id"`
	FirstName    string                `bun:"first_name,notnull" json:"first_name"`
	LastName     string                `bun:"last_name,notnull" json:"last_name"`
	Gender       syncdomain.GenderType `bun:"gender,nullzero" json:"gender,omitempty"`
	LastSyncedAt time.Time             `bun:"last_synced_at,notnull" json:"last_synced_at"`
	CreatedAt    time.Time             `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time             `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Entry is a registration in a draw. Individual entries reference players,
// team entries reference the internal team once it has been matched.
type Entry struct {
	bun.BaseModel `bun:"table:sync_entries,alias:en"`

	ID               uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	DrawID           uuid.UUID  `bun:"draw_id,notnull,type:uuid" json:"draw_id"`
	ExternalCode     string     `bun:"external_code,notnull" json:"external_code"`
	Player1ID        *uuid.UUID `bun:"player1_id,type:uuid" json:"player1_id,omitempty"`
	Player2ID        *uuid.UUID `bun:"player2_id,type:uuid" json:"player2_id,omitempty"`
	TeamID           *uuid.UUID `bun:"team_id,type:uuid" json:"team_id,omitempty"`
	ExternalTeamCode string     `bun:"external_team_code,nullzero" json:"external_team_code,omitempty"`
	ExternalTeamName string     `bun:"external_team_name,nullzero" json:"external_team_name,omitempty"`
	Seed             string     `bun:"seed,nullzero" json:"seed,omitempty"`
	LastSyncedAt     time.Time  `bun:"last_synced_at,notnull" json:"last_synced_at"`
	CreatedAt        time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Encounter is a team meeting in a competition draw.
type Encounter struct {
	bun.BaseModel `bun:"table:sync_encounters,alias:ec"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	DrawID       uuid.UUID  `bun:"draw_id,notnull,type:uuid" json:"draw_id"`
	ExternalCode string     `bun:"external_code,notnull" json:"external_code"`
	HomeTeamCode string     `bun:"home_team_code,notnull" json:"home_team_code"`
	AwayTeamCode string     `bun:"away_team_code,notnull" json:"away_team_code"`
	HomeTeamID   *uuid.UUID `bun:"home_team_id,type:uuid" json:"home_team_id,omitempty"`
	AwayTeamID   *uuid.UUID `bun:"away_team_id,type:uuid" json:"away_team_id,omitempty"`
	ScheduledAt  *time.Time `bun:"scheduled_at" json:"scheduled_at,omitempty"`
	HomeScore    int        `bun:"home_score,notnull,default:0" json:"home_score"`
	AwayScore    int        `bun:"away_score,notnull,default:0" json:"away_score"`
	LastSyncedAt time.Time  `bun:"last_synced_at,notnull" json:"last_synced_at"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// SetScore is one set of a game.
type SetScore struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

// Game is a single match, keyed by external match code within its draw.
type Game struct {
	bun.BaseModel `bun:"table:sync_games,alias:gm"`

	ID             uuid.UUID           `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	DrawID         uuid.UUID           `bun:"draw_id,notnull,type:uuid" json:"draw_id"`
	EncounterID    *uuid.UUID          `bun:"encounter_id,type:uuid" json:"encounter_id,omitempty"`
	ExternalCode   string              `bun:"external_code,notnull" json:"external_code"`
	Round          string              `bun:"round,nullzero" json:"round,omitempty"`
	GameType       syncdomain.GameType `bun:"game_type,notnull" json:"game_type"`
	ScheduledAt    *time.Time          `bun:"scheduled_at" json:"scheduled_at,omitempty"`
	Team1PlayerIDs []uuid.UUID         `bun:"team1_player_ids,type:jsonb,notnull,default:'[]'" json:"team1_player_ids"`
	Team2PlayerIDs []uuid.UUID         `bun:"team2_player_ids,type:jsonb,notnull,default:'[]'" json:"team2_player_ids"`
	Sets           []SetScore          `bun:"sets,type:jsonb,notnull,default:'[]'" json:"sets"`
	Winner         int                 `bun:"winner,notnull,default:0" json:"winner"`
	Status         string              `bun:"status,nullzero" json:"status,omitempty"`
	LastSyncedAt   time.Time           `bun:"last_synced_at,notnull" json:"last_synced_at"`
	CreatedAt      time.Time           `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time           `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Standing is the computed ranking row of an entry in a draw.
type Standing struct {
	bun.BaseModel `bun:"table:sync_standings,alias:st"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	DrawID    uuid.UUID `bun:"draw_id,notnull,type:uuid" json:"draw_id"`
	EntryID   uuid.UUID `bun:"entry_id,notnull,type:uuid" json:"entry_id"`
	Position  int       `bun:"position,notnull" json:"position"`
	Played    int       `bun:"played,notnull,default:0" json:"played"`
	Won       int       `bun:"won,notnull,default:0" json:"won"`
	Lost      int       `bun:"lost,notnull,default:0" json:"lost"`
	Points    int       `bun:"points,notnull,default:0" json:"points"`
	SetsWon   int       `bun:"sets_won,notnull,default:0" json:"sets_won"`
	SetsLost  int       `bun:"sets_lost,notnull,default:0" json:"sets_lost"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}
