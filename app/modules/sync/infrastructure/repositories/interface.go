package syncdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines persistence for synced entities. Every lookup by external
// code is scoped to the natural parent of the entity.
type Repository interface {
	GetEventByID(ctx context.Context, db bun.IDB, id uuid.UUID) (*Event, error)
	GetEventByExternalCode(ctx context.Context, db bun.IDB, code string) (*Event, error)
	SaveEvent(ctx context.Context, db bun.IDB, event *Event) error

	GetSubEvent(ctx context.Context, db bun.IDB, eventID uuid.UUID, code string) (*SubEvent, error)
	GetSubEventsByEvent(ctx context.Context, db bun.IDB, eventID uuid.UUID) ([]*SubEvent, error)
	SaveSubEvent(ctx context.Context, db bun.IDB, subEvent *SubEvent) error

	GetDrawByID(ctx context.Context, db bun.IDB, id uuid.UUID) (*Draw, error)
	GetDraw(ctx context.Context, db bun.IDB, subEventID uuid.UUID, code string) (*Draw, error)
	// GetDrawByEventCode looks a draw up by code among all sub-events of an event.
	GetDrawByEventCode(ctx context.Context, db bun.IDB, eventID uuid.UUID, code string) (*Draw, error)
	GetDrawsByEvent(ctx context.Context, db bun.IDB, eventID uuid.UUID) ([]*Draw, error)
	SaveDraw(ctx context.Context, db bun.IDB, draw *Draw) error

	GetPlayerByMemberID(ctx context.Context, db bun.IDB, memberID string) (*Player, error)
	GetPlayersByIDs(ctx context.Context, db bun.IDB, ids []uuid.UUID) ([]*Player, error)
	SavePlayer(ctx context.Context, db bun.IDB, player *Player) error

	GetEntry(ctx context.Context, db bun.IDB, drawID uuid.UUID, code string) (*Entry, error)
	GetEntriesByDraw(ctx context.Context, db bun.IDB, drawID uuid.UUID) ([]*Entry, error)
	SaveEntry(ctx context.Context, db bun.IDB, entry *Entry) error

	GetEncounter(ctx context.Context, db bun.IDB, drawID uuid.UUID, code string) (*Encounter, error)
	GetEncountersByDraw(ctx context.Context, db bun.IDB, drawID uuid.UUID) ([]*Encounter, error)
	SaveEncounter(ctx context.Context, db bun.IDB, encounter *Encounter) error

	GetGame(ctx context.Context, db bun.IDB, drawID uuid.UUID, code string) (*Game, error)
	GetGamesByDraw(ctx context.Context, db bun.IDB, drawID uuid.UUID) ([]*Game, error)
	SaveGame(ctx context.Context, db bun.IDB, game *Game) error

	GetStandingsByDraw(ctx context.Context, db bun.IDB, drawID uuid.UUID) ([]*Standing, error)
	// ReplaceStandings swaps the standings of a draw for the given rows.
	ReplaceStandings(ctx context.Context, db bun.IDB, drawID uuid.UUID, rows []*Standing) error
}
