package tournamentapi

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the remote API has no such resource.
var ErrNotFound = errors.New("tournament api: resource not found")

// Client is the read-only view of the remote tournament-management API.
// Any call may fail; callers decide whether to skip or retry.
type Client interface {
	ListTournaments(ctx context.Context, q ListQuery) ([]TournamentSummary, error)
	GetTournament(ctx context.Context, code string) (*Tournament, error)

	GetEvents(ctx context.Context, tournamentCode string) ([]Event, error)
	GetEvent(ctx context.Context, tournamentCode, eventCode string) (*Event, error)

	GetDraws(ctx context.Context, tournamentCode, eventCode string) ([]Draw, error)
	GetDraw(ctx context.Context, tournamentCode, drawCode string) (*Draw, error)
	GetEntries(ctx context.Context, tournamentCode, drawCode string) ([]Entry, error)

	GetEncounters(ctx context.Context, tournamentCode, drawCode string) ([]Encounter, error)
	GetEncounter(ctx context.Context, tournamentCode, encounterCode string) (*Encounter, error)
	GetTeam(ctx context.Context, tournamentCode, teamCode string) (*Team, error)

	GetMatchesByDraw(ctx context.Context, tournamentCode, drawCode string) ([]Match, error)
	GetMatchesByDate(ctx context.Context, tournamentCode string, date time.Time) ([]Match, error)
	GetMatchesByEncounter(ctx context.Context, tournamentCode, encounterCode string) ([]Match, error)
	GetMatch(ctx context.Context, tournamentCode, matchCode string) (*Match, error)
}
