package syncservice

import (
	"context"
	"errors"
	"testing"
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	syncmetrics "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/metrics"
	syncdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/repositories"
	"github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/tournamentapi"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var (
	firstSync  = time.Date(2026, 10, 3, 9, 0, 0, 0, time.UTC)
	secondSync = time.Date(2026, 10, 4, 9, 0, 0, 0, time.UTC)
)

func newTestReconciler(repo *FakeSyncRepo, at time.Time) *Reconciler {
	return NewReconciler(repo, syncdomain.FixedClock{At: at}, syncmetrics.NewNoop())
}

func TestUpsertEvent_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewFakeSyncRepo()
	ext := tournamentapi.TournamentSummary{
		Code:       "C-2026",
		Name:       "Interclub 2026",
		TypeCode:   "competition",
		StatusCode: "open",
		StartDate:  time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}

	first, created, err := newTestReconciler(repo, firstSync).UpsertEvent(ctx, ext)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, syncdomain.DomainCompetition, first.Kind)
	assert.Equal(t, syncdomain.StatusRegistrationOpen, first.Status)
	assert.Nil(t, first.EndDate)
	assert.Equal(t, firstSync, first.LastSyncedAt)

	ext.Name = "Interclub 2026-2027"
	ext.StatusCode = "running"
	second, created, err := newTestReconciler(repo, secondSync).UpsertEvent(ctx, ext)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Interclub 2026-2027", second.Name)
	assert.Equal(t, syncdomain.StatusInProgress, second.Status)
	assert.Equal(t, firstSync, second.CreatedAt)
	assert.Equal(t, secondSync, second.LastSyncedAt)
	assert.Equal(t, 1, repo.counts()["events"])
}

func TestUpsertEvent_LookupFailure(t *testing.T) {
	repo := NewFakeSyncRepo()
	repo.GetEventByCode = func(context.Context, bun.IDB, string) (*syncdb.Event, error) {
		return nil, errors.New("connection reset")
	}

	_, _, err := newTestReconciler(repo, firstSync).UpsertEvent(context.Background(), tournamentapi.TournamentSummary{Code: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to look up event")
	assert.Zero(t, repo.counts()["events"])
}

func TestUpsertSubEventAndDraw_ScopedToParent(t *testing.T) {
	ctx := context.Background()
	repo := NewFakeSyncRepo()
	r := newTestReconciler(repo, firstSync)

	eventA, eventB := uuid.New(), uuid.New()
	ev := tournamentapi.Event{Code: "MS", Name: "Men's Singles", GenderCode: "M", GameTypeCode: "S"}
	subA, created, err := r.UpsertSubEvent(ctx, eventA, ev)
	require.NoError(t, err)
	assert.True(t, created)
	subB, created, err := r.UpsertSubEvent(ctx, eventB, ev)
	require.NoError(t, err)
	assert.True(t, created, "same code under another event is a different sub-event")
	assert.NotEqual(t, subA.ID, subB.ID)

	d := tournamentapi.Draw{Code: "MS-A", Name: "Main", TypeCode: "poule", Size: 6}
	drawA, _, err := r.UpsertDraw(ctx, subA.ID, d)
	require.NoError(t, err)
	assert.Equal(t, syncdomain.DrawTypeRoundRobin, drawA.Type)

	d.Size = 7
	again, created, err := r.UpsertDraw(ctx, subA.ID, d)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, drawA.ID, again.ID)
	assert.Equal(t, 7, again.Size)
	assert.Equal(t, 1, repo.counts()["draws"])
}

func TestUpsertEntry(t *testing.T) {
	ctx := context.Background()
	drawID := uuid.New()
	teamID := uuid.New()

	t.Run("players are keyed by member id", func(t *testing.T) {
		repo := NewFakeSyncRepo()
		r := newTestReconciler(repo, firstSync)
		ext := tournamentapi.Entry{
			Code: "E1",
			Players: []tournamentapi.Player{
				{MemberID: "M-1", FirstName: "Lin", LastName: "Dan"},
				{MemberID: "M-2", FirstName: "Lee", LastName: "Chong Wei"},
			},
		}
		entry, created, err := r.UpsertEntry(ctx, drawID, ext, nil)
		require.NoError(t, err)
		assert.True(t, created)
		require.NotNil(t, entry.Player1ID)
		require.NotNil(t, entry.Player2ID)

		_, _, err = r.UpsertEntry(ctx, drawID, ext, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, repo.counts()["players"])
		assert.Equal(t, 1, repo.counts()["entries"])
	})

	t.Run("players without member id are skipped", func(t *testing.T) {
		repo := NewFakeSyncRepo()
		r := newTestReconciler(repo, firstSync)
		entry, _, err := r.UpsertEntry(ctx, drawID, tournamentapi.Entry{
			Code:    "E2",
			Players: []tournamentapi.Player{{FirstName: "Walk", LastName: "In"}, {MemberID: "M-3"}},
		}, nil)
		require.NoError(t, err)
		require.NotNil(t, entry.Player1ID)
		assert.Nil(t, entry.Player2ID)
		assert.Equal(t, 1, repo.counts()["players"])
	})

	t.Run("known team survives an unmatched resync", func(t *testing.T) {
		repo := NewFakeSyncRepo()
		r := newTestReconciler(repo, firstSync)
		ext := tournamentapi.Entry{Code: "T1", TeamCode: "TM-1", TeamName: "Ghent Shuttlers 1H"}

		_, _, err := r.UpsertEntry(ctx, drawID, ext, &teamID)
		require.NoError(t, err)
		entry, _, err := r.UpsertEntry(ctx, drawID, ext, nil)
		require.NoError(t, err)
		require.NotNil(t, entry.TeamID)
		assert.Equal(t, teamID, *entry.TeamID)
		assert.Equal(t, "TM-1", entry.ExternalTeamCode)
	})

	t.Run("save failure", func(t *testing.T) {
		repo := NewFakeSyncRepo()
		repo.SaveEntryFunc = func(context.Context, bun.IDB, *syncdb.Entry) error { return errors.New("disk full") }
		_, _, err := newTestReconciler(repo, firstSync).UpsertEntry(ctx, drawID, tournamentapi.Entry{Code: "E3"}, nil)
		require.EqualError(t, err, "disk full")
	})
}

func TestUpsertPlayer_MissingMemberID(t *testing.T) {
	_, _, err := newTestReconciler(NewFakeSyncRepo(), firstSync).UpsertPlayer(context.Background(), tournamentapi.Player{FirstName: "No", LastName: "Id"})
	assert.ErrorIs(t, err, syncdomain.ErrMissingReference)
}

func TestUpsertGame_LatestResultWins(t *testing.T) {
	ctx := context.Background()
	repo := NewFakeSyncRepo()
	drawID := uuid.New()
	encounterID := uuid.New()

	m := tournamentapi.Match{
		Code:         "G1",
		GameTypeCode: "D",
		Team1:        []tournamentapi.Player{{MemberID: "M-1"}, {MemberID: "M-2"}},
		Team2:        []tournamentapi.Player{{MemberID: "M-3"}, {MemberID: "M-4"}},
		StatusCode:   "scheduled",
	}
	game, created, err := newTestReconciler(repo, firstSync).UpsertGame(ctx, drawID, &encounterID, m)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Zero(t, game.Winner)
	assert.Len(t, game.Team1PlayerIDs, 2)

	m.Sets = []tournamentapi.SetScore{{Team1: 21, Team2: 18}, {Team1: 19, Team2: 21}, {Team1: 21, Team2: 15}}
	m.Winner = 1
	m.StatusCode = "played"
	game, created, err = newTestReconciler(repo, secondSync).UpsertGame(ctx, drawID, nil, m)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, game.Winner)
	assert.Len(t, game.Sets, 3)
	require.NotNil(t, game.EncounterID, "encounter link is kept")
	assert.Equal(t, encounterID, *game.EncounterID)
	assert.Equal(t, secondSync, game.LastSyncedAt)
	assert.Equal(t, 1, repo.counts()["games"])
	assert.Equal(t, 4, repo.counts()["players"])
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(errors.New("duplicate key")))
	assert.False(t, isUniqueViolation(nil))
}
