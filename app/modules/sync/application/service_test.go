package syncservice

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	syncdb "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestService(api *FakeAPI, repo *FakeSyncRepo, queue *FakeQueue) *SyncService {
	return NewSyncService(Deps{
		Queue:   queue,
		Repo:    repo,
		API:     api,
		Matcher: &FakeMatcher{},
		Logger:  slog.New(slog.DiscardHandler),
		Clock:   syncdomain.FixedClock{At: testNow},
	})
}

func TestQueueDiscovery(t *testing.T) {
	tests := []struct {
		name     string
		req      DiscoveryRequest
		wantID   string
		wantSize int
	}{
		{name: "defaults to today", req: DiscoveryRequest{}, wantID: "tournament-discovery-20261016", wantSize: 100},
		{
			name:     "search term is part of the id",
			req:      DiscoveryRequest{RefDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), PageSize: 25, SearchTerm: "Open"},
			wantID:   "tournament-discovery-20260901-open",
			wantSize: 25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewFakeQueue()
			svc := newTestService(NewFakeAPI(), NewFakeSyncRepo(), queue)

			id, err := svc.QueueDiscovery(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)

			spec, ok := queue.spec(id)
			require.True(t, ok)
			p := spec.Payload.(*syncdomain.DiscoveryPayload)
			assert.Equal(t, tt.wantSize, p.PageSize)
			assert.False(t, p.RefDate.IsZero())
		})
	}
}

func TestQueueStructureSync(t *testing.T) {
	ctx := context.Background()

	t.Run("known event keeps its id and kind", func(t *testing.T) {
		queue := NewFakeQueue()
		repo := NewFakeSyncRepo()
		ev, _, _ := seedDraw(t, repo, syncdomain.DomainCompetition)
		api := competitionAPI()
		svc := newTestService(api, repo, queue)

		id, err := svc.QueueStructureSync(ctx, StructureSyncRequest{SubjectCode: "C-1", IncludeSubComponents: true})
		require.NoError(t, err)
		assert.Equal(t, "competition-structure-c1", id)
		assert.Zero(t, api.calls("GetTournament"))

		spec, _ := queue.spec(id)
		p := spec.Payload.(*syncdomain.StructureSyncPayload)
		assert.Equal(t, ev.ID, p.EventID)
		assert.Equal(t, id, p.RootJobID)
		assert.Empty(t, spec.ParentID)
		require.NotNil(t, p.Plan)
		assert.Equal(t, p.Plan.Breakdown.Sum(), p.Plan.TotalUnits)
		assert.Greater(t, p.Plan.TotalUnits, 1)
	})

	t.Run("unknown event asks the api for its kind", func(t *testing.T) {
		queue := NewFakeQueue()
		svc := newTestService(competitionAPI(), NewFakeSyncRepo(), queue)

		id, err := svc.QueueStructureSync(ctx, StructureSyncRequest{SubjectCode: "C-1"})
		require.NoError(t, err)
		assert.Equal(t, "competition-structure-c1", id)
		spec, _ := queue.spec(id)
		assert.Equal(t, uuid.Nil, spec.Payload.(*syncdomain.StructureSyncPayload).EventID)
	})

	t.Run("unresolvable kind falls back to tournament", func(t *testing.T) {
		queue := NewFakeQueue()
		svc := newTestService(NewFakeAPI(), NewFakeSyncRepo(), queue)

		id, err := svc.QueueStructureSync(ctx, StructureSyncRequest{SubjectCode: "X-404"})
		require.NoError(t, err)
		assert.Equal(t, "tournament-structure-x404", id)
	})

	t.Run("blank subject is rejected", func(t *testing.T) {
		queue := NewFakeQueue()
		svc := newTestService(NewFakeAPI(), NewFakeSyncRepo(), queue)

		_, err := svc.QueueStructureSync(ctx, StructureSyncRequest{SubjectCode: "  "})
		require.ErrorIs(t, err, ErrInvalidRequest)
		assert.Empty(t, queue.Submitted())
	})

	t.Run("lookup failure is returned", func(t *testing.T) {
		queue := NewFakeQueue()
		repo := NewFakeSyncRepo()
		repo.GetEventByCode = func(context.Context, bun.IDB, string) (*syncdb.Event, error) {
			return nil, errors.New("connection refused")
		}
		svc := newTestService(NewFakeAPI(), repo, queue)

		_, err := svc.QueueStructureSync(ctx, StructureSyncRequest{SubjectCode: "C-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "QueueStructureSync")
		assert.Empty(t, queue.Submitted())
	})
}

func TestQueueGameSync(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		req       GameSyncRequest
		wantID    string
		wantUnits int
	}{
		{name: "fan-out over every draw", req: GameSyncRequest{SubjectCode: "C-1"}, wantID: "competition-scores-c1-20261016", wantUnits: 3},
		{name: "one day", req: GameSyncRequest{SubjectCode: "C-1", Date: &day}, wantID: "competition-scores-c1-20261011", wantUnits: 1},
		{
			name:      "listed matches",
			req:       GameSyncRequest{SubjectCode: "C-1", MatchCodes: []string{"G-1", "G-2"}},
			wantID:    "competition-scores-c1-20261016-g1-g2",
			wantUnits: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewFakeQueue()
			repo := NewFakeSyncRepo()
			ev, sub, _ := seedDraw(t, repo, syncdomain.DomainCompetition)
			require.NoError(t, repo.SaveDraw(ctx, nil, &syncdb.Draw{ID: uuid.New(), SubEventID: sub.ID, ExternalCode: "D-2"}))
			svc := newTestService(NewFakeAPI(), repo, queue)

			id, err := svc.QueueGameSync(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)

			spec, _ := queue.spec(id)
			p := spec.Payload.(*syncdomain.GameSyncPayload)
			assert.Equal(t, ev.ID, p.EventID)
			assert.Equal(t, id, p.RootJobID)
			assert.Equal(t, syncdomain.DomainCompetition, p.Domain)
			assert.Equal(t, tt.wantUnits, p.Plan.TotalUnits)
		})
	}
}

func TestQueueGameSync_EventNotSynced(t *testing.T) {
	queue := NewFakeQueue()
	svc := newTestService(NewFakeAPI(), NewFakeSyncRepo(), queue)

	_, err := svc.QueueGameSync(context.Background(), GameSyncRequest{SubjectCode: "C-1"})
	require.ErrorIs(t, err, syncdomain.ErrMissingReference)
	assert.Empty(t, queue.Submitted())
}

func TestQueueTeamMatching(t *testing.T) {
	queue := NewFakeQueue()
	svc := newTestService(NewFakeAPI(), NewFakeSyncRepo(), queue)

	id, err := svc.QueueTeamMatching(context.Background(), syncdomain.TeamMatchingPayload{
		EventCode:        "C-1",
		ExternalTeamCode: "TM-9",
		ExternalTeamName: "Brugge BC 4D",
	})
	require.NoError(t, err)
	assert.Equal(t, "competition-teammatch-c1-tm9", id)

	_, err = svc.QueueTeamMatching(context.Background(), syncdomain.TeamMatchingPayload{EventCode: "C-1"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	assert.Len(t, queue.Submitted(), 1)
}

func TestGetRecentJobs_ClampsLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{limit: 0, want: defaultRecentJobs},
		{limit: -3, want: defaultRecentJobs},
		{limit: 5, want: 5},
		{limit: 10_000, want: maxRecentJobs},
	}

	for _, tt := range tests {
		queue := NewFakeQueue()
		var got int
		queue.ListRecentFunc = func(_ context.Context, limit int, _ *syncdomain.JobState) ([]syncdomain.JobRecord, error) {
			got = limit
			return nil, nil
		}
		svc := newTestService(NewFakeAPI(), NewFakeSyncRepo(), queue)

		_, err := svc.GetRecentJobs(context.Background(), tt.limit, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "limit %d", tt.limit)
	}
}

func TestGetQueueStats_WrapsErrors(t *testing.T) {
	queue := NewFakeQueue()
	queue.StatsFunc = func(context.Context) (syncdomain.QueueStats, error) {
		return syncdomain.QueueStats{}, errors.New("db down")
	}
	svc := newTestService(NewFakeAPI(), NewFakeSyncRepo(), queue)

	_, err := svc.GetQueueStats(context.Background())
	require.Error(t, err)
	assert.Equal(t, "GetQueueStats: db down", err.Error())
}

func TestSubscribeJobEvents_Unavailable(t *testing.T) {
	svc := newTestService(NewFakeAPI(), NewFakeSyncRepo(), NewFakeQueue())
	_, err := svc.SubscribeJobEvents(context.Background())
	require.Error(t, err)
}
