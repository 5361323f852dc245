package synchandlers

import (
	"context"
	"time"

	syncservice "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/application"
	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
)

// ------------------------
// Fake Sync Service
// ------------------------

type FakeSyncService struct {
	trace []string

	QueueDiscoveryFunc     func(ctx context.Context, req syncservice.DiscoveryRequest) (string, error)
	QueueStructureSyncFunc func(ctx context.Context, req syncservice.StructureSyncRequest) (string, error)
	QueueGameSyncFunc      func(ctx context.Context, req syncservice.GameSyncRequest) (string, error)
	QueueTeamMatchingFunc  func(ctx context.Context, payload syncdomain.TeamMatchingPayload) (string, error)
	GetQueueStatsFunc      func(ctx context.Context) (syncdomain.QueueStats, error)
	GetRecentJobsFunc      func(ctx context.Context, limit int, state *syncdomain.JobState) ([]syncdomain.JobRecord, error)
	GetJobFunc             func(ctx context.Context, jobID string) (*syncdomain.JobRecord, error)
	SubscribeJobEventsFunc func(ctx context.Context) (<-chan syncdomain.JobEvent, error)
}

func NewFakeSyncService() *FakeSyncService {
	return &FakeSyncService{
		trace: []string{},
	}
}

func (f *FakeSyncService) record(step string) {
	f.trace = append(f.trace, step)
}

// --- Service Interface Implementation ---

func (f *FakeSyncService) QueueDiscovery(ctx context.Context, req syncservice.DiscoveryRequest) (string, error) {
	f.record("QueueDiscovery")
	if f.QueueDiscoveryFunc != nil {
		return f.QueueDiscoveryFunc(ctx, req)
	}
	return "tournament-discovery", nil
}

func (f *FakeSyncService) QueueStructureSync(ctx context.Context, req syncservice.StructureSyncRequest) (string, error) {
	f.record("QueueStructureSync")
	if f.QueueStructureSyncFunc != nil {
		return f.QueueStructureSyncFunc(ctx, req)
	}
	return "tournament-structure", nil
}

func (f *FakeSyncService) QueueGameSync(ctx context.Context, req syncservice.GameSyncRequest) (string, error) {
	f.record("QueueGameSync")
	if f.QueueGameSyncFunc != nil {
		return f.QueueGameSyncFunc(ctx, req)
	}
	return "competition-scores", nil
}

func (f *FakeSyncService) QueueTeamMatching(ctx context.Context, payload syncdomain.TeamMatchingPayload) (string, error) {
	f.record("QueueTeamMatching")
	if f.QueueTeamMatchingFunc != nil {
		return f.QueueTeamMatchingFunc(ctx, payload)
	}
	return "competition-teammatch", nil
}

func (f *FakeSyncService) GetQueueStats(ctx context.Context) (syncdomain.QueueStats, error) {
	f.record("GetQueueStats")
	if f.GetQueueStatsFunc != nil {
		return f.GetQueueStatsFunc(ctx)
	}
	return syncdomain.QueueStats{}, nil
}

func (f *FakeSyncService) GetRecentJobs(ctx context.Context, limit int, state *syncdomain.JobState) ([]syncdomain.JobRecord, error) {
	f.record("GetRecentJobs")
	if f.GetRecentJobsFunc != nil {
		return f.GetRecentJobsFunc(ctx, limit, state)
	}
	return nil, nil
}

func (f *FakeSyncService) GetJob(ctx context.Context, jobID string) (*syncdomain.JobRecord, error) {
	f.record("GetJob")
	if f.GetJobFunc != nil {
		return f.GetJobFunc(ctx, jobID)
	}
	return &syncdomain.JobRecord{ID: jobID, CreatedAt: time.Time{}}, nil
}

func (f *FakeSyncService) SubscribeJobEvents(ctx context.Context) (<-chan syncdomain.JobEvent, error) {
	f.record("SubscribeJobEvents")
	if f.SubscribeJobEventsFunc != nil {
		return f.SubscribeJobEventsFunc(ctx)
	}
	ch := make(chan syncdomain.JobEvent)
	close(ch)
	return ch, nil
}

// --- Accessors for assertions ---

func (f *FakeSyncService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Ensure the fake actually satisfies the interface
var _ syncservice.Service = (*FakeSyncService)(nil)
