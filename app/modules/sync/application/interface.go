package syncservice

import (
	"context"
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	teammatchservice "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/application"
	teammatchdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/domain"
)

// Queue is the part of the flow queue the orchestrator drives.
type Queue interface {
	Submit(ctx context.Context, spec syncdomain.JobSpec) error
	// SubmitBatch persists all specs atomically; existing ids are skipped.
	SubmitBatch(ctx context.Context, specs []syncdomain.JobSpec) error
	UpdatePayload(ctx context.Context, jobID string, payload syncdomain.Payload) error
	// MoveToWaitingChildren reports false when no child is left to wait for.
	MoveToWaitingChildren(ctx context.Context, jobID string) (bool, error)
	MoveToFailed(ctx context.Context, jobID string, cause error, final bool) error
	UpdateProgress(ctx context.Context, jobID string, progress int) error
	AdvanceRootProgress(ctx context.Context, rootID string, total int) (int, error)
	GetJob(ctx context.Context, jobID string) (*syncdomain.JobRecord, error)
	Stats(ctx context.Context) (syncdomain.QueueStats, error)
	ListRecent(ctx context.Context, limit int, state *syncdomain.JobState) ([]syncdomain.JobRecord, error)
}

// TeamMatcher resolves externally reported teams to internal ones.
type TeamMatcher interface {
	MatchTeam(ctx context.Context, req teammatchservice.MatchRequest) teammatchdomain.MatchResult
}

// EventSubscriber streams job lifecycle events.
type EventSubscriber interface {
	SubscribeJobEvents(ctx context.Context) (<-chan syncdomain.JobEvent, error)
}

// DiscoveryRequest asks for one page of the external tournament listing.
type DiscoveryRequest struct {
	RefDate    time.Time
	PageSize   int
	SearchTerm string
}

// StructureSyncRequest asks for a structure sync of a tournament or competition.
type StructureSyncRequest struct {
	SubjectCode string
	// EventCodes restricts the sync to these external events. Empty means all.
	EventCodes           []string
	IncludeSubComponents bool
}

// GameSyncRequest asks for a result sync. Without Date or MatchCodes every
// draw of the subject is synced.
type GameSyncRequest struct {
	SubjectCode string
	Date        *time.Time
	MatchCodes  []string
}

// Service is the public surface of the sync engine.
type Service interface {
	QueueDiscovery(ctx context.Context, req DiscoveryRequest) (string, error)
	QueueStructureSync(ctx context.Context, req StructureSyncRequest) (string, error)
	QueueGameSync(ctx context.Context, req GameSyncRequest) (string, error)
	QueueTeamMatching(ctx context.Context, payload syncdomain.TeamMatchingPayload) (string, error)
	GetQueueStats(ctx context.Context) (syncdomain.QueueStats, error)
	GetRecentJobs(ctx context.Context, limit int, state *syncdomain.JobState) ([]syncdomain.JobRecord, error)
	GetJob(ctx context.Context, jobID string) (*syncdomain.JobRecord, error)
	SubscribeJobEvents(ctx context.Context) (<-chan syncdomain.JobEvent, error)
}
