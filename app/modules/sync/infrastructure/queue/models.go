package syncqueue

import (
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	"github.com/uptrace/bun"
)

// SyncJobArgs is the River job that delivers one sync_jobs row to a worker.
// Generation changes whenever a parent is re-dispatched after its children
// finished, so River's unique-by-args check lets the new delivery through.
type SyncJobArgs struct {
	JobID      string `json:"job_id"`
	Generation int    `json:"generation"`
	Resume     bool   `json:"resume,omitempty"`
}

// Kind returns the job type identifier for River
func (SyncJobArgs) Kind() string { return "sync_job" }

// DispatchSweepArgs triggers the periodic outbox sweep.
type DispatchSweepArgs struct{}

// Kind returns the job type identifier for River
func (DispatchSweepArgs) Kind() string { return "sync_dispatch_sweep" }

// JobRow is a row of the sync_jobs flow table.
type JobRow struct {
	bun.BaseModel `bun:"table:sync_jobs,alias:sj"`

	JobID               string                     `bun:"job_id,pk"`
	Kind                syncdomain.JobKind         `bun:"kind,notnull"`
	Domain              syncdomain.Domain          `bun:"domain,notnull"`
	ParentID            string                     `bun:"parent_id,nullzero"`
	Options             map[string]any             `bun:"options,type:jsonb,nullzero"`
	Payload             syncdomain.PayloadEnvelope `bun:"payload,type:jsonb,notnull"`
	State               syncdomain.JobState        `bun:"state,notnull"`
	Progress            int                        `bun:"progress,notnull"`
	Attempts            int                        `bun:"attempts,notnull"`
	Generation          int                        `bun:"generation,notnull"`
	LastError           string                     `bun:"last_error,nullzero"`
	TotalUnits          int                        `bun:"total_units,notnull"`
	CompletedUnits      int                        `bun:"completed_units,notnull"`
	FailParentOnFailure bool                       `bun:"fail_parent_on_failure,notnull"`
	CreatedAt           time.Time                  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt           time.Time                  `bun:"updated_at,notnull,default:current_timestamp"`
	FinishedAt          *time.Time                 `bun:"finished_at"`
}

// DependencyRow records that JobID may only run after DependsOn completed.
type DependencyRow struct {
	bun.BaseModel `bun:"table:sync_job_dependencies,alias:sjd"`

	JobID     string `bun:"job_id,pk"`
	DependsOn string `bun:"depends_on,pk"`
}

// Record converts the row into its domain view.
func (r *JobRow) Record() syncdomain.JobRecord {
	return syncdomain.JobRecord{
		ID:         r.JobID,
		Kind:       r.Kind,
		Domain:     r.Domain,
		ParentID:   r.ParentID,
		Options:    r.Options,
		Payload:    r.Payload,
		State:      r.State,
		Progress:   r.Progress,
		Attempts:   r.Attempts,
		Generation: r.Generation,
		LastError:  r.LastError,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		FinishedAt: r.FinishedAt,
	}
}

// args builds the delivery for the row's current generation. Any generation
// after the first is a resumption after children finished.
func (r *JobRow) args() SyncJobArgs {
	return SyncJobArgs{JobID: r.JobID, Generation: r.Generation, Resume: r.Generation > 0}
}
