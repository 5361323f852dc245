package syncdomain

import (
	"errors"
	"fmt"
	"time"
)

// Domain distinguishes individual tournaments from team competitions. The two
// domains compose their job graphs differently.
type Domain string

const (
	DomainTournament  Domain = "tournament"
	DomainCompetition Domain = "competition"
)

// Component names the tier a job belongs to and is part of its ID.
type Component string

const (
	ComponentDiscovery Component = "discovery"
	ComponentStructure Component = "structure"
	ComponentSubEvent  Component = "subevent"
	ComponentDraw      Component = "draw"
	ComponentEntry     Component = "entry"
	ComponentEncounter Component = "encounter"
	ComponentGame      Component = "game"
	ComponentScores    Component = "scores"
	ComponentStanding  Component = "standing"
	ComponentTeamMatch Component = "teammatch"
)

// JobState is the lifecycle state of a job in the flow table.
type JobState string

const (
	// JobStateWaiting means at least one dependency has not completed yet.
	JobStateWaiting JobState = "waiting"
	// JobStatePending means the job is ready but not handed to a worker queue yet.
	JobStatePending         JobState = "pending"
	JobStateQueued          JobState = "queued"
	JobStateActive          JobState = "active"
	JobStateWaitingChildren JobState = "waiting_children"
	JobStateRetrying        JobState = "retrying"
	JobStateCompleted       JobState = "completed"
	JobStateFailed          JobState = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// ParseJobState validates a user supplied state filter.
func ParseJobState(s string) (JobState, error) {
	switch st := JobState(s); st {
	case JobStateWaiting, JobStatePending, JobStateQueued, JobStateActive,
		JobStateWaitingChildren, JobStateRetrying, JobStateCompleted, JobStateFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown job state %q", s)
}

var (
	// ErrWaitingOnChildren signals that a job suspended itself until its children
	// finish. It is not a failure and must be returned unchanged by every layer.
	ErrWaitingOnChildren = errors.New("job is waiting on children")

	// ErrMalformedPayload is returned when a persisted payload cannot be decoded.
	ErrMalformedPayload = errors.New("malformed job payload")

	// ErrMissingReference means a required parent entity does not exist locally.
	ErrMissingReference = errors.New("missing reference")
)

// JobRecord is the persisted view of a job.
type JobRecord struct {
	ID         string
	Kind       JobKind
	Domain     Domain
	ParentID   string
	Options    map[string]any
	Payload    PayloadEnvelope
	State      JobState
	Progress   int
	Attempts   int
	Generation int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt *time.Time
}

// JobSpec describes a job to submit. DependsOn lists job IDs that must complete
// before the job is dispatched.
type JobSpec struct {
	ID                  string
	Payload             Payload
	ParentID            string
	DependsOn           []string
	FailParentOnFailure bool
}

// Execution is one delivery of a job to a worker.
type Execution struct {
	JobID       string
	Payload     Payload
	ResumeToken string
	Generation  int
	Attempt     int
	MaxAttempts int
}

// Resumed reports whether the delivery carries a continuation token, i.e. the
// queue re-delivered the job after some set of its children finished.
func (e Execution) Resumed() bool {
	return e.ResumeToken != ""
}

// ResumedAfter reports whether the delivery was handed out after the children
// submitted in the given generation finished. A retry of the same generation
// is not a resumption of that phase.
func (e Execution) ResumedAfter(generation int) bool {
	return e.Resumed() && e.Generation > generation
}

// FinalAttempt reports whether a failure of this delivery is permanent.
func (e Execution) FinalAttempt() bool {
	return e.MaxAttempts > 0 && e.Attempt >= e.MaxAttempts
}

// ResumeToken builds the continuation token handed out on re-delivery.
func ResumeToken(jobID string, generation int) string {
	return fmt.Sprintf("%s#%d", jobID, generation)
}

// QueueStats is a snapshot of job counts per state.
type QueueStats struct {
	Waiting         int `json:"waiting"`
	Pending         int `json:"pending"`
	Queued          int `json:"queued"`
	Active          int `json:"active"`
	WaitingChildren int `json:"waitingChildren"`
	Retrying        int `json:"retrying"`
	Completed       int `json:"completed"`
	Failed          int `json:"failed"`
}

// Total returns the number of jobs across all states.
func (s QueueStats) Total() int {
	return s.Waiting + s.Pending + s.Queued + s.Active + s.WaitingChildren + s.Retrying + s.Completed + s.Failed
}

// Add increments the counter for a state.
func (s *QueueStats) Add(state JobState, n int) {
	switch state {
	case JobStateWaiting:
		s.Waiting += n
	case JobStatePending:
		s.Pending += n
	case JobStateQueued:
		s.Queued += n
	case JobStateActive:
		s.Active += n
	case JobStateWaitingChildren:
		s.WaitingChildren += n
	case JobStateRetrying:
		s.Retrying += n
	case JobStateCompleted:
		s.Completed += n
	case JobStateFailed:
		s.Failed += n
	}
}

// JobEvent is published whenever a job changes state or reports progress.
type JobEvent struct {
	JobID      string    `json:"jobId"`
	Kind       JobKind   `json:"kind"`
	ParentID   string    `json:"parentId,omitempty"`
	State      JobState  `json:"state"`
	Progress   int       `json:"progress"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
