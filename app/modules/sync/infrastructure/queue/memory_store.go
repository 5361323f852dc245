package syncqueue

import (
	"context"
	"math"
	"slices"
	"sort"
	"sync"
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	"github.com/uptrace/bun"
)

// MemoryStore keeps the flow table in memory. It backs the queue in tests and in
// dry runs without a database. Transactions are not supported, so callers that
// pass a transaction get the same non-transactional view.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*JobRow
	deps map[string][]string
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory flow table.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*JobRow),
		deps: make(map[string][]string),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func cloneRow(r *JobRow) *JobRow {
	c := *r
	if r.FinishedAt != nil {
		t := *r.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

func (s *MemoryStore) InsertJobs(_ context.Context, _ bun.IDB, rows []*JobRow, deps []DependencyRow) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inserted []string
	isNew := make(map[string]bool)
	for _, row := range rows {
		if _, exists := s.jobs[row.JobID]; exists {
			continue
		}
		s.jobs[row.JobID] = cloneRow(row)
		inserted = append(inserted, row.JobID)
		isNew[row.JobID] = true
	}
	for _, d := range deps {
		if !isNew[d.JobID] || slices.Contains(s.deps[d.JobID], d.DependsOn) {
			continue
		}
		s.deps[d.JobID] = append(s.deps[d.JobID], d.DependsOn)
	}
	return inserted, nil
}

func (s *MemoryStore) GetJob(_ context.Context, _ bun.IDB, jobID string) (*JobRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return cloneRow(row), nil
}

func (s *MemoryStore) LockJob(ctx context.Context, db bun.IDB, jobID string) (*JobRow, error) {
	return s.GetJob(ctx, db, jobID)
}

func (s *MemoryStore) UpdateJob(_ context.Context, _ bun.IDB, row *JobRow, columns ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.jobs[row.JobID]
	if !ok {
		return ErrJobNotFound
	}
	for _, col := range columns {
		switch col {
		case "state":
			stored.State = row.State
		case "progress":
			stored.Progress = row.Progress
		case "attempts":
			stored.Attempts = row.Attempts
		case "generation":
			stored.Generation = row.Generation
		case "last_error":
			stored.LastError = row.LastError
		case "finished_at":
			stored.FinishedAt = row.FinishedAt
		case "payload":
			stored.Payload = row.Payload
		case "options":
			stored.Options = row.Options
		}
	}
	stored.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) MarkQueued(_ context.Context, _ bun.IDB, jobIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range jobIDs {
		if row, ok := s.jobs[id]; ok && row.State == syncdomain.JobStatePending {
			row.State = syncdomain.JobStateQueued
			row.UpdatedAt = s.now()
		}
	}
	return nil
}

func (s *MemoryStore) UpdateProgress(_ context.Context, _ bun.IDB, jobID string, progress int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.jobs[jobID]
	if !ok {
		return 0, ErrJobNotFound
	}
	row.Progress = max(row.Progress, progress)
	return row.Progress, nil
}

func (s *MemoryStore) AdvanceRootProgress(_ context.Context, _ bun.IDB, rootID string, total int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.jobs[rootID]
	if !ok {
		return 0, ErrJobNotFound
	}
	row.CompletedUnits++
	row.TotalUnits = max(row.TotalUnits, total, 1)
	pct := int(math.Round(100 * float64(row.CompletedUnits) / float64(row.TotalUnits)))
	row.Progress = max(row.Progress, min(100, pct))
	return row.Progress, nil
}

func (s *MemoryStore) CountUnmetDependencies(_ context.Context, _ bun.IDB, jobID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, dep := range s.deps[jobID] {
		if row, ok := s.jobs[dep]; ok && row.State != syncdomain.JobStateCompleted {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ListWaitingDependents(_ context.Context, _ bun.IDB, jobID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, deps := range s.deps {
		if !slices.Contains(deps, jobID) {
			continue
		}
		if row, ok := s.jobs[id]; ok && row.State == syncdomain.JobStateWaiting {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) CountUnfinishedChildren(_ context.Context, _ bun.IDB, parentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, row := range s.jobs {
		if row.ParentID == parentID && !row.State.Terminal() {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ListStale(_ context.Context, _ bun.IDB, state syncdomain.JobState, olderThan time.Time, limit int) ([]*JobRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []*JobRow
	for _, row := range s.jobs {
		if row.State == state && row.UpdatedAt.Before(olderThan) {
			rows = append(rows, cloneRow(row))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UpdatedAt.Before(rows[j].UpdatedAt) })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *MemoryStore) CountByState(_ context.Context, _ bun.IDB) (map[syncdomain.JobState]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[syncdomain.JobState]int)
	for _, row := range s.jobs {
		out[row.State]++
	}
	return out, nil
}

func (s *MemoryStore) ListRecent(_ context.Context, _ bun.IDB, limit int, state *syncdomain.JobState) ([]*JobRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []*JobRow
	for _, row := range s.jobs {
		if state != nil && row.State != *state {
			continue
		}
		rows = append(rows, cloneRow(row))
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].UpdatedAt.Equal(rows[j].UpdatedAt) {
			return rows[i].JobID < rows[j].JobID
		}
		return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *MemoryStore) PurgeFinished(_ context.Context, _ bun.IDB, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, row := range s.jobs {
		if row.State.Terminal() && row.FinishedAt != nil && row.FinishedAt.Before(before) {
			delete(s.jobs, id)
			delete(s.deps, id)
			n++
		}
	}
	return n, nil
}

var _ Store = (*MemoryStore)(nil)
