package syncqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	"github.com/uptrace/bun"
)

// ErrJobNotFound is returned when no sync_jobs row has the given id.
var ErrJobNotFound = errors.New("sync job not found")

// Store persists the flow table.
type Store interface {
	// InsertJobs inserts rows that do not exist yet and returns the ids that were
	// inserted. Dependencies are only recorded for inserted rows.
	InsertJobs(ctx context.Context, db bun.IDB, rows []*JobRow, deps []DependencyRow) ([]string, error)
	GetJob(ctx context.Context, db bun.IDB, jobID string) (*JobRow, error)
	// LockJob reads a row with FOR UPDATE.
	LockJob(ctx context.Context, db bun.IDB, jobID string) (*JobRow, error)
	UpdateJob(ctx context.Context, db bun.IDB, row *JobRow, columns ...string) error
	// MarkQueued moves pending rows to queued; rows already picked up are left alone.
	MarkQueued(ctx context.Context, db bun.IDB, jobIDs []string) error
	UpdateProgress(ctx context.Context, db bun.IDB, jobID string, progress int) (int, error)
	AdvanceRootProgress(ctx context.Context, db bun.IDB, rootID string, total int) (int, error)

	CountUnmetDependencies(ctx context.Context, db bun.IDB, jobID string) (int, error)
	ListWaitingDependents(ctx context.Context, db bun.IDB, jobID string) ([]string, error)
	CountUnfinishedChildren(ctx context.Context, db bun.IDB, parentID string) (int, error)

	ListStale(ctx context.Context, db bun.IDB, state syncdomain.JobState, olderThan time.Time, limit int) ([]*JobRow, error)
	CountByState(ctx context.Context, db bun.IDB) (map[syncdomain.JobState]int, error)
	ListRecent(ctx context.Context, db bun.IDB, limit int, state *syncdomain.JobState) ([]*JobRow, error)
	PurgeFinished(ctx context.Context, db bun.IDB, before time.Time) (int, error)
}

// BunStore implements Store with Bun.
type BunStore struct {
	db bun.IDB
}

// NewStore creates a new flow table store.
func NewStore(db bun.IDB) *BunStore {
	return &BunStore{db: db}
}

func (s *BunStore) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return s.db
	}
	return db
}

func (s *BunStore) InsertJobs(ctx context.Context, db bun.IDB, rows []*JobRow, deps []DependencyRow) ([]string, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	db = s.resolveDB(db)

	var inserted []string
	err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (job_id) DO NOTHING").
		Returning("job_id").
		Scan(ctx, &inserted)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to insert sync jobs: %w", err)
	}

	isNew := make(map[string]bool, len(inserted))
	for _, id := range inserted {
		isNew[id] = true
	}
	var newDeps []DependencyRow
	for _, d := range deps {
		if isNew[d.JobID] {
			newDeps = append(newDeps, d)
		}
	}
	if len(newDeps) > 0 {
		if _, err := db.NewInsert().
			Model(&newDeps).
			On("CONFLICT DO NOTHING").
			Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to insert job dependencies: %w", err)
		}
	}
	return inserted, nil
}

func (s *BunStore) GetJob(ctx context.Context, db bun.IDB, jobID string) (*JobRow, error) {
	return s.getJob(ctx, s.resolveDB(db).NewSelect(), jobID)
}

func (s *BunStore) LockJob(ctx context.Context, db bun.IDB, jobID string) (*JobRow, error) {
	return s.getJob(ctx, s.resolveDB(db).NewSelect().For("UPDATE"), jobID)
}

func (s *BunStore) getJob(ctx context.Context, q *bun.SelectQuery, jobID string) (*JobRow, error) {
	row := new(JobRow)
	err := q.Model(row).Where("job_id = ?", jobID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get sync job: %w", err)
	}
	return row, nil
}

func (s *BunStore) UpdateJob(ctx context.Context, db bun.IDB, row *JobRow, columns ...string) error {
	row.UpdatedAt = time.Now().UTC()
	q := s.resolveDB(db).NewUpdate().Model(row).WherePK()
	if len(columns) > 0 {
		q = q.Column(append(columns, "updated_at")...)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update sync job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *BunStore) MarkQueued(ctx context.Context, db bun.IDB, jobIDs []string) error {
	if len(jobIDs) == 0 {
		return nil
	}
	_, err := s.resolveDB(db).NewUpdate().
		Model((*JobRow)(nil)).
		Set("state = ?", syncdomain.JobStateQueued).
		Set("updated_at = ?", time.Now().UTC()).
		Where("job_id IN (?)", bun.In(jobIDs)).
		Where("state = ?", syncdomain.JobStatePending).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark jobs queued: %w", err)
	}
	return nil
}

func (s *BunStore) UpdateProgress(ctx context.Context, db bun.IDB, jobID string, progress int) (int, error) {
	var out int
	err := s.resolveDB(db).NewUpdate().
		Model((*JobRow)(nil)).
		Set("progress = GREATEST(progress, ?)", progress).
		Set("updated_at = ?", time.Now().UTC()).
		Where("job_id = ?", jobID).
		Returning("progress").
		Scan(ctx, &out)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrJobNotFound
		}
		return 0, fmt.Errorf("failed to update job progress: %w", err)
	}
	return out, nil
}

func (s *BunStore) AdvanceRootProgress(ctx context.Context, db bun.IDB, rootID string, total int) (int, error) {
	var out int
	err := s.resolveDB(db).NewUpdate().
		Model((*JobRow)(nil)).
		Set("completed_units = completed_units + 1").
		Set("total_units = GREATEST(total_units, ?)", total).
		Set("progress = GREATEST(progress, LEAST(100, ROUND(100.0 * (completed_units + 1) / GREATEST(total_units, ?, 1))::int))", total).
		Set("updated_at = ?", time.Now().UTC()).
		Where("job_id = ?", rootID).
		Returning("progress").
		Scan(ctx, &out)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrJobNotFound
		}
		return 0, fmt.Errorf("failed to advance root progress: %w", err)
	}
	return out, nil
}

func (s *BunStore) CountUnmetDependencies(ctx context.Context, db bun.IDB, jobID string) (int, error) {
	n, err := s.resolveDB(db).NewSelect().
		TableExpr("sync_job_dependencies AS d").
		Join("JOIN sync_jobs AS j ON j.job_id = d.depends_on").
		Where("d.job_id = ?", jobID).
		Where("j.state <> ?", syncdomain.JobStateCompleted).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count unmet dependencies: %w", err)
	}
	return n, nil
}

func (s *BunStore) ListWaitingDependents(ctx context.Context, db bun.IDB, jobID string) ([]string, error) {
	var ids []string
	err := s.resolveDB(db).NewSelect().
		TableExpr("sync_job_dependencies AS d").
		Join("JOIN sync_jobs AS j ON j.job_id = d.job_id").
		ColumnExpr("d.job_id").
		Where("d.depends_on = ?", jobID).
		Where("j.state = ?", syncdomain.JobStateWaiting).
		Order("d.job_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependents: %w", err)
	}
	return ids, nil
}

func (s *BunStore) CountUnfinishedChildren(ctx context.Context, db bun.IDB, parentID string) (int, error) {
	n, err := s.resolveDB(db).NewSelect().
		Model((*JobRow)(nil)).
		Where("parent_id = ?", parentID).
		Where("state NOT IN (?)", bun.In([]syncdomain.JobState{syncdomain.JobStateCompleted, syncdomain.JobStateFailed})).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count unfinished children: %w", err)
	}
	return n, nil
}

func (s *BunStore) ListStale(ctx context.Context, db bun.IDB, state syncdomain.JobState, olderThan time.Time, limit int) ([]*JobRow, error) {
	var rows []*JobRow
	err := s.resolveDB(db).NewSelect().
		Model(&rows).
		Where("state = ?", state).
		Where("updated_at < ?", olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale jobs: %w", err)
	}
	return rows, nil
}

func (s *BunStore) CountByState(ctx context.Context, db bun.IDB) (map[syncdomain.JobState]int, error) {
	var counts []struct {
		State syncdomain.JobState `bun:"state"`
		Count int                 `bun:"count"`
	}
	err := s.resolveDB(db).NewSelect().
		Model((*JobRow)(nil)).
		Column("state").
		ColumnExpr("COUNT(*) AS count").
		Group("state").
		Scan(ctx, &counts)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs by state: %w", err)
	}
	out := make(map[syncdomain.JobState]int, len(counts))
	for _, c := range counts {
		out[c.State] = c.Count
	}
	return out, nil
}

func (s *BunStore) ListRecent(ctx context.Context, db bun.IDB, limit int, state *syncdomain.JobState) ([]*JobRow, error) {
	var rows []*JobRow
	q := s.resolveDB(db).NewSelect().
		Model(&rows).
		Order("updated_at DESC").
		Limit(limit)
	if state != nil {
		q = q.Where("state = ?", *state)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list recent jobs: %w", err)
	}
	return rows, nil
}

func (s *BunStore) PurgeFinished(ctx context.Context, db bun.IDB, before time.Time) (int, error) {
	res, err := s.resolveDB(db).NewDelete().
		Model((*JobRow)(nil)).
		Where("state IN (?)", bun.In([]syncdomain.JobState{syncdomain.JobStateCompleted, syncdomain.JobStateFailed})).
		Where("finished_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge finished jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
