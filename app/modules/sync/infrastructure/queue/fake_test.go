package syncqueue

import (
	"context"
	"sync"

	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
)

// ------------------------
// Fake Dispatcher
// ------------------------

type FakeDispatcher struct {
	mu         sync.Mutex
	batches    [][]SyncJobArgs
	seen       map[SyncJobArgs]bool
	DispatchFn func(ctx context.Context, jobs []SyncJobArgs) error
}

func (f *FakeDispatcher) Dispatch(ctx context.Context, jobs []SyncJobArgs) error {
	if f.DispatchFn != nil {
		if err := f.DispatchFn(ctx, jobs); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = make(map[SyncJobArgs]bool)
	}
	var fresh []SyncJobArgs
	for _, j := range jobs {
		// unique by args, like the River dispatcher
		if f.seen[j] {
			continue
		}
		f.seen[j] = true
		fresh = append(fresh, j)
	}
	f.batches = append(f.batches, fresh)
	return nil
}

// Drain returns every delivery handed over since the last call.
func (f *FakeDispatcher) Drain() []SyncJobArgs {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []SyncJobArgs
	for _, b := range f.batches {
		out = append(out, b...)
	}
	f.batches = nil
	return out
}

// ------------------------
// Fake Executor
// ------------------------

type FakeExecutor struct {
	mu        sync.Mutex
	calls     []syncdomain.Execution
	ExecuteFn func(ctx context.Context, exec syncdomain.Execution) error
}

func (f *FakeExecutor) Execute(ctx context.Context, exec syncdomain.Execution) error {
	f.mu.Lock()
	f.calls = append(f.calls, exec)
	f.mu.Unlock()
	if f.ExecuteFn != nil {
		return f.ExecuteFn(ctx, exec)
	}
	return nil
}

func (f *FakeExecutor) Calls() []syncdomain.Execution {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]syncdomain.Execution(nil), f.calls...)
}

// ------------------------
// Fake Publisher
// ------------------------

type FakePublisher struct {
	mu     sync.Mutex
	events []syncdomain.JobEvent
}

func (f *FakePublisher) PublishJobEvent(_ context.Context, ev syncdomain.JobEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *FakePublisher) States(jobID string) []syncdomain.JobState {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []syncdomain.JobState
	for _, ev := range f.events {
		if ev.JobID == jobID && ev.Kind != "" {
			out = append(out, ev.State)
		}
	}
	return out
}
