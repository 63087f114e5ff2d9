package executor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"
)

// PoolScheduler runs ready tasks on a shared worker pool. A task is
// submitted once its last predecessor finished; a failed predecessor
// fails all transitive successors without running them.
type PoolScheduler struct {
	pool *ants.Pool
}

func NewPoolScheduler(workers int) (*PoolScheduler, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("scheduler pool: %w", err)
	}
	return &PoolScheduler{pool: pool}, nil
}

func (s *PoolScheduler) Shutdown() {
	s.pool.Release()
}

func (s *PoolScheduler) Schedule(ctx context.Context, tasks ...*OperatorTask) {
	for _, t := range tasks {
		if t.pending.Load() == 0 {
			s.submit(ctx, t)
		}
	}
}

func (s *PoolScheduler) submit(ctx context.Context, t *OperatorTask) {
	submitErr := s.pool.Submit(func() {
		s.run(ctx, t)
	})
	if submitErr != nil {
		// pool is shut down, run inline so waiters unblock
		slog.Warn("pool submit failed, running task inline", "err", submitErr)
		s.run(ctx, t)
	}
}

func (s *PoolScheduler) run(ctx context.Context, t *OperatorTask) {
	select {
	case <-t.done:
		// already failed through a predecessor
		return
	default:
	}

	err := t.Op.Execute(ctx)
	t.finish(err)

	for _, succ := range t.successors {
		if err != nil {
			s.fail(succ, fmt.Errorf("predecessor failed: %w", err))
			continue
		}
		if succ.pending.Add(-1) == 0 {
			s.submit(ctx, succ)
		}
	}
}

// fail marks a task and its transitive successors failed.
func (s *PoolScheduler) fail(t *OperatorTask, err error) {
	t.finish(err)
	for _, succ := range t.successors {
		s.fail(succ, err)
	}
}

func (s *PoolScheduler) WaitFor(tasks ...*OperatorTask) error {
	var g errgroup.Group
	for _, t := range tasks {
		g.Go(t.Wait)
	}
	return g.Wait()
}

// ExecuteTree is the common path: build tasks for an operator tree,
// schedule, wait for the root.
func ExecuteTree(ctx context.Context, s Scheduler, root *OperatorTask, all []*OperatorTask) error {
	s.Schedule(ctx, all...)
	return s.WaitFor(root)
}
