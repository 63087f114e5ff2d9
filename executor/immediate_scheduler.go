package executor

import (
	"context"
	"fmt"
)

// ImmediateScheduler executes tasks sequentially on the calling
// goroutine, in the order they are scheduled. Tasks whose predecessors
// failed are marked failed without running.
type ImmediateScheduler struct{}

func NewImmediateScheduler() *ImmediateScheduler {
	return &ImmediateScheduler{}
}

func (s *ImmediateScheduler) Schedule(ctx context.Context, tasks ...*OperatorTask) {
	for _, t := range tasks {
		failed := false
		for _, p := range t.predecessors {
			if err := p.Wait(); err != nil {
				t.finish(fmt.Errorf("predecessor failed: %w", err))
				failed = true
				break
			}
		}
		if failed {
			continue
		}
		t.finish(t.Op.Execute(ctx))
	}
}

func (s *ImmediateScheduler) WaitFor(tasks ...*OperatorTask) error {
	for _, t := range tasks {
		if err := t.Wait(); err != nil {
			return err
		}
	}
	return nil
}
