// Package executor schedules operator execution. Operators become tasks
// whose dependencies mirror the operator DAG; the scheduler decides
// sequential or pooled execution.
package executor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dot5enko/column-query-engine/operators"
)

// OperatorTask wraps one operator execution. A task becomes ready when
// all predecessor tasks succeeded.
type OperatorTask struct {
	Op operators.Operator

	predecessors []*OperatorTask
	pending      atomic.Int32
	successors   []*OperatorTask

	done    chan struct{}
	doneErr error
	once    sync.Once
}

func NewOperatorTask(op operators.Operator, predecessors ...*OperatorTask) *OperatorTask {
	t := &OperatorTask{
		Op:           op,
		predecessors: predecessors,
		done:         make(chan struct{}),
	}
	t.pending.Store(int32(len(predecessors)))
	for _, p := range predecessors {
		p.successors = append(p.successors, t)
	}
	return t
}

func (t *OperatorTask) finish(err error) {
	t.once.Do(func() {
		t.doneErr = err
		close(t.done)
	})
}

// Wait blocks until the task finished and returns its error.
func (t *OperatorTask) Wait() error {
	<-t.done
	return t.doneErr
}

// TasksFromOperatorTree builds one task per distinct operator of the
// tree, wiring dependencies bottom-up, and returns them in topological
// order (inputs before consumers). The last task is the root.
func TasksFromOperatorTree(root operators.Operator) []*OperatorTask {
	byOperator := map[operators.Operator]*OperatorTask{}
	var ordered []*OperatorTask

	var build func(op operators.Operator) *OperatorTask
	build = func(op operators.Operator) *OperatorTask {
		if t, ok := byOperator[op]; ok {
			return t
		}

		var predecessors []*OperatorTask
		if op.LeftInput() != nil {
			predecessors = append(predecessors, build(op.LeftInput()))
		}
		if op.RightInput() != nil {
			predecessors = append(predecessors, build(op.RightInput()))
		}

		t := NewOperatorTask(op, predecessors...)
		byOperator[op] = t
		ordered = append(ordered, t)
		return t
	}

	build(root)
	return ordered
}

// Scheduler runs tasks. WaitFor is the only suspension point operators
// see.
type Scheduler interface {
	Schedule(ctx context.Context, tasks ...*OperatorTask)
	WaitFor(tasks ...*OperatorTask) error
}
