package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot5enko/column-query-engine/operators"
	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

func smallTable() *storage.Table {
	return storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "v", Type: schema.Int32Type},
	}, [][]any{{1}, {2}, {3}, {4}}, 2)
}

func scanTree() (operators.Operator, []*OperatorTask) {
	scan := operators.NewTableScan(
		operators.NewTableWrapper(smallTable()),
		0, schema.GreaterThan, schema.Variant(int32(1)))
	return scan, TasksFromOperatorTree(scan)
}

func TestTasksAreTopologicallyOrdered(t *testing.T) {

	root, tasks := scanTree()

	require.Len(t, tasks, 2)
	assert.Equal(t, root, tasks[len(tasks)-1].Op, "root task comes last")
}

func TestTasksShareDiamondInputs(t *testing.T) {

	wrapper := operators.NewTableWrapper(smallTable())
	left := operators.NewTableScan(wrapper, 0, schema.Equals, schema.Variant(int32(1)))
	right := operators.NewTableScan(wrapper, 0, schema.Equals, schema.Variant(int32(3)))
	union := operators.NewUnionPositions(left, right)

	tasks := TasksFromOperatorTree(union)
	assert.Len(t, tasks, 4, "the shared wrapper becomes one task")
}

func TestImmediateScheduler(t *testing.T) {

	root, tasks := scanTree()

	s := NewImmediateScheduler()
	s.Schedule(context.Background(), tasks...)
	require.NoError(t, s.WaitFor(tasks[len(tasks)-1]))

	assert.EqualValues(t, 3, root.Output().RowCount())
}

func TestPoolScheduler(t *testing.T) {

	root, tasks := scanTree()

	s, err := NewPoolScheduler(4)
	require.NoError(t, err)
	defer s.Shutdown()

	s.Schedule(context.Background(), tasks...)
	require.NoError(t, s.WaitFor(tasks[len(tasks)-1]))

	assert.EqualValues(t, 3, root.Output().RowCount())
}

func TestPoolSchedulerDiamond(t *testing.T) {

	wrapper := operators.NewTableWrapper(smallTable())
	left := operators.NewTableScan(wrapper, 0, schema.LessThanEquals, schema.Variant(int32(2)))
	right := operators.NewTableScan(wrapper, 0, schema.GreaterThanEquals, schema.Variant(int32(2)))
	union := operators.NewUnionPositions(left, right)

	tasks := TasksFromOperatorTree(union)

	s, err := NewPoolScheduler(4)
	require.NoError(t, err)
	defer s.Shutdown()

	s.Schedule(context.Background(), tasks...)
	require.NoError(t, s.WaitFor(tasks[len(tasks)-1]))

	assert.EqualValues(t, 4, union.Output().RowCount())
}

func TestFailedPredecessorFailsSuccessors(t *testing.T) {

	scan := operators.NewTableScan(
		operators.NewTableWrapper(smallTable()),
		0, schema.GreaterThan, schema.Variant(int32(1)))

	// executing the scan beforehand poisons the task run with
	// ErrAlreadyExecuted
	require.NoError(t, scan.LeftInput().Execute(context.Background()))
	require.NoError(t, scan.Execute(context.Background()))

	tasks := TasksFromOperatorTree(scan)

	s, err := NewPoolScheduler(2)
	require.NoError(t, err)
	defer s.Shutdown()

	s.Schedule(context.Background(), tasks...)
	waitErr := s.WaitFor(tasks[len(tasks)-1])
	require.Error(t, waitErr)
	assert.ErrorIs(t, waitErr, operators.ErrAlreadyExecuted)
}

func TestSchedulerCancellation(t *testing.T) {

	_, tasks := scanTree()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewImmediateScheduler()
	s.Schedule(ctx, tasks...)

	err := s.WaitFor(tasks[len(tasks)-1])
	require.Error(t, err)
	assert.ErrorIs(t, err, operators.ErrCancelled)
}
