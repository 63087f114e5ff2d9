package operators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

func threeColTable() *storage.Table {
	return storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "c0", Type: schema.Int32Type},
		{Name: "c1", Type: schema.Int32Type},
		{Name: "c2", Type: schema.Int32Type},
	}, [][]any{
		{1, 2, 3}, {2, 1, 4}, {1, 2, 5},
	}, 2)
}

func TestJoinSortMergeEqualMarksOrderingAndClustering(t *testing.T) {

	// self join on (c0 = c1)
	op := NewJoinSortMerge(
		NewTableWrapper(threeColTable()),
		NewTableWrapper(threeColTable()),
		schema.JoinLeft,
		JoinPredicate{LeftColumn: 0, RightColumn: 1, Condition: schema.Equals},
		nil,
	)

	result := execute(t, op)
	require.Positive(t, result.RowCount())

	expectedOrder := []schema.SortColumnDefinition{
		{Column: 0, Mode: schema.Ascending},
		{Column: 4, Mode: schema.Ascending},
	}
	expectedClustering := []schema.ColumnID{0, 4}

	for chunkID := schema.ChunkID(0); chunkID < result.ChunkCount(); chunkID++ {
		chunk := result.GetChunk(chunkID)
		assert.Equal(t, expectedOrder, chunk.OrderedBy())
		assert.Equal(t, expectedClustering, chunk.ValueClusteredBy())
	}

	// the marked ordering actually holds
	rows := tableRows(result)
	for i := 1; i < len(rows); i++ {
		if rows[i-1][0].IsNull() || rows[i][0].IsNull() {
			continue
		}
		assert.LessOrEqual(t,
			rows[i-1][0].Value.(int32), rows[i][0].Value.(int32),
			"output sorted on the left join column")
	}
}

func TestJoinSortMergeInnerMatchesHashJoin(t *testing.T) {

	build := func() (Operator, Operator) {
		return NewTableWrapper(joinLeftTable()), NewTableWrapper(joinRightTable())
	}

	pred := JoinPredicate{LeftColumn: 0, RightColumn: 0, Condition: schema.Equals}

	l1, r1 := build()
	viaMerge := execute(t, NewJoinSortMerge(l1, r1, schema.JoinInner, pred, nil))

	l2, r2 := build()
	viaHash := execute(t, NewJoinHash(l2, r2, schema.JoinInner, pred, nil))

	assert.ElementsMatch(t, rowStrings(viaMerge), rowStrings(viaHash))
}

func TestJoinSortMergeRangeConditions(t *testing.T) {

	left := storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "v", Type: schema.Int32Type},
	}, [][]any{{1}, {5}}, 10)
	right := storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "w", Type: schema.Int32Type},
	}, [][]any{{2}, {5}, {7}}, 10)

	cases := []struct {
		cond schema.PredicateCondition
		want int
	}{
		{schema.LessThan, 4},          // 1<{2,5,7}, 5<{7}
		{schema.LessThanEquals, 5},    // 1: 3, 5: {5,7}
		{schema.GreaterThan, 1},       // 5>{2}
		{schema.GreaterThanEquals, 2}, // 5>={2,5}
		{schema.NotEquals, 5},         // 1: 3, 5: {2,7}
	}

	for _, c := range cases {
		op := NewJoinSortMerge(NewTableWrapper(left), NewTableWrapper(right),
			schema.JoinInner,
			JoinPredicate{LeftColumn: 0, RightColumn: 0, Condition: c.cond}, nil)
		result := execute(t, op)
		assert.EqualValues(t, c.want, result.RowCount(), c.cond.String())
	}
}

func TestJoinSortMergeRejectsOuterRangeJoin(t *testing.T) {

	assert.Panics(t, func() {
		NewJoinSortMerge(nil, nil, schema.JoinLeft,
			JoinPredicate{LeftColumn: 0, RightColumn: 0, Condition: schema.LessThan}, nil)
	})
}

func TestJoinNestedLoopCross(t *testing.T) {

	left := storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "a", Type: schema.Int32Type},
	}, [][]any{{1}, {2}}, 10)
	right := storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "b", Type: schema.Int32Type},
	}, [][]any{{10}, {20}, {30}}, 10)

	op := NewJoinNestedLoop(NewTableWrapper(left), NewTableWrapper(right), schema.JoinCross, nil)
	result := execute(t, op)
	assert.EqualValues(t, 6, result.RowCount())
}

func TestJoinNestedLoopMatchesHashJoin(t *testing.T) {

	pred := JoinPredicate{LeftColumn: 0, RightColumn: 0, Condition: schema.Equals}

	for _, mode := range []schema.JoinMode{
		schema.JoinInner, schema.JoinLeft, schema.JoinRight,
		schema.JoinFullOuter, schema.JoinSemi,
		schema.JoinAntiNullAsTrue, schema.JoinAntiNullAsFalse,
	} {
		viaLoop := execute(t, NewJoinNestedLoop(
			NewTableWrapper(joinLeftTable()), NewTableWrapper(joinRightTable()),
			mode, []JoinPredicate{pred}))

		viaHash := execute(t, NewJoinHash(
			NewTableWrapper(joinLeftTable()), NewTableWrapper(joinRightTable()),
			mode, pred, nil))

		assert.ElementsMatch(t, rowStrings(viaHash), rowStrings(viaLoop), mode.String())
	}
}
