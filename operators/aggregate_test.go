package operators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

func groupedTable() *storage.Table {
	return storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "a", Type: schema.Int32Type},
		{Name: "b", Type: schema.Int32Type},
	}, [][]any{
		{1, 2}, {1, 3}, {2, 5},
	}, 2)
}

func TestAggregateHashMinPerGroup(t *testing.T) {

	op := NewAggregateHash(NewTableWrapper(groupedTable()),
		[]schema.ColumnID{0},
		[]AggregateDefinition{{Column: 1, Function: expression.Min}})

	result := execute(t, op)

	rows := rowStrings(result)
	require.Len(t, rows, 2)
	assert.Contains(t, rows, "1|2|")
	assert.Contains(t, rows, "2|5|")
}

func TestAggregateHashAllFunctions(t *testing.T) {

	table := storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "g", Type: schema.Int32Type},
		{Name: "v", Type: schema.Int32Type, Nullable: true},
	}, [][]any{
		{1, 4}, {1, 8}, {1, nil}, {1, 4},
	}, 10)

	op := NewAggregateHash(NewTableWrapper(table),
		[]schema.ColumnID{0},
		[]AggregateDefinition{
			{Column: 1, Function: expression.Min},
			{Column: 1, Function: expression.Max},
			{Column: 1, Function: expression.Sum},
			{Column: 1, Function: expression.Avg},
			{Column: 1, Function: expression.Count},
			{Column: schema.InvalidColumnID, Function: expression.Count},
			{Column: 1, Function: expression.CountDistinct},
			{Column: 1, Function: expression.Any},
		})

	result := execute(t, op)
	rows := tableRows(result)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.EqualValues(t, 4, row[1].Value, "min")
	assert.EqualValues(t, 8, row[2].Value, "max")
	assert.EqualValues(t, int64(16), row[3].Value, "sum skips NULL")
	assert.InDelta(t, 16.0/3.0, row[4].AsFloat(), 1e-9, "avg over non-null")
	assert.EqualValues(t, int64(3), row[5].Value, "count(v) skips NULL")
	assert.EqualValues(t, int64(4), row[6].Value, "count(*) counts all rows")
	assert.EqualValues(t, int64(2), row[7].Value, "distinct 4 and 8")
	assert.False(t, row[8].IsNull(), "any picks a representative")
}

func TestAggregateStdDevSample(t *testing.T) {

	table := storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "g", Type: schema.Int32Type},
		{Name: "v", Type: schema.DoubleType},
	}, [][]any{
		{1, 2.0}, {1, 4.0}, {1, 4.0}, {1, 4.0}, {1, 5.0}, {1, 5.0}, {1, 7.0}, {1, 9.0},
	}, 3)

	op := NewAggregateHash(NewTableWrapper(table),
		[]schema.ColumnID{0},
		[]AggregateDefinition{{Column: 1, Function: expression.StandardDeviationSample}})

	result := execute(t, op)
	rows := tableRows(result)
	require.Len(t, rows, 1)

	// sample stddev of the classic 2,4,4,4,5,5,7,9 series
	assert.InDelta(t, math.Sqrt(32.0/7.0), rows[0][1].AsFloat(), 1e-9)
}

func TestAggregateNullGroupIsItsOwnGroup(t *testing.T) {

	table := storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "g", Type: schema.Int32Type, Nullable: true},
		{Name: "v", Type: schema.Int32Type},
	}, [][]any{
		{nil, 1}, {1, 2}, {nil, 3},
	}, 10)

	op := NewAggregateHash(NewTableWrapper(table),
		[]schema.ColumnID{0},
		[]AggregateDefinition{{Column: 1, Function: expression.Sum}})

	result := execute(t, op)
	rows := tableRows(result)
	require.Len(t, rows, 2)

	var nullGroupSum int64
	for _, row := range rows {
		if row[0].IsNull() {
			nullGroupSum = row[1].Value.(int64)
		}
	}
	assert.EqualValues(t, 4, nullGroupSum)
}

func TestAggregateSortMatchesHash(t *testing.T) {

	// pre-sort the input on the group column, then both must agree
	sorted := NewSort(NewTableWrapper(groupedTable()),
		[]schema.SortColumnDefinition{{Column: 0, Mode: schema.Ascending}}, 0)

	defs := []AggregateDefinition{
		{Column: 1, Function: expression.Min},
		{Column: 1, Function: expression.Sum},
	}

	viaSort := execute(t, NewAggregateSort(sorted, []schema.ColumnID{0}, defs))

	viaHash := execute(t, NewAggregateHash(NewTableWrapper(groupedTable()), []schema.ColumnID{0}, defs))

	assert.ElementsMatch(t, rowStrings(viaSort), rowStrings(viaHash))
}

func TestAggregateWithoutGroupBy(t *testing.T) {

	op := NewAggregateHash(NewTableWrapper(groupedTable()),
		nil,
		[]AggregateDefinition{{Column: 0, Function: expression.Count}})

	result := execute(t, op)
	rows := tableRows(result)
	require.Len(t, rows, 1)
	assert.EqualValues(t, int64(3), rows[0][0].Value)
}
