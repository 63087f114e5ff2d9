package operators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

func TestUnionAllConcatenates(t *testing.T) {

	a := storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "v", Type: schema.Int32Type},
	}, [][]any{{1}, {2}}, 10)
	b := storage.TableFromRows(a.ColumnDefinitions(), [][]any{{2}, {3}}, 10)

	result := execute(t, NewUnionAll(NewTableWrapper(a), NewTableWrapper(b)))

	assert.EqualValues(t, 4, result.RowCount(), "union all keeps duplicates")
}

func TestUnionPositionsDeduplicates(t *testing.T) {

	table := storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "v", Type: schema.Int32Type},
	}, [][]any{{1}, {2}, {3}, {4}}, 10)

	// v <= 3 and v >= 2 overlap on {2, 3}
	lower := NewTableScan(NewTableWrapper(table), 0, schema.LessThanEquals, schema.Variant(int32(3)))
	upper := NewTableScan(NewTableWrapper(table), 0, schema.GreaterThanEquals, schema.Variant(int32(2)))

	result := execute(t, NewUnionPositions(lower, upper))

	assert.EqualValues(t, 4, result.RowCount(), "set union, overlap counted once")
	assert.ElementsMatch(t, []string{"1|", "2|", "3|", "4|"}, rowStrings(result))
}

func TestUnionPositionsEqualsDisjunction(t *testing.T) {

	// σ(v=1 ∨ v=3) through the union decomposition
	table := storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "v", Type: schema.Int32Type},
	}, [][]any{{1}, {2}, {3}}, 2)

	eq1 := NewTableScan(NewTableWrapper(table), 0, schema.Equals, schema.Variant(int32(1)))
	eq3 := NewTableScan(NewTableWrapper(table), 0, schema.Equals, schema.Variant(int32(3)))

	result := execute(t, NewUnionPositions(eq1, eq3))
	assert.ElementsMatch(t, []string{"1|", "3|"}, rowStrings(result))
}

func TestLimit(t *testing.T) {

	table := storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "v", Type: schema.Int32Type},
	}, [][]any{{1}, {2}, {3}, {4}, {5}}, 2)

	result := execute(t, NewLimit(NewTableWrapper(table), 3))
	assert.EqualValues(t, 3, result.RowCount())

	all := execute(t, NewLimit(NewTableWrapper(table), 100))
	assert.EqualValues(t, 5, all.RowCount())
}

func TestProjectionArithmetic(t *testing.T) {

	table := storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "a", Type: schema.Int32Type},
		{Name: "b", Type: schema.Int32Type, Nullable: true},
	}, [][]any{
		{2, 10}, {3, nil},
	}, 10)

	sum := expression.NewArithmetic(expression.Addition,
		expression.NewPQPColumn(0, schema.Int32Type, false, "a"),
		expression.NewPQPColumn(1, schema.Int32Type, true, "b"))

	op := NewProjection(NewTableWrapper(table), []expression.Expression{
		expression.NewPQPColumn(0, schema.Int32Type, false, "a"),
		sum,
	})

	result := execute(t, op)
	rows := tableRows(result)
	require.Len(t, rows, 2)

	assert.EqualValues(t, 12, rows[0][1].Value)
	assert.True(t, rows[1][1].IsNull(), "NULL operand yields NULL")
}

func TestProjectionDivisionByZero(t *testing.T) {

	table := storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "a", Type: schema.Int32Type},
	}, [][]any{{10}}, 10)

	div := expression.NewArithmetic(expression.Division,
		expression.NewPQPColumn(0, schema.Int32Type, false, "a"),
		expression.NewValue(schema.Variant(int32(0))))

	result := execute(t, NewProjection(NewTableWrapper(table), []expression.Expression{div}))
	assert.True(t, tableRows(result)[0][0].IsNull())
}
