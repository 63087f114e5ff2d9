package operators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

func joinLeftTable() *storage.Table {
	return storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "id", Type: schema.Int32Type, Nullable: true},
		{Name: "l", Type: schema.StringType},
	}, [][]any{
		{1, "a"}, {2, "b"}, {nil, "c"}, {4, "d"},
	}, 2)
}

func joinRightTable() *storage.Table {
	return storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "id", Type: schema.Int32Type, Nullable: true},
		{Name: "r", Type: schema.StringType},
	}, [][]any{
		{1, "x"}, {1, "y"}, {3, "z"}, {nil, "w"},
	}, 3)
}

func equiJoin(mode schema.JoinMode) *JoinHash {
	return NewJoinHash(
		NewTableWrapper(joinLeftTable()),
		NewTableWrapper(joinRightTable()),
		mode,
		JoinPredicate{LeftColumn: 0, RightColumn: 0, Condition: schema.Equals},
		nil,
	)
}

func TestJoinHashInner(t *testing.T) {

	result := execute(t, equiJoin(schema.JoinInner))

	rows := rowStrings(result)
	require.Len(t, rows, 2, "id 1 matches twice, NULLs never match")
	assert.Contains(t, rows, "1|a|1|x|")
	assert.Contains(t, rows, "1|a|1|y|")
	assert.Equal(t, 4, result.ColumnCount())
}

func TestJoinHashLeft(t *testing.T) {

	result := execute(t, equiJoin(schema.JoinLeft))

	rows := rowStrings(result)
	require.Len(t, rows, 5, "2 matches + 3 unmatched left rows")
	assert.Contains(t, rows, "2|b|NULL|NULL|")
	assert.Contains(t, rows, "NULL|c|NULL|NULL|")
	assert.Contains(t, rows, "4|d|NULL|NULL|")

	// padded right columns become nullable
	assert.True(t, result.ColumnNullable(2))
	assert.True(t, result.ColumnNullable(3))
}

func TestJoinHashRight(t *testing.T) {

	result := execute(t, equiJoin(schema.JoinRight))

	rows := rowStrings(result)
	require.Len(t, rows, 4, "2 matches + 2 unmatched right rows")
	assert.Contains(t, rows, "NULL|NULL|3|z|")
	assert.Contains(t, rows, "NULL|NULL|NULL|w|")
}

func TestJoinHashFullOuter(t *testing.T) {

	result := execute(t, equiJoin(schema.JoinFullOuter))
	assert.EqualValues(t, 7, result.RowCount(), "2 matches + 3 left + 2 right unmatched")
}

func TestJoinHashSemi(t *testing.T) {

	result := execute(t, equiJoin(schema.JoinSemi))

	rows := rowStrings(result)
	require.Len(t, rows, 1, "only id 1 has a partner, emitted once")
	assert.Equal(t, "1|a|", rows[0])
	assert.Equal(t, 2, result.ColumnCount(), "semi joins emit left columns only")
}

func TestJoinHashAntiModesDifferOnNullKeys(t *testing.T) {

	// AntiNullAsFalse keeps the NULL-key row, AntiNullAsTrue rejects it
	asFalse := execute(t, equiJoin(schema.JoinAntiNullAsFalse))
	assert.ElementsMatch(t, []string{"2|b|", "NULL|c|", "4|d|"}, rowStrings(asFalse))

	asTrue := execute(t, equiJoin(schema.JoinAntiNullAsTrue))
	assert.ElementsMatch(t, []string{"2|b|", "4|d|"}, rowStrings(asTrue))
}

func TestJoinHashAntiAgainstEmptyRight(t *testing.T) {

	// with no right rows nothing can match: all left rows survive, the
	// NULL-key row included, under both anti modes
	emptyRight := storage.NewTable(joinRightTable().ColumnDefinitions(), storage.DataTable, 10)

	for _, mode := range []schema.JoinMode{schema.JoinAntiNullAsTrue, schema.JoinAntiNullAsFalse} {
		op := NewJoinHash(
			NewTableWrapper(joinLeftTable()),
			NewTableWrapper(emptyRight),
			mode,
			JoinPredicate{LeftColumn: 0, RightColumn: 0, Condition: schema.Equals},
			nil,
		)
		result := execute(t, op)
		assert.EqualValues(t, 4, result.RowCount(), mode.String())
	}
}

func TestJoinHashSecondaryPredicate(t *testing.T) {

	left := storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "k", Type: schema.Int32Type},
		{Name: "v", Type: schema.Int32Type},
	}, [][]any{{1, 10}, {1, 20}}, 10)

	right := storage.TableFromRows(left.ColumnDefinitions(), [][]any{{1, 15}}, 10)

	op := NewJoinHash(NewTableWrapper(left), NewTableWrapper(right), schema.JoinInner,
		JoinPredicate{LeftColumn: 0, RightColumn: 0, Condition: schema.Equals},
		[]JoinPredicate{{LeftColumn: 1, RightColumn: 1, Condition: schema.GreaterThan}})

	result := execute(t, op)
	rows := rowStrings(result)
	require.Len(t, rows, 1, "secondary predicate filters candidate pairs")
	assert.Equal(t, "1|20|1|15|", rows[0])
}

func TestJoinHashRejectsNonEquality(t *testing.T) {

	assert.Panics(t, func() {
		NewJoinHash(nil, nil, schema.JoinInner,
			JoinPredicate{LeftColumn: 0, RightColumn: 0, Condition: schema.LessThan}, nil)
	})
}
