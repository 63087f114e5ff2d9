package manager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

func fixtureTable() *storage.Table {
	return storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "a", Type: schema.Int32Type},
		{Name: "s", Type: schema.StringType, Nullable: true},
	}, [][]any{{1, "x"}, {2, nil}, {3, "z"}}, 2)
}

func TestStorageManagerLifecycle(t *testing.T) {

	Reset()
	sm := Get()

	require.NoError(t, sm.AddTable("t1", fixtureTable()))
	assert.ErrorIs(t, sm.AddTable("t1", fixtureTable()), ErrTableAlreadyExists)

	table, err := sm.GetTable("t1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, table.RowCount())

	_, err = sm.GetTable("missing")
	assert.ErrorIs(t, err, ErrTableNotFound)

	assert.True(t, sm.HasTable("t1"))
	assert.Equal(t, []string{"t1"}, sm.TableNames())

	require.NoError(t, sm.DropTable("t1"))
	assert.False(t, sm.HasTable("t1"))
	assert.ErrorIs(t, sm.DropTable("t1"), ErrTableNotFound)
}

func TestSingletonIdentity(t *testing.T) {

	Reset()
	a := Get()
	b := Get()
	assert.Same(t, a, b)

	Reset()
	assert.NotSame(t, a, Get())
}

func TestMetaTables(t *testing.T) {

	Reset()
	sm := Get()
	require.NoError(t, sm.AddTable("fixture", fixtureTable()))

	tables, err := sm.GenerateMetaTable("tables")
	require.NoError(t, err)
	require.EqualValues(t, 1, tables.RowCount())
	assert.Equal(t, "fixture", tables.GetValue(0, 0).AsString())
	assert.EqualValues(t, int64(2), tables.GetValue(1, 0).Value)
	assert.EqualValues(t, int64(3), tables.GetValue(3, 0).Value)

	columns, err := sm.GenerateMetaTable("columns")
	require.NoError(t, err)
	assert.EqualValues(t, 2, columns.RowCount())

	chunks, err := sm.GenerateMetaTable("chunks")
	require.NoError(t, err)
	assert.EqualValues(t, 2, chunks.RowCount())

	segments, err := sm.GenerateMetaTable("segments")
	require.NoError(t, err)
	assert.EqualValues(t, 4, segments.RowCount(), "2 chunks x 2 columns")

	_, err = sm.GenerateMetaTable("bogus")
	assert.Error(t, err)
}

func TestMetaSegmentsReflectEncoding(t *testing.T) {

	Reset()
	sm := Get()

	table := fixtureTable()
	storage.EncodeTableChunks(table, schema.Dictionary, schema.FixedSize2B)
	require.NoError(t, sm.AddTable("enc", table))

	segments, err := sm.GenerateMetaTable("segments")
	require.NoError(t, err)

	for row := uint64(0); row < segments.RowCount(); row++ {
		assert.Equal(t, "Dictionary", segments.GetValue(3, row).AsString())
	}
}
