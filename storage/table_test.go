package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot5enko/column-query-engine/schema"
)

func TestChunkRequiresEqualSegmentLengths(t *testing.T) {

	a := NewValueSegment[int32](false)
	a.AppendTyped(1)
	a.AppendTyped(2)

	b := NewValueSegment[int32](false)
	b.AppendTyped(1)

	assert.Panics(t, func() {
		NewChunk([]Segment{a, b})
	})
}

func TestTableChunking(t *testing.T) {

	table := TableFromRows([]TableColumnDefinition{
		{Name: "x", Type: schema.Int32Type},
	}, [][]any{{1}, {2}, {3}, {4}, {5}}, 2)

	require.Equal(t, schema.ChunkID(3), table.ChunkCount())
	assert.EqualValues(t, 5, table.RowCount())
	assert.EqualValues(t, 3, table.GetValue(0, 2).Value)
	assert.EqualValues(t, 5, table.GetValue(0, 4).Value)
}

func TestAppendChunkValidatesSchema(t *testing.T) {

	table := NewTable([]TableColumnDefinition{
		{Name: "x", Type: schema.Int32Type},
	}, DataTable, 10)

	wrong := NewValueSegment[string](false)
	wrong.AppendTyped("oops")

	assert.Panics(t, func() {
		table.AppendChunk([]Segment{wrong})
	})
}

func TestUniqueConstraints(t *testing.T) {

	table := TableFromRows([]TableColumnDefinition{
		{Name: "id", Type: schema.Int32Type},
		{Name: "v", Type: schema.Int32Type},
	}, [][]any{{1, 2}}, 10)

	table.AddSoftUniqueConstraint([]schema.ColumnID{0}, true)
	table.AddSoftUniqueConstraint([]schema.ColumnID{0, 1}, false)

	require.Len(t, table.UniqueConstraints(), 2)
	assert.True(t, table.UniqueConstraints()[0].IsPrimaryKey)

	assert.Panics(t, func() {
		table.AddSoftUniqueConstraint([]schema.ColumnID{1}, true)
	}, "second primary key must be rejected")
}

func TestChunkFinalizeFreezesStatistics(t *testing.T) {

	seg := NewValueSegment[int32](false)
	for _, v := range []int32{5, 1, 9} {
		seg.AppendTyped(v)
	}

	chunk := NewChunk([]Segment{seg})
	require.Nil(t, chunk.SegmentStatistics(0))

	chunk.Finalize()
	require.True(t, chunk.IsFinalized())

	statistics := chunk.SegmentStatistics(0)
	require.NotNil(t, statistics)
	require.NotNil(t, statistics.MinMax)
	assert.EqualValues(t, 1, statistics.MinMax.Min.Value)
	assert.EqualValues(t, 9, statistics.MinMax.Max.Value)

	// second finalize is a no-op
	chunk.Finalize()
}

func TestChunkOrderedBy(t *testing.T) {

	seg := NewValueSegment[int32](false)
	for _, v := range []int32{1, 2, 3} {
		seg.AppendTyped(v)
	}
	chunk := NewChunk([]Segment{seg})

	defs := []schema.SortColumnDefinition{{Column: 0, Mode: schema.Ascending}}
	chunk.SetOrderedBy(defs)

	mode, ok := chunk.OrderModeOfColumn(0)
	require.True(t, ok)
	assert.Equal(t, schema.Ascending, mode)

	_, ok = chunk.OrderModeOfColumn(1)
	assert.False(t, ok)
}

func TestCleanupCommitID(t *testing.T) {

	seg := NewValueSegment[int32](false)
	seg.AppendTyped(1)
	chunk := NewChunk([]Segment{seg})

	_, set := chunk.CleanupCommitID()
	assert.False(t, set)

	chunk.SetCleanupCommitID(42)
	id, set := chunk.CleanupCommitID()
	require.True(t, set)
	assert.EqualValues(t, 42, id)

	chunk.IncreaseInvalidRowCount(2)
	assert.EqualValues(t, 2, chunk.InvalidRowCount())
}

func TestEncodeTableChunks(t *testing.T) {

	table := TableFromRows([]TableColumnDefinition{
		{Name: "x", Type: schema.Int32Type},
		{Name: "s", Type: schema.StringType},
	}, [][]any{{1, "a"}, {1, "b"}, {2, "a"}}, 2)

	EncodeTableChunks(table, schema.Dictionary, schema.FixedSize2B)

	for chunkID := schema.ChunkID(0); chunkID < table.ChunkCount(); chunkID++ {
		chunk := table.GetChunk(chunkID)
		for c := 0; c < table.ColumnCount(); c++ {
			assert.Equal(t, schema.Dictionary, chunk.GetSegment(schema.ColumnID(c)).EncodingKind())
		}
	}

	assert.EqualValues(t, 1, table.GetValue(0, 0).Value)
	assert.Equal(t, "a", table.GetValue(1, 2).AsString())
}
