package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot5enko/column-query-engine/schema"
)

func intSegmentWithNulls() *ValueSegment[int32] {
	seg := NewValueSegment[int32](true)
	for _, v := range []any{12, 45, nil, 12, 7, nil, 99} {
		seg.Append(VariantFromLiteral(v))
	}
	return seg
}

// every encoding must iterate identically to the unencoded source
func TestEncodingsPreserveIteration(t *testing.T) {

	src := intSegmentWithNulls()

	encoded := map[string]Segment{
		"dictionary": EncodeDictionarySegment(src, schema.FixedSize2B),
		"runlength":  EncodeRunLengthSegment(src),
		"for":        EncodeFrameOfReferenceSegment(src, schema.FixedSize4B),
		"bitpacked":  EncodeDictionarySegment(src, schema.SimdBp128),
	}

	for name, seg := range encoded {
		require.Equal(t, src.Size(), seg.Size(), name)

		var got []schema.AllTypeVariant
		seg.ForEachValue(nil, func(v schema.AllTypeVariant, _ schema.ChunkOffset) {
			got = append(got, v)
		})

		var want []schema.AllTypeVariant
		src.ForEachValue(nil, func(v schema.AllTypeVariant, _ schema.ChunkOffset) {
			want = append(want, v)
		})

		require.Len(t, got, len(want), name)
		for i := range want {
			if want[i].IsNull() {
				assert.True(t, got[i].IsNull(), "%s row %d", name, i)
				continue
			}
			assert.Zero(t, schema.CompareVariants(got[i], want[i]), "%s row %d", name, i)
		}
	}
}

func TestDictionaryIsStrictlyIncreasing(t *testing.T) {

	src := intSegmentWithNulls()
	dict := EncodeDictionarySegment(src, schema.FixedSize1B)

	values := dict.Dictionary()
	for i := 1; i < len(values); i++ {
		require.Less(t, values[i-1], values[i], "dictionary must be strictly increasing")
	}

	// 12 occurs twice but is stored once
	assert.Equal(t, 4, dict.UniqueValuesCount())
	assert.Equal(t, schema.ValueID(4), dict.NullSentinel())
}

func TestDictionaryBounds(t *testing.T) {

	src := NewValueSegment[int32](false)
	for _, v := range []int32{10, 20, 30} {
		src.AppendTyped(v)
	}
	dict := EncodeDictionarySegment(src, schema.FixedSize1B)

	assert.Equal(t, schema.ValueID(1), dict.LowerBound(schema.Variant(int32(20))))
	assert.Equal(t, schema.ValueID(2), dict.UpperBound(schema.Variant(int32(20))))

	// absent value: lower == upper
	assert.Equal(t, dict.LowerBound(schema.Variant(int32(25))), dict.UpperBound(schema.Variant(int32(25))))
}

func TestFixedStringDictionary(t *testing.T) {

	src := NewValueSegment[string](true)
	for _, v := range []any{"beta", "alpha", nil, "beta", "gamma"} {
		src.Append(VariantFromLiteral(v))
	}

	dict := EncodeFixedStringDictionarySegment(src, schema.FixedSize1B)

	assert.Equal(t, 3, dict.UniqueValuesCount())
	assert.Equal(t, schema.StringType, dict.DataType())

	assert.Equal(t, "alpha", dict.Value(1).AsString())
	assert.True(t, dict.Value(2).IsNull())
	assert.Equal(t, "gamma", dict.Value(4).AsString())

	assert.Equal(t, schema.ValueID(1), dict.LowerBound(schema.Variant("beta")))
}

func TestRunLengthInvariants(t *testing.T) {

	src := NewValueSegment[int32](true)
	for _, v := range []any{7, 7, 7, nil, nil, 9} {
		src.Append(VariantFromLiteral(v))
	}

	rle := EncodeRunLengthSegment(src)

	require.Equal(t, 3, rle.RunCount())

	ends := rle.EndPositions()
	for i := 1; i < len(ends); i++ {
		require.Less(t, ends[i-1], ends[i], "end positions strictly increasing")
	}
	require.Equal(t, schema.ChunkOffset(6), ends[len(ends)-1], "last end equals segment length")

	assert.True(t, rle.Value(4).IsNull())
	assert.EqualValues(t, 9, rle.Value(5).Value)
}

func TestFrameOfReferenceValues(t *testing.T) {

	src := NewValueSegment[int64](false)
	for _, v := range []int64{1000000, 1000005, 1000002, 999999} {
		src.AppendTyped(v)
	}

	seg := EncodeFrameOfReferenceSegment(src, schema.FixedSize1B)

	for i := schema.ChunkOffset(0); i < src.Size(); i++ {
		assert.Zero(t, schema.CompareVariants(src.Value(i), seg.Value(i)), "row %d", i)
	}
}

func TestReferenceSegmentProjection(t *testing.T) {

	table := TableFromRows([]TableColumnDefinition{
		{Name: "a", Type: schema.Int32Type},
		{Name: "b", Type: schema.StringType},
	}, [][]any{
		{1, "one"}, {2, "two"}, {3, "three"}, {4, "four"},
	}, 2)

	positions := NewPosList(0)
	positions.Append(schema.RowID{Chunk: 1, Offset: 1}) // 4
	positions.Append(schema.RowID{Chunk: 0, Offset: 0}) // 1
	positions.Append(schema.NullRowID)

	ref := NewReferenceSegment(table, 0, positions)

	require.Equal(t, schema.ChunkOffset(3), ref.Size())
	assert.EqualValues(t, 4, ref.Value(0).Value)
	assert.EqualValues(t, 1, ref.Value(1).Value)
	assert.True(t, ref.Value(2).IsNull())
}

func TestReferenceSegmentRejectsReferenceTable(t *testing.T) {

	data := TableFromRows([]TableColumnDefinition{{Name: "a", Type: schema.Int32Type}}, [][]any{{1}}, 10)

	refTable := NewTable(data.ColumnDefinitions(), ReferenceTable, 10)
	positions := NewPosList(0)
	positions.Append(schema.RowID{Chunk: 0, Offset: 0})
	refTable.AppendChunk([]Segment{NewReferenceSegment(data, 0, positions)})

	assert.Panics(t, func() {
		NewReferenceSegment(refTable, 0, positions)
	}, "references must never chain")
}

func TestPositionFilterOrder(t *testing.T) {

	src := NewValueSegment[int32](false)
	for _, v := range []int32{10, 11, 12, 13} {
		src.AppendTyped(v)
	}

	filter := []schema.ChunkOffset{3, 0, 2}
	var got []int32
	src.ForEachValue(filter, func(v schema.AllTypeVariant, _ schema.ChunkOffset) {
		got = append(got, v.Value.(int32))
	})

	assert.Equal(t, []int32{13, 10, 12}, got, "filter order must be preserved")
}

func TestCompressedVectorWidths(t *testing.T) {

	small := CompressUint32([]uint32{1, 2, 3}, 3, schema.FixedSize1B)
	assert.Equal(t, schema.FixedSize1B, small.Kind())

	// requested width too narrow, must widen
	wide := CompressUint32([]uint32{70000}, 70000, schema.FixedSize1B)
	assert.Equal(t, schema.FixedSize4B, wide.Kind())
	assert.Equal(t, uint32(70000), wide.Get(0))

	packed := CompressUint32([]uint32{5, 6, 7}, 7, schema.SimdBp128)
	assert.Equal(t, schema.SimdBp128, packed.Kind())
	assert.Equal(t, uint32(6), packed.Get(1))
}
