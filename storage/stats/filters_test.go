// the tests build sources through the storage package, which itself
// depends on stats, hence the external test package
package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
	"github.com/dot5enko/column-query-engine/storage/stats"
)

func buildStatistics(values []int32) *stats.SegmentStatistics {
	seg := storage.NewValueSegment[int32](false)
	for _, v := range values {
		seg.AppendTyped(v)
	}
	return stats.Build(seg)
}

func TestMinMaxPruning(t *testing.T) {

	statistics := buildStatistics([]int32{10, 20, 30})
	f := statistics.MinMax
	require.NotNil(t, f)

	assert.True(t, f.CanPrune(schema.Equals, schema.Variant(int32(5)), schema.NullValue()))
	assert.True(t, f.CanPrune(schema.GreaterThan, schema.Variant(int32(30)), schema.NullValue()))
	assert.True(t, f.CanPrune(schema.LessThan, schema.Variant(int32(10)), schema.NullValue()))
	assert.False(t, f.CanPrune(schema.Equals, schema.Variant(int32(20)), schema.NullValue()))
	assert.False(t, f.CanPrune(schema.LessThanEquals, schema.Variant(int32(10)), schema.NullValue()))

	assert.True(t, f.CanPrune(schema.BetweenInclusive, schema.Variant(int32(31)), schema.Variant(int32(50))))
	assert.False(t, f.CanPrune(schema.BetweenInclusive, schema.Variant(int32(25)), schema.Variant(int32(50))))
}

func TestNotEqualsPruningOnConstantSegment(t *testing.T) {

	statistics := buildStatistics([]int32{7, 7, 7})
	assert.True(t, statistics.MinMax.CanPrune(schema.NotEquals, schema.Variant(int32(7)), schema.NullValue()))
	assert.False(t, statistics.MinMax.CanPrune(schema.NotEquals, schema.Variant(int32(8)), schema.NullValue()))
}

func TestRangeFilterFindsGaps(t *testing.T) {

	// two tight clusters with a wide gap
	statistics := buildStatistics([]int32{1, 2, 3, 1000, 1001})
	f := statistics.Range
	require.NotNil(t, f)

	assert.True(t, f.CanPrune(schema.Equals, schema.Variant(int32(500)), schema.NullValue()),
		"500 sits in the gap")
	assert.False(t, f.CanPrune(schema.Equals, schema.Variant(int32(2)), schema.NullValue()))
	assert.True(t, f.CanPrune(schema.BetweenInclusive, schema.Variant(int32(100)), schema.Variant(int32(900))))
	assert.False(t, f.CanPrune(schema.BetweenInclusive, schema.Variant(int32(100)), schema.Variant(int32(1000))))
}

func TestRangesAreDisjoint(t *testing.T) {

	statistics := buildStatistics([]int32{5, 100, 200, 300, 400, 500, 600, 700, 800, 900, 1000, 1100})
	f := statistics.Range
	require.NotNil(t, f)
	require.LessOrEqual(t, len(f.Ranges), 10)

	for i := 1; i < len(f.Ranges); i++ {
		require.Greater(t, f.Ranges[i].Min, f.Ranges[i-1].Max)
	}
}

func TestAllNullSegmentHasNoFilters(t *testing.T) {

	seg := storage.NewValueSegment[int32](true)
	seg.Append(schema.NullValue())
	seg.Append(schema.NullValue())

	statistics := stats.Build(seg)
	assert.Nil(t, statistics.MinMax)
	assert.Nil(t, statistics.Range)
}
