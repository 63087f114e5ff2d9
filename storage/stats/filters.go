// Package stats holds per-segment pruning filters. A table scan consults
// them before touching a segment, a pruned segment contributes no rows.
package stats

import (
	"sort"

	"github.com/dot5enko/column-query-engine/schema"
)

// SegmentSource is the slice of the segment surface the builders need.
type SegmentSource interface {
	DataType() schema.DataType
	ForEachValue(filter []schema.ChunkOffset, fn func(v schema.AllTypeVariant, off schema.ChunkOffset))
}

type MinMaxFilter struct {
	Min schema.AllTypeVariant
	Max schema.AllTypeVariant
}

// CanPrune reports that no row can satisfy (cond, value [, value2]).
func (f *MinMaxFilter) CanPrune(cond schema.PredicateCondition, value, value2 schema.AllTypeVariant) bool {
	if f == nil || value.IsNull() {
		return false
	}

	switch cond {
	case schema.Equals:
		return schema.CompareVariants(value, f.Min) < 0 || schema.CompareVariants(value, f.Max) > 0
	case schema.NotEquals:
		return schema.CompareVariants(f.Min, f.Max) == 0 && schema.CompareVariants(value, f.Min) == 0
	case schema.LessThan:
		return schema.CompareVariants(f.Min, value) >= 0
	case schema.LessThanEquals:
		return schema.CompareVariants(f.Min, value) > 0
	case schema.GreaterThan:
		return schema.CompareVariants(f.Max, value) <= 0
	case schema.GreaterThanEquals:
		return schema.CompareVariants(f.Max, value) < 0
	case schema.BetweenInclusive:
		if value2.IsNull() {
			return false
		}
		return schema.CompareVariants(value2, f.Min) < 0 || schema.CompareVariants(value, f.Max) > 0
	default:
		return false
	}
}

type Range struct {
	Min float64
	Max float64
}

// RangeFilter covers the value domain of an arithmetic segment with a
// bounded set of disjoint ranges, catching gaps a min/max filter cannot.
type RangeFilter struct {
	Ranges []Range
}

const maxRangeCount = 10

func (f *RangeFilter) CanPrune(cond schema.PredicateCondition, value, value2 schema.AllTypeVariant) bool {
	if f == nil || value.IsNull() || !value.Type.IsNumeric() {
		return false
	}

	switch cond {
	case schema.Equals:
		v := value.AsFloat()
		for _, r := range f.Ranges {
			if v >= r.Min && v <= r.Max {
				return false
			}
		}
		return true
	case schema.BetweenInclusive:
		if value2.IsNull() {
			return false
		}
		lo := value.AsFloat()
		hi := value2.AsFloat()
		for _, r := range f.Ranges {
			if hi >= r.Min && lo <= r.Max {
				return false
			}
		}
		return true
	default:
		return false
	}
}

type SegmentStatistics struct {
	MinMax *MinMaxFilter
	Range  *RangeFilter
}

// Build scans a segment once and derives its filters. Segments with only
// NULL rows get no filters at all.
func Build(src SegmentSource) *SegmentStatistics {
	out := &SegmentStatistics{}

	var minV, maxV schema.AllTypeVariant
	distinct := map[float64]struct{}{}
	numeric := src.DataType().IsNumeric()

	src.ForEachValue(nil, func(v schema.AllTypeVariant, _ schema.ChunkOffset) {
		if v.IsNull() {
			return
		}
		if minV.IsNull() || schema.CompareVariants(v, minV) < 0 {
			minV = v
		}
		if maxV.IsNull() || schema.CompareVariants(v, maxV) > 0 {
			maxV = v
		}
		if numeric {
			distinct[v.AsFloat()] = struct{}{}
		}
	})

	if minV.IsNull() {
		return out
	}

	out.MinMax = &MinMaxFilter{Min: minV, Max: maxV}
	if numeric {
		out.Range = buildRangeFilter(distinct)
	}
	return out
}

// buildRangeFilter splits the sorted distinct values at the widest gaps
// until the range budget is used up.
func buildRangeFilter(distinct map[float64]struct{}) *RangeFilter {
	values := make([]float64, 0, len(distinct))
	for v := range distinct {
		values = append(values, v)
	}
	sort.Float64s(values)

	if len(values) == 0 {
		return nil
	}

	splits := min(maxRangeCount-1, len(values)-1)

	type gap struct {
		after int
		width float64
	}
	gaps := make([]gap, 0, len(values)-1)
	for i := 0; i+1 < len(values); i++ {
		gaps = append(gaps, gap{after: i, width: values[i+1] - values[i]})
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i].width > gaps[j].width })

	splitAfter := map[int]struct{}{}
	for _, g := range gaps[:splits] {
		splitAfter[g.after] = struct{}{}
	}

	filter := &RangeFilter{}
	start := values[0]
	for i, v := range values {
		if _, ok := splitAfter[i]; ok {
			filter.Ranges = append(filter.Ranges, Range{Min: start, Max: v})
			start = values[i+1]
		}
	}
	filter.Ranges = append(filter.Ranges, Range{Min: start, Max: values[len(values)-1]})
	return filter
}
