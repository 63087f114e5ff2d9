package storage

import (
	"sort"

	"github.com/dot5enko/column-query-engine/schema"
)

// RunLengthSegment stores runs of equal values as three parallel vectors.
// End positions are exclusive and strictly increasing, the last one equals
// the segment length.
type RunLengthSegment[T schema.ColumnType] struct {
	values       []T
	nullRuns     []bool
	endPositions []schema.ChunkOffset
}

func EncodeRunLengthSegment[T schema.ColumnType](src *ValueSegment[T]) *RunLengthSegment[T] {
	out := &RunLengthSegment[T]{}

	values := src.Values()
	for i, v := range values {
		off := schema.ChunkOffset(i)
		isNull := src.IsNullAt(off)

		last := len(out.values) - 1
		if last >= 0 && out.nullRuns[last] == isNull && (isNull || out.values[last] == v) {
			out.endPositions[last] = off + 1
			continue
		}

		out.values = append(out.values, v)
		out.nullRuns = append(out.nullRuns, isNull)
		out.endPositions = append(out.endPositions, off+1)
	}

	return out
}

func (s *RunLengthSegment[T]) Size() schema.ChunkOffset {
	if len(s.endPositions) == 0 {
		return 0
	}
	return s.endPositions[len(s.endPositions)-1]
}

func (s *RunLengthSegment[T]) DataType() schema.DataType {
	return schema.DataTypeOf[T]()
}

func (s *RunLengthSegment[T]) EncodingKind() schema.EncodingType {
	return schema.RunLength
}

func (s *RunLengthSegment[T]) MemoryUsage() int {
	return len(s.values)*8 + len(s.nullRuns) + len(s.endPositions)*4
}

func (s *RunLengthSegment[T]) RunCount() int {
	return len(s.values)
}

func (s *RunLengthSegment[T]) EndPositions() []schema.ChunkOffset {
	return s.endPositions
}

func (s *RunLengthSegment[T]) runForOffset(off schema.ChunkOffset) int {
	return sort.Search(len(s.endPositions), func(i int) bool {
		return s.endPositions[i] > off
	})
}

func (s *RunLengthSegment[T]) Value(off schema.ChunkOffset) schema.AllTypeVariant {
	run := s.runForOffset(off)
	if s.nullRuns[run] {
		return schema.NullValue()
	}
	return schema.Variant(s.values[run])
}

func (s *RunLengthSegment[T]) ForEachValue(filter []schema.ChunkOffset, fn func(v schema.AllTypeVariant, off schema.ChunkOffset)) {
	if filter == nil {
		var off schema.ChunkOffset
		for run, end := range s.endPositions {
			var v schema.AllTypeVariant
			if !s.nullRuns[run] {
				v = schema.Variant(s.values[run])
			} else {
				v = schema.NullValue()
			}
			for ; off < end; off++ {
				fn(v, off)
			}
		}
		return
	}

	for _, off := range filter {
		fn(s.Value(off), off)
	}
}
