package storage

import (
	"fmt"

	"github.com/dot5enko/column-query-engine/bits"
	"github.com/dot5enko/column-query-engine/schema"
)

// ValueSegment holds unencoded values plus an optional null mask.
type ValueSegment[T schema.ColumnType] struct {
	values []T
	nulls  bits.Mask // nil when the column is not nullable
}

func NewValueSegment[T schema.ColumnType](nullable bool) *ValueSegment[T] {
	s := &ValueSegment[T]{}
	if nullable {
		s.nulls = bits.Mask{}
	}
	return s
}

func ValueSegmentFromData[T schema.ColumnType](values []T, nulls bits.Mask) *ValueSegment[T] {
	return &ValueSegment[T]{values: values, nulls: nulls}
}

// ValueSegmentFromSlice builds a non-nullable segment around the slice.
func ValueSegmentFromSlice[T schema.ColumnType](values []T) *ValueSegment[T] {
	return &ValueSegment[T]{values: values}
}

func (s *ValueSegment[T]) Append(v schema.AllTypeVariant) {
	if v.IsNull() {
		if s.nulls == nil {
			panic("cannot append NULL to a non-nullable segment")
		}
		var zero T
		s.values = append(s.values, zero)
		s.nulls = growMask(s.nulls, len(s.values))
		s.nulls.Set(len(s.values) - 1)
		return
	}

	s.values = append(s.values, schema.VariantValue[T](v))
	if s.nulls != nil {
		s.nulls = growMask(s.nulls, len(s.values))
	}
}

func (s *ValueSegment[T]) AppendTyped(v T) {
	s.values = append(s.values, v)
	if s.nulls != nil {
		s.nulls = growMask(s.nulls, len(s.values))
	}
}

func (s *ValueSegment[T]) Size() schema.ChunkOffset {
	return schema.ChunkOffset(len(s.values))
}

func (s *ValueSegment[T]) DataType() schema.DataType {
	return schema.DataTypeOf[T]()
}

func (s *ValueSegment[T]) EncodingKind() schema.EncodingType {
	return schema.Unencoded
}

func (s *ValueSegment[T]) MemoryUsage() int {
	var zero T
	elem := 8
	if _, isStr := any(zero).(string); isStr {
		elem = 0
		for _, v := range s.values {
			elem += len(any(v).(string)) + 16
		}
		return elem + len(s.nulls)*8
	}
	return len(s.values)*elem + len(s.nulls)*8
}

func (s *ValueSegment[T]) IsNullable() bool {
	return s.nulls != nil
}

func (s *ValueSegment[T]) IsNullAt(off schema.ChunkOffset) bool {
	return s.nulls != nil && s.nulls.Get(int(off))
}

func (s *ValueSegment[T]) Value(off schema.ChunkOffset) schema.AllTypeVariant {
	if s.IsNullAt(off) {
		return schema.NullValue()
	}
	return schema.Variant(s.values[off])
}

// Values exposes the raw slice for the vectorized comparison kernels.
// Callers must treat it as read-only on finalized chunks.
func (s *ValueSegment[T]) Values() []T {
	return s.values
}

func (s *ValueSegment[T]) NullMask() bits.Mask {
	return s.nulls
}

func (s *ValueSegment[T]) ForEachValue(filter []schema.ChunkOffset, fn func(v schema.AllTypeVariant, off schema.ChunkOffset)) {
	if filter == nil {
		for i, v := range s.values {
			off := schema.ChunkOffset(i)
			if s.IsNullAt(off) {
				fn(schema.NullValue(), off)
			} else {
				fn(schema.Variant(v), off)
			}
		}
		return
	}

	for _, off := range filter {
		if int(off) >= len(s.values) {
			panic(fmt.Sprintf("position filter offset %d out of range for segment of size %d", off, len(s.values)))
		}
		if s.IsNullAt(off) {
			fn(schema.NullValue(), off)
		} else {
			fn(schema.Variant(s.values[off]), off)
		}
	}
}

func growMask(m bits.Mask, size int) bits.Mask {
	needed := (size + 63) >> 6
	for len(m) < needed {
		m = append(m, 0)
	}
	return m
}
