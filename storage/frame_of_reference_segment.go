package storage

import (
	"github.com/dot5enko/column-query-engine/bits"
	"github.com/dot5enko/column-query-engine/schema"
)

const forBlockSize = 2048

// FrameOfReferenceSegment stores integral values as per-block minima plus
// compressed non-negative offsets. Only the integer column types qualify.
type FrameOfReferenceSegment[T int32 | int64] struct {
	blockMinima []T
	offsets     CompressedVector
	nulls       bits.Mask
	size        schema.ChunkOffset
}

func EncodeFrameOfReferenceSegment[T int32 | int64](src *ValueSegment[T], vectorType schema.CompressedVectorType) *FrameOfReferenceSegment[T] {
	values := src.Values()

	out := &FrameOfReferenceSegment[T]{
		size: schema.ChunkOffset(len(values)),
	}
	if src.IsNullable() {
		out.nulls = bits.NewMask(len(values))
	}

	offsets := make([]uint32, len(values))
	var maxOffset uint32

	for start := 0; start < len(values); start += forBlockSize {
		end := min(start+forBlockSize, len(values))

		// block minimum over non-null rows; an all-null block keeps zero
		var blockMin T
		first := true
		for i := start; i < end; i++ {
			if src.IsNullAt(schema.ChunkOffset(i)) {
				continue
			}
			if first || values[i] < blockMin {
				blockMin = values[i]
				first = false
			}
		}

		out.blockMinima = append(out.blockMinima, blockMin)

		for i := start; i < end; i++ {
			if src.IsNullAt(schema.ChunkOffset(i)) {
				out.nulls.Set(i)
				continue
			}
			delta := uint64(values[i] - blockMin)
			if delta > 0xffffffff {
				panic("block value range exceeds 32 bit offsets")
			}
			offset := uint32(delta)
			offsets[i] = offset
			if offset > maxOffset {
				maxOffset = offset
			}
		}
	}

	out.offsets = CompressUint32(offsets, maxOffset, vectorType)
	return out
}

func (s *FrameOfReferenceSegment[T]) Size() schema.ChunkOffset {
	return s.size
}

func (s *FrameOfReferenceSegment[T]) DataType() schema.DataType {
	return schema.DataTypeOf[T]()
}

func (s *FrameOfReferenceSegment[T]) EncodingKind() schema.EncodingType {
	return schema.FrameOfReference
}

func (s *FrameOfReferenceSegment[T]) MemoryUsage() int {
	return len(s.blockMinima)*8 + s.offsets.MemoryUsage() + len(s.nulls)*8
}

func (s *FrameOfReferenceSegment[T]) IsNullAt(off schema.ChunkOffset) bool {
	return s.nulls != nil && s.nulls.Get(int(off))
}

func (s *FrameOfReferenceSegment[T]) Value(off schema.ChunkOffset) schema.AllTypeVariant {
	if s.IsNullAt(off) {
		return schema.NullValue()
	}
	block := int(off) / forBlockSize
	return schema.Variant(s.blockMinima[block] + T(s.offsets.Get(int(off))))
}

func (s *FrameOfReferenceSegment[T]) ForEachValue(filter []schema.ChunkOffset, fn func(v schema.AllTypeVariant, off schema.ChunkOffset)) {
	if filter == nil {
		for i := schema.ChunkOffset(0); i < s.size; i++ {
			fn(s.Value(i), i)
		}
		return
	}

	for _, off := range filter {
		fn(s.Value(off), off)
	}
}
