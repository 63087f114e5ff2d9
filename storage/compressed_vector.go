package storage

import (
	"github.com/dot5enko/column-query-engine/bits"
	"github.com/dot5enko/column-query-engine/schema"
)

// CompressedVector stores the attribute vector of a dictionary segment or
// the offset vector of a frame-of-reference segment.
type CompressedVector interface {
	Get(i int) uint32
	Len() int
	Kind() schema.CompressedVectorType
	MemoryUsage() int
}

type FixedSize1ByteVector []uint8

func (v FixedSize1ByteVector) Get(i int) uint32 { return uint32(v[i]) }
func (v FixedSize1ByteVector) Len() int         { return len(v) }
func (v FixedSize1ByteVector) Kind() schema.CompressedVectorType {
	return schema.FixedSize1B
}
func (v FixedSize1ByteVector) MemoryUsage() int { return len(v) }

type FixedSize2ByteVector []uint16

func (v FixedSize2ByteVector) Get(i int) uint32 { return uint32(v[i]) }
func (v FixedSize2ByteVector) Len() int         { return len(v) }
func (v FixedSize2ByteVector) Kind() schema.CompressedVectorType {
	return schema.FixedSize2B
}
func (v FixedSize2ByteVector) MemoryUsage() int { return len(v) * 2 }

type FixedSize4ByteVector []uint32

func (v FixedSize4ByteVector) Get(i int) uint32 { return v[i] }
func (v FixedSize4ByteVector) Len() int         { return len(v) }
func (v FixedSize4ByteVector) Kind() schema.CompressedVectorType {
	return schema.FixedSize4B
}
func (v FixedSize4ByteVector) MemoryUsage() int { return len(v) * 4 }

// BitPackedVector packs values into 128-value blocks at per-block bit
// widths, the in-memory equivalent of the SimdBp128 layout.
type BitPackedVector struct {
	packed bits.PackedVector
}

func (v *BitPackedVector) Get(i int) uint32 { return v.packed.Get(i) }
func (v *BitPackedVector) Len() int         { return v.packed.Len() }
func (v *BitPackedVector) Kind() schema.CompressedVectorType {
	return schema.SimdBp128
}
func (v *BitPackedVector) MemoryUsage() int { return v.packed.MemoryUsage() }

// CompressUint32 materializes values as the requested vector type,
// widening a fixed-size request when maxValue does not fit it.
func CompressUint32(values []uint32, maxValue uint32, kind schema.CompressedVectorType) CompressedVector {
	if kind == schema.SimdBp128 {
		return &BitPackedVector{packed: bits.PackUint32(values)}
	}

	width := kind
	if needed := FittingFixedSizeType(maxValue); needed > width {
		width = needed
	}

	switch width {
	case schema.FixedSize1B:
		out := make(FixedSize1ByteVector, len(values))
		for i, v := range values {
			out[i] = uint8(v)
		}
		return out
	case schema.FixedSize2B:
		out := make(FixedSize2ByteVector, len(values))
		for i, v := range values {
			out[i] = uint16(v)
		}
		return out
	case schema.FixedSize4B:
		return FixedSize4ByteVector(values)
	default:
		panic("unknown compressed vector type " + kind.String())
	}
}

// FittingFixedSizeType returns the narrowest fixed-size vector type for
// the given maximum value.
func FittingFixedSizeType(maxValue uint32) schema.CompressedVectorType {
	switch {
	case maxValue <= 0xff:
		return schema.FixedSize1B
	case maxValue <= 0xffff:
		return schema.FixedSize2B
	default:
		return schema.FixedSize4B
	}
}
