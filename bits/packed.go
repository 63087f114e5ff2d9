package bits

import "math/bits"

// PackedVector stores uint32 values in blocks of 128, each block packed
// at the smallest bit width that fits its largest value. Blocks start at
// word boundaries so random access never crosses into a neighbour block's
// width.
type PackedVector struct {
	words  []uint64
	starts []uint32 // word offset of each block
	widths []uint8  // bit width of each block
	size   int
}

const packedBlockSize = 128

func PackUint32(values []uint32) PackedVector {
	blocks := (len(values) + packedBlockSize - 1) / packedBlockSize

	pv := PackedVector{
		starts: make([]uint32, 0, blocks),
		widths: make([]uint8, 0, blocks),
		size:   len(values),
	}

	for start := 0; start < len(values); start += packedBlockSize {
		end := min(start+packedBlockSize, len(values))
		block := values[start:end]

		var maxVal uint32
		for _, v := range block {
			if v > maxVal {
				maxVal = v
			}
		}

		width := uint8(bits.Len32(maxVal))
		if width == 0 {
			width = 1
		}

		pv.starts = append(pv.starts, uint32(len(pv.words)))
		pv.widths = append(pv.widths, width)

		wordsNeeded := (len(block)*int(width) + 63) >> 6
		words := make([]uint64, wordsNeeded)

		bitPos := 0
		for _, v := range block {
			word := bitPos >> 6
			shift := bitPos & 63
			words[word] |= uint64(v) << shift

			// spills into the next word when shift+width > 64
			if shift+int(width) > 64 {
				words[word+1] |= uint64(v) >> (64 - shift)
			}
			bitPos += int(width)
		}

		pv.words = append(pv.words, words...)
	}

	return pv
}

func (pv *PackedVector) Len() int {
	return pv.size
}

func (pv *PackedVector) Get(i int) uint32 {
	block := i / packedBlockSize
	width := int(pv.widths[block])
	bitPos := (i % packedBlockSize) * width

	word := int(pv.starts[block]) + (bitPos >> 6)
	shift := bitPos & 63

	v := pv.words[word] >> shift
	if shift+width > 64 {
		v |= pv.words[word+1] << (64 - shift)
	}

	return uint32(v & ((1 << width) - 1))
}

func (pv *PackedVector) MemoryUsage() int {
	return len(pv.words)*8 + len(pv.starts)*4 + len(pv.widths)
}
