package ops

import (
	"golang.org/x/exp/constraints"

	"github.com/dot5enko/column-query-engine/schema"
)

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// FillMatchesEqual writes the offsets of all elements equal to cmp into
// out and returns how many were written. out must hold len(arr) entries.
func FillMatchesEqual[T constraints.Ordered](arr []T, cmp T, out []schema.ChunkOffset) int {
	n := len(arr)
	filled := 0
	i := 0

	for ; i+7 < n; i += 8 {
		a0 := arr[i+0]
		a1 := arr[i+1]
		a2 := arr[i+2]
		a3 := arr[i+3]
		a4 := arr[i+4]
		a5 := arr[i+5]
		a6 := arr[i+6]
		a7 := arr[i+7]

		im0 := b2i(a0 == cmp)
		im1 := b2i(a1 == cmp)
		im2 := b2i(a2 == cmp)
		im3 := b2i(a3 == cmp)
		im4 := b2i(a4 == cmp)
		im5 := b2i(a5 == cmp)
		im6 := b2i(a6 == cmp)
		im7 := b2i(a7 == cmp)

		out[filled] = schema.ChunkOffset(i + 0)
		filled += im0
		out[filled] = schema.ChunkOffset(i + 1)
		filled += im1
		out[filled] = schema.ChunkOffset(i + 2)
		filled += im2
		out[filled] = schema.ChunkOffset(i + 3)
		filled += im3
		out[filled] = schema.ChunkOffset(i + 4)
		filled += im4
		out[filled] = schema.ChunkOffset(i + 5)
		filled += im5
		out[filled] = schema.ChunkOffset(i + 6)
		filled += im6
		out[filled] = schema.ChunkOffset(i + 7)
		filled += im7
	}

	// Tail element
	for ; i < n; i++ {
		if arr[i] == cmp {
			out[filled] = schema.ChunkOffset(i)
			filled++
		}
	}
	return filled
}

func FillMatchesNotEqual[T constraints.Ordered](arr []T, cmp T, out []schema.ChunkOffset) int {
	filled := 0
	for i, a := range arr {
		if a != cmp {
			out[filled] = schema.ChunkOffset(i)
			filled++
		}
	}
	return filled
}

func FillMatchesLess[T constraints.Ordered](arr []T, cmp T, out []schema.ChunkOffset) int {
	n := len(arr)
	filled := 0
	i := 0

	for ; i+7 < n; i += 8 {
		a0, a1 := arr[i], arr[i+1]
		a2, a3 := arr[i+2], arr[i+3]
		a4, a5 := arr[i+4], arr[i+5]
		a6, a7 := arr[i+6], arr[i+7]

		if a0 < cmp {
			out[filled] = schema.ChunkOffset(i)
			filled++
		}
		if a1 < cmp {
			out[filled] = schema.ChunkOffset(i + 1)
			filled++
		}
		if a2 < cmp {
			out[filled] = schema.ChunkOffset(i + 2)
			filled++
		}
		if a3 < cmp {
			out[filled] = schema.ChunkOffset(i + 3)
			filled++
		}
		if a4 < cmp {
			out[filled] = schema.ChunkOffset(i + 4)
			filled++
		}
		if a5 < cmp {
			out[filled] = schema.ChunkOffset(i + 5)
			filled++
		}
		if a6 < cmp {
			out[filled] = schema.ChunkOffset(i + 6)
			filled++
		}
		if a7 < cmp {
			out[filled] = schema.ChunkOffset(i + 7)
			filled++
		}
	}

	// Tail element
	for ; i < n; i++ {
		if arr[i] < cmp {
			out[filled] = schema.ChunkOffset(i)
			filled++
		}
	}
	return filled
}

func FillMatchesLessEqual[T constraints.Ordered](arr []T, cmp T, out []schema.ChunkOffset) int {
	filled := 0
	for i, a := range arr {
		if a <= cmp {
			out[filled] = schema.ChunkOffset(i)
			filled++
		}
	}
	return filled
}

func FillMatchesGreater[T constraints.Ordered](arr []T, cmp T, out []schema.ChunkOffset) int {
	n := len(arr)
	filled := 0
	i := 0

	for ; i+7 < n; i += 8 {
		a0, a1 := arr[i], arr[i+1]
		a2, a3 := arr[i+2], arr[i+3]
		a4, a5 := arr[i+4], arr[i+5]
		a6, a7 := arr[i+6], arr[i+7]

		if a0 > cmp {
			out[filled] = schema.ChunkOffset(i)
			filled++
		}
		if a1 > cmp {
			out[filled] = schema.ChunkOffset(i + 1)
			filled++
		}
		if a2 > cmp {
			out[filled] = schema.ChunkOffset(i + 2)
			filled++
		}
		if a3 > cmp {
			out[filled] = schema.ChunkOffset(i + 3)
			filled++
		}
		if a4 > cmp {
			out[filled] = schema.ChunkOffset(i + 4)
			filled++
		}
		if a5 > cmp {
			out[filled] = schema.ChunkOffset(i + 5)
			filled++
		}
		if a6 > cmp {
			out[filled] = schema.ChunkOffset(i + 6)
			filled++
		}
		if a7 > cmp {
			out[filled] = schema.ChunkOffset(i + 7)
			filled++
		}
	}

	// Tail element
	for ; i < n; i++ {
		if arr[i] > cmp {
			out[filled] = schema.ChunkOffset(i)
			filled++
		}
	}
	return filled
}

func FillMatchesGreaterEqual[T constraints.Ordered](arr []T, cmp T, out []schema.ChunkOffset) int {
	filled := 0
	for i, a := range arr {
		if a >= cmp {
			out[filled] = schema.ChunkOffset(i)
			filled++
		}
	}
	return filled
}

func FillMatchesBetween[T constraints.Ordered](arr []T, from, to T, out []schema.ChunkOffset) int {
	filled := 0
	for i, a := range arr {
		if a >= from && a <= to {
			out[filled] = schema.ChunkOffset(i)
			filled++
		}
	}
	return filled
}
