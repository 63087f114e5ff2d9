package ops

import (
	"math/rand"
	"testing"

	"github.com/dot5enko/column-query-engine/schema"
)

func TestFillMatchesEqual(t *testing.T) {

	input := []int64{5, 1, 5, 2, 5, 9, 5, 0, 5}
	out := make([]schema.ChunkOffset, len(input))

	filled := FillMatchesEqual(input, int64(5), out)

	expected := []schema.ChunkOffset{0, 2, 4, 6, 8}
	if filled != len(expected) {
		t.Fatalf("expected %d matches, got %d", len(expected), filled)
	}
	for i, want := range expected {
		if out[i] != want {
			t.Errorf("match %d: got %d, want %d", i, out[i], want)
		}
	}
}

func TestFillMatchesRanges(t *testing.T) {

	input := []float64{1.5, -2, 7, 3.25, 10, 0}
	out := make([]schema.ChunkOffset, len(input))

	if filled := FillMatchesLess(input, 3.25, out); filled != 3 {
		t.Errorf("less: expected 3, got %d", filled)
	}
	if filled := FillMatchesGreaterEqual(input, 3.25, out); filled != 3 {
		t.Errorf("greater-equal: expected 3, got %d", filled)
	}
	if filled := FillMatchesBetween(input, 0.0, 7.0, out); filled != 4 {
		t.Errorf("between: expected 4, got %d", filled)
	}
}

func TestFillMatchesStrings(t *testing.T) {

	input := []string{"b", "a", "c", "b"}
	out := make([]schema.ChunkOffset, len(input))

	if filled := FillMatchesEqual(input, "b", out); filled != 2 {
		t.Errorf("expected 2 matches of 'b', got %d", filled)
	}
	if filled := FillMatchesGreater(input, "a", out); filled != 3 {
		t.Errorf("expected 3 values > 'a', got %d", filled)
	}
}

func TestGetMaxMin(t *testing.T) {

	input := []int32{4, -7, 22, 0}
	bounds := GetMaxMin(input)

	if bounds.Min != -7 || bounds.Max != 22 {
		t.Errorf("got [%d, %d], want [-7, 22]", bounds.Min, bounds.Max)
	}

	other := Bounds[int32]{Min: -100, Max: 5}
	bounds.Morph(other)
	if bounds.Min != -100 || bounds.Max != 22 {
		t.Errorf("morph got [%d, %d], want [-100, 22]", bounds.Min, bounds.Max)
	}
}

func BenchmarkFillMatchesEqualRand(b *testing.B) {

	size := 40000
	input := make([]uint64, size)
	for i := 0; i < size; i++ {
		input[i] = uint64(rand.Int63n(50000))
	}
	out := make([]schema.ChunkOffset, size)

	for b.Loop() {
		FillMatchesEqual(input, 123, out)
	}
}
