package lists

import "github.com/dot5enko/column-query-engine/schema"

// UnionSorted merges two RowID lists sorted by (chunk, offset) into one
// sorted list without duplicates.
func UnionSorted(a, b []schema.RowID) []schema.RowID {
	out := make([]schema.RowID, 0, len(a)+len(b))

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i].Less(b[j]):
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}

	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// IntersectSorted keeps the RowIDs present in both sorted inputs.
func IntersectSorted(a, b []schema.RowID) []schema.RowID {
	out := make([]schema.RowID, 0, min(len(a), len(b)))

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i].Less(b[j]):
			i++
		default:
			j++
		}
	}

	return out
}

// Intersect works on unsorted inputs, probing the smaller side through a
// set built from the larger one.
func Intersect(a, b []schema.RowID, cache map[schema.RowID]struct{}) []schema.RowID {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	clear(cache)
	var other []schema.RowID

	if len(a) < len(b) {
		other = b
		for _, v := range a {
			cache[v] = struct{}{}
		}
	} else {
		other = a
		for _, v := range b {
			cache[v] = struct{}{}
		}
	}

	out := make([]schema.RowID, 0, min(len(a), len(b)))
	for _, v := range other {
		if _, ok := cache[v]; ok {
			out = append(out, v)
		}
	}

	return out
}
