package storage

import "github.com/dot5enko/column-query-engine/schema"

// Segment is one column's values for one chunk, in a particular encoding.
// ForEachValue is the uniform iteration surface: a nil filter yields all
// positions in chunk-offset order, a non-nil filter yields exactly the
// filtered offsets in filter order.
type Segment interface {
	Size() schema.ChunkOffset
	DataType() schema.DataType
	EncodingKind() schema.EncodingType
	MemoryUsage() int

	// Value gives point access, used by reference resolution and sorted
	// range searches.
	Value(off schema.ChunkOffset) schema.AllTypeVariant

	ForEachValue(filter []schema.ChunkOffset, fn func(v schema.AllTypeVariant, off schema.ChunkOffset))
}

// BaseDictionarySegment is the encoding-independent surface of the two
// dictionary encodings. Scans specialized on dictionaries translate the
// search value to value-id space once and then only touch the attribute
// vector.
type BaseDictionarySegment interface {
	Segment

	UniqueValuesCount() int

	// LowerBound is the first value id whose value is >= v,
	// UpperBound the first one whose value is > v. Both return
	// UniqueValuesCount() when no such value exists.
	LowerBound(v schema.AllTypeVariant) schema.ValueID
	UpperBound(v schema.AllTypeVariant) schema.ValueID

	AttributeVector() CompressedVector

	// NullSentinel is the attribute vector entry marking NULL rows.
	NullSentinel() schema.ValueID

	ForEachValueID(filter []schema.ChunkOffset, fn func(id schema.ValueID, off schema.ChunkOffset))
}
