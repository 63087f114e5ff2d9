package storage

import (
	"sort"

	"github.com/dot5enko/column-query-engine/schema"
)

// DictionarySegment stores a sorted dictionary of unique values and a
// compressed attribute vector of value ids. NULL rows carry the sentinel
// id one past the last dictionary entry.
type DictionarySegment[T schema.ColumnType] struct {
	dictionary      []T
	attributeVector CompressedVector
}

// EncodeDictionarySegment builds a dictionary segment from an unencoded
// one. vectorType selects the attribute vector representation; fixed-size
// requests are widened when the dictionary is too large for them.
func EncodeDictionarySegment[T schema.ColumnType](src *ValueSegment[T], vectorType schema.CompressedVectorType) *DictionarySegment[T] {
	values := src.Values()

	distinct := make(map[T]struct{}, len(values))
	for i, v := range values {
		if src.IsNullAt(schema.ChunkOffset(i)) {
			continue
		}
		distinct[v] = struct{}{}
	}

	dictionary := make([]T, 0, len(distinct))
	for v := range distinct {
		dictionary = append(dictionary, v)
	}
	sort.Slice(dictionary, func(i, j int) bool { return dictionary[i] < dictionary[j] })

	idOf := make(map[T]uint32, len(dictionary))
	for i, v := range dictionary {
		idOf[v] = uint32(i)
	}

	nullSentinel := uint32(len(dictionary))

	ids := make([]uint32, len(values))
	for i, v := range values {
		if src.IsNullAt(schema.ChunkOffset(i)) {
			ids[i] = nullSentinel
		} else {
			ids[i] = idOf[v]
		}
	}

	return &DictionarySegment[T]{
		dictionary:      dictionary,
		attributeVector: CompressUint32(ids, nullSentinel, vectorType),
	}
}

func (s *DictionarySegment[T]) Size() schema.ChunkOffset {
	return schema.ChunkOffset(s.attributeVector.Len())
}

func (s *DictionarySegment[T]) DataType() schema.DataType {
	return schema.DataTypeOf[T]()
}

func (s *DictionarySegment[T]) EncodingKind() schema.EncodingType {
	return schema.Dictionary
}

func (s *DictionarySegment[T]) MemoryUsage() int {
	return len(s.dictionary)*8 + s.attributeVector.MemoryUsage()
}

func (s *DictionarySegment[T]) Dictionary() []T {
	return s.dictionary
}

func (s *DictionarySegment[T]) UniqueValuesCount() int {
	return len(s.dictionary)
}

func (s *DictionarySegment[T]) NullSentinel() schema.ValueID {
	return schema.ValueID(len(s.dictionary))
}

func (s *DictionarySegment[T]) AttributeVector() CompressedVector {
	return s.attributeVector
}

func (s *DictionarySegment[T]) ValueOfID(id schema.ValueID) T {
	return s.dictionary[id]
}

func (s *DictionarySegment[T]) LowerBound(v schema.AllTypeVariant) schema.ValueID {
	needle := schema.VariantValue[T](v)
	idx := sort.Search(len(s.dictionary), func(i int) bool {
		return s.dictionary[i] >= needle
	})
	return schema.ValueID(idx)
}

func (s *DictionarySegment[T]) UpperBound(v schema.AllTypeVariant) schema.ValueID {
	needle := schema.VariantValue[T](v)
	idx := sort.Search(len(s.dictionary), func(i int) bool {
		return s.dictionary[i] > needle
	})
	return schema.ValueID(idx)
}

func (s *DictionarySegment[T]) Value(off schema.ChunkOffset) schema.AllTypeVariant {
	id := s.attributeVector.Get(int(off))
	if schema.ValueID(id) == s.NullSentinel() {
		return schema.NullValue()
	}
	return schema.Variant(s.dictionary[id])
}

func (s *DictionarySegment[T]) ForEachValue(filter []schema.ChunkOffset, fn func(v schema.AllTypeVariant, off schema.ChunkOffset)) {
	s.ForEachValueID(filter, func(id schema.ValueID, off schema.ChunkOffset) {
		if id == s.NullSentinel() {
			fn(schema.NullValue(), off)
		} else {
			fn(schema.Variant(s.dictionary[id]), off)
		}
	})
}

func (s *DictionarySegment[T]) ForEachValueID(filter []schema.ChunkOffset, fn func(id schema.ValueID, off schema.ChunkOffset)) {
	if filter == nil {
		n := s.attributeVector.Len()
		for i := 0; i < n; i++ {
			fn(schema.ValueID(s.attributeVector.Get(i)), schema.ChunkOffset(i))
		}
		return
	}

	for _, off := range filter {
		fn(schema.ValueID(s.attributeVector.Get(int(off))), off)
	}
}
