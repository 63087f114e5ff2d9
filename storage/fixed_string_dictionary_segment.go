package storage

import (
	"sort"
	"strings"

	"github.com/dot5enko/column-query-engine/schema"
)

// FixedStringDictionarySegment keeps its sorted dictionary in one byte
// slab of fixed-width entries, avoiding per-string headers. Entries
// shorter than the width are zero padded.
type FixedStringDictionarySegment struct {
	slab            []byte
	width           int
	entries         int
	attributeVector CompressedVector
}

func EncodeFixedStringDictionarySegment(src *ValueSegment[string], vectorType schema.CompressedVectorType) *FixedStringDictionarySegment {
	values := src.Values()

	distinct := make(map[string]struct{}, len(values))
	width := 0
	for i, v := range values {
		if src.IsNullAt(schema.ChunkOffset(i)) {
			continue
		}
		distinct[v] = struct{}{}
		if len(v) > width {
			width = len(v)
		}
	}

	dictionary := make([]string, 0, len(distinct))
	for v := range distinct {
		dictionary = append(dictionary, v)
	}
	sort.Strings(dictionary)

	slab := make([]byte, len(dictionary)*width)
	idOf := make(map[string]uint32, len(dictionary))
	for i, v := range dictionary {
		copy(slab[i*width:], v)
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

	return &FixedStringDictionarySegment{
		slab:            slab,
		width:           width,
		entries:         len(dictionary),
		attributeVector: CompressUint32(ids, nullSentinel, vectorType),
	}
}

func (s *FixedStringDictionarySegment) entry(id int) string {
	raw := s.slab[id*s.width : (id+1)*s.width]
	return strings.TrimRight(string(raw), "\x00")
}

func (s *FixedStringDictionarySegment) Size() schema.ChunkOffset {
	return schema.ChunkOffset(s.attributeVector.Len())
}

func (s *FixedStringDictionarySegment) DataType() schema.DataType {
	return schema.StringType
}

func (s *FixedStringDictionarySegment) EncodingKind() schema.EncodingType {
	return schema.FixedStringDictionary
}

func (s *FixedStringDictionarySegment) MemoryUsage() int {
	return len(s.slab) + s.attributeVector.MemoryUsage()
}

func (s *FixedStringDictionarySegment) UniqueValuesCount() int {
	return s.entries
}

func (s *FixedStringDictionarySegment) NullSentinel() schema.ValueID {
	return schema.ValueID(s.entries)
}

func (s *FixedStringDictionarySegment) AttributeVector() CompressedVector {
	return s.attributeVector
}

func (s *FixedStringDictionarySegment) LowerBound(v schema.AllTypeVariant) schema.ValueID {
	needle := v.AsString()
	idx := sort.Search(s.entries, func(i int) bool {
		return s.entry(i) >= needle
	})
	return schema.ValueID(idx)
}

func (s *FixedStringDictionarySegment) UpperBound(v schema.AllTypeVariant) schema.ValueID {
	needle := v.AsString()
	idx := sort.Search(s.entries, func(i int) bool {
		return s.entry(i) > needle
	})
	return schema.ValueID(idx)
}

func (s *FixedStringDictionarySegment) Value(off schema.ChunkOffset) schema.AllTypeVariant {
	id := s.attributeVector.Get(int(off))
	if schema.ValueID(id) == s.NullSentinel() {
		return schema.NullValue()
	}
	return schema.Variant(s.entry(int(id)))
}

func (s *FixedStringDictionarySegment) ForEachValue(filter []schema.ChunkOffset, fn func(v schema.AllTypeVariant, off schema.ChunkOffset)) {
	s.ForEachValueID(filter, func(id schema.ValueID, off schema.ChunkOffset) {
		if id == s.NullSentinel() {
			fn(schema.NullValue(), off)
		} else {
			fn(schema.Variant(s.entry(int(id))), off)
		}
	})
}

func (s *FixedStringDictionarySegment) ForEachValueID(filter []schema.ChunkOffset, fn func(id schema.ValueID, off schema.ChunkOffset)) {
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
