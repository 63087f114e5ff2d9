package storage

import "github.com/dot5enko/column-query-engine/schema"

// EncodeChunk re-encodes every segment of a finalized chunk into the
// target encoding and returns the replacement chunk. Combinations the
// encoding cannot express (frame-of-reference over floats or strings,
// fixed-string dictionaries over numerics) keep the unencoded form.
func EncodeChunk(chunk *Chunk, encoding schema.EncodingType, vectorType schema.CompressedVectorType) *Chunk {
	segments := make([]Segment, chunk.ColumnCount())
	for i := range segments {
		segments[i] = EncodeSegment(chunk.GetSegment(schema.ColumnID(i)), encoding, vectorType)
	}

	out := NewChunk(segments)
	out.SetOrderedBy(chunk.OrderedBy())
	out.SetValueClusteredBy(chunk.ValueClusteredBy())
	out.Finalize()
	return out
}

func EncodeSegment(seg Segment, encoding schema.EncodingType, vectorType schema.CompressedVectorType) Segment {
	switch seg.DataType() {
	case schema.Int32Type:
		return encodeTyped[int32](seg, encoding, vectorType)
	case schema.Int64Type:
		return encodeTyped[int64](seg, encoding, vectorType)
	case schema.FloatType:
		return encodeTyped[float32](seg, encoding, vectorType)
	case schema.DoubleType:
		return encodeTyped[float64](seg, encoding, vectorType)
	case schema.StringType:
		return encodeString(seg, encoding, vectorType)
	default:
		panic("cannot encode segment of type " + seg.DataType().String())
	}
}

// materialize flattens any segment into an unencoded one.
func materialize[T schema.ColumnType](seg Segment) *ValueSegment[T] {
	if vs, ok := seg.(*ValueSegment[T]); ok {
		return vs
	}

	out := NewValueSegment[T](true)
	seg.ForEachValue(nil, func(v schema.AllTypeVariant, _ schema.ChunkOffset) {
		out.Append(v)
	})
	return out
}

func encodeTyped[T schema.NumericColumnType](seg Segment, encoding schema.EncodingType, vectorType schema.CompressedVectorType) Segment {
	src := materialize[T](seg)

	switch encoding {
	case schema.Unencoded:
		return src
	case schema.Dictionary:
		return EncodeDictionarySegment(src, vectorType)
	case schema.RunLength:
		return EncodeRunLengthSegment(src)
	case schema.FrameOfReference:
		switch typed := any(src).(type) {
		case *ValueSegment[int32]:
			return EncodeFrameOfReferenceSegment(typed, vectorType)
		case *ValueSegment[int64]:
			return EncodeFrameOfReferenceSegment(typed, vectorType)
		default:
			return src
		}
	case schema.FixedStringDictionary:
		return src
	default:
		panic("unknown encoding " + encoding.String())
	}
}

func encodeString(seg Segment, encoding schema.EncodingType, vectorType schema.CompressedVectorType) Segment {
	src := materialize[string](seg)

	switch encoding {
	case schema.Unencoded, schema.FrameOfReference:
		return src
	case schema.Dictionary:
		return EncodeDictionarySegment(src, vectorType)
	case schema.FixedStringDictionary:
		return EncodeFixedStringDictionarySegment(src, vectorType)
	case schema.RunLength:
		return EncodeRunLengthSegment(src)
	default:
		panic("unknown encoding " + encoding.String())
	}
}

// EncodeTableChunks re-encodes all chunks of a data table in place.
func EncodeTableChunks(table *Table, encoding schema.EncodingType, vectorType schema.CompressedVectorType) {
	if table.Type() != DataTable {
		panic("only data tables can be re-encoded")
	}

	table.chunksLock.Lock()
	defer table.chunksLock.Unlock()

	for i, chunk := range table.chunks {
		table.chunks[i] = EncodeChunk(chunk, encoding, vectorType)
	}
}
