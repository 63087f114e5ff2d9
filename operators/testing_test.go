package operators

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

// execute runs the operator tree depth-first, failing the test on error.
func execute(t *testing.T, op Operator) *storage.Table {
	t.Helper()
	var walk func(o Operator)
	walk = func(o Operator) {
		if o == nil {
			return
		}
		walk(o.LeftInput())
		walk(o.RightInput())
		if o.Output() == nil {
			require.NoError(t, o.Execute(context.Background()))
		}
	}
	walk(op)
	return op.Output()
}

// tableRows flattens a table into row-major variant slices.
func tableRows(table *storage.Table) [][]schema.AllTypeVariant {
	var out [][]schema.AllTypeVariant
	count := table.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < count; chunkID++ {
		chunk := table.GetChunk(chunkID)
		size := chunk.Size()
		for off := schema.ChunkOffset(0); off < size; off++ {
			row := make([]schema.AllTypeVariant, table.ColumnCount())
			for c := range row {
				row[c] = chunk.GetSegment(schema.ColumnID(c)).Value(off)
			}
			out = append(out, row)
		}
	}
	return out
}

// rowStrings renders rows for order-insensitive comparison.
func rowStrings(table *storage.Table) []string {
	var out []string
	for _, row := range tableRows(table) {
		s := ""
		for _, v := range row {
			s += v.String() + "|"
		}
		out = append(out, s)
	}
	return out
}

func intFloatTable(chunkSize schema.ChunkOffset) *storage.Table {
	return storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "col0", Type: schema.Int32Type},
		{Name: "col1", Type: schema.FloatType},
	}, [][]any{
		{12345, float32(458.7)},
		{123, float32(456.7)},
		{1234, float32(457.7)},
	}, chunkSize)
}

// encodings every scan test runs against
var testEncodings = []schema.EncodingType{
	schema.Unencoded,
	schema.Dictionary,
	schema.RunLength,
	schema.FrameOfReference,
}

func encodedCopy(t *testing.T, src *storage.Table, encoding schema.EncodingType) *storage.Table {
	t.Helper()
	rows := make([][]any, 0)
	for _, row := range tableRows(src) {
		cells := make([]any, len(row))
		for i, v := range row {
			if v.IsNull() {
				cells[i] = nil
			} else {
				cells[i] = v
			}
		}
		rows = append(rows, cells)
	}
	out := storage.TableFromRows(src.ColumnDefinitions(), rows, src.TargetChunkSize())
	if encoding != schema.Unencoded {
		storage.EncodeTableChunks(out, encoding, schema.FixedSize2B)
	}
	return out
}
