package storage

import (
	"fmt"

	"github.com/dot5enko/column-query-engine/schema"
)

// TableFromRows materializes a data table from row-major literals,
// splitting into chunks of chunkSize. A nil cell becomes NULL. Mainly a
// fixture helper for tests and the demo.
func TableFromRows(columns []TableColumnDefinition, rows [][]any, chunkSize schema.ChunkOffset) *Table {
	table := NewTable(columns, DataTable, chunkSize)

	for start := 0; start < len(rows); start += int(chunkSize) {
		end := min(start+int(chunkSize), len(rows))
		appendRowsAsChunk(table, rows[start:end])
	}

	return table
}

func appendRowsAsChunk(table *Table, rows [][]any) {
	columns := table.ColumnDefinitions()

	segments := make([]Segment, len(columns))
	for i, col := range columns {
		segments[i] = newEmptySegment(col)
	}

	for _, row := range rows {
		if len(row) != len(columns) {
			panic(fmt.Sprintf("row has %d cells, table has %d columns", len(row), len(columns)))
		}
		for i, cell := range row {
			appendCell(segments[i], columns[i], cell)
		}
	}

	table.AppendChunk(segments).Finalize()
}

func newEmptySegment(col TableColumnDefinition) Segment {
	return NewValueSegmentForType(col.Type, col.Nullable)
}

// NewValueSegmentForType dispatches the generic constructor on a runtime
// data type tag.
func NewValueSegmentForType(dt schema.DataType, nullable bool) Segment {
	switch dt {
	case schema.Int32Type:
		return NewValueSegment[int32](nullable)
	case schema.Int64Type:
		return NewValueSegment[int64](nullable)
	case schema.FloatType:
		return NewValueSegment[float32](nullable)
	case schema.DoubleType:
		return NewValueSegment[float64](nullable)
	case schema.StringType:
		return NewValueSegment[string](nullable)
	default:
		panic("unsupported column type " + dt.String())
	}
}

// AppendVariant appends to any unencoded segment.
func AppendVariant(seg Segment, v schema.AllTypeVariant) {
	switch s := seg.(type) {
	case *ValueSegment[int32]:
		s.Append(v)
	case *ValueSegment[int64]:
		s.Append(v)
	case *ValueSegment[float32]:
		s.Append(v)
	case *ValueSegment[float64]:
		s.Append(v)
	case *ValueSegment[string]:
		s.Append(v)
	default:
		panic(fmt.Sprintf("cannot append to %T", seg))
	}
}

func appendCell(seg Segment, col TableColumnDefinition, cell any) {
	_ = col
	AppendVariant(seg, VariantFromLiteral(cell))
}

// VariantFromLiteral converts untyped Go literals, mapping int to Int32
// the way the column fixtures expect.
func VariantFromLiteral(cell any) schema.AllTypeVariant {
	switch v := cell.(type) {
	case nil:
		return schema.NullValue()
	case int:
		return schema.Variant(int32(v))
	case int32:
		return schema.Variant(v)
	case int64:
		return schema.Variant(v)
	case float32:
		return schema.Variant(v)
	case float64:
		return schema.Variant(v)
	case string:
		return schema.Variant(v)
	case schema.AllTypeVariant:
		return v
	default:
		panic(fmt.Sprintf("unsupported literal %T", cell))
	}
}
