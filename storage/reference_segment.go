package storage

import "github.com/dot5enko/column-query-engine/schema"

// ReferenceSegment projects one column of a source table through a shared
// position list. The source table must be a data table: references never
// chain, resolution is always one level.
type ReferenceSegment struct {
	table     *Table
	column    schema.ColumnID
	positions *PosList
}

func NewReferenceSegment(table *Table, column schema.ColumnID, positions *PosList) *ReferenceSegment {
	if table.Type() != DataTable {
		panic("reference segments must point at a data table")
	}
	return &ReferenceSegment{table: table, column: column, positions: positions}
}

func (s *ReferenceSegment) ReferencedTable() *Table {
	return s.table
}

func (s *ReferenceSegment) ReferencedColumn() schema.ColumnID {
	return s.column
}

func (s *ReferenceSegment) PosList() *PosList {
	return s.positions
}

func (s *ReferenceSegment) Size() schema.ChunkOffset {
	return schema.ChunkOffset(s.positions.Size())
}

func (s *ReferenceSegment) DataType() schema.DataType {
	return s.table.ColumnDefinitions()[s.column].Type
}

func (s *ReferenceSegment) EncodingKind() schema.EncodingType {
	return schema.Unencoded
}

func (s *ReferenceSegment) MemoryUsage() int {
	return s.positions.Size() * 8
}

func (s *ReferenceSegment) Value(off schema.ChunkOffset) schema.AllTypeVariant {
	row := s.positions.Get(int(off))
	if row.IsNull() {
		return schema.NullValue()
	}
	return s.table.GetChunk(row.Chunk).GetSegment(s.column).Value(row.Offset)
}

func (s *ReferenceSegment) ForEachValue(filter []schema.ChunkOffset, fn func(v schema.AllTypeVariant, off schema.ChunkOffset)) {
	resolve := func(off schema.ChunkOffset) {
		row := s.positions.Get(int(off))
		if row.IsNull() {
			fn(schema.NullValue(), off)
			return
		}
		fn(s.table.GetChunk(row.Chunk).GetSegment(s.column).Value(row.Offset), off)
	}

	if filter == nil {
		n := schema.ChunkOffset(s.positions.Size())
		for off := schema.ChunkOffset(0); off < n; off++ {
			resolve(off)
		}
		return
	}

	for _, off := range filter {
		resolve(off)
	}
}
