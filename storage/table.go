package storage

import (
	"fmt"
	"sync"

	"github.com/dot5enko/column-query-engine/schema"
)

type TableType uint8

const (
	// DataTable chunks hold materialized segments.
	DataTable TableType = iota
	// ReferenceTable chunks hold reference segments into a data table.
	ReferenceTable
)

type TableColumnDefinition struct {
	Name     string
	Type     schema.DataType
	Nullable bool
}

// UniqueConstraint declares a soft unique column combination. At most one
// constraint of a table may be the primary key.
type UniqueConstraint struct {
	Columns      []schema.ColumnID
	IsPrimaryKey bool
}

type Table struct {
	columns   []TableColumnDefinition
	tableType TableType

	// target rows per chunk when appending
	targetChunkSize schema.ChunkOffset

	chunksLock sync.RWMutex
	chunks     []*Chunk

	constraints []UniqueConstraint
}

const DefaultTargetChunkSize = schema.ChunkOffset(65535)

func NewTable(columns []TableColumnDefinition, tableType TableType, targetChunkSize schema.ChunkOffset) *Table {
	if len(columns) == 0 {
		panic("table needs at least one column")
	}
	if targetChunkSize == 0 {
		targetChunkSize = DefaultTargetChunkSize
	}
	return &Table{
		columns:         columns,
		tableType:       tableType,
		targetChunkSize: targetChunkSize,
	}
}

func (t *Table) Type() TableType {
	return t.tableType
}

func (t *Table) TargetChunkSize() schema.ChunkOffset {
	return t.targetChunkSize
}

func (t *Table) ColumnDefinitions() []TableColumnDefinition {
	return t.columns
}

func (t *Table) ColumnCount() int {
	return len(t.columns)
}

func (t *Table) ColumnName(id schema.ColumnID) string {
	return t.columns[id].Name
}

func (t *Table) ColumnType(id schema.ColumnID) schema.DataType {
	return t.columns[id].Type
}

func (t *Table) ColumnNullable(id schema.ColumnID) bool {
	return t.columns[id].Nullable
}

// ColumnIDByName resolves a column name, panics when absent.
func (t *Table) ColumnIDByName(name string) schema.ColumnID {
	for i, c := range t.columns {
		if c.Name == name {
			return schema.ColumnID(i)
		}
	}
	panic(fmt.Sprintf("column `%v` not found", name))
}

// AppendChunk attaches a chunk built elsewhere. The segment count and
// types must match the column definitions.
func (t *Table) AppendChunk(segments []Segment) *Chunk {
	if len(segments) != len(t.columns) {
		panic(fmt.Sprintf("chunk has %d segments, table has %d columns", len(segments), len(t.columns)))
	}
	for i, s := range segments {
		if s.DataType() != t.columns[i].Type {
			panic(fmt.Sprintf("segment %d is %v, column is %v", i, s.DataType(), t.columns[i].Type))
		}
		_, isRef := s.(*ReferenceSegment)
		if isRef != (t.tableType == ReferenceTable) {
			panic("segment kind does not match table type")
		}
	}

	chunk := NewChunk(segments)

	t.chunksLock.Lock()
	t.chunks = append(t.chunks, chunk)
	t.chunksLock.Unlock()

	return chunk
}

func (t *Table) AppendChunkDirect(chunk *Chunk) {
	t.chunksLock.Lock()
	t.chunks = append(t.chunks, chunk)
	t.chunksLock.Unlock()
}

func (t *Table) ChunkCount() schema.ChunkID {
	t.chunksLock.RLock()
	defer t.chunksLock.RUnlock()
	return schema.ChunkID(len(t.chunks))
}

func (t *Table) GetChunk(id schema.ChunkID) *Chunk {
	t.chunksLock.RLock()
	defer t.chunksLock.RUnlock()
	return t.chunks[id]
}

func (t *Table) RowCount() uint64 {
	t.chunksLock.RLock()
	defer t.chunksLock.RUnlock()

	var total uint64
	for _, c := range t.chunks {
		total += uint64(c.Size())
	}
	return total
}

// GetValue reads one cell, resolving the chunk from a global row number.
func (t *Table) GetValue(column schema.ColumnID, row uint64) schema.AllTypeVariant {
	t.chunksLock.RLock()
	defer t.chunksLock.RUnlock()

	for _, c := range t.chunks {
		if row < uint64(c.Size()) {
			return c.GetSegment(column).Value(schema.ChunkOffset(row))
		}
		row -= uint64(c.Size())
	}
	panic("row out of range")
}

func (t *Table) AddSoftUniqueConstraint(columns []schema.ColumnID, isPrimaryKey bool) {
	for _, col := range columns {
		if int(col) >= len(t.columns) {
			panic(fmt.Sprintf("constraint column %d out of range", col))
		}
	}
	if isPrimaryKey {
		for _, c := range t.constraints {
			if c.IsPrimaryKey {
				panic("table already has a primary key")
			}
		}
	}
	t.constraints = append(t.constraints, UniqueConstraint{Columns: columns, IsPrimaryKey: isPrimaryKey})
}

func (t *Table) UniqueConstraints() []UniqueConstraint {
	return t.constraints
}

func (t *Table) MemoryUsage() int {
	t.chunksLock.RLock()
	defer t.chunksLock.RUnlock()

	total := 0
	for _, c := range t.chunks {
		total += c.MemoryUsage()
	}
	return total
}
