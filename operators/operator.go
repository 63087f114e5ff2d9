// Package operators implements the physical query plan. Operators are
// single-shot: construct, execute once, hand the output table downstream.
package operators

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

var (
	// ErrAlreadyExecuted is returned by a second Execute call.
	ErrAlreadyExecuted = errors.New("operator was already executed")

	// ErrCancelled wraps context cancellation observed at a chunk
	// boundary.
	ErrCancelled = errors.New("operator cancelled")
)

type DescriptionMode uint8

const (
	DescriptionShort DescriptionMode = iota
	DescriptionDetailed
)

type Operator interface {
	// Execute runs the operator once. It fails with ErrAlreadyExecuted
	// on re-execution and with ErrCancelled when ctx fires between
	// chunks.
	Execute(ctx context.Context) error

	// Output is nil until Execute succeeded.
	Output() *storage.Table

	LeftInput() Operator
	RightInput() Operator

	Name() string
	Description(mode DescriptionMode) string

	// DeepCopy clones the operator tree unexecuted.
	DeepCopy() Operator
}

// base carries the execute-once guard and the instance id every
// operator shares.
type base struct {
	name     string
	id       uuid.UUID
	left     Operator
	right    Operator
	output   *storage.Table
	executed atomic.Bool
}

func newBase(name string, left, right Operator) base {
	return base{name: name, id: uuid.New(), left: left, right: right}
}

func (b *base) Name() string { return b.name }

func (b *base) Output() *storage.Table { return b.output }

func (b *base) LeftInput() Operator  { return b.left }
func (b *base) RightInput() Operator { return b.right }

func (b *base) Description(mode DescriptionMode) string {
	if mode == DescriptionDetailed {
		return fmt.Sprintf("%s (%s)", b.name, b.id)
	}
	return b.name
}

// runOnce enforces single execution and input availability, then stores
// the implementation's output.
func (b *base) runOnce(ctx context.Context, impl func(ctx context.Context) (*storage.Table, error)) error {
	if !b.executed.CompareAndSwap(false, true) {
		return ErrAlreadyExecuted
	}

	if b.left != nil && b.left.Output() == nil {
		panic(b.name + ": left input was not executed")
	}
	if b.right != nil && b.right.Output() == nil {
		panic(b.name + ": right input was not executed")
	}

	out, err := impl(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}
	b.output = out
	return nil
}

// checkCancelled is called on chunk boundaries.
func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return nil
}

func leftTable(b *base) *storage.Table {
	return b.left.Output()
}

func rightTable(b *base) *storage.Table {
	return b.right.Output()
}

// resolveScanSide maps a table onto the data table its rows live in,
// plus the per-column ids inside that data table. Reference tables
// resolve through their chunk 0 segments; an empty reference table gets
// a fresh empty data table of the same shape.
func resolveScanSide(input *storage.Table) (*storage.Table, []schema.ColumnID) {
	columns := make([]schema.ColumnID, input.ColumnCount())

	if input.Type() == storage.DataTable {
		for i := range columns {
			columns[i] = schema.ColumnID(i)
		}
		return input, columns
	}

	if input.ChunkCount() == 0 {
		empty := storage.NewTable(input.ColumnDefinitions(), storage.DataTable, input.TargetChunkSize())
		for i := range columns {
			columns[i] = schema.ColumnID(i)
		}
		return empty, columns
	}

	chunk := input.GetChunk(0)
	var table *storage.Table
	for i := range columns {
		ref := chunk.GetSegment(schema.ColumnID(i)).(*storage.ReferenceSegment)
		columns[i] = ref.ReferencedColumn()
		if table == nil {
			table = ref.ReferencedTable()
		}
	}
	return table, columns
}

// dataRowID translates a row of the input table into the coordinates of
// its backing data table.
func dataRowID(input *storage.Table, chunkID schema.ChunkID, off schema.ChunkOffset) schema.RowID {
	if input.Type() == storage.DataTable {
		return schema.RowID{Chunk: chunkID, Offset: off}
	}
	ref := input.GetChunk(chunkID).GetSegment(0).(*storage.ReferenceSegment)
	return ref.PosList().Get(int(off))
}

// referenceChunkFor wraps one shared position list into reference
// segments for every output column.
func referenceChunkFor(dataTable *storage.Table, columns []schema.ColumnID, positions *storage.PosList) []storage.Segment {
	segments := make([]storage.Segment, len(columns))
	for i, col := range columns {
		segments[i] = storage.NewReferenceSegment(dataTable, col, positions)
	}
	return segments
}

// assertSchemasMatch verifies column order and types of two inputs.
func assertSchemasMatch(a, b *storage.Table) {
	if a.ColumnCount() != b.ColumnCount() {
		panic(fmt.Sprintf("schema mismatch: %d vs %d columns", a.ColumnCount(), b.ColumnCount()))
	}
	for i := range a.ColumnDefinitions() {
		if a.ColumnType(schema.ColumnID(i)) != b.ColumnType(schema.ColumnID(i)) {
			panic(fmt.Sprintf("schema mismatch on column %d: %v vs %v",
				i, a.ColumnType(schema.ColumnID(i)), b.ColumnType(schema.ColumnID(i))))
		}
	}
}
