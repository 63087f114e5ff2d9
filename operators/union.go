package operators

import (
	"context"
	"sort"

	"github.com/dot5enko/column-query-engine/lists"
	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

// UnionAllOp concatenates two inputs with identical schemas, forwarding
// chunks without copying where possible.
type UnionAllOp struct {
	base
}

func NewUnionAll(left, right Operator) *UnionAllOp {
	return &UnionAllOp{base: newBase("UnionAll", left, right)}
}

func (op *UnionAllOp) DeepCopy() Operator {
	return NewUnionAll(op.left.DeepCopy(), op.right.DeepCopy())
}

func (op *UnionAllOp) Execute(ctx context.Context) error {
	return op.runOnce(ctx, op.unionAll)
}

func (op *UnionAllOp) unionAll(ctx context.Context) (*storage.Table, error) {
	left := leftTable(&op.base)
	right := rightTable(&op.base)
	assertSchemasMatch(left, right)

	if left.Type() == right.Type() {
		out := storage.NewTable(left.ColumnDefinitions(), left.Type(), left.TargetChunkSize())
		for _, input := range []*storage.Table{left, right} {
			count := input.ChunkCount()
			for chunkID := schema.ChunkID(0); chunkID < count; chunkID++ {
				if err := checkCancelled(ctx); err != nil {
					return nil, err
				}
				out.AppendChunkDirect(input.GetChunk(chunkID))
			}
		}
		return out, nil
	}

	// mixed data/reference inputs are materialized
	out := storage.NewTable(left.ColumnDefinitions(), storage.DataTable, left.TargetChunkSize())
	for _, input := range []*storage.Table{left, right} {
		count := input.ChunkCount()
		for chunkID := schema.ChunkID(0); chunkID < count; chunkID++ {
			if err := checkCancelled(ctx); err != nil {
				return nil, err
			}
			chunk := input.GetChunk(chunkID)
			segments := make([]storage.Segment, input.ColumnCount())
			for c := range segments {
				seg := storage.NewValueSegmentForType(input.ColumnType(schema.ColumnID(c)), true)
				chunk.GetSegment(schema.ColumnID(c)).ForEachValue(nil, func(v schema.AllTypeVariant, _ schema.ChunkOffset) {
					storage.AppendVariant(seg, v)
				})
				segments[c] = seg
			}
			out.AppendChunk(segments).Finalize()
		}
	}
	return out, nil
}

// UnionPositionsOp unions the row selections of two reference tables
// over the same data table, deduplicating shared rows. This is how
// rewritten disjunctions recombine.
type UnionPositionsOp struct {
	base
}

func NewUnionPositions(left, right Operator) *UnionPositionsOp {
	return &UnionPositionsOp{base: newBase("UnionPositions", left, right)}
}

func (op *UnionPositionsOp) DeepCopy() Operator {
	return NewUnionPositions(op.left.DeepCopy(), op.right.DeepCopy())
}

func (op *UnionPositionsOp) Execute(ctx context.Context) error {
	return op.runOnce(ctx, op.unionPositions)
}

func (op *UnionPositionsOp) unionPositions(ctx context.Context) (*storage.Table, error) {
	left := leftTable(&op.base)
	right := rightTable(&op.base)
	assertSchemasMatch(left, right)

	if left.Type() != storage.ReferenceTable || right.Type() != storage.ReferenceTable {
		panic("positions union requires reference inputs")
	}

	dataTable, columnMap := resolveScanSide(left)
	if left.ChunkCount() == 0 && right.ChunkCount() > 0 {
		// an empty left side carries no usable table pointer
		dataTable, columnMap = resolveScanSide(right)
	}

	leftRows := collectRows(left)
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	rightRows := collectRows(right)
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	sortRowIDs(leftRows)
	sortRowIDs(rightRows)
	union := lists.UnionSorted(leftRows, rightRows)

	out := storage.NewTable(left.ColumnDefinitions(), storage.ReferenceTable, left.TargetChunkSize())
	if len(union) > 0 {
		positions := storage.PosListFromRows(union)
		out.AppendChunk(referenceChunkFor(dataTable, columnMap, positions))
	}
	return out, nil
}

func collectRows(input *storage.Table) []schema.RowID {
	var out []schema.RowID
	count := input.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < count; chunkID++ {
		ref := input.GetChunk(chunkID).GetSegment(0).(*storage.ReferenceSegment)
		out = append(out, ref.PosList().Rows()...)
	}
	return out
}

func sortRowIDs(rows []schema.RowID) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Less(rows[j]) })
}
