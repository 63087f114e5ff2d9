package operators

import (
	"context"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

// Limit passes through the first RowCount rows as a reference table.
type Limit struct {
	base

	RowCount uint64
}

func NewLimit(in Operator, rowCount uint64) *Limit {
	return &Limit{base: newBase("Limit", in, nil), RowCount: rowCount}
}

func (op *Limit) DeepCopy() Operator {
	return NewLimit(op.left.DeepCopy(), op.RowCount)
}

func (op *Limit) Execute(ctx context.Context) error {
	return op.runOnce(ctx, op.limit)
}

func (op *Limit) limit(ctx context.Context) (*storage.Table, error) {
	input := leftTable(&op.base)
	dataTable, columnMap := resolveScanSide(input)

	out := storage.NewTable(input.ColumnDefinitions(), storage.ReferenceTable, input.TargetChunkSize())

	remaining := op.RowCount
	chunkCount := input.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < chunkCount && remaining > 0; chunkID++ {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}

		chunk := input.GetChunk(chunkID)
		take := uint64(chunk.Size())
		if take > remaining {
			take = remaining
		}
		remaining -= take

		positions := storage.NewPosList(int(take))
		for off := schema.ChunkOffset(0); off < schema.ChunkOffset(take); off++ {
			positions.Append(dataRowID(input, chunkID, off))
		}
		out.AppendChunk(referenceChunkFor(dataTable, columnMap, positions))
	}

	return out, nil
}
