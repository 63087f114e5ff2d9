package operators

import (
	"context"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

// AggregateSort expects its input sorted on the group-by columns (the
// caller's responsibility) and emits one row per run of equal keys in a
// single linear scan.
type AggregateSort struct {
	base

	GroupBy    []schema.ColumnID
	Aggregates []AggregateDefinition
}

func NewAggregateSort(in Operator, groupBy []schema.ColumnID, aggregates []AggregateDefinition) *AggregateSort {
	return &AggregateSort{base: newBase("AggregateSort", in, nil), GroupBy: groupBy, Aggregates: aggregates}
}

func (op *AggregateSort) DeepCopy() Operator {
	return NewAggregateSort(op.left.DeepCopy(),
		append([]schema.ColumnID(nil), op.GroupBy...),
		append([]AggregateDefinition(nil), op.Aggregates...))
}

func (op *AggregateSort) Execute(ctx context.Context) error {
	return op.runOnce(ctx, op.aggregate)
}

func (op *AggregateSort) aggregate(ctx context.Context) (*storage.Table, error) {
	input := leftTable(&op.base)
	validateAggregates(input, op.GroupBy, op.Aggregates)

	columns := aggregateOutputColumns(input, op.GroupBy, op.Aggregates)
	out := storage.NewTable(columns, storage.DataTable, input.TargetChunkSize())

	var rows [][]schema.AllTypeVariant
	var currentKeys []schema.AllTypeVariant
	var accumulators []*accumulator

	flush := func() {
		if accumulators == nil {
			return
		}
		row := make([]schema.AllTypeVariant, 0, len(columns))
		row = append(row, currentKeys...)
		for i, agg := range op.Aggregates {
			row = append(row, accumulators[i].result(agg.Column == schema.InvalidColumnID))
		}
		rows = append(rows, row)
	}

	open := func(keys []schema.AllTypeVariant) {
		currentKeys = keys
		accumulators = make([]*accumulator, len(op.Aggregates))
		for i, agg := range op.Aggregates {
			accumulators[i] = newAccumulator(agg.Function)
		}
	}

	chunkCount := input.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < chunkCount; chunkID++ {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}

		chunk := input.GetChunk(chunkID)
		size := chunk.Size()
		for off := schema.ChunkOffset(0); off < size; off++ {
			if accumulators == nil || !keysEqual(currentKeys, chunk, off, op.GroupBy) {
				flush()
				keys := make([]schema.AllTypeVariant, len(op.GroupBy))
				for i, g := range op.GroupBy {
					keys[i] = chunk.GetSegment(g).Value(off)
				}
				open(keys)
			}

			for i, agg := range op.Aggregates {
				if agg.Column == schema.InvalidColumnID {
					accumulators[i].add(schema.Variant(int64(1)))
				} else {
					accumulators[i].add(chunk.GetSegment(agg.Column).Value(off))
				}
			}
		}
	}
	flush()

	emitAggregateRows(out, columns, rows)
	return out, nil
}
