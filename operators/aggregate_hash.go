package operators

import (
	"context"

	"github.com/cespare/xxhash/v2"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

// AggregateHash groups by hashing the key tuple, one accumulator set per
// hash entry. Hash collisions are resolved by comparing the stored key
// variants.
type AggregateHash struct {
	base

	GroupBy    []schema.ColumnID
	Aggregates []AggregateDefinition
}

func NewAggregateHash(in Operator, groupBy []schema.ColumnID, aggregates []AggregateDefinition) *AggregateHash {
	return &AggregateHash{base: newBase("AggregateHash", in, nil), GroupBy: groupBy, Aggregates: aggregates}
}

func (op *AggregateHash) DeepCopy() Operator {
	return NewAggregateHash(op.left.DeepCopy(),
		append([]schema.ColumnID(nil), op.GroupBy...),
		append([]AggregateDefinition(nil), op.Aggregates...))
}

func (op *AggregateHash) Execute(ctx context.Context) error {
	return op.runOnce(ctx, op.aggregate)
}

type hashGroup struct {
	keys         []schema.AllTypeVariant
	accumulators []*accumulator
}

func (op *AggregateHash) aggregate(ctx context.Context) (*storage.Table, error) {
	input := leftTable(&op.base)
	validateAggregates(input, op.GroupBy, op.Aggregates)

	groups := map[uint64][]*hashGroup{}
	var order []*hashGroup // insertion order keeps the output deterministic

	newGroup := func(keys []schema.AllTypeVariant) *hashGroup {
		g := &hashGroup{keys: keys, accumulators: make([]*accumulator, len(op.Aggregates))}
		for i, agg := range op.Aggregates {
			g.accumulators[i] = newAccumulator(agg.Function)
		}
		order = append(order, g)
		return g
	}

	buf := make([]byte, 0, 64)
	chunkCount := input.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < chunkCount; chunkID++ {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}

		chunk := input.GetChunk(chunkID)
		size := chunk.Size()
		for off := schema.ChunkOffset(0); off < size; off++ {
			buf = groupKeyBytes(chunk, off, op.GroupBy, buf[:0])
			h := xxhash.Sum64(buf)

			var group *hashGroup
			for _, candidate := range groups[h] {
				if keysEqual(candidate.keys, chunk, off, op.GroupBy) {
					group = candidate
					break
				}
			}
			if group == nil {
				keys := make([]schema.AllTypeVariant, len(op.GroupBy))
				for i, g := range op.GroupBy {
					keys[i] = chunk.GetSegment(g).Value(off)
				}
				group = newGroup(keys)
				groups[h] = append(groups[h], group)
			}

			for i, agg := range op.Aggregates {
				if agg.Column == schema.InvalidColumnID {
					group.accumulators[i].add(schema.Variant(int64(1)))
				} else {
					group.accumulators[i].add(chunk.GetSegment(agg.Column).Value(off))
				}
			}
		}
	}

	columns := aggregateOutputColumns(input, op.GroupBy, op.Aggregates)
	out := storage.NewTable(columns, storage.DataTable, input.TargetChunkSize())

	rows := make([][]schema.AllTypeVariant, 0, len(order))
	for _, g := range order {
		row := make([]schema.AllTypeVariant, 0, len(columns))
		row = append(row, g.keys...)
		for i, agg := range op.Aggregates {
			row = append(row, g.accumulators[i].result(agg.Column == schema.InvalidColumnID))
		}
		rows = append(rows, row)
	}
	emitAggregateRows(out, columns, rows)

	return out, nil
}

func keysEqual(keys []schema.AllTypeVariant, chunk *storage.Chunk, off schema.ChunkOffset, groupBy []schema.ColumnID) bool {
	for i, g := range groupBy {
		v := chunk.GetSegment(g).Value(off)
		if v.IsNull() || keys[i].IsNull() {
			if v.IsNull() != keys[i].IsNull() {
				return false
			}
			continue
		}
		if schema.CompareVariants(v, keys[i]) != 0 {
			return false
		}
	}
	return true
}
