package operators

import (
	"context"
	"fmt"
	"sort"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

// Sort produces a stable, multi-key ordering of its input, materialized
// into chunks of the requested size. Every output chunk is marked
// ordered by the sort definitions.
type Sort struct {
	base

	Definitions     []schema.SortColumnDefinition
	OutputChunkSize schema.ChunkOffset
}

func NewSort(in Operator, definitions []schema.SortColumnDefinition, outputChunkSize schema.ChunkOffset) *Sort {
	if len(definitions) == 0 {
		panic("sort needs at least one definition")
	}
	if outputChunkSize == 0 {
		outputChunkSize = storage.DefaultTargetChunkSize
	}
	return &Sort{
		base:            newBase("Sort", in, nil),
		Definitions:     definitions,
		OutputChunkSize: outputChunkSize,
	}
}

func (op *Sort) Description(mode DescriptionMode) string {
	if mode == DescriptionDetailed {
		return fmt.Sprintf("Sort %v", op.Definitions)
	}
	return "Sort"
}

func (op *Sort) DeepCopy() Operator {
	return NewSort(op.left.DeepCopy(), append([]schema.SortColumnDefinition(nil), op.Definitions...), op.OutputChunkSize)
}

func (op *Sort) Execute(ctx context.Context) error {
	return op.runOnce(ctx, op.sortTable)
}

type sortRow struct {
	row  schema.RowID // input-table coordinates
	keys []schema.AllTypeVariant
}

func (op *Sort) sortTable(ctx context.Context) (*storage.Table, error) {
	input := leftTable(&op.base)

	for _, def := range op.Definitions {
		if int(def.Column) >= input.ColumnCount() {
			panic(fmt.Sprintf("sort column %d out of range", def.Column))
		}
	}

	rows := make([]sortRow, 0, input.RowCount())

	chunkCount := input.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < chunkCount; chunkID++ {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		chunk := input.GetChunk(chunkID)
		size := chunk.Size()
		for off := schema.ChunkOffset(0); off < size; off++ {
			keys := make([]schema.AllTypeVariant, len(op.Definitions))
			for k, def := range op.Definitions {
				keys[k] = chunk.GetSegment(def.Column).Value(off)
			}
			rows = append(rows, sortRow{row: schema.RowID{Chunk: chunkID, Offset: off}, keys: keys})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return op.lessRows(rows[i], rows[j])
	})

	return op.materialize(ctx, input, rows)
}

// lessRows applies the definitions in order, ties break on the next key.
func (op *Sort) lessRows(a, b sortRow) bool {
	for k, def := range op.Definitions {
		cmp := compareWithMode(a.keys[k], b.keys[k], def.Mode)
		if cmp != 0 {
			return cmp < 0
		}
	}
	return false
}

// compareWithMode orders two possibly-NULL values under one sort mode.
func compareWithMode(a, b schema.AllTypeVariant, mode schema.OrderMode) int {
	aNull := a.IsNull()
	bNull := b.IsNull()
	if aNull || bNull {
		if aNull == bNull {
			return 0
		}
		nullFirst := mode.NullsFirst()
		if aNull == nullFirst {
			return -1
		}
		return 1
	}

	cmp := schema.CompareVariants(a, b)
	if !mode.IsAscending() {
		cmp = -cmp
	}
	return cmp
}

func (op *Sort) materialize(ctx context.Context, input *storage.Table, rows []sortRow) (*storage.Table, error) {
	out := storage.NewTable(input.ColumnDefinitions(), storage.DataTable, op.OutputChunkSize)
	columns := input.ColumnDefinitions()

	for start := 0; start < len(rows); start += int(op.OutputChunkSize) {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		end := min(start+int(op.OutputChunkSize), len(rows))

		segments := make([]storage.Segment, len(columns))
		for c, col := range columns {
			seg := storage.NewValueSegmentForType(col.Type, true)
			for _, r := range rows[start:end] {
				storage.AppendVariant(seg, input.GetChunk(r.row.Chunk).GetSegment(schema.ColumnID(c)).Value(r.row.Offset))
			}
			segments[c] = seg
		}

		chunk := out.AppendChunk(segments)
		chunk.SetOrderedBy(append([]schema.SortColumnDefinition(nil), op.Definitions...))
		chunk.Finalize()
	}

	return out, nil
}
