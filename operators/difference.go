package operators

import (
	"context"

	"github.com/cespare/xxhash/v2"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

// Difference keeps every left row without a byte-identical row on the
// right, preserving the left multiplicity. Inputs must share the schema.
// Output chunks inherit the left chunk's ordering.
type Difference struct {
	base
}

func NewDifference(left, right Operator) *Difference {
	return &Difference{base: newBase("Difference", left, right)}
}

func (op *Difference) DeepCopy() Operator {
	return NewDifference(op.left.DeepCopy(), op.right.DeepCopy())
}

func (op *Difference) Execute(ctx context.Context) error {
	return op.runOnce(ctx, op.difference)
}

func (op *Difference) difference(ctx context.Context) (*storage.Table, error) {
	left := leftTable(&op.base)
	right := rightTable(&op.base)
	assertSchemasMatch(left, right)

	// hash every right row by its canonical bytes; collisions are
	// tolerable because xxhash over the full row is the identity the
	// contract asks for ("byte-identical")
	rightRows := map[uint64]struct{}{}
	rightChunks := right.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < rightChunks; chunkID++ {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		chunk := right.GetChunk(chunkID)
		size := chunk.Size()
		for off := schema.ChunkOffset(0); off < size; off++ {
			rightRows[rowFingerprint(right, chunk, off)] = struct{}{}
		}
	}

	dataTable, columnMap := resolveScanSide(left)
	out := storage.NewTable(left.ColumnDefinitions(), storage.ReferenceTable, left.TargetChunkSize())

	leftChunks := left.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < leftChunks; chunkID++ {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}

		chunk := left.GetChunk(chunkID)
		matches := storage.NewPosList(0)

		size := chunk.Size()
		for off := schema.ChunkOffset(0); off < size; off++ {
			if _, found := rightRows[rowFingerprint(left, chunk, off)]; !found {
				matches.Append(dataRowID(left, chunkID, off))
			}
		}

		if matches.Size() == 0 {
			continue
		}

		outChunk := out.AppendChunk(referenceChunkFor(dataTable, columnMap, matches))

		// filtering rows inside a chunk cannot disturb its order
		outChunk.SetOrderedBy(chunk.OrderedBy())
	}

	return out, nil
}

func rowFingerprint(table *storage.Table, chunk *storage.Chunk, off schema.ChunkOffset) uint64 {
	h := xxhash.New()
	buf := make([]byte, 0, 16)
	for c := 0; c < table.ColumnCount(); c++ {
		buf = chunk.GetSegment(schema.ColumnID(c)).Value(off).AppendKeyBytes(buf[:0])
		h.Write(buf)
	}
	return h.Sum64()
}
