package operators

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

// JoinHash is the equi-join workhorse: hash-partition the build side on
// the join key, probe with the other side. NULL keys never match; the
// anti modes differ exactly in how NULL-keyed probe rows are treated.
type JoinHash struct {
	base

	Mode      schema.JoinMode
	Primary   JoinPredicate
	Secondary []JoinPredicate
}

func NewJoinHash(left, right Operator, mode schema.JoinMode, primary JoinPredicate, secondary []JoinPredicate) *JoinHash {
	if primary.Condition != schema.Equals {
		panic("hash joins support only equality on the primary predicate")
	}
	if mode == schema.JoinCross {
		panic("hash joins cannot run cross joins")
	}
	return &JoinHash{
		base:      newBase("JoinHash", left, right),
		Mode:      mode,
		Primary:   primary,
		Secondary: secondary,
	}
}

func (op *JoinHash) Description(mode DescriptionMode) string {
	if mode == DescriptionDetailed {
		return fmt.Sprintf("JoinHash %s [%s]", op.Mode, op.Primary)
	}
	return "JoinHash"
}

func (op *JoinHash) DeepCopy() Operator {
	return NewJoinHash(op.left.DeepCopy(), op.right.DeepCopy(), op.Mode, op.Primary,
		append([]JoinPredicate(nil), op.Secondary...))
}

func (op *JoinHash) Execute(ctx context.Context) error {
	return op.runOnce(ctx, op.join)
}

type hashBuildEntry struct {
	key schema.AllTypeVariant
	row rowRef
}

func (op *JoinHash) join(ctx context.Context) (*storage.Table, error) {
	left := leftTable(&op.base)
	right := rightTable(&op.base)
	validateJoinInputs(left, right, op.Primary, op.Mode)

	result := newJoinResult(left, right, op.Mode)

	// inner joins are symmetric, build over the smaller input
	if op.Mode == schema.JoinInner && left.RowCount() < right.RowCount() {
		return op.joinInnerBuildLeft(ctx, left, right, result)
	}

	// otherwise build over the right side; the probe loop drives all
	// modes
	build, err := op.buildSide(ctx, right, op.Primary.RightColumn)
	if err != nil {
		return nil, err
	}

	rightRowCount := right.RowCount()
	matchedRight := map[rowRef]struct{}{}

	chunkCount := left.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < chunkCount; chunkID++ {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}

		chunk := left.GetChunk(chunkID)
		size := chunk.Size()
		for off := schema.ChunkOffset(0); off < size; off++ {
			leftRow := rowRef{chunk: chunkID, offset: off}
			key := chunk.GetSegment(op.Primary.LeftColumn).Value(off)

			if key.IsNull() {
				op.emitNullKeyRow(result, leftRow, rightRowCount)
				continue
			}

			matched := false
			for _, candidate := range build[xxhash.Sum64(key.AppendKeyBytes(nil))] {
				if !schema.VariantsEqual(candidate.key, key) {
					continue
				}
				if !secondaryPredicatesHold(left, right, leftRow, candidate.row, op.Secondary) {
					continue
				}

				matched = true
				switch op.Mode {
				case schema.JoinSemi:
					// one witness suffices
				case schema.JoinAntiNullAsTrue, schema.JoinAntiNullAsFalse:
					// matches disqualify the row
				default:
					result.addPair(leftRow, candidate.row)
					if op.Mode == schema.JoinFullOuter || op.Mode == schema.JoinRight {
						matchedRight[candidate.row] = struct{}{}
					}
				}
				if op.Mode == schema.JoinSemi {
					break
				}
			}

			switch op.Mode {
			case schema.JoinSemi:
				if matched {
					result.addPair(leftRow, rowRef{})
				}
			case schema.JoinAntiNullAsTrue, schema.JoinAntiNullAsFalse:
				if !matched {
					result.addPair(leftRow, rowRef{})
				}
			case schema.JoinLeft, schema.JoinFullOuter:
				if !matched {
					result.addLeftOnly(leftRow)
				}
			}
		}
	}

	if op.Mode == schema.JoinRight || op.Mode == schema.JoinFullOuter {
		op.emitUnmatchedRight(right, matchedRight, result)
	}

	return result.table(), nil
}

// emitNullKeyRow settles what a NULL probe key means per mode.
func (op *JoinHash) emitNullKeyRow(result *joinResult, leftRow rowRef, rightRowCount uint64) {
	switch op.Mode {
	case schema.JoinLeft, schema.JoinFullOuter:
		result.addLeftOnly(leftRow)
	case schema.JoinAntiNullAsFalse:
		// NULL = false: the row matches nothing, keep it
		result.addPair(leftRow, rowRef{})
	case schema.JoinAntiNullAsTrue:
		// NULL = true rejects the row, unless the right side is empty
		// and no probe could have matched anything
		if rightRowCount == 0 {
			result.addPair(leftRow, rowRef{})
		}
	}
}

// joinInnerBuildLeft mirrors the probe loop with the left side hashed.
// Pairs still come out as (left row, right row).
func (op *JoinHash) joinInnerBuildLeft(ctx context.Context, left, right *storage.Table, result *joinResult) (*storage.Table, error) {
	build, err := op.buildSide(ctx, left, op.Primary.LeftColumn)
	if err != nil {
		return nil, err
	}

	chunkCount := right.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < chunkCount; chunkID++ {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}

		chunk := right.GetChunk(chunkID)
		size := chunk.Size()
		for off := schema.ChunkOffset(0); off < size; off++ {
			key := chunk.GetSegment(op.Primary.RightColumn).Value(off)
			if key.IsNull() {
				continue
			}

			rightRow := rowRef{chunk: chunkID, offset: off}
			for _, candidate := range build[xxhash.Sum64(key.AppendKeyBytes(nil))] {
				if !schema.VariantsEqual(candidate.key, key) {
					continue
				}
				if !secondaryPredicatesHold(left, right, candidate.row, rightRow, op.Secondary) {
					continue
				}
				result.addPair(candidate.row, rightRow)
			}
		}
	}

	return result.table(), nil
}

func (op *JoinHash) buildSide(ctx context.Context, input *storage.Table, column schema.ColumnID) (map[uint64][]hashBuildEntry, error) {
	build := map[uint64][]hashBuildEntry{}

	chunkCount := input.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < chunkCount; chunkID++ {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		chunk := input.GetChunk(chunkID)
		size := chunk.Size()
		for off := schema.ChunkOffset(0); off < size; off++ {
			key := chunk.GetSegment(column).Value(off)
			if key.IsNull() {
				// NULL build keys can never match
				continue
			}
			h := xxhash.Sum64(key.AppendKeyBytes(nil))
			build[h] = append(build[h], hashBuildEntry{key: key, row: rowRef{chunk: chunkID, offset: off}})
		}
	}
	return build, nil
}

func (op *JoinHash) emitUnmatchedRight(right *storage.Table, matched map[rowRef]struct{}, result *joinResult) {
	chunkCount := right.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < chunkCount; chunkID++ {
		size := right.GetChunk(chunkID).Size()
		for off := schema.ChunkOffset(0); off < size; off++ {
			row := rowRef{chunk: chunkID, offset: off}
			if _, ok := matched[row]; !ok {
				result.addRightOnly(row)
			}
		}
	}
}
