package operators

import (
	"context"
	"fmt"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

// JoinNestedLoop evaluates arbitrary predicates over every row pair. It
// is the fallback for conditions the specialized joins cannot run, and
// the only operator handling cross joins.
type JoinNestedLoop struct {
	base

	Mode       schema.JoinMode
	Predicates []JoinPredicate // empty only for cross joins
}

func NewJoinNestedLoop(left, right Operator, mode schema.JoinMode, predicates []JoinPredicate) *JoinNestedLoop {
	if mode == schema.JoinCross && len(predicates) != 0 {
		panic("cross joins take no predicate")
	}
	if mode != schema.JoinCross && len(predicates) == 0 {
		panic("non-cross joins require predicates")
	}
	return &JoinNestedLoop{base: newBase("JoinNestedLoop", left, right), Mode: mode, Predicates: predicates}
}

func (op *JoinNestedLoop) Description(mode DescriptionMode) string {
	if mode == DescriptionDetailed {
		return fmt.Sprintf("JoinNestedLoop %s %v", op.Mode, op.Predicates)
	}
	return "JoinNestedLoop"
}

func (op *JoinNestedLoop) DeepCopy() Operator {
	return NewJoinNestedLoop(op.left.DeepCopy(), op.right.DeepCopy(), op.Mode,
		append([]JoinPredicate(nil), op.Predicates...))
}

func (op *JoinNestedLoop) Execute(ctx context.Context) error {
	return op.runOnce(ctx, op.join)
}

func (op *JoinNestedLoop) join(ctx context.Context) (*storage.Table, error) {
	left := leftTable(&op.base)
	right := rightTable(&op.base)
	if op.Mode != schema.JoinCross {
		validateJoinInputs(left, right, op.Predicates[0], op.Mode)
	}

	result := newJoinResult(left, right, op.Mode)

	rightRefs := allRows(right)
	matchedRight := make([]bool, len(rightRefs))
	rightRowCount := uint64(len(rightRefs))

	chunkCount := left.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < chunkCount; chunkID++ {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}

		chunk := left.GetChunk(chunkID)
		size := chunk.Size()
		for off := schema.ChunkOffset(0); off < size; off++ {
			leftRow := rowRef{chunk: chunkID, offset: off}

			hasNullKey := op.Mode != schema.JoinCross &&
				chunk.GetSegment(op.Predicates[0].LeftColumn).Value(off).IsNull()
			if hasNullKey && (op.Mode == schema.JoinAntiNullAsTrue || op.Mode == schema.JoinAntiNullAsFalse) {
				if op.Mode == schema.JoinAntiNullAsFalse || rightRowCount == 0 {
					result.addPair(leftRow, rowRef{})
				}
				continue
			}

			matched := false
			for rj, rightRow := range rightRefs {
				if op.Mode != schema.JoinCross &&
					!secondaryPredicatesHold(left, right, leftRow, rightRow, op.Predicates) {
					continue
				}

				matched = true
				matchedRight[rj] = true
				switch op.Mode {
				case schema.JoinSemi, schema.JoinAntiNullAsTrue, schema.JoinAntiNullAsFalse:
					// witness only
				default:
					result.addPair(leftRow, rightRow)
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
		for rj, m := range matchedRight {
			if !m {
				result.addRightOnly(rightRefs[rj])
			}
		}
	}

	return result.table(), nil
}

func allRows(input *storage.Table) []rowRef {
	out := make([]rowRef, 0, input.RowCount())
	chunkCount := input.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < chunkCount; chunkID++ {
		size := input.GetChunk(chunkID).Size()
		for off := schema.ChunkOffset(0); off < size; off++ {
			out = append(out, rowRef{chunk: chunkID, offset: off})
		}
	}
	return out
}
