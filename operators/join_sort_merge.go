package operators

import (
	"context"
	"fmt"
	"sort"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

// JoinSortMerge sorts both inputs on their join columns and merges.
// Equality joins emit value-clustered output with both join columns
// marked ascending; the range conditions merge over sorted windows.
type JoinSortMerge struct {
	base

	Mode      schema.JoinMode
	Primary   JoinPredicate
	Secondary []JoinPredicate
}

func NewJoinSortMerge(left, right Operator, mode schema.JoinMode, primary JoinPredicate, secondary []JoinPredicate) *JoinSortMerge {
	if mode == schema.JoinCross {
		panic("sort-merge joins cannot run cross joins")
	}
	if primary.Condition != schema.Equals && mode != schema.JoinInner {
		panic("sort-merge join supports non-equality conditions only for inner joins")
	}
	return &JoinSortMerge{
		base:      newBase("JoinSortMerge", left, right),
		Mode:      mode,
		Primary:   primary,
		Secondary: secondary,
	}
}

func (op *JoinSortMerge) Description(mode DescriptionMode) string {
	if mode == DescriptionDetailed {
		return fmt.Sprintf("JoinSortMerge %s [%s]", op.Mode, op.Primary)
	}
	return "JoinSortMerge"
}

func (op *JoinSortMerge) DeepCopy() Operator {
	return NewJoinSortMerge(op.left.DeepCopy(), op.right.DeepCopy(), op.Mode, op.Primary,
		append([]JoinPredicate(nil), op.Secondary...))
}

func (op *JoinSortMerge) Execute(ctx context.Context) error {
	return op.runOnce(ctx, op.join)
}

type mergeRow struct {
	key schema.AllTypeVariant
	row rowRef
}

func (op *JoinSortMerge) join(ctx context.Context) (*storage.Table, error) {
	left := leftTable(&op.base)
	right := rightTable(&op.base)
	validateJoinInputs(left, right, op.Primary, op.Mode)

	leftRows := materializeSide(left, op.Primary.LeftColumn)
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}
	rightRows := materializeSide(right, op.Primary.RightColumn)
	if err := checkCancelled(ctx); err != nil {
		return nil, err
	}

	sortMergeRows(leftRows)
	sortMergeRows(rightRows)

	result := newJoinResult(left, right, op.Mode)

	if op.Primary.Condition == schema.Equals {
		op.mergeEqual(left, right, leftRows, rightRows, result)

		if op.Mode == schema.JoinInner || op.Mode == schema.JoinLeft ||
			op.Mode == schema.JoinRight || op.Mode == schema.JoinFullOuter {
			leftCount := schema.ColumnID(left.ColumnCount())
			result.orderedBy = []schema.SortColumnDefinition{
				{Column: op.Primary.LeftColumn, Mode: schema.Ascending},
				{Column: leftCount + op.Primary.RightColumn, Mode: schema.Ascending},
			}
			result.valueClusteredBy = []schema.ColumnID{
				op.Primary.LeftColumn,
				leftCount + op.Primary.RightColumn,
			}
		}
	} else {
		op.mergeRange(left, right, leftRows, rightRows, result)
	}

	return result.table(), nil
}

func materializeSide(input *storage.Table, column schema.ColumnID) []mergeRow {
	out := make([]mergeRow, 0, input.RowCount())
	chunkCount := input.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < chunkCount; chunkID++ {
		chunk := input.GetChunk(chunkID)
		size := chunk.Size()
		for off := schema.ChunkOffset(0); off < size; off++ {
			out = append(out, mergeRow{
				key: chunk.GetSegment(column).Value(off),
				row: rowRef{chunk: chunkID, offset: off},
			})
		}
	}
	return out
}

// sortMergeRows orders ascending with NULL keys at the end, so the
// merge loops can stop at the first NULL.
func sortMergeRows(rows []mergeRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].key, rows[j].key
		if a.IsNull() || b.IsNull() {
			return !a.IsNull() && b.IsNull()
		}
		return schema.CompareVariants(a, b) < 0
	})
}

func firstNullIndex(rows []mergeRow) int {
	return sort.Search(len(rows), func(i int) bool { return rows[i].key.IsNull() })
}

func (op *JoinSortMerge) mergeEqual(left, right *storage.Table, leftRows, rightRows []mergeRow, result *joinResult) {
	leftEnd := firstNullIndex(leftRows)
	rightEnd := firstNullIndex(rightRows)

	matchedRight := make([]bool, len(rightRows))

	i, j := 0, 0
	for i < leftEnd && j < rightEnd {
		cmp := schema.CompareVariants(leftRows[i].key, rightRows[j].key)
		switch {
		case cmp < 0:
			op.emitUnmatchedLeft(result, leftRows[i].row)
			i++
		case cmp > 0:
			j++
		default:
			// cluster bounds on both sides
			iEnd := i
			for iEnd < leftEnd && schema.CompareVariants(leftRows[iEnd].key, leftRows[i].key) == 0 {
				iEnd++
			}
			jEnd := j
			for jEnd < rightEnd && schema.CompareVariants(rightRows[jEnd].key, rightRows[j].key) == 0 {
				jEnd++
			}

			for li := i; li < iEnd; li++ {
				anyMatch := false
				for rj := j; rj < jEnd; rj++ {
					if !secondaryPredicatesHold(left, right, leftRows[li].row, rightRows[rj].row, op.Secondary) {
						continue
					}
					anyMatch = true
					matchedRight[rj] = true
					switch op.Mode {
					case schema.JoinSemi, schema.JoinAntiNullAsTrue, schema.JoinAntiNullAsFalse:
						// witness only
					default:
						result.addPair(leftRows[li].row, rightRows[rj].row)
					}
					if op.Mode == schema.JoinSemi {
						break
					}
				}

				switch op.Mode {
				case schema.JoinSemi:
					if anyMatch {
						result.addPair(leftRows[li].row, rowRef{})
					}
				case schema.JoinAntiNullAsTrue, schema.JoinAntiNullAsFalse:
					if !anyMatch {
						result.addPair(leftRows[li].row, rowRef{})
					}
				case schema.JoinLeft, schema.JoinFullOuter:
					if !anyMatch {
						result.addLeftOnly(leftRows[li].row)
					}
				}
			}

			i = iEnd
			j = jEnd
		}
	}

	// leftovers on the left side
	for ; i < leftEnd; i++ {
		op.emitUnmatchedLeft(result, leftRows[i].row)
	}

	// NULL keys on the left
	for k := leftEnd; k < len(leftRows); k++ {
		switch op.Mode {
		case schema.JoinLeft, schema.JoinFullOuter:
			result.addLeftOnly(leftRows[k].row)
		case schema.JoinAntiNullAsFalse:
			result.addPair(leftRows[k].row, rowRef{})
		case schema.JoinAntiNullAsTrue:
			if len(rightRows) == 0 {
				result.addPair(leftRows[k].row, rowRef{})
			}
		}
	}

	if op.Mode == schema.JoinRight || op.Mode == schema.JoinFullOuter {
		for rj, m := range matchedRight {
			if !m {
				result.addRightOnly(rightRows[rj].row)
			}
		}
	}
}

func (op *JoinSortMerge) emitUnmatchedLeft(result *joinResult, row rowRef) {
	switch op.Mode {
	case schema.JoinLeft, schema.JoinFullOuter:
		result.addLeftOnly(row)
	case schema.JoinAntiNullAsTrue, schema.JoinAntiNullAsFalse:
		result.addPair(row, rowRef{})
	}
}

// mergeRange pairs each left row with the right window satisfying the
// condition, located by binary search over the sorted right side.
func (op *JoinSortMerge) mergeRange(left, right *storage.Table, leftRows, rightRows []mergeRow, result *joinResult) {
	rightEnd := firstNullIndex(rightRows)
	leftEnd := firstNullIndex(leftRows)

	lowerBound := func(v schema.AllTypeVariant) int {
		return sort.Search(rightEnd, func(i int) bool {
			return schema.CompareVariants(rightRows[i].key, v) >= 0
		})
	}
	upperBound := func(v schema.AllTypeVariant) int {
		return sort.Search(rightEnd, func(i int) bool {
			return schema.CompareVariants(rightRows[i].key, v) > 0
		})
	}

	emitWindow := func(leftRow rowRef, from, to int) {
		for rj := from; rj < to; rj++ {
			if secondaryPredicatesHold(left, right, leftRow, rightRows[rj].row, op.Secondary) {
				result.addPair(leftRow, rightRows[rj].row)
			}
		}
	}

	for li := 0; li < leftEnd; li++ {
		key := leftRows[li].key
		switch op.Primary.Condition {
		case schema.LessThan:
			emitWindow(leftRows[li].row, upperBound(key), rightEnd)
		case schema.LessThanEquals:
			emitWindow(leftRows[li].row, lowerBound(key), rightEnd)
		case schema.GreaterThan:
			emitWindow(leftRows[li].row, 0, lowerBound(key))
		case schema.GreaterThanEquals:
			emitWindow(leftRows[li].row, 0, upperBound(key))
		case schema.NotEquals:
			emitWindow(leftRows[li].row, 0, lowerBound(key))
			emitWindow(leftRows[li].row, upperBound(key), rightEnd)
		default:
			panic("unhandled sort-merge condition " + op.Primary.Condition.String())
		}
	}
}
