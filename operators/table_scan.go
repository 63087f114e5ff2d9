package operators

import (
	"context"
	"fmt"

	"github.com/dot5enko/column-query-engine/ops"
	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

// TableScan emits a reference table selecting the rows of one column
// that satisfy (condition, value [, value2]). Reference inputs are
// resolved per referenced chunk so the specialized paths always see
// non-reference segments.
type TableScan struct {
	base

	ColumnID  schema.ColumnID
	Condition schema.PredicateCondition
	Value     schema.AllTypeVariant
	Value2    schema.AllTypeVariant
}

func NewTableScan(in Operator, column schema.ColumnID, condition schema.PredicateCondition, value schema.AllTypeVariant) *TableScan {
	return &TableScan{
		base:      newBase("TableScan", in, nil),
		ColumnID:  column,
		Condition: condition,
		Value:     value,
	}
}

func NewTableScanBetween(in Operator, column schema.ColumnID, lower, upper schema.AllTypeVariant) *TableScan {
	return &TableScan{
		base:      newBase("TableScan", in, nil),
		ColumnID:  column,
		Condition: schema.BetweenInclusive,
		Value:     lower,
		Value2:    upper,
	}
}

func (op *TableScan) Description(mode DescriptionMode) string {
	if mode == DescriptionDetailed {
		return fmt.Sprintf("TableScan col#%d %s %s", op.ColumnID, op.Condition, op.Value)
	}
	return "TableScan"
}

func (op *TableScan) DeepCopy() Operator {
	copied := NewTableScan(op.left.DeepCopy(), op.ColumnID, op.Condition, op.Value)
	copied.Value2 = op.Value2
	return copied
}

func (op *TableScan) Execute(ctx context.Context) error {
	return op.runOnce(ctx, op.scan)
}

func (op *TableScan) scan(ctx context.Context) (*storage.Table, error) {
	input := leftTable(&op.base)
	if int(op.ColumnID) >= input.ColumnCount() {
		panic(fmt.Sprintf("scan column %d out of range", op.ColumnID))
	}

	dataTable, columnMap := resolveScanSide(input)
	out := storage.NewTable(input.ColumnDefinitions(), storage.ReferenceTable, input.TargetChunkSize())

	chunkCount := input.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < chunkCount; chunkID++ {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}

		matches := storage.NewPosList(0)
		chunk := input.GetChunk(chunkID)
		segment := chunk.GetSegment(op.ColumnID)

		if ref, isRef := segment.(*storage.ReferenceSegment); isRef {
			op.scanReferenceSegment(ref, matches)
		} else {
			if op.canPruneChunk(chunk) {
				continue
			}
			op.scanNonReferenceSegment(segment, chunk, chunkID, nil, matches)
		}

		if matches.Size() == 0 {
			continue
		}
		out.AppendChunk(referenceChunkFor(dataTable, columnMap, matches))
	}

	return out, nil
}

func (op *TableScan) canPruneChunk(chunk *storage.Chunk) bool {
	statistics := chunk.SegmentStatistics(op.ColumnID)
	if statistics == nil {
		return false
	}
	if statistics.MinMax.CanPrune(op.Condition, op.Value, op.Value2) {
		return true
	}
	return statistics.Range.CanPrune(op.Condition, op.Value, op.Value2)
}

// scanReferenceSegment partitions the position list by referenced chunk
// and recurses into the non-reference segments with a position filter.
func (op *TableScan) scanReferenceSegment(ref *storage.ReferenceSegment, matches *storage.PosList) {
	table := ref.ReferencedTable()
	column := ref.ReferencedColumn()

	byChunk := ref.PosList().SplitByChunk()
	for chunkID := schema.ChunkID(0); chunkID < table.ChunkCount(); chunkID++ {
		offsets, ok := byChunk[chunkID]
		if !ok {
			continue
		}
		chunk := table.GetChunk(chunkID)
		op.scanNonReferenceSegment(chunk.GetSegment(column), chunk, chunkID, offsets, matches)
	}
}

func (op *TableScan) scanNonReferenceSegment(segment storage.Segment, chunk *storage.Chunk, chunkID schema.ChunkID, filter []schema.ChunkOffset, matches *storage.PosList) {
	// IS NULL / IS NOT NULL ignore the value entirely
	if op.Condition == schema.IsNull || op.Condition == schema.IsNotNull {
		wantNull := op.Condition == schema.IsNull
		segment.ForEachValue(filter, func(v schema.AllTypeVariant, off schema.ChunkOffset) {
			if v.IsNull() == wantNull {
				matches.Append(schema.RowID{Chunk: chunkID, Offset: off})
			}
		})
		return
	}

	if op.Value.IsNull() {
		// comparisons with NULL match nothing
		return
	}

	if dict, isDict := segment.(storage.BaseDictionarySegment); isDict {
		op.scanDictionarySegment(dict, chunkID, filter, matches)
		return
	}

	if filter == nil {
		if mode, sorted := chunk.OrderModeOfColumn(op.ColumnID); sorted && mode.IsAscending() {
			if op.scanSortedSegment(segment, chunkID, mode, matches) {
				return
			}
		}

		if op.scanUnencodedFast(segment, chunkID, matches) {
			return
		}
	}

	op.scanGeneric(segment, chunkID, filter, matches)
}

// scanGeneric compares variants position by position.
func (op *TableScan) scanGeneric(segment storage.Segment, chunkID schema.ChunkID, filter []schema.ChunkOffset, matches *storage.PosList) {
	segment.ForEachValue(filter, func(v schema.AllTypeVariant, off schema.ChunkOffset) {
		if v.IsNull() {
			return
		}
		if op.variantMatches(v) {
			matches.Append(schema.RowID{Chunk: chunkID, Offset: off})
		}
	})
}

func (op *TableScan) variantMatches(v schema.AllTypeVariant) bool {
	cmp := schema.CompareVariants(v, op.Value)
	switch op.Condition {
	case schema.Equals:
		return cmp == 0
	case schema.NotEquals:
		return cmp != 0
	case schema.LessThan:
		return cmp < 0
	case schema.LessThanEquals:
		return cmp <= 0
	case schema.GreaterThan:
		return cmp > 0
	case schema.GreaterThanEquals:
		return cmp >= 0
	case schema.BetweenInclusive:
		return cmp >= 0 && schema.CompareVariants(v, op.Value2) <= 0
	default:
		panic("unhandled scan condition " + op.Condition.String())
	}
}

// scanDictionarySegment translates the search values into value-id space
// once and compares compressed ids, with the early outs dictionary
// encoding allows.
func (op *TableScan) scanDictionarySegment(dict storage.BaseDictionarySegment, chunkID schema.ChunkID, filter []schema.ChunkOffset, matches *storage.PosList) {
	sentinel := dict.NullSentinel()

	emitIf := func(test func(schema.ValueID) bool) {
		dict.ForEachValueID(filter, func(id schema.ValueID, off schema.ChunkOffset) {
			if id != sentinel && test(id) {
				matches.Append(schema.RowID{Chunk: chunkID, Offset: off})
			}
		})
	}

	switch op.Condition {
	case schema.Equals:
		lower := dict.LowerBound(op.Value)
		if lower == dict.UpperBound(op.Value) {
			// value not in dictionary
			return
		}
		emitIf(func(id schema.ValueID) bool { return id == lower })

	case schema.NotEquals:
		lower := dict.LowerBound(op.Value)
		if lower == dict.UpperBound(op.Value) {
			// value absent: every non-null row matches
			emitIf(func(schema.ValueID) bool { return true })
			return
		}
		emitIf(func(id schema.ValueID) bool { return id != lower })

	case schema.LessThan:
		bound := dict.LowerBound(op.Value)
		if bound == 0 {
			return
		}
		emitIf(func(id schema.ValueID) bool { return id < bound })

	case schema.LessThanEquals:
		bound := dict.UpperBound(op.Value)
		if bound == 0 {
			return
		}
		emitIf(func(id schema.ValueID) bool { return id < bound })

	case schema.GreaterThan:
		bound := dict.UpperBound(op.Value)
		if int(bound) == dict.UniqueValuesCount() {
			return
		}
		emitIf(func(id schema.ValueID) bool { return id >= bound })

	case schema.GreaterThanEquals:
		bound := dict.LowerBound(op.Value)
		if int(bound) == dict.UniqueValuesCount() {
			return
		}
		emitIf(func(id schema.ValueID) bool { return id >= bound })

	case schema.BetweenInclusive:
		lo := dict.LowerBound(op.Value)
		hi := dict.UpperBound(op.Value2)
		if lo >= hi {
			return
		}
		emitIf(func(id schema.ValueID) bool { return id >= lo && id < hi })

	default:
		panic("unhandled scan condition " + op.Condition.String())
	}
}

// scanSortedSegment binary-searches the matching offset range. NotEquals
// produces two ranges whose concatenation is emitted. Returns false when
// the segment layout rules the fast path out.
func (op *TableScan) scanSortedSegment(segment storage.Segment, chunkID schema.ChunkID, mode schema.OrderMode, matches *storage.PosList) bool {
	size := int(segment.Size())
	if size == 0 {
		return true
	}

	// locate the contiguous non-null region
	start, end := 0, size
	if mode.NullsFirst() {
		start = searchOffsets(size, func(i int) bool { return !segment.Value(schema.ChunkOffset(i)).IsNull() })
	} else {
		end = searchOffsets(size, func(i int) bool { return segment.Value(schema.ChunkOffset(i)).IsNull() })
	}
	if start == end {
		return true
	}

	valueAt := func(i int) schema.AllTypeVariant {
		return segment.Value(schema.ChunkOffset(i))
	}

	lowerBound := func(v schema.AllTypeVariant) int {
		return start + searchOffsets(end-start, func(i int) bool {
			return schema.CompareVariants(valueAt(start+i), v) >= 0
		})
	}
	upperBound := func(v schema.AllTypeVariant) int {
		return start + searchOffsets(end-start, func(i int) bool {
			return schema.CompareVariants(valueAt(start+i), v) > 0
		})
	}

	appendRange := func(from, to int) {
		// contiguous offsets are written by incrementing, not re-read
		for off := from; off < to; off++ {
			matches.Append(schema.RowID{Chunk: chunkID, Offset: schema.ChunkOffset(off)})
		}
	}

	switch op.Condition {
	case schema.Equals:
		appendRange(lowerBound(op.Value), upperBound(op.Value))
	case schema.NotEquals:
		lo := lowerBound(op.Value)
		hi := upperBound(op.Value)
		appendRange(start, lo)
		appendRange(hi, end)
	case schema.LessThan:
		appendRange(start, lowerBound(op.Value))
	case schema.LessThanEquals:
		appendRange(start, upperBound(op.Value))
	case schema.GreaterThan:
		appendRange(upperBound(op.Value), end)
	case schema.GreaterThanEquals:
		appendRange(lowerBound(op.Value), end)
	case schema.BetweenInclusive:
		appendRange(lowerBound(op.Value), upperBound(op.Value2))
	default:
		return false
	}
	return true
}

func searchOffsets(n int, f func(int) bool) int {
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if f(mid) {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// scanUnencodedFast runs the vectorized kernels over raw value slices.
// Only null-free unencoded segments qualify.
func (op *TableScan) scanUnencodedFast(segment storage.Segment, chunkID schema.ChunkID, matches *storage.PosList) bool {
	switch typed := segment.(type) {
	case *storage.ValueSegment[int32]:
		return scanValuesFast(op, typed, chunkID, matches)
	case *storage.ValueSegment[int64]:
		return scanValuesFast(op, typed, chunkID, matches)
	case *storage.ValueSegment[float32]:
		return scanValuesFast(op, typed, chunkID, matches)
	case *storage.ValueSegment[float64]:
		return scanValuesFast(op, typed, chunkID, matches)
	case *storage.ValueSegment[string]:
		return scanValuesFast(op, typed, chunkID, matches)
	default:
		return false
	}
}

func scanValuesFast[T schema.ColumnType](op *TableScan, segment *storage.ValueSegment[T], chunkID schema.ChunkID, matches *storage.PosList) bool {
	if segment.NullMask() != nil && segment.NullMask().Any() {
		return false
	}

	values := segment.Values()
	out := make([]schema.ChunkOffset, len(values))
	cmp := schema.VariantValue[T](op.Value)

	var filled int
	switch op.Condition {
	case schema.Equals:
		filled = ops.FillMatchesEqual(values, cmp, out)
	case schema.NotEquals:
		filled = ops.FillMatchesNotEqual(values, cmp, out)
	case schema.LessThan:
		filled = ops.FillMatchesLess(values, cmp, out)
	case schema.LessThanEquals:
		filled = ops.FillMatchesLessEqual(values, cmp, out)
	case schema.GreaterThan:
		filled = ops.FillMatchesGreater(values, cmp, out)
	case schema.GreaterThanEquals:
		filled = ops.FillMatchesGreaterEqual(values, cmp, out)
	case schema.BetweenInclusive:
		filled = ops.FillMatchesBetween(values, cmp, schema.VariantValue[T](op.Value2), out)
	default:
		return false
	}

	for _, off := range out[:filled] {
		matches.Append(schema.RowID{Chunk: chunkID, Offset: off})
	}
	return true
}
