package operators

import (
	"fmt"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

// JoinPredicate compares one left column against one right column.
type JoinPredicate struct {
	LeftColumn  schema.ColumnID
	RightColumn schema.ColumnID
	Condition   schema.PredicateCondition
}

func (p JoinPredicate) String() string {
	return fmt.Sprintf("left#%d %s right#%d", p.LeftColumn, p.Condition, p.RightColumn)
}

// predicateHolds evaluates a comparison; NULL operands never match.
func predicateHolds(cond schema.PredicateCondition, a, b schema.AllTypeVariant) bool {
	if a.IsNull() || b.IsNull() {
		return false
	}
	cmp := schema.CompareVariants(a, b)
	switch cond {
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
	default:
		panic("unsupported join condition " + cond.String())
	}
}

func validateJoinInputs(left, right *storage.Table, primary JoinPredicate, mode schema.JoinMode) {
	if mode == schema.JoinCross {
		panic("cross joins take no predicate, use the nested loop operator without one")
	}
	if int(primary.LeftColumn) >= left.ColumnCount() {
		panic(fmt.Sprintf("join column %d out of left range", primary.LeftColumn))
	}
	if int(primary.RightColumn) >= right.ColumnCount() {
		panic(fmt.Sprintf("join column %d out of right range", primary.RightColumn))
	}
}

// secondaryPredicatesHold checks the optional extra predicates for one
// candidate row pair, in input-table coordinates.
func secondaryPredicatesHold(left, right *storage.Table, leftRow, rightRow rowRef, predicates []JoinPredicate) bool {
	for _, p := range predicates {
		a := left.GetChunk(leftRow.chunk).GetSegment(p.LeftColumn).Value(leftRow.offset)
		b := right.GetChunk(rightRow.chunk).GetSegment(p.RightColumn).Value(rightRow.offset)
		if !predicateHolds(p.Condition, a, b) {
			return false
		}
	}
	return true
}

// rowRef addresses a row of an input table (not its backing data table).
type rowRef struct {
	chunk  schema.ChunkID
	offset schema.ChunkOffset
}

// joinResult collects matched row pairs in data-table coordinates and
// materializes the reference output.
type joinResult struct {
	leftIn  *storage.Table
	rightIn *storage.Table
	mode    schema.JoinMode

	leftRows  []schema.RowID
	rightRows []schema.RowID

	orderedBy        []schema.SortColumnDefinition
	valueClusteredBy []schema.ColumnID
}

func newJoinResult(leftIn, rightIn *storage.Table, mode schema.JoinMode) *joinResult {
	return &joinResult{leftIn: leftIn, rightIn: rightIn, mode: mode}
}

func (r *joinResult) addPair(left, right rowRef) {
	r.leftRows = append(r.leftRows, dataRowID(r.leftIn, left.chunk, left.offset))
	if !r.mode.EmitsOnlyLeftColumns() {
		r.rightRows = append(r.rightRows, dataRowID(r.rightIn, right.chunk, right.offset))
	}
}

func (r *joinResult) addLeftOnly(left rowRef) {
	r.leftRows = append(r.leftRows, dataRowID(r.leftIn, left.chunk, left.offset))
	if !r.mode.EmitsOnlyLeftColumns() {
		r.rightRows = append(r.rightRows, schema.NullRowID)
	}
}

func (r *joinResult) addRightOnly(right rowRef) {
	r.leftRows = append(r.leftRows, schema.NullRowID)
	r.rightRows = append(r.rightRows, dataRowID(r.rightIn, right.chunk, right.offset))
}

// table assembles the reference output: left columns, then (for the
// two-sided modes) right columns, nullability widened per join mode.
func (r *joinResult) table() *storage.Table {
	leftData, leftMap := resolveScanSide(r.leftIn)

	columns := make([]storage.TableColumnDefinition, 0, r.leftIn.ColumnCount()+r.rightIn.ColumnCount())
	for _, def := range r.leftIn.ColumnDefinitions() {
		if r.mode == schema.JoinRight || r.mode == schema.JoinFullOuter {
			def.Nullable = true
		}
		columns = append(columns, def)
	}

	twoSided := !r.mode.EmitsOnlyLeftColumns()
	if twoSided {
		for _, def := range r.rightIn.ColumnDefinitions() {
			if r.mode == schema.JoinLeft || r.mode == schema.JoinFullOuter {
				def.Nullable = true
			}
			columns = append(columns, def)
		}
	}

	out := storage.NewTable(columns, storage.ReferenceTable, r.leftIn.TargetChunkSize())
	if len(r.leftRows) == 0 {
		return out
	}

	leftPositions := storage.PosListFromRows(r.leftRows)
	segments := referenceChunkFor(leftData, leftMap, leftPositions)

	if twoSided {
		rightData, rightMap := resolveScanSide(r.rightIn)
		rightPositions := storage.PosListFromRows(r.rightRows)
		segments = append(segments, referenceChunkFor(rightData, rightMap, rightPositions)...)
	}

	chunk := out.AppendChunk(segments)
	if r.orderedBy != nil {
		chunk.SetOrderedBy(r.orderedBy)
	}
	if r.valueClusteredBy != nil {
		chunk.SetValueClusteredBy(r.valueClusteredBy)
	}
	return out
}
