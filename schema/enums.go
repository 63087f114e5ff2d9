package schema

import "fmt"

type PredicateCondition uint8

const (
	Equals PredicateCondition = iota
	NotEquals
	LessThan
	LessThanEquals
	GreaterThan
	GreaterThanEquals
	BetweenInclusive
	IsNull
	IsNotNull
)

func (c PredicateCondition) String() string {
	switch c {
	case Equals:
		return "="
	case NotEquals:
		return "!="
	case LessThan:
		return "<"
	case LessThanEquals:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterThanEquals:
		return ">="
	case BetweenInclusive:
		return "BETWEEN"
	case IsNull:
		return "IS NULL"
	case IsNotNull:
		return "IS NOT NULL"
	default:
		panic(fmt.Sprintf("unknown predicate condition %d", uint8(c)))
	}
}

// Flipped mirrors a condition for swapped operands.
func (c PredicateCondition) Flipped() PredicateCondition {
	switch c {
	case LessThan:
		return GreaterThan
	case LessThanEquals:
		return GreaterThanEquals
	case GreaterThan:
		return LessThan
	case GreaterThanEquals:
		return LessThanEquals
	default:
		return c
	}
}

type JoinMode uint8

const (
	JoinInner JoinMode = iota
	JoinLeft
	JoinRight
	JoinFullOuter
	JoinCross
	JoinSemi
	JoinAntiNullAsTrue
	JoinAntiNullAsFalse
)

func (m JoinMode) String() string {
	switch m {
	case JoinInner:
		return "Inner"
	case JoinLeft:
		return "Left"
	case JoinRight:
		return "Right"
	case JoinFullOuter:
		return "FullOuter"
	case JoinCross:
		return "Cross"
	case JoinSemi:
		return "Semi"
	case JoinAntiNullAsTrue:
		return "AntiNullAsTrue"
	case JoinAntiNullAsFalse:
		return "AntiNullAsFalse"
	default:
		panic(fmt.Sprintf("unknown join mode %d", uint8(m)))
	}
}

// EmitsOnlyLeftColumns reports whether the mode produces the left
// input's columns exclusively.
func (m JoinMode) EmitsOnlyLeftColumns() bool {
	return m == JoinSemi || m == JoinAntiNullAsTrue || m == JoinAntiNullAsFalse
}

type UnionMode uint8

const (
	UnionAll UnionMode = iota
	UnionPositions
)

func (m UnionMode) String() string {
	switch m {
	case UnionAll:
		return "All"
	case UnionPositions:
		return "Positions"
	default:
		panic(fmt.Sprintf("unknown union mode %d", uint8(m)))
	}
}

// OrderMode spells both the direction and the NULL placement.
// Ascending/Descending put NULLs first.
type OrderMode uint8

const (
	Ascending OrderMode = iota
	Descending
	AscendingNullsLast
	DescendingNullsLast
)

func (m OrderMode) String() string {
	switch m {
	case Ascending:
		return "Ascending"
	case Descending:
		return "Descending"
	case AscendingNullsLast:
		return "AscendingNullsLast"
	case DescendingNullsLast:
		return "DescendingNullsLast"
	default:
		panic(fmt.Sprintf("unknown order mode %d", uint8(m)))
	}
}

func (m OrderMode) IsAscending() bool {
	return m == Ascending || m == AscendingNullsLast
}

func (m OrderMode) NullsFirst() bool {
	return m == Ascending || m == Descending
}

type SortColumnDefinition struct {
	Column ColumnID
	Mode   OrderMode
}

type EncodingType uint8

const (
	Unencoded EncodingType = iota
	Dictionary
	RunLength
	FixedStringDictionary
	FrameOfReference
)

func (e EncodingType) String() string {
	switch e {
	case Unencoded:
		return "Unencoded"
	case Dictionary:
		return "Dictionary"
	case RunLength:
		return "RunLength"
	case FixedStringDictionary:
		return "FixedStringDictionary"
	case FrameOfReference:
		return "FrameOfReference"
	default:
		panic(fmt.Sprintf("unknown encoding type %d", uint8(e)))
	}
}

type CompressedVectorType uint8

const (
	FixedSize1B CompressedVectorType = iota
	FixedSize2B
	FixedSize4B
	SimdBp128
)

func (c CompressedVectorType) String() string {
	switch c {
	case FixedSize1B:
		return "FixedSize1B"
	case FixedSize2B:
		return "FixedSize2B"
	case FixedSize4B:
		return "FixedSize4B"
	case SimdBp128:
		return "SimdBp128"
	default:
		panic(fmt.Sprintf("unknown compressed vector type %d", uint8(c)))
	}
}
