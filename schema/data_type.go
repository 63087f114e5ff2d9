package schema

type DataType uint8

const (
	NullType DataType = iota
	Int32Type
	Int64Type
	FloatType
	DoubleType
	StringType
)

func (d DataType) String() string {
	switch d {
	case NullType:
		return "Null"
	case Int32Type:
		return "Int32"
	case Int64Type:
		return "Int64"
	case FloatType:
		return "Float"
	case DoubleType:
		return "Double"
	case StringType:
		return "String"
	default:
		return ""
	}
}

func (d DataType) IsNumeric() bool {
	switch d {
	case Int32Type, Int64Type, FloatType, DoubleType:
		return true
	default:
		return false
	}
}

func (d DataType) IsFloatingPoint() bool {
	return d == FloatType || d == DoubleType
}

// ColumnType is the closed set of Go types a segment may hold.
type ColumnType interface {
	int32 | int64 | float32 | float64 | string
}

type NumericColumnType interface {
	int32 | int64 | float32 | float64
}

// DataTypeOf maps a Go column type onto its tag.
func DataTypeOf[T ColumnType]() DataType {
	var zero T
	switch any(zero).(type) {
	case int32:
		return Int32Type
	case int64:
		return Int64Type
	case float32:
		return FloatType
	case float64:
		return DoubleType
	case string:
		return StringType
	default:
		panic("unreachable")
	}
}

// PromoteDataTypes resolves the result type of arithmetic over two
// operand types, SQL style: wider integral wins, floating point wins
// over integral, Double wins over Float.
func PromoteDataTypes(a, b DataType) DataType {
	if a == NullType {
		return b
	}
	if b == NullType {
		return a
	}
	if a == StringType || b == StringType {
		if a == b {
			return StringType
		}
		panic("no type promotion between " + a.String() + " and " + b.String())
	}
	if a.IsFloatingPoint() || b.IsFloatingPoint() {
		if a == DoubleType || b == DoubleType {
			return DoubleType
		}
		return FloatType
	}
	if a == Int64Type || b == Int64Type {
		return Int64Type
	}
	return Int32Type
}
