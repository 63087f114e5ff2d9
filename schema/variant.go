package schema

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// AllTypeVariant carries one typed value or NULL. The dynamic value is
// always one of int32, int64, float32, float64, string and matches Type;
// a NULL carries no value at all.
type AllTypeVariant struct {
	Type  DataType
	Value any
}

func NullValue() AllTypeVariant {
	return AllTypeVariant{Type: NullType}
}

func Variant[T ColumnType](v T) AllTypeVariant {
	return AllTypeVariant{Type: DataTypeOf[T](), Value: v}
}

func (v AllTypeVariant) IsNull() bool {
	return v.Type == NullType
}

// AsFloat widens any numeric variant to float64.
func (v AllTypeVariant) AsFloat() float64 {
	switch val := v.Value.(type) {
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	case float64:
		return val
	default:
		panic(fmt.Sprintf("variant is not numeric: %v", v.Type))
	}
}

func (v AllTypeVariant) AsInt() int64 {
	switch val := v.Value.(type) {
	case int32:
		return int64(val)
	case int64:
		return val
	case float32:
		return int64(val)
	case float64:
		return int64(val)
	default:
		panic(fmt.Sprintf("variant is not numeric: %v", v.Type))
	}
}

func (v AllTypeVariant) AsString() string {
	if s, ok := v.Value.(string); ok {
		return s
	}
	panic(fmt.Sprintf("variant is not a string: %v", v.Type))
}

// VariantValue narrows a variant back to a concrete column type,
// converting between numeric widths when needed.
func VariantValue[T ColumnType](v AllTypeVariant) T {
	var zero T
	switch any(zero).(type) {
	case int32:
		return any(int32(v.AsInt())).(T)
	case int64:
		return any(v.AsInt()).(T)
	case float32:
		return any(float32(v.AsFloat())).(T)
	case float64:
		return any(v.AsFloat()).(T)
	case string:
		return any(v.AsString()).(T)
	default:
		panic("unreachable")
	}
}

// CompareVariants orders two non-NULL variants. Numeric values of
// different widths compare through promotion. NULLs are the caller's
// concern, comparing one panics.
func CompareVariants(a, b AllTypeVariant) int {
	if a.IsNull() || b.IsNull() {
		panic("cannot compare NULL variants")
	}

	if a.Type == StringType || b.Type == StringType {
		as := a.AsString()
		bs := b.AsString()
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}

	promoted := PromoteDataTypes(a.Type, b.Type)
	if promoted == Int32Type || promoted == Int64Type {
		ai := a.AsInt()
		bi := b.AsInt()
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}

	af := a.AsFloat()
	bf := b.AsFloat()
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func VariantsEqual(a, b AllTypeVariant) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	return CompareVariants(a, b) == 0
}

// AppendKeyBytes appends a canonical byte form used for hashing and
// byte-wise row comparison. The type tag is included so that chunks of
// differently typed columns never alias.
func (v AllTypeVariant) AppendKeyBytes(dst []byte) []byte {
	dst = append(dst, byte(v.Type))
	switch val := v.Value.(type) {
	case nil:
		return dst
	case int32:
		return binary.LittleEndian.AppendUint64(dst, uint64(int64(val)))
	case int64:
		return binary.LittleEndian.AppendUint64(dst, uint64(val))
	case float32:
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(float64(val)))
	case float64:
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(val))
	case string:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(val)))
		return append(dst, val...)
	default:
		panic(fmt.Sprintf("unexpected variant payload %T", v.Value))
	}
}

func (v AllTypeVariant) String() string {
	switch val := v.Value.(type) {
	case nil:
		return "NULL"
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
