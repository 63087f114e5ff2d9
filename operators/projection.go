package operators

import (
	"context"
	"fmt"
	"math"

	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

// Projection materializes a list of expressions over its input. Plain
// column references copy through, arithmetic is evaluated per row with
// SQL promotion; NULL operands yield NULL.
type Projection struct {
	base

	Expressions []expression.Expression
}

func NewProjection(in Operator, expressions []expression.Expression) *Projection {
	if len(expressions) == 0 {
		panic("projection needs at least one expression")
	}
	return &Projection{base: newBase("Projection", in, nil), Expressions: expressions}
}

func (op *Projection) DeepCopy() Operator {
	return NewProjection(op.left.DeepCopy(), expression.DeepCopyAll(op.Expressions))
}

func (op *Projection) Execute(ctx context.Context) error {
	return op.runOnce(ctx, op.project)
}

func (op *Projection) project(ctx context.Context) (*storage.Table, error) {
	input := leftTable(&op.base)

	columns := make([]storage.TableColumnDefinition, len(op.Expressions))
	for i, e := range op.Expressions {
		columns[i] = storage.TableColumnDefinition{
			Name:     e.Description(),
			Type:     projectionType(e, input),
			Nullable: true,
		}
		if col, ok := e.(*expression.PQPColumnExpression); ok && col.Name != "" {
			columns[i].Name = col.Name
		}
	}

	out := storage.NewTable(columns, storage.DataTable, input.TargetChunkSize())

	chunkCount := input.ChunkCount()
	for chunkID := schema.ChunkID(0); chunkID < chunkCount; chunkID++ {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}

		chunk := input.GetChunk(chunkID)
		size := chunk.Size()

		segments := make([]storage.Segment, len(op.Expressions))
		for i, e := range op.Expressions {
			seg := storage.NewValueSegmentForType(columns[i].Type, true)
			for off := schema.ChunkOffset(0); off < size; off++ {
				storage.AppendVariant(seg, evaluateOnRow(e, chunk, off))
			}
			segments[i] = seg
		}

		out.AppendChunk(segments).Finalize()
	}

	return out, nil
}

func projectionType(e expression.Expression, input *storage.Table) schema.DataType {
	if col, ok := e.(*expression.PQPColumnExpression); ok {
		return input.ColumnType(col.ColumnID)
	}
	dt := e.DataType()
	if dt == schema.NullType {
		panic("cannot project untyped expression " + e.Description())
	}
	return dt
}

// evaluateOnRow computes a scalar expression against one row.
func evaluateOnRow(e expression.Expression, chunk *storage.Chunk, off schema.ChunkOffset) schema.AllTypeVariant {
	switch typed := e.(type) {
	case *expression.PQPColumnExpression:
		return chunk.GetSegment(typed.ColumnID).Value(off)

	case *expression.ValueExpression:
		return typed.Value

	case *expression.ArithmeticExpression:
		left := evaluateOnRow(typed.Left(), chunk, off)
		right := evaluateOnRow(typed.Right(), chunk, off)
		return evaluateArithmetic(typed.Operator, left, right)

	case *expression.PredicateExpression:
		return evaluatePredicateOnRow(typed, chunk, off)

	case *expression.LogicalExpression:
		left := evaluateOnRow(typed.Left(), chunk, off)
		right := evaluateOnRow(typed.Right(), chunk, off)
		if left.IsNull() || right.IsNull() {
			return schema.NullValue()
		}
		l := left.AsInt() != 0
		r := right.AsInt() != 0
		if typed.Operator == expression.LogicalAnd {
			return boolVariant(l && r)
		}
		return boolVariant(l || r)

	default:
		panic(fmt.Sprintf("projection cannot evaluate %T", e))
	}
}

func evaluateArithmetic(op expression.ArithmeticOperator, left, right schema.AllTypeVariant) schema.AllTypeVariant {
	if left.IsNull() || right.IsNull() {
		return schema.NullValue()
	}

	promoted := schema.PromoteDataTypes(left.Type, right.Type)
	if promoted.IsFloatingPoint() {
		l := left.AsFloat()
		r := right.AsFloat()
		var out float64
		switch op {
		case expression.Addition:
			out = l + r
		case expression.Subtraction:
			out = l - r
		case expression.Multiplication:
			out = l * r
		case expression.Division:
			if r == 0 {
				return schema.NullValue()
			}
			out = l / r
		case expression.Modulo:
			if r == 0 {
				return schema.NullValue()
			}
			out = math.Mod(l, r)
		}
		if promoted == schema.FloatType {
			return schema.Variant(float32(out))
		}
		return schema.Variant(out)
	}

	l := left.AsInt()
	r := right.AsInt()
	var out int64
	switch op {
	case expression.Addition:
		out = l + r
	case expression.Subtraction:
		out = l - r
	case expression.Multiplication:
		out = l * r
	case expression.Division:
		if r == 0 {
			return schema.NullValue()
		}
		out = l / r
	case expression.Modulo:
		if r == 0 {
			return schema.NullValue()
		}
		out = l % r
	}
	if promoted == schema.Int32Type {
		return schema.Variant(int32(out))
	}
	return schema.Variant(out)
}

func evaluatePredicateOnRow(e *expression.PredicateExpression, chunk *storage.Chunk, off schema.ChunkOffset) schema.AllTypeVariant {
	args := e.Arguments()

	switch e.Condition {
	case schema.IsNull:
		return boolVariant(evaluateOnRow(args[0], chunk, off).IsNull())
	case schema.IsNotNull:
		return boolVariant(!evaluateOnRow(args[0], chunk, off).IsNull())
	}

	left := evaluateOnRow(args[0], chunk, off)
	if left.IsNull() {
		return schema.NullValue()
	}

	if e.Condition == schema.BetweenInclusive {
		lower := evaluateOnRow(args[1], chunk, off)
		upper := evaluateOnRow(args[2], chunk, off)
		if lower.IsNull() || upper.IsNull() {
			return schema.NullValue()
		}
		return boolVariant(schema.CompareVariants(left, lower) >= 0 && schema.CompareVariants(left, upper) <= 0)
	}

	right := evaluateOnRow(args[1], chunk, off)
	if right.IsNull() {
		return schema.NullValue()
	}

	cmp := schema.CompareVariants(left, right)
	switch e.Condition {
	case schema.Equals:
		return boolVariant(cmp == 0)
	case schema.NotEquals:
		return boolVariant(cmp != 0)
	case schema.LessThan:
		return boolVariant(cmp < 0)
	case schema.LessThanEquals:
		return boolVariant(cmp <= 0)
	case schema.GreaterThan:
		return boolVariant(cmp > 0)
	case schema.GreaterThanEquals:
		return boolVariant(cmp >= 0)
	default:
		panic("unhandled predicate condition " + e.Condition.String())
	}
}

func boolVariant(b bool) schema.AllTypeVariant {
	if b {
		return schema.Variant(int32(1))
	}
	return schema.Variant(int32(0))
}
