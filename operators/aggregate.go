package operators

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

// AggregateDefinition names one aggregate over an input column.
// InvalidColumnID means COUNT(*).
type AggregateDefinition struct {
	Column   schema.ColumnID
	Function expression.AggregateFunction
}

func (d AggregateDefinition) outputType(input *storage.Table) schema.DataType {
	switch d.Function {
	case expression.Count, expression.CountDistinct:
		return schema.Int64Type
	case expression.Avg, expression.StandardDeviationSample:
		return schema.DoubleType
	case expression.Sum:
		if input.ColumnType(d.Column).IsFloatingPoint() {
			return schema.DoubleType
		}
		return schema.Int64Type
	default:
		return input.ColumnType(d.Column)
	}
}

func (d AggregateDefinition) outputName(input *storage.Table) string {
	if d.Column == schema.InvalidColumnID {
		return fmt.Sprintf("%s(*)", d.Function)
	}
	return fmt.Sprintf("%s(%s)", d.Function, input.ColumnName(d.Column))
}

// accumulator folds one aggregate over the rows of one group.
type accumulator struct {
	fn expression.AggregateFunction

	rows  int64 // every row of the group
	count int64 // rows with a non-null operand

	minmax schema.AllTypeVariant

	sumInt   int64
	sumFloat float64
	isFloat  bool

	distinct map[uint64]struct{}

	// Welford running moments
	mean float64
	m2   float64

	anyValue schema.AllTypeVariant
	anySet   bool
}

func newAccumulator(fn expression.AggregateFunction) *accumulator {
	acc := &accumulator{fn: fn, minmax: schema.NullValue(), anyValue: schema.NullValue()}
	if fn == expression.CountDistinct {
		acc.distinct = map[uint64]struct{}{}
	}
	return acc
}

func (a *accumulator) add(v schema.AllTypeVariant) {
	a.rows++
	if v.IsNull() {
		return
	}
	a.count++

	switch a.fn {
	case expression.Min:
		if a.minmax.IsNull() || schema.CompareVariants(v, a.minmax) < 0 {
			a.minmax = v
		}
	case expression.Max:
		if a.minmax.IsNull() || schema.CompareVariants(v, a.minmax) > 0 {
			a.minmax = v
		}
	case expression.Sum, expression.Avg:
		if v.Type.IsFloatingPoint() {
			a.isFloat = true
		}
		a.sumInt += v.AsInt()
		a.sumFloat += v.AsFloat()
	case expression.CountDistinct:
		a.distinct[xxhash.Sum64(v.AppendKeyBytes(nil))] = struct{}{}
	case expression.StandardDeviationSample:
		val := v.AsFloat()
		delta := val - a.mean
		a.mean += delta / float64(a.count)
		a.m2 += delta * (val - a.mean)
	case expression.Any:
		if !a.anySet {
			a.anyValue = v
			a.anySet = true
		}
	}
}

func (a *accumulator) result(countStar bool) schema.AllTypeVariant {
	switch a.fn {
	case expression.Min, expression.Max:
		return a.minmax
	case expression.Sum:
		if a.count == 0 {
			return schema.NullValue()
		}
		if a.isFloat {
			return schema.Variant(a.sumFloat)
		}
		return schema.Variant(a.sumInt)
	case expression.Avg:
		if a.count == 0 {
			return schema.NullValue()
		}
		return schema.Variant(a.sumFloat / float64(a.count))
	case expression.Count:
		if countStar {
			return schema.Variant(a.rows)
		}
		return schema.Variant(a.count)
	case expression.CountDistinct:
		return schema.Variant(int64(len(a.distinct)))
	case expression.StandardDeviationSample:
		if a.count < 2 {
			return schema.NullValue()
		}
		return schema.Variant(math.Sqrt(a.m2 / float64(a.count-1)))
	case expression.Any:
		return a.anyValue
	default:
		panic("unhandled aggregate function " + a.fn.String())
	}
}

// aggregateOutputColumns builds the output table shape shared by both
// aggregate implementations.
func aggregateOutputColumns(input *storage.Table, groupBy []schema.ColumnID, aggregates []AggregateDefinition) []storage.TableColumnDefinition {
	columns := make([]storage.TableColumnDefinition, 0, len(groupBy)+len(aggregates))
	for _, g := range groupBy {
		columns = append(columns, storage.TableColumnDefinition{
			Name:     input.ColumnName(g),
			Type:     input.ColumnType(g),
			Nullable: input.ColumnNullable(g),
		})
	}
	for _, agg := range aggregates {
		nullable := agg.Function != expression.Count && agg.Function != expression.CountDistinct
		columns = append(columns, storage.TableColumnDefinition{
			Name:     agg.outputName(input),
			Type:     agg.outputType(input),
			Nullable: nullable,
		})
	}
	return columns
}

func validateAggregates(input *storage.Table, groupBy []schema.ColumnID, aggregates []AggregateDefinition) {
	for _, g := range groupBy {
		if int(g) >= input.ColumnCount() {
			panic(fmt.Sprintf("group-by column %d out of range", g))
		}
	}
	for _, agg := range aggregates {
		if agg.Column == schema.InvalidColumnID {
			if agg.Function != expression.Count {
				panic("only COUNT may aggregate over no column")
			}
			continue
		}
		if int(agg.Column) >= input.ColumnCount() {
			panic(fmt.Sprintf("aggregate column %d out of range", agg.Column))
		}
		if agg.Function == expression.Sum || agg.Function == expression.Avg ||
			agg.Function == expression.StandardDeviationSample {
			if !input.ColumnType(agg.Column).IsNumeric() {
				panic(fmt.Sprintf("%s needs a numeric column", agg.Function))
			}
		}
	}
}

// groupKeyBytes serializes the group-by cell values of one row. NULL
// keys carry their own tag, a NULL group is a regular group.
func groupKeyBytes(chunk *storage.Chunk, off schema.ChunkOffset, groupBy []schema.ColumnID, buf []byte) []byte {
	for _, g := range groupBy {
		buf = chunk.GetSegment(g).Value(off).AppendKeyBytes(buf)
	}
	return buf
}

func emitAggregateRows(out *storage.Table, columns []storage.TableColumnDefinition, rows [][]schema.AllTypeVariant) {
	if len(rows) == 0 {
		return
	}

	segments := make([]storage.Segment, len(columns))
	for c, col := range columns {
		seg := storage.NewValueSegmentForType(col.Type, true)
		for _, row := range rows {
			storage.AppendVariant(seg, row[c])
		}
		segments[c] = seg
	}
	out.AppendChunk(segments).Finalize()
}
