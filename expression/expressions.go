package expression

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/dot5enko/column-query-engine/schema"
)

// ValueExpression is a literal.
type ValueExpression struct {
	Value schema.AllTypeVariant
}

func NewValue(v schema.AllTypeVariant) *ValueExpression {
	return &ValueExpression{Value: v}
}

func (e *ValueExpression) Kind() Kind                { return KindValue }
func (e *ValueExpression) Arguments() []Expression   { return nil }
func (e *ValueExpression) DataType() schema.DataType { return e.Value.Type }
func (e *ValueExpression) RequiresComputation() bool { return false }

func (e *ValueExpression) WithArguments(args []Expression) Expression {
	if len(args) != 0 {
		panic("value expressions take no arguments")
	}
	clone := *e
	return &clone
}

func (e *ValueExpression) Description() string {
	return e.Value.String()
}

func (e *ValueExpression) shallowEquals(other Expression) bool {
	o := other.(*ValueExpression)
	if e.Value.IsNull() || o.Value.IsNull() {
		return e.Value.IsNull() && o.Value.IsNull()
	}
	return e.Value.Type == o.Value.Type && schema.VariantsEqual(e.Value, o.Value)
}

func (e *ValueExpression) shallowHash(h *xxhash.Digest) {
	h.Write(e.Value.AppendKeyBytes(nil))
}

type ArithmeticOperator uint8

const (
	Addition ArithmeticOperator = iota
	Subtraction
	Multiplication
	Division
	Modulo
)

func (op ArithmeticOperator) String() string {
	switch op {
	case Addition:
		return "+"
	case Subtraction:
		return "-"
	case Multiplication:
		return "*"
	case Division:
		return "/"
	case Modulo:
		return "%"
	default:
		panic(fmt.Sprintf("unknown arithmetic operator %d", uint8(op)))
	}
}

type ArithmeticExpression struct {
	Operator ArithmeticOperator
	args     []Expression
}

func NewArithmetic(op ArithmeticOperator, left, right Expression) *ArithmeticExpression {
	return &ArithmeticExpression{Operator: op, args: []Expression{left, right}}
}

func (e *ArithmeticExpression) Kind() Kind              { return KindArithmetic }
func (e *ArithmeticExpression) Arguments() []Expression { return e.args }
func (e *ArithmeticExpression) Left() Expression        { return e.args[0] }
func (e *ArithmeticExpression) Right() Expression       { return e.args[1] }

func (e *ArithmeticExpression) DataType() schema.DataType {
	return schema.PromoteDataTypes(e.args[0].DataType(), e.args[1].DataType())
}

func (e *ArithmeticExpression) RequiresComputation() bool { return true }

func (e *ArithmeticExpression) WithArguments(args []Expression) Expression {
	if len(args) != 2 {
		panic("arithmetic expressions take two arguments")
	}
	return &ArithmeticExpression{Operator: e.Operator, args: args}
}

func (e *ArithmeticExpression) Description() string {
	return fmt.Sprintf("(%s %s %s)", e.args[0].Description(), e.Operator, e.args[1].Description())
}

func (e *ArithmeticExpression) shallowEquals(other Expression) bool {
	return e.Operator == other.(*ArithmeticExpression).Operator
}

func (e *ArithmeticExpression) shallowHash(h *xxhash.Digest) {
	writeUint64(h, uint64(e.Operator))
}

// PredicateExpression covers binary comparisons, BETWEEN (three
// arguments) and IS (NOT) NULL (one argument).
type PredicateExpression struct {
	Condition schema.PredicateCondition
	args      []Expression
}

func NewBinaryPredicate(cond schema.PredicateCondition, left, right Expression) *PredicateExpression {
	switch cond {
	case schema.BetweenInclusive, schema.IsNull, schema.IsNotNull:
		panic("not a binary predicate condition: " + cond.String())
	}
	return &PredicateExpression{Condition: cond, args: []Expression{left, right}}
}

func NewBetweenPredicate(operand, lower, upper Expression) *PredicateExpression {
	return &PredicateExpression{
		Condition: schema.BetweenInclusive,
		args:      []Expression{operand, lower, upper},
	}
}

func NewIsNullPredicate(cond schema.PredicateCondition, operand Expression) *PredicateExpression {
	if cond != schema.IsNull && cond != schema.IsNotNull {
		panic("not a null predicate condition: " + cond.String())
	}
	return &PredicateExpression{Condition: cond, args: []Expression{operand}}
}

func (e *PredicateExpression) Kind() Kind              { return KindPredicate }
func (e *PredicateExpression) Arguments() []Expression { return e.args }

func (e *PredicateExpression) DataType() schema.DataType {
	// predicates evaluate to int32 0/1, the engine has no bool column type
	return schema.Int32Type
}

func (e *PredicateExpression) RequiresComputation() bool { return true }

func (e *PredicateExpression) WithArguments(args []Expression) Expression {
	return &PredicateExpression{Condition: e.Condition, args: args}
}

func (e *PredicateExpression) Description() string {
	switch e.Condition {
	case schema.BetweenInclusive:
		return fmt.Sprintf("%s BETWEEN %s AND %s", e.args[0].Description(), e.args[1].Description(), e.args[2].Description())
	case schema.IsNull, schema.IsNotNull:
		return fmt.Sprintf("%s %s", e.args[0].Description(), e.Condition)
	default:
		return fmt.Sprintf("%s %s %s", e.args[0].Description(), e.Condition, e.args[1].Description())
	}
}

func (e *PredicateExpression) shallowEquals(other Expression) bool {
	return e.Condition == other.(*PredicateExpression).Condition
}

func (e *PredicateExpression) shallowHash(h *xxhash.Digest) {
	writeUint64(h, uint64(e.Condition))
}

type LogicalOperator uint8

const (
	LogicalAnd LogicalOperator = iota
	LogicalOr
)

func (op LogicalOperator) String() string {
	if op == LogicalAnd {
		return "AND"
	}
	return "OR"
}

type LogicalExpression struct {
	Operator LogicalOperator
	args     []Expression
}

func NewLogical(op LogicalOperator, left, right Expression) *LogicalExpression {
	return &LogicalExpression{Operator: op, args: []Expression{left, right}}
}

func (e *LogicalExpression) Kind() Kind              { return KindLogical }
func (e *LogicalExpression) Arguments() []Expression { return e.args }
func (e *LogicalExpression) Left() Expression        { return e.args[0] }
func (e *LogicalExpression) Right() Expression       { return e.args[1] }

func (e *LogicalExpression) DataType() schema.DataType { return schema.Int32Type }
func (e *LogicalExpression) RequiresComputation() bool { return true }

func (e *LogicalExpression) WithArguments(args []Expression) Expression {
	if len(args) != 2 {
		panic("logical expressions take two arguments")
	}
	return &LogicalExpression{Operator: e.Operator, args: args}
}

func (e *LogicalExpression) Description() string {
	return fmt.Sprintf("(%s %s %s)", e.args[0].Description(), e.Operator, e.args[1].Description())
}

func (e *LogicalExpression) shallowEquals(other Expression) bool {
	return e.Operator == other.(*LogicalExpression).Operator
}

func (e *LogicalExpression) shallowHash(h *xxhash.Digest) {
	writeUint64(h, uint64(e.Operator))
}

type AggregateFunction uint8

const (
	Min AggregateFunction = iota
	Max
	Sum
	Avg
	Count
	CountDistinct
	StandardDeviationSample
	Any
)

func (f AggregateFunction) String() string {
	switch f {
	case Min:
		return "MIN"
	case Max:
		return "MAX"
	case Sum:
		return "SUM"
	case Avg:
		return "AVG"
	case Count:
		return "COUNT"
	case CountDistinct:
		return "COUNT DISTINCT"
	case StandardDeviationSample:
		return "STDDEV_SAMP"
	case Any:
		return "ANY"
	default:
		panic(fmt.Sprintf("unknown aggregate function %d", uint8(f)))
	}
}

type AggregateExpression struct {
	Function AggregateFunction
	args     []Expression
}

func NewAggregate(fn AggregateFunction, operand Expression) *AggregateExpression {
	return &AggregateExpression{Function: fn, args: []Expression{operand}}
}

// NewCountStar counts rows, the operand slot stays empty.
func NewCountStar() *AggregateExpression {
	return &AggregateExpression{Function: Count}
}

func (e *AggregateExpression) Kind() Kind              { return KindAggregate }
func (e *AggregateExpression) Arguments() []Expression { return e.args }

func (e *AggregateExpression) Operand() Expression {
	if len(e.args) == 0 {
		return nil
	}
	return e.args[0]
}

func (e *AggregateExpression) DataType() schema.DataType {
	switch e.Function {
	case Count, CountDistinct:
		return schema.Int64Type
	case Avg, StandardDeviationSample:
		return schema.DoubleType
	case Sum:
		operand := e.args[0].DataType()
		if operand.IsFloatingPoint() {
			return schema.DoubleType
		}
		return schema.Int64Type
	default:
		return e.args[0].DataType()
	}
}

func (e *AggregateExpression) RequiresComputation() bool { return true }

func (e *AggregateExpression) WithArguments(args []Expression) Expression {
	return &AggregateExpression{Function: e.Function, args: args}
}

func (e *AggregateExpression) Description() string {
	if len(e.args) == 0 {
		return fmt.Sprintf("%s(*)", e.Function)
	}
	return fmt.Sprintf("%s(%s)", e.Function, e.args[0].Description())
}

func (e *AggregateExpression) shallowEquals(other Expression) bool {
	return e.Function == other.(*AggregateExpression).Function
}

func (e *AggregateExpression) shallowHash(h *xxhash.Digest) {
	writeUint64(h, uint64(e.Function))
}

type ParameterID uint16

// CorrelatedParameterExpression stands in for a value supplied by an
// outer query row.
type CorrelatedParameterExpression struct {
	ParameterID ParameterID

	// column of the outer plan the parameter is bound to
	ReferencedColumn LQPColumnReference
	ValueDataType    schema.DataType
}

func NewCorrelatedParameter(id ParameterID, ref LQPColumnReference, dt schema.DataType) *CorrelatedParameterExpression {
	return &CorrelatedParameterExpression{ParameterID: id, ReferencedColumn: ref, ValueDataType: dt}
}

func (e *CorrelatedParameterExpression) Kind() Kind                { return KindParameter }
func (e *CorrelatedParameterExpression) Arguments() []Expression   { return nil }
func (e *CorrelatedParameterExpression) DataType() schema.DataType { return e.ValueDataType }
func (e *CorrelatedParameterExpression) RequiresComputation() bool { return false }

func (e *CorrelatedParameterExpression) WithArguments(args []Expression) Expression {
	if len(args) != 0 {
		panic("parameter expressions take no arguments")
	}
	clone := *e
	clone.ReferencedColumn.Lineage = append([]LineageStep(nil), e.ReferencedColumn.Lineage...)
	return &clone
}

func (e *CorrelatedParameterExpression) Description() string {
	return fmt.Sprintf("$%d", e.ParameterID)
}

func (e *CorrelatedParameterExpression) shallowEquals(other Expression) bool {
	o := other.(*CorrelatedParameterExpression)
	return e.ParameterID == o.ParameterID && e.ReferencedColumn.Equals(o.ReferencedColumn)
}

func (e *CorrelatedParameterExpression) shallowHash(h *xxhash.Digest) {
	writeUint64(h, uint64(e.ParameterID))
}

// SubqueryExpression wraps a nested plan plus its correlated parameter
// bindings.
type SubqueryExpression struct {
	Plan LQPNode

	// parameter id -> outer column feeding it
	Parameters []CorrelatedBinding
}

type CorrelatedBinding struct {
	ParameterID ParameterID
	Column      LQPColumnReference
}

func NewSubquery(plan LQPNode, parameters ...CorrelatedBinding) *SubqueryExpression {
	return &SubqueryExpression{Plan: plan, Parameters: parameters}
}

func (e *SubqueryExpression) Kind() Kind              { return KindSubquery }
func (e *SubqueryExpression) Arguments() []Expression { return nil }

func (e *SubqueryExpression) IsCorrelated() bool {
	return len(e.Parameters) > 0
}

func (e *SubqueryExpression) DataType() schema.DataType {
	// single-column subqueries have a value type, the engine resolves it
	// during translation; structurally the subquery is opaque
	return schema.NullType
}

func (e *SubqueryExpression) RequiresComputation() bool { return true }

func (e *SubqueryExpression) WithArguments(args []Expression) Expression {
	if len(args) != 0 {
		panic("subquery expressions take no arguments")
	}
	clone := *e
	clone.Parameters = append([]CorrelatedBinding(nil), e.Parameters...)
	return &clone
}

func (e *SubqueryExpression) Description() string {
	var sb strings.Builder
	sb.WriteString("SUBQUERY")
	if e.IsCorrelated() {
		sb.WriteString("(correlated)")
	}
	return sb.String()
}

func (e *SubqueryExpression) shallowEquals(other Expression) bool {
	o := other.(*SubqueryExpression)
	if len(e.Parameters) != len(o.Parameters) {
		return false
	}
	for i := range e.Parameters {
		if e.Parameters[i].ParameterID != o.Parameters[i].ParameterID {
			return false
		}
		if !e.Parameters[i].Column.Equals(o.Parameters[i].Column) {
			return false
		}
	}
	if e.Plan == o.Plan {
		return true
	}
	return e.Plan != nil && o.Plan != nil && e.Plan.PlanEquals(o.Plan)
}

func (e *SubqueryExpression) shallowHash(h *xxhash.Digest) {
	if e.Plan != nil {
		writeUint64(h, e.Plan.Hash())
	}
	for _, p := range e.Parameters {
		writeUint64(h, uint64(p.ParameterID))
	}
}

// ExistsExpression tests a subquery for row existence.
type ExistsExpression struct {
	args []Expression
}

func NewExists(subquery *SubqueryExpression) *ExistsExpression {
	return &ExistsExpression{args: []Expression{subquery}}
}

func (e *ExistsExpression) Kind() Kind              { return KindExists }
func (e *ExistsExpression) Arguments() []Expression { return e.args }

func (e *ExistsExpression) Subquery() *SubqueryExpression {
	return e.args[0].(*SubqueryExpression)
}

func (e *ExistsExpression) DataType() schema.DataType { return schema.Int32Type }
func (e *ExistsExpression) RequiresComputation() bool { return true }

func (e *ExistsExpression) WithArguments(args []Expression) Expression {
	if len(args) != 1 {
		panic("exists expressions take one argument")
	}
	return &ExistsExpression{args: args}
}

func (e *ExistsExpression) Description() string {
	return fmt.Sprintf("EXISTS(%s)", e.args[0].Description())
}

func (e *ExistsExpression) shallowEquals(Expression) bool { return true }

func (e *ExistsExpression) shallowHash(*xxhash.Digest) {}
