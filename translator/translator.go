// Package translator lowers an optimized logical plan into the operator
// tree that executes it.
package translator

import (
	"fmt"
	"slices"

	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/lqp"
	"github.com/dot5enko/column-query-engine/operators"
	"github.com/dot5enko/column-query-engine/schema"
)

// Translate maps every LQP node onto an operator. Shared sub-plans
// translate once and share the operator instance, preserving the DAG.
func Translate(plan lqp.Node) (operators.Operator, error) {
	t := &translator{translated: map[lqp.Node]operators.Operator{}}
	return t.translate(plan)
}

type translator struct {
	translated map[lqp.Node]operators.Operator
}

func (t *translator) translate(node lqp.Node) (operators.Operator, error) {
	if op, ok := t.translated[node]; ok {
		return op, nil
	}

	op, err := t.build(node)
	if err != nil {
		return nil, err
	}
	t.translated[node] = op
	return op, nil
}

func (t *translator) build(node lqp.Node) (operators.Operator, error) {
	switch typed := node.(type) {
	case *lqp.RootNode:
		return t.translate(typed.LeftInput())

	case *lqp.StoredTableNode:
		return t.buildStoredTable(typed), nil

	case *lqp.PredicateNode:
		return t.buildPredicate(typed)

	case *lqp.ProjectionNode:
		return t.buildProjection(typed)

	case *lqp.AggregateNode:
		return t.buildAggregate(typed)

	case *lqp.JoinNode:
		return t.buildJoin(typed)

	case *lqp.SortNode:
		return t.buildSort(typed)

	case *lqp.UnionNode:
		left, err := t.translate(typed.LeftInput())
		if err != nil {
			return nil, err
		}
		right, err := t.translate(typed.RightInput())
		if err != nil {
			return nil, err
		}
		if typed.Mode == schema.UnionPositions {
			return operators.NewUnionPositions(left, right), nil
		}
		return operators.NewUnionAll(left, right), nil

	case *lqp.LimitNode:
		input, err := t.translate(typed.LeftInput())
		if err != nil {
			return nil, err
		}
		return operators.NewLimit(input, typed.RowCount), nil

	default:
		return nil, fmt.Errorf("cannot translate %s node", node.NodeType())
	}
}

// buildStoredTable wraps the table; a pruned node additionally projects
// the surviving columns so operator column positions line up with the
// node's output expressions.
func (t *translator) buildStoredTable(node *lqp.StoredTableNode) operators.Operator {
	wrapper := operators.NewTableWrapper(node.Table)

	pruned := node.PrunedColumnIDs()
	if len(pruned) == 0 {
		return wrapper
	}

	var exprs []expression.Expression
	for id := range node.Table.ColumnDefinitions() {
		columnID := schema.ColumnID(id)
		if slices.Contains(pruned, columnID) {
			continue
		}
		exprs = append(exprs, expression.NewPQPColumn(
			columnID,
			node.Table.ColumnType(columnID),
			node.Table.ColumnNullable(columnID),
			node.Table.ColumnName(columnID),
		))
	}
	return operators.NewProjection(wrapper, exprs)
}

func (t *translator) buildPredicate(node *lqp.PredicateNode) (operators.Operator, error) {
	input, err := t.translate(node.LeftInput())
	if err != nil {
		return nil, err
	}

	pred, ok := node.Predicate().(*expression.PredicateExpression)
	if !ok {
		return nil, fmt.Errorf("predicate %s is not translatable, run the optimizer first", node.Predicate().Description())
	}

	args := pred.Arguments()
	column, err := t.resolveColumnID(node.LeftInput(), args[0])
	if err != nil {
		return nil, err
	}

	switch pred.Condition {
	case schema.IsNull, schema.IsNotNull:
		return operators.NewTableScan(input, column, pred.Condition, schema.NullValue()), nil

	case schema.BetweenInclusive:
		lower, err := literalValue(args[1])
		if err != nil {
			return nil, err
		}
		upper, err := literalValue(args[2])
		if err != nil {
			return nil, err
		}
		return operators.NewTableScanBetween(input, column, lower, upper), nil

	default:
		value, err := literalValue(args[1])
		if err != nil {
			return nil, err
		}
		return operators.NewTableScan(input, column, pred.Condition, value), nil
	}
}

func (t *translator) buildProjection(node *lqp.ProjectionNode) (operators.Operator, error) {
	input, err := t.translate(node.LeftInput())
	if err != nil {
		return nil, err
	}

	pqpExpressions := make([]expression.Expression, len(node.NodeExpressions()))
	for i, e := range node.NodeExpressions() {
		lowered, err := t.lowerExpression(node.LeftInput(), e)
		if err != nil {
			return nil, err
		}
		pqpExpressions[i] = lowered
	}

	return operators.NewProjection(input, pqpExpressions), nil
}

func (t *translator) buildAggregate(node *lqp.AggregateNode) (operators.Operator, error) {
	input, err := t.translate(node.LeftInput())
	if err != nil {
		return nil, err
	}

	groupBy := make([]schema.ColumnID, len(node.GroupByExpressions()))
	for i, e := range node.GroupByExpressions() {
		id, err := t.resolveColumnID(node.LeftInput(), e)
		if err != nil {
			return nil, err
		}
		groupBy[i] = id
	}

	aggregates := make([]operators.AggregateDefinition, len(node.AggregateExpressions()))
	for i, e := range node.AggregateExpressions() {
		agg := e.(*expression.AggregateExpression)
		def := operators.AggregateDefinition{Function: agg.Function, Column: schema.InvalidColumnID}
		if agg.Operand() != nil {
			id, err := t.resolveColumnID(node.LeftInput(), agg.Operand())
			if err != nil {
				return nil, err
			}
			def.Column = id
		}
		aggregates[i] = def
	}

	// a linear aggregate needs the input pre-sorted on the full group-by
	// list, which only a sort below can guarantee; default to hashing
	return operators.NewAggregateHash(input, groupBy, aggregates), nil
}

func (t *translator) buildJoin(node *lqp.JoinNode) (operators.Operator, error) {
	left, err := t.translate(node.LeftInput())
	if err != nil {
		return nil, err
	}
	right, err := t.translate(node.RightInput())
	if err != nil {
		return nil, err
	}

	if node.Mode == schema.JoinCross {
		return operators.NewJoinNestedLoop(left, right, schema.JoinCross, nil), nil
	}

	predicates := make([]operators.JoinPredicate, len(node.JoinPredicates()))
	for i, p := range node.JoinPredicates() {
		pred, ok := p.(*expression.PredicateExpression)
		if !ok {
			return nil, fmt.Errorf("join predicate %s is not a comparison", p.Description())
		}
		args := pred.Arguments()

		condition := pred.Condition
		leftCol, leftErr := t.resolveColumnID(node.LeftInput(), args[0])
		var rightCol schema.ColumnID
		if leftErr == nil {
			rightCol, err = t.resolveColumnID(node.RightInput(), args[1])
			if err != nil {
				return nil, err
			}
		} else {
			// operands arrived flipped
			leftCol, err = t.resolveColumnID(node.LeftInput(), args[1])
			if err != nil {
				return nil, err
			}
			rightCol, err = t.resolveColumnID(node.RightInput(), args[0])
			if err != nil {
				return nil, err
			}
			condition = condition.Flipped()
		}

		predicates[i] = operators.JoinPredicate{
			LeftColumn:  leftCol,
			RightColumn: rightCol,
			Condition:   condition,
		}
	}

	primary := predicates[0]
	secondary := predicates[1:]

	if primary.Condition == schema.Equals {
		return operators.NewJoinHash(left, right, node.Mode, primary, secondary), nil
	}
	if node.Mode == schema.JoinInner {
		return operators.NewJoinSortMerge(left, right, node.Mode, primary, secondary), nil
	}
	return operators.NewJoinNestedLoop(left, right, node.Mode, predicates), nil
}

func (t *translator) buildSort(node *lqp.SortNode) (operators.Operator, error) {
	input, err := t.translate(node.LeftInput())
	if err != nil {
		return nil, err
	}

	definitions := make([]schema.SortColumnDefinition, len(node.NodeExpressions()))
	for i, e := range node.NodeExpressions() {
		id, err := t.resolveColumnID(node.LeftInput(), e)
		if err != nil {
			return nil, err
		}
		definitions[i] = schema.SortColumnDefinition{Column: id, Mode: node.Modes[i]}
	}

	return operators.NewSort(input, definitions, 0), nil
}

// resolveColumnID turns a logical column expression into the position it
// holds in the input node's output.
func (t *translator) resolveColumnID(input lqp.Node, e expression.Expression) (schema.ColumnID, error) {
	id, result := input.FindColumnID(e)
	switch result {
	case lqp.Found:
		return id, nil
	case lqp.Ambiguous:
		return 0, fmt.Errorf("column %s is ambiguous on %s", e.Description(), input.Description())
	default:
		return 0, fmt.Errorf("column %s not found on %s", e.Description(), input.Description())
	}
}

// lowerExpression rewrites LQP column references into positional PQP
// references against the input node.
func (t *translator) lowerExpression(input lqp.Node, e expression.Expression) (expression.Expression, error) {
	if col, ok := e.(*expression.LQPColumnExpression); ok {
		id, err := t.resolveColumnID(input, col)
		if err != nil {
			return nil, err
		}
		return expression.NewPQPColumn(id, col.ColumnDataType, col.Nullable, col.Description()), nil
	}

	args := e.Arguments()
	if len(args) == 0 {
		return expression.DeepCopy(e), nil
	}

	lowered := make([]expression.Expression, len(args))
	for i, a := range args {
		la, err := t.lowerExpression(input, a)
		if err != nil {
			return nil, err
		}
		lowered[i] = la
	}
	return e.WithArguments(lowered), nil
}

func literalValue(e expression.Expression) (schema.AllTypeVariant, error) {
	value, ok := e.(*expression.ValueExpression)
	if !ok {
		return schema.NullValue(), fmt.Errorf("expected a literal, got %s", e.Description())
	}
	return value.Value, nil
}
