package lqp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/schema"
)

func twoColumnMock(name string) *MockNode {
	return NewMockNode(name, []MockColumnDefinition{
		{Name: "a", Type: schema.Int32Type},
		{Name: "b", Type: schema.Int32Type},
	})
}

func TestMockNodeColumns(t *testing.T) {

	node := twoColumnMock("m")
	cols := node.OutputExpressions()

	require.Len(t, cols, 2)
	ref := cols[0].(*expression.LQPColumnExpression).Reference
	assert.EqualValues(t, 0, ref.OriginalColumnID)
	assert.Equal(t, Node(node), ref.Original)
}

func TestPredicateNodeForwardsColumns(t *testing.T) {

	node := twoColumnMock("m")
	a := node.GetColumn("a")

	pred := NewPredicateNode(
		expression.NewBinaryPredicate(schema.GreaterThan,
			expression.NewLQPColumn(a, schema.Int32Type, false),
			expression.NewValue(schema.Variant(int32(3)))),
		node,
	)

	require.Len(t, pred.OutputExpressions(), 2)

	id, result := pred.FindColumnID(expression.NewLQPColumn(node.GetColumn("b"), schema.Int32Type, false))
	require.Equal(t, Found, result)
	assert.EqualValues(t, 1, id)
}

func TestSelfJoinDisambiguatesWithLineage(t *testing.T) {

	node := twoColumnMock("m")
	a := expression.NewLQPColumn(node.GetColumn("a"), schema.Int32Type, false)

	join := NewJoinNode(schema.JoinInner,
		[]expression.Expression{expression.NewBinaryPredicate(schema.Equals, a, expression.DeepCopy(a))},
		node, node,
	)

	cols := join.OutputExpressions()
	require.Len(t, cols, 4)

	leftA := cols[0].(*expression.LQPColumnExpression).Reference
	rightA := cols[2].(*expression.LQPColumnExpression).Reference

	require.Len(t, leftA.Lineage, 1, "shared origin must receive a lineage step")
	require.Len(t, rightA.Lineage, 1)
	assert.Equal(t, expression.LeftSide, leftA.Lineage[0].Side)
	assert.Equal(t, expression.RightSide, rightA.Lineage[0].Side)
	assert.False(t, leftA.Equals(rightA))
}

func TestJoinFindColumnIDConsumesLineage(t *testing.T) {

	node := twoColumnMock("m")
	a := expression.NewLQPColumn(node.GetColumn("a"), schema.Int32Type, false)

	join := NewJoinNode(schema.JoinInner,
		[]expression.Expression{expression.NewBinaryPredicate(schema.Equals, a, expression.DeepCopy(a))},
		node, node,
	)

	// ambiguous without lineage
	_, result := join.FindColumnID(expression.DeepCopy(a))
	assert.Equal(t, Ambiguous, result)

	// lineage picks the side
	viaRight := expression.NewLQPColumn(
		node.GetColumn("a").WithLineageStep(join, expression.RightSide),
		schema.Int32Type, false)
	id, result := join.FindColumnID(viaRight)
	require.Equal(t, Found, result)
	assert.EqualValues(t, 2, id)

	viaLeft := expression.NewLQPColumn(
		node.GetColumn("a").WithLineageStep(join, expression.LeftSide),
		schema.Int32Type, false)
	id, result = join.FindColumnID(viaLeft)
	require.Equal(t, Found, result)
	assert.EqualValues(t, 0, id)

	// absent column
	other := twoColumnMock("other")
	_, result = join.FindColumnID(expression.NewLQPColumn(other.GetColumn("a"), schema.Int32Type, false))
	assert.Equal(t, NotFound, result)
}

func TestSemiJoinEmitsLeftColumnsOnly(t *testing.T) {

	left := twoColumnMock("l")
	right := twoColumnMock("r")

	join := NewJoinNode(schema.JoinSemi,
		[]expression.Expression{expression.NewBinaryPredicate(schema.Equals,
			expression.NewLQPColumn(left.GetColumn("a"), schema.Int32Type, false),
			expression.NewLQPColumn(right.GetColumn("a"), schema.Int32Type, false))},
		left, right,
	)

	assert.Len(t, join.OutputExpressions(), 2)
}

func TestJoinNullability(t *testing.T) {

	left := twoColumnMock("l")
	right := twoColumnMock("r")

	pred := expression.NewBinaryPredicate(schema.Equals,
		expression.NewLQPColumn(left.GetColumn("a"), schema.Int32Type, false),
		expression.NewLQPColumn(right.GetColumn("a"), schema.Int32Type, false))

	leftJoin := NewJoinNode(schema.JoinLeft, []expression.Expression{expression.DeepCopy(pred)}, left, right)
	assert.False(t, leftJoin.IsColumnNullable(0))
	assert.True(t, leftJoin.IsColumnNullable(2), "left join pads the right side")

	fullJoin := NewJoinNode(schema.JoinFullOuter, []expression.Expression{expression.DeepCopy(pred)}, left, right)
	assert.True(t, fullJoin.IsColumnNullable(0))
	assert.True(t, fullJoin.IsColumnNullable(3))
}

func TestPlanEqualityAndHash(t *testing.T) {

	build := func() Node {
		node := twoColumnMock("m")
		return NewPredicateNode(
			expression.NewBinaryPredicate(schema.Equals,
				expression.NewLQPColumn(node.GetColumn("a"), schema.Int32Type, false),
				expression.NewValue(schema.Variant(int32(1)))),
			node,
		)
	}

	a := build()
	b := build()

	assert.True(t, a.PlanEquals(b), "equal but not identical plans must compare equal")
	assert.Equal(t, a.Hash(), b.Hash(), "equal plans must hash alike")

	node := twoColumnMock("m")
	c := NewPredicateNode(
		expression.NewBinaryPredicate(schema.Equals,
			expression.NewLQPColumn(node.GetColumn("b"), schema.Int32Type, false),
			expression.NewValue(schema.Variant(int32(1)))),
		node,
	)
	assert.False(t, a.PlanEquals(c))
}

func TestDeepCopySharesDiamonds(t *testing.T) {

	node := twoColumnMock("m")
	a := expression.NewLQPColumn(node.GetColumn("a"), schema.Int32Type, false)

	p1 := NewPredicateNode(expression.NewBinaryPredicate(schema.Equals, a, expression.NewValue(schema.Variant(int32(1)))), node)
	p2 := NewPredicateNode(expression.NewBinaryPredicate(schema.Equals, expression.DeepCopy(a), expression.NewValue(schema.Variant(int32(2)))), node)
	union := NewUnionNode(schema.UnionPositions, p1, p2)

	copied := union.DeepCopy().(*UnionNode)

	assert.NotSame(t, Node(union), Node(copied))
	assert.Same(t,
		copied.LeftInput().LeftInput(),
		copied.RightInput().LeftInput(),
		"shared leaf must stay shared in the copy")

	// column references inside the copy point at the copied leaf
	copiedPred := copied.LeftInput().(*PredicateNode).Predicate()
	ref := copiedPred.Arguments()[0].(*expression.LQPColumnExpression).Reference
	assert.Equal(t, expression.LQPNode(copied.LeftInput().LeftInput()), ref.Original)
}

func TestOutputTracking(t *testing.T) {

	node := twoColumnMock("m")
	pred := NewPredicateNode(
		expression.NewBinaryPredicate(schema.Equals,
			expression.NewLQPColumn(node.GetColumn("a"), schema.Int32Type, false),
			expression.NewValue(schema.Variant(int32(1)))),
		node)

	require.Len(t, node.Outputs(), 1)

	relations := node.OutputRelations()
	require.Len(t, relations, 1)
	assert.Equal(t, Node(pred), relations[0].Output)
	assert.Equal(t, expression.LeftSide, relations[0].Side)

	pred.SetLeftInput(nil)
	assert.Empty(t, node.Outputs())
}

func TestUniquePropagation(t *testing.T) {

	node := twoColumnMock("m")
	node.DeclareKey([]schema.ColumnID{0})

	a := expression.NewLQPColumn(node.GetColumn("a"), schema.Int32Type, false)
	b := expression.NewLQPColumn(node.GetColumn("b"), schema.Int32Type, false)

	pred := NewPredicateNode(
		expression.NewBinaryPredicate(schema.GreaterThan, expression.DeepCopy(a), expression.NewValue(schema.Variant(int32(0)))),
		node)
	require.Len(t, pred.UniqueSets(), 1, "filters preserve uniqueness")

	// group-by set becomes unique
	agg := NewAggregateNode(
		[]expression.Expression{expression.DeepCopy(b)},
		[]expression.Expression{expression.NewAggregate(expression.Min, expression.DeepCopy(a))},
		node)
	sets := agg.UniqueSets()
	require.NotEmpty(t, sets)
	assert.True(t, sets[0].CoveredBy([]expression.Expression{b}))

	// a projection dropping the key column drops the constraint
	proj := NewProjectionNode([]expression.Expression{expression.DeepCopy(b)}, node)
	assert.Empty(t, proj.UniqueSets())
}

func TestRootNodeForwards(t *testing.T) {

	node := twoColumnMock("m")
	root := NewRootNode(node)

	assert.Len(t, root.OutputExpressions(), 2)
	assert.Equal(t, Node(node), root.LeftInput())
}
