package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/lqp"
	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage"
)

func mockAB(name string) *lqp.MockNode {
	return lqp.NewMockNode(name, []lqp.MockColumnDefinition{
		{Name: "a", Type: schema.Int32Type},
		{Name: "b", Type: schema.Int32Type},
	})
}

func columnOf(node *lqp.MockNode, name string) *expression.LQPColumnExpression {
	return expression.NewLQPColumn(node.GetColumn(name), schema.Int32Type, false)
}

func intValue(v int32) *expression.ValueExpression {
	return expression.NewValue(schema.Variant(v))
}

func storageTable(t *testing.T) *storage.Table {
	t.Helper()
	return storage.TableFromRows([]storage.TableColumnDefinition{
		{Name: "a", Type: schema.Int32Type},
		{Name: "b", Type: schema.Int32Type},
		{Name: "c", Type: schema.Int32Type},
	}, [][]any{{1, 2, 3}, {4, 5, 6}}, 10)
}

// --- DisjunctionToUnion ---

func TestDisjunctionToUnionSimple(t *testing.T) {

	node := mockAB("r")
	input := lqp.NewPredicateNode(
		expression.NewLogical(expression.LogicalOr,
			expression.NewBinaryPredicate(schema.Equals, columnOf(node, "a"), intValue(1)),
			expression.NewBinaryPredicate(schema.Equals, columnOf(node, "b"), intValue(2))),
		node,
	)

	result := ApplyRule(&DisjunctionToUnionRule{}, input)

	union, ok := result.(*lqp.UnionNode)
	require.True(t, ok, "expected a union, got %s", result.Description())
	assert.Equal(t, schema.UnionPositions, union.Mode)

	leftPred := union.LeftInput().(*lqp.PredicateNode)
	rightPred := union.RightInput().(*lqp.PredicateNode)

	assert.Same(t, leftPred.LeftInput(), rightPred.LeftInput(), "the child must be shared by pointer")
}

func TestDisjunctionToUnionRightDeepForFourBranches(t *testing.T) {

	outer := mockAB("r")

	exists := func(sub *lqp.MockNode) expression.Expression {
		param := expression.NewCorrelatedParameter(0, outer.GetColumn("a"), schema.Int32Type)
		subPlan := lqp.NewPredicateNode(
			expression.NewBinaryPredicate(schema.Equals, columnOf(sub, "a"), param),
			sub,
		)
		return expression.NewExists(expression.NewSubquery(subPlan,
			expression.CorrelatedBinding{ParameterID: 0, Column: outer.GetColumn("a")}))
	}

	disjunction := expression.NewLogical(expression.LogicalOr,
		exists(mockAB("s1")),
		expression.NewLogical(expression.LogicalOr,
			exists(mockAB("s2")),
			expression.NewLogical(expression.LogicalOr,
				exists(mockAB("s3")),
				exists(mockAB("s4")))))

	input := lqp.NewPredicateNode(disjunction, outer)

	result := ApplyRule(&DisjunctionToUnionRule{}, input)

	// right-deep: union(p1, union(p2, union(p3, p4)))
	depth := 0
	var sharedChild lqp.Node
	current := result
	for {
		union, ok := current.(*lqp.UnionNode)
		if !ok {
			break
		}
		depth++
		pred := union.LeftInput().(*lqp.PredicateNode)
		if sharedChild == nil {
			sharedChild = pred.LeftInput()
		} else {
			assert.Same(t, sharedChild, pred.LeftInput())
		}
		current = union.RightInput()
	}

	assert.Equal(t, 3, depth, "four branches decompose into three unions")
	finalPred, ok := current.(*lqp.PredicateNode)
	require.True(t, ok)
	assert.Same(t, sharedChild, finalPred.LeftInput())
}

// --- DependentGroupByReduction ---

func TestDependentGroupByReductionSingleKey(t *testing.T) {

	node := lqp.NewMockNode("t", []lqp.MockColumnDefinition{
		{Name: "c0", Type: schema.Int32Type},
		{Name: "c1", Type: schema.Int32Type},
		{Name: "c2", Type: schema.Int32Type},
	})
	node.DeclareKey([]schema.ColumnID{0})

	c0 := expression.NewLQPColumn(node.GetColumn("c0"), schema.Int32Type, false)
	c1 := expression.NewLQPColumn(node.GetColumn("c1"), schema.Int32Type, false)
	c2 := expression.NewLQPColumn(node.GetColumn("c2"), schema.Int32Type, false)

	agg := lqp.NewAggregateNode(
		[]expression.Expression{c0, c1},
		[]expression.Expression{expression.NewAggregate(expression.Sum, c2)},
		node,
	)

	result := ApplyRule(&DependentGroupByReductionRule{}, agg).(*lqp.AggregateNode)

	require.Equal(t, 1, result.GroupByCount())
	assert.True(t, expression.Equal(result.GroupByExpressions()[0], c0))

	aggs := result.AggregateExpressions()
	require.Len(t, aggs, 2)

	anyAgg := aggs[0].(*expression.AggregateExpression)
	assert.Equal(t, expression.Any, anyAgg.Function)
	assert.True(t, expression.Equal(anyAgg.Operand(), c1), "dropped group column is re-expressed as ANY")

	assert.Equal(t, expression.Sum, aggs[1].(*expression.AggregateExpression).Function)
}

func TestDependentGroupByReductionIncompleteKey(t *testing.T) {

	node := lqp.NewMockNode("t", []lqp.MockColumnDefinition{
		{Name: "c0", Type: schema.Int32Type},
		{Name: "c1", Type: schema.Int32Type},
	})
	node.DeclareKey([]schema.ColumnID{0, 1})

	c0 := expression.NewLQPColumn(node.GetColumn("c0"), schema.Int32Type, false)

	agg := lqp.NewAggregateNode(
		[]expression.Expression{c0},
		[]expression.Expression{expression.NewAggregate(expression.Sum, expression.DeepCopy(c0))},
		node,
	)

	result := ApplyRule(&DependentGroupByReductionRule{}, agg).(*lqp.AggregateNode)

	// the two-column key is not covered by a one-column group-by
	assert.Equal(t, 1, result.GroupByCount())
	assert.Len(t, result.AggregateExpressions(), 1)
}

// --- ColumnPruning ---

func TestColumnPruningOnStoredTable(t *testing.T) {

	table := storageTable(t)
	stored := lqp.NewStoredTableNode("t", table)

	a := stored.ColumnExpressionFor(0)

	// only column a reaches the output
	plan := lqp.NewProjectionNode(
		[]expression.Expression{expression.DeepCopy(a)},
		lqp.NewPredicateNode(
			expression.NewBinaryPredicate(schema.GreaterThan, a, intValue(0)),
			stored,
		),
	)

	ApplyRule(&ColumnPruningRule{}, plan)

	pruned := stored.PrunedColumnIDs()
	require.Len(t, pruned, 2, "columns b and c are unused")
	assert.NotContains(t, pruned, schema.ColumnID(0))
	assert.Len(t, stored.OutputExpressions(), 1)
}

func TestColumnPruningRewritesJoinToSemi(t *testing.T) {

	left := mockAB("used")
	right := mockAB("unused")
	right.DeclareKey([]schema.ColumnID{0})

	join := lqp.NewJoinNode(schema.JoinInner,
		[]expression.Expression{expression.NewBinaryPredicate(schema.Equals,
			columnOf(left, "a"), columnOf(right, "a"))},
		left, right,
	)

	// only left columns survive
	plan := lqp.NewProjectionNode(
		[]expression.Expression{columnOf(left, "a"), columnOf(left, "b")},
		join,
	)

	ApplyRule(&ColumnPruningRule{}, plan)

	assert.Equal(t, schema.JoinSemi, join.Mode)
}

func TestColumnPruningKeepsJoinWithoutUniqueKey(t *testing.T) {

	left := mockAB("used")
	right := mockAB("unused") // no key declared

	join := lqp.NewJoinNode(schema.JoinInner,
		[]expression.Expression{expression.NewBinaryPredicate(schema.Equals,
			columnOf(left, "a"), columnOf(right, "a"))},
		left, right,
	)

	plan := lqp.NewProjectionNode([]expression.Expression{columnOf(left, "a")}, join)

	ApplyRule(&ColumnPruningRule{}, plan)

	assert.Equal(t, schema.JoinInner, join.Mode, "without a unique key the rewrite is unsound")
}

// --- PredicatePlacement ---

func TestPredicatePushDownBelowJoin(t *testing.T) {

	left := mockAB("l")
	right := mockAB("r")

	join := lqp.NewJoinNode(schema.JoinInner,
		[]expression.Expression{expression.NewBinaryPredicate(schema.Equals,
			columnOf(left, "a"), columnOf(right, "a"))},
		left, right,
	)

	pred := lqp.NewPredicateNode(
		expression.NewBinaryPredicate(schema.GreaterThan, columnOf(left, "b"), intValue(10)),
		join,
	)

	result := ApplyRule(&PredicatePlacementRule{}, pred)

	// the predicate now sits between the join and its left input
	assert.Equal(t, lqp.TypeJoin, result.NodeType())
	movedPred, ok := result.LeftInput().(*lqp.PredicateNode)
	require.True(t, ok, "predicate should have moved below the join")
	assert.Equal(t, lqp.Node(left), movedPred.LeftInput())
}

func TestPredicateNotPushedIntoOuterNullSide(t *testing.T) {

	left := mockAB("l")
	right := mockAB("r")

	join := lqp.NewJoinNode(schema.JoinLeft,
		[]expression.Expression{expression.NewBinaryPredicate(schema.Equals,
			columnOf(left, "a"), columnOf(right, "a"))},
		left, right,
	)

	// filters the padded side, must stay above the join
	pred := lqp.NewPredicateNode(
		expression.NewBinaryPredicate(schema.GreaterThan, columnOf(right, "b"), intValue(10)),
		join,
	)

	result := ApplyRule(&PredicatePlacementRule{}, pred)

	kept, ok := result.(*lqp.PredicateNode)
	require.True(t, ok, "predicate must stay above a left outer join")
	assert.Equal(t, lqp.TypeJoin, kept.LeftInput().NodeType())
}

func TestExpensivePredicatePulledUp(t *testing.T) {

	node := mockAB("r")
	sub := mockAB("s")

	param := expression.NewCorrelatedParameter(0, node.GetColumn("a"), schema.Int32Type)
	subPlan := lqp.NewPredicateNode(
		expression.NewBinaryPredicate(schema.Equals, columnOf(sub, "a"), param), sub)
	expensive := expression.NewExists(expression.NewSubquery(subPlan,
		expression.CorrelatedBinding{ParameterID: 0, Column: node.GetColumn("a")}))

	cheapAbove := lqp.NewPredicateNode(
		expression.NewBinaryPredicate(schema.GreaterThan, columnOf(node, "b"), intValue(1)),
		lqp.NewPredicateNode(expensive, node),
	)

	result := ApplyRule(&PredicatePlacementRule{}, cheapAbove)

	top, ok := result.(*lqp.PredicateNode)
	require.True(t, ok)
	assert.True(t, isExpensive(top.Predicate()), "expensive predicate should end up on top")

	below, ok := top.LeftInput().(*lqp.PredicateNode)
	require.True(t, ok)
	assert.False(t, isExpensive(below.Predicate()))
}

// --- JoinOrdering ---

func TestJoinOrderingPromotesEqualityPredicate(t *testing.T) {

	left := mockAB("l")
	right := mockAB("r")

	lt := expression.NewBinaryPredicate(schema.LessThan, columnOf(left, "b"), columnOf(right, "b"))
	eq := expression.NewBinaryPredicate(schema.Equals, columnOf(left, "a"), columnOf(right, "a"))

	join := lqp.NewJoinNode(schema.JoinInner, []expression.Expression{lt, eq}, left, right)

	ApplyRule(&JoinOrderingRule{}, join)

	primary := join.PrimaryPredicate().(*expression.PredicateExpression)
	assert.Equal(t, schema.Equals, primary.Condition, "hash-joinable predicate leads")
	assert.Len(t, join.JoinPredicates(), 2)
}

func TestJoinOrderingSwapsWithCostEstimator(t *testing.T) {

	small := mockAB("small")
	big := mockAB("big")

	join := lqp.NewJoinNode(schema.JoinInner,
		[]expression.Expression{expression.NewBinaryPredicate(schema.Equals,
			columnOf(small, "a"), columnOf(big, "a"))},
		small, big)

	rule := &JoinOrderingRule{CostEstimator: func(n lqp.Node) float64 {
		if n == lqp.Node(big) {
			return 100
		}
		return 1
	}}
	ApplyRule(rule, join)

	assert.Equal(t, lqp.Node(big), join.LeftInput(), "cheap side moves to the build position")
	assert.Equal(t, lqp.Node(small), join.RightInput())
}

// --- SubplanReuse ---

func TestSubplanReuseRedirectsDuplicates(t *testing.T) {

	build := func(name string) lqp.Node {
		node := lqp.NewMockNode("shared", []lqp.MockColumnDefinition{
			{Name: "a", Type: schema.Int32Type},
		})
		return lqp.NewPredicateNode(
			expression.NewBinaryPredicate(schema.GreaterThan,
				expression.NewLQPColumn(node.GetColumn("a"), schema.Int32Type, false),
				intValue(5)),
			node,
		)
	}

	leftPlan := build("l")
	rightPlan := build("r")
	union := lqp.NewUnionNode(schema.UnionAll, leftPlan, rightPlan)

	result := ApplyRule(&SubplanReuseRule{}, union).(*lqp.UnionNode)

	assert.Same(t, result.LeftInput(), result.RightInput(),
		"equal sub-plans collapse onto one representative")
}

func TestSubplanReuseKeepsDistinctPlans(t *testing.T) {

	node1 := mockAB("one")
	node2 := mockAB("two")

	union := lqp.NewUnionNode(schema.UnionAll, node1, node2)
	result := ApplyRule(&SubplanReuseRule{}, union).(*lqp.UnionNode)

	assert.NotSame(t, result.LeftInput(), result.RightInput())
}
