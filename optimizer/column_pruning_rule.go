package optimizer

import (
	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/lqp"
	"github.com/dot5enko/column-query-engine/schema"
)

// ColumnPruningRule computes, per node, the column set its consumers
// need and cuts everything else:
//   - StoredTableNodes stop exposing unused table columns,
//   - ProjectionNodes drop plain column expressions nobody consumes
//     (computed expressions are always kept),
//   - inner joins whose one side is only used for the join key become
//     semi joins when that side's key carries a unique constraint.
type ColumnPruningRule struct{}

func (r *ColumnPruningRule) Name() string { return "ColumnPruning" }

func (r *ColumnPruningRule) Apply(root *lqp.RootNode) {
	if root.LeftInput() == nil {
		return
	}
	required := r.collectRequired(root)

	// mutate leaves and projections after the full walk, the required
	// sets reference pre-rewrite columns
	lqp.VisitPlan(root, func(n lqp.Node) lqp.Visitation {
		switch typed := n.(type) {
		case *lqp.StoredTableNode:
			r.pruneStoredTable(typed, required[n])
		case *lqp.ProjectionNode:
			r.pruneProjection(typed, required[n])
		case *lqp.JoinNode:
			r.maybeRewriteToSemi(typed, required[n])
		}
		return lqp.VisitInputs
	})
}

// collectRequired propagates required column references from the root
// down to every node with a worklist, handling shared sub-plans.
func (r *ColumnPruningRule) collectRequired(root *lqp.RootNode) map[lqp.Node]*expression.ReferenceSet {
	required := map[lqp.Node]*expression.ReferenceSet{}

	get := func(n lqp.Node) *expression.ReferenceSet {
		if s, ok := required[n]; ok {
			return s
		}
		s := expression.NewReferenceSet()
		required[n] = s
		return s
	}

	// the root consumes every column of the final plan
	rootSet := get(root)
	for _, ref := range expression.CollectColumnReferences(root.OutputExpressions()) {
		rootSet.Add(ref.WithoutLineage())
	}

	worklist := []lqp.Node{root}
	for len(worklist) > 0 {
		node := worklist[0]
		worklist = worklist[1:]

		nodeRequired := get(node)

		// columns the node itself reads from its inputs
		demands := expression.NewReferenceSet()
		for _, ref := range expression.CollectColumnReferences(node.NodeExpressions()) {
			demands.Add(ref.WithoutLineage())
		}

		// columns the consumers need, forwarded when an input provides
		// them; aggregates regroup their output, only their own
		// expressions reach below
		if _, isAggregate := node.(*lqp.AggregateNode); !isAggregate {
			for _, ref := range nodeRequired.Items() {
				demands.Add(ref)
			}
		}

		for _, input := range []lqp.Node{node.LeftInput(), node.RightInput()} {
			if input == nil {
				continue
			}

			existed := seenOnce(required, input)
			inputSet := get(input)
			before := inputSet.Size()

			provides := expression.NewReferenceSet()
			for _, ref := range expression.CollectColumnReferences(input.OutputExpressions()) {
				provides.Add(ref.WithoutLineage())
			}

			for _, ref := range demands.Items() {
				if provides.Contains(ref) {
					inputSet.Add(ref)
				}
			}

			if inputSet.Size() != before || !existed {
				worklist = append(worklist, input)
			}
		}
	}

	return required
}

func seenOnce(required map[lqp.Node]*expression.ReferenceSet, n lqp.Node) bool {
	_, ok := required[n]
	return ok
}

func (r *ColumnPruningRule) pruneStoredTable(node *lqp.StoredTableNode, requiredSet *expression.ReferenceSet) {
	if requiredSet == nil {
		return
	}

	var pruned []schema.ColumnID
	for id := range node.Table.ColumnDefinitions() {
		columnID := schema.ColumnID(id)
		ref := expression.NewColumnReference(node, columnID)
		if !requiredSet.Contains(ref) {
			pruned = append(pruned, columnID)
		}
	}

	if len(pruned) == len(node.Table.ColumnDefinitions()) {
		// keep one column, an empty relation has no shape
		pruned = pruned[1:]
	}
	node.SetPrunedColumnIDs(pruned)
}

func (r *ColumnPruningRule) pruneProjection(node *lqp.ProjectionNode, requiredSet *expression.ReferenceSet) {
	if requiredSet == nil {
		return
	}

	var kept []expression.Expression
	for _, e := range node.NodeExpressions() {
		needed := false
		for _, ref := range expression.CollectColumnReferences([]expression.Expression{e}) {
			if requiredSet.Contains(ref.WithoutLineage()) {
				needed = true
				break
			}
		}
		// computed expressions are identified by themselves; a consumer
		// requiring none of their columns may still require the
		// expression as a whole, which surfaces as a required reference
		// only for plain columns. Keep computed expressions.
		if needed || e.Kind() != expression.KindLQPColumn {
			kept = append(kept, e)
		}
	}

	if len(kept) == 0 {
		kept = node.NodeExpressions()[:1]
	}
	node.SetNodeExpressions(kept)
}

// maybeRewriteToSemi turns an inner join into a semi join when one
// side's columns are unused beyond the join key and the key is unique on
// that side.
func (r *ColumnPruningRule) maybeRewriteToSemi(join *lqp.JoinNode, requiredSet *expression.ReferenceSet) {
	if requiredSet == nil || join.Mode != schema.JoinInner || len(join.JoinPredicates()) != 1 {
		return
	}

	primary, ok := join.PrimaryPredicate().(*expression.PredicateExpression)
	if !ok || primary.Condition != schema.Equals {
		return
	}

	left := join.LeftInput()
	right := join.RightInput()
	if left == nil || right == nil {
		return
	}

	sideUsed := func(side lqp.Node) bool {
		for _, ref := range expression.CollectColumnReferences(side.OutputExpressions()) {
			if requiredSet.Contains(ref.WithoutLineage()) {
				return true
			}
		}
		return false
	}

	args := primary.Arguments()
	leftKey, rightKey := args[0], args[1]
	if _, res := left.FindColumnID(leftKey); res != lqp.Found {
		leftKey, rightKey = rightKey, leftKey
	}

	keyUnique := func(side lqp.Node, key expression.Expression) bool {
		for _, set := range side.UniqueSets() {
			if set.CoveredBy([]expression.Expression{key}) {
				return true
			}
		}
		return false
	}

	if !sideUsed(right) && keyUnique(right, rightKey) {
		join.Mode = schema.JoinSemi
		return
	}

	if !sideUsed(left) && keyUnique(left, leftKey) {
		// semi joins emit left columns, swap sides
		join.SetLeftInput(right)
		join.SetRightInput(left)
		join.SetNodeExpressions([]expression.Expression{
			expression.NewBinaryPredicate(schema.Equals, expression.DeepCopy(rightKey), expression.DeepCopy(leftKey)),
		})
		join.Mode = schema.JoinSemi
	}
}
