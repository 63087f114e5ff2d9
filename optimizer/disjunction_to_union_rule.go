package optimizer

import (
	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/lqp"
	"github.com/dot5enko/column-query-engine/schema"
)

// DisjunctionToUnionRule rewrites PredicateNode(or(p, q)) into a
// positions union of two predicate nodes over the shared child. Nested
// disjunctions decompose right-recursively across repeated passes.
type DisjunctionToUnionRule struct{}

func (r *DisjunctionToUnionRule) Name() string { return "DisjunctionToUnion" }

func (r *DisjunctionToUnionRule) Apply(root *lqp.RootNode) {
	for {
		var target *lqp.PredicateNode

		lqp.VisitPlan(root, func(n lqp.Node) lqp.Visitation {
			if target != nil {
				return lqp.DoNotVisitInputs
			}
			pred, ok := n.(*lqp.PredicateNode)
			if !ok {
				return lqp.VisitInputs
			}
			if logical, isLogical := pred.Predicate().(*expression.LogicalExpression); isLogical && logical.Operator == expression.LogicalOr {
				target = pred
				return lqp.DoNotVisitInputs
			}
			return lqp.VisitInputs
		})

		if target == nil {
			return
		}

		r.split(target)
	}
}

func (r *DisjunctionToUnionRule) split(node *lqp.PredicateNode) {
	disjunction := node.Predicate().(*expression.LogicalExpression)
	child := node.LeftInput()

	// the child is shared between both branches by pointer
	union := lqp.NewUnionNode(
		schema.UnionPositions,
		lqp.NewPredicateNode(disjunction.Left(), child),
		lqp.NewPredicateNode(disjunction.Right(), child),
	)

	relations := node.OutputRelations()
	for _, rel := range relations {
		rel.Output.SetInput(rel.Side, union)
	}
	node.SetLeftInput(nil)
}
