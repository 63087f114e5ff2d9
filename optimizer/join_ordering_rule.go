package optimizer

import (
	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/lqp"
	"github.com/dot5enko/column-query-engine/schema"
)

// JoinOrderingRule prepares joins for execution: the first equality
// predicate is promoted to primary so translation can pick a hash join,
// the remaining predicates become secondaries. Input reordering proper
// is driven by an external cost model; plug one in via CostEstimator,
// without one the rule leaves input order untouched.
type JoinOrderingRule struct {
	// CostEstimator returns a relative cost for a sub-plan. Supplied by
	// the cost model, which lives outside this package.
	CostEstimator func(lqp.Node) float64
}

func (r *JoinOrderingRule) Name() string { return "JoinOrdering" }

func (r *JoinOrderingRule) Apply(root *lqp.RootNode) {
	lqp.VisitPlan(root, func(n lqp.Node) lqp.Visitation {
		join, ok := n.(*lqp.JoinNode)
		if !ok {
			return lqp.VisitInputs
		}

		r.promoteEqualityPredicate(join)

		if r.CostEstimator != nil {
			r.maybeSwapInputs(join)
		}
		return lqp.VisitInputs
	})
}

func (r *JoinOrderingRule) promoteEqualityPredicate(join *lqp.JoinNode) {
	predicates := join.JoinPredicates()
	if len(predicates) < 2 {
		return
	}

	if primary, ok := predicates[0].(*expression.PredicateExpression); ok && primary.Condition == schema.Equals {
		return
	}

	for i := 1; i < len(predicates); i++ {
		pred, ok := predicates[i].(*expression.PredicateExpression)
		if !ok || pred.Condition != schema.Equals {
			continue
		}

		reordered := make([]expression.Expression, 0, len(predicates))
		reordered = append(reordered, predicates[i])
		reordered = append(reordered, predicates[:i]...)
		reordered = append(reordered, predicates[i+1:]...)
		join.SetNodeExpressions(reordered)
		return
	}
}

// maybeSwapInputs flips a symmetric join so the cheaper side ends up on
// the right, where the hash join builds. Upstream nodes address join
// columns through expressions, not positions, so the swap stays
// invisible to them. Only inner joins with one predicate qualify.
func (r *JoinOrderingRule) maybeSwapInputs(join *lqp.JoinNode) {
	if join.Mode != schema.JoinInner || len(join.JoinPredicates()) != 1 {
		return
	}
	left := join.LeftInput()
	right := join.RightInput()
	if left == nil || right == nil {
		return
	}

	if r.CostEstimator(right) <= r.CostEstimator(left) {
		return
	}

	primary, ok := join.PrimaryPredicate().(*expression.PredicateExpression)
	if !ok {
		return
	}
	args := primary.Arguments()

	join.SetLeftInput(right)
	join.SetRightInput(left)
	join.SetNodeExpressions([]expression.Expression{
		expression.NewBinaryPredicate(primary.Condition.Flipped(),
			expression.DeepCopy(args[1]), expression.DeepCopy(args[0])),
	})
}
