package optimizer

import (
	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/lqp"
)

// DependentGroupByReductionRule shrinks group-by lists that cover a
// declared unique constraint of the input relation: the key columns
// alone determine the group, the dropped columns are re-emitted as
// ANY() aggregates so every original output column survives.
type DependentGroupByReductionRule struct{}

func (r *DependentGroupByReductionRule) Name() string { return "DependentGroupByReduction" }

func (r *DependentGroupByReductionRule) Apply(root *lqp.RootNode) {
	var aggregates []*lqp.AggregateNode
	lqp.VisitPlan(root, func(n lqp.Node) lqp.Visitation {
		if agg, ok := n.(*lqp.AggregateNode); ok {
			aggregates = append(aggregates, agg)
		}
		return lqp.VisitInputs
	})

	for _, agg := range aggregates {
		r.reduce(agg)
	}
}

func (r *DependentGroupByReductionRule) reduce(agg *lqp.AggregateNode) {
	input := agg.LeftInput()
	if input == nil {
		return
	}

	groupBy := agg.GroupByExpressions()

	// smallest unique set fully contained in the group-by list wins
	var best *lqp.UniqueColumnCombination
	for _, set := range input.UniqueSets() {
		if len(set.Expressions) >= len(groupBy) {
			continue
		}
		if !set.CoveredBy(groupBy) {
			continue
		}
		if best == nil || len(set.Expressions) < len(best.Expressions) {
			chosen := set
			best = &chosen
		}
	}
	if best == nil {
		return
	}

	var keptGroupBy []expression.Expression
	var dropped []expression.Expression
	for _, g := range groupBy {
		inKey := false
		for _, k := range best.Expressions {
			if expression.Equal(g, k) {
				inKey = true
				break
			}
		}
		if inKey {
			keptGroupBy = append(keptGroupBy, g)
		} else {
			dropped = append(dropped, g)
		}
	}
	if len(dropped) == 0 {
		return
	}

	// dropped columns become ANY() aggregates, ahead of the existing ones
	newAggregates := make([]expression.Expression, 0, len(dropped)+len(agg.AggregateExpressions()))
	for _, d := range dropped {
		newAggregates = append(newAggregates, expression.NewAggregate(expression.Any, expression.DeepCopy(d)))
	}
	newAggregates = append(newAggregates, agg.AggregateExpressions()...)

	exprs := make([]expression.Expression, 0, len(keptGroupBy)+len(newAggregates))
	exprs = append(exprs, keptGroupBy...)
	exprs = append(exprs, newAggregates...)

	agg.SetNodeExpressions(exprs)
	agg.SetGroupByCount(len(keptGroupBy))
}
