package optimizer

import (
	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/lqp"
	"github.com/dot5enko/column-query-engine/schema"
)

// PredicatePlacementRule pushes cheap predicates as deep as evaluability
// permits and pulls predicates with correlated subqueries up above the
// cheap ones, so the expensive work sees the fewest rows.
type PredicatePlacementRule struct{}

func (r *PredicatePlacementRule) Name() string { return "PredicatePlacement" }

func (r *PredicatePlacementRule) Apply(root *lqp.RootNode) {
	if root.LeftInput() == nil {
		return
	}
	var pushDown []*lqp.PredicateNode
	r.pushDownTraversal(root, expression.LeftSide, &pushDown)

	r.pullUpTraversal(root, expression.LeftSide)
}

// isExpensive marks predicates that hide a correlated subquery.
func isExpensive(predicate expression.Expression) bool {
	expensive := false
	expression.Visit(predicate, func(e expression.Expression) expression.Visitation {
		if sub, ok := e.(*expression.SubqueryExpression); ok && sub.IsCorrelated() {
			expensive = true
			return expression.AbortVisit
		}
		return expression.VisitArguments
	})
	return expensive
}

// pushDownTraversal walks the plan, collecting detachable cheap
// predicates and reinserting them at the deepest spot they remain
// evaluable.
func (r *PredicatePlacementRule) pushDownTraversal(parent lqp.Node, side expression.LQPInputSide, carried *[]*lqp.PredicateNode) {
	current := parent.Input(side)
	if current == nil {
		return
	}

	// only single-consumer nodes may be moved or passed through, a
	// shared sub-plan must see the predicate exactly where it was
	if len(current.Outputs()) > 1 {
		r.insertNodes(parent, side, *carried)
		*carried = nil
		r.pushDownTraversal(current, expression.LeftSide, &[]*lqp.PredicateNode{})
		r.pushDownTraversal(current, expression.RightSide, &[]*lqp.PredicateNode{})
		return
	}

	switch node := current.(type) {
	case *lqp.PredicateNode:
		if !isExpensive(node.Predicate()) {
			// detach and carry downwards
			input := node.LeftInput()
			relations := node.OutputRelations()
			for _, rel := range relations {
				rel.Output.SetInput(rel.Side, input)
			}
			node.SetLeftInput(nil)
			*carried = append(*carried, node)
			r.pushDownTraversal(parent, side, carried)
			return
		}
		r.pushDownTraversal(node, expression.LeftSide, carried)

	case *lqp.JoinNode:
		var keepHere []*lqp.PredicateNode
		var toLeft []*lqp.PredicateNode
		var toRight []*lqp.PredicateNode

		leftAllowed := node.Mode == schema.JoinInner || node.Mode == schema.JoinCross ||
			node.Mode == schema.JoinLeft || node.Mode == schema.JoinSemi ||
			node.Mode == schema.JoinAntiNullAsTrue || node.Mode == schema.JoinAntiNullAsFalse
		rightAllowed := node.Mode == schema.JoinInner || node.Mode == schema.JoinCross ||
			node.Mode == schema.JoinRight

		for _, pred := range *carried {
			switch {
			case leftAllowed && lqp.ExpressionEvaluableOn(pred.Predicate(), node.LeftInput()):
				toLeft = append(toLeft, pred)
			case rightAllowed && node.RightInput() != nil && lqp.ExpressionEvaluableOn(pred.Predicate(), node.RightInput()):
				toRight = append(toRight, pred)
			default:
				keepHere = append(keepHere, pred)
			}
		}

		r.insertNodes(parent, side, keepHere)

		r.pushDownTraversal(node, expression.LeftSide, &toLeft)
		r.pushDownTraversal(node, expression.RightSide, &toRight)

	case *lqp.SortNode, *lqp.ProjectionNode:
		// pass through when the predicate stays evaluable below
		var keepHere []*lqp.PredicateNode
		var pass []*lqp.PredicateNode
		for _, pred := range *carried {
			if node.LeftInput() != nil && lqp.ExpressionEvaluableOn(pred.Predicate(), node.LeftInput()) {
				pass = append(pass, pred)
			} else {
				keepHere = append(keepHere, pred)
			}
		}
		r.insertNodes(parent, side, keepHere)
		r.pushDownTraversal(node, expression.LeftSide, &pass)

	default:
		// barrier: leaves, aggregates, unions, limits
		r.insertNodes(parent, side, *carried)
		*carried = nil
		if current.LeftInput() != nil {
			r.pushDownTraversal(current, expression.LeftSide, &[]*lqp.PredicateNode{})
		}
		if current.RightInput() != nil {
			r.pushDownTraversal(current, expression.RightSide, &[]*lqp.PredicateNode{})
		}
	}
}

// insertNodes stitches the predicate chain between parent and its input.
func (r *PredicatePlacementRule) insertNodes(parent lqp.Node, side expression.LQPInputSide, predicates []*lqp.PredicateNode) {
	current := parent
	currentSide := side
	for _, pred := range predicates {
		below := current.Input(currentSide)
		current.SetInput(currentSide, pred)
		pred.SetLeftInput(below)
		current = pred
		currentSide = expression.LeftSide
	}
}

// pullUpTraversal lifts expensive predicates above adjacent cheap
// predicate and sort nodes. It returns when the plan is stable.
func (r *PredicatePlacementRule) pullUpTraversal(root lqp.Node, side expression.LQPInputSide) {
	for {
		moved := false

		lqp.VisitPlan(root, func(n lqp.Node) lqp.Visitation {
			if moved {
				return lqp.DoNotVisitInputs
			}
			pred, ok := n.(*lqp.PredicateNode)
			if !ok || !isExpensive(pred.Predicate()) {
				return lqp.VisitInputs
			}

			outputs := pred.Outputs()
			if len(outputs) != 1 {
				return lqp.VisitInputs
			}
			above := outputs[0]

			liftable := false
			switch typed := above.(type) {
			case *lqp.PredicateNode:
				liftable = !isExpensive(typed.Predicate())
			case *lqp.SortNode:
				liftable = true
			}
			if !liftable || len(above.Outputs()) != 1 {
				return lqp.VisitInputs
			}

			// swap pred with the node above it
			grandRelations := above.OutputRelations()

			input := pred.LeftInput()
			above.SetInput(sideOf(above, pred), input)
			pred.SetLeftInput(above)
			for _, rel := range grandRelations {
				rel.Output.SetInput(rel.Side, pred)
			}

			moved = true
			return lqp.DoNotVisitInputs
		})

		if !moved {
			return
		}
	}
}

func sideOf(parent, child lqp.Node) expression.LQPInputSide {
	if parent.RightInput() == child {
		return expression.RightSide
	}
	return expression.LeftSide
}
