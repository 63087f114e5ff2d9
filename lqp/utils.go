package lqp

import (
	"github.com/dot5enko/column-query-engine/expression"
)

type Visitation uint8

const (
	VisitInputs Visitation = iota
	DoNotVisitInputs
)

// VisitPlan walks the plan top-down, each node once even when shared.
func VisitPlan(root Node, fn func(Node) Visitation) {
	visited := map[Node]struct{}{}
	var walk func(Node)
	walk = func(n Node) {
		if n == nil {
			return
		}
		if _, seen := visited[n]; seen {
			return
		}
		visited[n] = struct{}{}

		if fn(n) == DoNotVisitInputs {
			return
		}
		walk(n.LeftInput())
		walk(n.RightInput())
	}
	walk(root)
}

type UpwardVisitation uint8

const (
	VisitOutputs UpwardVisitation = iota
	DoNotVisitOutputs
)

// VisitPlanUpwards walks from a node towards the consumers, each node
// once.
func VisitPlanUpwards(start Node, fn func(Node) UpwardVisitation) {
	visited := map[Node]struct{}{}
	var walk func(Node)
	walk = func(n Node) {
		if n == nil {
			return
		}
		if _, seen := visited[n]; seen {
			return
		}
		visited[n] = struct{}{}

		if fn(n) == DoNotVisitOutputs {
			return
		}
		for _, out := range n.Outputs() {
			walk(out)
		}
	}
	walk(start)
}

// adaptExpressions deep-copies expressions, re-pointing column references
// at copied nodes per the mapping (original handle and lineage steps).
func adaptExpressions(exprs []expression.Expression, mapping NodeMapping) []expression.Expression {
	if len(exprs) == 0 {
		return nil
	}
	out := make([]expression.Expression, len(exprs))
	for i, e := range exprs {
		out[i] = adaptExpression(e, mapping)
	}
	return out
}

func adaptExpression(e expression.Expression, mapping NodeMapping) expression.Expression {
	copied := expression.DeepCopy(e)
	remapColumnRefs(copied, mapping)
	return copied
}

func remapColumnRefs(e expression.Expression, mapping NodeMapping) {
	expression.Visit(e, func(sub expression.Expression) expression.Visitation {
		col, ok := sub.(*expression.LQPColumnExpression)
		if !ok {
			return expression.VisitArguments
		}

		if orig, isNode := col.Reference.Original.(Node); isNode {
			if mapped, found := mapping[orig]; found {
				col.Reference.Original = mapped
			}
		}
		for i, step := range col.Reference.Lineage {
			if stepNode, isNode := step.Node.(Node); isNode {
				if mapped, found := mapping[stepNode]; found {
					col.Reference.Lineage[i].Node = mapped
				}
			}
		}
		return expression.VisitArguments
	})
}

// expressionsEqualAcross compares expression lists of two separate plans,
// translating node handles through the mapping.
func expressionsEqualAcross(a, b []expression.Expression, mapping NodeMapping) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !expressionEqualAcross(a[i], b[i], mapping) {
			return false
		}
	}
	return true
}

func expressionEqualAcross(a, b expression.Expression, mapping NodeMapping) bool {
	if a.Kind() != b.Kind() {
		return false
	}

	if colA, ok := a.(*expression.LQPColumnExpression); ok {
		colB := b.(*expression.LQPColumnExpression)
		return referencesEqualAcross(colA.Reference, colB.Reference, mapping)
	}

	// shallow fields are node-handle free for every other kind
	if !expression.ShallowEquals(a, b) {
		return false
	}

	aArgs := a.Arguments()
	bArgs := b.Arguments()
	if len(aArgs) != len(bArgs) {
		return false
	}
	for i := range aArgs {
		if !expressionEqualAcross(aArgs[i], bArgs[i], mapping) {
			return false
		}
	}
	return true
}

func referencesEqualAcross(a, b expression.LQPColumnReference, mapping NodeMapping) bool {
	if a.OriginalColumnID != b.OriginalColumnID {
		return false
	}
	if len(a.Lineage) != len(b.Lineage) {
		return false
	}
	if !nodeHandleEqualAcross(a.Original, b.Original, mapping) {
		return false
	}
	for i := range a.Lineage {
		if a.Lineage[i].Side != b.Lineage[i].Side {
			return false
		}
		if !nodeHandleEqualAcross(a.Lineage[i].Node, b.Lineage[i].Node, mapping) {
			return false
		}
	}
	return true
}

func nodeHandleEqualAcross(a, b expression.LQPNode, mapping NodeMapping) bool {
	if a == b {
		return true
	}
	aNode, aOk := a.(Node)
	bNode, bOk := b.(Node)
	if !aOk || !bOk {
		return false
	}
	mapped, found := mapping[aNode]
	return found && mapped == bNode
}

// CollectReferencesOf gathers the column references an expression list
// mentions into a set.
func CollectReferencesOf(exprs []expression.Expression) *expression.ReferenceSet {
	set := expression.NewReferenceSet()
	for _, ref := range expression.CollectColumnReferences(exprs) {
		set.Add(ref)
	}
	return set
}

// ExpressionEvaluableOn reports whether every column the expression
// mentions is part of the plan's output column set, respecting lineage.
func ExpressionEvaluableOn(e expression.Expression, plan Node) bool {
	available := plan.OutputExpressions()

	evaluable := true
	expression.Visit(e, func(sub expression.Expression) expression.Visitation {
		if !evaluable {
			return expression.AbortVisit
		}
		switch typed := sub.(type) {
		case *expression.LQPColumnExpression:
			if _, result := plan.FindColumnID(typed); result != Found {
				evaluable = false
				return expression.AbortVisit
			}
			return expression.DoNotVisitArguments
		case *expression.SubqueryExpression:
			// correlated columns must come from the plan below
			for _, binding := range typed.Parameters {
				probe := expression.NewLQPColumn(binding.Column, 0, false)
				if _, result := findColumnIDIn(available, probe); result != Found {
					evaluable = false
					return expression.AbortVisit
				}
			}
			return expression.DoNotVisitArguments
		}
		return expression.VisitArguments
	})
	return evaluable
}
