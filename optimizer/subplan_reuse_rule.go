package optimizer

import (
	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/lqp"
	"github.com/dot5enko/column-query-engine/schema"
)

// SubplanReuseRule deduplicates structurally equal sub-plans. The first
// occurrence becomes the canonical representative; every duplicate's
// consumers are redirected to it and their column references rewritten
// through a replacement mapping. When a replacement would make a join's
// two sides expose identical column identities, a lineage step (that
// join, side) is appended to keep them apart.
type SubplanReuseRule struct{}

func (r *SubplanReuseRule) Name() string { return "SubplanReuse" }

func (r *SubplanReuseRule) Apply(root *lqp.RootNode) {
	type bucket struct {
		nodes []lqp.Node
	}
	primary := map[uint64]*bucket{}

	findPrimary := func(n lqp.Node) lqp.Node {
		h := n.Hash()
		b, ok := primary[h]
		if !ok {
			primary[h] = &bucket{nodes: []lqp.Node{n}}
			return nil
		}
		for _, candidate := range b.nodes {
			if candidate.PlanEquals(n) {
				return candidate
			}
		}
		b.nodes = append(b.nodes, n)
		return nil
	}

	lqp.VisitPlan(root, func(node lqp.Node) lqp.Visitation {
		if node.NodeType() == lqp.TypeRoot {
			return lqp.VisitInputs
		}

		canonical := findPrimary(node)
		if canonical == nil {
			return lqp.VisitInputs
		}

		mapping := createColumnMapping(node, canonical)

		perNode := map[lqp.Node]*expression.ReplacementMapping{}
		applyMappingsUpwards(node, mapping, perNode)

		for consumer, m := range perNode {
			applyMappingToNodeExpressions(consumer, m)
		}

		for _, rel := range node.OutputRelations() {
			rel.Output.SetInput(rel.Side, canonical)
		}

		return lqp.DoNotVisitInputs
	})
}

// createColumnMapping pairs the duplicate's column references with the
// canonical node's, walking the output expression trees in lockstep.
func createColumnMapping(from, to lqp.Node) *expression.ReplacementMapping {
	mapping := &expression.ReplacementMapping{}

	fromExpressions := from.OutputExpressions()
	toExpressions := to.OutputExpressions()
	if len(fromExpressions) != len(toExpressions) {
		panic("equal sub-plans expose differing column counts")
	}

	for i := range fromExpressions {
		addToColumnMapping(fromExpressions[i], toExpressions[i], mapping)
	}
	return mapping
}

func addToColumnMapping(from, to expression.Expression, mapping *expression.ReplacementMapping) {
	if from.Kind() != to.Kind() {
		panic("expected same expression kind on both sub-plans")
	}

	if fromCol, ok := from.(*expression.LQPColumnExpression); ok {
		toCol := to.(*expression.LQPColumnExpression)
		if !fromCol.Reference.Equals(toCol.Reference) {
			mapping.Add(fromCol.Reference, toCol.Reference)
		}
		return
	}

	fromArgs := from.Arguments()
	toArgs := to.Arguments()
	if len(fromArgs) != len(toArgs) {
		panic("mismatching expression argument counts")
	}
	for i := range fromArgs {
		addToColumnMapping(fromArgs[i], toArgs[i], mapping)
	}
}

// applyMappingsUpwards walks from the duplicate towards the root. Each
// consumer gets a local snapshot of the mapping; joins that would end up
// with the same identity on both sides extend the mapping with lineage
// steps, which also flow into the global mapping except across semi and
// anti joins (those emit only left columns).
func applyMappingsUpwards(start lqp.Node, mapping *expression.ReplacementMapping, perNode map[lqp.Node]*expression.ReplacementMapping) {
	lqp.VisitPlanUpwards(start, func(node lqp.Node) lqp.UpwardVisitation {
		local := mapping.Clone()

		if join, ok := node.(*lqp.JoinNode); ok && join.LeftInput() != nil && join.RightInput() != nil {
			leftRefs := lqp.CollectReferencesOf(join.LeftInput().OutputExpressions())
			rightRefs := lqp.CollectReferencesOf(join.RightInput().OutputExpressions())

			passThrough := join.Mode != schema.JoinSemi &&
				join.Mode != schema.JoinAntiNullAsTrue && join.Mode != schema.JoinAntiNullAsFalse

			updated := &expression.ReplacementMapping{}

			for i := range mapping.From {
				from := mapping.From[i]
				to := mapping.To[i]

				if leftRefs.Contains(from) && rightRefs.Contains(to) {
					updated.Add(from, to.WithLineageStep(join, expression.LeftSide))
					updated.Add(to, to.WithLineageStep(join, expression.RightSide))
				}
				if rightRefs.Contains(from) && leftRefs.Contains(to) {
					updated.Add(from, to.WithLineageStep(join, expression.RightSide))
					updated.Add(to, to.WithLineageStep(join, expression.LeftSide))
				}
			}

			for i := range updated.From {
				local.Add(updated.From[i], updated.To[i])
				if passThrough {
					mapping.Add(updated.From[i], updated.To[i])
				}
			}
		}

		perNode[node] = local
		return lqp.VisitOutputs
	})
}

// applyMappingToNodeExpressions rewrites a node's own expressions on
// deep copies, swapping each copy in only when something changed.
func applyMappingToNodeExpressions(node lqp.Node, mapping *expression.ReplacementMapping) {
	exprs := node.NodeExpressions()
	if len(exprs) == 0 {
		return
	}

	changed := false
	out := make([]expression.Expression, len(exprs))
	for i, e := range exprs {
		replaced, did := expression.ReplaceColumnReferences(e, mapping)
		out[i] = replaced
		changed = changed || did
	}

	if changed {
		node.SetNodeExpressions(out)
	}
}
