package lqp

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/schema"
)

// JoinNode joins its two inputs. Its output concatenates the left and
// right column lists (left only for the semi/anti modes). Columns that
// appear on both sides by origin get a lineage step appended so that
// upstream references stay unambiguous; the inputs' expressions are
// never mutated, only deep-copied replacements are installed.
type JoinNode struct {
	baseNode

	Mode schema.JoinMode
}

func NewJoinNode(mode schema.JoinMode, predicates []expression.Expression, left, right Node) *JoinNode {
	if mode == schema.JoinCross {
		if len(predicates) != 0 {
			panic("cross joins take no predicate")
		}
	} else if len(predicates) == 0 {
		panic("non-cross joins require predicates")
	}

	n := &JoinNode{Mode: mode}
	n.init(n, TypeJoin, predicates)
	if left != nil {
		n.SetLeftInput(left)
	}
	if right != nil {
		n.SetRightInput(right)
	}
	return n
}

func (n *JoinNode) JoinPredicates() []expression.Expression {
	return n.NodeExpressions()
}

func (n *JoinNode) PrimaryPredicate() expression.Expression {
	if len(n.NodeExpressions()) == 0 {
		return nil
	}
	return n.NodeExpressions()[0]
}

func (n *JoinNode) OutputExpressions() []expression.Expression {
	left := n.LeftInput()
	right := n.RightInput()
	if left == nil || right == nil {
		panic("join node needs both inputs to determine its columns")
	}

	leftExpressions := left.OutputExpressions()

	if n.Mode.EmitsOnlyLeftColumns() {
		return append([]expression.Expression(nil), leftExpressions...)
	}

	rightExpressions := right.OutputExpressions()

	leftRefs := CollectReferencesOf(leftExpressions)
	rightRefs := CollectReferencesOf(rightExpressions)

	ambiguous := expression.NewReferenceSet()
	for _, ref := range leftRefs.Items() {
		if rightRefs.Contains(ref) {
			ambiguous.Add(ref)
		}
	}

	out := make([]expression.Expression, 0, len(leftExpressions)+len(rightExpressions))
	out = append(out, leftExpressions...)
	out = append(out, rightExpressions...)

	if ambiguous.Size() == 0 {
		return out
	}

	for i := range out {
		side := expression.LeftSide
		if i >= len(leftExpressions) {
			side = expression.RightSide
		}
		out[i] = n.disambiguate(out[i], ambiguous, side)
	}
	return out
}

// disambiguate deep-copies the expression with a lineage step appended
// to every ambiguous column reference. The original is returned when
// nothing matched.
func (n *JoinNode) disambiguate(e expression.Expression, ambiguous *expression.ReferenceSet, side expression.LQPInputSide) expression.Expression {
	replaced := false
	copied := expression.DeepCopy(e)
	expression.Visit(copied, func(sub expression.Expression) expression.Visitation {
		col, ok := sub.(*expression.LQPColumnExpression)
		if !ok {
			return expression.VisitArguments
		}
		if !ambiguous.Contains(col.Reference) {
			return expression.DoNotVisitArguments
		}
		col.Reference = col.Reference.WithLineageStep(n, side)
		replaced = true
		return expression.VisitArguments
	})

	if !replaced {
		return e
	}
	return copied
}

func (n *JoinNode) IsColumnNullable(id schema.ColumnID) bool {
	left := n.LeftInput()
	right := n.RightInput()
	if left == nil || right == nil {
		panic("join node needs both inputs to determine nullability")
	}

	leftCount := len(left.OutputExpressions())
	fromLeft := int(id) < leftCount

	switch {
	case n.Mode == schema.JoinLeft && !fromLeft:
		return true
	case n.Mode == schema.JoinRight && fromLeft:
		return true
	case n.Mode == schema.JoinFullOuter:
		return true
	}

	if fromLeft {
		return left.IsColumnNullable(id)
	}
	return right.IsColumnNullable(id - schema.ColumnID(leftCount))
}

// FindColumnID resolves an expression possibly carrying lineage
// addressed to this join. A lineage step is consumed from a copy to pick
// the side; when both sides match and no lineage decides, the result is
// Ambiguous.
func (n *JoinNode) FindColumnID(e expression.Expression) (schema.ColumnID, FindResult) {
	var disambiguatedSide *expression.LQPInputSide

	disambiguated := expression.DeepCopy(e)
	expression.Visit(disambiguated, func(sub expression.Expression) expression.Visitation {
		col, ok := sub.(*expression.LQPColumnExpression)
		if !ok {
			return expression.VisitArguments
		}
		side, found := col.Reference.LineageFor(n)
		if !found {
			return expression.VisitArguments
		}
		if disambiguatedSide != nil && *disambiguatedSide == side {
			return expression.DoNotVisitArguments
		}
		disambiguatedSide = &side
		col.Reference = col.Reference.WithoutLineageStep(n)
		return expression.VisitArguments
	})

	leftColumns := n.LeftInput().OutputExpressions()
	leftCount := len(leftColumns)

	foundLeft := schema.InvalidColumnID
	foundRight := schema.InvalidColumnID
	if id, res := findColumnIDIn(leftColumns, disambiguated); res == Found {
		foundLeft = id
	}
	if right := n.RightInput(); right != nil && !n.Mode.EmitsOnlyLeftColumns() {
		if id, res := findColumnIDIn(right.OutputExpressions(), disambiguated); res == Found {
			foundRight = id + schema.ColumnID(leftCount)
		}
	}

	leftWins := foundLeft != schema.InvalidColumnID &&
		(foundRight == schema.InvalidColumnID ||
			(disambiguatedSide != nil && *disambiguatedSide == expression.LeftSide))
	if leftWins {
		return foundLeft, Found
	}

	rightWins := foundRight != schema.InvalidColumnID &&
		(foundLeft == schema.InvalidColumnID ||
			(disambiguatedSide != nil && *disambiguatedSide == expression.RightSide))
	if rightWins {
		return foundRight, Found
	}

	if foundLeft != schema.InvalidColumnID && foundRight != schema.InvalidColumnID {
		return schema.InvalidColumnID, Ambiguous
	}
	return schema.InvalidColumnID, NotFound
}

// UniqueSets propagates constraints by mode: semi/anti filter the left
// side, inner equi-joins on a key covering one side's unique set keep
// the other side's constraints.
func (n *JoinNode) UniqueSets() []UniqueColumnCombination {
	left := n.LeftInput()
	right := n.RightInput()
	if left == nil || right == nil {
		return nil
	}

	if n.Mode.EmitsOnlyLeftColumns() {
		return left.UniqueSets()
	}

	if n.Mode != schema.JoinInner {
		return nil
	}

	primary, ok := n.PrimaryPredicate().(*expression.PredicateExpression)
	if !ok || primary.Condition != schema.Equals {
		return nil
	}

	args := primary.Arguments()
	leftKey, rightKey := args[0], args[1]
	if _, res := left.FindColumnID(leftKey); res != Found {
		leftKey, rightKey = rightKey, leftKey
	}

	var out []UniqueColumnCombination

	// right key unique on the right side: left rows match at most once
	for _, set := range right.UniqueSets() {
		if set.CoveredBy([]expression.Expression{rightKey}) {
			out = append(out, left.UniqueSets()...)
			break
		}
	}
	for _, set := range left.UniqueSets() {
		if set.CoveredBy([]expression.Expression{leftKey}) {
			out = append(out, right.UniqueSets()...)
			break
		}
	}
	return out
}

func (n *JoinNode) Description() string {
	parts := make([]string, len(n.NodeExpressions()))
	for i, e := range n.NodeExpressions() {
		parts[i] = e.Description()
	}
	if len(parts) == 0 {
		return fmt.Sprintf("[Join] Mode: %s", n.Mode)
	}
	return fmt.Sprintf("[Join] Mode: %s [%s]", n.Mode, strings.Join(parts, ", "))
}

func (n *JoinNode) shallowHash(h *xxhash.Digest) {
	writeUint64(h, uint64(n.Mode))
	for _, e := range n.NodeExpressions() {
		writeUint64(h, expression.Hash(e))
	}
}

func (n *JoinNode) shallowEquals(other Node, mapping NodeMapping) bool {
	o := other.(*JoinNode)
	if n.Mode != o.Mode {
		return false
	}
	return expressionsEqualAcross(n.NodeExpressions(), o.NodeExpressions(), mapping)
}

func (n *JoinNode) shallowCopy(mapping NodeMapping) Node {
	return NewJoinNode(n.Mode, adaptExpressions(n.NodeExpressions(), mapping), nil, nil)
}
