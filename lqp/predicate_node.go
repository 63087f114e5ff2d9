package lqp

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/dot5enko/column-query-engine/expression"
)

// PredicateNode filters its input by one predicate expression.
type PredicateNode struct {
	baseNode
}

func NewPredicateNode(predicate expression.Expression, input Node) *PredicateNode {
	n := &PredicateNode{}
	n.init(n, TypePredicate, []expression.Expression{predicate})
	if input != nil {
		n.SetLeftInput(input)
	}
	return n
}

func (n *PredicateNode) Predicate() expression.Expression {
	return n.NodeExpressions()[0]
}

func (n *PredicateNode) Description() string {
	return fmt.Sprintf("[Predicate] %s", n.Predicate().Description())
}

func (n *PredicateNode) shallowHash(h *xxhash.Digest) {
	writeUint64(h, expression.Hash(n.Predicate()))
}

func (n *PredicateNode) shallowEquals(other Node, mapping NodeMapping) bool {
	return expressionsEqualAcross(n.NodeExpressions(), other.NodeExpressions(), mapping)
}

func (n *PredicateNode) shallowCopy(mapping NodeMapping) Node {
	return NewPredicateNode(adaptExpression(n.Predicate(), mapping), nil)
}
