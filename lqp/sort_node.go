package lqp

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/schema"
)

// SortNode orders its input by the node expressions, primary key first.
type SortNode struct {
	baseNode

	Modes []schema.OrderMode
}

func NewSortNode(expressions []expression.Expression, modes []schema.OrderMode, input Node) *SortNode {
	if len(expressions) != len(modes) {
		panic("sort needs one mode per expression")
	}
	if len(expressions) == 0 {
		panic("sort needs at least one expression")
	}

	n := &SortNode{Modes: modes}
	n.init(n, TypeSort, expressions)
	if input != nil {
		n.SetLeftInput(input)
	}
	return n
}

func (n *SortNode) Description() string {
	parts := make([]string, len(n.NodeExpressions()))
	for i, e := range n.NodeExpressions() {
		parts[i] = fmt.Sprintf("%s (%s)", e.Description(), n.Modes[i])
	}
	return fmt.Sprintf("[Sort] %s", strings.Join(parts, ", "))
}

func (n *SortNode) shallowHash(h *xxhash.Digest) {
	for i, e := range n.NodeExpressions() {
		writeUint64(h, expression.Hash(e))
		writeUint64(h, uint64(n.Modes[i]))
	}
}

func (n *SortNode) shallowEquals(other Node, mapping NodeMapping) bool {
	o := other.(*SortNode)
	if len(n.Modes) != len(o.Modes) {
		return false
	}
	for i := range n.Modes {
		if n.Modes[i] != o.Modes[i] {
			return false
		}
	}
	return expressionsEqualAcross(n.NodeExpressions(), o.NodeExpressions(), mapping)
}

func (n *SortNode) shallowCopy(mapping NodeMapping) Node {
	return NewSortNode(
		adaptExpressions(n.NodeExpressions(), mapping),
		append([]schema.OrderMode(nil), n.Modes...),
		nil,
	)
}
