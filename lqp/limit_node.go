package lqp

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// LimitNode caps the row count of its input.
type LimitNode struct {
	baseNode

	RowCount uint64
}

func NewLimitNode(rowCount uint64, input Node) *LimitNode {
	n := &LimitNode{RowCount: rowCount}
	n.init(n, TypeLimit, nil)
	if input != nil {
		n.SetLeftInput(input)
	}
	return n
}

func (n *LimitNode) Description() string {
	return fmt.Sprintf("[Limit] %d", n.RowCount)
}

func (n *LimitNode) shallowHash(h *xxhash.Digest) {
	writeUint64(h, n.RowCount)
}

func (n *LimitNode) shallowEquals(other Node, _ NodeMapping) bool {
	return n.RowCount == other.(*LimitNode).RowCount
}

func (n *LimitNode) shallowCopy(_ NodeMapping) Node {
	return NewLimitNode(n.RowCount, nil)
}
