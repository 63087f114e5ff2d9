package lqp

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/dot5enko/column-query-engine/schema"
)

// UnionNode combines two inputs over the same column set. Positions mode
// unions row selections of the same source table, All concatenates.
type UnionNode struct {
	baseNode

	Mode schema.UnionMode
}

func NewUnionNode(mode schema.UnionMode, left, right Node) *UnionNode {
	n := &UnionNode{Mode: mode}
	n.init(n, TypeUnion, nil)
	if left != nil {
		n.SetLeftInput(left)
	}
	if right != nil {
		n.SetRightInput(right)
	}
	return n
}

func (n *UnionNode) IsColumnNullable(id schema.ColumnID) bool {
	return n.LeftInput().IsColumnNullable(id) || n.RightInput().IsColumnNullable(id)
}

func (n *UnionNode) UniqueSets() []UniqueColumnCombination {
	// concatenation can duplicate any row
	return nil
}

func (n *UnionNode) Description() string {
	return fmt.Sprintf("[Union] Mode: %s", n.Mode)
}

func (n *UnionNode) shallowHash(h *xxhash.Digest) {
	writeUint64(h, uint64(n.Mode))
}

func (n *UnionNode) shallowEquals(other Node, _ NodeMapping) bool {
	return n.Mode == other.(*UnionNode).Mode
}

func (n *UnionNode) shallowCopy(_ NodeMapping) Node {
	return NewUnionNode(n.Mode, nil, nil)
}
