package lqp

import "github.com/cespare/xxhash/v2"

// RootNode is the fixed anchor above a query plan. Optimizer rules hold
// onto it so they can replace the plan's topmost real node.
type RootNode struct {
	baseNode
}

func NewRootNode(plan Node) *RootNode {
	n := &RootNode{}
	n.init(n, TypeRoot, nil)
	if plan != nil {
		n.SetLeftInput(plan)
	}
	return n
}

func (n *RootNode) Description() string {
	return "[Root]"
}

func (n *RootNode) shallowHash(*xxhash.Digest) {}

func (n *RootNode) shallowEquals(Node, NodeMapping) bool { return true }

func (n *RootNode) shallowCopy(NodeMapping) Node {
	return NewRootNode(nil)
}
