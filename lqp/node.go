// Package lqp models the logical query plan: a DAG of relational nodes
// whose columns are tracked as expressions. Nodes are shared between
// sub-plans, optimizer rules rewrite them in place.
package lqp

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/schema"
)

type NodeType uint8

const (
	TypeStoredTable NodeType = iota
	TypeMock
	TypePredicate
	TypeProjection
	TypeAggregate
	TypeJoin
	TypeSort
	TypeUnion
	TypeLimit
	TypeRoot
)

func (t NodeType) String() string {
	switch t {
	case TypeStoredTable:
		return "StoredTable"
	case TypeMock:
		return "Mock"
	case TypePredicate:
		return "Predicate"
	case TypeProjection:
		return "Projection"
	case TypeAggregate:
		return "Aggregate"
	case TypeJoin:
		return "Join"
	case TypeSort:
		return "Sort"
	case TypeUnion:
		return "Union"
	case TypeLimit:
		return "Limit"
	case TypeRoot:
		return "Root"
	default:
		panic(fmt.Sprintf("unknown node type %d", uint8(t)))
	}
}

// FindResult distinguishes "not part of this node's output" from "found
// on both sides and lineage cannot break the tie".
type FindResult uint8

const (
	Found FindResult = iota
	NotFound
	Ambiguous
)

type OutputRelation struct {
	Output Node
	Side   expression.LQPInputSide
}

type NodeMapping map[Node]Node

type Node interface {
	expression.LQPNode

	NodeType() NodeType

	LeftInput() Node
	RightInput() Node
	Input(side expression.LQPInputSide) Node
	SetLeftInput(Node)
	SetRightInput(Node)
	SetInput(side expression.LQPInputSide, input Node)

	// Outputs lists consumers, one entry per distinct consumer even when
	// both of its inputs are this node.
	Outputs() []Node
	OutputRelations() []OutputRelation

	// NodeExpressions are the expressions the node itself owns
	// (predicates, projections, sort keys, ...). Optimizer rules may
	// replace the slice wholesale, entries are copy-on-write.
	NodeExpressions() []expression.Expression
	SetNodeExpressions([]expression.Expression)

	// OutputExpressions is the ordered list of columns the node exposes.
	OutputExpressions() []expression.Expression
	IsColumnNullable(id schema.ColumnID) bool
	FindColumnID(e expression.Expression) (schema.ColumnID, FindResult)

	UniqueSets() []UniqueColumnCombination

	DeepCopy() Node

	shallowHash(h *xxhash.Digest)
	shallowEquals(other Node, mapping NodeMapping) bool
	shallowCopy(mapping NodeMapping) Node
}

// baseNode carries the wiring every node shares. self points back at the
// concrete node for dynamic dispatch.
type baseNode struct {
	self        Node
	nodeType    NodeType
	inputs      [2]Node
	expressions []expression.Expression

	outputs      []Node
	outputCounts []int
}

func (n *baseNode) init(self Node, t NodeType, exprs []expression.Expression) {
	n.self = self
	n.nodeType = t
	n.expressions = exprs
}

func (n *baseNode) NodeType() NodeType { return n.nodeType }

func (n *baseNode) LeftInput() Node  { return n.inputs[0] }
func (n *baseNode) RightInput() Node { return n.inputs[1] }

func (n *baseNode) Input(side expression.LQPInputSide) Node {
	return n.inputs[side]
}

func (n *baseNode) SetLeftInput(input Node)  { n.SetInput(expression.LeftSide, input) }
func (n *baseNode) SetRightInput(input Node) { n.SetInput(expression.RightSide, input) }

func (n *baseNode) SetInput(side expression.LQPInputSide, input Node) {
	old := n.inputs[side]
	if old == input {
		return
	}
	if old != nil {
		old.(interface{ removeOutput(Node) }).removeOutput(n.self)
	}
	n.inputs[side] = input
	if input != nil {
		input.(interface{ addOutput(Node) }).addOutput(n.self)
	}
}

func (n *baseNode) addOutput(out Node) {
	for i, have := range n.outputs {
		if have == out {
			n.outputCounts[i]++
			return
		}
	}
	n.outputs = append(n.outputs, out)
	n.outputCounts = append(n.outputCounts, 1)
}

func (n *baseNode) removeOutput(out Node) {
	for i, have := range n.outputs {
		if have == out {
			n.outputCounts[i]--
			if n.outputCounts[i] == 0 {
				n.outputs = append(n.outputs[:i], n.outputs[i+1:]...)
				n.outputCounts = append(n.outputCounts[:i], n.outputCounts[i+1:]...)
			}
			return
		}
	}
}

func (n *baseNode) Outputs() []Node {
	return append([]Node(nil), n.outputs...)
}

func (n *baseNode) OutputRelations() []OutputRelation {
	var out []OutputRelation
	for _, o := range n.outputs {
		if o.LeftInput() == n.self {
			out = append(out, OutputRelation{Output: o, Side: expression.LeftSide})
		}
		if o.RightInput() == n.self {
			out = append(out, OutputRelation{Output: o, Side: expression.RightSide})
		}
	}
	return out
}

func (n *baseNode) NodeExpressions() []expression.Expression {
	return n.expressions
}

func (n *baseNode) SetNodeExpressions(exprs []expression.Expression) {
	n.expressions = exprs
}

// default column surface: forward the left input

func (n *baseNode) OutputExpressions() []expression.Expression {
	if n.inputs[0] == nil {
		panic(n.nodeType.String() + " node has no input to derive columns from")
	}
	return n.inputs[0].OutputExpressions()
}

func (n *baseNode) IsColumnNullable(id schema.ColumnID) bool {
	if n.inputs[0] == nil {
		panic(n.nodeType.String() + " node has no input to derive nullability from")
	}
	return n.inputs[0].IsColumnNullable(id)
}

func (n *baseNode) FindColumnID(e expression.Expression) (schema.ColumnID, FindResult) {
	return findColumnIDIn(n.self.OutputExpressions(), e)
}

func findColumnIDIn(columns []expression.Expression, e expression.Expression) (schema.ColumnID, FindResult) {
	for id, col := range columns {
		if expression.Equal(col, e) {
			return schema.ColumnID(id), Found
		}
	}
	return schema.InvalidColumnID, NotFound
}

func (n *baseNode) UniqueSets() []UniqueColumnCombination {
	if n.inputs[0] == nil {
		return nil
	}
	return n.inputs[0].UniqueSets()
}

// Hash is recursive over the node and its inputs.
func (n *baseNode) Hash() uint64 {
	h := xxhash.New()
	hashNodeInto(n.self, h)
	return h.Sum64()
}

func hashNodeInto(n Node, h *xxhash.Digest) {
	if n == nil {
		h.Write([]byte{0xff})
		return
	}
	writeUint64(h, uint64(n.NodeType()))
	n.shallowHash(h)
	hashNodeInto(n.LeftInput(), h)
	hashNodeInto(n.RightInput(), h)
}

func writeUint64(h *xxhash.Digest, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	h.Write(buf[:])
}

// PlanEquals compares two plans structurally, matching nodes positionally
// so that column references across the plans line up.
func (n *baseNode) PlanEquals(other expression.LQPNode) bool {
	otherNode, ok := other.(Node)
	if !ok {
		return false
	}
	mapping := NodeMapping{}
	return plansEqual(n.self, otherNode, mapping)
}

func plansEqual(a, b Node, mapping NodeMapping) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if mapped, ok := mapping[a]; ok {
		return mapped == b
	}
	if a.NodeType() != b.NodeType() {
		return false
	}

	mapping[a] = b

	if !plansEqual(a.LeftInput(), b.LeftInput(), mapping) {
		return false
	}
	if !plansEqual(a.RightInput(), b.RightInput(), mapping) {
		return false
	}

	return a.shallowEquals(b, mapping)
}

func (n *baseNode) DeepCopy() Node {
	return DeepCopyPlan(n.self, NodeMapping{})
}

// DeepCopyPlan clones the plan below root. The mapping is filled with
// original -> copy pairs; shared sub-plans stay shared in the copy.
func DeepCopyPlan(root Node, mapping NodeMapping) Node {
	if root == nil {
		return nil
	}
	if copied, ok := mapping[root]; ok {
		return copied
	}

	left := DeepCopyPlan(root.LeftInput(), mapping)
	right := DeepCopyPlan(root.RightInput(), mapping)

	copied := root.shallowCopy(mapping)
	// upstream nodes copied later see this node in the mapping, so
	// lineage steps pointing at it are re-targeted
	mapping[root] = copied

	if left != nil {
		copied.SetLeftInput(left)
	}
	if right != nil {
		copied.SetRightInput(right)
	}
	return copied
}

func (n *baseNode) Description() string {
	return "[" + n.nodeType.String() + "]"
}
