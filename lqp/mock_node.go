package lqp

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/schema"
)

// MockColumnDefinition describes one synthetic column of a MockNode.
type MockColumnDefinition struct {
	Name     string
	Type     schema.DataType
	Nullable bool
}

// MockNode is a leaf with synthetic columns, used by optimizer tests.
type MockNode struct {
	baseNode

	Name    string
	Columns []MockColumnDefinition

	// declared unique column id sets
	keys [][]schema.ColumnID
}

func NewMockNode(name string, columns []MockColumnDefinition) *MockNode {
	n := &MockNode{Name: name, Columns: columns}
	n.init(n, TypeMock, nil)
	return n
}

func (n *MockNode) DeclareKey(columns []schema.ColumnID) {
	n.keys = append(n.keys, columns)
}

func (n *MockNode) GetColumn(name string) expression.LQPColumnReference {
	for i, col := range n.Columns {
		if col.Name == name {
			return expression.NewColumnReference(n, schema.ColumnID(i))
		}
	}
	panic(fmt.Sprintf("mock node %q has no column %q", n.Name, name))
}

func (n *MockNode) columnExpressionFor(id schema.ColumnID) *expression.LQPColumnExpression {
	return expression.NewLQPColumn(
		expression.NewColumnReference(n, id),
		n.Columns[id].Type,
		n.Columns[id].Nullable,
	)
}

func (n *MockNode) OutputExpressions() []expression.Expression {
	out := make([]expression.Expression, len(n.Columns))
	for i := range n.Columns {
		out[i] = n.columnExpressionFor(schema.ColumnID(i))
	}
	return out
}

func (n *MockNode) IsColumnNullable(id schema.ColumnID) bool {
	return n.Columns[id].Nullable
}

func (n *MockNode) UniqueSets() []UniqueColumnCombination {
	var out []UniqueColumnCombination
	for _, key := range n.keys {
		combo := UniqueColumnCombination{}
		for _, col := range key {
			combo.Expressions = append(combo.Expressions, n.columnExpressionFor(col))
		}
		out = append(out, combo)
	}
	return out
}

func (n *MockNode) Description() string {
	return fmt.Sprintf("[Mock] %s", n.Name)
}

func (n *MockNode) shallowHash(h *xxhash.Digest) {
	h.WriteString(n.Name)
	for _, col := range n.Columns {
		h.WriteString(col.Name)
		writeUint64(h, uint64(col.Type))
	}
}

func (n *MockNode) shallowEquals(other Node, _ NodeMapping) bool {
	o := other.(*MockNode)
	if n.Name != o.Name || len(n.Columns) != len(o.Columns) {
		return false
	}
	for i := range n.Columns {
		if n.Columns[i] != o.Columns[i] {
			return false
		}
	}
	return true
}

func (n *MockNode) shallowCopy(_ NodeMapping) Node {
	copied := NewMockNode(n.Name, append([]MockColumnDefinition(nil), n.Columns...))
	for _, key := range n.keys {
		copied.DeclareKey(append([]schema.ColumnID(nil), key...))
	}
	return copied
}
