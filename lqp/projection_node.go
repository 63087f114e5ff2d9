package lqp

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/schema"
)

// ProjectionNode exposes exactly its node expressions as columns.
type ProjectionNode struct {
	baseNode
}

func NewProjectionNode(expressions []expression.Expression, input Node) *ProjectionNode {
	if len(expressions) == 0 {
		panic("projection needs at least one expression")
	}
	n := &ProjectionNode{}
	n.init(n, TypeProjection, expressions)
	if input != nil {
		n.SetLeftInput(input)
	}
	return n
}

func (n *ProjectionNode) OutputExpressions() []expression.Expression {
	return n.NodeExpressions()
}

func (n *ProjectionNode) IsColumnNullable(id schema.ColumnID) bool {
	return expressionNullableOn(n.NodeExpressions()[id], n.LeftInput())
}

func (n *ProjectionNode) UniqueSets() []UniqueColumnCombination {
	if n.LeftInput() == nil {
		return nil
	}
	return filterSurviving(n.LeftInput().UniqueSets(), n.OutputExpressions())
}

func (n *ProjectionNode) Description() string {
	parts := make([]string, len(n.NodeExpressions()))
	for i, e := range n.NodeExpressions() {
		parts[i] = e.Description()
	}
	return fmt.Sprintf("[Projection] %s", strings.Join(parts, ", "))
}

func (n *ProjectionNode) shallowHash(h *xxhash.Digest) {
	for _, e := range n.NodeExpressions() {
		writeUint64(h, expression.Hash(e))
	}
}

func (n *ProjectionNode) shallowEquals(other Node, mapping NodeMapping) bool {
	return expressionsEqualAcross(n.NodeExpressions(), other.NodeExpressions(), mapping)
}

func (n *ProjectionNode) shallowCopy(mapping NodeMapping) Node {
	return NewProjectionNode(adaptExpressions(n.NodeExpressions(), mapping), nil)
}

// expressionNullableOn resolves an expression's nullability against the
// plan producing its inputs.
func expressionNullableOn(e expression.Expression, plan Node) bool {
	switch typed := e.(type) {
	case *expression.LQPColumnExpression:
		if plan != nil {
			if id, result := plan.FindColumnID(typed); result == Found {
				return plan.IsColumnNullable(id)
			}
		}
		return typed.Nullable
	case *expression.ValueExpression:
		return typed.Value.IsNull()
	case *expression.AggregateExpression:
		switch typed.Function {
		case expression.Count, expression.CountDistinct:
			return false
		default:
			return true
		}
	default:
		for _, arg := range e.Arguments() {
			if expressionNullableOn(arg, plan) {
				return true
			}
		}
		return false
	}
}
