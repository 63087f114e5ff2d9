package lqp

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/dot5enko/column-query-engine/expression"
	"github.com/dot5enko/column-query-engine/schema"
)

// AggregateNode groups by its first groupByCount node expressions and
// computes the remaining ones, which must all be aggregate expressions.
type AggregateNode struct {
	baseNode

	groupByCount int
}

func NewAggregateNode(groupBy, aggregates []expression.Expression, input Node) *AggregateNode {
	for _, agg := range aggregates {
		if agg.Kind() != expression.KindAggregate {
			panic("aggregate node: " + agg.Description() + " is not an aggregate")
		}
	}

	exprs := make([]expression.Expression, 0, len(groupBy)+len(aggregates))
	exprs = append(exprs, groupBy...)
	exprs = append(exprs, aggregates...)

	n := &AggregateNode{groupByCount: len(groupBy)}
	n.init(n, TypeAggregate, exprs)
	if input != nil {
		n.SetLeftInput(input)
	}
	return n
}

func (n *AggregateNode) GroupByExpressions() []expression.Expression {
	return n.NodeExpressions()[:n.groupByCount]
}

func (n *AggregateNode) AggregateExpressions() []expression.Expression {
	return n.NodeExpressions()[n.groupByCount:]
}

// SetGroupByCount is used by rewrites that shrink the group-by list.
func (n *AggregateNode) SetGroupByCount(count int) {
	n.groupByCount = count
}

func (n *AggregateNode) GroupByCount() int {
	return n.groupByCount
}

func (n *AggregateNode) OutputExpressions() []expression.Expression {
	return n.NodeExpressions()
}

func (n *AggregateNode) IsColumnNullable(id schema.ColumnID) bool {
	return expressionNullableOn(n.NodeExpressions()[id], n.LeftInput())
}

func (n *AggregateNode) UniqueSets() []UniqueColumnCombination {
	out := []UniqueColumnCombination{{
		Expressions: append([]expression.Expression(nil), n.GroupByExpressions()...),
	}}
	if n.LeftInput() != nil {
		out = append(out, filterSurviving(n.LeftInput().UniqueSets(), n.OutputExpressions())...)
	}
	return out
}

func (n *AggregateNode) Description() string {
	groups := make([]string, 0, n.groupByCount)
	for _, e := range n.GroupByExpressions() {
		groups = append(groups, e.Description())
	}
	aggs := make([]string, 0, len(n.AggregateExpressions()))
	for _, e := range n.AggregateExpressions() {
		aggs = append(aggs, e.Description())
	}
	return fmt.Sprintf("[Aggregate] GroupBy: [%s] Aggregates: [%s]",
		strings.Join(groups, ", "), strings.Join(aggs, ", "))
}

func (n *AggregateNode) shallowHash(h *xxhash.Digest) {
	writeUint64(h, uint64(n.groupByCount))
	for _, e := range n.NodeExpressions() {
		writeUint64(h, expression.Hash(e))
	}
}

func (n *AggregateNode) shallowEquals(other Node, mapping NodeMapping) bool {
	o := other.(*AggregateNode)
	if n.groupByCount != o.groupByCount {
		return false
	}
	return expressionsEqualAcross(n.NodeExpressions(), o.NodeExpressions(), mapping)
}

func (n *AggregateNode) shallowCopy(mapping NodeMapping) Node {
	adapted := adaptExpressions(n.NodeExpressions(), mapping)
	return NewAggregateNode(adapted[:n.groupByCount], adapted[n.groupByCount:], nil)
}
