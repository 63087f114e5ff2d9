// Package optimizer rewrites logical query plans through an ordered rule
// pipeline. Rules mutate the plan below a RootNode in place; a single
// optimizer pass runs at a time.
package optimizer

import (
	"log/slog"

	"github.com/dot5enko/column-query-engine/lqp"
)

type Rule interface {
	Name() string
	Apply(root *lqp.RootNode)
}

type Optimizer struct {
	rules []Rule
}

func New(rules ...Rule) *Optimizer {
	return &Optimizer{rules: rules}
}

// NewDefault assembles the standard pipeline.
func NewDefault() *Optimizer {
	return New(
		&ColumnPruningRule{},
		&PredicatePlacementRule{},
		&JoinOrderingRule{},
		&DependentGroupByReductionRule{},
		&DisjunctionToUnionRule{},
		&SubplanReuseRule{},
	)
}

func (o *Optimizer) AddRule(rule Rule) {
	o.rules = append(o.rules, rule)
}

// Optimize runs all rules over the plan and returns the rewritten plan.
// The input plan is anchored below a fresh root, callers keep using the
// returned plan node.
func (o *Optimizer) Optimize(plan lqp.Node) lqp.Node {
	root, ok := plan.(*lqp.RootNode)
	if !ok {
		root = lqp.NewRootNode(plan)
	}

	for _, rule := range o.rules {
		rule.Apply(root)
		slog.Debug("applied optimizer rule", "rule", rule.Name())
	}

	return root.LeftInput()
}

// ApplyRule runs a single rule, mainly for tests.
func ApplyRule(rule Rule, plan lqp.Node) lqp.Node {
	root, ok := plan.(*lqp.RootNode)
	if !ok {
		root = lqp.NewRootNode(plan)
	}
	rule.Apply(root)
	return root.LeftInput()
}
