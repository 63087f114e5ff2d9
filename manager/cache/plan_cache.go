// Package cache keeps translated physical plans around, keyed by the
// structural hash of the logical plan they came from.
package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dot5enko/column-query-engine/lqp"
	"github.com/dot5enko/column-query-engine/operators"
)

type Stats struct {
	Hits   atomic.Int64
	Misses atomic.Int64
}

// PlanCache maps LQP hashes to operator trees. Cached operators are
// single-shot, so a hit always hands out a fresh deep copy.
type PlanCache struct {
	entries *lru.Cache[uint64, operators.Operator]
	stats   Stats
}

func NewPlanCache(size int) (*PlanCache, error) {
	entries, err := lru.New[uint64, operators.Operator](size)
	if err != nil {
		return nil, err
	}
	return &PlanCache{entries: entries}, nil
}

// Fetch returns an executable copy of the cached plan, if any.
func (c *PlanCache) Fetch(plan lqp.Node) (operators.Operator, bool) {
	cached, ok := c.entries.Get(plan.Hash())
	if !ok {
		c.stats.Misses.Add(1)
		return nil, false
	}
	c.stats.Hits.Add(1)
	return cached.DeepCopy(), true
}

// Store remembers the unexecuted shape of an operator tree.
func (c *PlanCache) Store(plan lqp.Node, root operators.Operator) {
	c.entries.Add(plan.Hash(), root.DeepCopy())
}

func (c *PlanCache) Len() int {
	return c.entries.Len()
}

func (c *PlanCache) Hits() int64 {
	return c.stats.Hits.Load()
}

func (c *PlanCache) Misses() int64 {
	return c.stats.Misses.Load()
}
