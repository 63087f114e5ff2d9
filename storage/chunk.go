package storage

import (
	"fmt"
	"sync/atomic"

	"github.com/dot5enko/column-query-engine/schema"
	"github.com/dot5enko/column-query-engine/storage/stats"
)

// Chunk is an ordered tuple of same-length segments plus metadata. Chunks
// start out mutable and owned by a single writer; Finalize freezes them,
// after which segments, statistics and sort metadata never change.
type Chunk struct {
	segments []Segment

	finalized atomic.Bool

	orderedBy        []schema.SortColumnDefinition
	valueClusteredBy []schema.ColumnID

	invalidRowCount atomic.Uint32
	cleanupCommitID atomic.Uint32 // 0 = unset

	statistics []*stats.SegmentStatistics
}

func NewChunk(segments []Segment) *Chunk {
	if len(segments) == 0 {
		panic("chunk needs at least one segment")
	}

	size := segments[0].Size()
	for i, s := range segments[1:] {
		if s.Size() != size {
			panic(fmt.Sprintf("segment %d has size %d, expected %d", i+1, s.Size(), size))
		}
	}

	return &Chunk{segments: segments}
}

func (c *Chunk) Size() schema.ChunkOffset {
	if len(c.segments) == 0 {
		return 0
	}
	return c.segments[0].Size()
}

func (c *Chunk) ColumnCount() int {
	return len(c.segments)
}

func (c *Chunk) GetSegment(column schema.ColumnID) Segment {
	return c.segments[column]
}

// Finalize freezes the chunk and computes per-segment pruning filters.
func (c *Chunk) Finalize() {
	if !c.finalized.CompareAndSwap(false, true) {
		return
	}

	c.statistics = make([]*stats.SegmentStatistics, len(c.segments))
	for i, seg := range c.segments {
		c.statistics[i] = stats.Build(seg)
	}
}

func (c *Chunk) IsFinalized() bool {
	return c.finalized.Load()
}

func (c *Chunk) SegmentStatistics(column schema.ColumnID) *stats.SegmentStatistics {
	if c.statistics == nil {
		return nil
	}
	return c.statistics[column]
}

// SetOrderedBy records that the chunk rows actually follow the given
// sort definitions. At most one ordering per chunk.
func (c *Chunk) SetOrderedBy(defs []schema.SortColumnDefinition) {
	c.orderedBy = defs
}

func (c *Chunk) OrderedBy() []schema.SortColumnDefinition {
	return c.orderedBy
}

func (c *Chunk) SetValueClusteredBy(columns []schema.ColumnID) {
	c.valueClusteredBy = columns
}

func (c *Chunk) ValueClusteredBy() []schema.ColumnID {
	return c.valueClusteredBy
}

// OrderModeOfColumn reports whether the chunk is ordered on the column
// and how.
func (c *Chunk) OrderModeOfColumn(column schema.ColumnID) (schema.OrderMode, bool) {
	for _, def := range c.orderedBy {
		if def.Column == column {
			return def.Mode, true
		}
	}
	return 0, false
}

func (c *Chunk) InvalidRowCount() uint32 {
	return c.invalidRowCount.Load()
}

func (c *Chunk) IncreaseInvalidRowCount(by uint32) {
	c.invalidRowCount.Add(by)
}

func (c *Chunk) SetCleanupCommitID(id schema.CommitID) {
	c.cleanupCommitID.Store(uint32(id))
}

func (c *Chunk) CleanupCommitID() (schema.CommitID, bool) {
	v := c.cleanupCommitID.Load()
	return schema.CommitID(v), v != 0
}

func (c *Chunk) MemoryUsage() int {
	total := 0
	for _, s := range c.segments {
		total += s.MemoryUsage()
	}
	return total
}
