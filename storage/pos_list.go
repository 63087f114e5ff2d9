package storage

import "github.com/dot5enko/column-query-engine/schema"

// PosList is an ordered sequence of RowIDs. Once a list is handed to a
// ReferenceSegment it is shared and must not be mutated anymore.
type PosList struct {
	rows []schema.RowID

	// all rows point into the same chunk
	singleChunk bool
}

func NewPosList(capacity int) *PosList {
	return &PosList{rows: make([]schema.RowID, 0, capacity)}
}

func PosListFromRows(rows []schema.RowID) *PosList {
	return &PosList{rows: rows}
}

func (p *PosList) Append(row schema.RowID) {
	p.rows = append(p.rows, row)
}

func (p *PosList) Size() int {
	return len(p.rows)
}

func (p *PosList) Get(i int) schema.RowID {
	return p.rows[i]
}

func (p *PosList) Rows() []schema.RowID {
	return p.rows
}

// GuaranteeSingleChunk records that every row references one chunk.
// Scans use it to skip per-row chunk resolution.
func (p *PosList) GuaranteeSingleChunk() {
	p.singleChunk = true
}

func (p *PosList) ReferencesSingleChunk() bool {
	return p.singleChunk
}

// SplitByChunk partitions the list into per-chunk offset lists, keeping
// the original order inside every partition. NULL rows are dropped, the
// returned map only covers chunks that actually occur.
func (p *PosList) SplitByChunk() map[schema.ChunkID][]schema.ChunkOffset {
	out := make(map[schema.ChunkID][]schema.ChunkOffset)
	for _, row := range p.rows {
		if row.IsNull() {
			continue
		}
		out[row.Chunk] = append(out[row.Chunk], row.Offset)
	}
	return out
}
