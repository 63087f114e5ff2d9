package expression

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/dot5enko/column-query-engine/schema"
)

type LQPInputSide uint8

const (
	LeftSide LQPInputSide = iota
	RightSide
)

func (s LQPInputSide) String() string {
	if s == LeftSide {
		return "left"
	}
	return "right"
}

// LineageStep records that a column travelled through a join on one
// side. The ordered sequence of steps disambiguates columns that share
// an origin but took different join paths through a reused sub-plan.
type LineageStep struct {
	Node LQPNode
	Side LQPInputSide
}

// LQPColumnReference identifies a column by its defining node and the
// column id that node assigned, plus lineage. Go's garbage collector
// handles the node/reference cycle, so the handle is a plain interface.
type LQPColumnReference struct {
	Original         LQPNode
	OriginalColumnID schema.ColumnID
	Lineage          []LineageStep
}

func NewColumnReference(original LQPNode, columnID schema.ColumnID) LQPColumnReference {
	return LQPColumnReference{Original: original, OriginalColumnID: columnID}
}

// WithLineageStep returns a copy extended by one step. The receiver's
// lineage slice is never shared with the result.
func (r LQPColumnReference) WithLineageStep(node LQPNode, side LQPInputSide) LQPColumnReference {
	lineage := make([]LineageStep, 0, len(r.Lineage)+1)
	lineage = append(lineage, r.Lineage...)
	lineage = append(lineage, LineageStep{Node: node, Side: side})
	return LQPColumnReference{
		Original:         r.Original,
		OriginalColumnID: r.OriginalColumnID,
		Lineage:          lineage,
	}
}

// WithoutLineage strips all lineage steps.
func (r LQPColumnReference) WithoutLineage() LQPColumnReference {
	return LQPColumnReference{Original: r.Original, OriginalColumnID: r.OriginalColumnID}
}

// LineageFor looks up the step addressed to the given node.
func (r LQPColumnReference) LineageFor(node LQPNode) (LQPInputSide, bool) {
	for _, step := range r.Lineage {
		if step.Node == node {
			return step.Side, true
		}
	}
	return 0, false
}

// WithoutLineageStep drops the step addressed to the given node.
func (r LQPColumnReference) WithoutLineageStep(node LQPNode) LQPColumnReference {
	out := LQPColumnReference{Original: r.Original, OriginalColumnID: r.OriginalColumnID}
	for _, step := range r.Lineage {
		if step.Node != node {
			out.Lineage = append(out.Lineage, step)
		}
	}
	return out
}

func (r LQPColumnReference) Equals(other LQPColumnReference) bool {
	if r.OriginalColumnID != other.OriginalColumnID {
		return false
	}
	if len(r.Lineage) != len(other.Lineage) {
		return false
	}
	if r.Original != other.Original {
		return false
	}
	for i := range r.Lineage {
		if r.Lineage[i].Side != other.Lineage[i].Side {
			return false
		}
		if r.Lineage[i].Node != other.Lineage[i].Node {
			return false
		}
	}
	return true
}

func (r LQPColumnReference) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "col#%d", r.OriginalColumnID)
	if r.Original != nil {
		fmt.Fprintf(&sb, "@%s", r.Original.Description())
	}
	for _, step := range r.Lineage {
		fmt.Fprintf(&sb, " via %s(%s)", step.Node.Description(), step.Side)
	}
	return sb.String()
}

// LQPColumnExpression is a leaf referring to a logical plan column.
type LQPColumnExpression struct {
	Reference LQPColumnReference

	// resolved output type, assigned by the defining node
	ColumnDataType schema.DataType
	Nullable       bool
}

func NewLQPColumn(ref LQPColumnReference, dt schema.DataType, nullable bool) *LQPColumnExpression {
	return &LQPColumnExpression{Reference: ref, ColumnDataType: dt, Nullable: nullable}
}

func (e *LQPColumnExpression) Kind() Kind               { return KindLQPColumn }
func (e *LQPColumnExpression) Arguments() []Expression  { return nil }
func (e *LQPColumnExpression) DataType() schema.DataType { return e.ColumnDataType }
func (e *LQPColumnExpression) RequiresComputation() bool { return false }

func (e *LQPColumnExpression) WithArguments(args []Expression) Expression {
	if len(args) != 0 {
		panic("column expressions take no arguments")
	}
	clone := *e
	clone.Reference.Lineage = append([]LineageStep(nil), e.Reference.Lineage...)
	return &clone
}

func (e *LQPColumnExpression) Description() string {
	return e.Reference.String()
}

func (e *LQPColumnExpression) shallowEquals(other Expression) bool {
	o := other.(*LQPColumnExpression)
	return e.Reference.Equals(o.Reference)
}

func (e *LQPColumnExpression) shallowHash(h *xxhash.Digest) {
	// Only the column id: equal-but-not-identical plans must hash their
	// column expressions alike, equality sorts collisions out.
	writeUint64(h, uint64(e.Reference.OriginalColumnID))
}

// PQPColumnExpression addresses a column of a physical operator's input
// table by position.
type PQPColumnExpression struct {
	ColumnID       schema.ColumnID
	ColumnDataType schema.DataType
	Nullable       bool
	Name           string
}

func NewPQPColumn(id schema.ColumnID, dt schema.DataType, nullable bool, name string) *PQPColumnExpression {
	return &PQPColumnExpression{ColumnID: id, ColumnDataType: dt, Nullable: nullable, Name: name}
}

func (e *PQPColumnExpression) Kind() Kind                { return KindPQPColumn }
func (e *PQPColumnExpression) Arguments() []Expression   { return nil }
func (e *PQPColumnExpression) DataType() schema.DataType { return e.ColumnDataType }
func (e *PQPColumnExpression) RequiresComputation() bool { return false }

func (e *PQPColumnExpression) WithArguments(args []Expression) Expression {
	if len(args) != 0 {
		panic("column expressions take no arguments")
	}
	clone := *e
	return &clone
}

func (e *PQPColumnExpression) Description() string {
	if e.Name != "" {
		return e.Name
	}
	return fmt.Sprintf("column#%d", e.ColumnID)
}

func (e *PQPColumnExpression) shallowEquals(other Expression) bool {
	o := other.(*PQPColumnExpression)
	return e.ColumnID == o.ColumnID
}

func (e *PQPColumnExpression) shallowHash(h *xxhash.Digest) {
	writeUint64(h, uint64(e.ColumnID))
}
