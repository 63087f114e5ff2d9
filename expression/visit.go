package expression

type Visitation uint8

const (
	// VisitArguments descends into the node's arguments.
	VisitArguments Visitation = iota
	// DoNotVisitArguments keeps traversing siblings but skips this
	// node's arguments.
	DoNotVisitArguments
	// AbortVisit stops the whole traversal.
	AbortVisit
)

// Visit performs a pre-order traversal.
func Visit(e Expression, fn func(Expression) Visitation) {
	visit(e, fn)
}

func visit(e Expression, fn func(Expression) Visitation) Visitation {
	switch fn(e) {
	case DoNotVisitArguments:
		return VisitArguments
	case AbortVisit:
		return AbortVisit
	}

	for _, a := range e.Arguments() {
		if visit(a, fn) == AbortVisit {
			return AbortVisit
		}
	}
	return VisitArguments
}

// CollectColumnReferences gathers every column reference mentioned in the
// expressions, including those nested in aggregates and connectives.
func CollectColumnReferences(exprs []Expression) []LQPColumnReference {
	var out []LQPColumnReference
	for _, e := range exprs {
		Visit(e, func(sub Expression) Visitation {
			if col, ok := sub.(*LQPColumnExpression); ok {
				out = append(out, col.Reference)
			}
			return VisitArguments
		})
	}
	return out
}

// ReferenceSet is keyed by value equality of references. References
// carry a lineage slice, map keys cannot hold them, so membership is
// a linear probe; reference sets stay small.
type ReferenceSet struct {
	refs []LQPColumnReference
}

func NewReferenceSet(refs ...LQPColumnReference) *ReferenceSet {
	s := &ReferenceSet{}
	for _, r := range refs {
		s.Add(r)
	}
	return s
}

func (s *ReferenceSet) Add(r LQPColumnReference) {
	if !s.Contains(r) {
		s.refs = append(s.refs, r)
	}
}

func (s *ReferenceSet) Contains(r LQPColumnReference) bool {
	for _, have := range s.refs {
		if have.Equals(r) {
			return true
		}
	}
	return false
}

func (s *ReferenceSet) Size() int {
	return len(s.refs)
}

func (s *ReferenceSet) Items() []LQPColumnReference {
	return s.refs
}

// ReplacementMapping maps column references onto their replacements.
type ReplacementMapping struct {
	From []LQPColumnReference
	To   []LQPColumnReference
}

func (m *ReplacementMapping) Add(from, to LQPColumnReference) {
	for i, have := range m.From {
		if have.Equals(from) {
			m.To[i] = to
			return
		}
	}
	m.From = append(m.From, from)
	m.To = append(m.To, to)
}

func (m *ReplacementMapping) Lookup(from LQPColumnReference) (LQPColumnReference, bool) {
	for i, have := range m.From {
		if have.Equals(from) {
			return m.To[i], true
		}
	}
	return LQPColumnReference{}, false
}

func (m *ReplacementMapping) Clone() *ReplacementMapping {
	return &ReplacementMapping{
		From: append([]LQPColumnReference(nil), m.From...),
		To:   append([]LQPColumnReference(nil), m.To...),
	}
}

// ReplaceColumnReferences rewrites column references per the mapping on a
// deep copy and returns (copy, true) when at least one replacement
// happened, (original, false) otherwise. The lookup ignores the lineage
// of the matched reference and restores it onto the replacement, the way
// reuse rewrites propagate through join paths.
func ReplaceColumnReferences(e Expression, mapping *ReplacementMapping) (Expression, bool) {
	replaced := false
	out := rebuild(e, func(sub Expression) Expression {
		col, ok := sub.(*LQPColumnExpression)
		if !ok {
			return nil
		}
		to, found := mapping.Lookup(col.Reference.WithoutLineage())
		if !found {
			return nil
		}

		// restore lineage of the matched reference
		restored := to
		for _, step := range col.Reference.Lineage {
			restored = restored.WithLineageStep(step.Node, step.Side)
		}

		replaced = true
		return NewLQPColumn(restored, col.ColumnDataType, col.Nullable)
	})

	if !replaced {
		return e, false
	}
	return out, true
}

// rebuild clones the tree bottom-up, letting replace swap out nodes.
func rebuild(e Expression, replace func(Expression) Expression) Expression {
	if r := replace(e); r != nil {
		return r
	}

	args := e.Arguments()
	if len(args) == 0 {
		return e.WithArguments(nil)
	}

	copied := make([]Expression, len(args))
	for i, a := range args {
		copied[i] = rebuild(a, replace)
	}
	return e.WithArguments(copied)
}
