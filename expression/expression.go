// Package expression models the scalar expression trees shared by the
// logical and physical plan layers. Expressions are immutable once built;
// rewrites clone the affected subtree and swap the copy in.
package expression

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/dot5enko/column-query-engine/schema"
)

type Kind uint8

const (
	KindLQPColumn Kind = iota
	KindPQPColumn
	KindValue
	KindArithmetic
	KindPredicate
	KindLogical
	KindAggregate
	KindExists
	KindSubquery
	KindParameter
)

// LQPNode is the slice of a logical plan node the expression layer needs:
// identity for lineage and subquery comparison. The lqp package
// implements it.
type LQPNode interface {
	Description() string
	Hash() uint64
	PlanEquals(other LQPNode) bool
}

type Expression interface {
	Kind() Kind
	Arguments() []Expression

	// WithArguments builds a same-kind copy around the given argument
	// slice. Implementations never share mutable state with the
	// receiver.
	WithArguments(args []Expression) Expression

	// DataType is resolved bottom-up with SQL-like promotion.
	DataType() schema.DataType

	RequiresComputation() bool
	Description() string

	shallowEquals(other Expression) bool
	shallowHash(h *xxhash.Digest)
}

// DeepCopy clones the full tree.
func DeepCopy(e Expression) Expression {
	args := e.Arguments()
	if len(args) == 0 {
		return e.WithArguments(nil)
	}

	copied := make([]Expression, len(args))
	for i, a := range args {
		copied[i] = DeepCopy(a)
	}
	return e.WithArguments(copied)
}

func DeepCopyAll(exprs []Expression) []Expression {
	out := make([]Expression, len(exprs))
	for i, e := range exprs {
		out[i] = DeepCopy(e)
	}
	return out
}

// Equal is structural: kind, shallow fields and all arguments.
func Equal(a, b Expression) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if !a.shallowEquals(b) {
		return false
	}

	aArgs := a.Arguments()
	bArgs := b.Arguments()
	if len(aArgs) != len(bArgs) {
		return false
	}
	for i := range aArgs {
		if !Equal(aArgs[i], bArgs[i]) {
			return false
		}
	}
	return true
}

func AllEqual(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// ShallowEquals compares kind and shallow fields only, skipping the
// arguments.
func ShallowEquals(a, b Expression) bool {
	return a.Kind() == b.Kind() && a.shallowEquals(b)
}

// Hash combines the shallow hash with all argument hashes.
func Hash(e Expression) uint64 {
	h := xxhash.New()
	hashInto(e, h)
	return h.Sum64()
}

func hashInto(e Expression, h *xxhash.Digest) {
	writeUint64(h, uint64(e.Kind()))
	e.shallowHash(h)
	for _, a := range e.Arguments() {
		hashInto(a, h)
	}
}

func writeUint64(h *xxhash.Digest, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	h.Write(buf[:])
}

// Contains reports whether needle occurs anywhere inside haystack.
func Contains(haystack, needle Expression) bool {
	found := false
	Visit(haystack, func(e Expression) Visitation {
		if Equal(e, needle) {
			found = true
			return DoNotVisitArguments
		}
		return VisitArguments
	})
	return found
}
