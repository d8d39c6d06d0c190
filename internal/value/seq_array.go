package value

import (
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

// Seq is a symbolic sequence-of-Elem value, backed directly by a solver
// sequence term (spec §4.1 "Sequences & characters").
type Seq struct {
	Term solver.Term
	Elem *exprtype.Type
}

func (s *Seq) Type() *exprtype.Type { return exprtype.Seq(s.Elem) }

func (s *Seq) Merge(sv solver.Solver, guard solver.Term, other Value) (Value, error) {
	o, ok := other.(*Seq)
	if !ok {
		return nil, mismatch(s, other)
	}
	return &Seq{Term: sv.Ite(guard, s.Term, o.Term), Elem: s.Elem}, nil
}

// ArrayMap is a symbolic array-backed Map<K,V> value (spec §3 "array-map",
// §4.1 "Arrays"): get/set translate directly to solver select/store.
type ArrayMap struct {
	Term     solver.Term
	Key, Val *exprtype.Type
}

func (a *ArrayMap) Type() *exprtype.Type { return exprtype.Map(a.Key, a.Val) }

func (a *ArrayMap) Merge(s solver.Solver, guard solver.Term, other Value) (Value, error) {
	o, ok := other.(*ArrayMap)
	if !ok {
		return nil, mismatch(a, other)
	}
	return &ArrayMap{Term: s.Ite(guard, a.Term, o.Term), Key: a.Key, Val: a.Val}, nil
}
