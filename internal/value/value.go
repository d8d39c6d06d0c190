// Package value implements the symbolic value lattice of spec §4.2: one Go
// type per semantic variant, each carrying the solver handles backing it and
// a guarded-merge operation. Mixing variants in a merge is a programming
// error and reports errs.InvariantViolated rather than panicking, matching
// spec §4.5 "Failure modes".
package value

import (
	"fmt"

	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

// Value is a symbolic value of some declared type, backed by one or more
// solver-native handles. Every Value returned by the evaluator is
// well-typed against the expression node it came from (spec §3 invariant).
type Value interface {
	Type() *exprtype.Type
	// Merge implements guarded merge: the result equals v where guard is
	// true and other where guard is false. other must be the same concrete
	// variant as v.
	Merge(s solver.Solver, guard solver.Term, other Value) (Value, error)
}

func mismatch(self Value, other Value) error {
	return errs.NewInvariantViolated("merge across symbolic-value variants: %T vs %T", self, other)
}

// Bool is a symbolic Boolean value.
type Bool struct {
	Term solver.Term
}

func (b *Bool) Type() *exprtype.Type { return exprtype.Bool }

func (b *Bool) Merge(s solver.Solver, guard solver.Term, other Value) (Value, error) {
	o, ok := other.(*Bool)
	if !ok {
		return nil, mismatch(b, other)
	}
	return &Bool{Term: s.Ite(guard, b.Term, o.Term)}, nil
}

// BitVec is a symbolic fixed-width integer value.
type BitVec struct {
	Term   solver.Term
	Width  int
	Signed bool
}

func (b *BitVec) Type() *exprtype.Type { return exprtype.BitVec(b.Width, b.Signed) }

func (b *BitVec) Merge(s solver.Solver, guard solver.Term, other Value) (Value, error) {
	o, ok := other.(*BitVec)
	if !ok {
		return nil, mismatch(b, other)
	}
	if o.Width != b.Width || o.Signed != b.Signed {
		return nil, errs.NewInvariantViolated("merge: bit-vector width/sign mismatch %d/%v vs %d/%v", b.Width, b.Signed, o.Width, o.Signed)
	}
	return &BitVec{Term: s.Ite(guard, b.Term, o.Term), Width: b.Width, Signed: b.Signed}, nil
}

// Int is a symbolic unbounded-integer value.
type Int struct {
	Term solver.Term
}

func (i *Int) Type() *exprtype.Type { return exprtype.Int }

func (i *Int) Merge(s solver.Solver, guard solver.Term, other Value) (Value, error) {
	o, ok := other.(*Int)
	if !ok {
		return nil, mismatch(i, other)
	}
	return &Int{Term: s.Ite(guard, i.Term, o.Term)}, nil
}

// Real is a symbolic real-number value.
type Real struct {
	Term solver.Term
}

func (r *Real) Type() *exprtype.Type { return exprtype.Real }

func (r *Real) Merge(s solver.Solver, guard solver.Term, other Value) (Value, error) {
	o, ok := other.(*Real)
	if !ok {
		return nil, mismatch(r, other)
	}
	return &Real{Term: s.Ite(guard, r.Term, o.Term)}, nil
}

// Char is a symbolic character value.
type Char struct {
	Term solver.Term
}

func (c *Char) Type() *exprtype.Type { return exprtype.Char }

func (c *Char) Merge(s solver.Solver, guard solver.Term, other Value) (Value, error) {
	o, ok := other.(*Char)
	if !ok {
		return nil, mismatch(c, other)
	}
	return &Char{Term: s.Ite(guard, c.Term, o.Term)}, nil
}

// String renders a value for diagnostics (errors, logging fields); it never
// touches the solver, so it is safe to call after the solver instance that
// produced the value has been closed.
func String(v Value) string {
	return fmt.Sprintf("%T", v)
}
