package eval

import (
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

// Witness mirrors internal/value.Value's shape but records the solver
// VarID allocated at each leaf instead of an opaque Term, so
// internal/reify can later call solver.Get on exactly the variables this
// package allocated for one *expr.Arbitrary node (spec §4.8 "Witness
// reification composes the arbitrary registry with get calls").
type Witness interface {
	Type() *exprtype.Type
}

// Scalar covers Bool/BitVec/Int/Real/Char/Seq leaves.
type Scalar struct {
	Var solver.VarID
	Typ *exprtype.Type
}

func (s *Scalar) Type() *exprtype.Type { return s.Typ }

// Opaque covers array-backed Map leaves: the decision-diagram backend
// cannot Get an array-typed variable directly (ddsolver's Get only extracts
// Bool and BitVec values), so an array-typed arbitrary
// expression records no VarID at all; internal/reify reports such a
// witness as Unsupported instead of reifying it.
type Opaque struct {
	Typ *exprtype.Type
}

func (o *Opaque) Type() *exprtype.Type { return o.Typ }

type Record struct {
	Typ    *exprtype.Type
	Fields map[string]Witness
}

func (r *Record) Type() *exprtype.Type { return r.Typ }

type Union struct {
	Typ      *exprtype.Type
	Tags     map[string]solver.VarID
	Payloads map[string]Witness
}

func (u *Union) Type() *exprtype.Type { return u.Typ }

type Option struct {
	Present solver.VarID
	Payload Witness
	Typ     *exprtype.Type
}

func (o *Option) Type() *exprtype.Type { return o.Typ }

type List struct {
	Typ   *exprtype.Type
	Cells []*Option
}

func (l *List) Type() *exprtype.Type { return l.Typ }

type ConstMap struct {
	Typ     *exprtype.Type
	Entries map[string]Witness
	Default Witness
}

func (m *ConstMap) Type() *exprtype.Type { return m.Typ }
