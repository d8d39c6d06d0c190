package value

import (
	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

// Option is the Some/None payload slot used by List; it is not a standalone
// node kind in the expression AST (option-of-T node values reify to it, and
// List's cons-chain cells are built from it — spec §4.2 "lists are
// represented as a fixed-length cons-chain of option payloads").
type Option struct {
	Elem    *exprtype.Type
	Present solver.Term // Boolean: true if this slot holds a value
	Payload Value       // valid only where Present may be true
}

func (o *Option) Type() *exprtype.Type { return exprtype.Option(o.Elem) }

func (o *Option) Merge(s solver.Solver, guard solver.Term, other Value) (Value, error) {
	p, ok := other.(*Option)
	if !ok {
		return nil, mismatch(o, other)
	}
	present := s.Ite(guard, o.Present, p.Present)
	var payload Value
	switch {
	case o.Payload != nil && p.Payload != nil:
		merged, err := o.Payload.Merge(s, guard, p.Payload)
		if err != nil {
			return nil, err
		}
		payload = merged
	case o.Payload != nil:
		payload = o.Payload
	default:
		payload = p.Payload
	}
	return &Option{Elem: o.Elem, Present: present, Payload: payload}, nil
}

// List is a symbolic list-of-Elem value: a fixed-length (spec §6
// ListMaxLength) cons-chain of Option cells, each cell either holding an
// element or marking the list as having ended at that position.
type List struct {
	Elem  *exprtype.Type
	Cells []*Option
}

func (l *List) Type() *exprtype.Type { return exprtype.List(l.Elem) }

// Merge implements "length-indexed merge" (spec §4.2 lattice table): each
// cell merges independently since the cons-chain length is fixed across all
// List values of the same element type.
func (l *List) Merge(s solver.Solver, guard solver.Term, other Value) (Value, error) {
	o, ok := other.(*List)
	if !ok {
		return nil, mismatch(l, other)
	}
	if len(l.Cells) != len(o.Cells) {
		return nil, errs.NewInvariantViolated("merge: list cons-chain length mismatch %d vs %d", len(l.Cells), len(o.Cells))
	}
	cells := make([]*Option, len(l.Cells))
	for i := range l.Cells {
		merged, err := l.Cells[i].Merge(s, guard, o.Cells[i])
		if err != nil {
			return nil, err
		}
		cells[i] = merged.(*Option)
	}
	return &List{Elem: l.Elem, Cells: cells}, nil
}
