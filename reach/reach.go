// Package reach implements the Reachable-Set Engine of spec §4.7:
// StateSet[T], a symbolic set of values of type T backed by a
// decision-diagram solver, with set algebra and witness extraction.
// Grounded on the teacher's pool/resource-ownership pattern
// (internal/interp/runtime/pool.go): a handle that is exclusively owned by
// its creating query and pinned to the solver instance that produced it
// (spec §4.6 "StateSet vs. solver lifetime").
package reach

import (
	"context"

	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/eval"
	"github.com/cwbudde/symcheck/internal/reify"
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/internal/value"
	"github.com/cwbudde/symcheck/pkg/expr"
)

// StateSet is a symbolic set of values of type T, represented as a Boolean
// term ("x satisfies the characteristic expression") over the ordered
// variable set produced when that expression was evaluated (spec §4.7).
// It owns a shared handle to the decision-diagram solver that built it, not
// a private copy: every StateSet derived from it (Intersect, Union,
// Complement) must be discarded before that solver is Closed.
type StateSet[T any] struct {
	s              solver.Solver
	term           solver.Term // Boolean: membership predicate
	characteristic expr.Node
	varSet         []*expr.Arbitrary // the ordered DD variable set this term ranges over
	witnesses      map[*expr.Arbitrary]eval.Witness
	values         map[*expr.Arbitrary]value.Value // same domain as witnesses; carries live Terms for ConvertSetVariables
	ev             *eval.Evaluator                 // the evaluator whose StructuralEq built renamed terms, for ConvertSetVariables
	interp         reify.Interpreter
}

// New builds a StateSet from a characteristic Boolean expression, evaluated
// with ev (which must share s as its solver). varSet is the ordered list of
// Arbitrary nodes the expression ranges over (typically the same order
// Preallocate used), recorded so Intersect/Union/Equals can check that two
// sets share a variable set before combining them (spec §4.7 "require both
// operands share the same variable set").
func New[T any](s solver.Solver, ev *eval.Evaluator, characteristic expr.Node, varSet []*expr.Arbitrary, interp reify.Interpreter) (*StateSet[T], error) {
	v, err := ev.Evaluate(characteristic)
	if err != nil {
		return nil, err
	}
	b, ok := v.(*value.Bool)
	if !ok {
		return nil, errs.NewInvariantViolated("reach: characteristic expression does not evaluate to Bool (%T)", v)
	}
	witnesses := make(map[*expr.Arbitrary]eval.Witness, len(varSet))
	values := make(map[*expr.Arbitrary]value.Value, len(varSet))
	for _, a := range varSet {
		if w, ok := ev.Witnesses()[a]; ok {
			witnesses[a] = w
		}
		if v, ok := ev.Values()[a]; ok {
			values[a] = v
		}
	}
	return &StateSet[T]{s: s, term: b.Term, characteristic: characteristic, varSet: varSet, witnesses: witnesses, values: values, ev: ev, interp: interp}, nil
}

func (set *StateSet[T]) sameVarSet(other *StateSet[T]) bool {
	if len(set.varSet) != len(other.varSet) {
		return false
	}
	for i, a := range set.varSet {
		if other.varSet[i] != a {
			return false
		}
	}
	return true
}

func (set *StateSet[T]) derive(term solver.Term) *StateSet[T] {
	return &StateSet[T]{s: set.s, term: term, characteristic: set.characteristic, varSet: set.varSet, witnesses: set.witnesses, values: set.values, ev: set.ev, interp: set.interp}
}

// Intersect returns the pointwise conjunction of set and other (spec §4.7).
func (set *StateSet[T]) Intersect(other *StateSet[T]) (*StateSet[T], error) {
	if !set.sameVarSet(other) {
		return nil, errs.NewInvariantViolated("reach: Intersect on state sets over different variable sets")
	}
	return set.derive(set.s.And(set.term, other.term)), nil
}

// Union returns the pointwise disjunction of set and other (spec §4.7).
func (set *StateSet[T]) Union(other *StateSet[T]) (*StateSet[T], error) {
	if !set.sameVarSet(other) {
		return nil, errs.NewInvariantViolated("reach: Union on state sets over different variable sets")
	}
	return set.derive(set.s.Or(set.term, other.term)), nil
}

// Complement returns the pointwise negation of set (spec §4.7).
func (set *StateSet[T]) Complement() *StateSet[T] {
	return set.derive(set.s.Not(set.term))
}

// IsEmpty reports whether no value satisfies set's characteristic
// expression (spec §4.7).
func (set *StateSet[T]) IsEmpty(ctx context.Context) (bool, error) {
	_, sat, err := set.s.Check(ctx, set.term)
	if err != nil {
		return false, err
	}
	return !sat, nil
}

// IsFull reports whether every value satisfies set's characteristic
// expression, i.e. its complement is empty (spec §4.7).
func (set *StateSet[T]) IsFull(ctx context.Context) (bool, error) {
	return set.Complement().IsEmpty(ctx)
}

// Equals reports whether set and other denote the same set of values,
// implemented as is_empty(A XOR B) (spec §8 property 8's implied
// definition, since §4.7 names Equals in spec.md §6's exposed interfaces
// without detailing it — see DESIGN.md).
func (set *StateSet[T]) Equals(ctx context.Context, other *StateSet[T]) (bool, error) {
	if !set.sameVarSet(other) {
		return false, errs.NewInvariantViolated("reach: Equals on state sets over different variable sets")
	}
	symDiff := set.s.Or(set.s.And(set.term, set.s.Not(other.term)), set.s.And(set.s.Not(set.term), other.term))
	return set.derive(symDiff).IsEmpty(ctx)
}

// Element asks the backend for one satisfying assignment and reifies it
// through interp (spec §4.7 "ask the backend for a satisfying assignment;
// reify"). The second return is false on an empty set.
func (set *StateSet[T]) Element(ctx context.Context) (T, bool, error) {
	var zero T
	model, sat, err := set.s.Check(ctx, set.term)
	if err != nil {
		return zero, false, err
	}
	if !sat {
		return zero, false, nil
	}
	assignment, err := reify.Reify(set.s, model, set.witnesses)
	if err != nil {
		return zero, false, err
	}
	raw, err := set.interp.Evaluate(set.characteristic, assignment)
	if err != nil {
		return zero, false, err
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false, errs.NewInvariantViolated("reach: interpreter returned %T, expected witness type", raw)
	}
	return v, true, nil
}

// existentialProjector is implemented by solver backends that can project
// variables out of a term (spec §4.7's image operator needs to quantify the
// old variable set away after conjoining the transition relation). Detected
// via a type assertion on the StateSet's solver.Solver, since it is not part
// of the generic Solver interface. ddsolver.Solver implements this
// directly, via rudd's Makeset/Exist.
type existentialProjector interface {
	Exist(term solver.Term, vars ...solver.Term) (solver.Term, error)
}

// flattenTerms collects every solver.Term leaf reachable from v, recursing
// into every composite internal/value variant (Option, List, Record, Union,
// ConstMap). Used to gather the full set of "old variable" terms a
// characteristic expression's recorded values range over, so they can all
// be handed to an existentialProjector in one call.
func flattenTerms(v value.Value) []solver.Term {
	switch x := v.(type) {
	case nil:
		return nil
	case *value.Bool:
		return []solver.Term{x.Term}
	case *value.BitVec:
		return []solver.Term{x.Term}
	case *value.Int:
		return []solver.Term{x.Term}
	case *value.Real:
		return []solver.Term{x.Term}
	case *value.Char:
		return []solver.Term{x.Term}
	case *value.Seq:
		return []solver.Term{x.Term}
	case *value.ArrayMap:
		return []solver.Term{x.Term}
	case *value.Option:
		terms := []solver.Term{x.Present}
		if x.Payload != nil {
			terms = append(terms, flattenTerms(x.Payload)...)
		}
		return terms
	case *value.List:
		var terms []solver.Term
		for _, cell := range x.Cells {
			terms = append(terms, flattenTerms(cell)...)
		}
		return terms
	case *value.Record:
		var terms []solver.Term
		for _, fv := range x.Fields {
			terms = append(terms, flattenTerms(fv)...)
		}
		return terms
	case *value.Union:
		var terms []solver.Term
		for _, t := range x.TagTerms {
			terms = append(terms, t)
		}
		for _, pv := range x.Payloads {
			terms = append(terms, flattenTerms(pv)...)
		}
		return terms
	case *value.ConstMap:
		var terms []solver.Term
		for _, ev := range x.Entries {
			terms = append(terms, flattenTerms(ev)...)
		}
		if x.Default != nil {
			terms = append(terms, flattenTerms(x.Default)...)
		}
		return terms
	default:
		return nil
	}
}

// IdentityTransition builds the pure-rename transition term x_i' = x_i
// between set's variable set and newVarSet, via the same positional
// structural-equality dispatcher the evaluator uses for expr.OpEq. Callers
// that only want to carry a StateSet onto a fresh, equally-sized variable
// set (no actual transition relation) pass this to ConvertSetVariables;
// callers computing a real image (spec §4.7 "combining R ∧ (x' = f(x))")
// build their own transition term instead. newEval must have already
// evaluated (e.g. via Preallocate) fresh Arbitrary leaves for newVarSet.
func IdentityTransition[T any](set *StateSet[T], newVarSet []*expr.Arbitrary, newEval *eval.Evaluator) (solver.Term, error) {
	if len(newVarSet) != len(set.varSet) {
		return nil, errs.NewInvariantViolated("reach: IdentityTransition requires an equally-sized variable set (%d vs %d)", len(newVarSet), len(set.varSet))
	}
	equalities := make([]solver.Term, 0, len(set.varSet))
	for i, oldArb := range set.varSet {
		oldVal, ok := set.values[oldArb]
		if !ok {
			continue
		}
		newVal, ok := newEval.Values()[newVarSet[i]]
		if !ok {
			return nil, errs.NewInvariantViolated("reach: IdentityTransition: new variable %d has no value (Preallocate it first)", i)
		}
		eq, err := set.ev.StructuralEq(oldVal, newVal)
		if err != nil {
			return nil, err
		}
		equalities = append(equalities, eq)
	}
	if len(equalities) == 0 {
		return set.s.True(), nil
	}
	return set.s.And(equalities...), nil
}

// ConvertSetVariables computes the image of set under transition over a
// new, equally sized variable set (spec §4.7 "rename the DD over a new,
// equally-sized variable set using a positional renaming; used to compute
// images post(R) by combining R ∧ (x' = f(x)) and existentially quantifying
// x"). transition is the caller-supplied relation between set's old
// variables and newVarSet's new ones — build it with IdentityTransition for
// a pure rename, or with an expr evaluation of the actual transition
// predicate for a real post(R) image.
//
// set.term is conjoined with transition, then, when set's solver backend
// implements existentialProjector (ddsolver's rudd-backed Solver does, via
// Makeset/Exist — see DESIGN.md), the old variable set's terms are
// existentially quantified out of the combined term, leaving a term that is
// a function of only newVarSet, exactly as spec §4.7 specifies. Backends
// that do not implement existentialProjector (the Smt backend) leave the
// old variables free: Check/Maximize/Minimize over the result only ever ask
// "does some assignment exist", so the free old variables are already
// implicitly existentially quantified by the query itself. newEval must
// have already evaluated (e.g. via Preallocate) fresh Arbitrary leaves for
// newVarSet.
func ConvertSetVariables[T any](set *StateSet[T], newVarSet []*expr.Arbitrary, newEval *eval.Evaluator, transition solver.Term) (*StateSet[T], error) {
	if len(newVarSet) != len(set.varSet) {
		return nil, errs.NewInvariantViolated("reach: ConvertSetVariables requires an equally-sized variable set (%d vs %d)", len(newVarSet), len(set.varSet))
	}
	combined := set.s.And(set.term, transition)
	if proj, ok := set.s.(existentialProjector); ok {
		var oldTerms []solver.Term
		for _, oldArb := range set.varSet {
			if oldVal, ok := set.values[oldArb]; ok {
				oldTerms = append(oldTerms, flattenTerms(oldVal)...)
			}
		}
		if len(oldTerms) > 0 {
			projected, err := proj.Exist(combined, oldTerms...)
			if err != nil {
				return nil, err
			}
			combined = projected
		}
	}
	return &StateSet[T]{s: set.s, term: combined, characteristic: set.characteristic, varSet: newVarSet, witnesses: newEval.Witnesses(), values: newEval.Values(), ev: newEval, interp: set.interp}, nil
}
