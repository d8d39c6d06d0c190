// Package eval implements the symbolic evaluator of spec §4.5: a
// memoizing visitor translating an expr.Node DAG into internal/value
// symbolic values by driving an internal/solver.Solver, recording an
// arbitrary registry of Witness trees as it allocates fresh variables.
// Grounded on the teacher's internal/interp/evaluator package, which walks
// an AST once per query and delegates every primitive operation to another
// layer (there, the Interpreter; here, the Solver) rather than computing
// results itself.
package eval

import (
	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/keys"
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/internal/value"
	"github.com/cwbudde/symcheck/pkg/expr"
)

// Config holds the per-query knobs spec §6 exposes: list bound and the
// backend-facing bits the evaluator needs while allocating arbitraries.
type Config struct {
	// ListMaxLength bounds the cons-chain length allocated for list-typed
	// Arbitrary nodes and the List node's fixed representation (spec §4.2
	// "lists are represented as a fixed-length cons-chain").
	ListMaxLength int
}

// DefaultConfig returns spec §6's documented default (ListMaxLength: 5).
func DefaultConfig() Config {
	return Config{ListMaxLength: 5}
}

// Evaluator walks one expr.Node DAG against one solver.Solver instance,
// memoizing per node identity (spec §4.5 "memoizes per top-level query on
// node identity; identical DAG nodes are evaluated once" — since the DAG is
// shared and immutable, the Go pointer stored in the expr.Node interface
// value is already a stable identity, so a plain map is enough).
type Evaluator struct {
	solver solver.Solver
	cfg    Config
	keys   *keys.Collected // nil: no ConstMap keys were ever observed

	memo map[expr.Node]value.Value

	// witnesses records the allocation made for every Arbitrary node
	// visited so far, keyed by the same pointer identity used for memo
	// (spec §4.5 "record (expr_id -> var_handle) in the arbitrary
	// registry"); internal/reify consumes this map.
	witnesses map[*expr.Arbitrary]Witness

	// prealloc holds the value.Value already built for an Arbitrary node by
	// Preallocate, so the first Evaluate call reuses it instead of minting
	// a second, unwitnessed variable (spec §5 interleaving-grouped
	// allocation order, approximated at Arbitrary-node granularity).
	prealloc map[*expr.Arbitrary]value.Value

	// args is the caller-supplied argument environment: ArgID -> bound
	// expression (spec §4.5 "Argument: look up in env; if not yet
	// evaluated, evaluate the bound expression once and cache").
	args     map[int]expr.Node
	argCache map[int]value.Value
}

// New builds an Evaluator bound to solver s for one query. args binds
// ArgumentRef.ArgID to the expression supplying that argument's value;
// keyInfo may be nil when the constant-key pass found no ConstMap usage.
func New(s solver.Solver, cfg Config, keyInfo *keys.Collected, args map[int]expr.Node) *Evaluator {
	return &Evaluator{
		solver:    s,
		cfg:       cfg,
		keys:      keyInfo,
		memo:      map[expr.Node]value.Value{},
		witnesses: map[*expr.Arbitrary]Witness{},
		prealloc:  map[*expr.Arbitrary]value.Value{},
		args:      args,
		argCache:  map[int]value.Value{},
	}
}

// Preallocate allocates solver variables for every *expr.Arbitrary in order,
// in that order, before any Evaluate call reaches them (spec §5: "allocate
// leaf variables grouped by interleaving class, in depth-first
// first-occurrence order of each class's representative"). The caller
// (internal/check) computes order from an internal/interleave.Analysis, at
// whole-Arbitrary-node granularity rather than per individual leaf variable
// — a deliberate simplification documented in DESIGN.md's Open Questions,
// since a leaf-level grouping would require exposing per-leaf handles
// before the value they belong to has been constructed.
func (e *Evaluator) Preallocate(order []*expr.Arbitrary) error {
	for _, n := range order {
		if _, ok := e.prealloc[n]; ok {
			continue
		}
		v, w, err := e.allocate(n.Typ)
		if err != nil {
			return err
		}
		e.witnesses[n] = w
		e.prealloc[n] = v
	}
	return nil
}

// Witnesses returns the arbitrary registry accumulated so far, for
// internal/reify to walk after a satisfying model is found.
func (e *Evaluator) Witnesses() map[*expr.Arbitrary]Witness { return e.witnesses }

// Values returns the symbolic value already built for every Arbitrary node
// evaluated (via Preallocate or Evaluate) so far. Unlike Witnesses, which
// records only solver VarIDs for later Get calls, this exposes the actual
// value.Value (carrying live solver.Terms), which reach.ConvertSetVariables
// needs to build equality constraints between two variable sets without a
// round trip through the solver's model-extraction API.
func (e *Evaluator) Values() map[*expr.Arbitrary]value.Value { return e.prealloc }

// StructuralEq builds the solver term asserting l and r denote the same
// value, dispatching on l's concrete value.Value variant (spec §4.5
// "Equality: structural equality dispatch on the static type"). Exported so
// reach.ConvertSetVariables can reuse the exact equality semantics the
// evaluator already uses for expr.OpEq, rather than duplicating it.
func (e *Evaluator) StructuralEq(l, r value.Value) (solver.Term, error) {
	return e.structuralEq(l, r)
}

// Evaluate translates node to a symbolic value, memoizing by node identity.
func (e *Evaluator) Evaluate(node expr.Node) (value.Value, error) {
	if v, ok := e.memo[node]; ok {
		return v, nil
	}
	v, err := e.evalUncached(node)
	if err != nil {
		return nil, err
	}
	e.memo[node] = v
	return v, nil
}

func (e *Evaluator) evalUncached(node expr.Node) (value.Value, error) {
	switch n := node.(type) {
	case *expr.Constant:
		return e.evalConstant(n)
	case *expr.Arbitrary:
		return e.evalArbitrary(n)
	case *expr.ArgumentRef:
		return e.evalArgumentRef(n)
	case *expr.IfThenElse:
		return e.evalIfThenElse(n)
	case *expr.Binary:
		return e.evalBinary(n)
	case *expr.Unary:
		return e.evalUnary(n)
	case *expr.RecordCreate:
		return e.evalRecordCreate(n)
	case *expr.RecordGet:
		return e.evalRecordGet(n)
	case *expr.RecordSet:
		return e.evalRecordSet(n)
	case *expr.UnionCreate:
		return e.evalUnionCreate(n)
	case *expr.UnionCase:
		return e.evalUnionCase(n)
	case *expr.UnionTag:
		return e.evalUnionTag(n)
	case *expr.ConstMapGet:
		return e.evalConstMapGet(n)
	case *expr.ConstMapSet:
		return e.evalConstMapSet(n)
	case *expr.MapGet:
		return e.evalMapGet(n)
	case *expr.MapSet:
		return e.evalMapSet(n)
	case *expr.Sequence:
		return e.evalSequence(n)
	case *expr.List:
		return e.evalList(n)
	case *expr.Convert:
		return e.evalConvert(n)
	default:
		return nil, errs.NewInvariantViolated("eval: unhandled node type %T", node)
	}
}

// evalArbitrary allocates a fresh variable (or, for structured types, one
// fresh variable per leaf) and records the parallel Witness in the
// registry, keyed by this exact *Arbitrary pointer (spec §4.5 "Arbitrary").
// If Preallocate already built this node's value, that allocation is reused
// instead of minting a second, unwitnessed variable.
func (e *Evaluator) evalArbitrary(n *expr.Arbitrary) (value.Value, error) {
	if v, ok := e.prealloc[n]; ok {
		return v, nil
	}
	v, w, err := e.allocate(n.Typ)
	if err != nil {
		return nil, err
	}
	e.witnesses[n] = w
	e.prealloc[n] = v
	return v, nil
}

func (e *Evaluator) evalArgumentRef(n *expr.ArgumentRef) (value.Value, error) {
	if v, ok := e.argCache[n.ArgID]; ok {
		return v, nil
	}
	bound, ok := e.args[n.ArgID]
	if !ok {
		return nil, errs.NewInvariantViolated("eval: argument %d has no bound expression", n.ArgID)
	}
	v, err := e.Evaluate(bound)
	if err != nil {
		return nil, err
	}
	e.argCache[n.ArgID] = v
	return v, nil
}

func (e *Evaluator) evalIfThenElse(n *expr.IfThenElse) (value.Value, error) {
	guard, err := e.Evaluate(n.Guard)
	if err != nil {
		return nil, err
	}
	gb, ok := guard.(*value.Bool)
	if !ok {
		return nil, errs.NewInvariantViolated("eval: if-then-else guard is not Bool (%T)", guard)
	}
	then, err := e.Evaluate(n.Then)
	if err != nil {
		return nil, err
	}
	els, err := e.Evaluate(n.Else)
	if err != nil {
		return nil, err
	}
	return then.Merge(e.solver, gb.Term, els)
}
