// Package modelcheck is the library's public surface (spec §6 "Exposed
// interfaces"): find/maximize/minimize over a DAG built from pkg/expr, plus
// the reachable-set engine from the reach subpackage. Everything here is a
// thin wrapper over internal/check and internal/reify — grounded on the
// teacher's cmd/dws package, which exposes a handful of top-level functions
// delegating straight into internal/interp rather than re-implementing
// anything at the boundary.
package modelcheck

import (
	"context"

	"github.com/cwbudde/symcheck/internal/check"
	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/reify"
	"github.com/cwbudde/symcheck/pkg/expr"
)

// Backend selects the decision procedure a query runs against (spec §6
// "Backend ∈ {Smt, DecisionDiagram}").
type Backend = check.Backend

const (
	Smt             = check.Smt
	DecisionDiagram = check.DecisionDiagram
)

// OptimizationContext distinguishes a plain satisfiability query from one
// that also optimizes an objective (spec §6).
type OptimizationContext = check.OptimizationContext

const (
	Solving      = check.Solving
	Optimization = check.Optimization
)

// Config is the enumerated configuration of spec §6.
type Config = check.Config

// DefaultConfig returns spec §6's documented defaults (Smt backend,
// ListMaxLength 5, no timeout).
func DefaultConfig() Config { return check.DefaultConfig() }

// Assignment maps each *expr.Arbitrary node to its reified concrete value
// (spec §4.6).
type Assignment = reify.Assignment

// Find returns a satisfying assignment for predicate under args, or false
// if none exists (spec §6 "find(predicate, args, backend) -> optional
// assignment").
func Find(ctx context.Context, cfg Config, predicate expr.Node, args map[int]expr.Node) (Assignment, bool, error) {
	res, err := check.New(cfg, nil).Find(ctx, predicate, args)
	if err != nil {
		return nil, false, err
	}
	return res.Assignment, res.Sat, nil
}

// Maximize returns the assignment maximizing objective subject to
// constraint, or false if constraint is unsatisfiable (spec §6).
func Maximize(ctx context.Context, cfg Config, objective, constraint expr.Node, args map[int]expr.Node) (Assignment, bool, error) {
	res, err := check.New(cfg, nil).Maximize(ctx, objective, constraint, args)
	if err != nil {
		return nil, false, err
	}
	return res.Assignment, res.Sat, nil
}

// Minimize returns the assignment minimizing objective subject to
// constraint, or false if constraint is unsatisfiable (spec §6).
func Minimize(ctx context.Context, cfg Config, objective, constraint expr.Node, args map[int]expr.Node) (Assignment, bool, error) {
	res, err := check.New(cfg, nil).Minimize(ctx, objective, constraint, args)
	if err != nil {
		return nil, false, err
	}
	return res.Assignment, res.Sat, nil
}

// reifyOne type-asserts the value an Assignment bound to one Arbitrary
// node, failing loudly rather than silently zero-valuing a type mismatch
// between the caller's requested T and what the evaluator actually
// allocated for that node's declared type.
func reifyOne[T any](assignment Assignment, input *expr.Arbitrary) (T, error) {
	var zero T
	raw, ok := assignment[input]
	if !ok {
		return zero, errs.NewInvariantViolated("modelcheck: requested input is not an Arbitrary node reachable from predicate")
	}
	v, ok := raw.(T)
	if !ok {
		return zero, errs.NewInvariantViolated("modelcheck: requested input reified to %T, not %T", raw, zero)
	}
	return v, nil
}

// FindValue1 runs Find and reifies exactly one requested Arbitrary input to
// its Go type (spec §6 "find(predicate, args, input₁, …, inputₙ, backend)
// -> optional (v₁, …, vₙ)", n=1).
func FindValue1[A any](ctx context.Context, cfg Config, predicate expr.Node, args map[int]expr.Node, input1 *expr.Arbitrary) (A, bool, error) {
	var zeroA A
	assignment, sat, err := Find(ctx, cfg, predicate, args)
	if err != nil || !sat {
		return zeroA, false, err
	}
	a, err := reifyOne[A](assignment, input1)
	if err != nil {
		return zeroA, false, err
	}
	return a, true, nil
}

// FindValue2 is FindValue1 generalized to two requested inputs (n=2).
func FindValue2[A, B any](ctx context.Context, cfg Config, predicate expr.Node, args map[int]expr.Node, input1, input2 *expr.Arbitrary) (A, B, bool, error) {
	var zeroA A
	var zeroB B
	assignment, sat, err := Find(ctx, cfg, predicate, args)
	if err != nil || !sat {
		return zeroA, zeroB, false, err
	}
	a, err := reifyOne[A](assignment, input1)
	if err != nil {
		return zeroA, zeroB, false, err
	}
	b, err := reifyOne[B](assignment, input2)
	if err != nil {
		return zeroA, zeroB, false, err
	}
	return a, b, true, nil
}

// FindValue3 is FindValue1 generalized to three requested inputs (n=3).
func FindValue3[A, B, C any](ctx context.Context, cfg Config, predicate expr.Node, args map[int]expr.Node, input1, input2, input3 *expr.Arbitrary) (A, B, C, bool, error) {
	var zeroA A
	var zeroB B
	var zeroC C
	assignment, sat, err := Find(ctx, cfg, predicate, args)
	if err != nil || !sat {
		return zeroA, zeroB, zeroC, false, err
	}
	a, err := reifyOne[A](assignment, input1)
	if err != nil {
		return zeroA, zeroB, zeroC, false, err
	}
	b, err := reifyOne[B](assignment, input2)
	if err != nil {
		return zeroA, zeroB, zeroC, false, err
	}
	c, err := reifyOne[C](assignment, input3)
	if err != nil {
		return zeroA, zeroB, zeroC, false, err
	}
	return a, b, c, true, nil
}

// FindValue4 is FindValue1 generalized to four requested inputs (n=4, the
// spec's upper bound).
func FindValue4[A, B, C, D any](ctx context.Context, cfg Config, predicate expr.Node, args map[int]expr.Node, input1, input2, input3, input4 *expr.Arbitrary) (A, B, C, D, bool, error) {
	var zeroA A
	var zeroB B
	var zeroC C
	var zeroD D
	assignment, sat, err := Find(ctx, cfg, predicate, args)
	if err != nil || !sat {
		return zeroA, zeroB, zeroC, zeroD, false, err
	}
	a, err := reifyOne[A](assignment, input1)
	if err != nil {
		return zeroA, zeroB, zeroC, zeroD, false, err
	}
	b, err := reifyOne[B](assignment, input2)
	if err != nil {
		return zeroA, zeroB, zeroC, zeroD, false, err
	}
	c, err := reifyOne[C](assignment, input3)
	if err != nil {
		return zeroA, zeroB, zeroC, zeroD, false, err
	}
	d, err := reifyOne[D](assignment, input4)
	if err != nil {
		return zeroA, zeroB, zeroC, zeroD, false, err
	}
	return a, b, c, d, true, nil
}
