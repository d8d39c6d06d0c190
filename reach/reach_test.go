package reach_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/cwbudde/symcheck/internal/eval"
	"github.com/cwbudde/symcheck/internal/reify"
	"github.com/cwbudde/symcheck/internal/solver/ddsolver"
	"github.com/cwbudde/symcheck/internal/value"
	"github.com/cwbudde/symcheck/pkg/expr"
	"github.com/cwbudde/symcheck/pkg/exprtype"
	"github.com/cwbudde/symcheck/reach"
)

// projectInterpreter reifies a StateSet element as the plain *big.Int bound
// to target, standing in for spec §6's "value interpreter" consumed
// interface (here, the domain is the bit-vector itself, so no further
// expression evaluation is needed to turn the assignment into a witness).
type projectInterpreter struct {
	target *expr.Arbitrary
}

func (p *projectInterpreter) Evaluate(_ expr.Node, a reify.Assignment) (any, error) {
	return a[p.target], nil
}

func u4Const(v int64) *expr.Constant {
	return &expr.Constant{Typ: exprtype.BitVec(4, false), Value: big.NewInt(v)}
}

// TestStateSetAlgebra is grounded in spec §8 property 8 (StateSet algebra)
// and scenario S6's u4 domain: {x=0} combined with its complement and
// compared against the constant-true set (the full domain) behaves as
// Boolean set algebra predicts.
func TestStateSetAlgebra(t *testing.T) {
	u4 := exprtype.BitVec(4, false)
	x := &expr.Arbitrary{Typ: u4}
	varSet := []*expr.Arbitrary{x}

	s, err := ddsolver.New(8)
	if err != nil {
		t.Fatalf("ddsolver.New: %v", err)
	}
	defer s.Close()

	ev := eval.New(s, eval.DefaultConfig(), nil, nil)
	if err := ev.Preallocate(varSet); err != nil {
		t.Fatalf("Preallocate: %v", err)
	}
	interp := &projectInterpreter{target: x}

	isZero := &expr.Binary{Op: expr.OpEq, Left: x, Right: u4Const(0), Typ: exprtype.Bool}
	zeroSet, err := reach.New[*big.Int](s, ev, isZero, varSet, interp)
	if err != nil {
		t.Fatalf("New(zeroSet): %v", err)
	}

	full := &expr.Constant{Typ: exprtype.Bool, Value: true}
	fullSet, err := reach.New[*big.Int](s, ev, full, varSet, interp)
	if err != nil {
		t.Fatalf("New(fullSet): %v", err)
	}

	ctx := context.Background()

	if empty, err := zeroSet.IsEmpty(ctx); err != nil || empty {
		t.Errorf("expected zeroSet non-empty, empty=%v err=%v", empty, err)
	}
	if isFull, err := fullSet.IsFull(ctx); err != nil || !isFull {
		t.Errorf("expected fullSet full, full=%v err=%v", isFull, err)
	}

	complement := zeroSet.Complement()
	union, err := zeroSet.Union(complement)
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	if full, err := union.IsFull(ctx); err != nil || !full {
		t.Errorf("expected zeroSet ∪ ¬zeroSet to be full, full=%v err=%v", full, err)
	}

	intersect, err := zeroSet.Intersect(complement)
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	if empty, err := intersect.IsEmpty(ctx); err != nil || !empty {
		t.Errorf("expected zeroSet ∩ ¬zeroSet to be empty, empty=%v err=%v", empty, err)
	}

	if eq, err := union.Equals(ctx, fullSet); err != nil || !eq {
		t.Errorf("expected zeroSet ∪ ¬zeroSet == fullSet, eq=%v err=%v", eq, err)
	}

	elem, ok, err := zeroSet.Element(ctx)
	if err != nil {
		t.Fatalf("Element: %v", err)
	}
	if !ok {
		t.Fatal("expected zeroSet to have an element")
	}
	if elem.Cmp(big.NewInt(0)) != 0 {
		t.Errorf("expected element 0, got %v", elem)
	}
}

// TestConvertSetVariables checks that renaming over a disjoint variable set
// of the same size succeeds and the renamed set, whose new variable y is
// tied to x = 0 by IdentityTransition, remains satisfiable (spec §4.7).
func TestConvertSetVariables(t *testing.T) {
	u4 := exprtype.BitVec(4, false)
	x := &expr.Arbitrary{Typ: u4}
	y := &expr.Arbitrary{Typ: u4}

	s, err := ddsolver.New(8)
	if err != nil {
		t.Fatalf("ddsolver.New: %v", err)
	}
	defer s.Close()

	ev := eval.New(s, eval.DefaultConfig(), nil, nil)
	if err := ev.Preallocate([]*expr.Arbitrary{x}); err != nil {
		t.Fatalf("Preallocate(x): %v", err)
	}
	newEv := eval.New(s, eval.DefaultConfig(), nil, nil)
	if err := newEv.Preallocate([]*expr.Arbitrary{y}); err != nil {
		t.Fatalf("Preallocate(y): %v", err)
	}

	interp := &projectInterpreter{target: x}
	isZero := &expr.Binary{Op: expr.OpEq, Left: x, Right: u4Const(0), Typ: exprtype.Bool}
	zeroSet, err := reach.New[*big.Int](s, ev, isZero, []*expr.Arbitrary{x}, interp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	transition, err := reach.IdentityTransition[*big.Int](zeroSet, []*expr.Arbitrary{y}, newEv)
	if err != nil {
		t.Fatalf("IdentityTransition: %v", err)
	}
	renamed, err := reach.ConvertSetVariables[*big.Int](zeroSet, []*expr.Arbitrary{y}, newEv, transition)
	if err != nil {
		t.Fatalf("ConvertSetVariables: %v", err)
	}
	if empty, err := renamed.IsEmpty(context.Background()); err != nil || empty {
		t.Errorf("expected renamed set non-empty, empty=%v err=%v", empty, err)
	}
}

// TestPostStarReachability is spec §8 scenario S6: transition x' = x + 1
// mod 16 over u4, Init = {x=0}; compute post*, expect the full u4 domain.
// Each generation's image is computed by conjoining the current set's
// characteristic with the transition relation over a fresh variable and
// existentially quantifying the old variable away (spec §4.7), then the
// image is renamed (via IdentityTransition, a pure rename with no
// transition relation to project out) onto one shared canonical variable so
// seventeen generations can be unioned into a single accumulator set. This
// exercises ddsolver.Solver.Exist end to end, not just single-step algebra:
// without real existential projection the accumulator would carry every
// generation's now-stale old-variable constraints forward and never
// converge to the full domain.
func TestPostStarReachability(t *testing.T) {
	u4 := exprtype.BitVec(4, false)

	const generations = 16
	gens := make([]*expr.Arbitrary, generations+1)
	for i := range gens {
		gens[i] = &expr.Arbitrary{Typ: u4}
	}
	canonical := &expr.Arbitrary{Typ: u4}

	s, err := ddsolver.New(64)
	if err != nil {
		t.Fatalf("ddsolver.New: %v", err)
	}
	defer s.Close()

	ev := eval.New(s, eval.DefaultConfig(), nil, nil)
	allVars := append(append([]*expr.Arbitrary{}, gens...), canonical)
	if err := ev.Preallocate(allVars); err != nil {
		t.Fatalf("Preallocate: %v", err)
	}
	interp := &projectInterpreter{target: canonical}

	isZero := &expr.Binary{Op: expr.OpEq, Left: gens[0], Right: u4Const(0), Typ: exprtype.Bool}
	current, err := reach.New[*big.Int](s, ev, isZero, []*expr.Arbitrary{gens[0]}, interp)
	if err != nil {
		t.Fatalf("New(init): %v", err)
	}

	canonInit, err := reach.IdentityTransition[*big.Int](current, []*expr.Arbitrary{canonical}, ev)
	if err != nil {
		t.Fatalf("IdentityTransition(init): %v", err)
	}
	accumulator, err := reach.ConvertSetVariables[*big.Int](current, []*expr.Arbitrary{canonical}, ev, canonInit)
	if err != nil {
		t.Fatalf("ConvertSetVariables(init): %v", err)
	}

	for i := 0; i < generations; i++ {
		next := &expr.Binary{
			Op:   expr.OpEq,
			Typ:  exprtype.Bool,
			Left: gens[i+1],
			Right: &expr.Binary{
				Op:    expr.OpAdd,
				Typ:   u4,
				Left:  gens[i],
				Right: u4Const(1),
			},
		}
		transition, err := ev.Evaluate(next)
		if err != nil {
			t.Fatalf("evaluate transition %d: %v", i, err)
		}
		transitionTerm := transition.(*value.Bool).Term

		image, err := reach.ConvertSetVariables[*big.Int](current, []*expr.Arbitrary{gens[i+1]}, ev, transitionTerm)
		if err != nil {
			t.Fatalf("ConvertSetVariables(image %d): %v", i, err)
		}
		current = image

		canonTransition, err := reach.IdentityTransition[*big.Int](current, []*expr.Arbitrary{canonical}, ev)
		if err != nil {
			t.Fatalf("IdentityTransition(gen %d): %v", i, err)
		}
		onCanonical, err := reach.ConvertSetVariables[*big.Int](current, []*expr.Arbitrary{canonical}, ev, canonTransition)
		if err != nil {
			t.Fatalf("ConvertSetVariables(canonical %d): %v", i, err)
		}
		accumulator, err = accumulator.Union(onCanonical)
		if err != nil {
			t.Fatalf("Union(gen %d): %v", i, err)
		}
	}

	ctx := context.Background()
	if full, err := accumulator.IsFull(ctx); err != nil || !full {
		t.Errorf("expected post* to reach the full u4 domain, full=%v err=%v", full, err)
	}
}
