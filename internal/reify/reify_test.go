package reify_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/cwbudde/symcheck/internal/eval"
	"github.com/cwbudde/symcheck/internal/reify"
	"github.com/cwbudde/symcheck/internal/solver/smtsolver"
	"github.com/cwbudde/symcheck/internal/value"
	"github.com/cwbudde/symcheck/pkg/expr"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

// TestReifyScalar exercises the Scalar witness path end to end: allocate an
// Arbitrary, constrain it, solve, and reify (spec §4.8).
func TestReifyScalar(t *testing.T) {
	u8 := exprtype.BitVec(8, false)
	x := &expr.Arbitrary{Typ: u8}
	p := &expr.Binary{
		Op:    expr.OpEq,
		Left:  x,
		Right: &expr.Constant{Typ: u8, Value: big.NewInt(42)},
		Typ:   exprtype.Bool,
	}

	s := smtsolver.New(smtsolver.Default)
	defer s.Close()
	ev := eval.New(s, eval.DefaultConfig(), nil, nil)

	v, err := ev.Evaluate(p)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	b := v.(*value.Bool)
	model, sat, err := s.Check(context.Background(), b.Term)
	if err != nil || !sat {
		t.Fatalf("Check: sat=%v err=%v", sat, err)
	}

	assignment, err := reify.Reify(s, model, ev.Witnesses())
	if err != nil {
		t.Fatalf("Reify: %v", err)
	}
	got, ok := assignment[x].(*big.Int)
	if !ok || got.Cmp(big.NewInt(42)) != 0 {
		t.Errorf("expected x=42, got %v (%T)", assignment[x], assignment[x])
	}
}

// TestReifyConstMapIncludesDefault exercises the ConstMap witness path,
// asserting that the unobserved-key default surfaces (spec §8 scenario S5).
// No key collection runs here, so the map has no observed entries and the
// constrained key "a" reads the default.
func TestReifyConstMapIncludesDefault(t *testing.T) {
	u8 := exprtype.BitVec(8, false)
	strTyp := exprtype.Seq(exprtype.Char)
	mTyp := exprtype.ConstMap(strTyp, u8)
	m := &expr.Arbitrary{Typ: mTyp}
	aKey := &expr.Constant{Typ: strTyp, Value: "a"}
	get := &expr.ConstMapGet{Map: m, Key: aKey, Typ: u8}
	p := &expr.Binary{Op: expr.OpEq, Left: get, Right: &expr.Constant{Typ: u8, Value: big.NewInt(1)}, Typ: exprtype.Bool}

	s := smtsolver.New(smtsolver.Default)
	defer s.Close()
	ev := eval.New(s, eval.DefaultConfig(), nil, nil)

	v, err := ev.Evaluate(p)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	b := v.(*value.Bool)
	model, sat, err := s.Check(context.Background(), b.Term)
	if err != nil || !sat {
		t.Fatalf("Check: sat=%v err=%v", sat, err)
	}

	assignment, err := reify.Reify(s, model, ev.Witnesses())
	if err != nil {
		t.Fatalf("Reify: %v", err)
	}
	cm, ok := assignment[m].(reify.ConstMapValue)
	if !ok {
		t.Fatalf("expected reify.ConstMapValue, got %T", assignment[m])
	}
	if cm.Default == nil {
		t.Error("expected a reified Default value, got nil")
	}
}
