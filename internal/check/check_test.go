package check_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/cwbudde/symcheck/internal/check"
	"github.com/cwbudde/symcheck/pkg/expr"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

func u8Const(v int64) *expr.Constant {
	return &expr.Constant{Typ: exprtype.BitVec(8, false), Value: big.NewInt(v)}
}

// TestFindBitVecSearch is spec §8 scenario S1: arbitrary u8 x; P(x) = (x*3
// == 21); find returns {x: 7}.
func TestFindBitVecSearch(t *testing.T) {
	u8 := exprtype.BitVec(8, false)
	x := &expr.Arbitrary{Typ: u8}
	p := &expr.Binary{
		Op:   expr.OpEq,
		Typ:  exprtype.Bool,
		Left: &expr.Binary{Op: expr.OpMul, Left: x, Right: u8Const(3), Typ: u8},
		Right: u8Const(21),
	}

	c := check.New(check.DefaultConfig(), nil)
	res, err := c.Find(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !res.Sat {
		t.Fatal("expected sat")
	}
	got, ok := res.Assignment[x].(*big.Int)
	if !ok || got.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("expected x=7, got %v", res.Assignment[x])
	}
}

// TestFindUnsat is spec §8 scenario S2.
func TestFindUnsat(t *testing.T) {
	u8 := exprtype.BitVec(8, false)
	x := &expr.Arbitrary{Typ: u8}
	p := &expr.Binary{
		Op:    expr.OpAnd,
		Typ:   exprtype.Bool,
		Left:  &expr.Binary{Op: expr.OpGt, Left: x, Right: u8Const(10), Typ: exprtype.Bool},
		Right: &expr.Binary{Op: expr.OpLt, Left: x, Right: u8Const(5), Typ: exprtype.Bool},
	}

	c := check.New(check.DefaultConfig(), nil)
	res, err := c.Find(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if res.Sat {
		t.Error("expected unsat")
	}
}

// TestMaximize is spec §8 scenario S3: arbitrary u8 x; subject_to = (x <=
// 200); objective = x; maximize returns {x: 200}.
func TestMaximize(t *testing.T) {
	u8 := exprtype.BitVec(8, false)
	x := &expr.Arbitrary{Typ: u8}
	constraint := &expr.Binary{Op: expr.OpLe, Left: x, Right: u8Const(200), Typ: exprtype.Bool}

	cfg := check.DefaultConfig()
	cfg.OptimizationContext = check.Optimization
	c := check.New(cfg, nil)
	res, err := c.Maximize(context.Background(), x, constraint, nil)
	if err != nil {
		t.Fatalf("Maximize: %v", err)
	}
	if !res.Sat {
		t.Fatal("expected sat")
	}
	got, ok := res.Assignment[x].(*big.Int)
	if !ok || got.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("expected x=200, got %v", res.Assignment[x])
	}
}

// TestFindRecordArbitrary exercises a structured (non-scalar) Arbitrary
// reified back through the façade in one call, grounding that Preallocate
// ordering and reification agree on the same *expr.Arbitrary identity.
func TestFindRecordArbitrary(t *testing.T) {
	u8 := exprtype.BitVec(8, false)
	recTyp := exprtype.Record(exprtype.Field{Name: "n", Type: u8})
	r := &expr.Arbitrary{Typ: recTyp}
	p := &expr.Binary{
		Op:    expr.OpEq,
		Typ:   exprtype.Bool,
		Left:  &expr.RecordGet{Record: r, Field: "n", Typ: u8},
		Right: u8Const(5),
	}

	c := check.New(check.DefaultConfig(), nil)
	res, err := c.Find(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !res.Sat {
		t.Fatal("expected sat")
	}
	fields, ok := res.Assignment[r].(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", res.Assignment[r])
	}
	n, ok := fields["n"].(*big.Int)
	if !ok || n.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("expected n=5, got %v", fields["n"])
	}
}
