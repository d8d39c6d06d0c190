package modelcheck_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/cwbudde/symcheck"
	"github.com/cwbudde/symcheck/pkg/expr"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

func u8Const(v int64) *expr.Constant {
	return &expr.Constant{Typ: exprtype.BitVec(8, false), Value: big.NewInt(v)}
}

// TestFindValue1 exercises spec §6's n-input reified find variant against
// scenario S1's bit-vector search.
func TestFindValue1(t *testing.T) {
	u8 := exprtype.BitVec(8, false)
	x := &expr.Arbitrary{Typ: u8}
	p := &expr.Binary{
		Op:    expr.OpEq,
		Typ:   exprtype.Bool,
		Left:  &expr.Binary{Op: expr.OpMul, Left: x, Right: u8Const(3), Typ: u8},
		Right: u8Const(21),
	}

	v, ok, err := modelcheck.FindValue1[*big.Int](context.Background(), modelcheck.DefaultConfig(), p, nil, x)
	if err != nil {
		t.Fatalf("FindValue1: %v", err)
	}
	if !ok {
		t.Fatal("expected sat")
	}
	if v.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("expected 7, got %v", v)
	}
}

// TestFindUnsatReturnsFalse checks the false-on-unsat contract directly on
// the package-level Find wrapper (spec §6).
func TestFindUnsatReturnsFalse(t *testing.T) {
	u8 := exprtype.BitVec(8, false)
	x := &expr.Arbitrary{Typ: u8}
	p := &expr.Binary{
		Op:    expr.OpAnd,
		Typ:   exprtype.Bool,
		Left:  &expr.Binary{Op: expr.OpGt, Left: x, Right: u8Const(10), Typ: exprtype.Bool},
		Right: &expr.Binary{Op: expr.OpLt, Left: x, Right: u8Const(5), Typ: exprtype.Bool},
	}

	_, sat, err := modelcheck.Find(context.Background(), modelcheck.DefaultConfig(), p, nil)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if sat {
		t.Error("expected unsat")
	}
}
