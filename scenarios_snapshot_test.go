package modelcheck_test

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/cwbudde/symcheck"
	"github.com/cwbudde/symcheck/pkg/expr"
	"github.com/cwbudde/symcheck/pkg/exprtype"
	"github.com/gkampitakis/go-snaps/snaps"
)

// TestScenarioSnapshots golden-tests spec §8 scenarios S1-S3 end to end
// through the package-level façade, following the teacher's go-snaps idiom
// (internal/interp/fixture_test.go) rather than hand-written expected
// values. Assignments are formatted to a deterministic string first since
// the reified map is keyed by *expr.Arbitrary pointer identity, which
// go-snaps cannot compare directly across runs.
func TestScenarioSnapshots(t *testing.T) {
	u8 := exprtype.BitVec(8, false)
	u8Const := func(v int64) *expr.Constant { return &expr.Constant{Typ: u8, Value: big.NewInt(v)} }

	t.Run("S1_bitvec_search", func(t *testing.T) {
		x := &expr.Arbitrary{Typ: u8}
		p := &expr.Binary{
			Op:    expr.OpEq,
			Typ:   exprtype.Bool,
			Left:  &expr.Binary{Op: expr.OpMul, Left: x, Right: u8Const(3), Typ: u8},
			Right: u8Const(21),
		}
		a, sat, err := modelcheck.Find(context.Background(), modelcheck.DefaultConfig(), p, nil)
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		snaps.MatchSnapshot(t, fmt.Sprintf("sat=%v x=%v", sat, a[x]))
	})

	t.Run("S2_unsat", func(t *testing.T) {
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
		snaps.MatchSnapshot(t, fmt.Sprintf("sat=%v", sat))
	})

	t.Run("S3_maximize", func(t *testing.T) {
		x := &expr.Arbitrary{Typ: u8}
		constraint := &expr.Binary{Op: expr.OpLe, Left: x, Right: u8Const(200), Typ: exprtype.Bool}
		cfg := modelcheck.DefaultConfig()
		cfg.OptimizationContext = modelcheck.Optimization
		a, sat, err := modelcheck.Maximize(context.Background(), cfg, x, constraint, nil)
		if err != nil {
			t.Fatalf("Maximize: %v", err)
		}
		snaps.MatchSnapshot(t, fmt.Sprintf("sat=%v x=%v", sat, a[x]))
	})
}
