package ddsolver

import (
	"context"
	"errors"
	"math/big"

	"github.com/dalzilio/rudd"

	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

// ---- unbounded int/real/seq/char: unsupported on this backend ----

func (s *Solver) IntAdd(solver.Term, solver.Term) solver.Term { s.fail("int add"); return nil }
func (s *Solver) IntSub(solver.Term, solver.Term) solver.Term { s.fail("int sub"); return nil }
func (s *Solver) IntMul(solver.Term, solver.Term) solver.Term { s.fail("int mul"); return nil }
func (s *Solver) IntDiv(solver.Term, solver.Term) solver.Term { s.fail("int div"); return nil }
func (s *Solver) IntMod(solver.Term, solver.Term) solver.Term { s.fail("int mod"); return nil }
func (s *Solver) IntLe(solver.Term, solver.Term) solver.Term  { s.fail("int le"); return nil }
func (s *Solver) IntGe(solver.Term, solver.Term) solver.Term  { s.fail("int ge"); return nil }
func (s *Solver) IntEq(solver.Term, solver.Term) solver.Term  { s.fail("int eq"); return nil }

func (s *Solver) RealAdd(solver.Term, solver.Term) solver.Term { s.fail("real add"); return nil }
func (s *Solver) RealSub(solver.Term, solver.Term) solver.Term { s.fail("real sub"); return nil }
func (s *Solver) RealMul(solver.Term, solver.Term) solver.Term { s.fail("real mul"); return nil }
func (s *Solver) RealDiv(solver.Term, solver.Term) solver.Term { s.fail("real div"); return nil }
func (s *Solver) RealLe(solver.Term, solver.Term) solver.Term  { s.fail("real le"); return nil }
func (s *Solver) RealGe(solver.Term, solver.Term) solver.Term  { s.fail("real ge"); return nil }
func (s *Solver) RealEq(solver.Term, solver.Term) solver.Term  { s.fail("real eq"); return nil }

func (s *Solver) SeqConcat(solver.Term, solver.Term) solver.Term  { s.fail("seq concat"); return nil }
func (s *Solver) SeqLength(solver.Term) solver.Term               { s.fail("seq length"); return nil }
func (s *Solver) SeqAt(solver.Term, solver.Term) solver.Term      { s.fail("seq at"); return nil }
func (s *Solver) SeqContains(solver.Term, solver.Term) solver.Term { s.fail("seq contains"); return nil }
func (s *Solver) SeqIndexOf(solver.Term, solver.Term) solver.Term  { s.fail("seq index-of"); return nil }
func (s *Solver) SeqSlice(solver.Term, solver.Term, solver.Term) solver.Term {
	s.fail("seq slice")
	return nil
}
func (s *Solver) SeqReplace(solver.Term, solver.Term, solver.Term) solver.Term {
	s.fail("seq replace")
	return nil
}
func (s *Solver) SeqEq(solver.Term, solver.Term) solver.Term  { s.fail("seq eq"); return nil }
func (s *Solver) CharEq(solver.Term, solver.Term) solver.Term { s.fail("char eq"); return nil }

// ---- arrays: encoded as the bounded-iteration element slice (spec §4.1) ----

func (s *Solver) ArraySelect(arr, key solver.Term) solver.Term {
	a, ok := arr.(*arrayTerm)
	if !ok {
		s.fail("array select on non-bounded array")
		return nil
	}
	k, ok := key.(*bitVecTerm)
	if !ok || len(k.bits) != a.keyWidth {
		s.fail("array select: key width mismatch")
		return nil
	}
	return s.selectByKeyBits(a, k.bits, 0, len(a.elems)-1)
}

// selectByKeyBits builds a balanced Ite tree over the concrete key domain,
// branching on each key bit (spec §4.1 "arrays constructed by iteration").
func (s *Solver) selectByKeyBits(a *arrayTerm, keyBits []rudd.Node, lo, hi int) solver.Term {
	if lo == hi {
		return a.elems[lo].term()
	}
	bitIdx := len(keyBits) - 1
	mid := (lo + hi) / 2
	guard := &boolTerm{n: keyBits[bitIdx]}
	then := s.selectByKeyBits(a, keyBits[:bitIdx], mid+1, hi)
	els := s.selectByKeyBits(a, keyBits[:bitIdx], lo, mid)
	return s.Ite(guard, then, els)
}

func (s *Solver) ArrayStore(arr, key, val solver.Term) solver.Term {
	a, ok := arr.(*arrayTerm)
	if !ok {
		s.fail("array store on non-bounded array")
		return nil
	}
	k, ok := key.(*bitVecTerm)
	if !ok || len(k.bits) != a.keyWidth {
		s.fail("array store: key width mismatch")
		return nil
	}
	elems := make([]bitVecOrBool, len(a.elems))
	copy(elems, a.elems)
	for i := range elems {
		keyEq := s.bvEqConstIndex(k.bits, i)
		elems[i] = wrapElem(s.Ite(&boolTerm{n: keyEq}, val, elems[i].term()))
	}
	return &arrayTerm{keyWidth: a.keyWidth, keySigned: a.keySigned, elems: elems}
}

// bvEqConstIndex asserts that keyBits equals the binary encoding of idx.
func (s *Solver) bvEqConstIndex(keyBits []rudd.Node, idx int) rudd.Node {
	terms := make([]rudd.Node, len(keyBits))
	for i, bit := range keyBits {
		if (idx>>uint(i))&1 == 1 {
			terms[i] = bit
		} else {
			terms[i] = s.bdd.Not(bit)
		}
	}
	return s.bdd.And(terms...)
}

func (s *Solver) ArrayEq(a, b solver.Term) solver.Term {
	x, y := a.(*arrayTerm), b.(*arrayTerm)
	if len(x.elems) != len(y.elems) {
		s.fail("array eq: domain size mismatch")
		return nil
	}
	eqs := make([]solver.Term, len(x.elems))
	for i := range x.elems {
		eqs[i] = s.elemEq(x.elems[i], y.elems[i])
	}
	return s.And(eqs...)
}

func (s *Solver) elemEq(a, b bitVecOrBool) solver.Term {
	if a.asBool != nil {
		return s.Iff(a.asBool, b.asBool)
	}
	return s.BVEq(a.asBitVec, b.asBitVec)
}

// ---- decision & optimization ----

type ddModel struct {
	assignment []int // per-variable: 0 false, 1 true, -1 don't-care
}

func (*ddModel) Backend() string { return backendName }

// errStopAllsat ends Allsat iteration after the first satisfying assignment,
// since spec §4.1's Check only needs existence plus one witness model.
var errStopAllsat = errors.New("first model found")

func (s *Solver) Check(ctx context.Context, constraint solver.Term) (solver.Model, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, errs.NewTimeout(backendName)
	}
	c, ok := constraint.(*boolTerm)
	if !ok {
		return nil, false, s.fail("check on non-Boolean constraint")
	}
	if s.bdd.Equal(c.n, s.bdd.False()) {
		return nil, false, nil
	}
	var found []int
	err := s.bdd.Allsat(c.n, func(assignment []int) error {
		found = append([]int(nil), assignment...)
		return errStopAllsat
	})
	if err != nil && err != errStopAllsat {
		return nil, false, errs.NewSolverFailure(backendName, err)
	}
	if found == nil {
		return nil, false, nil
	}
	return &ddModel{assignment: found}, true, nil
}

func (s *Solver) Maximize(ctx context.Context, objective, constraint solver.Term) (solver.Model, bool, error) {
	return s.optimize(ctx, objective, constraint, true)
}

func (s *Solver) Minimize(ctx context.Context, objective, constraint solver.Term) (solver.Model, bool, error) {
	return s.optimize(ctx, objective, constraint, false)
}

// optimize performs a linear scan over the objective's bit-vector encoding,
// binding bits from the most significant down and re-checking satisfiability
// at each step; this is the textbook BDD optimization strategy when no
// dedicated objective-function support exists in the underlying package.
func (s *Solver) optimize(ctx context.Context, objective, constraint solver.Term, maximize bool) (solver.Model, bool, error) {
	obj, ok := objective.(*bitVecTerm)
	if !ok {
		return nil, false, s.fail("optimize on non-bit-vector objective")
	}
	c, ok := constraint.(*boolTerm)
	if !ok {
		return nil, false, s.fail("optimize on non-Boolean constraint")
	}
	cur := c.n
	for i := len(obj.bits) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, false, errs.NewTimeout(backendName)
		}
		want := maximize
		bit := obj.bits[i]
		if !want {
			bit = s.bdd.Not(bit)
		}
		candidate := s.bdd.And(cur, bit)
		if !s.bdd.Equal(candidate, s.bdd.False()) {
			cur = candidate
		}
	}
	model, sat, err := s.Check(ctx, &boolTerm{n: cur})
	if err != nil || !sat {
		return nil, false, err
	}
	return model, true, nil
}

func (s *Solver) Get(m solver.Model, v solver.VarID, declaredType *exprtype.Type) (any, error) {
	dm, ok := m.(*ddModel)
	if !ok {
		return nil, errs.NewInvariantViolated("Get: model not produced by decision-diagram backend")
	}
	switch declaredType.Kind {
	case exprtype.KindBool:
		idx := int(v)
		if idx >= len(dm.assignment) || dm.assignment[idx] < 0 {
			return false, nil
		}
		return dm.assignment[idx] == 1, nil
	case exprtype.KindBitVec:
		width := declaredType.Width
		start := int(v)
		value := new(big.Int)
		for i := 0; i < width; i++ {
			idx := start + i
			if idx < len(dm.assignment) && dm.assignment[idx] == 1 {
				value.SetBit(value, i, 1)
			}
		}
		if declaredType.Signed && width > 0 && value.Bit(width-1) == 1 {
			full := new(big.Int).Lsh(big.NewInt(1), uint(width))
			value.Sub(value, full)
		}
		return value, nil
	default:
		return nil, s.fail("Get on unsupported declared type " + declaredType.Kind.String())
	}
}
