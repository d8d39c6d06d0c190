package smtsolver

import (
	"math/big"
	"strings"

	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

// ---- propositional ----

func (s *Solver) True() solver.Term  { return lit(exprtype.KindBool, true) }
func (s *Solver) False() solver.Term { return lit(exprtype.KindBool, false) }

func (s *Solver) Not(a solver.Term) solver.Term {
	t := asTerm(a)
	return &term{kind: exprtype.KindBool, eval: func(env assignment) (any, error) {
		v, err := t.eval(env)
		if err != nil {
			return nil, err
		}
		return !asBool(v), nil
	}}
}

func (s *Solver) And(terms ...solver.Term) solver.Term {
	ts := make([]*term, len(terms))
	for i, t := range terms {
		ts[i] = asTerm(t)
	}
	return &term{kind: exprtype.KindBool, eval: func(env assignment) (any, error) {
		for _, t := range ts {
			v, err := t.eval(env)
			if err != nil {
				return nil, err
			}
			if !asBool(v) {
				return false, nil
			}
		}
		return true, nil
	}}
}

func (s *Solver) Or(terms ...solver.Term) solver.Term {
	ts := make([]*term, len(terms))
	for i, t := range terms {
		ts[i] = asTerm(t)
	}
	return &term{kind: exprtype.KindBool, eval: func(env assignment) (any, error) {
		for _, t := range ts {
			v, err := t.eval(env)
			if err != nil {
				return nil, err
			}
			if asBool(v) {
				return true, nil
			}
		}
		return false, nil
	}}
}

func (s *Solver) Iff(a, b solver.Term) solver.Term {
	ta, tb := asTerm(a), asTerm(b)
	return &term{kind: exprtype.KindBool, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vb, err := tb.eval(env)
		if err != nil {
			return nil, err
		}
		return asBool(va) == asBool(vb), nil
	}}
}

func (s *Solver) Ite(guard, then, els solver.Term) solver.Term {
	g, t, e := asTerm(guard), asTerm(then), asTerm(els)
	return &term{kind: t.kind, width: t.width, signed: t.signed, eval: func(env assignment) (any, error) {
		gv, err := g.eval(env)
		if err != nil {
			return nil, err
		}
		if asBool(gv) {
			return t.eval(env)
		}
		return e.eval(env)
	}}
}

// ---- bit-vector: closures re-apply bvMask to keep width-correct wraparound ----

func bvBinOp(a, b solver.Term, f func(x, y *big.Int) *big.Int) solver.Term {
	ta, tb := asTerm(a), asTerm(b)
	return &term{kind: exprtype.KindBitVec, width: ta.width, signed: ta.signed, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vb, err := tb.eval(env)
		if err != nil {
			return nil, err
		}
		return bvMask(f(asBig(va), asBig(vb)), ta.width, ta.signed), nil
	}}
}

func (s *Solver) BVAdd(a, b solver.Term) solver.Term {
	return bvBinOp(a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Add(x, y) })
}

func (s *Solver) BVSub(a, b solver.Term) solver.Term {
	return bvBinOp(a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Sub(x, y) })
}

func (s *Solver) BVMul(a, b solver.Term) solver.Term {
	return bvBinOp(a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Mul(x, y) })
}

func (s *Solver) BVAnd(a, b solver.Term) solver.Term {
	return bvBinOp(a, b, func(x, y *big.Int) *big.Int { return new(big.Int).And(x, y) })
}

func (s *Solver) BVOr(a, b solver.Term) solver.Term {
	return bvBinOp(a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Or(x, y) })
}

func (s *Solver) BVXor(a, b solver.Term) solver.Term {
	return bvBinOp(a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Xor(x, y) })
}

func (s *Solver) BVNot(a solver.Term) solver.Term {
	ta := asTerm(a)
	return &term{kind: exprtype.KindBitVec, width: ta.width, signed: ta.signed, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		return bvMask(new(big.Int).Not(asBig(va)), ta.width, ta.signed), nil
	}}
}

func (s *Solver) BVSignExtend(a solver.Term, toWidth int) solver.Term {
	ta := asTerm(a)
	return &term{kind: exprtype.KindBitVec, width: toWidth, signed: ta.signed, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		return bvMask(asBig(va), toWidth, ta.signed), nil
	}}
}

func (s *Solver) BVZeroExtend(a solver.Term, toWidth int) solver.Term {
	ta := asTerm(a)
	return &term{kind: exprtype.KindBitVec, width: toWidth, signed: false, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		unsigned := bvMask(asBig(va), ta.width, false)
		return bvMask(unsigned, toWidth, false), nil
	}}
}

func (s *Solver) BVTruncate(a solver.Term, toWidth int) solver.Term {
	ta := asTerm(a)
	return &term{kind: exprtype.KindBitVec, width: toWidth, signed: ta.signed, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		return bvMask(asBig(va), toWidth, ta.signed), nil
	}}
}

func bvCompare(a, b solver.Term, signed bool, ok func(cmp int) bool) solver.Term {
	ta, tb := asTerm(a), asTerm(b)
	return &term{kind: exprtype.KindBool, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vb, err := tb.eval(env)
		if err != nil {
			return nil, err
		}
		return ok(asBig(va).Cmp(asBig(vb))), nil
	}}
}

func (s *Solver) BVLe(a, b solver.Term, signed bool) solver.Term {
	return bvCompare(a, b, signed, func(c int) bool { return c <= 0 })
}

func (s *Solver) BVGe(a, b solver.Term, signed bool) solver.Term {
	return bvCompare(a, b, signed, func(c int) bool { return c >= 0 })
}

func (s *Solver) BVEq(a, b solver.Term) solver.Term {
	return bvCompare(a, b, false, func(c int) bool { return c == 0 })
}

// ---- unbounded integer ----

func intBinOp(a, b solver.Term, f func(x, y *big.Int) *big.Int) solver.Term {
	ta, tb := asTerm(a), asTerm(b)
	return &term{kind: exprtype.KindInt, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vb, err := tb.eval(env)
		if err != nil {
			return nil, err
		}
		return f(asBig(va), asBig(vb)), nil
	}}
}

func (s *Solver) IntAdd(a, b solver.Term) solver.Term {
	return intBinOp(a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Add(x, y) })
}
func (s *Solver) IntSub(a, b solver.Term) solver.Term {
	return intBinOp(a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Sub(x, y) })
}
func (s *Solver) IntMul(a, b solver.Term) solver.Term {
	return intBinOp(a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Mul(x, y) })
}

// IntDiv/IntMod use truncated division; the evaluator never assumes a
// rounding rule (spec §4.1), this backend just has to pick one.
func (s *Solver) IntDiv(a, b solver.Term) solver.Term {
	ta, tb := asTerm(a), asTerm(b)
	return &term{kind: exprtype.KindInt, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vb, err := tb.eval(env)
		if err != nil {
			return nil, err
		}
		if asBig(vb).Sign() == 0 {
			return nil, errs.NewInvariantViolated("smtsolver: integer division by zero")
		}
		q := new(big.Int)
		q.Quo(asBig(va), asBig(vb))
		return q, nil
	}}
}

func (s *Solver) IntMod(a, b solver.Term) solver.Term {
	ta, tb := asTerm(a), asTerm(b)
	return &term{kind: exprtype.KindInt, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vb, err := tb.eval(env)
		if err != nil {
			return nil, err
		}
		if asBig(vb).Sign() == 0 {
			return nil, errs.NewInvariantViolated("smtsolver: integer modulo by zero")
		}
		r := new(big.Int)
		r.Rem(asBig(va), asBig(vb))
		return r, nil
	}}
}

func intCompare(a, b solver.Term, ok func(cmp int) bool) solver.Term {
	ta, tb := asTerm(a), asTerm(b)
	return &term{kind: exprtype.KindBool, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vb, err := tb.eval(env)
		if err != nil {
			return nil, err
		}
		return ok(asBig(va).Cmp(asBig(vb))), nil
	}}
}

func (s *Solver) IntLe(a, b solver.Term) solver.Term { return intCompare(a, b, func(c int) bool { return c <= 0 }) }
func (s *Solver) IntGe(a, b solver.Term) solver.Term { return intCompare(a, b, func(c int) bool { return c >= 0 }) }
func (s *Solver) IntEq(a, b solver.Term) solver.Term { return intCompare(a, b, func(c int) bool { return c == 0 }) }

// ---- real ----

func realBinOp(a, b solver.Term, f func(x, y *big.Rat) *big.Rat) solver.Term {
	ta, tb := asTerm(a), asTerm(b)
	return &term{kind: exprtype.KindReal, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vb, err := tb.eval(env)
		if err != nil {
			return nil, err
		}
		return f(asRat(va), asRat(vb)), nil
	}}
}

func (s *Solver) RealAdd(a, b solver.Term) solver.Term {
	return realBinOp(a, b, func(x, y *big.Rat) *big.Rat { return new(big.Rat).Add(x, y) })
}
func (s *Solver) RealSub(a, b solver.Term) solver.Term {
	return realBinOp(a, b, func(x, y *big.Rat) *big.Rat { return new(big.Rat).Sub(x, y) })
}
func (s *Solver) RealMul(a, b solver.Term) solver.Term {
	return realBinOp(a, b, func(x, y *big.Rat) *big.Rat { return new(big.Rat).Mul(x, y) })
}

func (s *Solver) RealDiv(a, b solver.Term) solver.Term {
	ta, tb := asTerm(a), asTerm(b)
	return &term{kind: exprtype.KindReal, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vb, err := tb.eval(env)
		if err != nil {
			return nil, err
		}
		if asRat(vb).Sign() == 0 {
			return nil, errs.NewInvariantViolated("smtsolver: real division by zero")
		}
		return new(big.Rat).Quo(asRat(va), asRat(vb)), nil
	}}
}

func realCompare(a, b solver.Term, ok func(cmp int) bool) solver.Term {
	ta, tb := asTerm(a), asTerm(b)
	return &term{kind: exprtype.KindBool, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vb, err := tb.eval(env)
		if err != nil {
			return nil, err
		}
		return ok(asRat(va).Cmp(asRat(vb))), nil
	}}
}

func (s *Solver) RealLe(a, b solver.Term) solver.Term { return realCompare(a, b, func(c int) bool { return c <= 0 }) }
func (s *Solver) RealGe(a, b solver.Term) solver.Term { return realCompare(a, b, func(c int) bool { return c >= 0 }) }
func (s *Solver) RealEq(a, b solver.Term) solver.Term { return realCompare(a, b, func(c int) bool { return c == 0 }) }

// ---- sequences & characters ----

func (s *Solver) SeqConcat(a, b solver.Term) solver.Term {
	ta, tb := asTerm(a), asTerm(b)
	return &term{kind: exprtype.KindSeq, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vb, err := tb.eval(env)
		if err != nil {
			return nil, err
		}
		return asStr(va) + asStr(vb), nil
	}}
}

func (s *Solver) SeqLength(a solver.Term) solver.Term {
	ta := asTerm(a)
	return &term{kind: exprtype.KindInt, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		return big.NewInt(int64(len([]rune(asStr(va))))), nil
	}}
}

func (s *Solver) SeqAt(a, index solver.Term) solver.Term {
	ta, ti := asTerm(a), asTerm(index)
	return &term{kind: exprtype.KindChar, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vi, err := ti.eval(env)
		if err != nil {
			return nil, err
		}
		runes := []rune(asStr(va))
		idx := int(asBig(vi).Int64())
		if idx < 0 || idx >= len(runes) {
			return nil, errs.NewInvariantViolated("smtsolver: sequence index %d out of range", idx)
		}
		return runes[idx], nil
	}}
}

func (s *Solver) SeqContains(a, elem solver.Term) solver.Term {
	ta, te := asTerm(a), asTerm(elem)
	return &term{kind: exprtype.KindBool, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		ve, err := te.eval(env)
		if err != nil {
			return nil, err
		}
		return strings.ContainsRune(asStr(va), asChar(ve)), nil
	}}
}

func (s *Solver) SeqIndexOf(a, elem solver.Term) solver.Term {
	ta, te := asTerm(a), asTerm(elem)
	return &term{kind: exprtype.KindInt, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		ve, err := te.eval(env)
		if err != nil {
			return nil, err
		}
		idx := strings.IndexRune(asStr(va), asChar(ve))
		return big.NewInt(int64(idx)), nil
	}}
}

func (s *Solver) SeqSlice(a, start, end solver.Term) solver.Term {
	ta, ts, te := asTerm(a), asTerm(start), asTerm(end)
	return &term{kind: exprtype.KindSeq, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vs, err := ts.eval(env)
		if err != nil {
			return nil, err
		}
		ve, err := te.eval(env)
		if err != nil {
			return nil, err
		}
		runes := []rune(asStr(va))
		lo, hi := int(asBig(vs).Int64()), int(asBig(ve).Int64())
		if lo < 0 || hi > len(runes) || lo > hi {
			return nil, errs.NewInvariantViolated("smtsolver: sequence slice [%d:%d] out of range", lo, hi)
		}
		return string(runes[lo:hi]), nil
	}}
}

func (s *Solver) SeqReplace(a, old, new_ solver.Term) solver.Term {
	ta, to, tn := asTerm(a), asTerm(old), asTerm(new_)
	return &term{kind: exprtype.KindSeq, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vo, err := to.eval(env)
		if err != nil {
			return nil, err
		}
		vn, err := tn.eval(env)
		if err != nil {
			return nil, err
		}
		return strings.Replace(asStr(va), asStr(vo), asStr(vn), 1), nil
	}}
}

func (s *Solver) SeqEq(a, b solver.Term) solver.Term {
	ta, tb := asTerm(a), asTerm(b)
	return &term{kind: exprtype.KindBool, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vb, err := tb.eval(env)
		if err != nil {
			return nil, err
		}
		return asStr(va) == asStr(vb), nil
	}}
}

func (s *Solver) CharEq(a, b solver.Term) solver.Term {
	ta, tb := asTerm(a), asTerm(b)
	return &term{kind: exprtype.KindBool, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vb, err := tb.eval(env)
		if err != nil {
			return nil, err
		}
		return asChar(va) == asChar(vb), nil
	}}
}

// ---- arrays ----

func (s *Solver) ArraySelect(arr, key solver.Term) solver.Term {
	ta, tk := asTerm(arr), asTerm(key)
	return &term{kind: exprtype.KindBitVec, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vk, err := tk.eval(env)
		if err != nil {
			return nil, err
		}
		av := asArray(va)
		k := asBig(vk).String()
		if v, ok := av.overrides[k]; ok {
			return v, nil
		}
		return av.def, nil
	}}
}

func (s *Solver) ArrayStore(arr, key, val solver.Term) solver.Term {
	ta, tk, tv := asTerm(arr), asTerm(key), asTerm(val)
	return &term{kind: exprtype.KindMap, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vk, err := tk.eval(env)
		if err != nil {
			return nil, err
		}
		vv, err := tv.eval(env)
		if err != nil {
			return nil, err
		}
		old := asArray(va)
		next := &arrayVal{def: old.def, overrides: make(map[string]any, len(old.overrides)+1)}
		for k, v := range old.overrides {
			next.overrides[k] = v
		}
		next.overrides[asBig(vk).String()] = vv
		return next, nil
	}}
}

func (s *Solver) ArrayEq(a, b solver.Term) solver.Term {
	ta, tb := asTerm(a), asTerm(b)
	return &term{kind: exprtype.KindBool, eval: func(env assignment) (any, error) {
		va, err := ta.eval(env)
		if err != nil {
			return nil, err
		}
		vb, err := tb.eval(env)
		if err != nil {
			return nil, err
		}
		x, y := asArray(va), asArray(vb)
		if len(x.overrides) != len(y.overrides) {
			return false, nil
		}
		for k, v := range x.overrides {
			if yv, ok := y.overrides[k]; !ok || yv != v {
				return false, nil
			}
		}
		return true, nil
	}}
}
