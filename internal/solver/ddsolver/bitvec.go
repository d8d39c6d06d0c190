package ddsolver

import (
	"github.com/dalzilio/rudd"

	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

// Bit-vector arithmetic is bit-blasted onto the underlying BDD: every
// BVAdd/BVMul/etc. call expands into a ripple-carry or shift-add network of
// Boolean gates over the per-bit Node slices already allocated by
// FreshBitVecVar/BitVecConst. This is the standard decision-diagram
// encoding of fixed-width arithmetic (spec §4.1 "Bit-vector"); the
// resulting Nodes are ordinary Boolean BDD nodes, indistinguishable to the
// rest of the package from any other boolTerm bit.

func (s *Solver) xor(a, b rudd.Node) rudd.Node {
	return s.bdd.Or(s.bdd.And(a, s.bdd.Not(b)), s.bdd.And(s.bdd.Not(a), b))
}

// fullAdder returns (sum, carryOut) for one bit position.
func (s *Solver) fullAdder(a, b, cin rudd.Node) (rudd.Node, rudd.Node) {
	axb := s.xor(a, b)
	sum := s.xor(axb, cin)
	cout := s.bdd.Or(s.bdd.And(a, b), s.bdd.And(cin, axb))
	return sum, cout
}

// rippleAdd adds two equal-width bit slices (LSB first) with an initial
// carry, returning the sum bits and the final carry-out.
func (s *Solver) rippleAdd(a, b []rudd.Node, cin rudd.Node) ([]rudd.Node, rudd.Node) {
	out := make([]rudd.Node, len(a))
	carry := cin
	for i := range a {
		out[i], carry = s.fullAdder(a[i], b[i], carry)
	}
	return out, carry
}

func (s *Solver) bvNotBits(a []rudd.Node) []rudd.Node {
	out := make([]rudd.Node, len(a))
	for i, n := range a {
		out[i] = s.bdd.Not(n)
	}
	return out
}

func (s *Solver) bvNeg(a []rudd.Node) []rudd.Node {
	one := make([]rudd.Node, len(a))
	one[0] = s.bdd.True()
	for i := 1; i < len(one); i++ {
		one[i] = s.bdd.False()
	}
	sum, _ := s.rippleAdd(s.bvNotBits(a), one, s.bdd.False())
	return sum
}

func (s *Solver) BVAdd(a, b solver.Term) solver.Term {
	x, y := a.(*bitVecTerm), b.(*bitVecTerm)
	sum, _ := s.rippleAdd(x.bits, y.bits, s.bdd.False())
	return &bitVecTerm{bits: sum, signed: x.signed}
}

func (s *Solver) BVSub(a, b solver.Term) solver.Term {
	x, y := a.(*bitVecTerm), b.(*bitVecTerm)
	sum, _ := s.rippleAdd(x.bits, s.bvNeg(y.bits), s.bdd.False())
	return &bitVecTerm{bits: sum, signed: x.signed}
}

func (s *Solver) BVMul(a, b solver.Term) solver.Term {
	x, y := a.(*bitVecTerm), b.(*bitVecTerm)
	width := len(x.bits)
	acc := make([]rudd.Node, width)
	for i := range acc {
		acc[i] = s.bdd.False()
	}
	for i := 0; i < width; i++ {
		shifted := make([]rudd.Node, width)
		for j := range shifted {
			if j < i {
				shifted[j] = s.bdd.False()
			} else {
				shifted[j] = s.bdd.And(x.bits[j-i], y.bits[i])
			}
		}
		acc, _ = s.rippleAdd(acc, shifted, s.bdd.False())
	}
	return &bitVecTerm{bits: acc, signed: x.signed}
}

func (s *Solver) BVAnd(a, b solver.Term) solver.Term {
	x, y := a.(*bitVecTerm), b.(*bitVecTerm)
	out := make([]rudd.Node, len(x.bits))
	for i := range out {
		out[i] = s.bdd.And(x.bits[i], y.bits[i])
	}
	return &bitVecTerm{bits: out, signed: x.signed}
}

func (s *Solver) BVOr(a, b solver.Term) solver.Term {
	x, y := a.(*bitVecTerm), b.(*bitVecTerm)
	out := make([]rudd.Node, len(x.bits))
	for i := range out {
		out[i] = s.bdd.Or(x.bits[i], y.bits[i])
	}
	return &bitVecTerm{bits: out, signed: x.signed}
}

func (s *Solver) BVXor(a, b solver.Term) solver.Term {
	x, y := a.(*bitVecTerm), b.(*bitVecTerm)
	out := make([]rudd.Node, len(x.bits))
	for i := range out {
		out[i] = s.xor(x.bits[i], y.bits[i])
	}
	return &bitVecTerm{bits: out, signed: x.signed}
}

func (s *Solver) BVNot(a solver.Term) solver.Term {
	x := a.(*bitVecTerm)
	return &bitVecTerm{bits: s.bvNotBits(x.bits), signed: x.signed}
}

func (s *Solver) BVSignExtend(a solver.Term, toWidth int) solver.Term {
	x := a.(*bitVecTerm)
	if toWidth <= len(x.bits) {
		return x
	}
	out := make([]rudd.Node, toWidth)
	copy(out, x.bits)
	msb := x.bits[len(x.bits)-1]
	for i := len(x.bits); i < toWidth; i++ {
		out[i] = msb
	}
	return &bitVecTerm{bits: out, signed: x.signed}
}

func (s *Solver) BVZeroExtend(a solver.Term, toWidth int) solver.Term {
	x := a.(*bitVecTerm)
	if toWidth <= len(x.bits) {
		return x
	}
	out := make([]rudd.Node, toWidth)
	copy(out, x.bits)
	for i := len(x.bits); i < toWidth; i++ {
		out[i] = s.bdd.False()
	}
	return &bitVecTerm{bits: out, signed: x.signed}
}

func (s *Solver) BVTruncate(a solver.Term, toWidth int) solver.Term {
	x := a.(*bitVecTerm)
	if toWidth >= len(x.bits) {
		return x
	}
	out := make([]rudd.Node, toWidth)
	copy(out, x.bits[:toWidth])
	return &bitVecTerm{bits: out, signed: x.signed}
}

// bvCompareLe returns a Boolean node asserting a <= b, MSB-down recursive
// comparison; sign handling flips the comparison on the top bit only.
func (s *Solver) bvCompareLe(a, b []rudd.Node, signed bool) rudd.Node {
	n := len(a)
	// Unsigned lexicographic <=, folded from the LSB up so that the most
	// significant differing bit decides.
	result := s.bdd.True() // equal-so-far base case: a[-1:] <= b[-1:] vacuously true
	for i := 0; i < n; i++ {
		lt := s.bdd.And(s.bdd.Not(a[i]), b[i])
		eq := s.bdd.Not(s.xor(a[i], b[i]))
		result = s.bdd.Or(lt, s.bdd.And(eq, result))
	}
	if !signed {
		return result
	}
	// Signed: flip outcome when the sign bits differ (negative < non-negative).
	signA, signB := a[n-1], b[n-1]
	bothSame := s.bdd.Not(s.xor(signA, signB))
	aNeg := s.bdd.And(signA, s.bdd.Not(signB))
	return s.bdd.Or(s.bdd.And(bothSame, result), aNeg)
}

func (s *Solver) BVLe(a, b solver.Term, signed bool) solver.Term {
	x, y := a.(*bitVecTerm), b.(*bitVecTerm)
	return &boolTerm{n: s.bvCompareLe(x.bits, y.bits, signed)}
}

func (s *Solver) BVGe(a, b solver.Term, signed bool) solver.Term {
	x, y := a.(*bitVecTerm), b.(*bitVecTerm)
	return &boolTerm{n: s.bvCompareLe(y.bits, x.bits, signed)}
}

func (s *Solver) BVEq(a, b solver.Term) solver.Term {
	x, y := a.(*bitVecTerm), b.(*bitVecTerm)
	eqBits := make([]rudd.Node, len(x.bits))
	for i := range eqBits {
		eqBits[i] = s.bdd.Not(s.xor(x.bits[i], y.bits[i]))
	}
	return &boolTerm{n: s.bdd.And(eqBits...)}
}

var _ = exprtype.KindBitVec
