// Package ddsolver implements the decision-diagram solver backend of spec
// §4.1 on top of github.com/dalzilio/rudd, a binary-decision-diagram
// library (see other_examples/dalzilio-rudd for the BDD interface this
// wraps: Ithvar/Apply/Ite/Not/Exist/Makeset/Satcount/Allsat). It only
// encodes Boolean and bit-vector terms, plus arrays built by iterating over
// a bit-vector key's finite domain (spec §4.1 "Backends expected"); any
// other kind reports errs.Unsupported, which is exactly the rejection
// spec §6 requires of the decision-diagram backend.
package ddsolver

import (
	"fmt"
	"math/big"

	"github.com/dalzilio/rudd"

	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

const backendName = "DecisionDiagram"

var _ solver.Solver = (*Solver)(nil)

// maxArrayKeyWidth bounds how large a bit-vector key an array-map may use:
// the backend represents an array as one BDD-backed slot per concrete key,
// so its cost is exponential in key width (spec §4.1 "arrays constructed by
// iteration" is, by construction, a finite enumeration).
const maxArrayKeyWidth = 10

// Solver is a query-local decision-diagram solver instance. It is created
// fresh per query (spec §5) and discarded via Close; it is never reused
// across queries or after a caller deadline elapses.
type Solver struct {
	bdd     rudd.Set
	nextVar int
	lastErr error
}

// New allocates a decision-diagram solver sized for an expected number of
// Boolean/bit-vector leaf variables. The interleaving analyzer's result
// (spec §4.3) determines the order those variables are allocated in, via
// the caller reserving FreshBoolVar/FreshBitVecVar calls in that order; this
// backend itself just hands out the next unused BDD variable index.
func New(expectedVars int) (*Solver, error) {
	if expectedVars < 1 {
		expectedVars = 1
	}
	bdd, err := rudd.New(expectedVars)
	if err != nil {
		return nil, errs.NewSolverFailure(backendName, err)
	}
	return &Solver{bdd: bdd}, nil
}

func (s *Solver) Name() string { return backendName }

func (s *Solver) Capabilities() solver.Capabilities {
	return solver.Capabilities{Bool: true, BitVec: true, Array: true}
}

func (s *Solver) Close() {}

func (s *Solver) fail(operator string) error {
	err := errs.NewUnsupported(backendName, operator, "decision-diagram backend only encodes Boolean, bit-vector, and bounded-key array terms")
	if s.lastErr == nil {
		s.lastErr = err
	}
	return err
}

// ---- terms ----

// varIdx is 1+the raw BDD variable index when this term is exactly the
// Ithvar leaf FreshBoolVar allocated (0 for constants and every other
// derived/combined term, which are not single variables and so have
// nothing for Exist to quantify over).
type boolTerm struct {
	n      rudd.Node
	varIdx int
}

func (boolTerm) Kind() exprtype.Kind { return exprtype.KindBool }

// bitVecTerm stores one BDD node per bit, least-significant bit first.
// varIdxs mirrors bits with the raw variable index behind each one, set
// only when FreshBitVecVar allocated this term (nil for constants and
// arithmetic results).
type bitVecTerm struct {
	bits    []rudd.Node
	signed  bool
	varIdxs []int
}

func (bitVecTerm) Kind() exprtype.Kind { return exprtype.KindBitVec }

// arrayTerm enumerates every concrete key in [0, 2^keyWidth) explicitly
// (spec §4.1: arrays "constructed by iteration").
type arrayTerm struct {
	keyWidth  int
	keySigned bool
	elems     []bitVecOrBool // length 2^keyWidth
}

func (arrayTerm) Kind() exprtype.Kind { return exprtype.KindMap }

// bitVecOrBool holds exactly one of a Boolean or bit-vector array element.
type bitVecOrBool struct {
	asBool   *boolTerm
	asBitVec *bitVecTerm
}

func wrapElem(t solver.Term) bitVecOrBool {
	switch v := t.(type) {
	case *boolTerm:
		return bitVecOrBool{asBool: v}
	case *bitVecTerm:
		return bitVecOrBool{asBitVec: v}
	default:
		return bitVecOrBool{}
	}
}

func (e bitVecOrBool) term() solver.Term {
	if e.asBool != nil {
		return e.asBool
	}
	return e.asBitVec
}

// ---- variables & constants ----

func (s *Solver) allocVar() (rudd.Node, int) {
	idx := s.nextVar
	n := s.bdd.Ithvar(idx)
	s.nextVar++
	return n, idx
}

func (s *Solver) FreshBoolVar() (solver.VarID, solver.Term) {
	id := solver.VarID(s.nextVar)
	n, idx := s.allocVar()
	return id, &boolTerm{n: n, varIdx: idx + 1}
}

func (s *Solver) FreshBitVecVar(width int, signed bool) (solver.VarID, solver.Term) {
	id := solver.VarID(s.nextVar)
	bits := make([]rudd.Node, width)
	idxs := make([]int, width)
	for i := 0; i < width; i++ {
		n, idx := s.allocVar()
		bits[i] = n
		idxs[i] = idx
	}
	return id, &bitVecTerm{bits: bits, signed: signed, varIdxs: idxs}
}

func (s *Solver) FreshIntVar() (solver.VarID, solver.Term)  { s.fail("fresh int var"); return 0, nil }
func (s *Solver) FreshRealVar() (solver.VarID, solver.Term) { s.fail("fresh real var"); return 0, nil }
func (s *Solver) FreshCharVar() (solver.VarID, solver.Term) { s.fail("fresh char var"); return 0, nil }
func (s *Solver) FreshSeqVar(exprtype.Kind) (solver.VarID, solver.Term) {
	s.fail("fresh seq var")
	return 0, nil
}

func (s *Solver) FreshArrayVar(keyWidth int, keySigned bool, val exprtype.Kind) (solver.VarID, solver.Term) {
	if keyWidth > maxArrayKeyWidth {
		s.fail(fmt.Sprintf("array key width %d exceeds bounded-iteration limit %d", keyWidth, maxArrayKeyWidth))
		return 0, nil
	}
	id := solver.VarID(s.nextVar)
	n := 1 << uint(keyWidth)
	elems := make([]bitVecOrBool, n)
	for i := 0; i < n; i++ {
		switch val {
		case exprtype.KindBool:
			_, t := s.FreshBoolVar()
			elems[i] = wrapElem(t)
		case exprtype.KindBitVec:
			_, t := s.FreshBitVecVar(8, false)
			elems[i] = wrapElem(t)
		default:
			s.fail("array element kind")
			return 0, nil
		}
	}
	return id, &arrayTerm{keyWidth: keyWidth, keySigned: keySigned, elems: elems}
}

func (s *Solver) BoolConst(v bool) solver.Term { return &boolTerm{n: s.bdd.From(v)} }

func (s *Solver) BitVecConst(width int, signed bool, v *big.Int) solver.Term {
	bits := make([]rudd.Node, width)
	for i := 0; i < width; i++ {
		bits[i] = s.bdd.From(v.Bit(i) == 1)
	}
	return &bitVecTerm{bits: bits, signed: signed}
}

func (s *Solver) IntConst(*big.Int) solver.Term    { s.fail("int const"); return nil }
func (s *Solver) RealConst(*big.Rat) solver.Term   { s.fail("real const"); return nil }
func (s *Solver) CharConst(rune) solver.Term       { s.fail("char const"); return nil }

// ---- propositional ----

func (s *Solver) True() solver.Term  { return &boolTerm{n: s.bdd.True()} }
func (s *Solver) False() solver.Term { return &boolTerm{n: s.bdd.False()} }

func (s *Solver) Not(a solver.Term) solver.Term {
	return &boolTerm{n: s.bdd.Not(a.(*boolTerm).n)}
}

func (s *Solver) And(terms ...solver.Term) solver.Term {
	nodes := make([]rudd.Node, len(terms))
	for i, t := range terms {
		nodes[i] = t.(*boolTerm).n
	}
	return &boolTerm{n: s.bdd.And(nodes...)}
}

func (s *Solver) Or(terms ...solver.Term) solver.Term {
	nodes := make([]rudd.Node, len(terms))
	for i, t := range terms {
		nodes[i] = t.(*boolTerm).n
	}
	return &boolTerm{n: s.bdd.Or(nodes...)}
}

func (s *Solver) Iff(a, b solver.Term) solver.Term {
	return &boolTerm{n: s.bdd.Equiv(a.(*boolTerm).n, b.(*boolTerm).n)}
}

func (s *Solver) Ite(guard, then, els solver.Term) solver.Term {
	g := guard.(*boolTerm).n
	switch t := then.(type) {
	case *boolTerm:
		e := els.(*boolTerm)
		return &boolTerm{n: s.bdd.Ite(g, t.n, e.n)}
	case *bitVecTerm:
		e := els.(*bitVecTerm)
		bits := make([]rudd.Node, len(t.bits))
		for i := range bits {
			bits[i] = s.bdd.Ite(g, t.bits[i], e.bits[i])
		}
		return &bitVecTerm{bits: bits, signed: t.signed}
	case *arrayTerm:
		e := els.(*arrayTerm)
		elems := make([]bitVecOrBool, len(t.elems))
		for i := range elems {
			elems[i] = wrapElem(s.Ite(guard, t.elems[i].term(), e.elems[i].term()))
		}
		return &arrayTerm{keyWidth: t.keyWidth, keySigned: t.keySigned, elems: elems}
	default:
		s.fail("ite on unsupported term kind")
		return nil
	}
}

// ---- existential projection (spec §4.7 image operator) ----

// VarIndices returns the raw BDD variable indices backing a term built
// from FreshBoolVar/FreshBitVecVar/FreshArrayVar (nil for constants and any
// combined/derived term, which denote more than one variable's worth of
// structure and are not what Exist's varset argument means). Exported so
// reach.ConvertSetVariables can build the Makeset varset for the variables
// it needs projected out without this package exposing rudd.Node itself.
func (s *Solver) VarIndices(t solver.Term) []int {
	switch v := t.(type) {
	case *boolTerm:
		if v.varIdx == 0 {
			return nil
		}
		return []int{v.varIdx - 1}
	case *bitVecTerm:
		return append([]int(nil), v.varIdxs...)
	case *arrayTerm:
		var idxs []int
		for _, e := range v.elems {
			idxs = append(idxs, s.VarIndices(e.term())...)
		}
		return idxs
	default:
		return nil
	}
}

// Exist existentially quantifies term over the BDD variables backing vars,
// via rudd's Makeset/Exist (other_examples/dalzilio-rudd__bdd.go documents
// both: "Makeset returns a node corresponding to the conjunction ... of all
// the variables in varset" and "Exist returns the existential
// quantification of n for the variables in varset"). This is the
// decision-diagram-specific half of spec §4.7's image operator ("combining
// R ∧ (x' = f(x)) and existentially quantifying x") that the generic
// solver.Solver interface has no room for — every other backend answers
// "does some assignment exist" directly from Check/Maximize/Minimize
// instead, so only a BDD-native backend needs to project variables out of
// a term explicitly. A backend-specific extension beyond Solver, detected
// by reach.ConvertSetVariables via a type assertion.
func (s *Solver) Exist(term solver.Term, vars ...solver.Term) (solver.Term, error) {
	b, ok := term.(*boolTerm)
	if !ok {
		return nil, errs.NewInvariantViolated("ddsolver: Exist requires a Boolean term, got %T", term)
	}
	var idxs []int
	for _, v := range vars {
		idxs = append(idxs, s.VarIndices(v)...)
	}
	if len(idxs) == 0 {
		return term, nil
	}
	return &boolTerm{n: s.bdd.Exist(b.n, s.bdd.Makeset(idxs))}, nil
}
