// Package smtsolver implements the full-theory solver backend of spec §4.1
// on top of math/big: it is the backend that accepts everything the
// decision-diagram backend in internal/solver/ddsolver rejects (unbounded
// integers, reals, sequences, characters). No third-party QF-SMT or
// arbitrary-precision arithmetic library exists anywhere in the retrieval
// pack (see DESIGN.md), so this backend's term evaluation and brute-force
// search are hand-rolled against the standard library the way the teacher
// hand-rolls its own bytecode interpreter loop over runtime.Value.
//
// Terms are represented as closures over a candidate assignment (the same
// "evaluate against an environment" shape as the teacher's expression
// evaluator, generalized to decision variables instead of AST nodes).
// Check/Maximize/Minimize enumerate the bounded search space every
// registered variable was given at Fresh*Var time; this is exhaustive, not
// efficient, which is acceptable since nothing in this module's Non-goals
// promises incremental or parallel solving (spec §1).
package smtsolver

import (
	"math/big"

	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

const backendName = "SMTLike"

var _ solver.Solver = (*Solver)(nil)

// Bounds configures the brute-force search space. Every unbounded
// int/real variable is searched over [-Range, Range] at Granularity steps;
// sequence/char variables are searched over a short alphabet of the
// given length. The defaults (Default below) are deliberately small: spec
// §1's Non-goals exclude unbounded-loop symbolic execution, and this
// backend's search is the one place an unbounded domain would otherwise
// sneak back in.
type Bounds struct {
	IntRange       int64
	RealRange      int64
	RealGranularity int64
	SeqMaxLength   int
	Alphabet       []rune
}

// Default bounds: integers and reals in [-8, 8], sequences up to length 3
// over a small alphabet. Callers needing a wider search pass custom Bounds
// to New.
var Default = Bounds{
	IntRange:        8,
	RealRange:       8,
	RealGranularity: 4,
	SeqMaxLength:    3,
	Alphabet:        []rune("abc"),
}

// assignment maps a VarID to its candidate value for one search point.
type assignment map[solver.VarID]any

// Solver is a query-local SMT-like solver instance (spec §5: "a Solver
// instance is exclusively owned by one query").
type Solver struct {
	bounds  Bounds
	nextVar solver.VarID
	domains map[solver.VarID]domain
	order   []solver.VarID
}

// domain enumerates the candidate values a variable may take during search.
type domain struct {
	kind exprtype.Kind
	vals []any
}

func New(bounds Bounds) *Solver {
	return &Solver{bounds: bounds, domains: map[solver.VarID]domain{}}
}

func (s *Solver) Name() string { return backendName }

func (s *Solver) Capabilities() solver.Capabilities {
	return solver.Capabilities{Bool: true, BitVec: true, Int: true, Real: true, Seq: true, Char: true, Array: true}
}

func (s *Solver) Close() {}

// term is the closure representation every operator builds and combines:
// given an assignment it yields this term's concrete value. Width/signed
// are only meaningful for KindBitVec terms, carried alongside the value
// closure since *big.Int itself does not know its own bit width.
type term struct {
	kind   exprtype.Kind
	width  int
	signed bool
	eval   func(assignment) (any, error)
}

func (t *term) Kind() exprtype.Kind { return t.kind }

func asTerm(t solver.Term) *term { return t.(*term) }

func lit(k exprtype.Kind, v any) solver.Term {
	return &term{kind: k, eval: func(assignment) (any, error) { return v, nil }}
}

// bvMask reduces v into the two's-complement range of width bits.
func bvMask(v *big.Int, width int, signed bool) *big.Int {
	mod := new(big.Int).Lsh(big.NewInt(1), uint(width))
	r := new(big.Int).Mod(v, mod)
	if r.Sign() < 0 {
		r.Add(r, mod)
	}
	if signed {
		half := new(big.Int).Rsh(mod, 1)
		if r.Cmp(half) >= 0 {
			r.Sub(r, mod)
		}
	}
	return r
}

// ---- variables ----

func (s *Solver) alloc(k exprtype.Kind, vals []any) (solver.VarID, solver.Term) {
	id := s.nextVar
	s.nextVar++
	s.domains[id] = domain{kind: k, vals: vals}
	s.order = append(s.order, id)
	return id, &term{kind: k, eval: func(a assignment) (any, error) {
		v, ok := a[id]
		if !ok {
			return nil, errs.NewInvariantViolated("smtsolver: variable %d unbound during search", id)
		}
		return v, nil
	}}
}

func (s *Solver) FreshBoolVar() (solver.VarID, solver.Term) {
	return s.alloc(exprtype.KindBool, []any{false, true})
}

func (s *Solver) FreshBitVecVar(width int, signed bool) (solver.VarID, solver.Term) {
	vals := bitVecDomain(width, signed)
	id, t := s.alloc(exprtype.KindBitVec, vals)
	bv := t.(*term)
	bv.width, bv.signed = width, signed
	return id, bv
}

func bitVecDomain(width int, signed bool) []any {
	n := int64(1) << uint(width)
	vals := make([]any, 0, n)
	for i := int64(0); i < n; i++ {
		v := big.NewInt(i)
		if signed && v.Bit(width-1) == 1 {
			full := new(big.Int).Lsh(big.NewInt(1), uint(width))
			v = new(big.Int).Sub(v, full)
		}
		vals = append(vals, v)
	}
	return vals
}

func (s *Solver) FreshIntVar() (solver.VarID, solver.Term) {
	vals := make([]any, 0, 2*s.bounds.IntRange+1)
	for i := -s.bounds.IntRange; i <= s.bounds.IntRange; i++ {
		vals = append(vals, big.NewInt(i))
	}
	return s.alloc(exprtype.KindInt, vals)
}

func (s *Solver) FreshRealVar() (solver.VarID, solver.Term) {
	var vals []any
	steps := s.bounds.RealRange * s.bounds.RealGranularity
	for i := -steps; i <= steps; i++ {
		r := big.NewRat(i, s.bounds.RealGranularity)
		vals = append(vals, r)
	}
	return s.alloc(exprtype.KindReal, vals)
}

func (s *Solver) FreshCharVar() (solver.VarID, solver.Term) {
	vals := make([]any, len(s.bounds.Alphabet))
	for i, r := range s.bounds.Alphabet {
		vals[i] = r
	}
	return s.alloc(exprtype.KindChar, vals)
}

func (s *Solver) FreshSeqVar(elem exprtype.Kind) (solver.VarID, solver.Term) {
	var vals []any
	for length := 0; length <= s.bounds.SeqMaxLength; length++ {
		for _, seq := range allStrings(s.bounds.Alphabet, length) {
			vals = append(vals, seq)
		}
	}
	return s.alloc(exprtype.KindSeq, vals)
}

func allStrings(alphabet []rune, length int) []string {
	if length == 0 {
		return []string{""}
	}
	rest := allStrings(alphabet, length-1)
	out := make([]string, 0, len(alphabet)*len(rest))
	for _, r := range alphabet {
		for _, suffix := range rest {
			out = append(out, string(r)+suffix)
		}
	}
	return out
}

// arrayVal represents a finite-key array snapshot: a default plus overrides,
// mirroring value.ConstMap's "observed keys plus default" shape (spec §4.4)
// since this backend, too, only ever sees keys the evaluator asked about.
type arrayVal struct {
	overrides map[string]any
	def       any
}

func (s *Solver) FreshArrayVar(keyWidth int, keySigned bool, val exprtype.Kind) (solver.VarID, solver.Term) {
	return s.alloc(exprtype.KindMap, []any{&arrayVal{overrides: map[string]any{}}})
}

// ---- constants ----

func (s *Solver) BoolConst(v bool) solver.Term { return lit(exprtype.KindBool, v) }

func (s *Solver) BitVecConst(width int, signed bool, v *big.Int) solver.Term {
	t := lit(exprtype.KindBitVec, bvMask(v, width, signed)).(*term)
	t.width, t.signed = width, signed
	return t
}

func (s *Solver) IntConst(v *big.Int) solver.Term  { return lit(exprtype.KindInt, new(big.Int).Set(v)) }
func (s *Solver) RealConst(v *big.Rat) solver.Term { return lit(exprtype.KindReal, new(big.Rat).Set(v)) }
func (s *Solver) CharConst(v rune) solver.Term     { return lit(exprtype.KindChar, v) }

func asBool(v any) bool       { return v.(bool) }
func asBig(v any) *big.Int    { return v.(*big.Int) }
func asRat(v any) *big.Rat    { return v.(*big.Rat) }
func asChar(v any) rune       { return v.(rune) }
func asStr(v any) string      { return v.(string) }
func asArray(v any) *arrayVal { return v.(*arrayVal) }
