// Package solver defines the decision-procedure capability surface the
// symbolic evaluator is built against (spec §4.1). It is a single
// polymorphic interface over opaque handle types, not nine generic type
// parameters threaded through the value hierarchy (spec §9 design note):
// every backend returns its own concrete Term/Model implementation behind
// these interfaces, and the rest of the core never inspects them directly.
package solver

import (
	"context"
	"math/big"

	"github.com/cwbudde/symcheck/pkg/exprtype"
)

// Term is an opaque handle to a backend-native term (Boolean, bit-vector,
// integer, real, sequence, character, or array). Its only purpose is
// identity: the evaluator threads Terms through solver calls without ever
// inspecting what is behind the interface.
type Term interface {
	// Kind reports which symbolic-value family this term denotes.
	Kind() exprtype.Kind
}

// VarID uniquely identifies a fresh solver variable within one solver
// instance. Two FreshVar calls on the same instance must never alias (spec
// §4.1).
type VarID uint64

// Model is an opaque handle to a satisfying assignment returned by Check,
// Maximize, or Minimize. It is valid only for the solver instance that
// produced it and only until that instance is discarded.
type Model interface {
	// Backend names the solver that produced this model, so Get can refuse
	// a model handed to the wrong solver instance instead of misreading it.
	Backend() string
}

// Capabilities reports which term kinds a backend can encode, so a caller
// can fail fast with Unsupported instead of discovering a rejection
// mid-evaluation (spec §6: "The decision-diagram backend rejects
// expressions containing unbounded integers, reals, sequences, or
// characters").
type Capabilities struct {
	Bool, BitVec, Int, Real, Seq, Char, Array bool
}

// Supports reports whether the backend can encode the given declared type.
func (c Capabilities) Supports(t *exprtype.Type) bool {
	switch t.Kind {
	case exprtype.KindBool:
		return c.Bool
	case exprtype.KindBitVec:
		return c.BitVec
	case exprtype.KindInt:
		return c.Int
	case exprtype.KindReal:
		return c.Real
	case exprtype.KindSeq:
		return c.Seq && c.Supports(t.Elem)
	case exprtype.KindChar:
		return c.Char
	case exprtype.KindMap:
		return c.Array && c.Supports(t.Key) && c.Supports(t.Elem)
	case exprtype.KindConstMap:
		return c.Supports(t.Elem)
	case exprtype.KindList, exprtype.KindOption:
		return c.Supports(t.Elem)
	case exprtype.KindRecord:
		for _, f := range t.Fields {
			if !c.Supports(f.Type) {
				return false
			}
		}
		return true
	case exprtype.KindUnion:
		for _, a := range t.Alternatives {
			if !c.Supports(a.Payload) {
				return false
			}
		}
		return c.Bool
	default:
		return false
	}
}

// Solver is the decision-procedure capability surface every backend
// implements. A Solver instance is exclusively owned by one query (spec
// §5): it accumulates assertions only within that query's lifetime and is
// discarded afterward, never reused across queries or on timeout.
type Solver interface {
	Name() string
	Capabilities() Capabilities

	// Constants & variables (spec §4.1 "Constants & variables").
	FreshBoolVar() (VarID, Term)
	FreshBitVecVar(width int, signed bool) (VarID, Term)
	FreshIntVar() (VarID, Term)
	FreshRealVar() (VarID, Term)
	FreshCharVar() (VarID, Term)
	FreshSeqVar(elem exprtype.Kind) (VarID, Term)
	FreshArrayVar(keyWidth int, keySigned bool, val exprtype.Kind) (VarID, Term)

	BoolConst(v bool) Term
	BitVecConst(width int, signed bool, v *big.Int) Term
	IntConst(v *big.Int) Term
	RealConst(v *big.Rat) Term
	CharConst(v rune) Term

	// Propositional (spec §4.1 "Propositional").
	True() Term
	False() Term
	Not(a Term) Term
	And(terms ...Term) Term
	Or(terms ...Term) Term
	Iff(a, b Term) Term
	Ite(guard, then, els Term) Term

	// Bit-vector (spec §4.1 "Bit-vector").
	BVAdd(a, b Term) Term
	BVSub(a, b Term) Term
	BVMul(a, b Term) Term
	BVAnd(a, b Term) Term
	BVOr(a, b Term) Term
	BVXor(a, b Term) Term
	BVNot(a Term) Term
	BVSignExtend(a Term, toWidth int) Term
	BVZeroExtend(a Term, toWidth int) Term
	BVTruncate(a Term, toWidth int) Term
	BVLe(a, b Term, signed bool) Term
	BVGe(a, b Term, signed bool) Term
	BVEq(a, b Term) Term

	// Unbounded integer / real (spec §4.1). Division semantics are the
	// backend's to define; the evaluator never assumes a rounding rule.
	IntAdd(a, b Term) Term
	IntSub(a, b Term) Term
	IntMul(a, b Term) Term
	IntDiv(a, b Term) Term
	IntMod(a, b Term) Term
	IntLe(a, b Term) Term
	IntGe(a, b Term) Term
	IntEq(a, b Term) Term

	RealAdd(a, b Term) Term
	RealSub(a, b Term) Term
	RealMul(a, b Term) Term
	RealDiv(a, b Term) Term
	RealLe(a, b Term) Term
	RealGe(a, b Term) Term
	RealEq(a, b Term) Term

	// Sequences & characters (spec §4.1).
	SeqConcat(a, b Term) Term
	SeqLength(a Term) Term
	SeqAt(a, index Term) Term
	SeqContains(a, elem Term) Term
	SeqIndexOf(a, elem Term) Term
	SeqSlice(a, start, end Term) Term
	SeqReplace(a, old, new Term) Term
	SeqEq(a, b Term) Term
	CharEq(a, b Term) Term

	// Arrays (spec §4.1). Used to back array-maps.
	ArraySelect(arr, key Term) Term
	ArrayStore(arr, key, val Term) Term
	ArrayEq(a, b Term) Term

	// Quantifier-free decision and optimization (spec §4.1).
	Check(ctx context.Context, constraint Term) (Model, bool, error)
	Maximize(ctx context.Context, objective, constraint Term) (Model, bool, error)
	Minimize(ctx context.Context, objective, constraint Term) (Model, bool, error)

	// Model extraction. declaredType is the expression-level type; the
	// backend parses its native representation into the corresponding
	// primitive Go value, honoring two's-complement for signed bit-vectors.
	Get(m Model, v VarID, declaredType *exprtype.Type) (any, error)

	// Close discards the solver instance. Called on normal completion,
	// on error, and when a caller deadline elapses (spec §5: "the solver
	// instance is discarded (not reused)").
	Close()
}
