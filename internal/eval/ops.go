package eval

import (
	"math/big"

	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/internal/value"
	"github.com/cwbudde/symcheck/pkg/expr"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

// evalConstant builds the constant term via the solver; for structured
// constants it recurses field-wise on the Go value (spec §4.5 "Constant").
func (e *Evaluator) evalConstant(n *expr.Constant) (value.Value, error) {
	return e.constant(n.Typ, n.Value)
}

func (e *Evaluator) constant(t *exprtype.Type, v any) (value.Value, error) {
	switch t.Kind {
	case exprtype.KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, errs.NewInvariantViolated("eval: Bool constant has Go type %T", v)
		}
		return &value.Bool{Term: e.solver.BoolConst(b)}, nil
	case exprtype.KindBitVec:
		n, ok := v.(*big.Int)
		if !ok {
			return nil, errs.NewInvariantViolated("eval: BitVec constant has Go type %T", v)
		}
		return &value.BitVec{Term: e.solver.BitVecConst(t.Width, t.Signed, n), Width: t.Width, Signed: t.Signed}, nil
	case exprtype.KindInt:
		n, ok := v.(*big.Int)
		if !ok {
			return nil, errs.NewInvariantViolated("eval: Int constant has Go type %T", v)
		}
		return &value.Int{Term: e.solver.IntConst(n)}, nil
	case exprtype.KindReal:
		r, ok := v.(*big.Rat)
		if !ok {
			return nil, errs.NewInvariantViolated("eval: Real constant has Go type %T", v)
		}
		return &value.Real{Term: e.solver.RealConst(r)}, nil
	case exprtype.KindChar:
		c, ok := v.(rune)
		if !ok {
			return nil, errs.NewInvariantViolated("eval: Char constant has Go type %T", v)
		}
		return &value.Char{Term: e.solver.CharConst(c)}, nil
	case exprtype.KindRecord:
		fields, ok := v.(map[string]any)
		if !ok {
			return nil, errs.NewInvariantViolated("eval: Record constant has Go type %T", v)
		}
		built := make(map[string]value.Value, len(t.Fields))
		for _, f := range t.Fields {
			fv, err := e.constant(f.Type, fields[f.Name])
			if err != nil {
				return nil, err
			}
			built[f.Name] = fv
		}
		return &value.Record{Typ: t, Fields: built}, nil
	case exprtype.KindUnion:
		return e.constantUnion(t, v)
	case exprtype.KindConstMap:
		entries, ok := v.(map[string]any)
		if !ok {
			return nil, errs.NewInvariantViolated("eval: ConstMap constant has Go type %T", v)
		}
		def, defWit, err := e.allocate(t.Elem)
		_ = defWit
		if err != nil {
			return nil, err
		}
		built := make(map[string]value.Value, len(entries))
		for k, ev := range entries {
			cv, err := e.constant(t.Elem, ev)
			if err != nil {
				return nil, err
			}
			built[k] = cv
		}
		return &value.ConstMap{Key: t.Key, Val: t.Elem, Entries: built, Default: def}, nil
	default:
		return nil, errs.NewInvariantViolated("eval: constant of unsupported kind %s", t.Kind)
	}
}

// constantUnion decodes a literal union constant, represented as the Go
// shape *expr.UnionLiteral would need; since pkg/expr's Constant carries an
// untyped any, the convention is a UnionLiteral{Tag string, Payload any}.
func (e *Evaluator) constantUnion(t *exprtype.Type, v any) (value.Value, error) {
	lit, ok := v.(UnionLiteral)
	if !ok {
		return nil, errs.NewInvariantViolated("eval: Union constant has Go type %T, want eval.UnionLiteral", v)
	}
	alt, ok := t.Alternative(lit.Tag)
	if !ok {
		return nil, errs.NewInvariantViolated("eval: Union constant tag %q not declared on type", lit.Tag)
	}
	tags := make(map[string]solver.Term, len(t.Alternatives))
	payloads := make(map[string]value.Value, len(t.Alternatives))
	for _, a := range t.Alternatives {
		tags[a.Tag] = e.solver.BoolConst(a.Tag == lit.Tag)
		if a.Tag == lit.Tag {
			pv, err := e.constant(alt.Payload, lit.Payload)
			if err != nil {
				return nil, err
			}
			payloads[a.Tag] = pv
			continue
		}
		pv, _, err := e.allocate(a.Payload)
		if err != nil {
			return nil, err
		}
		payloads[a.Tag] = pv
	}
	return &value.Union{Typ: t, TagTerms: tags, Payloads: payloads}, nil
}

// UnionLiteral is the Go representation a *expr.Constant of union type
// carries in its Value field (mirrors map[string]any for records/ConstMaps
// and *big.Int/*big.Rat for numeric constants — pkg/expr leaves the literal
// encoding to whatever builds the AST, spec §3).
type UnionLiteral struct {
	Tag     string
	Payload any
}

// evalBinary applies the solver op corresponding to n.Op once both operands
// are evaluated (spec §4.5 "Arithmetic/comparison/bit-wise"; "Equality").
func (e *Evaluator) evalBinary(n *expr.Binary) (value.Value, error) {
	if n.Op == expr.OpEq || n.Op == expr.OpNe {
		return e.evalEquality(n)
	}
	left, err := e.Evaluate(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.Evaluate(n.Right)
	if err != nil {
		return nil, err
	}
	switch l := left.(type) {
	case *value.Bool:
		r := right.(*value.Bool)
		return e.boolBinary(n.Op, l, r)
	case *value.BitVec:
		r := right.(*value.BitVec)
		return e.bitVecBinary(n.Op, l, r)
	case *value.Int:
		r := right.(*value.Int)
		return e.intBinary(n.Op, l, r)
	case *value.Real:
		r := right.(*value.Real)
		return e.realBinary(n.Op, l, r)
	default:
		return nil, errs.NewInvariantViolated("eval: binary op %d on unsupported operand type %T", n.Op, left)
	}
}

func (e *Evaluator) boolBinary(op expr.Op, l, r *value.Bool) (value.Value, error) {
	switch op {
	case expr.OpAnd:
		return &value.Bool{Term: e.solver.And(l.Term, r.Term)}, nil
	case expr.OpOr:
		return &value.Bool{Term: e.solver.Or(l.Term, r.Term)}, nil
	default:
		return nil, errs.NewInvariantViolated("eval: unsupported Bool binary op %d", op)
	}
}

func (e *Evaluator) bitVecBinary(op expr.Op, l, r *value.BitVec) (value.Value, error) {
	mk := func(t solver.Term) *value.BitVec { return &value.BitVec{Term: t, Width: l.Width, Signed: l.Signed} }
	switch op {
	case expr.OpAdd:
		return mk(e.solver.BVAdd(l.Term, r.Term)), nil
	case expr.OpSub:
		return mk(e.solver.BVSub(l.Term, r.Term)), nil
	case expr.OpMul:
		return mk(e.solver.BVMul(l.Term, r.Term)), nil
	case expr.OpBitAnd:
		return mk(e.solver.BVAnd(l.Term, r.Term)), nil
	case expr.OpBitOr:
		return mk(e.solver.BVOr(l.Term, r.Term)), nil
	case expr.OpBitXor:
		return mk(e.solver.BVXor(l.Term, r.Term)), nil
	case expr.OpLt:
		return &value.Bool{Term: e.solver.Not(e.solver.BVGe(l.Term, r.Term, l.Signed))}, nil
	case expr.OpLe:
		return &value.Bool{Term: e.solver.BVLe(l.Term, r.Term, l.Signed)}, nil
	case expr.OpGt:
		return &value.Bool{Term: e.solver.Not(e.solver.BVLe(l.Term, r.Term, l.Signed))}, nil
	case expr.OpGe:
		return &value.Bool{Term: e.solver.BVGe(l.Term, r.Term, l.Signed)}, nil
	default:
		return nil, errs.NewInvariantViolated("eval: unsupported BitVec binary op %d", op)
	}
}

func (e *Evaluator) intBinary(op expr.Op, l, r *value.Int) (value.Value, error) {
	mk := func(t solver.Term) *value.Int { return &value.Int{Term: t} }
	switch op {
	case expr.OpAdd:
		return mk(e.solver.IntAdd(l.Term, r.Term)), nil
	case expr.OpSub:
		return mk(e.solver.IntSub(l.Term, r.Term)), nil
	case expr.OpMul:
		return mk(e.solver.IntMul(l.Term, r.Term)), nil
	case expr.OpDiv:
		return mk(e.solver.IntDiv(l.Term, r.Term)), nil
	case expr.OpMod:
		return mk(e.solver.IntMod(l.Term, r.Term)), nil
	case expr.OpLt:
		return &value.Bool{Term: e.solver.Not(e.solver.IntGe(l.Term, r.Term))}, nil
	case expr.OpLe:
		return &value.Bool{Term: e.solver.IntLe(l.Term, r.Term)}, nil
	case expr.OpGt:
		return &value.Bool{Term: e.solver.Not(e.solver.IntLe(l.Term, r.Term))}, nil
	case expr.OpGe:
		return &value.Bool{Term: e.solver.IntGe(l.Term, r.Term)}, nil
	default:
		return nil, errs.NewInvariantViolated("eval: unsupported Int binary op %d", op)
	}
}

func (e *Evaluator) realBinary(op expr.Op, l, r *value.Real) (value.Value, error) {
	mk := func(t solver.Term) *value.Real { return &value.Real{Term: t} }
	switch op {
	case expr.OpAdd:
		return mk(e.solver.RealAdd(l.Term, r.Term)), nil
	case expr.OpSub:
		return mk(e.solver.RealSub(l.Term, r.Term)), nil
	case expr.OpMul:
		return mk(e.solver.RealMul(l.Term, r.Term)), nil
	case expr.OpDiv:
		return mk(e.solver.RealDiv(l.Term, r.Term)), nil
	case expr.OpLt:
		return &value.Bool{Term: e.solver.Not(e.solver.RealGe(l.Term, r.Term))}, nil
	case expr.OpLe:
		return &value.Bool{Term: e.solver.RealLe(l.Term, r.Term)}, nil
	case expr.OpGt:
		return &value.Bool{Term: e.solver.Not(e.solver.RealLe(l.Term, r.Term))}, nil
	case expr.OpGe:
		return &value.Bool{Term: e.solver.RealGe(l.Term, r.Term)}, nil
	default:
		return nil, errs.NewInvariantViolated("eval: unsupported Real binary op %d", op)
	}
}

// evalEquality dispatches structurally by type: record/union/list operands
// recurse, conjoining field/element equalities (spec §4.5 "Equality").
func (e *Evaluator) evalEquality(n *expr.Binary) (value.Value, error) {
	left, err := e.Evaluate(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.Evaluate(n.Right)
	if err != nil {
		return nil, err
	}
	eqTerm, err := e.structuralEq(left, right)
	if err != nil {
		return nil, err
	}
	if n.Op == expr.OpNe {
		eqTerm = e.solver.Not(eqTerm)
	}
	return &value.Bool{Term: eqTerm}, nil
}

func (e *Evaluator) structuralEq(l, r value.Value) (solver.Term, error) {
	switch lv := l.(type) {
	case *value.Bool:
		return e.solver.Iff(lv.Term, r.(*value.Bool).Term), nil
	case *value.BitVec:
		return e.solver.BVEq(lv.Term, r.(*value.BitVec).Term), nil
	case *value.Int:
		return e.solver.IntEq(lv.Term, r.(*value.Int).Term), nil
	case *value.Real:
		return e.solver.RealEq(lv.Term, r.(*value.Real).Term), nil
	case *value.Char:
		return e.solver.CharEq(lv.Term, r.(*value.Char).Term), nil
	case *value.Seq:
		return e.solver.SeqEq(lv.Term, r.(*value.Seq).Term), nil
	case *value.ArrayMap:
		return e.solver.ArrayEq(lv.Term, r.(*value.ArrayMap).Term), nil
	case *value.Record:
		rv := r.(*value.Record)
		terms := make([]solver.Term, 0, len(lv.Fields))
		for name, lf := range lv.Fields {
			t, err := e.structuralEq(lf, rv.Fields[name])
			if err != nil {
				return nil, err
			}
			terms = append(terms, t)
		}
		return e.solver.And(terms...), nil
	case *value.Union:
		rv := r.(*value.Union)
		terms := make([]solver.Term, 0, len(lv.Payloads)*2)
		for tag, lt := range lv.TagTerms {
			terms = append(terms, e.solver.Iff(lt, rv.TagTerms[tag]))
			pt, err := e.structuralEq(lv.Payloads[tag], rv.Payloads[tag])
			if err != nil {
				return nil, err
			}
			// Payload equality only matters when both sides are tagged tag;
			// guard it so an inactive alternative's unconstrained payload
			// never forces a spurious inequality.
			terms = append(terms, e.solver.Or(e.solver.Not(lv.TagTerms[tag]), pt))
		}
		return e.solver.And(terms...), nil
	case *value.Option:
		rv := r.(*value.Option)
		presentEq := e.solver.Iff(lv.Present, rv.Present)
		if lv.Payload == nil || rv.Payload == nil {
			return presentEq, nil
		}
		payloadEq, err := e.structuralEq(lv.Payload, rv.Payload)
		if err != nil {
			return nil, err
		}
		return e.solver.And(presentEq, e.solver.Or(e.solver.Not(lv.Present), payloadEq)), nil
	case *value.List:
		rv := r.(*value.List)
		terms := make([]solver.Term, len(lv.Cells))
		for i := range lv.Cells {
			t, err := e.structuralEq(lv.Cells[i], rv.Cells[i])
			if err != nil {
				return nil, err
			}
			terms[i] = t
		}
		return e.solver.And(terms...), nil
	case *value.ConstMap:
		rv := r.(*value.ConstMap)
		keys := map[string]struct{}{}
		for k := range lv.Entries {
			keys[k] = struct{}{}
		}
		for k := range rv.Entries {
			keys[k] = struct{}{}
		}
		terms := make([]solver.Term, 0, len(keys))
		for k := range keys {
			t, err := e.structuralEq(lv.Get(k), rv.Get(k))
			if err != nil {
				return nil, err
			}
			terms = append(terms, t)
		}
		return e.solver.And(terms...), nil
	default:
		return nil, errs.NewInvariantViolated("eval: equality on unsupported value type %T", l)
	}
}

func (e *Evaluator) evalUnary(n *expr.Unary) (value.Value, error) {
	operand, err := e.Evaluate(n.Operand)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case expr.OpNot:
		b, ok := operand.(*value.Bool)
		if !ok {
			return nil, errs.NewInvariantViolated("eval: OpNot on non-Bool %T", operand)
		}
		return &value.Bool{Term: e.solver.Not(b.Term)}, nil
	case expr.OpBitNot:
		bv, ok := operand.(*value.BitVec)
		if !ok {
			return nil, errs.NewInvariantViolated("eval: OpBitNot on non-BitVec %T", operand)
		}
		return &value.BitVec{Term: e.solver.BVNot(bv.Term), Width: bv.Width, Signed: bv.Signed}, nil
	default:
		return nil, errs.NewInvariantViolated("eval: unsupported unary op %d", n.Op)
	}
}

// evalRecordCreate/Get/Set manipulate the field map of the symbolic record
// (spec §4.5 "Record-get/set/create").
func (e *Evaluator) evalRecordCreate(n *expr.RecordCreate) (value.Value, error) {
	fields := make(map[string]value.Value, len(n.Typ.Fields))
	for i, f := range n.Typ.Fields {
		fv, err := e.Evaluate(n.Fields[i])
		if err != nil {
			return nil, err
		}
		fields[f.Name] = fv
	}
	return &value.Record{Typ: n.Typ, Fields: fields}, nil
}

func (e *Evaluator) evalRecordGet(n *expr.RecordGet) (value.Value, error) {
	rv, err := e.Evaluate(n.Record)
	if err != nil {
		return nil, err
	}
	r, ok := rv.(*value.Record)
	if !ok {
		return nil, errs.NewInvariantViolated("eval: RecordGet on non-Record %T", rv)
	}
	v, ok := r.Get(n.Field)
	if !ok {
		return nil, errs.NewInvariantViolated("eval: record has no field %q", n.Field)
	}
	return v, nil
}

func (e *Evaluator) evalRecordSet(n *expr.RecordSet) (value.Value, error) {
	rv, err := e.Evaluate(n.Record)
	if err != nil {
		return nil, err
	}
	r, ok := rv.(*value.Record)
	if !ok {
		return nil, errs.NewInvariantViolated("eval: RecordSet on non-Record %T", rv)
	}
	val, err := e.Evaluate(n.Value)
	if err != nil {
		return nil, err
	}
	return r.Set(n.Field, val), nil
}

// evalUnionCreate sets the active-tag Boolean of exactly one alternative to
// true and the rest to false (spec §4.5 "Union-create/match").
func (e *Evaluator) evalUnionCreate(n *expr.UnionCreate) (value.Value, error) {
	payload, err := e.Evaluate(n.Payload)
	if err != nil {
		return nil, err
	}
	tags := make(map[string]solver.Term, len(n.Typ.Alternatives))
	payloads := make(map[string]value.Value, len(n.Typ.Alternatives))
	for _, alt := range n.Typ.Alternatives {
		tags[alt.Tag] = e.solver.BoolConst(alt.Tag == n.Tag)
		if alt.Tag == n.Tag {
			payloads[alt.Tag] = payload
			continue
		}
		pv, _, err := e.allocate(alt.Payload)
		if err != nil {
			return nil, err
		}
		payloads[alt.Tag] = pv
	}
	return &value.Union{Typ: n.Typ, TagTerms: tags, Payloads: payloads}, nil
}

// evalUnionCase selects the payload associated with the true tag (spec
// §4.5: extraction is unconditional, guarding is the caller's job).
func (e *Evaluator) evalUnionCase(n *expr.UnionCase) (value.Value, error) {
	uv, err := e.Evaluate(n.Union)
	if err != nil {
		return nil, err
	}
	u, ok := uv.(*value.Union)
	if !ok {
		return nil, errs.NewInvariantViolated("eval: UnionCase on non-Union %T", uv)
	}
	v, ok := u.Payload(n.Tag)
	if !ok {
		return nil, errs.NewInvariantViolated("eval: union has no alternative %q", n.Tag)
	}
	return v, nil
}

func (e *Evaluator) evalUnionTag(n *expr.UnionTag) (value.Value, error) {
	uv, err := e.Evaluate(n.Union)
	if err != nil {
		return nil, err
	}
	u, ok := uv.(*value.Union)
	if !ok {
		return nil, errs.NewInvariantViolated("eval: UnionTag on non-Union %T", uv)
	}
	t, ok := u.ActiveTerm(n.Tag)
	if !ok {
		return nil, errs.NewInvariantViolated("eval: union has no alternative %q", n.Tag)
	}
	return &value.Bool{Term: t}, nil
}

// evalConstMapGet/Set look up/insert in the key-indexed symbolic mapping;
// get on an absent key returns V's default symbolic value (spec §4.5
// "Finite-map get/set").
func (e *Evaluator) evalConstMapGet(n *expr.ConstMapGet) (value.Value, error) {
	mv, err := e.Evaluate(n.Map)
	if err != nil {
		return nil, err
	}
	m, ok := mv.(*value.ConstMap)
	if !ok {
		return nil, errs.NewInvariantViolated("eval: ConstMapGet on non-ConstMap %T", mv)
	}
	return m.Get(value.CanonicalKey(n.Key.Value)), nil
}

func (e *Evaluator) evalConstMapSet(n *expr.ConstMapSet) (value.Value, error) {
	mv, err := e.Evaluate(n.Map)
	if err != nil {
		return nil, err
	}
	m, ok := mv.(*value.ConstMap)
	if !ok {
		return nil, errs.NewInvariantViolated("eval: ConstMapSet on non-ConstMap %T", mv)
	}
	val, err := e.Evaluate(n.Value)
	if err != nil {
		return nil, err
	}
	return m.Set(value.CanonicalKey(n.Key.Value), val), nil
}

// evalMapGet/Set use solver select/store on the backing array term (spec
// §4.5 "Array-map get/set").
func (e *Evaluator) evalMapGet(n *expr.MapGet) (value.Value, error) {
	mv, err := e.Evaluate(n.Map)
	if err != nil {
		return nil, err
	}
	m, ok := mv.(*value.ArrayMap)
	if !ok {
		return nil, errs.NewInvariantViolated("eval: MapGet on non-Map %T", mv)
	}
	kv, err := e.Evaluate(n.Key)
	if err != nil {
		return nil, err
	}
	keyTerm, err := termOf(kv)
	if err != nil {
		return nil, err
	}
	elemTerm := e.solver.ArraySelect(m.Term, keyTerm)
	return wrapTerm(n.Typ, elemTerm), nil
}

func (e *Evaluator) evalMapSet(n *expr.MapSet) (value.Value, error) {
	mv, err := e.Evaluate(n.Map)
	if err != nil {
		return nil, err
	}
	m, ok := mv.(*value.ArrayMap)
	if !ok {
		return nil, errs.NewInvariantViolated("eval: MapSet on non-Map %T", mv)
	}
	kv, err := e.Evaluate(n.Key)
	if err != nil {
		return nil, err
	}
	keyTerm, err := termOf(kv)
	if err != nil {
		return nil, err
	}
	val, err := e.Evaluate(n.Value)
	if err != nil {
		return nil, err
	}
	valTerm, err := termOf(val)
	if err != nil {
		return nil, err
	}
	return &value.ArrayMap{Term: e.solver.ArrayStore(m.Term, keyTerm, valTerm), Key: m.Key, Val: m.Val}, nil
}

// evalSequence translates every Sequence node directly to the matching
// solver call (spec §4.5 "Sequence operations: direct solver calls").
func (e *Evaluator) evalSequence(n *expr.Sequence) (value.Value, error) {
	operands := make([]value.Value, len(n.Operands))
	for i, o := range n.Operands {
		v, err := e.Evaluate(o)
		if err != nil {
			return nil, err
		}
		operands[i] = v
	}
	seqTerm := func(i int) solver.Term { return operands[i].(*value.Seq).Term }
	switch n.Op {
	case expr.SeqConcat:
		return &value.Seq{Term: e.solver.SeqConcat(seqTerm(0), seqTerm(1)), Elem: n.Typ.Elem}, nil
	case expr.SeqLength:
		return &value.Int{Term: e.solver.SeqLength(seqTerm(0))}, nil
	case expr.SeqAt:
		idx, err := termOf(operands[1])
		if err != nil {
			return nil, err
		}
		return wrapTerm(n.Typ, e.solver.SeqAt(seqTerm(0), idx)), nil
	case expr.SeqContains:
		elem, err := termOf(operands[1])
		if err != nil {
			return nil, err
		}
		return &value.Bool{Term: e.solver.SeqContains(seqTerm(0), elem)}, nil
	case expr.SeqIndexOf:
		elem, err := termOf(operands[1])
		if err != nil {
			return nil, err
		}
		return &value.Int{Term: e.solver.SeqIndexOf(seqTerm(0), elem)}, nil
	case expr.SeqSlice:
		start, err := termOf(operands[1])
		if err != nil {
			return nil, err
		}
		end, err := termOf(operands[2])
		if err != nil {
			return nil, err
		}
		return &value.Seq{Term: e.solver.SeqSlice(seqTerm(0), start, end), Elem: n.Typ.Elem}, nil
	case expr.SeqReplace:
		return &value.Seq{Term: e.solver.SeqReplace(seqTerm(0), seqTerm(1), seqTerm(2)), Elem: n.Typ.Elem}, nil
	default:
		return nil, errs.NewInvariantViolated("eval: unsupported sequence op %d", n.Op)
	}
}

// evalList implements the fixed-length cons-chain operations of spec §4.2
// over a value.List's Option cells: cons shifts one new head on, head reads
// the first cell, tail drops it and shifts the rest down, is-empty tests the
// first cell's Present term.
func (e *Evaluator) evalList(n *expr.List) (value.Value, error) {
	switch n.Op {
	case expr.ListCons:
		head, err := e.Evaluate(n.Operands[0])
		if err != nil {
			return nil, err
		}
		tailVal, err := e.Evaluate(n.Operands[1])
		if err != nil {
			return nil, err
		}
		tail, ok := tailVal.(*value.List)
		if !ok {
			return nil, errs.NewInvariantViolated("eval: ListCons tail is not a List (%T)", tailVal)
		}
		cells := make([]*value.Option, len(tail.Cells))
		cells[0] = &value.Option{Elem: n.Typ.Elem, Present: e.solver.True(), Payload: head}
		copy(cells[1:], tail.Cells[:len(tail.Cells)-1])
		return &value.List{Elem: n.Typ.Elem, Cells: cells}, nil
	case expr.ListHead:
		lv, err := e.evalListOperand(n)
		if err != nil {
			return nil, err
		}
		return lv.Cells[0].Payload, nil
	case expr.ListTail:
		lv, err := e.evalListOperand(n)
		if err != nil {
			return nil, err
		}
		cells := make([]*value.Option, len(lv.Cells))
		copy(cells, lv.Cells[1:])
		cells[len(cells)-1] = &value.Option{Elem: n.Typ.Elem, Present: e.solver.False(), Payload: lv.Cells[len(lv.Cells)-1].Payload}
		return &value.List{Elem: n.Typ.Elem, Cells: cells}, nil
	case expr.ListIsEmpty:
		lv, err := e.evalListOperand(n)
		if err != nil {
			return nil, err
		}
		return &value.Bool{Term: e.solver.Not(lv.Cells[0].Present)}, nil
	default:
		return nil, errs.NewInvariantViolated("eval: unsupported list op %d", n.Op)
	}
}

func (e *Evaluator) evalListOperand(n *expr.List) (*value.List, error) {
	v, err := e.Evaluate(n.Operands[0])
	if err != nil {
		return nil, err
	}
	lv, ok := v.(*value.List)
	if !ok {
		return nil, errs.NewInvariantViolated("eval: list op on non-List %T", v)
	}
	return lv, nil
}

// evalConvert applies bit-width changes as sign- or zero-extension, per the
// source node (spec §4.5 "Conversions").
func (e *Evaluator) evalConvert(n *expr.Convert) (value.Value, error) {
	v, err := e.Evaluate(n.Operand)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case expr.ConvertSignExtend:
		bv := v.(*value.BitVec)
		return &value.BitVec{Term: e.solver.BVSignExtend(bv.Term, n.Typ.Width), Width: n.Typ.Width, Signed: n.Typ.Signed}, nil
	case expr.ConvertZeroExtend:
		bv := v.(*value.BitVec)
		return &value.BitVec{Term: e.solver.BVZeroExtend(bv.Term, n.Typ.Width), Width: n.Typ.Width, Signed: n.Typ.Signed}, nil
	case expr.ConvertTruncate:
		bv := v.(*value.BitVec)
		return &value.BitVec{Term: e.solver.BVTruncate(bv.Term, n.Typ.Width), Width: n.Typ.Width, Signed: n.Typ.Signed}, nil
	case expr.ConvertIntToReal:
		return nil, errs.NewUnsupported(e.solver.Name(), "Convert", "Int-to-Real conversion requires a backend-native cast, not exposed by the solver interface")
	case expr.ConvertSeqToList, expr.ConvertListToSeq:
		return nil, errs.NewUnsupported(e.solver.Name(), "Convert", "Seq<->List conversion is not yet implemented")
	default:
		return nil, errs.NewInvariantViolated("eval: unsupported convert op %d", n.Op)
	}
}

// termOf extracts the scalar solver.Term backing a value.Value, for the
// array-map and sequence primitives that pass keys/elements straight
// through to the solver without caring about the symbolic-value wrapper.
func termOf(v value.Value) (solver.Term, error) {
	switch t := v.(type) {
	case *value.Bool:
		return t.Term, nil
	case *value.BitVec:
		return t.Term, nil
	case *value.Int:
		return t.Term, nil
	case *value.Real:
		return t.Term, nil
	case *value.Char:
		return t.Term, nil
	case *value.Seq:
		return t.Term, nil
	default:
		return nil, errs.NewInvariantViolated("eval: expected scalar value, got %T", v)
	}
}

// wrapTerm rebuilds a value.Value of the given declared type around a raw
// solver.Term, for results coming back from ArraySelect/SeqAt where the
// solver only ever deals in Terms.
func wrapTerm(t *exprtype.Type, term solver.Term) value.Value {
	switch t.Kind {
	case exprtype.KindBool:
		return &value.Bool{Term: term}
	case exprtype.KindBitVec:
		return &value.BitVec{Term: term, Width: t.Width, Signed: t.Signed}
	case exprtype.KindInt:
		return &value.Int{Term: term}
	case exprtype.KindReal:
		return &value.Real{Term: term}
	case exprtype.KindChar:
		return &value.Char{Term: term}
	case exprtype.KindSeq:
		return &value.Seq{Term: term, Elem: t.Elem}
	default:
		return &value.Bool{Term: term}
	}
}
