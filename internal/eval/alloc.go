package eval

import (
	"sort"

	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/internal/value"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

// allocate materializes a fresh symbolic value of type t (spec §4.5
// "Arbitrary: allocate a fresh solver variable of the corresponding kind...
// For structured types, allocate one fresh variable per leaf; list length
// is the configured maximum"), returning both the value.Value the rest of
// evaluation operates on and the parallel Witness internal/reify consumes.
func (e *Evaluator) allocate(t *exprtype.Type) (value.Value, Witness, error) {
	switch t.Kind {
	case exprtype.KindBool:
		id, term := e.solver.FreshBoolVar()
		return &value.Bool{Term: term}, &Scalar{Var: id, Typ: t}, nil
	case exprtype.KindBitVec:
		id, term := e.solver.FreshBitVecVar(t.Width, t.Signed)
		return &value.BitVec{Term: term, Width: t.Width, Signed: t.Signed}, &Scalar{Var: id, Typ: t}, nil
	case exprtype.KindInt:
		id, term := e.solver.FreshIntVar()
		return &value.Int{Term: term}, &Scalar{Var: id, Typ: t}, nil
	case exprtype.KindReal:
		id, term := e.solver.FreshRealVar()
		return &value.Real{Term: term}, &Scalar{Var: id, Typ: t}, nil
	case exprtype.KindChar:
		id, term := e.solver.FreshCharVar()
		return &value.Char{Term: term}, &Scalar{Var: id, Typ: t}, nil
	case exprtype.KindSeq:
		id, term := e.solver.FreshSeqVar(t.Elem.Kind)
		return &value.Seq{Term: term, Elem: t.Elem}, &Scalar{Var: id, Typ: t}, nil
	case exprtype.KindMap:
		_, term := e.solver.FreshArrayVar(t.Key.Width, t.Key.Signed, t.Elem.Kind)
		return &value.ArrayMap{Term: term, Key: t.Key, Val: t.Elem}, &Opaque{Typ: t}, nil
	case exprtype.KindOption:
		return e.allocOption(t)
	case exprtype.KindList:
		return e.allocList(t)
	case exprtype.KindRecord:
		return e.allocRecord(t)
	case exprtype.KindUnion:
		return e.allocUnion(t)
	case exprtype.KindConstMap:
		return e.allocConstMap(t)
	default:
		return nil, nil, errs.NewInvariantViolated("eval: cannot allocate arbitrary of kind %s", t.Kind)
	}
}

func (e *Evaluator) allocOption(t *exprtype.Type) (value.Value, Witness, error) {
	presentID, presentTerm := e.solver.FreshBoolVar()
	payloadVal, payloadWit, err := e.allocate(t.Elem)
	if err != nil {
		return nil, nil, err
	}
	return &value.Option{Elem: t.Elem, Present: presentTerm, Payload: payloadVal},
		&Option{Present: presentID, Payload: payloadWit, Typ: t}, nil
}

// allocList allocates Config.ListMaxLength cons cells (spec §4.5 "list
// length is the configured maximum").
func (e *Evaluator) allocList(t *exprtype.Type) (value.Value, Witness, error) {
	cells := make([]*value.Option, e.cfg.ListMaxLength)
	witCells := make([]*Option, e.cfg.ListMaxLength)
	optTyp := exprtype.Option(t.Elem)
	for i := range cells {
		v, w, err := e.allocOption(optTyp)
		if err != nil {
			return nil, nil, err
		}
		cells[i] = v.(*value.Option)
		witCells[i] = w.(*Option)
	}
	return &value.List{Elem: t.Elem, Cells: cells}, &List{Typ: t, Cells: witCells}, nil
}

func (e *Evaluator) allocRecord(t *exprtype.Type) (value.Value, Witness, error) {
	fields := make(map[string]value.Value, len(t.Fields))
	witFields := make(map[string]Witness, len(t.Fields))
	for _, f := range t.Fields {
		v, w, err := e.allocate(f.Type)
		if err != nil {
			return nil, nil, err
		}
		fields[f.Name] = v
		witFields[f.Name] = w
	}
	return &value.Record{Typ: t, Fields: fields}, &Record{Typ: t, Fields: witFields}, nil
}

func (e *Evaluator) allocUnion(t *exprtype.Type) (value.Value, Witness, error) {
	tagTerms := make(map[string]solver.Term, len(t.Alternatives))
	tagVars := make(map[string]solver.VarID, len(t.Alternatives))
	payloads := make(map[string]value.Value, len(t.Alternatives))
	witPayloads := make(map[string]Witness, len(t.Alternatives))
	for _, alt := range t.Alternatives {
		id, term := e.solver.FreshBoolVar()
		tagTerms[alt.Tag] = term
		tagVars[alt.Tag] = id
		v, w, err := e.allocate(alt.Payload)
		if err != nil {
			return nil, nil, err
		}
		payloads[alt.Tag] = v
		witPayloads[alt.Tag] = w
	}
	return &value.Union{Typ: t, TagTerms: tagTerms, Payloads: payloads},
		&Union{Typ: t, Tags: tagVars, Payloads: witPayloads}, nil
}

// allocConstMap materializes one symbolic V per observed key for this
// ConstMap shape (spec §4.4 "The evaluator later materializes finite-map
// symbolic values as a mapping defined on exactly that key set"), plus a
// default value.Value/Witness for keys never observed anywhere in the DAG.
func (e *Evaluator) allocConstMap(t *exprtype.Type) (value.Value, Witness, error) {
	def, defWit, err := e.allocate(t.Elem)
	if err != nil {
		return nil, nil, err
	}
	entries := map[string]value.Value{}
	witEntries := map[string]Witness{}
	if e.keys != nil {
		keySet := e.keys.KeysFor(t)
		ordered := make([]string, 0, len(keySet))
		for k := range keySet {
			ordered = append(ordered, k)
		}
		sort.Strings(ordered)
		for _, k := range ordered {
			v, w, err := e.allocate(t.Elem)
			if err != nil {
				return nil, nil, err
			}
			entries[k] = v
			witEntries[k] = w
		}
	}
	return &value.ConstMap{Key: t.Key, Val: t.Elem, Entries: entries, Default: def},
		&ConstMap{Typ: t, Entries: witEntries, Default: defWit}, nil
}
