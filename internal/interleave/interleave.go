// Package interleave implements the variable-interleaving analyzer of spec
// §4.3: a pre-pass over the expression DAG that groups arbitrary-variable
// leaves whose values are correlated by arithmetic, equality, or relational
// operators, so a decision-diagram backend can allocate their encoding bits
// adjacently (spec GLOSSARY "Interleaving"). It is grounded on the
// teacher's pass architecture (internal/semantic/pass.go,
// internal/semantic/passes/declaration_pass.go): a single visitor walking
// the DAG once, accumulating a result keyed by node identity, the same
// shape the teacher uses to accumulate declarations before the main
// semantic pass runs.
package interleave

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/value"
	"github.com/cwbudde/symcheck/pkg/exprtype"
	"github.com/cwbudde/symcheck/pkg/expr"
)

// LeafID identifies one scalar symbolic-variable slot: one Arbitrary node
// contributes one LeafID per flat leaf of its type and one per union tag.
// An Option contributes a single LeafID (its presence flag, not its
// payload), and List and ConstMap types contribute none.
type LeafID int

// Result is the per-node interleaving result of spec §4.3: either a flat
// set of leaf identities or a structure mirroring the node's container type.
type Result interface {
	isResult()
}

// Flat is the result for Boolean/bit-vector/int/real/char/seq/array nodes:
// the set of leaf identities that flow into this node's value.
type Flat struct {
	Vars *bitset.BitSet
	Kind exprtype.Kind
}

func (*Flat) isResult() {}

// Record is the result for record-typed nodes: one Result per named field,
// combined field-wise (spec §4.3 "records combine field-by-field").
type Record struct {
	Fields map[string]Result
}

func (*Record) isResult() {}

// Union is the result for union-typed nodes: the tag-selector leaves plus
// one Result per alternative's payload (spec §4.3 "unions combine both the
// tag sets and same-tag payloads").
type Union struct {
	TagVars  *bitset.BitSet
	Payloads map[string]Result
}

func (*Union) isResult() {}

// List is the result for list-typed nodes: one Result per cons-chain cell,
// combined element-wise (spec §4.3 "lists combine element-wise along the
// length-indexed structure").
type List struct {
	Cells []Result
}

func (*List) isResult() {}

// ConstMapResult is the result for ConstMap-typed nodes: one Result per
// observed key's value slot, keyed by the same canonical-key strategy
// internal/keys and internal/value use.
type ConstMapResult struct {
	ByKey map[string]Result
}

func (*ConstMapResult) isResult() {}

// Classes is the analyzer's output: a union-find over every allocated
// LeafID, queried by Representative to test interleaving-class membership.
type Classes struct {
	parent []LeafID
}

func newClasses() *Classes { return &Classes{} }

func (c *Classes) newLeaf() LeafID {
	id := LeafID(len(c.parent))
	c.parent = append(c.parent, id)
	return id
}

// find returns the representative of id's class, path-compressing as it goes.
func (c *Classes) find(id LeafID) LeafID {
	for c.parent[id] != id {
		c.parent[id] = c.parent[c.parent[id]]
		id = c.parent[id]
	}
	return id
}

// union merges a's and b's classes.
func (c *Classes) union(a, b LeafID) {
	ra, rb := c.find(a), c.find(b)
	if ra != rb {
		c.parent[ra] = rb
	}
}

// Representative returns the canonical class id for id, for grouping
// correlated variables during solver variable allocation.
func (c *Classes) Representative(id LeafID) LeafID { return c.find(id) }

// NumLeaves reports how many LeafIDs were allocated.
func (c *Classes) NumLeaves() int { return len(c.parent) }

// Analysis is the full output of one Analyze call.
type Analysis struct {
	Classes   *Classes
	ByNode    map[expr.Node]Result
}

// Analyze walks root bottom-up, memoizing per node identity (spec §4.5's
// memoization strategy, reused here since the interleaving pass walks the
// same shared, immutable DAG).
func Analyze(root expr.Node) (*Analysis, error) {
	a := &analyzer{classes: newClasses(), memo: map[expr.Node]Result{}, errs: &errs.Collector{}}
	a.visit(root)
	if err := a.errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &Analysis{Classes: a.classes, ByNode: a.memo}, nil
}

type analyzer struct {
	classes *Classes
	memo    map[expr.Node]Result
	errs    *errs.Collector
}

func (a *analyzer) visit(n expr.Node) Result {
	if n == nil {
		return nil
	}
	if r, ok := a.memo[n]; ok {
		return r
	}
	r := a.compute(n)
	a.memo[n] = r
	return r
}

func (a *analyzer) freshResult(t *exprtype.Type) Result {
	switch t.Kind {
	case exprtype.KindRecord:
		fields := make(map[string]Result, len(t.Fields))
		for _, f := range t.Fields {
			fields[f.Name] = a.freshResult(f.Type)
		}
		return &Record{Fields: fields}
	case exprtype.KindUnion:
		payloads := make(map[string]Result, len(t.Alternatives))
		tagVars := bitset.New(uint(len(t.Alternatives)))
		for _, alt := range t.Alternatives {
			id := a.classes.newLeaf()
			tagVars.Set(uint(id))
			payloads[alt.Tag] = a.freshResult(alt.Payload)
		}
		return &Union{TagVars: tagVars, Payloads: payloads}
	case exprtype.KindList:
		cells := make([]Result, 0)
		return &List{Cells: cells}
	case exprtype.KindOption:
		id := a.classes.newLeaf()
		vars := bitset.New(1)
		vars.Set(uint(id))
		return &Flat{Vars: vars, Kind: exprtype.KindBool}
	case exprtype.KindConstMap:
		return &ConstMapResult{ByKey: map[string]Result{}}
	default:
		id := a.classes.newLeaf()
		vars := bitset.New(1)
		vars.Set(uint(id))
		return &Flat{Vars: vars, Kind: t.Kind}
	}
}

func (a *analyzer) compute(n expr.Node) Result {
	switch v := n.(type) {
	case *expr.Constant:
		return a.constResult(v.Typ)
	case *expr.Arbitrary:
		return a.freshResult(v.Typ)
	case *expr.ArgumentRef:
		return a.freshResult(v.Typ)
	case *expr.Binary:
		l, r := a.visit(v.Left), a.visit(v.Right)
		if isRelational(v.Op) {
			a.combine(l, r)
		}
		return union2(l, r)
	case *expr.Unary:
		return a.visit(v.Operand)
	case *expr.IfThenElse:
		a.visit(v.Guard)
		return union2(a.visit(v.Then), a.visit(v.Else))
	case *expr.RecordCreate:
		fields := make(map[string]Result, len(v.Fields))
		for i, f := range v.Fields {
			name := v.Typ.Fields[i].Name
			fields[name] = a.visit(f)
		}
		return &Record{Fields: fields}
	case *expr.RecordGet:
		rec := a.visit(v.Record)
		if r, ok := rec.(*Record); ok {
			return r.Fields[v.Field]
		}
		return a.freshResult(v.Typ)
	case *expr.RecordSet:
		rec := a.visit(v.Record)
		val := a.visit(v.Value)
		r, ok := rec.(*Record)
		if !ok {
			return a.freshResult(v.Typ)
		}
		out := make(map[string]Result, len(r.Fields))
		for k, fv := range r.Fields {
			out[k] = fv
		}
		out[v.Field] = val
		return &Record{Fields: out}
	case *expr.UnionCreate:
		payload := a.visit(v.Payload)
		u := a.freshResult(v.Typ).(*Union)
		u.Payloads[v.Tag] = payload
		return u
	case *expr.UnionCase:
		un := a.visit(v.Union)
		if u, ok := un.(*Union); ok {
			return u.Payloads[v.Tag]
		}
		return a.freshResult(v.Typ)
	case *expr.UnionTag:
		a.visit(v.Union)
		return a.freshResult(exprtype.Bool)
	case *expr.ConstMapGet:
		m := a.visit(v.Map)
		key := keyOf(v.Key)
		if cm, ok := m.(*ConstMapResult); ok {
			if r, ok := cm.ByKey[key]; ok {
				return r
			}
		}
		return a.freshResult(v.Typ)
	case *expr.ConstMapSet:
		m := a.visit(v.Map)
		val := a.visit(v.Value)
		key := keyOf(v.Key)
		cm, ok := m.(*ConstMapResult)
		if !ok {
			cm = &ConstMapResult{ByKey: map[string]Result{}}
		}
		out := make(map[string]Result, len(cm.ByKey)+1)
		for k, vv := range cm.ByKey {
			out[k] = vv
		}
		out[key] = val
		return &ConstMapResult{ByKey: out}
	case *expr.MapGet:
		a.visit(v.Map)
		a.visit(v.Key)
		return a.freshResult(v.Typ)
	case *expr.MapSet:
		return a.visit(v.Map)
	case *expr.Sequence:
		var combined Result
		for _, op := range v.Operands {
			r := a.visit(op)
			if combined == nil {
				combined = r
			} else {
				combined = union2(combined, r)
			}
		}
		return combined
	case *expr.List:
		cells := make([]Result, 0, len(v.Operands))
		for _, op := range v.Operands {
			cells = append(cells, a.visit(op))
		}
		return &List{Cells: cells}
	case *expr.Convert:
		return a.visit(v.Operand)
	default:
		a.errs.Add(errs.NewInvariantViolated("interleave: unhandled node kind %T", n))
		return nil
	}
}

func (a *analyzer) constResult(t *exprtype.Type) Result {
	switch t.Kind {
	case exprtype.KindRecord:
		fields := make(map[string]Result, len(t.Fields))
		for _, f := range t.Fields {
			fields[f.Name] = a.constResult(f.Type)
		}
		return &Record{Fields: fields}
	default:
		return &Flat{Vars: bitset.New(0), Kind: t.Kind}
	}
}

// combine implements spec §4.3's Combine operation: union every pair of
// leaves from the two flat results, skipping purely Boolean operands, which
// never need DD-adjacency since they do not feed bit-vector comparisons.
func (a *analyzer) combine(l, r Result) {
	lf, lok := l.(*Flat)
	rf, rok := r.(*Flat)
	if !lok || !rok {
		a.combineStructured(l, r)
		return
	}
	if lf.Kind == exprtype.KindBool || rf.Kind == exprtype.KindBool {
		return
	}
	for i, e := lf.Vars.NextSet(0); e; i, e = lf.Vars.NextSet(i + 1) {
		for j, e2 := rf.Vars.NextSet(0); e2; j, e2 = rf.Vars.NextSet(j + 1) {
			a.classes.union(LeafID(i), LeafID(j))
		}
	}
}

func (a *analyzer) combineStructured(l, r Result) {
	switch lv := l.(type) {
	case *Record:
		if rv, ok := r.(*Record); ok {
			for name, lf := range lv.Fields {
				a.combine(lf, rv.Fields[name])
			}
		}
	case *Union:
		if rv, ok := r.(*Union); ok {
			for tag, lp := range lv.Payloads {
				a.combine(lp, rv.Payloads[tag])
			}
		}
	case *List:
		if rv, ok := r.(*List); ok {
			n := len(lv.Cells)
			if len(rv.Cells) < n {
				n = len(rv.Cells)
			}
			for i := 0; i < n; i++ {
				a.combine(lv.Cells[i], rv.Cells[i])
			}
		}
	}
}

// union2 implements spec §4.3's Union operation (pointwise set union for
// choice points; field-wise for record results).
func union2(l, r Result) Result {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	switch lv := l.(type) {
	case *Flat:
		rv, ok := r.(*Flat)
		if !ok {
			return l
		}
		merged := lv.Vars.Clone().InPlaceUnion(rv.Vars)
		return &Flat{Vars: merged, Kind: lv.Kind}
	case *Record:
		rv, ok := r.(*Record)
		if !ok {
			return l
		}
		out := make(map[string]Result, len(lv.Fields))
		for name, lf := range lv.Fields {
			out[name] = union2(lf, rv.Fields[name])
		}
		return &Record{Fields: out}
	case *Union:
		rv, ok := r.(*Union)
		if !ok {
			return l
		}
		tags := lv.TagVars.Clone().InPlaceUnion(rv.TagVars)
		payloads := make(map[string]Result, len(lv.Payloads))
		for tag, lp := range lv.Payloads {
			payloads[tag] = union2(lp, rv.Payloads[tag])
		}
		return &Union{TagVars: tags, Payloads: payloads}
	case *List:
		rv, ok := r.(*List)
		if !ok || len(rv.Cells) != len(lv.Cells) {
			return l
		}
		cells := make([]Result, len(lv.Cells))
		for i := range cells {
			cells[i] = union2(lv.Cells[i], rv.Cells[i])
		}
		return &List{Cells: cells}
	default:
		return l
	}
}

func isRelational(op expr.Op) bool {
	switch op {
	case expr.OpAdd, expr.OpSub, expr.OpMul, expr.OpDiv, expr.OpMod,
		expr.OpEq, expr.OpNe, expr.OpLt, expr.OpLe, expr.OpGt, expr.OpGe:
		return true
	default:
		return false
	}
}

// keyOf renders a literal ConstMapGet/Set key the same way internal/keys
// and internal/value do, so results line up by canonical key string.
func keyOf(c *expr.Constant) string {
	return value.CanonicalKey(c.Value)
}
