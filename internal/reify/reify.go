// Package reify implements witness reification (spec §4.8): composing the
// arbitrary registry the evaluator built during a query with solver Get
// calls to produce a concrete assignment, one Go value per *expr.Arbitrary
// node. Grounded on the teacher's InterpreterAdapter delegation pattern
// (internal/interp/evaluator/evaluator.go): reification never computes a
// value itself, it calls back into the solver (there: the legacy
// Interpreter) through a narrow interface.
package reify

import (
	"github.com/cwbudde/symcheck/internal/eval"
	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/pkg/expr"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

// Interpreter evaluates a characteristic expression against a reified
// Assignment to produce the witness value a StateSet (reach package)
// returns from Element. It is a consumed interface only — this module never
// implements one, mirroring the teacher's InterpreterAdapter delegation
// (internal/interp/evaluator/evaluator.go): the evaluator it depends on at
// runtime is supplied by whatever embeds this library, not built here.
type Interpreter interface {
	Evaluate(characteristic expr.Node, assignment Assignment) (any, error)
}

// Assignment maps each *expr.Arbitrary node (by identity) to the concrete
// Go value the model bound it to, keyed the same way eval.Evaluator keys
// its witness registry.
type Assignment map[*expr.Arbitrary]any

// ConstMapValue is the reified form of a finite-map witness: a concrete
// value per observed key plus the default for every key never observed by
// the constant-key collector (spec §4.4).
type ConstMapValue struct {
	Entries map[string]any
	Default any
}

// Reify walks every entry of witnesses and extracts a concrete value from
// model via s.Get, recursing through structured Witness shapes the same
// way internal/eval's allocate built them.
func Reify(s solver.Solver, model solver.Model, witnesses map[*expr.Arbitrary]eval.Witness) (Assignment, error) {
	out := make(Assignment, len(witnesses))
	for node, w := range witnesses {
		v, err := get(s, model, w)
		if err != nil {
			return nil, err
		}
		out[node] = v
	}
	return out, nil
}

// get dispatches on the concrete Witness variant, mirroring internal/eval's
// allocate switch so every leaf allocated there has a matching extraction
// here.
func get(s solver.Solver, model solver.Model, w eval.Witness) (any, error) {
	switch t := w.(type) {
	case *eval.Scalar:
		return s.Get(model, t.Var, t.Typ)
	case *eval.Opaque:
		return getArray(s, model, t)
	case *eval.Option:
		present, err := s.Get(model, t.Present, exprtype.Bool)
		if err != nil {
			return nil, err
		}
		if present != true {
			return nil, nil
		}
		payload, err := get(s, model, t.Payload)
		if err != nil {
			return nil, err
		}
		return payload, nil
	case *eval.List:
		cells := make([]any, 0, len(t.Cells))
		for _, c := range t.Cells {
			v, err := get(s, model, c)
			if err != nil {
				return nil, err
			}
			if v == nil {
				break
			}
			cells = append(cells, v)
		}
		return cells, nil
	case *eval.Record:
		fields := make(map[string]any, len(t.Fields))
		for name, fw := range t.Fields {
			v, err := get(s, model, fw)
			if err != nil {
				return nil, err
			}
			fields[name] = v
		}
		return fields, nil
	case *eval.Union:
		for tag, tagVar := range t.Tags {
			active, err := s.Get(model, tagVar, exprtype.Bool)
			if err != nil {
				return nil, err
			}
			if active == true {
				payload, err := get(s, model, t.Payloads[tag])
				if err != nil {
					return nil, err
				}
				return eval.UnionLiteral{Tag: tag, Payload: payload}, nil
			}
		}
		return nil, errs.NewInvariantViolated("reify: no active union tag in model")
	case *eval.ConstMap:
		entries := make(map[string]any, len(t.Entries))
		for k, ew := range t.Entries {
			v, err := get(s, model, ew)
			if err != nil {
				return nil, err
			}
			entries[k] = v
		}
		def, err := get(s, model, t.Default)
		if err != nil {
			return nil, err
		}
		return ConstMapValue{Entries: entries, Default: def}, nil
	default:
		return nil, errs.NewInvariantViolated("reify: unhandled witness variant %T", w)
	}
}

// getArray would reify an array-backed Map element-wise via ArraySelect+Get
// (spec §4.7 "ask the backend for a satisfying assignment; reify"
// generalized to array-maps). solver.Get's declared-type switch (spec §4.1
// "Model extraction") only defines scalar extraction, not arrays, so
// witnessing an arbitrary-typed Map requires the backend to expose its
// backing array term for post-hoc ArraySelect probing per key — a solver
// capability neither backend currently surfaces. Left as Unsupported rather
// than fabricating per-key values; see DESIGN.md's Open Questions.
func getArray(s solver.Solver, _ solver.Model, o *eval.Opaque) (any, error) {
	return nil, errs.NewUnsupported(s.Name(), "reify", "reifying a witness of Map type "+o.Typ.String()+" is not supported")
}
