package value

import (
	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

// Record is a symbolic record value: a field map plus the field order of
// its originating type (needed to rebuild exprtype.Type deterministically).
type Record struct {
	Typ    *exprtype.Type
	Fields map[string]Value
}

func (r *Record) Type() *exprtype.Type { return r.Typ }

// Get returns the named field's current value.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// Set returns a new Record equal to r except that name is replaced by v.
func (r *Record) Set(name string, v Value) *Record {
	fields := make(map[string]Value, len(r.Fields))
	for k, existing := range r.Fields {
		fields[k] = existing
	}
	fields[name] = v
	return &Record{Typ: r.Typ, Fields: fields}
}

// Merge implements "field-wise merge on each named field; field sets must
// be identical" (spec §4.2 lattice table).
func (r *Record) Merge(s solver.Solver, guard solver.Term, other Value) (Value, error) {
	o, ok := other.(*Record)
	if !ok {
		return nil, mismatch(r, other)
	}
	if len(r.Fields) != len(o.Fields) {
		return nil, errs.NewInvariantViolated("merge: record field sets differ (%d vs %d fields)", len(r.Fields), len(o.Fields))
	}
	fields := make(map[string]Value, len(r.Fields))
	for name, lv := range r.Fields {
		rv, ok := o.Fields[name]
		if !ok {
			return nil, errs.NewInvariantViolated("merge: record field %q missing on one side", name)
		}
		merged, err := lv.Merge(s, guard, rv)
		if err != nil {
			return nil, err
		}
		fields[name] = merged
	}
	return &Record{Typ: r.Typ, Fields: fields}, nil
}

// Union is a symbolic tagged-union value: one active-tag Boolean term per
// alternative (exactly one true at a time, per spec §4.5 "union-create"),
// and one payload Value per alternative.
type Union struct {
	Typ      *exprtype.Type
	TagTerms map[string]solver.Term // alternative tag -> "is this tag active" term
	Payloads map[string]Value       // alternative tag -> payload value
}

func (u *Union) Type() *exprtype.Type { return u.Typ }

// ActiveTerm returns the Boolean term asserting that tag is the active
// alternative.
func (u *Union) ActiveTerm(tag string) (solver.Term, bool) {
	t, ok := u.TagTerms[tag]
	return t, ok
}

// Payload returns the symbolic payload stored for tag (defined even when
// tag is not the active alternative — spec §4.8 treats union-case as
// extracting the payload unconditionally, leaving guarding to the caller).
func (u *Union) Payload(tag string) (Value, bool) {
	v, ok := u.Payloads[tag]
	return v, ok
}

// Merge implements "pair the active-tag Booleans and the per-tag payloads;
// for each alternative k: new tag = ite(g, self.tag_k, other.tag_k), new
// payload = payload_self.merge(g, payload_other)" (spec §4.2 lattice table).
func (u *Union) Merge(s solver.Solver, guard solver.Term, other Value) (Value, error) {
	o, ok := other.(*Union)
	if !ok {
		return nil, mismatch(u, other)
	}
	tags := make(map[string]solver.Term, len(u.TagTerms))
	payloads := make(map[string]Value, len(u.Payloads))
	for tag, lt := range u.TagTerms {
		rt, ok := o.TagTerms[tag]
		if !ok {
			return nil, errs.NewInvariantViolated("merge: union alternative %q missing on one side", tag)
		}
		tags[tag] = s.Ite(guard, lt, rt)

		lp, lok := u.Payloads[tag]
		rp, rok := o.Payloads[tag]
		switch {
		case lok && rok:
			merged, err := lp.Merge(s, guard, rp)
			if err != nil {
				return nil, err
			}
			payloads[tag] = merged
		case lok:
			payloads[tag] = lp
		case rok:
			payloads[tag] = rp
		}
	}
	return &Union{Typ: u.Typ, TagTerms: tags, Payloads: payloads}, nil
}
