package value

import (
	"fmt"
	"sort"

	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/solver"
	"github.com/cwbudde/symcheck/pkg/exprtype"
)

// CanonicalKey renders a concrete key value (as produced by a *expr.Constant
// literal) into a stable map key. It is the single place that decides how
// ConstMap keys compare for identity, mirroring spec §4.4's "per-type
// strategy selected at the type tag of the map expression" in place of a
// runtime-typed dynamic key iteration.
func CanonicalKey(v any) string {
	switch k := v.(type) {
	case string:
		return "s:" + k
	case bool:
		return fmt.Sprintf("b:%v", k)
	case rune:
		return fmt.Sprintf("c:%d", k)
	case int64:
		return fmt.Sprintf("i:%d", k)
	default:
		return fmt.Sprintf("?:%v", k)
	}
}

// ConstMap is a symbolic finite-key map (spec GLOSSARY "ConstMap"): an
// explicit mapping from each ever-used concrete key (spec §4.4) to a
// symbolic value of the value type. Keys outside the observed set are
// unconstrained, per spec §8 scenario S5.
type ConstMap struct {
	Key, Val *exprtype.Type
	Entries  map[string]Value // canonical key -> value
	Default  Value             // the default symbolic value for V, returned for absent keys
}

func (m *ConstMap) Type() *exprtype.Type { return exprtype.ConstMap(m.Key, m.Val) }

// Get returns the value bound to the given canonical key, or the map's
// default if the key was never observed by the constant-key collector.
func (m *ConstMap) Get(canonicalKey string) Value {
	if v, ok := m.Entries[canonicalKey]; ok {
		return v
	}
	return m.Default
}

// Set returns a new ConstMap equal to m except that canonicalKey maps to v.
func (m *ConstMap) Set(canonicalKey string, v Value) *ConstMap {
	entries := make(map[string]Value, len(m.Entries))
	for k, existing := range m.Entries {
		entries[k] = existing
	}
	entries[canonicalKey] = v
	return &ConstMap{Key: m.Key, Val: m.Val, Entries: entries, Default: m.Default}
}

// Merge implements the "key-wise merge over the union of key sets; keys
// absent on one side take the other's value unconditionally" rule of
// spec §4.2's lattice table.
func (m *ConstMap) Merge(s solver.Solver, guard solver.Term, other Value) (Value, error) {
	o, ok := other.(*ConstMap)
	if !ok {
		return nil, mismatch(m, other)
	}
	keys := make(map[string]struct{}, len(m.Entries)+len(o.Entries))
	for k := range m.Entries {
		keys[k] = struct{}{}
	}
	for k := range o.Entries {
		keys[k] = struct{}{}
	}
	ordered := make([]string, 0, len(keys))
	for k := range keys {
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)

	entries := make(map[string]Value, len(ordered))
	for _, k := range ordered {
		lv, lok := m.Entries[k]
		rv, rok := o.Entries[k]
		switch {
		case lok && rok:
			merged, err := lv.Merge(s, guard, rv)
			if err != nil {
				return nil, err
			}
			entries[k] = merged
		case lok:
			entries[k] = lv
		case rok:
			entries[k] = rv
		}
	}
	def := m.Default
	if def == nil {
		def = o.Default
	}
	if m.Default != nil && o.Default != nil {
		merged, err := m.Default.Merge(s, guard, o.Default)
		if err != nil {
			return nil, err
		}
		def = merged
	}
	return &ConstMap{Key: m.Key, Val: m.Val, Entries: entries, Default: def}, nil
}

// ErrUnknownKeyType reports that CanonicalKey saw a Go value it does not
// recognize as a finite-map key representation.
func ErrUnknownKeyType(v any) error {
	return errs.NewInvariantViolated("ConstMap key of unsupported Go type %T", v)
}
