// Package keys implements the constant-key collector of spec §4.4: a
// pre-pass enumerating every concrete key literal used against a
// ConstMap<K,V> anywhere in the DAG, so the evaluator can materialize one
// symbolic V per observed key (spec §4.4, testable property 7 "constant-key
// completeness"). Grounded on the teacher's declaration_pass.go, which
// performs the same shape of single DAG walk accumulating into a registry
// before the main pass runs.
package keys

import (
	"github.com/cwbudde/symcheck/internal/errs"
	"github.com/cwbudde/symcheck/internal/value"
	"github.com/cwbudde/symcheck/pkg/exprtype"
	"github.com/cwbudde/symcheck/pkg/expr"
)

// TypeKey identifies one ConstMap<K,V> shape; two Constant-typed ConstMap
// nodes of the same shape share an entry even if they are distinct Go
// *exprtype.Type pointers.
type TypeKey string

func typeKeyOf(t *exprtype.Type) TypeKey {
	return TypeKey(t.String())
}

// Collected is the constant-key collector's result: for each observed
// ConstMap<K,V> shape, the set of canonical key strings seen anywhere in
// the DAG (spec §4.4 "The result is a mapping from finite-map type to its
// observed key set").
type Collected struct {
	ByType map[TypeKey]map[string]struct{}
}

// KeysFor returns the observed canonical keys for the ConstMap shape t, or
// nil if that shape was never observed in the DAG.
func (c *Collected) KeysFor(t *exprtype.Type) map[string]struct{} {
	return c.ByType[typeKeyOf(t)]
}

func (c *Collected) record(t *exprtype.Type, key string) {
	tk := typeKeyOf(t)
	set, ok := c.ByType[tk]
	if !ok {
		set = map[string]struct{}{}
		c.ByType[tk] = set
	}
	set[key] = struct{}{}
}

// Collect walks root once (spec §4.4 "Visit the entire DAG"), recording
// every literal key used in a ConstMapGet/ConstMapSet node and every key of
// a literal ConstMap constant.
func Collect(root expr.Node) (*Collected, error) {
	c := &collector{result: &Collected{ByType: map[TypeKey]map[string]struct{}{}}, seen: map[expr.Node]struct{}{}, errs: &errs.Collector{}}
	c.walk(root)
	if err := c.errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return c.result, nil
}

type collector struct {
	result *Collected
	seen   map[expr.Node]struct{}
	errs   *errs.Collector
}

func (c *collector) walk(n expr.Node) {
	if n == nil {
		return
	}
	if _, ok := c.seen[n]; ok {
		return
	}
	c.seen[n] = struct{}{}

	switch v := n.(type) {
	case *expr.Constant:
		c.collectLiteral(v.Typ, v.Value)
	case *expr.ConstMapGet:
		c.result.record(v.Map.Type(), value.CanonicalKey(v.Key.Value))
	case *expr.ConstMapSet:
		c.result.record(v.Map.Type(), value.CanonicalKey(v.Key.Value))
	}
	for _, child := range n.Children() {
		c.walk(child)
	}
	// ConstMapGet/Set's Key is itself a *Constant but is not reachable via
	// Children() (spec: "on each map-get/map-set node, add the literal key"
	// treats Key specially, not as a walked subexpression of arbitrary
	// shape) — already recorded above directly from the typed field.
}

// collectLiteral records every key of a literal ConstMap constant (spec
// §4.4 "on each literal finite-map constant, add every key in that literal").
func (c *collector) collectLiteral(t *exprtype.Type, v any) {
	if t.Kind != exprtype.KindConstMap {
		return
	}
	entries, ok := v.(map[string]any)
	if !ok {
		c.errs.Add(errs.NewInvariantViolated("keys: ConstMap constant value has unexpected Go type %T", v))
		return
	}
	for k := range entries {
		c.result.record(t, k)
	}
}
